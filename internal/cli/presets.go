package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"foundry/internal/provision"
)

var (
	presetsListQuiet   bool
	presetsShowBranch  string
	presetsShowRuleset bool
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List branch protection presets",
	Long: `Inspect the branch protection presets accepted by --branch-protection-preset.

Every preset installs one active branch ruleset that requires pull requests
and blocks force pushes. Presets differ in the pull request policy.

Examples:
  # List all presets
  foundry presets list

  # Show the ruleset a preset creates for the main branch
  foundry presets show moderate --branch main --ruleset
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var presetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available presets",
	Long: `List every branch protection preset, strictest first.

Examples:
  foundry presets list

Output:
  A vertical list of presets:
    ----------------------------------------
    PRESET: {NAME}
    ----------------------------------------
    {RULESET NAME}
    {POLICY}
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, p := range provision.Presets() {
			if presetsListQuiet {
				fmt.Fprintln(cmd.OutOrStdout(), p)
				continue
			}
			printPreset(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

var presetsShowCmd = &cobra.Command{
	Use:   "show [preset]",
	Short: "Show details of a preset",
	Long: `Show the pull request policy of a preset, or with --ruleset the exact
ruleset document foundry sends to GitHub.

Examples:
  foundry presets show strict
  foundry presets show minimal --branch main --ruleset
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		preset, err := provision.ParsePreset(args[0])
		if err != nil {
			return err
		}
		if !presetsShowRuleset {
			printPreset(cmd.OutOrStdout(), preset)
			return nil
		}
		rs, err := provision.RulesetForPreset(preset, presetsShowBranch)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rs)
	},
}

func printPreset(w io.Writer, p provision.Preset) {
	rules, _ := provision.RulesForPreset(p)
	bold := color.New(color.Bold)
	yesNo := func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	}

	fmt.Fprintln(w, "----------------------------------------")
	bold.Fprintf(w, "PRESET: %s\n", p)
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintln(w, provision.RulesetName(p))
	fmt.Fprintf(w, "  Required approvals:         %d\n", rules.RequiredApprovals)
	fmt.Fprintf(w, "  Dismiss stale reviews:      %s\n", yesNo(rules.DismissStaleReviews))
	fmt.Fprintf(w, "  Require last push approval: %s\n", yesNo(rules.RequireLastPushApproval))
	fmt.Fprintf(w, "  Require thread resolution:  %s\n", yesNo(rules.RequireThreadResolution))
	fmt.Fprintln(w, "  Block force pushes:         yes")
	fmt.Fprintln(w)
}

func init() {
	rootCmd.AddCommand(presetsCmd)
	presetsCmd.AddCommand(presetsListCmd)
	presetsListCmd.Flags().BoolVarP(&presetsListQuiet, "quiet", "q", false, "Only print preset names")
	presetsCmd.AddCommand(presetsShowCmd)
	presetsShowCmd.Flags().StringVar(&presetsShowBranch, "branch", provision.DefaultTargetBranch, "Target branch used with --ruleset")
	presetsShowCmd.Flags().BoolVar(&presetsShowRuleset, "ruleset", false, "Print the ruleset JSON instead of the summary")
}
