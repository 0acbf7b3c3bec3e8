package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"foundry/internal/config"
	"foundry/internal/flags"
	gh "foundry/internal/github"
	"foundry/internal/repository"
)

var productionalizeCmd = &cobra.Command{
	Use:   "productionalize OWNER/REPO",
	Short: "Apply productionalization settings to an existing repository",
	Long: `Apply team permissions, topics, a branch protection ruleset, deployment
environments with variables, and encrypted secrets to an existing repository.

Features run in three phases. Team permissions, topics and branch protection
run concurrently. Environments are then created one at a time and variables
are set on the environments that were created. Secrets come last. A failing
item is reported and never stops the others.

Topics are merged with the topics the repository already has. Environments
and variables are created or updated. Variable names are converted to
UPPER_SNAKE_CASE. Secrets are encrypted locally with the repository public key.

The settle delay defaults to 0 here; the repository is expected to exist.

Exit codes:
	0 = productionalization ran
	1 = productionalization reported failures and --fail-on-error is set
	3 = fatal error (nothing was attempted)

Examples:
  foundry productionalize acme/svc --config foundry.yaml

  foundry productionalize acme/svc --topics infra,go \
    --environments '[{"name":"production","reviewers":[{"type":"Team","slug":"sre"}]}]' \
    --environment-variables '[{"environmentName":"production","variables":[{"name":"awsAccountId","value":"123"}]}]'
`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runProductionalize(cmd.Context(), cfg, args[0], cmd.Flags().Changed, processEnv()))
	},
}

func parseRepoArg(arg string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(arg), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid repository %q: expected OWNER/REPO", arg)
	}
	return owner, repo, nil
}

func runProductionalize(ctx context.Context, cfg *config.Config, target string, changed func(string) bool, env runEnv) int {
	if ctx == nil {
		ctx = context.Background()
	}
	owner, name, err := parseRepoArg(target)
	if err != nil {
		return env.fatalf("%v", err)
	}

	cfg.ApplyActionInputs(env.getenv, changed)
	if changed == nil || !changed(flags.FlagSettleDelay) {
		cfg.Runtime.SettleDelay = 0
	}
	if err := cfg.Validate(); err != nil {
		return env.fatalf("%v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Runtime.Timeout)
	defer cancel()

	s, code := open(ctx, cfg, env, owner, name)
	if s == nil {
		return code
	}

	repo, err := repository.NewService(s.client, s.log).Get(ctx, owner, name)
	if err != nil {
		s.log.WithError(err).Error("repository lookup failed")
		_ = s.finish(cfg, "productionalize", nil)
		if gh.IsNotFound(err) {
			return env.fatalf("%v (check the name and that the token can access the repository)", err)
		}
		return env.fatalf("%v", err)
	}

	owner, name = repo.OwnerAndName()
	result := s.productionalize(ctx, cfg, owner, name)
	return s.finish(cfg, "productionalize", result)
}

func init() {
	rootCmd.AddCommand(productionalizeCmd)
	addProductionalizeFlags(productionalizeCmd)
}
