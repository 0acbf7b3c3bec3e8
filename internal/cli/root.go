package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"foundry/internal/config"
	"foundry/internal/flags"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var cfg = config.New()

var rootCmd = &cobra.Command{
	Use:   "foundry",
	Short: "Create GitHub repositories and make them production ready",
	Long: `Foundry creates a GitHub repository, optionally from a template, and then
productionalizes it: team permissions, topics, a branch protection ruleset,
deployment environments with reviewers and variables, and encrypted secrets.

It runs as a GitHub Action step (inputs are read from INPUT_* variables and
outputs are appended to $GITHUB_OUTPUT) or from a terminal.

Examples:
	# Show available commands and global flags
	foundry --help

	# Create a repository in an organization and productionalize it
	foundry create --org acme --name svc --productionalize --branch-protection-preset moderate

	# Productionalize an existing repository from a config file
	foundry productionalize acme/svc --config foundry.yaml

	# List branch protection presets
	foundry presets list

	# Print build info
	foundry version

Output:
	Human-readable output goes to stdout and logs go to stderr.
	Use --console-format json or --out report.json for machine-readable output.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()

	// Auth
	pf.StringVar(&cfg.Auth.Token, flags.FlagToken, "", "GitHub token (default: GITHUB_TOKEN, GH_TOKEN, then 'gh auth token')")
	pf.StringVar(&cfg.Auth.AppID, flags.FlagAppID, "", "GitHub App ID; authenticate as the app installation instead of a token")
	pf.StringVar(&cfg.Auth.AppPrivateKey, flags.FlagAppPrivateKey, "", "GitHub App private key (PEM text or path to a .pem file)")
	pf.StringVar(&cfg.Auth.APIURL, flags.FlagAPIURL, "", "GitHub API base URL for GitHub Enterprise Server (e.g. https://ghe.example.com/api/v3)")

	// Output
	pf.StringVar(&cfg.Output.ConsoleFormat, flags.FlagConsoleFormat, "text", "Console output format: text|json (default: text)")
	pf.BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --out)")
	pf.StringVar(&cfg.Output.Out, flags.FlagOut, "", "Write the run report as JSON to this path")
	pf.StringVar(&cfg.Output.MetricsFile, flags.FlagMetricsFile, "", "Write Prometheus metrics in text format to this path (node exporter textfile collector)")

	// Runtime
	pf.DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Global timeout (default: 10m)")
	pf.BoolVar(&cfg.Runtime.Verbose, flags.FlagVerbose, false, "Enable verbose logging (prints every GitHub API call)")
	pf.StringVar(&cfg.Runtime.LogLevel, flags.FlagLogLevel, "", "Log level: trace|debug|info|warn|error (default: LOG_LEVEL or info)")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFatal)
	}
}
