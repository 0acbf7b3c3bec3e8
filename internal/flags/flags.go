package flags

// Package flags defines canonical CLI flag names shared across the CLI and the
// action input mapping in internal/config. Keeping these as constants avoids
// drift between Cobra flag wiring and INPUT_* handling.
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.Repository.Organization, flags.FlagOrg, "", "...")
//	arg := "--" + flags.FlagOrg
const (
	// Repository
	FlagName              = "name"
	FlagDescription       = "description"
	FlagPrivate           = "private"
	FlagTemplate          = "template"
	FlagOrg               = "org"
	FlagAutoInit          = "auto-init"
	FlagGitignoreTemplate = "gitignore-template"
	FlagLicenseTemplate   = "license-template"
	FlagDefaultBranch     = "default-branch"

	// Productionalize
	FlagProductionalize        = "productionalize"
	FlagConfig                 = "config"
	FlagTeamPermissions        = "team-permissions"
	FlagTopics                 = "topics"
	FlagEnvironments           = "environments"
	FlagEnvironmentVariables   = "environment-variables"
	FlagBranchProtectionPreset = "branch-protection-preset"
	FlagBranchProtectionTarget = "branch-protection-target-branch"
	FlagSecrets                = "secrets"

	// Auth
	FlagToken         = "token"
	FlagAppID         = "app-id"
	FlagAppPrivateKey = "app-private-key"
	FlagAPIURL        = "api-url"

	// Output
	FlagConsoleFormat = "console-format"
	FlagNoConsole     = "no-console"
	FlagOut           = "out"
	FlagMetricsFile   = "metrics-file"

	// Runtime
	FlagSettleDelay = "settle-delay"
	FlagConcurrency = "concurrency"
	FlagTimeout     = "timeout"
	FlagFailOnError = "fail-on-error"
	FlagVerbose     = "verbose"
	FlagLogLevel    = "log-level"
)
