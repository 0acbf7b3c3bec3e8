package config

import (
	"strings"

	"foundry/internal/flags"
)

// actionInput maps a GitHub Action input to the CLI flag it stands in for.
type actionInput struct {
	name string
	flag string
	set  func(c *Config, v string)
}

func isTrue(v string) bool { return strings.TrimSpace(v) == "true" }

var actionInputs = []actionInput{
	{"github-token", flags.FlagToken, func(c *Config, v string) { c.Auth.Token = v }},
	{"app-id", flags.FlagAppID, func(c *Config, v string) { c.Auth.AppID = v }},
	{"app-private-key", flags.FlagAppPrivateKey, func(c *Config, v string) { c.Auth.AppPrivateKey = v }},
	{"api-url", flags.FlagAPIURL, func(c *Config, v string) { c.Auth.APIURL = v }},

	{"repository-name", flags.FlagName, func(c *Config, v string) { c.Repository.Name = v }},
	{"repository-description", flags.FlagDescription, func(c *Config, v string) { c.Repository.Description = v }},
	{"repository-private", flags.FlagPrivate, func(c *Config, v string) { c.Repository.Private = isTrue(v) }},
	{"repository-template", flags.FlagTemplate, func(c *Config, v string) { c.Repository.Template = v }},
	{"organization", flags.FlagOrg, func(c *Config, v string) { c.Repository.Organization = v }},
	{"auto-init", flags.FlagAutoInit, func(c *Config, v string) { c.Repository.AutoInit = isTrue(v) }},
	{"gitignore-template", flags.FlagGitignoreTemplate, func(c *Config, v string) { c.Repository.GitignoreTemplate = v }},
	{"license-template", flags.FlagLicenseTemplate, func(c *Config, v string) { c.Repository.LicenseTemplate = v }},
	{"default-branch", flags.FlagDefaultBranch, func(c *Config, v string) { c.Repository.DefaultBranch = v }},

	{"productionalize", flags.FlagProductionalize, func(c *Config, v string) { c.Productionalize.Enabled = isTrue(v) }},
	{"productionalize-config", flags.FlagConfig, func(c *Config, v string) { c.Productionalize.File = v }},
	{"team-permissions", flags.FlagTeamPermissions, func(c *Config, v string) { c.Productionalize.TeamPermissions = v }},
	{"repository-topics", flags.FlagTopics, func(c *Config, v string) { c.Productionalize.Topics = v }},
	{"environments", flags.FlagEnvironments, func(c *Config, v string) { c.Productionalize.Environments = v }},
	{"environment-variables", flags.FlagEnvironmentVariables, func(c *Config, v string) { c.Productionalize.EnvironmentVariables = v }},
	{"branch-protection-preset", flags.FlagBranchProtectionPreset, func(c *Config, v string) { c.Productionalize.BranchProtectionPreset = v }},
	{"branch-protection-target-branch", flags.FlagBranchProtectionTarget, func(c *Config, v string) { c.Productionalize.BranchProtectionTargetBranch = v }},
	{"repository-secrets", flags.FlagSecrets, func(c *Config, v string) { c.Productionalize.Secrets = v }},

	{"fail-on-error", flags.FlagFailOnError, func(c *Config, v string) { c.Runtime.FailOnError = isTrue(v) }},
}

// InputEnvName is the environment variable the Actions runner uses for an input.
func InputEnvName(input string) string {
	return "INPUT_" + strings.ToUpper(strings.ReplaceAll(input, " ", "_"))
}

// ApplyActionInputs fills the config from GitHub Action inputs (INPUT_*
// variables). Inputs never override a flag the user set explicitly, and empty
// inputs are ignored. It reports whether any input was applied.
func (c *Config) ApplyActionInputs(getenv func(string) string, flagChanged func(string) bool) bool {
	applied := false
	for _, in := range actionInputs {
		if flagChanged != nil && flagChanged(in.flag) {
			continue
		}
		v := getenv(InputEnvName(in.name))
		if strings.TrimSpace(v) == "" {
			continue
		}
		in.set(c, v)
		applied = true
	}
	if c.Output.ActionOutputs == "" {
		c.Output.ActionOutputs = getenv("GITHUB_OUTPUT")
	}
	return applied
}
