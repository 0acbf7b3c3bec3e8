package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"foundry/internal/config"
	"foundry/internal/flags"
	"foundry/internal/output"
	"foundry/internal/provision"
	"foundry/internal/repository"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a repository and optionally productionalize it",
	Long: `Create a GitHub repository from a template, inside an organization, or for
the authenticated user. Merged branches are deleted automatically. After
creation the default branch is renamed to --default-branch when it differs.

With --productionalize the new repository is then configured from the
productionalization inputs (see "foundry productionalize --help").

Inside GitHub Actions every flag can also be given as an action input
(INPUT_REPOSITORY-NAME, INPUT_TEAM-PERMISSIONS, ...); explicit flags win.
Outputs repository-url, repository-name, repository-id and
productionalization-status are appended to $GITHUB_OUTPUT.

Exit codes:
	0 = repository created (and productionalization ran)
	1 = productionalization reported failures and --fail-on-error is set
	2 = repository creation failed
	3 = fatal error (nothing was attempted)

Examples:
  foundry create --org acme --name svc --private --gitignore-template Go

  foundry create --org acme --name svc --template acme/template-go \
    --productionalize --team-permissions '[{"teamSlug":"core","permission":"push"}]' \
    --topics infra --branch-protection-preset moderate
`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		env := processEnv()
		if cmd.Flags().NFlag() == 0 && !cfg.ApplyActionInputs(env.getenv, nil) {
			_ = cmd.Help()
			return
		}
		os.Exit(runCreate(cmd.Context(), cfg, cmd.Flags().Changed, env))
	},
}

func runCreate(ctx context.Context, cfg *config.Config, changed func(string) bool, env runEnv) int {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg.ApplyActionInputs(env.getenv, changed)
	if err := cfg.Validate(); err != nil {
		return env.fatalf("%v", err)
	}
	if cfg.Repository.Name == "" {
		return env.fatalf("--%s is required", flags.FlagName)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Runtime.Timeout)
	defer cancel()

	s, code := open(ctx, cfg, env, cfg.Repository.Organization, "")
	if s == nil {
		return code
	}
	s.log.Info("Foundry initialized")
	s.log.WithField("name", cfg.Repository.Name).Info("Creating repository")

	svc := repository.NewService(s.client, s.log)
	repo, err := svc.Create(ctx, repository.Input{
		Name:              cfg.Repository.Name,
		Description:       cfg.Repository.Description,
		Private:           cfg.Repository.Private,
		Template:          cfg.Repository.Template,
		Organization:      cfg.Repository.Organization,
		AutoInit:          cfg.Repository.AutoInit,
		GitignoreTemplate: cfg.Repository.GitignoreTemplate,
		LicenseTemplate:   cfg.Repository.LicenseTemplate,
		DefaultBranch:     cfg.Repository.DefaultBranch,
	})
	if err != nil {
		s.log.WithError(err).Error("repository creation failed")
		_ = s.finish(cfg, "create", nil)
		fmt.Fprintf(env.stderr, "Error: %v\n", err)
		return exitCreateFailed
	}
	s.log.WithField("url", repo.HTMLURL).Info("Repository created successfully")
	if err := s.sinks.Write(output.RepositoryCreated{Repository: repo}); err != nil {
		s.log.WithError(err).Error("failed to write repository output")
	}

	var result *provision.Result
	if cfg.Productionalize.Enabled {
		owner, name := repo.OwnerAndName()
		s.log.Info("Starting repository productionalization...")
		result = s.productionalize(ctx, cfg, owner, name)
	}
	return s.finish(cfg, "create", result)
}

// addProductionalizeFlags registers the productionalization inputs shared by
// create and productionalize.
func addProductionalizeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&cfg.Productionalize.File, flags.FlagConfig, "", "YAML file with a productionalization block; individual flags override its fields")
	f.StringVar(&cfg.Productionalize.TeamPermissions, flags.FlagTeamPermissions, "", `JSON array of team permissions, e.g. [{"teamSlug":"core","permission":"push"}]`)
	f.StringVar(&cfg.Productionalize.Topics, flags.FlagTopics, "", "Topics to add: JSON array or comma-separated list")
	f.StringVar(&cfg.Productionalize.Environments, flags.FlagEnvironments, "", `JSON array of environments, e.g. [{"name":"prod","waitTimer":5,"reviewers":[{"type":"Team","slug":"sre"}]}]`)
	f.StringVar(&cfg.Productionalize.EnvironmentVariables, flags.FlagEnvironmentVariables, "", `JSON array of {"environmentName":...,"variables":[{"name":...,"value":...}]}`)
	f.StringVar(&cfg.Productionalize.BranchProtectionPreset, flags.FlagBranchProtectionPreset, "", "Branch protection preset: strict|moderate|minimal (see 'foundry presets list')")
	f.StringVar(&cfg.Productionalize.BranchProtectionTargetBranch, flags.FlagBranchProtectionTarget, "", "Branch the preset protects (default: master)")
	f.StringVar(&cfg.Productionalize.Secrets, flags.FlagSecrets, "", `JSON array of repository secrets, e.g. [{"name":"DEPLOY_KEY","value":"..."}]`)

	f.DurationVar(&cfg.Runtime.SettleDelay, flags.FlagSettleDelay, provision.DefaultSettleDelay, "Wait before the first productionalization call")
	f.IntVar(&cfg.Runtime.Concurrency, flags.FlagConcurrency, provision.DefaultConcurrency, "Concurrent API calls per feature")
	f.BoolVar(&cfg.Runtime.FailOnError, flags.FlagFailOnError, false, "Exit 1 when any productionalization item failed")
}

func init() {
	rootCmd.AddCommand(createCmd)

	f := createCmd.Flags()
	f.StringVar(&cfg.Repository.Name, flags.FlagName, "", "Name of the repository to create (required)")
	f.StringVar(&cfg.Repository.Description, flags.FlagDescription, "", "Repository description")
	f.BoolVar(&cfg.Repository.Private, flags.FlagPrivate, false, "Create a private repository")
	f.StringVar(&cfg.Repository.Template, flags.FlagTemplate, "", "Template repository as OWNER/REPO")
	f.StringVar(&cfg.Repository.Organization, flags.FlagOrg, "", "Organization to create the repository in (default: the authenticated user)")
	f.BoolVar(&cfg.Repository.AutoInit, flags.FlagAutoInit, true, "Create an initial commit")
	f.StringVar(&cfg.Repository.GitignoreTemplate, flags.FlagGitignoreTemplate, "", "Gitignore template, e.g. Go")
	f.StringVar(&cfg.Repository.LicenseTemplate, flags.FlagLicenseTemplate, "", "License template keyword, e.g. mit")
	f.StringVar(&cfg.Repository.DefaultBranch, flags.FlagDefaultBranch, "main", "Default branch of the new repository")

	f.BoolVar(&cfg.Productionalize.Enabled, flags.FlagProductionalize, false, "Productionalize the repository after creating it")
	addProductionalizeFlags(createCmd)
}
