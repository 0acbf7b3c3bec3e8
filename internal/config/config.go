package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"foundry/internal/provision"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields, keep these in sync:
	// - CLI flags in internal/cli/create.go and internal/cli/productionalize.go
	// - action inputs in internal/config/action.go
	Repository      Repository
	Productionalize Productionalize
	Auth            Auth
	Output          Output
	Runtime         Runtime
}

type Repository struct {
	// Name of the repository to create (see --name).
	Name string

	// Description of the new repository (see --description).
	Description string

	// Private creates a private repository (see --private).
	Private bool

	// Template is an owner/repository template to generate from (see --template).
	Template string

	// Organization owns the new repository. Empty creates it for the
	// authenticated user (see --org).
	Organization string

	// AutoInit creates an initial commit with an empty README (see --auto-init).
	AutoInit bool

	GitignoreTemplate string
	LicenseTemplate   string

	// DefaultBranch is the branch the repository should end up with (see --default-branch).
	DefaultBranch string
}

// Productionalize holds the raw productionalization inputs. Validate parses
// them into Spec.
type Productionalize struct {
	// Enabled runs productionalization after the repository is created (see --productionalize).
	Enabled bool

	// File is a YAML file carrying a whole productionalization block (see --config).
	// Individual inputs override its fields.
	File string

	// JSON array inputs, as accepted by the action.
	TeamPermissions      string
	Environments         string
	EnvironmentVariables string
	Secrets              string

	// Topics is a JSON array or a comma-separated list.
	Topics string

	// BranchProtectionPreset is one of strict, moderate, minimal.
	BranchProtectionPreset string

	// BranchProtectionTargetBranch defaults to master when a preset is set.
	BranchProtectionTargetBranch string

	// Spec is the parsed configuration. It is populated by Validate.
	Spec provision.Config
}

type Auth struct {
	// Token is an explicit GitHub token (see --token). When empty the token is
	// resolved from GITHUB_TOKEN, GH_TOKEN or the gh CLI.
	Token string

	// AppID and AppPrivateKey authenticate as a GitHub App installation instead
	// of a token (see --app-id, --app-private-key). The key is PEM text or a path.
	AppID         string
	AppPrivateKey string

	// APIURL points at a GitHub Enterprise Server API (see --api-url).
	APIURL string
}

type Output struct {
	// ConsoleFormat controls the console sink (see --console-format).
	// Allowed values: text, json.
	ConsoleFormat string

	// NoConsole suppresses the console sink (see --no-console).
	NoConsole bool

	// Out writes the run report as JSON to this path (see --out).
	Out string

	// ActionOutputs is the file action outputs are appended to. It defaults to
	// $GITHUB_OUTPUT when running inside GitHub Actions.
	ActionOutputs string

	// MetricsFile writes per-feature outcome counters in Prometheus text format
	// (see --metrics-file).
	MetricsFile string
}

type Runtime struct {
	// SettleDelay is waited after repository creation before productionalizing
	// (see --settle-delay).
	SettleDelay time.Duration

	// Concurrency bounds in-flight API calls within one feature (see --concurrency).
	// Must be >= 1.
	Concurrency int

	// Timeout bounds the whole run (see --timeout). Must be > 0.
	Timeout time.Duration

	// FailOnError exits non-zero when any productionalization item failed
	// (see --fail-on-error).
	FailOnError bool

	// Verbose logs every GitHub API request to stderr (see --verbose).
	Verbose bool

	// LogLevel overrides LOG_LEVEL (see --log-level).
	LogLevel string
}

func New() *Config {
	return &Config{
		Repository: Repository{
			AutoInit:      true,
			DefaultBranch: "main",
		},
		Output: Output{
			ConsoleFormat: "text",
		},
		Runtime: Runtime{
			SettleDelay: provision.DefaultSettleDelay,
			Concurrency: provision.DefaultConcurrency,
			Timeout:     10 * time.Minute,
		},
	}
}

func (c *Config) Validate() error {
	c.Repository.Name = strings.TrimSpace(c.Repository.Name)
	c.Repository.Organization = strings.TrimSpace(c.Repository.Organization)
	c.Repository.Template = strings.TrimSpace(c.Repository.Template)
	c.Repository.DefaultBranch = strings.TrimSpace(c.Repository.DefaultBranch)
	if c.Repository.DefaultBranch == "" {
		c.Repository.DefaultBranch = "main"
	}
	if c.Repository.Name != "" && strings.Contains(c.Repository.Name, "/") {
		return fmt.Errorf("invalid --name value %q: expected a repository name without owner", c.Repository.Name)
	}

	// Auth validation
	if (c.Auth.AppID == "") != (c.Auth.AppPrivateKey == "") {
		return errors.New("--app-id and --app-private-key must be provided together")
	}
	if c.Auth.Token != "" && c.Auth.AppID != "" {
		return errors.New("--token and --app-id are mutually exclusive")
	}

	// Output validation
	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	if c.Output.ConsoleFormat == "" {
		return errors.New("--console-format must be one of: text, json")
	}
	if c.Output.ConsoleFormat != "text" && c.Output.ConsoleFormat != "json" {
		return fmt.Errorf("unsupported --console-format: %s (must be one of: text, json)", c.Output.ConsoleFormat)
	}
	if c.Output.Out != "" {
		ext := strings.ToLower(filepath.Ext(c.Output.Out))
		if ext != ".json" {
			if ext == "" {
				return errors.New("cannot infer output format from file extension (missing extension); --out must end in .json")
			}
			return fmt.Errorf("cannot infer output format from file extension %q; --out must end in .json", ext)
		}
	}

	// Runtime validation
	if c.Runtime.SettleDelay < 0 {
		return errors.New("--settle-delay must be >= 0")
	}
	if c.Runtime.Concurrency <= 0 {
		return errors.New("--concurrency must be >= 1")
	}
	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}
	if c.Runtime.LogLevel != "" {
		if _, err := logrus.ParseLevel(c.Runtime.LogLevel); err != nil {
			return fmt.Errorf("invalid --log-level value: %w", err)
		}
	}

	spec, err := c.Productionalize.Parse()
	if err != nil {
		return err
	}
	c.Productionalize.Spec = spec
	return nil
}

// Parse builds the productionalization config from the optional YAML file and
// the individual inputs, inputs taking precedence field by field.
func (p Productionalize) Parse() (provision.Config, error) {
	var spec provision.Config
	if p.File != "" {
		fromFile, err := LoadFile(p.File)
		if err != nil {
			return provision.Config{}, err
		}
		spec = fromFile
	}

	var err error
	if strings.TrimSpace(p.TeamPermissions) != "" {
		if spec.TeamPermissions, err = ParseTeamPermissions(p.TeamPermissions); err != nil {
			return provision.Config{}, err
		}
	}
	if strings.TrimSpace(p.Topics) != "" {
		spec.Topics = ParseTopics(p.Topics)
	}
	if strings.TrimSpace(p.Environments) != "" {
		if spec.Environments, err = ParseEnvironments(p.Environments); err != nil {
			return provision.Config{}, err
		}
	}
	if strings.TrimSpace(p.EnvironmentVariables) != "" {
		if spec.EnvironmentVariables, err = ParseEnvironmentVariables(p.EnvironmentVariables); err != nil {
			return provision.Config{}, err
		}
	}
	if strings.TrimSpace(p.BranchProtectionPreset) != "" {
		if spec.BranchProtectionPreset, err = ParseBranchProtectionPreset(p.BranchProtectionPreset); err != nil {
			return provision.Config{}, err
		}
	}
	if b := strings.TrimSpace(p.BranchProtectionTargetBranch); b != "" {
		spec.BranchProtectionTargetBranch = b
	}
	if spec.BranchProtectionPreset != "" && spec.BranchProtectionTargetBranch == "" {
		spec.BranchProtectionTargetBranch = provision.DefaultTargetBranch
	}
	if strings.TrimSpace(p.Secrets) != "" {
		if spec.Secrets, err = ParseSecrets(p.Secrets); err != nil {
			return provision.Config{}, err
		}
	}
	return spec, nil
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
