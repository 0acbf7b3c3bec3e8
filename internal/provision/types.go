package provision

import (
	"fmt"
	"strings"
)

// Permission is the access level a team is granted on a repository.
type Permission string

const (
	PermissionPull     Permission = "pull"
	PermissionTriage   Permission = "triage"
	PermissionPush     Permission = "push"
	PermissionMaintain Permission = "maintain"
	PermissionAdmin    Permission = "admin"
)

// Permissions lists the permission levels GitHub accepts, weakest first.
func Permissions() []Permission {
	return []Permission{PermissionPull, PermissionTriage, PermissionPush, PermissionMaintain, PermissionAdmin}
}

// ParsePermission validates s against Permissions, ignoring case.
func ParsePermission(s string) (Permission, error) {
	p := Permission(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range Permissions() {
		if p == v {
			return p, nil
		}
	}
	return "", fmt.Errorf("invalid permission %q (allowed: pull, triage, push, maintain, admin)", s)
}

// ReviewerType selects how a reviewer slug is resolved.
type ReviewerType string

const (
	ReviewerUser ReviewerType = "User"
	ReviewerTeam ReviewerType = "Team"
)

// Preset names a branch protection rule bundle.
type Preset string

const (
	PresetStrict   Preset = "strict"
	PresetModerate Preset = "moderate"
	PresetMinimal  Preset = "minimal"
)

// Presets lists every known preset, strictest first.
func Presets() []Preset {
	return []Preset{PresetStrict, PresetModerate, PresetMinimal}
}

// ParsePreset validates s against the known presets, ignoring case.
func ParsePreset(s string) (Preset, error) {
	p := Preset(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range Presets() {
		if p == v {
			return p, nil
		}
	}
	return "", fmt.Errorf("invalid branch protection preset %q (allowed: strict, moderate, minimal)", s)
}

// DefaultTargetBranch is protected when no target branch is configured.
const DefaultTargetBranch = "master"

type TeamPermission struct {
	TeamSlug   string     `json:"teamSlug" yaml:"teamSlug"`
	Permission Permission `json:"permission" yaml:"permission"`
}

type Reviewer struct {
	Type ReviewerType `json:"type" yaml:"type"`
	Slug string       `json:"slug" yaml:"slug"`
}

type Environment struct {
	Name              string     `json:"name" yaml:"name"`
	WaitTimer         *int       `json:"waitTimer,omitempty" yaml:"waitTimer,omitempty"`
	Reviewers         []Reviewer `json:"reviewers,omitempty" yaml:"reviewers,omitempty"`
	PreventSelfReview *bool      `json:"preventSelfReview,omitempty" yaml:"preventSelfReview,omitempty"`
}

type Variable struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// VariableGroup targets the variables at one environment by name.
type VariableGroup struct {
	EnvironmentName string     `json:"environmentName" yaml:"environmentName"`
	Variables       []Variable `json:"variables" yaml:"variables"`
}

type Secret struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Config is the desired state of a repository. Empty fields disable the
// corresponding feature. Components never modify it.
type Config struct {
	TeamPermissions              []TeamPermission `json:"teamPermissions,omitempty" yaml:"teamPermissions,omitempty"`
	Topics                       []string         `json:"topics,omitempty" yaml:"topics,omitempty"`
	Environments                 []Environment    `json:"environments,omitempty" yaml:"environments,omitempty"`
	EnvironmentVariables         []VariableGroup  `json:"environmentVariables,omitempty" yaml:"environmentVariables,omitempty"`
	BranchProtectionPreset       Preset           `json:"branchProtectionPreset,omitempty" yaml:"branchProtectionPreset,omitempty"`
	BranchProtectionTargetBranch string           `json:"branchProtectionTargetBranch,omitempty" yaml:"branchProtectionTargetBranch,omitempty"`
	Secrets                      []Secret         `json:"secrets,omitempty" yaml:"secrets,omitempty"`
}

// IsEmpty reports whether no feature is enabled.
func (c Config) IsEmpty() bool {
	return len(c.TeamPermissions) == 0 &&
		len(c.Topics) == 0 &&
		len(c.Environments) == 0 &&
		len(c.EnvironmentVariables) == 0 &&
		c.BranchProtectionPreset == "" &&
		len(c.Secrets) == 0
}

type TeamPermissionResult struct {
	TeamSlug string `json:"teamSlug"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

type EnvironmentResult struct {
	Environment string `json:"environment"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
}

type VariableResult struct {
	Environment string `json:"environment"`
	Variable    string `json:"variable"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
}

type SecretResult struct {
	Secret  string `json:"secret"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Result reports what one productionalization run achieved. Every configured
// item shows up exactly once, either as a success or in the matching error
// list. Variables aimed at environments that failed are skipped and do not
// appear. When SecretsError is set no secret was attempted.
type Result struct {
	TeamPermissions         []TeamPermissionResult `json:"teamPermissions"`
	TopicsAdded             bool                   `json:"topicsAdded"`
	TopicsError             string                 `json:"topicsError,omitempty"`
	EnvironmentsCreated     []string               `json:"environmentsCreated"`
	EnvironmentErrors       []EnvironmentResult    `json:"environmentErrors"`
	VariablesCreated        int                    `json:"variablesCreated"`
	VariableErrors          []VariableResult       `json:"variableErrors"`
	BranchProtectionCreated bool                   `json:"branchProtectionCreated"`
	BranchProtectionError   string                 `json:"branchProtectionError,omitempty"`
	SecretsCreated          int                    `json:"secretsCreated"`
	SecretErrors            []SecretResult         `json:"secretErrors"`
	SecretsError            string                 `json:"secretsError,omitempty"`
}

func newResult() *Result {
	return &Result{
		TeamPermissions:     []TeamPermissionResult{},
		EnvironmentsCreated: []string{},
		EnvironmentErrors:   []EnvironmentResult{},
		VariableErrors:      []VariableResult{},
		SecretErrors:        []SecretResult{},
	}
}

// TeamPermissionsSucceeded counts successful team permission grants.
func (r *Result) TeamPermissionsSucceeded() int {
	n := 0
	for _, tp := range r.TeamPermissions {
		if tp.Success {
			n++
		}
	}
	return n
}

// HasFailures reports whether any attempted feature or item failed.
func (r *Result) HasFailures() bool {
	if r == nil {
		return false
	}
	return r.TeamPermissionsSucceeded() != len(r.TeamPermissions) ||
		r.TopicsError != "" ||
		len(r.EnvironmentErrors) > 0 ||
		len(r.VariableErrors) > 0 ||
		r.BranchProtectionError != "" ||
		len(r.SecretErrors) > 0 ||
		r.SecretsError != ""
}
