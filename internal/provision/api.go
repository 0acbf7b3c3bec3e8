package provision

import (
	"context"
	"errors"
)

// ErrNotFound is matched (errors.Is) by API errors for resources that do not
// exist.
var ErrNotFound = errors.New("not found")

// API is the subset of the GitHub REST API the provisioner drives. Calls are
// not retried.
type API interface {
	// AddTeamRepoPermission creates or updates the team's permission on the
	// repository.
	AddTeamRepoPermission(ctx context.Context, org, teamSlug, owner, repo string, permission Permission) error

	ListTopics(ctx context.Context, owner, repo string) ([]string, error)
	// ReplaceTopics overwrites the full topic set.
	ReplaceTopics(ctx context.Context, owner, repo string, topics []string) error

	CreateRuleset(ctx context.Context, owner, repo string, ruleset Ruleset) error

	CreateOrUpdateEnvironment(ctx context.Context, owner, repo, name string, req EnvironmentRequest) error

	GetEnvironmentVariable(ctx context.Context, owner, repo, environment, name string) (Variable, error)
	CreateEnvironmentVariable(ctx context.Context, owner, repo, environment string, v Variable) error
	UpdateEnvironmentVariable(ctx context.Context, owner, repo, environment string, v Variable) error

	GetRepoPublicKey(ctx context.Context, owner, repo string) (PublicKey, error)
	CreateOrUpdateRepoSecret(ctx context.Context, owner, repo string, secret EncryptedSecret) error

	GetTeamID(ctx context.Context, org, slug string) (int64, error)
	GetUserID(ctx context.Context, username string) (int64, error)
}

// Ruleset is a repository ruleset in the shape the rulesets endpoint accepts.
type Ruleset struct {
	Name        string        `json:"name"`
	Target      string        `json:"target"`
	Enforcement string        `json:"enforcement"`
	Conditions  RulesetConds  `json:"conditions"`
	Rules       []RulesetRule `json:"rules"`
}

type RulesetConds struct {
	RefName RefNameCondition `json:"ref_name"`
}

type RefNameCondition struct {
	Include []string `json:"include"`
	Exclude []string `json:"exclude"`
}

type RulesetRule struct {
	Type       string                 `json:"type"`
	Parameters *PullRequestParameters `json:"parameters,omitempty"`
}

type PullRequestParameters struct {
	DismissStaleReviewsOnPush      bool `json:"dismiss_stale_reviews_on_push"`
	RequireCodeOwnerReview         bool `json:"require_code_owner_review"`
	RequireLastPushApproval        bool `json:"require_last_push_approval"`
	RequiredApprovingReviewCount   int  `json:"required_approving_review_count"`
	RequiredReviewThreadResolution bool `json:"required_review_thread_resolution"`
}

// EnvironmentRequest is the body of a create-or-update environment call.
// Nil optional fields are left out so the call never overrides settings the
// caller did not ask for.
type EnvironmentRequest struct {
	WaitTimer              *int                   `json:"wait_timer,omitempty"`
	Reviewers              []EnvironmentReviewer  `json:"reviewers,omitempty"`
	PreventSelfReview      *bool                  `json:"prevent_self_review,omitempty"`
	DeploymentBranchPolicy DeploymentBranchPolicy `json:"deployment_branch_policy"`
}

type EnvironmentReviewer struct {
	Type ReviewerType `json:"type"`
	ID   int64        `json:"id"`
}

type DeploymentBranchPolicy struct {
	ProtectedBranches    bool `json:"protected_branches"`
	CustomBranchPolicies bool `json:"custom_branch_policies"`
}

// PublicKey is the repository key secrets are sealed against.
type PublicKey struct {
	KeyID string
	Key   string
}

type EncryptedSecret struct {
	Name           string
	KeyID          string
	EncryptedValue string
}
