package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/go-github/v68/github"

	"foundry/internal/provision"
)

// RepoAPI implements provision.API on top of go-github.
//
// Rulesets, environments and environment variables go through NewRequest/Do
// with the bodies defined in package provision: the typed helpers fill in
// defaults (wait_timer, reviewers) the caller did not ask for.
type RepoAPI struct {
	c *Client
}

var _ provision.API = (*RepoAPI)(nil)

func NewRepoAPI(c *Client) *RepoAPI {
	return &RepoAPI{c: c}
}

func (a *RepoAPI) AddTeamRepoPermission(ctx context.Context, org, teamSlug, owner, repo string, permission provision.Permission) error {
	_, err := a.c.Client.Teams.AddTeamRepoBySlug(ctx, org, teamSlug, owner, repo, &github.TeamAddTeamRepoOptions{
		Permission: string(permission),
	})
	return WrapError("add team repo permission", err)
}

func (a *RepoAPI) ListTopics(ctx context.Context, owner, repo string) ([]string, error) {
	topics, _, err := a.c.Client.Repositories.ListAllTopics(ctx, owner, repo)
	if err != nil {
		return nil, WrapError("list topics", err)
	}
	return topics, nil
}

func (a *RepoAPI) ReplaceTopics(ctx context.Context, owner, repo string, topics []string) error {
	if topics == nil {
		topics = []string{}
	}
	_, _, err := a.c.Client.Repositories.ReplaceAllTopics(ctx, owner, repo, topics)
	return WrapError("replace topics", err)
}

func (a *RepoAPI) CreateRuleset(ctx context.Context, owner, repo string, ruleset provision.Ruleset) error {
	u := fmt.Sprintf("repos/%s/%s/rulesets", url.PathEscape(owner), url.PathEscape(repo))
	return a.do(ctx, "create ruleset", http.MethodPost, u, ruleset, nil)
}

func (a *RepoAPI) CreateOrUpdateEnvironment(ctx context.Context, owner, repo, name string, req provision.EnvironmentRequest) error {
	u := fmt.Sprintf("repos/%s/%s/environments/%s", url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(name))
	return a.do(ctx, "create environment", http.MethodPut, u, req, nil)
}

type actionsVariable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func environmentVariablesURL(owner, repo, environment string) string {
	return fmt.Sprintf("repos/%s/%s/environments/%s/variables", url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(environment))
}

func (a *RepoAPI) GetEnvironmentVariable(ctx context.Context, owner, repo, environment, name string) (provision.Variable, error) {
	u := environmentVariablesURL(owner, repo, environment) + "/" + url.PathEscape(name)
	var v actionsVariable
	if err := a.do(ctx, "get environment variable", http.MethodGet, u, nil, &v); err != nil {
		return provision.Variable{}, err
	}
	return provision.Variable{Name: v.Name, Value: v.Value}, nil
}

func (a *RepoAPI) CreateEnvironmentVariable(ctx context.Context, owner, repo, environment string, v provision.Variable) error {
	u := environmentVariablesURL(owner, repo, environment)
	return a.do(ctx, "create environment variable", http.MethodPost, u, actionsVariable{Name: v.Name, Value: v.Value}, nil)
}

func (a *RepoAPI) UpdateEnvironmentVariable(ctx context.Context, owner, repo, environment string, v provision.Variable) error {
	u := environmentVariablesURL(owner, repo, environment) + "/" + url.PathEscape(v.Name)
	return a.do(ctx, "update environment variable", http.MethodPatch, u, actionsVariable{Name: v.Name, Value: v.Value}, nil)
}

func (a *RepoAPI) GetRepoPublicKey(ctx context.Context, owner, repo string) (provision.PublicKey, error) {
	key, _, err := a.c.Client.Actions.GetRepoPublicKey(ctx, owner, repo)
	if err != nil {
		return provision.PublicKey{}, WrapError("get repo public key", err)
	}
	return provision.PublicKey{KeyID: key.GetKeyID(), Key: key.GetKey()}, nil
}

func (a *RepoAPI) CreateOrUpdateRepoSecret(ctx context.Context, owner, repo string, secret provision.EncryptedSecret) error {
	_, err := a.c.Client.Actions.CreateOrUpdateRepoSecret(ctx, owner, repo, &github.EncryptedSecret{
		Name:           secret.Name,
		KeyID:          secret.KeyID,
		EncryptedValue: secret.EncryptedValue,
	})
	return WrapError("create repo secret", err)
}

func (a *RepoAPI) GetTeamID(ctx context.Context, org, slug string) (int64, error) {
	team, _, err := a.c.Client.Teams.GetTeamBySlug(ctx, org, slug)
	if err != nil {
		return 0, WrapError("get team", err)
	}
	return team.GetID(), nil
}

func (a *RepoAPI) GetUserID(ctx context.Context, username string) (int64, error) {
	user, _, err := a.c.Client.Users.Get(ctx, username)
	if err != nil {
		return 0, WrapError("get user", err)
	}
	return user.GetID(), nil
}

// do issues a raw REST call relative to the client's base URL and decodes
// the response into v when v is non-nil.
func (a *RepoAPI) do(ctx context.Context, op, method, path string, body, v any) error {
	req, err := a.c.Client.NewRequest(method, path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	_, err = a.c.Client.Do(ctx, req, v)
	return WrapError(op, err)
}
