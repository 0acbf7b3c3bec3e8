package provision

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

type countingRecorder struct {
	mu   sync.Mutex
	seen map[Feature][2]int
}

func (r *countingRecorder) Record(f Feature, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen == nil {
		r.seen = map[Feature][2]int{}
	}
	c := r.seen[f]
	if ok {
		c[0]++
	} else {
		c[1]++
	}
	r.seen[f] = c
}

func newTestProvisioner(api API) (*Provisioner, *logtest.Hook) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return New(api, Options{Logger: logger}), hook
}

func TestProductionalize_EmptyConfig(t *testing.T) {
	api := newFakeAPI(t)
	p, _ := newTestProvisioner(api)

	res := p.Productionalize(context.Background(), "acme", "svc", Config{})

	assert.Empty(t, res.TeamPermissions)
	assert.False(t, res.TopicsAdded)
	assert.False(t, res.BranchProtectionCreated)
	assert.Empty(t, res.EnvironmentsCreated)
	assert.Zero(t, res.VariablesCreated)
	assert.Zero(t, res.SecretsCreated)
	assert.False(t, res.HasFailures())
	assert.Zero(t, api.publicKeyGets)
}

func TestProductionalize_EndToEndScenario(t *testing.T) {
	api := newFakeAPI(t)
	api.topics = []string{"go"}
	p, _ := newTestProvisioner(api)

	res := p.Productionalize(context.Background(), "acme", "svc", Config{
		TeamPermissions:        []TeamPermission{{TeamSlug: "core", Permission: PermissionPush}},
		Topics:                 []string{"infra"},
		BranchProtectionPreset: PresetModerate,
	})

	require.Len(t, res.TeamPermissions, 1)
	assert.Equal(t, TeamPermissionResult{TeamSlug: "core", Success: true}, res.TeamPermissions[0])
	assert.True(t, res.TopicsAdded)
	assert.Empty(t, res.TopicsError)
	assert.True(t, res.BranchProtectionCreated)
	assert.Empty(t, res.BranchProtectionError)
	assert.Empty(t, res.EnvironmentsCreated)
	assert.Empty(t, res.EnvironmentErrors)
	assert.Zero(t, res.VariablesCreated)
	assert.Empty(t, res.VariableErrors)
	assert.Zero(t, res.SecretsCreated)
	assert.Empty(t, res.SecretErrors)

	assert.Equal(t, PermissionPush, api.teamGrants["core"])
	assert.Equal(t, []string{"go", "infra"}, api.topics)
	require.Len(t, api.rulesets, 1)
	assert.Equal(t, "Branch protection rules (moderate)", api.rulesets[0].Name)
	assert.Equal(t, []string{"refs/heads/master"}, api.rulesets[0].Conditions.RefName.Include)
}

func TestProductionalize_TeamPermissionsKeepInputOrder(t *testing.T) {
	api := newFakeAPI(t)
	api.fail["team:b"] = errBoom
	api.fail["team:d"] = errors.New("Not Found")
	p, _ := newTestProvisioner(api)

	teams := []TeamPermission{
		{TeamSlug: "a", Permission: PermissionPull},
		{TeamSlug: "b", Permission: PermissionPush},
		{TeamSlug: "c", Permission: PermissionAdmin},
		{TeamSlug: "d", Permission: PermissionTriage},
		{TeamSlug: "e", Permission: PermissionMaintain},
	}
	res := p.Productionalize(context.Background(), "acme", "svc", Config{TeamPermissions: teams})

	require.Len(t, res.TeamPermissions, len(teams))
	for i, tp := range res.TeamPermissions {
		assert.Equal(t, teams[i].TeamSlug, tp.TeamSlug)
	}
	assert.False(t, res.TeamPermissions[1].Success)
	assert.Equal(t, "boom", res.TeamPermissions[1].Error)
	assert.False(t, res.TeamPermissions[3].Success)
	assert.Equal(t, 3, res.TeamPermissionsSucceeded())
	assert.True(t, res.HasFailures())
}

func TestProductionalize_FeatureFailuresAreIsolated(t *testing.T) {
	api := newFakeAPI(t)
	api.fail["topics:list"] = errBoom
	api.fail["ruleset"] = errors.New("Validation Failed")
	p, hook := newTestProvisioner(api)

	res := p.Productionalize(context.Background(), "acme", "svc", Config{
		TeamPermissions:        []TeamPermission{{TeamSlug: "core", Permission: PermissionPush}},
		Topics:                 []string{"infra"},
		BranchProtectionPreset: PresetStrict,
		Secrets:                []Secret{{Name: "TOKEN", Value: "t"}},
	})

	assert.True(t, res.TeamPermissions[0].Success)
	assert.False(t, res.TopicsAdded)
	assert.Equal(t, "list topics: boom", res.TopicsError)
	assert.False(t, res.BranchProtectionCreated)
	assert.Contains(t, res.BranchProtectionError, "Validation Failed")
	assert.Equal(t, 1, res.SecretsCreated)

	var errorEntries int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			errorEntries++
		}
	}
	assert.GreaterOrEqual(t, errorEntries, 2)
}

func TestProductionalize_TopicReplaceFailure(t *testing.T) {
	api := newFakeAPI(t)
	api.fail["topics:replace"] = errBoom
	p, _ := newTestProvisioner(api)

	res := p.Productionalize(context.Background(), "acme", "svc", Config{Topics: []string{"infra"}})
	assert.False(t, res.TopicsAdded)
	assert.Equal(t, "replace topics: boom", res.TopicsError)
}

func TestProductionalize_EnvironmentFailureSkipsItsVariables(t *testing.T) {
	api := newFakeAPI(t)
	api.userIDs["alice"] = 7
	p, hook := newTestProvisioner(api)

	res := p.Productionalize(context.Background(), "acme", "svc", Config{
		Environments: []Environment{
			{Name: "staging", Reviewers: []Reviewer{{Type: ReviewerUser, Slug: "ghost"}}},
			{Name: "production", Reviewers: []Reviewer{{Type: ReviewerUser, Slug: "alice"}}},
		},
		EnvironmentVariables: []VariableGroup{
			{EnvironmentName: "staging", Variables: []Variable{{Name: "awsAccountId", Value: "1"}, {Name: "region", Value: "eu"}}},
			{EnvironmentName: "production", Variables: []Variable{{Name: "awsAccountId", Value: "2"}}},
		},
	})

	assert.Equal(t, []string{"production"}, res.EnvironmentsCreated)
	require.Len(t, res.EnvironmentErrors, 1)
	assert.Equal(t, "staging", res.EnvironmentErrors[0].Environment)
	assert.False(t, res.EnvironmentErrors[0].Success)
	assert.Contains(t, res.EnvironmentErrors[0].Error, "failed to resolve username 'ghost'")

	assert.Equal(t, 1, res.VariablesCreated)
	assert.Empty(t, res.VariableErrors)
	assert.Equal(t, "2", api.variables["production"]["AWS_ACCOUNT_ID"])
	_, stagingCreated := api.variables["staging"]
	assert.False(t, stagingCreated)

	var skipped bool
	for _, e := range hook.AllEntries() {
		if e.Data["environment"] == "staging" && e.Level == logrus.InfoLevel && e.Message == "skipping variables for environment that was not created" {
			skipped = true
		}
	}
	assert.True(t, skipped, "expected an info log for the skipped group")
}

func TestProductionalize_EnvironmentsRunSequentiallyInOrder(t *testing.T) {
	api := newFakeAPI(t)
	api.fail["env:b"] = errBoom
	p, _ := newTestProvisioner(api)

	res := p.Productionalize(context.Background(), "acme", "svc", Config{
		Environments: []Environment{{Name: "a"}, {Name: "b"}, {Name: "c"}},
	})

	assert.Equal(t, []string{"a", "c"}, api.envOrder)
	assert.Equal(t, []string{"a", "c"}, res.EnvironmentsCreated)
	require.Len(t, res.EnvironmentErrors, 1)
	assert.Equal(t, EnvironmentResult{Environment: "b", Success: false, Error: "boom"}, res.EnvironmentErrors[0])
}

func TestProductionalize_EnvironmentRequestOnlySendsSuppliedFields(t *testing.T) {
	api := newFakeAPI(t)
	api.teamIDs["ops"] = 42
	api.userIDs["alice"] = 7
	p, _ := newTestProvisioner(api)

	p.Productionalize(context.Background(), "acme", "svc", Config{
		Environments: []Environment{
			{Name: "bare"},
			{
				Name:              "production",
				WaitTimer:         intPtr(0),
				PreventSelfReview: boolPtr(false),
				Reviewers: []Reviewer{
					{Type: ReviewerTeam, Slug: "ops"},
					{Type: ReviewerUser, Slug: "alice"},
				},
			},
		},
	})

	bare := api.envRequests["bare"]
	assert.Nil(t, bare.WaitTimer)
	assert.Nil(t, bare.Reviewers)
	assert.Nil(t, bare.PreventSelfReview)
	assert.Equal(t, DeploymentBranchPolicy{ProtectedBranches: false, CustomBranchPolicies: true}, bare.DeploymentBranchPolicy)

	prod := api.envRequests["production"]
	require.NotNil(t, prod.WaitTimer)
	assert.Equal(t, 0, *prod.WaitTimer)
	require.NotNil(t, prod.PreventSelfReview)
	assert.False(t, *prod.PreventSelfReview)
	assert.Equal(t, []EnvironmentReviewer{{Type: ReviewerTeam, ID: 42}, {Type: ReviewerUser, ID: 7}}, prod.Reviewers)
}

func TestProductionalize_VariablesCreateOrUpdate(t *testing.T) {
	api := newFakeAPI(t)
	api.variables["prod"] = map[string]string{"CLUSTER_NAME_EAST": "old"}
	p, _ := newTestProvisioner(api)

	res := p.Productionalize(context.Background(), "acme", "svc", Config{
		Environments: []Environment{{Name: "prod"}},
		EnvironmentVariables: []VariableGroup{{EnvironmentName: "prod", Variables: []Variable{
			{Name: "clusterNameEast", Value: "new"},
			{Name: "APIKey", Value: "k"},
		}}},
	})

	assert.Equal(t, 2, res.VariablesCreated)
	assert.Empty(t, res.VariableErrors)
	assert.Equal(t, []string{"prod/CLUSTER_NAME_EAST"}, api.updatedVars)
	assert.Equal(t, []string{"prod/API_KEY"}, api.createdVars)
	assert.Equal(t, "new", api.variables["prod"]["CLUSTER_NAME_EAST"])
}

func TestProductionalize_VariableProbeErrorIsNotTreatedAsAbsent(t *testing.T) {
	api := newFakeAPI(t)
	api.fail["getvar:prod/DB_HOST"] = errors.New("500 Internal Server Error")
	p, _ := newTestProvisioner(api)

	res := p.Productionalize(context.Background(), "acme", "svc", Config{
		Environments: []Environment{{Name: "prod"}},
		EnvironmentVariables: []VariableGroup{{EnvironmentName: "prod", Variables: []Variable{
			{Name: "dbHost", Value: "db"},
			{Name: "dbPort", Value: "5432"},
		}}},
	})

	assert.Equal(t, 1, res.VariablesCreated)
	require.Len(t, res.VariableErrors, 1)
	assert.Equal(t, "prod", res.VariableErrors[0].Environment)
	assert.Equal(t, "dbHost", res.VariableErrors[0].Variable, "errors carry the configured name")
	assert.Contains(t, res.VariableErrors[0].Error, "500 Internal Server Error")
	assert.Equal(t, []string{"prod/DB_PORT"}, api.createdVars, "no create after a failed probe")
}

func TestProductionalize_VariablesWithSameNormalizedNameKeepLastValue(t *testing.T) {
	api := newFakeAPI(t)
	p, _ := newTestProvisioner(api)

	res := p.Productionalize(context.Background(), "acme", "svc", Config{
		Environments: []Environment{{Name: "prod"}},
		EnvironmentVariables: []VariableGroup{{EnvironmentName: "prod", Variables: []Variable{
			{Name: "apiKey", Value: "1"},
			{Name: "region", Value: "eu"},
			{Name: "API_KEY", Value: "2"},
		}}},
	})

	assert.Equal(t, 3, res.VariablesCreated)
	assert.Empty(t, res.VariableErrors)
	assert.ElementsMatch(t, []string{"prod/API_KEY", "prod/REGION"}, api.createdVars)
	assert.Equal(t, []string{"prod/API_KEY"}, api.updatedVars)
	assert.Equal(t, "2", api.variables["prod"]["API_KEY"])
}

func TestProductionalize_VariablesWithoutEnvironmentsAreIgnored(t *testing.T) {
	api := newFakeAPI(t)
	p, _ := newTestProvisioner(api)

	res := p.Productionalize(context.Background(), "acme", "svc", Config{
		EnvironmentVariables: []VariableGroup{{EnvironmentName: "prod", Variables: []Variable{{Name: "a", Value: "b"}}}},
	})
	assert.Zero(t, res.VariablesCreated)
	assert.Empty(t, res.VariableErrors)
	assert.Empty(t, api.createdVars)
}

func TestProductionalize_SecretsRoundTrip(t *testing.T) {
	api := newFakeAPI(t)
	p, hook := newTestProvisioner(api)

	res := p.Productionalize(context.Background(), "acme", "svc", Config{
		Secrets: []Secret{{Name: "DEPLOY_KEY", Value: "hunter2"}, {Name: "NPM_TOKEN", Value: "npm_abc"}},
	})

	assert.Equal(t, 2, res.SecretsCreated)
	assert.Empty(t, res.SecretErrors)
	assert.Equal(t, "hunter2", api.decrypt(t, "DEPLOY_KEY"))
	assert.Equal(t, "npm_abc", api.decrypt(t, "NPM_TOKEN"))
	assert.Equal(t, "key-1", api.secrets["DEPLOY_KEY"].KeyID)
	assert.Equal(t, 1, api.publicKeyGets)

	for _, e := range hook.AllEntries() {
		line, err := e.String()
		require.NoError(t, err)
		assert.NotContains(t, line, "hunter2")
	}
}

func TestProductionalize_PublicKeyFailureIsSingleCondition(t *testing.T) {
	api := newFakeAPI(t)
	api.fail["pubkey"] = errors.New("403 Resource not accessible by integration")
	p, _ := newTestProvisioner(api)

	res := p.Productionalize(context.Background(), "acme", "svc", Config{
		Secrets: []Secret{{Name: "A", Value: "1"}, {Name: "B", Value: "2"}, {Name: "C", Value: "3"}},
	})

	assert.Zero(t, res.SecretsCreated)
	assert.Empty(t, res.SecretErrors)
	assert.Equal(t, "failed to get repository public key: 403 Resource not accessible by integration", res.SecretsError)
	assert.Empty(t, api.secrets)
	assert.True(t, res.HasFailures())
}

func TestProductionalize_OneOfThreeSecretsFails(t *testing.T) {
	api := newFakeAPI(t)
	api.fail["secret:B"] = errBoom
	p, _ := newTestProvisioner(api)

	res := p.Productionalize(context.Background(), "acme", "svc", Config{
		Secrets: []Secret{{Name: "A", Value: "1"}, {Name: "B", Value: "2"}, {Name: "C", Value: "3"}},
	})

	assert.Equal(t, 2, res.SecretsCreated)
	require.Len(t, res.SecretErrors, 1)
	assert.Equal(t, SecretResult{Secret: "B", Success: false, Error: "boom"}, res.SecretErrors[0])
	assert.Empty(t, res.SecretsError)
}

func TestProductionalize_MalformedPublicKeyFailsEachSecret(t *testing.T) {
	api := newFakeAPI(t)
	api.publicKey = PublicKey{KeyID: "bad", Key: "bm90LWEta2V5"}
	p, _ := newTestProvisioner(api)

	res := p.Productionalize(context.Background(), "acme", "svc", Config{
		Secrets: []Secret{{Name: "A", Value: "1"}, {Name: "B", Value: "2"}},
	})

	assert.Zero(t, res.SecretsCreated)
	require.Len(t, res.SecretErrors, 2)
	assert.Equal(t, "A", res.SecretErrors[0].Secret)
	assert.Equal(t, "B", res.SecretErrors[1].Secret)
	assert.Contains(t, res.SecretErrors[0].Error, "encrypt secret")
}

func TestProductionalize_SumInvariants(t *testing.T) {
	api := newFakeAPI(t)
	api.teamIDs["ops"] = 1
	api.fail["team:x"] = errBoom
	api.fail["env:qa"] = errBoom
	api.fail["setvar:prod/B"] = errBoom
	api.fail["secret:S2"] = errBoom
	rec := &countingRecorder{}
	logger, _ := logtest.NewNullLogger()
	p := New(api, Options{Logger: logger, Recorder: rec, Concurrency: 2})

	cfg := Config{
		TeamPermissions: []TeamPermission{{TeamSlug: "x", Permission: PermissionPull}, {TeamSlug: "y", Permission: PermissionPull}},
		Environments:    []Environment{{Name: "qa"}, {Name: "prod", Reviewers: []Reviewer{{Type: ReviewerTeam, Slug: "ops"}}}},
		EnvironmentVariables: []VariableGroup{
			{EnvironmentName: "prod", Variables: []Variable{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}, {Name: "c", Value: "3"}}},
		},
		Secrets: []Secret{{Name: "S1", Value: "1"}, {Name: "S2", Value: "2"}, {Name: "S3", Value: "3"}},
	}
	res := p.Productionalize(context.Background(), "acme", "svc", cfg)

	assert.Len(t, res.TeamPermissions, len(cfg.TeamPermissions))
	assert.Equal(t, len(cfg.Environments), len(res.EnvironmentsCreated)+len(res.EnvironmentErrors))
	assert.Equal(t, 3, res.VariablesCreated+len(res.VariableErrors))
	assert.Equal(t, len(cfg.Secrets), res.SecretsCreated+len(res.SecretErrors))

	assert.Equal(t, [2]int{1, 1}, rec.seen[FeatureTeamPermissions])
	assert.Equal(t, [2]int{1, 1}, rec.seen[FeatureEnvironments])
	assert.Equal(t, [2]int{2, 1}, rec.seen[FeatureVariables])
	assert.Equal(t, [2]int{2, 1}, rec.seen[FeatureSecrets])
}

func TestProductionalize_DoesNotMutateConfig(t *testing.T) {
	api := newFakeAPI(t)
	api.topics = []string{"existing"}
	p, _ := newTestProvisioner(api)

	topics := []string{"infra"}
	vars := []Variable{{Name: "myVariableName", Value: "v"}}
	cfg := Config{
		Topics:               topics,
		Environments:         []Environment{{Name: "prod", WaitTimer: intPtr(5)}},
		EnvironmentVariables: []VariableGroup{{EnvironmentName: "prod", Variables: vars}},
	}
	p.Productionalize(context.Background(), "acme", "svc", cfg)

	assert.Equal(t, []string{"infra"}, topics)
	assert.Equal(t, "myVariableName", vars[0].Name)
	assert.Equal(t, 5, *cfg.Environments[0].WaitTimer)
}

func TestResolver_CoalescesAndWrapsErrors(t *testing.T) {
	api := newFakeAPI(t)
	api.teamIDs["ops"] = 99
	r := NewResolver(api, nil)

	id, err := r.ResolveTeam(context.Background(), "acme", "ops")
	require.NoError(t, err)
	assert.Equal(t, int64(99), id)

	_, err = r.ResolveTeam(context.Background(), "acme", "missing")
	var re *ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ReviewerTeam, re.Kind)
	assert.Equal(t, "missing", re.Name)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "failed to resolve team slug 'missing'")

	_, err = r.ResolveUser(context.Background(), "nobody")
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ReviewerUser, re.Kind)
}
