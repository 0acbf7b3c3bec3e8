package provision

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/nacl/box"
)

// fakeAPI is an in-memory GitHub. Failures are injected per call site by
// name; everything else succeeds and is recorded.
type fakeAPI struct {
	mu sync.Mutex

	teamIDs map[string]int64
	userIDs map[string]int64

	topics     []string
	publicKey  PublicKey
	privateKey *[32]byte
	pubKeyRaw  *[32]byte

	// failures keyed by "<call>:<name>", e.g. "team:core", "env:prod",
	// "getvar:prod/FOO", "secret:TOKEN", "topics:list", "pubkey".
	fail map[string]error

	teamGrants    map[string]Permission
	rulesets      []Ruleset
	envRequests   map[string]EnvironmentRequest
	envOrder      []string
	variables     map[string]map[string]string
	createdVars   []string
	updatedVars   []string
	secrets       map[string]EncryptedSecret
	teamLookups   int
	userLookups   int
	publicKeyGets int
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	pub, priv, err := box.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return &fakeAPI{
		teamIDs:     map[string]int64{},
		userIDs:     map[string]int64{},
		publicKey:   PublicKey{KeyID: "key-1", Key: base64.StdEncoding.EncodeToString(pub[:])},
		privateKey:  priv,
		pubKeyRaw:   pub,
		fail:        map[string]error{},
		teamGrants:  map[string]Permission{},
		envRequests: map[string]EnvironmentRequest{},
		variables:   map[string]map[string]string{},
		secrets:     map[string]EncryptedSecret{},
	}
}

func (f *fakeAPI) failure(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail[key]
}

func (f *fakeAPI) AddTeamRepoPermission(_ context.Context, org, teamSlug, owner, repo string, permission Permission) error {
	if err := f.failure("team:" + teamSlug); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teamGrants[teamSlug] = permission
	return nil
}

func (f *fakeAPI) ListTopics(context.Context, string, string) ([]string, error) {
	if err := f.failure("topics:list"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.topics...), nil
}

func (f *fakeAPI) ReplaceTopics(_ context.Context, _, _ string, topics []string) error {
	if err := f.failure("topics:replace"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append([]string(nil), topics...)
	return nil
}

func (f *fakeAPI) CreateRuleset(_ context.Context, _, _ string, ruleset Ruleset) error {
	if err := f.failure("ruleset"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rulesets = append(f.rulesets, ruleset)
	return nil
}

func (f *fakeAPI) CreateOrUpdateEnvironment(_ context.Context, _, _, name string, req EnvironmentRequest) error {
	if err := f.failure("env:" + name); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.envRequests[name] = req
	f.envOrder = append(f.envOrder, name)
	if f.variables[name] == nil {
		f.variables[name] = map[string]string{}
	}
	return nil
}

func (f *fakeAPI) GetEnvironmentVariable(_ context.Context, _, _, environment, name string) (Variable, error) {
	if err := f.failure("getvar:" + environment + "/" + name); err != nil {
		return Variable{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	val, ok := f.variables[environment][name]
	if !ok {
		return Variable{}, fmt.Errorf("variable %s: %w", name, ErrNotFound)
	}
	return Variable{Name: name, Value: val}, nil
}

func (f *fakeAPI) CreateEnvironmentVariable(_ context.Context, _, _, environment string, v Variable) error {
	if err := f.failure("setvar:" + environment + "/" + v.Name); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.variables[environment][v.Name] = v.Value
	f.createdVars = append(f.createdVars, environment+"/"+v.Name)
	return nil
}

func (f *fakeAPI) UpdateEnvironmentVariable(_ context.Context, _, _, environment string, v Variable) error {
	if err := f.failure("setvar:" + environment + "/" + v.Name); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.variables[environment][v.Name] = v.Value
	f.updatedVars = append(f.updatedVars, environment+"/"+v.Name)
	return nil
}

func (f *fakeAPI) GetRepoPublicKey(context.Context, string, string) (PublicKey, error) {
	f.mu.Lock()
	f.publicKeyGets++
	f.mu.Unlock()
	if err := f.failure("pubkey"); err != nil {
		return PublicKey{}, err
	}
	return f.publicKey, nil
}

func (f *fakeAPI) CreateOrUpdateRepoSecret(_ context.Context, _, _ string, secret EncryptedSecret) error {
	if err := f.failure("secret:" + secret.Name); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.secrets[secret.Name] = secret
	return nil
}

func (f *fakeAPI) GetTeamID(_ context.Context, _, slug string) (int64, error) {
	f.mu.Lock()
	f.teamLookups++
	id, ok := f.teamIDs[slug]
	f.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("team %s: %w", slug, ErrNotFound)
	}
	return id, nil
}

func (f *fakeAPI) GetUserID(_ context.Context, username string) (int64, error) {
	f.mu.Lock()
	f.userLookups++
	id, ok := f.userIDs[username]
	f.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	return id, nil
}

// decrypt opens a secret uploaded to the fake.
func (f *fakeAPI) decrypt(t *testing.T, name string) string {
	t.Helper()
	f.mu.Lock()
	s, ok := f.secrets[name]
	f.mu.Unlock()
	require.True(t, ok, "secret %s was not uploaded", name)

	raw, err := base64.StdEncoding.DecodeString(s.EncryptedValue)
	require.NoError(t, err)
	plain, ok := box.OpenAnonymous(nil, raw, f.pubKeyRaw, f.privateKey)
	require.True(t, ok, "secret %s did not decrypt", name)
	return string(plain)
}

var errBoom = errors.New("boom")
