package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"foundry/internal/provision"
)

// ParseTeamPermissions parses a JSON array of {teamSlug, permission} objects.
// Empty input and "[]" yield no permissions.
func ParseTeamPermissions(input string) ([]provision.TeamPermission, error) {
	items, err := decodeArray(input, "team permissions")
	if err != nil || items == nil {
		return nil, wrapParse("team permissions", err)
	}

	out := make([]provision.TeamPermission, 0, len(items))
	for i, item := range items {
		obj, _ := item.(map[string]any)
		slug, ok := stringField(obj, "teamSlug")
		if !ok {
			return nil, wrapParse("team permissions", fmt.Errorf("team permission at index %d missing valid teamSlug", i))
		}
		raw, ok := stringField(obj, "permission")
		if !ok {
			return nil, wrapParse("team permissions", fmt.Errorf("team permission at index %d missing valid permission", i))
		}
		perm, err := parsePermission(i, raw)
		if err != nil {
			return nil, wrapParse("team permissions", err)
		}
		out = append(out, provision.TeamPermission{TeamSlug: slug, Permission: perm})
	}
	return out, nil
}

// ParseTopics accepts a JSON array of strings or a comma-separated list.
// Blank entries are dropped. Input that looks like JSON but does not parse is
// treated as a comma-separated list.
func ParseTopics(input string) []string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var arr []any
		if err := json.Unmarshal([]byte(trimmed), &arr); err == nil {
			var out []string
			for _, v := range arr {
				if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
					out = append(out, s)
				}
			}
			return out
		}
	}
	var out []string
	for _, part := range strings.Split(trimmed, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseEnvironments parses a JSON array of environment definitions.
func ParseEnvironments(input string) ([]provision.Environment, error) {
	items, err := decodeArray(input, "environments")
	if err != nil || items == nil {
		return nil, wrapParse("environments", err)
	}

	out := make([]provision.Environment, 0, len(items))
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		obj, _ := item.(map[string]any)
		name, ok := stringField(obj, "name")
		if !ok {
			return nil, wrapParse("environments", fmt.Errorf("environment at index %d missing valid name", i))
		}
		if seen[name] {
			return nil, wrapParse("environments", fmt.Errorf("environment %s is defined more than once", name))
		}
		seen[name] = true
		env := provision.Environment{Name: name}

		if raw, present := obj["waitTimer"]; present {
			n, ok := raw.(float64)
			if !ok || n < 0 || n != math.Trunc(n) {
				return nil, wrapParse("environments", fmt.Errorf("environment %s has invalid waitTimer (must be a non-negative number)", name))
			}
			wt := int(n)
			env.WaitTimer = &wt
		}

		if raw, present := obj["reviewers"]; present {
			list, ok := raw.([]any)
			if !ok {
				return nil, wrapParse("environments", fmt.Errorf("environment %s reviewers must be an array", name))
			}
			for r, rv := range list {
				rev, ok := rv.(map[string]any)
				if !ok {
					return nil, wrapParse("environments", fmt.Errorf("environment %s reviewer at index %d must be an object", name, r))
				}
				typ, _ := rev["type"].(string)
				if typ != string(provision.ReviewerUser) && typ != string(provision.ReviewerTeam) {
					return nil, wrapParse("environments", fmt.Errorf("environment %s reviewer at index %d has invalid type (must be 'User' or 'Team')", name, r))
				}
				slug, ok := stringField(rev, "slug")
				if !ok {
					return nil, wrapParse("environments", fmt.Errorf("environment %s reviewer at index %d missing valid slug", name, r))
				}
				env.Reviewers = append(env.Reviewers, provision.Reviewer{Type: provision.ReviewerType(typ), Slug: slug})
			}
		}

		if raw, present := obj["preventSelfReview"]; present {
			v := truthy(raw)
			env.PreventSelfReview = &v
		}
		out = append(out, env)
	}
	return out, nil
}

// ParseEnvironmentVariables parses a JSON array of
// {environmentName, variables: [{name, value}]} groups.
func ParseEnvironmentVariables(input string) ([]provision.VariableGroup, error) {
	items, err := decodeArray(input, "environment variables")
	if err != nil || items == nil {
		return nil, wrapParse("environment variables", err)
	}

	out := make([]provision.VariableGroup, 0, len(items))
	for i, item := range items {
		obj, _ := item.(map[string]any)
		envName, ok := stringField(obj, "environmentName")
		if !ok {
			return nil, wrapParse("environment variables", fmt.Errorf("environment variables at index %d missing valid environmentName", i))
		}
		list, ok := obj["variables"].([]any)
		if !ok {
			return nil, wrapParse("environment variables", fmt.Errorf("environment variables for %s must contain a variables array", envName))
		}

		group := provision.VariableGroup{EnvironmentName: envName, Variables: make([]provision.Variable, 0, len(list))}
		for v, raw := range list {
			variable, ok := raw.(map[string]any)
			if !ok {
				return nil, wrapParse("environment variables", fmt.Errorf("variable at index %d for environment %s must be an object", v, envName))
			}
			name, ok := stringField(variable, "name")
			if !ok {
				return nil, wrapParse("environment variables", fmt.Errorf("variable at index %d for environment %s missing valid name", v, envName))
			}
			value, ok := variable["value"].(string)
			if !ok {
				return nil, wrapParse("environment variables", fmt.Errorf("variable %s for environment %s missing valid value", name, envName))
			}
			group.Variables = append(group.Variables, provision.Variable{Name: name, Value: value})
		}
		out = append(out, group)
	}
	return out, nil
}

// ParseBranchProtectionPreset validates a preset name. Empty input disables
// branch protection.
func ParseBranchProtectionPreset(input string) (provision.Preset, error) {
	if strings.TrimSpace(input) == "" {
		return "", nil
	}
	preset, err := provision.ParsePreset(input)
	if err != nil {
		return "", fmt.Errorf("invalid branch protection preset: %s (must be one of: strict, moderate, minimal)", input)
	}
	return preset, nil
}

// ParseSecrets parses a JSON array of {name, value} secrets.
func ParseSecrets(input string) ([]provision.Secret, error) {
	items, err := decodeArray(input, "repository secrets")
	if err != nil || items == nil {
		return nil, wrapParse("repository secrets", err)
	}

	out := make([]provision.Secret, 0, len(items))
	for i, item := range items {
		obj, _ := item.(map[string]any)
		name, ok := stringField(obj, "name")
		if !ok {
			return nil, wrapParse("repository secrets", fmt.Errorf("secret at index %d missing valid name", i))
		}
		value, ok := obj["value"].(string)
		if !ok {
			return nil, wrapParse("repository secrets", fmt.Errorf("secret %s missing valid value", name))
		}
		out = append(out, provision.Secret{Name: name, Value: value})
	}
	return out, nil
}

// LoadFile reads a YAML productionalization config. Unknown keys are rejected.
func LoadFile(path string) (provision.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return provision.Config{}, fmt.Errorf("read config file: %w", err)
	}

	var spec provision.Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil && !errors.Is(err, io.EOF) {
		return provision.Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if err := validateSpec(&spec); err != nil {
		return provision.Config{}, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return spec, nil
}

// validateSpec applies the checks of the JSON input parsers to a config that
// was decoded directly, normalizing permissions and the preset in place.
func validateSpec(spec *provision.Config) error {
	for i, tp := range spec.TeamPermissions {
		if strings.TrimSpace(tp.TeamSlug) == "" {
			return fmt.Errorf("team permission at index %d missing valid teamSlug", i)
		}
		perm, err := parsePermission(i, string(tp.Permission))
		if err != nil {
			return err
		}
		spec.TeamPermissions[i].Permission = perm
	}

	seen := make(map[string]bool, len(spec.Environments))
	for i, env := range spec.Environments {
		if strings.TrimSpace(env.Name) == "" {
			return fmt.Errorf("environment at index %d missing valid name", i)
		}
		if seen[env.Name] {
			return fmt.Errorf("environment %s is defined more than once", env.Name)
		}
		seen[env.Name] = true
		if env.WaitTimer != nil && *env.WaitTimer < 0 {
			return fmt.Errorf("environment %s has invalid waitTimer (must be a non-negative number)", env.Name)
		}
		for r, rev := range env.Reviewers {
			if rev.Type != provision.ReviewerUser && rev.Type != provision.ReviewerTeam {
				return fmt.Errorf("environment %s reviewer at index %d has invalid type (must be 'User' or 'Team')", env.Name, r)
			}
			if strings.TrimSpace(rev.Slug) == "" {
				return fmt.Errorf("environment %s reviewer at index %d missing valid slug", env.Name, r)
			}
		}
	}

	for i, group := range spec.EnvironmentVariables {
		if strings.TrimSpace(group.EnvironmentName) == "" {
			return fmt.Errorf("environment variables at index %d missing valid environmentName", i)
		}
		for v, variable := range group.Variables {
			if strings.TrimSpace(variable.Name) == "" {
				return fmt.Errorf("variable at index %d for environment %s missing valid name", v, group.EnvironmentName)
			}
		}
	}

	preset, err := ParseBranchProtectionPreset(string(spec.BranchProtectionPreset))
	if err != nil {
		return err
	}
	spec.BranchProtectionPreset = preset

	for i, s := range spec.Secrets {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("secret at index %d missing valid name", i)
		}
	}
	return nil
}

// decodeArray returns nil, nil for empty input and "[]".
func decodeArray(input, what string) ([]any, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" || trimmed == "[]" {
		return nil, nil
	}
	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return nil, err
	}
	arr, ok := parsed.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an array", what)
	}
	return arr, nil
}

func wrapParse(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed to parse %s: %w", what, err)
}

// stringField reports a non-empty string value under key.
func stringField(obj map[string]any, key string) (string, bool) {
	s, ok := obj[key].(string)
	return s, ok && s != ""
}

// truthy follows the loose boolean coercion action inputs were written for:
// false, 0, "" and null are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case string:
		return t != ""
	default:
		return true
	}
}

// parsePermission wraps provision.ParsePermission with the index of the
// offending entry.
func parsePermission(i int, raw string) (provision.Permission, error) {
	perm, err := provision.ParsePermission(raw)
	if err != nil {
		names := make([]string, 0, len(provision.Permissions()))
		for _, p := range provision.Permissions() {
			names = append(names, string(p))
		}
		return "", fmt.Errorf("team permission at index %d has invalid permission: %s (must be one of: %s)",
			i, raw, strings.Join(names, ", "))
	}
	return perm, nil
}
