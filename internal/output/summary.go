package output

import (
	"fmt"

	"foundry/internal/provision"
)

// SummaryLines is the short per-feature tally logged after productionalization.
func SummaryLines(r *provision.Result) []string {
	if r == nil {
		return nil
	}
	return []string{
		fmt.Sprintf("- Team permissions: %d/%d successful", r.TeamPermissionsSucceeded(), len(r.TeamPermissions)),
		fmt.Sprintf("- Topics added: %t", r.TopicsAdded),
		fmt.Sprintf("- Environments created: %d", len(r.EnvironmentsCreated)),
		fmt.Sprintf("- Variables created: %d", r.VariablesCreated),
		fmt.Sprintf("- Branch protection created: %t", r.BranchProtectionCreated),
		fmt.Sprintf("- Secrets created: %d", r.SecretsCreated),
	}
}

// FailureLines lists every failure recorded in r, in feature order.
func FailureLines(r *provision.Result) []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, tp := range r.TeamPermissions {
		if !tp.Success {
			out = append(out, fmt.Sprintf("team %s: %s", tp.TeamSlug, tp.Error))
		}
	}
	if r.TopicsError != "" {
		out = append(out, "topics: "+r.TopicsError)
	}
	if r.BranchProtectionError != "" {
		out = append(out, "branch protection: "+r.BranchProtectionError)
	}
	for _, e := range r.EnvironmentErrors {
		out = append(out, fmt.Sprintf("environment %s: %s", e.Environment, e.Error))
	}
	for _, v := range r.VariableErrors {
		out = append(out, fmt.Sprintf("variable %s in %s: %s", v.Variable, v.Environment, v.Error))
	}
	if r.SecretsError != "" {
		out = append(out, "secrets: "+r.SecretsError)
	}
	for _, s := range r.SecretErrors {
		out = append(out, fmt.Sprintf("secret %s: %s", s.Secret, s.Error))
	}
	return out
}
