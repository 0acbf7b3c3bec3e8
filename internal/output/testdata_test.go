package output

import (
	"foundry/internal/provision"
	"foundry/internal/repository"
)

func sampleRepository() repository.Repository {
	return repository.Repository{
		ID:            4242,
		FullName:      "acme/svc",
		HTMLURL:       "https://github.com/acme/svc",
		DefaultBranch: "main",
	}
}

func sampleResult() *provision.Result {
	return &provision.Result{
		TeamPermissions: []provision.TeamPermissionResult{
			{TeamSlug: "core", Success: true},
			{TeamSlug: "ghost", Success: false, Error: "failed to resolve team slug 'ghost': 404 Not Found: Not Found"},
		},
		TopicsAdded:             true,
		EnvironmentsCreated:     []string{"staging"},
		EnvironmentErrors:       []provision.EnvironmentResult{{Environment: "production", Error: "403 Forbidden: Resource not accessible by integration"}},
		VariablesCreated:        2,
		VariableErrors:          []provision.VariableResult{},
		BranchProtectionCreated: true,
		SecretsCreated:          1,
		SecretErrors:            []provision.SecretResult{{Secret: "DEPLOY_KEY", Error: "encrypt secret: seal: boom"}},
	}
}
