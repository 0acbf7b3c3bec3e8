package output

import (
	"foundry/internal/provision"
	"foundry/internal/repository"
)

// RepositoryCreated is written once the repository exists.
type RepositoryCreated struct {
	Repository repository.Repository
}

// Productionalized is written after a productionalization run.
type Productionalized struct {
	Owner  string
	Repo   string
	Result *provision.Result
}

// Report is the aggregate JSON document built from the events of one run.
type Report struct {
	Repository          *repository.Repository `json:"repository,omitempty"`
	Owner               string                 `json:"owner,omitempty"`
	Repo                string                 `json:"repo,omitempty"`
	Productionalization *provision.Result      `json:"productionalization,omitempty"`
}

// apply folds v into the report. It reports whether v was a known event.
func (r *Report) apply(v any) bool {
	switch t := v.(type) {
	case RepositoryCreated:
		repo := t.Repository
		r.Repository = &repo
		return true
	case Productionalized:
		r.Owner, r.Repo = t.Owner, t.Repo
		r.Productionalization = t.Result
		return true
	default:
		return false
	}
}
