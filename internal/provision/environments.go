package provision

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// createEnvironments creates environments one at a time in input order and
// returns the names that succeeded plus one error record per failure.
func (p *Provisioner) createEnvironments(ctx context.Context, owner, repo string, envs []Environment) ([]string, []EnvironmentResult) {
	p.log.WithFields(logrus.Fields{"owner": owner, "repo": repo, "count": len(envs)}).Info("creating environments")

	created := []string{}
	failed := []EnvironmentResult{}
	for _, env := range envs {
		log := p.log.WithField("environment", env.Name)
		log.Info("creating environment")

		err := p.createEnvironment(ctx, owner, repo, env)
		p.rec.Record(FeatureEnvironments, err == nil)
		if err != nil {
			if isResolutionError(err) {
				log.WithError(err).Error("failed to resolve environment reviewers")
			} else {
				log.WithError(err).Error("failed to create environment")
			}
			failed = append(failed, EnvironmentResult{Environment: env.Name, Success: false, Error: errorMessage(err)})
			continue
		}
		log.Info("created environment")
		created = append(created, env.Name)
	}
	return created, failed
}

func (p *Provisioner) createEnvironment(ctx context.Context, owner, repo string, env Environment) error {
	reviewers, err := p.resolveReviewers(ctx, owner, env.Reviewers)
	if err != nil {
		return err
	}
	return p.api.CreateOrUpdateEnvironment(ctx, owner, repo, env.Name, BuildEnvironmentRequest(env, reviewers))
}

// resolveReviewers looks up all reviewers of one environment concurrently.
// Any failure fails the whole list; the first failure in input order is
// returned.
func (p *Provisioner) resolveReviewers(ctx context.Context, org string, reviewers []Reviewer) ([]EnvironmentReviewer, error) {
	if len(reviewers) == 0 {
		return nil, nil
	}

	resolved := make([]EnvironmentReviewer, len(reviewers))
	errs := make([]error, len(reviewers))
	forEach(ctx, p.limit, reviewers, func(ctx context.Context, i int, rv Reviewer) {
		resolved[i], errs[i] = p.resolver.resolveReviewer(ctx, org, rv)
	})

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

// BuildEnvironmentRequest assembles the create-or-update body. Branch
// deployment is always open to custom policies; the optional settings are
// only sent when env sets them.
func BuildEnvironmentRequest(env Environment, reviewers []EnvironmentReviewer) EnvironmentRequest {
	req := EnvironmentRequest{
		DeploymentBranchPolicy: DeploymentBranchPolicy{
			ProtectedBranches:    false,
			CustomBranchPolicies: true,
		},
	}
	if env.WaitTimer != nil {
		wt := *env.WaitTimer
		req.WaitTimer = &wt
	}
	if len(reviewers) > 0 {
		req.Reviewers = reviewers
	}
	if env.PreventSelfReview != nil {
		ps := *env.PreventSelfReview
		req.PreventSelfReview = &ps
	}
	return req
}

// isResolutionError reports whether err came from reviewer lookup rather
// than from the environment call itself.
func isResolutionError(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}
