package provision

import (
	"context"

	"github.com/sirupsen/logrus"
)

// applyTeamPermissions grants every team its permission concurrently. The
// returned slice has one entry per input, in input order.
func (p *Provisioner) applyTeamPermissions(ctx context.Context, owner, repo string, teams []TeamPermission) []TeamPermissionResult {
	p.log.WithFields(logrus.Fields{"owner": owner, "repo": repo, "count": len(teams)}).Info("adding team permissions")

	results := make([]TeamPermissionResult, len(teams))
	forEach(ctx, p.limit, teams, func(ctx context.Context, i int, team TeamPermission) {
		log := p.log.WithFields(logrus.Fields{"team": team.TeamSlug, "permission": team.Permission})

		// Teams live in the organization that owns the repository.
		err := p.api.AddTeamRepoPermission(ctx, owner, team.TeamSlug, owner, repo, team.Permission)
		p.rec.Record(FeatureTeamPermissions, err == nil)
		if err != nil {
			log.WithError(err).Error("failed to add team permission")
			results[i] = TeamPermissionResult{TeamSlug: team.TeamSlug, Success: false, Error: errorMessage(err)}
			return
		}
		log.Info("added team permission")
		results[i] = TeamPermissionResult{TeamSlug: team.TeamSlug, Success: true}
	})
	return results
}
