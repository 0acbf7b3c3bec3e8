package provision

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Resolver turns team slugs and usernames into numeric IDs. Each call is one
// lookup with no caching. Identical lookups that overlap in time share a
// single request.
type Resolver struct {
	api   API
	log   logrus.FieldLogger
	group singleflight.Group
}

func NewResolver(api API, log logrus.FieldLogger) *Resolver {
	if log == nil {
		log = discardLogger()
	}
	return &Resolver{api: api, log: log}
}

// ResolveTeam returns the ID of the team with the given slug in org.
func (r *Resolver) ResolveTeam(ctx context.Context, org, slug string) (int64, error) {
	v, err, _ := r.group.Do("team:"+org+"/"+slug, func() (any, error) {
		r.log.WithField("team", slug).Info("resolving team slug")
		return r.api.GetTeamID(ctx, org, slug)
	})
	if err != nil {
		return 0, &ResolutionError{Kind: ReviewerTeam, Name: slug, Err: err}
	}
	return v.(int64), nil
}

// ResolveUser returns the ID of the user with the given login.
func (r *Resolver) ResolveUser(ctx context.Context, username string) (int64, error) {
	v, err, _ := r.group.Do("user:"+username, func() (any, error) {
		r.log.WithField("user", username).Info("resolving username")
		return r.api.GetUserID(ctx, username)
	})
	if err != nil {
		return 0, &ResolutionError{Kind: ReviewerUser, Name: username, Err: err}
	}
	return v.(int64), nil
}

// resolveReviewer dispatches on the reviewer type. Teams are looked up in
// the repository owner's organization.
func (r *Resolver) resolveReviewer(ctx context.Context, org string, rv Reviewer) (EnvironmentReviewer, error) {
	var (
		id  int64
		err error
	)
	if rv.Type == ReviewerTeam {
		id, err = r.ResolveTeam(ctx, org, rv.Slug)
	} else {
		id, err = r.ResolveUser(ctx, rv.Slug)
	}
	if err != nil {
		return EnvironmentReviewer{}, err
	}
	return EnvironmentReviewer{Type: rv.Type, ID: id}, nil
}
