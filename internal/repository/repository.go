// Package repository creates GitHub repositories: from a template, inside an
// organization, or for the authenticated user.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-github/v68/github"
	"github.com/sirupsen/logrus"

	gh "foundry/internal/github"
)

// DefaultBranch is requested when Input.DefaultBranch is empty.
const DefaultBranch = "main"

type Input struct {
	Name              string
	Description       string
	Private           bool
	Template          string // owner/repo
	Organization      string // empty creates under the authenticated user
	AutoInit          bool
	GitignoreTemplate string
	LicenseTemplate   string
	DefaultBranch     string
}

type Repository struct {
	ID            int64  `json:"id"`
	FullName      string `json:"fullName"`
	HTMLURL       string `json:"htmlUrl"`
	DefaultBranch string `json:"defaultBranch"`
}

// OwnerAndName splits FullName.
func (r Repository) OwnerAndName() (owner, name string) {
	owner, name, _ = strings.Cut(r.FullName, "/")
	return owner, name
}

func fromGitHub(r *github.Repository) Repository {
	return Repository{
		ID:            r.GetID(),
		FullName:      r.GetFullName(),
		HTMLURL:       r.GetHTMLURL(),
		DefaultBranch: r.GetDefaultBranch(),
	}
}

// ParseTemplate splits an owner/repository template reference.
func ParseTemplate(s string) (owner, repo string, err error) {
	if strings.TrimSpace(s) == "" {
		return "", "", errors.New("template repository is required")
	}
	owner, repo, _ = strings.Cut(strings.TrimSpace(s), "/")
	if owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", errors.New("invalid template format, expected owner/repository")
	}
	return owner, repo, nil
}

type Service struct {
	client *github.Client
	log    logrus.FieldLogger
}

func NewService(client *gh.Client, log logrus.FieldLogger) *Service {
	return &Service{client: client.Client, log: log}
}

// Create makes the repository described by in and then moves its default
// branch to in.DefaultBranch. Failing to move the branch is logged, not
// returned.
func (s *Service) Create(ctx context.Context, in Input) (Repository, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Repository{}, errors.New("repository name is required")
	}
	if in.DefaultBranch == "" {
		in.DefaultBranch = DefaultBranch
	}

	var (
		repo Repository
		err  error
	)
	if in.Template != "" {
		repo, err = s.createFromTemplate(ctx, in)
	} else {
		repo, err = s.createNew(ctx, in)
	}
	if err != nil {
		return Repository{}, fmt.Errorf("failed to create repository: %w", err)
	}

	if in.DefaultBranch != repo.DefaultBranch {
		owner, name := repo.OwnerAndName()
		if branch, ok := s.updateDefaultBranch(ctx, owner, name, in.DefaultBranch); ok {
			repo.DefaultBranch = branch
		}
	}
	return repo, nil
}

func (s *Service) createFromTemplate(ctx context.Context, in Input) (Repository, error) {
	tOwner, tRepo, err := ParseTemplate(in.Template)
	if err != nil {
		return Repository{}, err
	}
	s.log.WithField("template", tOwner+"/"+tRepo).Info("creating repository from template")

	req := &github.TemplateRepoRequest{
		Name:               github.Ptr(in.Name),
		Description:        github.Ptr(in.Description),
		Private:            github.Ptr(in.Private),
		IncludeAllBranches: github.Ptr(false),
	}
	if in.Organization != "" {
		req.Owner = github.Ptr(in.Organization)
	}

	created, _, err := s.client.Repositories.CreateFromTemplate(ctx, tOwner, tRepo, req)
	if err != nil {
		return Repository{}, fmt.Errorf("from template %s/%s: %w", tOwner, tRepo, gh.WrapError("create from template", err))
	}
	repo := fromGitHub(created)

	// The template endpoint has no merge settings; apply them afterwards.
	owner, name := repo.OwnerAndName()
	if _, _, err := s.client.Repositories.Edit(ctx, owner, name, &github.Repository{DeleteBranchOnMerge: github.Ptr(true)}); err != nil {
		s.log.WithError(err).Warn("could not enable delete branch on merge")
	}
	return repo, nil
}

func (s *Service) createNew(ctx context.Context, in Input) (Repository, error) {
	s.log.WithField("organization", in.Organization).Info("creating new repository")

	req := &github.Repository{
		Name:                github.Ptr(in.Name),
		Description:         github.Ptr(in.Description),
		Private:             github.Ptr(in.Private),
		AutoInit:            github.Ptr(in.AutoInit),
		DeleteBranchOnMerge: github.Ptr(true),
	}
	if in.GitignoreTemplate != "" {
		req.GitignoreTemplate = github.Ptr(in.GitignoreTemplate)
	}
	if in.LicenseTemplate != "" {
		req.LicenseTemplate = github.Ptr(in.LicenseTemplate)
	}
	if in.Organization != "" {
		req.AllowSquashMerge = github.Ptr(true)
		req.AllowRebaseMerge = github.Ptr(true)
	}

	// An empty org creates the repository for the authenticated user.
	created, _, err := s.client.Repositories.Create(ctx, in.Organization, req)
	if err != nil {
		return Repository{}, gh.WrapError("create repository", err)
	}
	return fromGitHub(created), nil
}

// updateDefaultBranch renames the current default branch to branch, falling
// back to switching the default_branch setting. It reports the resulting
// default branch and whether anything changed.
func (s *Service) updateDefaultBranch(ctx context.Context, owner, name, branch string) (string, bool) {
	log := s.log.WithFields(logrus.Fields{"repo": owner + "/" + name, "branch": branch})
	log.Info("updating default branch")

	current, _, err := s.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		log.WithError(err).Warn("failed to update default branch")
		return "", false
	}
	from := current.GetDefaultBranch()
	if from == branch {
		log.Info("default branch already set")
		return branch, true
	}

	_, _, err = s.client.Repositories.RenameBranch(ctx, owner, name, from, branch)
	if err == nil {
		log.WithField("from", from).Info("renamed default branch")
		return branch, true
	}
	log.WithError(err).Warn("could not rename branch, updating default branch setting instead")

	if _, _, err := s.client.Repositories.Edit(ctx, owner, name, &github.Repository{DefaultBranch: github.Ptr(branch)}); err != nil {
		log.WithError(err).Warn("failed to update default branch")
		return "", false
	}
	log.Info("updated default branch setting")
	return branch, true
}

// Get looks up an existing repository.
func (s *Service) Get(ctx context.Context, owner, name string) (Repository, error) {
	r, _, err := s.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return Repository{}, fmt.Errorf("get repository %s/%s: %w", owner, name, gh.WrapError("get repository", err))
	}
	return fromGitHub(r), nil
}
