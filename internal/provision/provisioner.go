// Package provision drives a repository to a declared production-ready state:
// team permissions, topics, a branch protection ruleset, deployment
// environments with their variables, and encrypted secrets.
//
// Features are isolated from each other. A failing item is recorded in the
// Result and the run carries on with everything else.
package provision

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultSettleDelay gives GitHub time to make a freshly created repository
// visible to every endpoint before the first call.
const DefaultSettleDelay = 2 * time.Second

// DefaultConcurrency bounds per-feature fan-out when Options.Concurrency is unset.
const DefaultConcurrency = 5

// Feature names one productionalization feature in logs and metrics.
type Feature string

const (
	FeatureTeamPermissions  Feature = "team_permissions"
	FeatureTopics           Feature = "topics"
	FeatureBranchProtection Feature = "branch_protection"
	FeatureEnvironments     Feature = "environments"
	FeatureVariables        Feature = "environment_variables"
	FeatureSecrets          Feature = "secrets"
)

// Recorder observes the outcome of every attempted item.
type Recorder interface {
	Record(feature Feature, success bool)
}

type nopRecorder struct{}

func (nopRecorder) Record(Feature, bool) {}

type Options struct {
	// SettleDelay is waited before the first call. Zero disables it.
	SettleDelay time.Duration
	// Concurrency bounds in-flight calls within one feature.
	Concurrency int
	Logger      logrus.FieldLogger
	Recorder    Recorder
}

type Provisioner struct {
	api      API
	resolver *Resolver
	log      logrus.FieldLogger
	rec      Recorder
	settle   time.Duration
	limit    int
}

func New(api API, opts Options) *Provisioner {
	log := opts.Logger
	if log == nil {
		log = discardLogger()
	}
	rec := opts.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	return &Provisioner{
		api:      api,
		resolver: NewResolver(api, log),
		log:      log,
		rec:      rec,
		settle:   opts.SettleDelay,
		limit:    limit,
	}
}

// Productionalize applies cfg to owner/repo and reports per-item outcomes.
//
// Phase 1 runs team permissions, topics and branch protection concurrently.
// Phase 2 creates environments one at a time, then sets variables on the
// environments that were created. Phase 3 provisions secrets. Feature
// failures never abort the run; they are written into the Result.
func (p *Provisioner) Productionalize(ctx context.Context, owner, repo string, cfg Config) *Result {
	log := p.log.WithFields(logrus.Fields{"owner": owner, "repo": repo})
	log.Info("starting productionalization")

	p.wait(ctx)

	result := newResult()

	p.phaseOne(ctx, log, owner, repo, cfg, result)

	if len(cfg.Environments) > 0 {
		created, envErrs := p.createEnvironments(ctx, owner, repo, cfg.Environments)
		result.EnvironmentsCreated = created
		result.EnvironmentErrors = envErrs

		if len(cfg.EnvironmentVariables) > 0 {
			n, varErrs := p.setEnvironmentVariables(ctx, owner, repo, cfg.EnvironmentVariables, created)
			result.VariablesCreated = n
			result.VariableErrors = varErrs
		}
	}

	if len(cfg.Secrets) > 0 {
		n, secretErrs, err := p.provisionSecrets(ctx, owner, repo, cfg.Secrets)
		if err != nil {
			result.SecretsError = err.Error()
			log.WithError(err).Error("secrets creation failed")
		} else {
			result.SecretsCreated = n
			result.SecretErrors = secretErrs
		}
	}

	log.Info("productionalization complete")
	return result
}

// phaseOne runs the three independent features concurrently. Each writes to
// its own locals; the result is filled in after all of them finish.
func (p *Provisioner) phaseOne(ctx context.Context, log logrus.FieldLogger, owner, repo string, cfg Config, result *Result) {
	var (
		teams    []TeamPermissionResult
		topicErr error
		ruleErr  error
	)

	var tasks []func(context.Context)
	if len(cfg.TeamPermissions) > 0 {
		tasks = append(tasks, func(ctx context.Context) {
			teams = p.applyTeamPermissions(ctx, owner, repo, cfg.TeamPermissions)
		})
	}
	if len(cfg.Topics) > 0 {
		tasks = append(tasks, func(ctx context.Context) {
			topicErr = p.mergeTopics(ctx, owner, repo, cfg.Topics)
		})
	}
	if cfg.BranchProtectionPreset != "" {
		tasks = append(tasks, func(ctx context.Context) {
			ruleErr = p.applyBranchProtection(ctx, owner, repo, cfg.BranchProtectionPreset, cfg.BranchProtectionTargetBranch)
		})
	}

	forEach(ctx, 0, tasks, func(ctx context.Context, _ int, task func(context.Context)) {
		task(ctx)
	})

	if teams != nil {
		result.TeamPermissions = teams
	}
	if len(cfg.Topics) > 0 {
		if topicErr != nil {
			result.TopicsError = topicErr.Error()
			log.WithError(topicErr).Error("topics merge failed")
		} else {
			result.TopicsAdded = true
		}
	}
	if cfg.BranchProtectionPreset != "" {
		if ruleErr != nil {
			result.BranchProtectionError = ruleErr.Error()
			log.WithError(ruleErr).Error("branch protection failed")
		} else {
			result.BranchProtectionCreated = true
		}
	}
}

func (p *Provisioner) wait(ctx context.Context) {
	if p.settle <= 0 {
		return
	}
	timer := time.NewTimer(p.settle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
