package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"foundry/internal/config"
	gh "foundry/internal/github"
	"foundry/internal/logging"
	"foundry/internal/metrics"
	"foundry/internal/output"
	"foundry/internal/provision"
)

// Exit codes.
const (
	exitOK           = 0
	exitFailures     = 1 // productionalization reported failures and --fail-on-error is set
	exitCreateFailed = 2
	exitFatal        = 3 // the run did not start: bad input, no credentials
)

// runEnv carries the process surface so commands can be driven from tests.
type runEnv struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
}

func processEnv() runEnv {
	return runEnv{stdout: os.Stdout, stderr: os.Stderr, getenv: os.Getenv}
}

func (e runEnv) fatalf(format string, args ...any) int {
	fmt.Fprintf(e.stderr, "Error: "+format+"\n", args...)
	return exitFatal
}

// session is everything a command needs once setup succeeded.
type session struct {
	log     *logrus.Entry
	client  *gh.Client
	sinks   *output.Manager
	metrics *metrics.Collector
	started time.Time
}

func newLogger(cfg *config.Config, env runEnv) (*logrus.Entry, error) {
	level, err := logging.ParseLevel(cfg.Runtime.LogLevel, env.getenv(logging.EnvLevel))
	if err != nil {
		return nil, err
	}
	return logging.ForRun(logging.New(env.stderr, level)), nil
}

// resolveToken returns a token for owner (and repo, when it already exists).
// GitHub App credentials take precedence when configured.
func resolveToken(ctx context.Context, cfg *config.Config, owner, repo string, opts ...gh.Option) (string, gh.AuthTokenSource, error) {
	if cfg.Auth.AppID != "" {
		if owner == "" {
			return "", "", errors.New("--org is required when authenticating as a GitHub App")
		}
		creds, err := gh.LoadAppCredentials(cfg.Auth.AppID, cfg.Auth.AppPrivateKey)
		if err != nil {
			return "", "", err
		}
		tok, err := gh.InstallationToken(ctx, creds, owner, repo, opts...)
		if err != nil {
			return "", "", err
		}
		return tok, gh.AuthTokenSourceApp, nil
	}

	tok, source, err := gh.ResolveAuthToken(ctx, cfg.Auth.Token)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve GitHub auth token: %w", err)
	}
	if strings.TrimSpace(tok) == "" {
		return "", "", errors.New("GitHub auth token is required (set GITHUB_TOKEN, pass --token, or run 'gh auth login')")
	}
	return tok, source, nil
}

func buildSinks(cfg *config.Config, env runEnv) (*output.Manager, error) {
	mgr, err := output.NewManager()
	if err != nil {
		return nil, err
	}
	if !cfg.Output.NoConsole {
		if err := mgr.AddSink(output.NewConsoleSink(env.stdout, cfg.Output.ConsoleFormat)); err != nil {
			return nil, err
		}
	}
	if cfg.Output.Out != "" {
		fs, err := output.NewFileSink(cfg.Output.Out)
		if err != nil {
			return nil, err
		}
		if err := mgr.AddSink(fs); err != nil {
			return nil, err
		}
	}
	if cfg.Output.ActionOutputs != "" {
		as, err := output.NewActionSink(cfg.Output.ActionOutputs)
		if err != nil {
			return nil, err
		}
		if err := mgr.AddSink(as); err != nil {
			return nil, err
		}
	}
	return mgr, nil
}

// open performs the setup shared by every mutating command. owner and repo
// scope a GitHub App installation token.
func open(ctx context.Context, cfg *config.Config, env runEnv, owner, repo string) (*session, int) {
	log, err := newLogger(cfg, env)
	if err != nil {
		return nil, env.fatalf("%v", err)
	}

	opts := []gh.Option{gh.WithVerbose(cfg.Runtime.Verbose, env.stderr)}
	if cfg.Auth.APIURL != "" {
		opts = append(opts, gh.WithBaseURL(cfg.Auth.APIURL))
	}

	token, source, err := resolveToken(ctx, cfg, owner, repo, opts...)
	if err != nil {
		return nil, env.fatalf("%v", err)
	}
	log.WithField("source", source).Debug("resolved GitHub credentials")

	client, err := gh.NewClient(ctx, token, append(opts, gh.WithBudget(gh.NewRequestBudget()))...)
	if err != nil {
		return nil, env.fatalf("failed to create GitHub client: %v", err)
	}

	sinks, err := buildSinks(cfg, env)
	if err != nil {
		return nil, env.fatalf("%v", err)
	}

	return &session{
		log:     log,
		client:  client,
		sinks:   sinks,
		metrics: metrics.NewCollector(),
		started: time.Now(),
	}, exitOK
}

// productionalize runs the orchestrator and reports the result to every sink.
func (s *session) productionalize(ctx context.Context, cfg *config.Config, owner, repo string) *provision.Result {
	spec := cfg.Productionalize.Spec
	if spec.IsEmpty() {
		s.log.Warn("productionalization enabled but no features configured")
	}

	p := provision.New(gh.NewRepoAPI(s.client), provision.Options{
		SettleDelay: cfg.Runtime.SettleDelay,
		Concurrency: cfg.Runtime.Concurrency,
		Logger:      s.log,
		Recorder:    s.metrics,
	})
	result := p.Productionalize(ctx, owner, repo, spec)

	s.log.Info("Productionalization complete")
	for _, line := range output.SummaryLines(result) {
		s.log.Info(line)
	}

	if err := s.sinks.Write(output.Productionalized{Owner: owner, Repo: repo, Result: result}); err != nil {
		s.log.WithError(err).Error("failed to write productionalization output")
	}
	return result
}

// finish closes the sinks, writes metrics and maps the outcome to an exit code.
func (s *session) finish(cfg *config.Config, command string, result *provision.Result) int {
	code := exitOK
	if err := s.sinks.Close(); err != nil {
		s.log.WithError(err).Error("failed to write output")
		code = exitFatal
	}

	if cfg.Output.MetricsFile != "" {
		s.metrics.ObserveRun(command, time.Since(s.started))
		if err := s.metrics.WriteToTextfile(cfg.Output.MetricsFile); err != nil {
			s.log.WithError(err).Error("failed to write metrics file")
		}
	}

	if code == exitOK && cfg.Runtime.FailOnError && result.HasFailures() {
		s.log.Error("productionalization reported failures")
		code = exitFailures
	}
	return code
}
