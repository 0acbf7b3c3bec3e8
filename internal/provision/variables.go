package provision

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"foundry/internal/casing"
)

// setEnvironmentVariables writes every variable group whose environment is
// in created. Groups for other environments are skipped without an error
// record. Groups run in input order; variables of one group run
// concurrently.
func (p *Provisioner) setEnvironmentVariables(ctx context.Context, owner, repo string, groups []VariableGroup, created []string) (int, []VariableResult) {
	p.log.WithFields(logrus.Fields{"owner": owner, "repo": repo}).Info("setting environment variables")

	count := 0
	failed := []VariableResult{}
	for _, group := range groups {
		if !slices.Contains(created, group.EnvironmentName) {
			p.log.WithField("environment", group.EnvironmentName).Info("skipping variables for environment that was not created")
			continue
		}

		errs := make([]error, len(group.Variables))
		forEach(ctx, p.limit, sameNameRuns(group.Variables), func(ctx context.Context, _ int, run []int) {
			for _, i := range run {
				errs[i] = p.setVariable(ctx, owner, repo, group.EnvironmentName, group.Variables[i])
			}
		})

		for i, err := range errs {
			v := group.Variables[i]
			p.rec.Record(FeatureVariables, err == nil)
			if err != nil {
				failed = append(failed, VariableResult{
					Environment: group.EnvironmentName,
					Variable:    v.Name,
					Success:     false,
					Error:       errorMessage(err),
				})
				continue
			}
			count++
		}
	}
	return count, failed
}

// sameNameRuns groups variable indexes by normalized name, in order of first
// appearance. Variables sharing a name are written one after another in
// input order, so the last value wins.
func sameNameRuns(vars []Variable) [][]int {
	var runs [][]int
	byName := make(map[string]int, len(vars))
	for i, v := range vars {
		name := casing.UpperSnake(v.Name)
		if r, ok := byName[name]; ok {
			runs[r] = append(runs[r], i)
			continue
		}
		byName[name] = len(runs)
		runs = append(runs, []int{i})
	}
	return runs
}

// setVariable normalizes the name, probes for an existing value and then
// updates or creates. Only a not-found probe counts as absent; other probe
// failures are returned without attempting a write.
func (p *Provisioner) setVariable(ctx context.Context, owner, repo, environment string, v Variable) error {
	name := casing.UpperSnake(v.Name)
	log := p.log.WithFields(logrus.Fields{"environment": environment, "variable": name})
	log.Info("setting variable")

	normalized := Variable{Name: name, Value: v.Value}

	_, err := p.api.GetEnvironmentVariable(ctx, owner, repo, environment, name)
	switch {
	case err == nil:
		err = p.api.UpdateEnvironmentVariable(ctx, owner, repo, environment, normalized)
	case errors.Is(err, ErrNotFound):
		err = p.api.CreateEnvironmentVariable(ctx, owner, repo, environment, normalized)
	default:
		err = fmt.Errorf("check existing variable: %w", err)
	}
	if err != nil {
		log.WithError(err).Errorf("failed to set variable %s", v.Name)
		return err
	}
	log.Info("set variable")
	return nil
}
