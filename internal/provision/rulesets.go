package provision

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// PresetRules is the pull request policy a preset enforces.
type PresetRules struct {
	RequiredApprovals       int
	DismissStaleReviews     bool
	RequireLastPushApproval bool
	RequireThreadResolution bool
}

var presetRules = map[Preset]PresetRules{
	PresetStrict: {
		RequiredApprovals:       2,
		DismissStaleReviews:     true,
		RequireLastPushApproval: true,
		RequireThreadResolution: true,
	},
	PresetModerate: {
		RequiredApprovals:       1,
		DismissStaleReviews:     true,
		RequireLastPushApproval: true,
		RequireThreadResolution: true,
	},
	PresetMinimal: {
		RequiredApprovals: 1,
	},
}

// RulesForPreset looks up the policy of a preset.
func RulesForPreset(preset Preset) (PresetRules, bool) {
	r, ok := presetRules[preset]
	return r, ok
}

// RulesetName is the display name of the ruleset a preset installs.
func RulesetName(preset Preset) string {
	return fmt.Sprintf("Branch protection rules (%s)", preset)
}

// RulesetForPreset builds the active branch ruleset for preset, scoped to
// refs/heads/<targetBranch>. An empty targetBranch means DefaultTargetBranch.
// Force pushes are always blocked and code owner review is never required.
func RulesetForPreset(preset Preset, targetBranch string) (Ruleset, error) {
	rules, ok := RulesForPreset(preset)
	if !ok {
		return Ruleset{}, fmt.Errorf("unknown branch protection preset %q", preset)
	}
	if targetBranch == "" {
		targetBranch = DefaultTargetBranch
	}

	return Ruleset{
		Name:        RulesetName(preset),
		Target:      "branch",
		Enforcement: "active",
		Conditions: RulesetConds{
			RefName: RefNameCondition{
				Include: []string{"refs/heads/" + targetBranch},
				Exclude: []string{},
			},
		},
		Rules: []RulesetRule{
			{
				Type: "pull_request",
				Parameters: &PullRequestParameters{
					DismissStaleReviewsOnPush:      rules.DismissStaleReviews,
					RequireCodeOwnerReview:         false,
					RequireLastPushApproval:        rules.RequireLastPushApproval,
					RequiredApprovingReviewCount:   rules.RequiredApprovals,
					RequiredReviewThreadResolution: rules.RequireThreadResolution,
				},
			},
			{Type: "non_fast_forward"},
		},
	}, nil
}

func (p *Provisioner) applyBranchProtection(ctx context.Context, owner, repo string, preset Preset, targetBranch string) error {
	if targetBranch == "" {
		targetBranch = DefaultTargetBranch
	}
	log := p.log.WithFields(logrus.Fields{"owner": owner, "repo": repo, "preset": preset, "branch": targetBranch})
	log.Info("creating branch protection")

	ruleset, err := RulesetForPreset(preset, targetBranch)
	if err == nil {
		err = p.api.CreateRuleset(ctx, owner, repo, ruleset)
	}
	p.rec.Record(FeatureBranchProtection, err == nil)
	if err != nil {
		return &BranchProtectionError{Preset: preset, Branch: targetBranch, Err: err}
	}

	log.Infof("created branch protection: %s", ruleset.Name)
	return nil
}
