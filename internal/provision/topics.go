package provision

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// MergeTopics returns existing followed by the topics of add it does not
// already contain, in order, with duplicates removed.
func MergeTopics(existing, add []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(add))
	merged := make([]string, 0, len(existing)+len(add))
	for _, list := range [][]string{existing, add} {
		for _, t := range list {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			merged = append(merged, t)
		}
	}
	return merged
}

// mergeTopics reads the current topics and writes back their union with
// topics. A concurrent change made between the two calls is overwritten.
func (p *Provisioner) mergeTopics(ctx context.Context, owner, repo string, topics []string) error {
	log := p.log.WithFields(logrus.Fields{"owner": owner, "repo": repo})
	log.Info("merging topics")

	existing, err := p.api.ListTopics(ctx, owner, repo)
	if err != nil {
		p.rec.Record(FeatureTopics, false)
		return &TopicsError{Op: "list", Err: err}
	}

	merged := MergeTopics(existing, topics)
	log.Infof("merged topics: %s", strings.Join(merged, ", "))

	if err := p.api.ReplaceTopics(ctx, owner, repo, merged); err != nil {
		p.rec.Record(FeatureTopics, false)
		return &TopicsError{Op: "replace", Err: err}
	}
	p.rec.Record(FeatureTopics, true)
	return nil
}
