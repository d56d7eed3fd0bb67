package core

import (
	"context"

	"go.uber.org/zap"
)

// Classification is the read-only verdict for one message
type Classification struct {
	Sender    string              `json:"sender" yaml:"sender"`
	Subject   string              `json:"subject" yaml:"subject"`
	Matched   bool                `json:"matched" yaml:"matched"`
	Excluded  bool                `json:"excluded" yaml:"excluded"`
	Label     string              `json:"label,omitempty" yaml:"label,omitempty"`
	RuleKey   RuleKey             `json:"ruleKey,omitempty" yaml:"ruleKey,omitempty"`
	Suggested *CategorySuggestion `json:"suggested,omitempty" yaml:"suggested,omitempty"`
}

// Classify resolves a message against freshly loaded rules. When nothing
// matches and a suggester is configured it asks for a suggestion. Neither
// rules nor stats are modified.
func (s *RuleService) Classify(ctx context.Context, email *Email) (*Classification, error) {
	snapshot, err := s.store.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	sender := ExtractAddress(email.From)
	c := &Classification{Sender: sender, Subject: email.Subject}
	if m, ok := snapshot.resolve(sender, email.Subject); ok {
		c.Matched = true
		c.Label = m.Label
		c.RuleKey = m.RuleKey
		return c, nil
	}
	c.Excluded = snapshot.exclusions.Excludes(sender)

	if s.suggester != nil && !c.Excluded {
		pick, err := s.SuggestFor(ctx, email)
		if err != nil {
			s.logger.Warn("Suggester failed", zap.String("sender", sender), zap.Error(err))
		} else {
			c.Suggested = pick
		}
	}
	return c, nil
}
