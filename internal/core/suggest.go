package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ErrNoSuggester is returned when category suggestions are not configured
var ErrNoSuggester = errors.New("no category suggester configured")

// Suggestion proposes an exact-sender rule for an unmatched sender
type Suggestion struct {
	Sender      string  `json:"sender" yaml:"sender"`
	Subject     string  `json:"subject" yaml:"subject"`
	Category    string  `json:"category" yaml:"category"`
	Confidence  float64 `json:"confidence" yaml:"confidence"`
	Explanation string  `json:"explanation" yaml:"explanation"`
	Model       string  `json:"model,omitempty" yaml:"model,omitempty"`
}

// Suggest asks the suggester for a category for each inbound sender the
// rules leave unmatched. Senders are considered once. Picks below the
// configured confidence or outside the known categories are dropped.
// A positive limit caps the number of suggestions.
func (s *RuleService) Suggest(ctx context.Context, limit int) ([]Suggestion, error) {
	if s.suggester == nil {
		return nil, ErrNoSuggester
	}
	if s.provider == nil {
		return nil, ErrNoProvider
	}

	categories, err := s.categoryNames(ctx)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, nil
	}
	snapshot, err := s.store.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.PendingInbound(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var suggestions []Suggestion
	for _, ref := range pending {
		if limit > 0 && len(suggestions) >= limit {
			break
		}
		raw, err := s.provider.GetSender(ctx, ref)
		if err != nil {
			s.logger.Warn("Failed to read sender", zap.String("message", ref.ID), zap.Error(err))
			continue
		}
		sender := ExtractAddress(raw)
		key := strings.ToLower(sender)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		subject, _ := s.provider.GetSubject(ctx, ref)
		if _, matched := snapshot.resolve(sender, subject); matched || snapshot.exclusions.Excludes(sender) {
			continue
		}

		pick, err := s.suggest(ctx, &Email{From: sender, Subject: subject}, categories)
		if err != nil {
			s.logger.Warn("Suggester failed", zap.String("sender", sender), zap.Error(err))
			continue
		}
		if pick == nil {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Sender:      key,
			Subject:     subject,
			Category:    pick.Category,
			Confidence:  pick.Confidence,
			Explanation: pick.Explanation,
			Model:       pick.ModelUsed,
		})
	}

	s.logger.Info("Suggestions computed",
		zap.Int("inbound", len(pending)),
		zap.Int("suggestions", len(suggestions)))
	return suggestions, nil
}

// SuggestFor asks for a category for one message. A nil suggestion means
// there is no confident pick.
func (s *RuleService) SuggestFor(ctx context.Context, email *Email) (*CategorySuggestion, error) {
	if s.suggester == nil {
		return nil, ErrNoSuggester
	}
	categories, err := s.categoryNames(ctx)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, nil
	}
	return s.suggest(ctx, email, categories)
}

// ApplySuggestions turns suggestions into exact-sender rules and files the
// pending messages they cover.
func (s *RuleService) ApplySuggestions(ctx context.Context, suggestions []Suggestion) ([]*AddResult, error) {
	if len(suggestions) == 0 {
		return nil, nil
	}
	pending, err := s.PendingBatch(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*AddResult, 0, len(suggestions))
	for _, sg := range suggestions {
		res, err := s.AddOrUpdate(ctx, sg.Sender, sg.Category, AddOptions{
			AutoConsolidate: s.cfg.AutoConsolidate,
			Pending:         pending,
		})
		if err != nil {
			return results, fmt.Errorf("failed to apply suggestion for %s: %w", sg.Sender, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *RuleService) suggest(ctx context.Context, email *Email, categories []string) (*CategorySuggestion, error) {
	pick, err := s.suggester.SuggestCategory(ctx, email, categories)
	if err != nil {
		return nil, err
	}
	if pick == nil || pick.Category == "" || pick.Confidence < s.cfg.MinConfidence {
		return nil, nil
	}
	for _, c := range categories {
		if strings.EqualFold(c, pick.Category) {
			pick.Category = c
			return pick, nil
		}
	}
	s.logger.Debug("Suggester picked an unknown category", zap.String("category", pick.Category))
	return nil, nil
}

// categoryNames lists the categories a suggestion may name: the provider's
// non-reserved categories, or the labels in use when there is no provider.
func (s *RuleService) categoryNames(ctx context.Context) ([]string, error) {
	if s.provider == nil {
		rules, err := s.store.LoadRules(ctx)
		if err != nil {
			return nil, err
		}
		set := make(map[string]struct{})
		for _, e := range rules.Entries() {
			set[e.Label] = struct{}{}
		}
		names := make([]string, 0, len(set))
		for n := range set {
			names = append(names, n)
		}
		sort.Strings(names)
		return names, nil
	}

	categories, err := s.provider.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	reserved := reservedSet(s.cfg.ReservedCategories)
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		if !isReserved(c, reserved) {
			names = append(names, c.Name)
		}
	}
	return names, nil
}
