package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mail-sorter/internal/metrics"
	"github.com/mikey/mail-sorter/internal/utils"
)

var (
	// ErrNoProvider is returned by operations that need a mailbox when none is configured
	ErrNoProvider = errors.New("no message provider configured")
	// ErrRuleNotFound is returned when an operation needs an existing rule
	ErrRuleNotFound = errors.New("rule not found")
)

// ServiceConfig holds the tunables of the rule service
type ServiceConfig struct {
	BatchSize          int
	PerLabelLimit      int
	TimeBudget         time.Duration
	ReservedCategories []string
	MinConfidence      float64
	AutoConsolidate    bool
}

// AddOptions controls the side effects of AddOrUpdate
type AddOptions struct {
	// AutoConsolidate runs a consolidation pass after the rule is written
	AutoConsolidate bool
	// Pending is the batch re-evaluated against the new rule and filed
	Pending []MessageRef
}

// AddResult describes what AddOrUpdate did
type AddResult struct {
	Pattern       string `json:"pattern" yaml:"pattern"`
	Label         string `json:"label" yaml:"label"`
	PreviousLabel string `json:"previousLabel,omitempty" yaml:"previousLabel,omitempty"`
	Excluded      bool   `json:"excluded" yaml:"excluded"`
	Filed         int    `json:"filed" yaml:"filed"`
	Failed        int    `json:"failed" yaml:"failed"`
	Consolidated  int    `json:"consolidated" yaml:"consolidated"`
}

// RuleStats counts the rules of each family
type RuleStats struct {
	Total      int `json:"total" yaml:"total"`
	Exact      int `json:"exact" yaml:"exact"`
	Domain     int `json:"domain" yaml:"domain"`
	Exclusions int `json:"exclusions" yaml:"exclusions"`
	Keywords   int `json:"keywords" yaml:"keywords"`
}

// ConsolidationResult is the outcome of a consolidation pass
type ConsolidationResult struct {
	Opportunities []Opportunity `json:"opportunities" yaml:"opportunities"`
	Removed       int           `json:"removed" yaml:"removed"`
}

// RuleService is the entry point for every rule operation
type RuleService struct {
	store      *RuleStore
	provider   MessageProvider
	blobs      BlobStore
	scheduler  Scheduler
	suggester  CategorySuggester
	sweeper    *SweepEngine
	discoverer *DiscoveryEngine
	cfg        ServiceConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NewRuleService creates a rule service. provider, blobs, scheduler and
// suggester may be nil; operations needing them then fail with a sentinel.
func NewRuleService(
	store *RuleStore,
	provider MessageProvider,
	blobs BlobStore,
	scheduler Scheduler,
	suggester CategorySuggester,
	cfg ServiceConfig,
	logger *zap.Logger,
) *RuleService {
	s := &RuleService{
		store:     store,
		provider:  provider,
		blobs:     blobs,
		scheduler: scheduler,
		suggester: suggester,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
	if provider != nil {
		s.sweeper = NewSweepEngine(store, provider, logger)
		s.discoverer = NewDiscoveryEngine(store, provider, cfg.ReservedCategories, logger)
	}
	return s
}

// AutoConsolidate reports the configured default for AddOptions.AutoConsolidate
func (s *RuleService) AutoConsolidate() bool {
	return s.cfg.AutoConsolidate
}

// AddOrUpdate writes pattern→label and persists it. Unless the pattern is
// excluded, pending messages from senders the pattern covers are filed at
// once and counted under the pattern's rule key.
func (s *RuleService) AddOrUpdate(ctx context.Context, raw, label string, opts AddOptions) (*AddResult, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, ErrEmptyLabel
	}
	pattern, err := ParsePattern(raw)
	if err != nil {
		return nil, err
	}

	rules, err := s.store.LoadRules(ctx)
	if err != nil {
		return nil, err
	}
	result := &AddResult{Pattern: pattern.Key(), Label: label}
	if prev, ok := rules.Get(pattern); ok && prev != label {
		result.PreviousLabel = prev
	}
	// a key stored with other casing is replaced by the normalised one
	if legacy, ok := storedPattern(rules, raw); ok && legacy != pattern {
		if prev, _ := rules.Get(legacy); prev != label && result.PreviousLabel == "" {
			result.PreviousLabel = prev
		}
		rules.Delete(legacy)
	}
	rules.Set(pattern, label)
	if err := s.store.SaveRules(ctx, rules); err != nil {
		return nil, err
	}
	s.logger.Info("Rule saved",
		zap.String("pattern", pattern.Key()),
		zap.String("label", label))

	exclusions, err := s.store.LoadExclusions(ctx)
	if err != nil {
		return nil, err
	}
	result.Excluded = exclusions.Contains(pattern)

	if !result.Excluded && len(opts.Pending) > 0 {
		filed, failed, err := s.fileCovered(ctx, pattern, label, opts.Pending)
		if err != nil {
			return nil, err
		}
		result.Filed, result.Failed = filed, failed
	}

	if opts.AutoConsolidate {
		consolidation, err := s.Consolidate(ctx)
		if err != nil {
			return nil, err
		}
		result.Consolidated = consolidation.Removed
	}

	return result, nil
}

// FileInbound runs the immediate-filing path of an existing rule against
// the provider's inbound batch and returns how many messages were filed.
func (s *RuleService) FileInbound(ctx context.Context, raw string) (int, error) {
	if s.provider == nil {
		return 0, ErrNoProvider
	}
	rules, err := s.store.LoadRules(ctx)
	if err != nil {
		return 0, err
	}
	pattern, ok := storedPattern(rules, raw)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrRuleNotFound, strings.TrimSpace(raw))
	}
	label, _ := rules.Get(pattern)
	exclusions, err := s.store.LoadExclusions(ctx)
	if err != nil {
		return 0, err
	}
	if exclusions.Contains(pattern) {
		return 0, nil
	}
	pending, err := s.PendingInbound(ctx)
	if err != nil {
		return 0, err
	}
	filed, _, err := s.fileCovered(ctx, pattern, label, pending)
	return filed, err
}

// fileCovered files the messages whose sender the pattern covers directly,
// without running the full matcher.
func (s *RuleService) fileCovered(ctx context.Context, pattern Pattern, label string, pending []MessageRef) (int, int, error) {
	if s.provider == nil {
		return 0, 0, ErrNoProvider
	}

	categories := newCategoryIndex(s.provider, s.logger)
	filed, failed := 0, 0
	for _, ref := range pending {
		raw, err := s.provider.GetSender(ctx, ref)
		if err != nil {
			s.logger.Warn("Failed to read sender", zap.String("message", ref.ID), zap.Error(err))
			continue
		}
		if !covers(pattern, ExtractAddress(raw)) {
			continue
		}
		if err := fileMessage(ctx, s.provider, categories, ref, label); err != nil {
			failed++
			metrics.FilingFailures.Inc()
			s.logger.Error("Failed to file message",
				zap.String("message", ref.ID),
				zap.String("label", label),
				zap.Error(err))
			continue
		}
		filed++
		metrics.MessagesFiled.WithLabelValues(label).Inc()
	}

	if filed > 0 {
		counts := map[RuleKey]int64{PatternRuleKey(pattern): int64(filed)}
		if err := s.store.AddFilingCounts(ctx, counts); err != nil {
			return filed, failed, fmt.Errorf("failed to update filing stats: %w", err)
		}
	}
	s.logger.Info("Filed pending messages",
		zap.String("pattern", pattern.Key()),
		zap.Int("filed", filed),
		zap.Int("failed", failed))
	return filed, failed, nil
}

// covers is the direct lookup used for immediate filing
func covers(p Pattern, sender string) bool {
	if p.IsDomain() {
		return strings.Contains(sender, domainSigil) && domainOf(sender) == p.Domain()
	}
	return sender == p.Value
}

// storedPattern finds the stored key that user input refers to: the key
// exactly as typed, else its normalised form.
func storedPattern(rules *RuleSet, raw string) (Pattern, bool) {
	key := strings.TrimSpace(raw)
	if key == "" {
		return Pattern{}, false
	}
	if p := patternFromKey(key); rules.Has(p) {
		return p, true
	}
	if p, err := ParsePattern(key); err == nil && rules.Has(p) {
		return p, true
	}
	return Pattern{}, false
}

// Delete removes a rule and reports whether it existed. The pattern is
// looked up as typed first, so keys stored with any casing can be removed.
func (s *RuleService) Delete(ctx context.Context, raw string) (bool, error) {
	rules, err := s.store.LoadRules(ctx)
	if err != nil {
		return false, err
	}
	pattern, ok := storedPattern(rules, raw)
	if !ok {
		return false, nil
	}
	rules.Delete(pattern)
	if err := s.store.SaveRules(ctx, rules); err != nil {
		return false, err
	}
	s.logger.Info("Rule deleted", zap.String("pattern", pattern.Key()))
	return true, nil
}

// Search lists rules whose pattern or label contains term, ignoring case.
// An empty term lists everything. Results are sorted by pattern.
func (s *RuleService) Search(ctx context.Context, term string) ([]RuleEntry, error) {
	rules, err := s.store.LoadRules(ctx)
	if err != nil {
		return nil, err
	}
	entries := rules.Entries()
	term = strings.TrimSpace(term)
	if term == "" {
		return entries, nil
	}

	matched := make([]RuleEntry, 0, len(entries))
	for _, e := range entries {
		if utils.FoldContains(e.Pattern, term) || utils.FoldContains(e.Label, term) {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

// Stats counts rules per family
func (s *RuleService) Stats(ctx context.Context) (*RuleStats, error) {
	snapshot, err := s.store.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	stats := &RuleStats{
		Total:      snapshot.rules.Len(),
		Exclusions: snapshot.exclusions.Len(),
		Keywords:   snapshot.keywords.Len(),
	}
	for _, p := range snapshot.rules.Patterns() {
		if p.IsDomain() {
			stats.Domain++
		} else {
			stats.Exact++
		}
	}
	return stats, nil
}

// AddExclusion excludes a pattern and reports whether it was new
func (s *RuleService) AddExclusion(ctx context.Context, raw string) (bool, error) {
	pattern, err := ParsePattern(raw)
	if err != nil {
		return false, err
	}
	exclusions, err := s.store.LoadExclusions(ctx)
	if err != nil {
		return false, err
	}
	if !exclusions.Add(pattern) {
		return false, nil
	}
	if err := s.store.SaveExclusions(ctx, exclusions); err != nil {
		return false, err
	}
	s.logger.Info("Exclusion added", zap.String("pattern", pattern.Key()))
	return true, nil
}

// RemoveExclusion lifts an exclusion and reports whether it existed
func (s *RuleService) RemoveExclusion(ctx context.Context, raw string) (bool, error) {
	key := strings.TrimSpace(raw)
	if key == "" {
		return false, nil
	}
	exclusions, err := s.store.LoadExclusions(ctx)
	if err != nil {
		return false, err
	}
	pattern := patternFromKey(key)
	if !exclusions.Remove(pattern) {
		return false, nil
	}
	if err := s.store.SaveExclusions(ctx, exclusions); err != nil {
		return false, err
	}
	s.logger.Info("Exclusion removed", zap.String("pattern", pattern.Key()))
	return true, nil
}

// ListExclusions returns the excluded patterns in stored order
func (s *RuleService) ListExclusions(ctx context.Context) ([]string, error) {
	exclusions, err := s.store.LoadExclusions(ctx)
	if err != nil {
		return nil, err
	}
	patterns := exclusions.Patterns()
	keys := make([]string, len(patterns))
	for i, p := range patterns {
		keys[i] = p.Key()
	}
	return keys, nil
}

// AddKeyword writes a keyword rule. Keywords are stored lowercase.
func (s *RuleService) AddKeyword(ctx context.Context, keyword, label string) error {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return ErrInvalidKeyword
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return ErrEmptyLabel
	}
	keywords, err := s.store.LoadKeywords(ctx)
	if err != nil {
		return err
	}
	keywords.Set(keyword, label)
	if err := s.store.SaveKeywords(ctx, keywords); err != nil {
		return err
	}
	s.logger.Info("Keyword rule saved", zap.String("keyword", keyword), zap.String("label", label))
	return nil
}

// RemoveKeyword deletes a keyword rule and reports whether it existed
func (s *RuleService) RemoveKeyword(ctx context.Context, keyword string) (bool, error) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	keywords, err := s.store.LoadKeywords(ctx)
	if err != nil {
		return false, err
	}
	if !keywords.Delete(keyword) {
		return false, nil
	}
	if err := s.store.SaveKeywords(ctx, keywords); err != nil {
		return false, err
	}
	s.logger.Info("Keyword rule removed", zap.String("keyword", keyword))
	return true, nil
}

// ListKeywords returns the keyword rules in match order
func (s *RuleService) ListKeywords(ctx context.Context) ([]KeywordRule, error) {
	keywords, err := s.store.LoadKeywords(ctx)
	if err != nil {
		return nil, err
	}
	return keywords.Rules(), nil
}

// GetFilingStats returns the filing counters
func (s *RuleService) GetFilingStats(ctx context.Context) (FilingStats, error) {
	return s.store.LoadFilingStats(ctx)
}

// ResetFilingStats zeroes every filing counter
func (s *RuleService) ResetFilingStats(ctx context.Context) error {
	if err := s.store.ResetFilingStats(ctx); err != nil {
		return err
	}
	s.logger.Info("Filing stats reset")
	return nil
}

// Resolve loads the rules and resolves one message without side effects
func (s *RuleService) Resolve(ctx context.Context, rawSender, subject string) (Match, bool, error) {
	snapshot, err := s.store.loadSnapshot(ctx)
	if err != nil {
		return Match{}, false, err
	}
	m, ok := snapshot.resolve(ExtractAddress(rawSender), subject)
	return m, ok, nil
}

// PendingInbound returns the provider's current inbound batch
func (s *RuleService) PendingInbound(ctx context.Context) ([]MessageRef, error) {
	if s.provider == nil {
		return nil, ErrNoProvider
	}
	refs, err := s.provider.GetInbound(ctx, s.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list inbound messages: %w", err)
	}
	return refs, nil
}

// PendingBatch returns the inbound batch for immediate filing. Without a
// provider there is nothing pending and the batch is empty.
func (s *RuleService) PendingBatch(ctx context.Context) ([]MessageRef, error) {
	if s.provider == nil {
		return nil, nil
	}
	return s.PendingInbound(ctx)
}

// Sweep runs the sweep engine over the inbound batch
func (s *RuleService) Sweep(ctx context.Context, dryRun bool) (*SweepResult, error) {
	if s.sweeper == nil {
		return nil, ErrNoProvider
	}
	pending, err := s.PendingInbound(ctx)
	if err != nil {
		return nil, err
	}
	return s.sweeper.Sweep(ctx, pending, dryRun)
}

// Discover runs discovery. Non-positive arguments fall back to the configured values.
func (s *RuleService) Discover(ctx context.Context, perLabelLimit int, budget time.Duration) (*DiscoveryResult, error) {
	if s.discoverer == nil {
		return nil, ErrNoProvider
	}
	if perLabelLimit <= 0 {
		perLabelLimit = s.cfg.PerLabelLimit
	}
	if budget <= 0 {
		budget = s.cfg.TimeBudget
	}
	return s.discoverer.Discover(ctx, perLabelLimit, budget)
}

// FindOpportunities analyses the stored rules
func (s *RuleService) FindOpportunities(ctx context.Context) ([]Opportunity, error) {
	rules, err := s.store.LoadRules(ctx)
	if err != nil {
		return nil, err
	}
	return FindOpportunities(rules), nil
}

// ApplyOpportunities applies proposals to the stored rules with one save
// and returns the number of rules removed.
func (s *RuleService) ApplyOpportunities(ctx context.Context, opportunities []Opportunity) (int, error) {
	if len(opportunities) == 0 {
		return 0, nil
	}
	rules, err := s.store.LoadRules(ctx)
	if err != nil {
		return 0, err
	}
	removed := ApplyOpportunities(opportunities, rules)
	if err := s.store.SaveRules(ctx, rules); err != nil {
		return 0, err
	}
	metrics.ConsolidatedRules.Add(float64(removed))
	s.logger.Info("Consolidation applied",
		zap.Int("opportunities", len(opportunities)),
		zap.Int("removed", removed))
	return removed, nil
}

// Consolidate finds and applies every opportunity in one pass
func (s *RuleService) Consolidate(ctx context.Context) (*ConsolidationResult, error) {
	rules, err := s.store.LoadRules(ctx)
	if err != nil {
		return nil, err
	}
	opportunities := FindOpportunities(rules)
	result := &ConsolidationResult{Opportunities: opportunities}
	if len(opportunities) == 0 {
		return result, nil
	}
	result.Removed = ApplyOpportunities(opportunities, rules)
	if err := s.store.SaveRules(ctx, rules); err != nil {
		return nil, err
	}
	metrics.ConsolidatedRules.Add(float64(result.Removed))
	s.logger.Info("Consolidation applied",
		zap.Int("opportunities", len(opportunities)),
		zap.Int("removed", result.Removed))
	return result, nil
}
