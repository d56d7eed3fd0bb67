package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Document keys inside the KV store
const (
	RulesKey       = "rules"
	ExclusionsKey  = "exclusions"
	KeywordsKey    = "keyword_rules"
	FilingStatsKey = "filing_stats"
)

// RuleStore loads and saves the four rule documents. Every save replaces
// the whole document; callers load, modify and save as a unit.
type RuleStore struct {
	kv     KVStore
	logger *zap.Logger
}

// NewRuleStore creates a rule store over a KV store
func NewRuleStore(kv KVStore, logger *zap.Logger) *RuleStore {
	return &RuleStore{
		kv:     kv,
		logger: logger,
	}
}

// LoadRules returns the rule set, empty when absent or malformed
func (s *RuleStore) LoadRules(ctx context.Context) (*RuleSet, error) {
	return loadDocument(ctx, s, RulesKey, NewRuleSet)
}

// SaveRules replaces the stored rule set
func (s *RuleStore) SaveRules(ctx context.Context, rules *RuleSet) error {
	return s.save(ctx, RulesKey, rules)
}

// LoadExclusions returns the exclusion set, empty when absent or malformed
func (s *RuleStore) LoadExclusions(ctx context.Context) (*ExclusionSet, error) {
	return loadDocument(ctx, s, ExclusionsKey, NewExclusionSet)
}

// SaveExclusions replaces the stored exclusion set
func (s *RuleStore) SaveExclusions(ctx context.Context, exclusions *ExclusionSet) error {
	return s.save(ctx, ExclusionsKey, exclusions)
}

// LoadKeywords returns the keyword rules, empty when absent or malformed
func (s *RuleStore) LoadKeywords(ctx context.Context) (*KeywordRuleSet, error) {
	return loadDocument(ctx, s, KeywordsKey, NewKeywordRuleSet)
}

// SaveKeywords replaces the stored keyword rules
func (s *RuleStore) SaveKeywords(ctx context.Context, keywords *KeywordRuleSet) error {
	return s.save(ctx, KeywordsKey, keywords)
}

// LoadFilingStats returns the filing counters, empty when absent or malformed
func (s *RuleStore) LoadFilingStats(ctx context.Context) (FilingStats, error) {
	return loadDocument(ctx, s, FilingStatsKey, NewFilingStats)
}

// SaveFilingStats replaces the stored filing counters
func (s *RuleStore) SaveFilingStats(ctx context.Context, stats FilingStats) error {
	if stats == nil {
		stats = NewFilingStats()
	}
	return s.save(ctx, FilingStatsKey, stats)
}

// AddFilingCounts merges a batch of counts into the stored stats in one write
func (s *RuleStore) AddFilingCounts(ctx context.Context, batch map[RuleKey]int64) error {
	if len(batch) == 0 {
		return nil
	}
	stats, err := s.LoadFilingStats(ctx)
	if err != nil {
		return err
	}
	stats.Merge(batch)
	return s.SaveFilingStats(ctx, stats)
}

// ResetFilingStats zeroes every counter
func (s *RuleStore) ResetFilingStats(ctx context.Context) error {
	stats, err := s.LoadFilingStats(ctx)
	if err != nil {
		return err
	}
	stats.Reset()
	return s.SaveFilingStats(ctx, stats)
}

// loadSnapshot loads everything the matcher needs
func (s *RuleStore) loadSnapshot(ctx context.Context) (*matcherSnapshot, error) {
	rules, err := s.LoadRules(ctx)
	if err != nil {
		return nil, err
	}
	exclusions, err := s.LoadExclusions(ctx)
	if err != nil {
		return nil, err
	}
	keywords, err := s.LoadKeywords(ctx)
	if err != nil {
		return nil, err
	}
	return &matcherSnapshot{rules: rules, exclusions: exclusions, keywords: keywords}, nil
}

func (s *RuleStore) save(ctx context.Context, key string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// loadDocument reads and decodes one document. Store failures are returned;
// malformed content is logged and replaced by an empty document.
func loadDocument[T any](ctx context.Context, s *RuleStore, key string, empty func() T) (T, error) {
	data, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to read %s: %w", key, err)
	}

	trimmed := bytes.TrimSpace(data)
	if !ok || len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return empty(), nil
	}

	doc := empty()
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		s.logger.Warn("Discarding malformed document",
			zap.String("key", key),
			zap.Int("size", len(data)),
			zap.Error(err))
		return empty(), nil
	}
	return doc, nil
}
