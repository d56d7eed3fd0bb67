package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/mail-sorter/internal/metrics"
)

// DiscoveryResult summarises one discovery run
type DiscoveryResult struct {
	RunID             string        `json:"runId" yaml:"runId"`
	CategoriesScanned int           `json:"categoriesScanned" yaml:"categoriesScanned"`
	CategoriesSkipped int           `json:"categoriesSkipped" yaml:"categoriesSkipped"`
	RulesAdded        int           `json:"rulesAdded" yaml:"rulesAdded"`
	RulesReassigned   int           `json:"rulesReassigned" yaml:"rulesReassigned"`
	TimedOut          bool          `json:"timedOut" yaml:"timedOut"`
	Elapsed           time.Duration `json:"elapsed" yaml:"elapsed"`
}

// DiscoveryEngine infers exact-sender rules from already categorised mail
type DiscoveryEngine struct {
	store    *RuleStore
	provider MessageProvider
	logger   *zap.Logger
	reserved map[string]struct{}
	now      func() time.Time
}

// NewDiscoveryEngine creates a discovery engine. Categories named in
// reserved (case-insensitive) are skipped along with system categories.
func NewDiscoveryEngine(store *RuleStore, provider MessageProvider, reserved []string, logger *zap.Logger) *DiscoveryEngine {
	return &DiscoveryEngine{
		store:    store,
		provider: provider,
		logger:   logger,
		reserved: reservedSet(reserved),
		now:      time.Now,
	}
}

// Discover samples up to perLabelLimit recent items of every category and
// maps each first sender to that category. A sender already mapped to a
// different category is overwritten. The budget is checked before each
// category; when exceeded the run stops and keeps what it found so far.
func (e *DiscoveryEngine) Discover(ctx context.Context, perLabelLimit int, budget time.Duration) (*DiscoveryResult, error) {
	result := &DiscoveryResult{RunID: uuid.NewString()}
	logger := e.logger.With(zap.String("run_id", result.RunID))
	start := e.now()

	categories, err := e.provider.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	rules, err := e.store.LoadRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	for _, cat := range categories {
		if budget > 0 && e.now().Sub(start) > budget {
			result.TimedOut = true
			logger.Info("Discovery time budget exhausted",
				zap.Duration("budget", budget),
				zap.Int("categories_scanned", result.CategoriesScanned))
			break
		}

		if isReserved(cat, e.reserved) {
			result.CategoriesSkipped++
			continue
		}

		items, err := e.provider.GetItems(ctx, cat.Name, perLabelLimit)
		if err != nil {
			logger.Error("Failed to list category items", zap.String("category", cat.Name), zap.Error(err))
			continue
		}
		result.CategoriesScanned++

		for _, ref := range items {
			raw, err := e.provider.GetSender(ctx, ref)
			if err != nil {
				logger.Debug("Failed to read sender", zap.String("message", ref.ID), zap.Error(err))
				continue
			}
			address := strings.ToLower(ExtractAddress(raw))
			if address == "" {
				continue
			}

			pattern := ExactPattern(address)
			existing, ok := rules.Get(pattern)
			if ok && existing == cat.Name {
				continue
			}
			if ok {
				result.RulesReassigned++
				logger.Debug("Reassigning sender",
					zap.String("sender", address),
					zap.String("from", existing),
					zap.String("to", cat.Name))
			} else {
				result.RulesAdded++
			}
			rules.Set(pattern, cat.Name)
		}
	}

	if result.RulesAdded+result.RulesReassigned > 0 {
		if err := e.store.SaveRules(ctx, rules); err != nil {
			return result, fmt.Errorf("failed to save discovered rules: %w", err)
		}
	}
	metrics.DiscoveredRules.Add(float64(result.RulesAdded + result.RulesReassigned))

	result.Elapsed = e.now().Sub(start)
	logger.Info("Discovery finished",
		zap.Int("categories_scanned", result.CategoriesScanned),
		zap.Int("rules_added", result.RulesAdded),
		zap.Int("rules_reassigned", result.RulesReassigned),
		zap.Bool("timed_out", result.TimedOut),
		zap.Duration("elapsed", result.Elapsed))

	return result, nil
}
