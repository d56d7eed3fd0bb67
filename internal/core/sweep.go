package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/mail-sorter/internal/metrics"
)

// SweepResult summarises one sweep. Matches is only filled in dry-run mode.
type SweepResult struct {
	RunID   string        `json:"runId" yaml:"runId"`
	DryRun  bool          `json:"dryRun" yaml:"dryRun"`
	Scanned int           `json:"scanned" yaml:"scanned"`
	Matched int           `json:"matched" yaml:"matched"`
	Filed   int           `json:"filed" yaml:"filed"`
	Failed  int           `json:"failed" yaml:"failed"`
	Matches []MatchRecord `json:"matches,omitempty" yaml:"matches,omitempty"`
}

// SweepEngine files a batch of messages according to the rules
type SweepEngine struct {
	store    *RuleStore
	provider MessageProvider
	logger   *zap.Logger
}

// NewSweepEngine creates a sweep engine
func NewSweepEngine(store *RuleStore, provider MessageProvider, logger *zap.Logger) *SweepEngine {
	return &SweepEngine{
		store:    store,
		provider: provider,
		logger:   logger,
	}
}

// Sweep resolves every message and, unless dryRun is set, files and
// archives the matches. A failure on one message is logged and the sweep
// carries on; only filed messages are counted. Counts are flushed into the
// filing stats in a single write at the end.
func (e *SweepEngine) Sweep(ctx context.Context, messages []MessageRef, dryRun bool) (*SweepResult, error) {
	snapshot, err := e.store.loadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	result := &SweepResult{RunID: uuid.NewString(), DryRun: dryRun}
	logger := e.logger.With(zap.String("run_id", result.RunID), zap.Bool("dry_run", dryRun))
	categories := newCategoryIndex(e.provider, logger)
	counts := make(map[RuleKey]int64)

	for _, ref := range messages {
		result.Scanned++

		rawSender, err := e.provider.GetSender(ctx, ref)
		if err != nil {
			logger.Warn("Failed to read sender", zap.String("message", ref.ID), zap.Error(err))
			continue
		}
		sender := ExtractAddress(rawSender)

		subject, err := e.provider.GetSubject(ctx, ref)
		if err != nil {
			logger.Debug("Failed to read subject", zap.String("message", ref.ID), zap.Error(err))
			subject = ""
		}

		match, ok := snapshot.resolve(sender, subject)
		if !ok {
			continue
		}
		result.Matched++

		if dryRun {
			result.Matches = append(result.Matches, MatchRecord{
				Sender:  sender,
				Subject: subject,
				Label:   match.Label,
				RuleKey: match.RuleKey,
			})
			continue
		}

		if err := fileMessage(ctx, e.provider, categories, ref, match.Label); err != nil {
			result.Failed++
			metrics.FilingFailures.Inc()
			logger.Error("Failed to file message",
				zap.String("message", ref.ID),
				zap.String("sender", sender),
				zap.String("label", match.Label),
				zap.Error(err))
			continue
		}

		counts[match.RuleKey]++
		result.Filed++
		metrics.MessagesFiled.WithLabelValues(match.Label).Inc()
		logger.Debug("Filed message",
			zap.String("message", ref.ID),
			zap.String("sender", sender),
			zap.String("label", match.Label),
			zap.String("rule", string(match.RuleKey)))
	}

	if !dryRun {
		if err := e.store.AddFilingCounts(ctx, counts); err != nil {
			return result, fmt.Errorf("failed to update filing stats: %w", err)
		}
	}

	mode := "live"
	if dryRun {
		mode = "dry_run"
	}
	metrics.SweepRuns.WithLabelValues(mode).Inc()

	logger.Info("Sweep finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("matched", result.Matched),
		zap.Int("filed", result.Filed),
		zap.Int("failed", result.Failed))

	return result, nil
}
