package core

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// SweepHandlerName is the scheduler handler that runs a live sweep
const SweepHandlerName = "sweep"

// ErrNoScheduler is returned by trigger operations when no scheduler is configured
var ErrNoScheduler = errors.New("no scheduler configured")

// EnsureSweepTrigger schedules the sweep handler unless it already is.
// It reports whether a new trigger was created.
func (s *RuleService) EnsureSweepTrigger(ctx context.Context, interval time.Duration) (bool, error) {
	if s.scheduler == nil {
		return false, ErrNoScheduler
	}
	scheduled, err := s.scheduler.ListScheduled(ctx)
	if err != nil {
		return false, err
	}
	for _, h := range scheduled {
		if h.HandlerName == SweepHandlerName {
			return false, nil
		}
	}
	if err := s.scheduler.Schedule(ctx, SweepHandlerName, interval); err != nil {
		return false, err
	}
	s.logger.Info("Sweep trigger installed", zap.Duration("interval", interval))
	return true, nil
}

// RemoveSweepTrigger unschedules the sweep handler
func (s *RuleService) RemoveSweepTrigger(ctx context.Context) error {
	if s.scheduler == nil {
		return ErrNoScheduler
	}
	if err := s.scheduler.Unschedule(ctx, SweepHandlerName); err != nil {
		return err
	}
	s.logger.Info("Sweep trigger removed")
	return nil
}

// SweepHandler adapts a live sweep to a scheduler handler
func (s *RuleService) SweepHandler() func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := s.Sweep(ctx, false)
		return err
	}
}
