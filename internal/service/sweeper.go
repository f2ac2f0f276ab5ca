package service

import (
    "context"
    "log/slog"
    "time"

    "github.com/iliyamo/tixcode/internal/clock"
)

// SweepResult counts what one sweep changed.
type SweepResult struct {
    Expired int64
    Purged  int64
}

// Sweeper keeps the informational status column in line with event end
// dates and deletes codes whose event ended more than retention ago.
type Sweeper struct {
    codes     CodeStore
    clock     clock.Clock
    retention time.Duration
    logger    *slog.Logger
}

func NewSweeper(codes CodeStore, clk clock.Clock, retention time.Duration, logger *slog.Logger) *Sweeper {
    return &Sweeper{codes: codes, clock: clk, retention: retention, logger: logger.With("component", "sweeper")}
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
    now := s.clock.Now()
    expired, err := s.codes.MarkExpired(ctx, now)
    if err != nil {
        return SweepResult{}, err
    }
    res := SweepResult{Expired: expired}
    if s.retention > 0 {
        if res.Purged, err = s.codes.PurgeEndedBefore(ctx, now.Add(-s.retention)); err != nil {
            return res, err
        }
    }
    s.logger.InfoContext(ctx, "sweep finished", "expired", res.Expired, "purged", res.Purged)
    return res, nil
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
    if interval <= 0 {
        interval = time.Hour
    }
    t := time.NewTicker(interval)
    defer t.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-t.C:
            if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
                s.logger.ErrorContext(ctx, "sweep failed", "error", err)
            }
        }
    }
}
