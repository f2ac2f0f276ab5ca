package service

import (
    "context"
    "errors"
    "fmt"
    "log/slog"
    "strings"
    "time"

    "github.com/iliyamo/tixcode/internal/clock"
    "github.com/iliyamo/tixcode/internal/model"
    "github.com/iliyamo/tixcode/internal/queue"
    "github.com/iliyamo/tixcode/internal/repository"
    "github.com/iliyamo/tixcode/internal/utils"
)

// BindInput is one bind request from the agent.
type BindInput struct {
    Code              string
    RequesterID       uint64
    ExternalAccountID string
    DeviceID          string
    RemoteAddr        string
}

// BindingResult reports either a fresh binding or an idempotent repeat.
type BindingResult struct {
    Bound        bool
    AlreadyBound bool
    Account      string
    DeviceID     string
    BoundAt      time.Time
}

// BindingService attaches an external ticketing account to a code at most
// once.
type BindingService struct {
    codes     CodeStore
    publisher Publisher
    clock     clock.Clock
    logger    *slog.Logger
}

func NewBindingService(codes CodeStore, publisher Publisher, clk clock.Clock, logger *slog.Logger) *BindingService {
    return &BindingService{codes: codes, publisher: publisher, clock: clk, logger: logger}
}

// Bind writes the binding with a conditional update that only matches an
// unbound code, so of two racing binds exactly one wins.  The loser, or a
// later call, is classified by re-reading the record.
func (s *BindingService) Bind(ctx context.Context, in BindInput) (BindingResult, error) {
    code := utils.NormalizeCode(in.Code)
    account := strings.TrimSpace(in.ExternalAccountID)
    if code == "" || account == "" {
        return BindingResult{}, ErrMissingParameters
    }
    device := strings.TrimSpace(in.DeviceID)

    now := s.clock.Now()
    ok, err := s.codes.Bind(ctx, code, in.RequesterID, model.Binding{
        ExternalAccountID: account,
        DeviceID:          device,
        BoundAt:           now,
        BoundBy:           in.RequesterID,
        BoundFromIP:       in.RemoteAddr,
    })
    if err != nil {
        return BindingResult{}, err
    }
    log := s.logger.With("user_id", in.RequesterID, "code", CodePrefix(code))
    if ok {
        log.InfoContext(ctx, "code bound")
        if s.publisher != nil {
            BestEffort(ctx, log, "publish code.bound", func(ctx context.Context) error {
                return s.publisher.Publish(ctx, queue.CodeBoundEvent{
                    CodePrefix: CodePrefix(code),
                    OwnerID:    in.RequesterID,
                    DeviceID:   device,
                    BoundAt:    now,
                })
            })
        }
        return BindingResult{Bound: true, Account: account, DeviceID: device, BoundAt: now}, nil
    }

    rec, err := s.codes.GetOwned(ctx, code, in.RequesterID)
    if errors.Is(err, repository.ErrNotFound) {
        return BindingResult{}, ErrCodeNotFound
    }
    if err != nil {
        return BindingResult{}, err
    }
    if rec.Binding == nil {
        return BindingResult{}, fmt.Errorf("bind %s: conditional update matched no row on an unbound code", CodePrefix(code))
    }
    if rec.Binding.ExternalAccountID != account {
        log.WarnContext(ctx, "binding conflict")
        return BindingResult{}, ErrBindingConflict
    }
    return BindingResult{
        AlreadyBound: true,
        Account:      rec.Binding.ExternalAccountID,
        DeviceID:     rec.Binding.DeviceID,
        BoundAt:      rec.Binding.BoundAt,
    }, nil
}
