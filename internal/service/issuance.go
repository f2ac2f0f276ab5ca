package service

import (
    "context"
    "errors"
    "fmt"
    "log/slog"
    "time"

    "github.com/iliyamo/tixcode/internal/clock"
    "github.com/iliyamo/tixcode/internal/model"
    "github.com/iliyamo/tixcode/internal/queue"
    "github.com/iliyamo/tixcode/internal/repository"
    "github.com/iliyamo/tixcode/internal/utils"
)

// maxCodeAttempts bounds regeneration after a code value collision.
const maxCodeAttempts = 5

// PurchaseKind says how a code was paid for.
type PurchaseKind string

const (
    PurchasePoints  PurchaseKind = "points"
    PurchaseGateway PurchaseKind = "gateway"
)

// PurchaseOutcome is the payment side effect committed together with the
// code.
//
// For PurchasePoints, Points are debited from the owner.  For
// PurchaseGateway, the order TradeNo moves from PENDING to PAID with the
// gateway's reference.
type PurchaseOutcome struct {
    Kind       PurchaseKind
    Points     int64
    TradeNo    string
    GatewayRef string
    PaidAt     time.Time
}

// IssueInput describes one issuance request.
type IssueInput struct {
    OwnerID     uint64
    EventID     uint64
    Preferences model.Preferences
    Purchase    PurchaseOutcome
}

// IssuanceDeps groups the collaborators of IssuanceService.
type IssuanceDeps struct {
    Tx        TxRunner
    Codes     CodeStore
    Events    EventStore
    Users     UserStore
    Orders    OrderStore
    Publisher Publisher
    Clock     clock.Clock
    Logger    *slog.Logger
}

// IssuanceService mints verification codes after a purchase.
type IssuanceService struct {
    IssuanceDeps
    maxModifications int
    generate         func(prefix string) (string, error)
}

// NewIssuanceService returns an IssuanceService.  maxModifications below 1
// falls back to model.DefaultMaxModifications.
func NewIssuanceService(deps IssuanceDeps, maxModifications int) *IssuanceService {
    if maxModifications < 1 {
        maxModifications = model.DefaultMaxModifications
    }
    return &IssuanceService{IssuanceDeps: deps, maxModifications: maxModifications, generate: utils.GenerateCode}
}

// Issue validates the request, then commits the purchase side effect and
// the new code in one transaction.  The full code value is returned only
// here.
func (s *IssuanceService) Issue(ctx context.Context, in IssueInput) (model.VerificationCode, error) {
    prefs, err := ValidatePreferences(in.Preferences)
    if err != nil {
        return model.VerificationCode{}, err
    }
    switch in.Purchase.Kind {
    case PurchasePoints:
        if in.Purchase.Points < 1 {
            return model.VerificationCode{}, ErrInvalidPrice
        }
    case PurchaseGateway:
    default:
        return model.VerificationCode{}, ErrUnknownPurchase
    }

    event, err := s.Events.GetByID(ctx, in.EventID)
    if errors.Is(err, repository.ErrNotFound) {
        return model.VerificationCode{}, ErrEventNotFound
    }
    if err != nil {
        return model.VerificationCode{}, err
    }
    now := s.Clock.Now()
    if event.Ended(now) {
        return model.VerificationCode{}, ErrEventExpired
    }

    rec := model.VerificationCode{
        OwnerID:          in.OwnerID,
        EventID:          event.ID,
        Preferences:      prefs,
        MaxModifications: s.maxModifications,
        Status:           model.CodeStatusActive,
        CreatedAt:        now,
    }
    err = s.Tx.WithTx(ctx, func(ctx context.Context) error {
        if err := s.applyPurchase(ctx, in, now); err != nil {
            return err
        }
        return s.insertUnique(ctx, &rec, event.CodePrefix)
    })
    if err != nil {
        return model.VerificationCode{}, err
    }

    log := s.Logger.With("user_id", in.OwnerID, "event_id", event.ID, "code", CodePrefix(rec.Code))
    log.InfoContext(ctx, "code issued", "source", string(in.Purchase.Kind))
    if s.Publisher != nil {
        BestEffort(ctx, log, "publish code.issued", func(ctx context.Context) error {
            return s.Publisher.Publish(ctx, queue.CodeIssuedEvent{
                CodePrefix: CodePrefix(rec.Code),
                OwnerID:    rec.OwnerID,
                EventID:    rec.EventID,
                Source:     string(in.Purchase.Kind),
                IssuedAt:   rec.CreatedAt,
            })
        })
    }
    return rec, nil
}

func (s *IssuanceService) applyPurchase(ctx context.Context, in IssueInput, now time.Time) error {
    p := in.Purchase
    switch p.Kind {
    case PurchasePoints:
        ok, err := s.Users.DebitPoints(ctx, in.OwnerID, p.Points, fmt.Sprintf("verification code for event %d", in.EventID))
        if err != nil {
            return err
        }
        if !ok {
            return ErrInsufficientPoints
        }
        return nil
    case PurchaseGateway:
        order, err := s.Orders.GetByTradeNo(ctx, p.TradeNo)
        if errors.Is(err, repository.ErrNotFound) {
            return ErrOrderNotFound
        }
        if err != nil {
            return err
        }
        if order.UserID != in.OwnerID || order.EventID != in.EventID {
            return ErrOrderNotFound
        }
        paidAt := p.PaidAt
        if paidAt.IsZero() {
            paidAt = now
        }
        ok, err := s.Orders.MarkPaid(ctx, p.TradeNo, p.GatewayRef, paidAt)
        if err != nil {
            return err
        }
        if !ok {
            return ErrOrderAlreadyProcessed
        }
        return nil
    }
    return ErrUnknownPurchase
}

// insertUnique stores rec, regenerating the code value on collision.
func (s *IssuanceService) insertUnique(ctx context.Context, rec *model.VerificationCode, prefix string) error {
    for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
        code, err := s.generate(prefix)
        if err != nil {
            return err
        }
        rec.Code = code
        err = s.Codes.Insert(ctx, rec)
        switch {
        case err == nil:
            return nil
        case errors.Is(err, repository.ErrDuplicateOwnerEvent):
            return ErrCodeAlreadyIssued
        case errors.Is(err, repository.ErrDuplicateCode):
            s.Logger.WarnContext(ctx, "code collision, regenerating", "attempt", attempt)
            continue
        default:
            return err
        }
    }
    return fmt.Errorf("issue code: %d consecutive collisions", maxCodeAttempts)
}
