package service

import (
    "context"
    "errors"
    "log/slog"
    "time"

    "github.com/iliyamo/tixcode/internal/clock"
    "github.com/iliyamo/tixcode/internal/model"
    "github.com/iliyamo/tixcode/internal/repository"
    "github.com/iliyamo/tixcode/internal/utils"
)

// EventSummary is the part of an event the desktop agent needs.
type EventSummary struct {
    ID               uint64
    Name             string
    ActivityURL      string
    ActualTicketTime time.Time
    Venue            string
}

// PurchaseConfiguration is everything the agent receives for a redeemed
// code.  APIKey holds the owner's external key in standard base64; that
// is obfuscation only and gives no confidentiality.
type PurchaseConfiguration struct {
    Event       EventSummary
    Preferences model.Preferences
    APIKey      string
    Code        string
    UserID      uint64
    ServerTime  time.Time
}

// RedemptionService exchanges a code and its owner's identity for a
// purchase configuration.
type RedemptionService struct {
    codes  CodeStore
    users  UserStore
    events EventStore
    clock  clock.Clock
    logger *slog.Logger
}

func NewRedemptionService(codes CodeStore, users UserStore, events EventStore, clk clock.Clock, logger *slog.Logger) *RedemptionService {
    return &RedemptionService{codes: codes, users: users, events: events, clock: clk, logger: logger}
}

// Redeem looks the code up for requesterID only; a code owned by someone
// else yields ErrCodeNotFound, same as a code that does not exist.  Expiry
// comes from the event end date, never from the stored status.
func (s *RedemptionService) Redeem(ctx context.Context, code string, requesterID uint64) (PurchaseConfiguration, error) {
    code = utils.NormalizeCode(code)
    if code == "" {
        return PurchaseConfiguration{}, ErrMissingParameters
    }
    rec, err := s.codes.GetOwned(ctx, code, requesterID)
    if errors.Is(err, repository.ErrNotFound) {
        return PurchaseConfiguration{}, ErrCodeNotFound
    }
    if err != nil {
        return PurchaseConfiguration{}, err
    }

    user, err := s.users.GetByID(ctx, rec.OwnerID)
    if errors.Is(err, repository.ErrNotFound) {
        return PurchaseConfiguration{}, ErrUserNotFound
    }
    if err != nil {
        return PurchaseConfiguration{}, err
    }
    if !user.HasAPIKey() {
        return PurchaseConfiguration{}, ErrNoAPIKeyConfigured
    }

    event, err := s.events.GetByID(ctx, rec.EventID)
    if errors.Is(err, repository.ErrNotFound) {
        return PurchaseConfiguration{}, ErrEventNotFound
    }
    if err != nil {
        return PurchaseConfiguration{}, err
    }
    now := s.clock.Now()
    if event.Ended(now) {
        return PurchaseConfiguration{}, ErrCodeExpired
    }

    BestEffort(ctx, s.logger, "record usage", func(ctx context.Context) error {
        return s.codes.IncrementUsage(ctx, code, requesterID, now)
    }, "user_id", requesterID, "code", CodePrefix(code))

    return PurchaseConfiguration{
        Event: EventSummary{
            ID:               event.ID,
            Name:             event.Name,
            ActivityURL:      event.ActivityURL,
            ActualTicketTime: event.ActualTicketTime,
            Venue:            event.Venue,
        },
        Preferences: rec.Preferences.Normalized(),
        APIKey:      utils.EncodeAPIKey(*user.ExternalAPIKey),
        Code:        rec.Code,
        UserID:      rec.OwnerID,
        ServerTime:  now,
    }, nil
}
