package service

import (
    "context"
    "errors"
    "log/slog"
    "strings"

    "github.com/iliyamo/tixcode/internal/clock"
    "github.com/iliyamo/tixcode/internal/model"
    "github.com/iliyamo/tixcode/internal/repository"
    "github.com/iliyamo/tixcode/internal/utils"
)

// ValidatePreferences trims seat keywords, drops empty ones and checks the
// numeric fields.  It runs before any datastore access.
func ValidatePreferences(p model.Preferences) (model.Preferences, error) {
    if p.SessionIndex < 1 || p.TicketCount < 1 {
        return model.Preferences{}, ErrInvalidPreferences
    }
    out := model.Preferences{SessionIndex: p.SessionIndex, TicketCount: p.TicketCount, SeatKeywords: []string{}}
    for _, k := range p.SeatKeywords {
        if k = strings.TrimSpace(k); k != "" {
            out.SeatKeywords = append(out.SeatKeywords, k)
        }
    }
    return out, nil
}

// PreferenceUpdate is the outcome of a successful edit.
type PreferenceUpdate struct {
    Code      model.VerificationCode
    Remaining int
}

// PreferenceService edits the preferences attached to a code within its
// modification quota.
type PreferenceService struct {
    codes  CodeStore
    events EventStore
    clock  clock.Clock
    logger *slog.Logger
}

func NewPreferenceService(codes CodeStore, events EventStore, clk clock.Clock, logger *slog.Logger) *PreferenceService {
    return &PreferenceService{codes: codes, events: events, clock: clk, logger: logger}
}

// Update overwrites the preferences and consumes one edit.  Codes whose
// event has ended are rejected with ErrCodeExpired.  The quota check and
// the increment happen in one conditional write, so concurrent edits never
// lose a count and never exceed the cap.
func (s *PreferenceService) Update(ctx context.Context, code string, requesterID uint64, p model.Preferences) (PreferenceUpdate, error) {
    prefs, err := ValidatePreferences(p)
    if err != nil {
        return PreferenceUpdate{}, err
    }
    code = utils.NormalizeCode(code)
    if code == "" {
        return PreferenceUpdate{}, ErrMissingParameters
    }

    rec, err := s.codes.GetOwned(ctx, code, requesterID)
    if errors.Is(err, repository.ErrNotFound) {
        return PreferenceUpdate{}, ErrCodeNotFound
    }
    if err != nil {
        return PreferenceUpdate{}, err
    }
    event, err := s.events.GetByID(ctx, rec.EventID)
    if errors.Is(err, repository.ErrNotFound) {
        return PreferenceUpdate{}, ErrEventNotFound
    }
    if err != nil {
        return PreferenceUpdate{}, err
    }
    now := s.clock.Now()
    if event.Ended(now) {
        return PreferenceUpdate{}, ErrCodeExpired
    }

    ok, err := s.codes.UpdatePreferences(ctx, code, requesterID, prefs, now)
    if err != nil {
        return PreferenceUpdate{}, err
    }
    rec, err = s.codes.GetOwned(ctx, code, requesterID)
    if errors.Is(err, repository.ErrNotFound) {
        return PreferenceUpdate{}, ErrCodeNotFound
    }
    if err != nil {
        return PreferenceUpdate{}, err
    }
    if !ok {
        return PreferenceUpdate{}, ErrModificationLimitExceeded
    }
    s.logger.InfoContext(ctx, "preferences updated",
        "user_id", requesterID, "code", CodePrefix(code), "remaining", rec.RemainingModifications())
    return PreferenceUpdate{Code: rec, Remaining: rec.RemainingModifications()}, nil
}
