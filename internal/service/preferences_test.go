package service

import (
    "context"
    "fmt"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/tixcode/internal/model"
)

func TestValidatePreferences(t *testing.T) {
    _, err := ValidatePreferences(model.Preferences{SessionIndex: 0, TicketCount: 1})
    assert.ErrorIs(t, err, ErrInvalidPreferences)
    _, err = ValidatePreferences(model.Preferences{SessionIndex: 1, TicketCount: 0})
    assert.ErrorIs(t, err, ErrInvalidPreferences)

    p, err := ValidatePreferences(model.Preferences{SeatKeywords: []string{" VIP ", "", "GA"}, SessionIndex: 1, TicketCount: 2})
    require.NoError(t, err)
    assert.Equal(t, []string{"VIP", "GA"}, p.SeatKeywords)
}

func TestModificationCap(t *testing.T) {
    ctx := context.Background()
    h := newHarness()
    h.addUser(1, 500, "key")
    h.addEvent(10, t0.Add(time.Hour), "")
    code, err := h.issuePoints(1, 10, model.Preferences{SessionIndex: 1, TicketCount: 1})
    require.NoError(t, err)

    for i := 1; i <= 5; i++ {
        up, err := h.prefs.Update(ctx, code.Code, 1, model.Preferences{
            SeatKeywords: []string{fmt.Sprintf("Zone %d", i)}, SessionIndex: 1, TicketCount: i,
        })
        require.NoError(t, err, "edit %d", i)
        assert.Equal(t, i, up.Code.ModificationCount)
        assert.Equal(t, 5-i, up.Remaining)
    }

    _, err = h.prefs.Update(ctx, code.Code, 1, model.Preferences{SessionIndex: 1, TicketCount: 1})
    assert.ErrorIs(t, err, ErrModificationLimitExceeded)

    stored, err := h.store.GetOwned(ctx, code.Code, 1)
    require.NoError(t, err)
    assert.Equal(t, 5, stored.ModificationCount)
    assert.Equal(t, []string{"Zone 5"}, stored.Preferences.SeatKeywords)

    // The next redemption sees the latest edit.
    cfg, err := h.redemption.Redeem(ctx, code.Code, 1)
    require.NoError(t, err)
    assert.Equal(t, 5, cfg.Preferences.TicketCount)
}

func TestConcurrentEditsNeverExceedCap(t *testing.T) {
    ctx := context.Background()
    h := newHarness()
    h.addUser(1, 500, "key")
    h.addEvent(10, t0.Add(time.Hour), "")
    code, err := h.issuePoints(1, 10, model.Preferences{SessionIndex: 1, TicketCount: 1})
    require.NoError(t, err)

    var wg sync.WaitGroup
    var mu sync.Mutex
    ok := 0
    for i := 0; i < 12; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            if _, err := h.prefs.Update(ctx, code.Code, 1, model.Preferences{SessionIndex: 1, TicketCount: 2}); err == nil {
                mu.Lock()
                ok++
                mu.Unlock()
            }
        }()
    }
    wg.Wait()
    assert.Equal(t, 5, ok)
    stored, _ := h.store.GetOwned(ctx, code.Code, 1)
    assert.Equal(t, 5, stored.ModificationCount)
}

func TestUpdatePreferencesErrors(t *testing.T) {
    ctx := context.Background()
    h := newHarness()
    h.addUser(1, 500, "key")
    h.addEvent(10, t0.Add(time.Hour), "")
    code, err := h.issuePoints(1, 10, model.Preferences{SessionIndex: 1, TicketCount: 1})
    require.NoError(t, err)

    _, err = h.prefs.Update(ctx, code.Code, 2, model.Preferences{SessionIndex: 1, TicketCount: 1})
    assert.ErrorIs(t, err, ErrCodeNotFound)
    _, err = h.prefs.Update(ctx, code.Code, 1, model.Preferences{SessionIndex: 1, TicketCount: 0})
    assert.ErrorIs(t, err, ErrInvalidPreferences)

    stored, _ := h.store.GetOwned(ctx, code.Code, 1)
    assert.Equal(t, 0, stored.ModificationCount)
}

func TestUpdatePreferencesAfterEventEnded(t *testing.T) {
    ctx := context.Background()
    h := newHarness()
    h.addUser(1, 500, "key")
    h.addEvent(10, t0.Add(time.Hour), "")
    code, err := h.issuePoints(1, 10, model.Preferences{SessionIndex: 1, TicketCount: 1})
    require.NoError(t, err)

    // The stored status still says active; the end date decides.
    h.clock.Advance(time.Hour)
    _, err = h.prefs.Update(ctx, code.Code, 1, model.Preferences{SessionIndex: 2, TicketCount: 3})
    assert.ErrorIs(t, err, ErrCodeExpired)

    stored, err := h.store.GetOwned(ctx, code.Code, 1)
    require.NoError(t, err)
    assert.Equal(t, model.CodeStatusActive, stored.Status)
    assert.Equal(t, 0, stored.ModificationCount)
    assert.Equal(t, 1, stored.Preferences.SessionIndex)
}
