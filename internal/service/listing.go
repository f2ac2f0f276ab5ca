package service

import (
    "context"
    "errors"

    "github.com/iliyamo/tixcode/internal/clock"
    "github.com/iliyamo/tixcode/internal/model"
    "github.com/iliyamo/tixcode/internal/repository"
)

// Catalog answers read-only queries: the caller's codes and the public
// event list.
type Catalog struct {
    codes  CodeStore
    events EventStore
    clock  clock.Clock
}

func NewCatalog(codes CodeStore, events EventStore, clk clock.Clock) *Catalog {
    return &Catalog{codes: codes, events: events, clock: clk}
}

// ListOwned returns the owner's codes with Status recomputed from the
// event end date.
func (c *Catalog) ListOwned(ctx context.Context, ownerID uint64) ([]model.OwnedCode, error) {
    codes, err := c.codes.ListByOwner(ctx, ownerID)
    if err != nil {
        return nil, err
    }
    now := c.clock.Now()
    for i := range codes {
        codes[i].Status = codes[i].EffectiveStatus(now, codes[i].Event.EndDate)
    }
    return codes, nil
}

// SearchEvents lists events matching q, by default only those that have
// not ended yet.
func (c *Catalog) SearchEvents(ctx context.Context, q repository.EventSearchQuery) ([]model.Event, int64, error) {
    return c.events.Search(ctx, c.clock.Now(), q)
}

// Event returns one event by id.
func (c *Catalog) Event(ctx context.Context, id uint64) (model.Event, error) {
    e, err := c.events.GetByID(ctx, id)
    if errors.Is(err, repository.ErrNotFound) {
        return model.Event{}, ErrEventNotFound
    }
    return e, err
}
