package service

import (
    "context"
    "time"

    "github.com/iliyamo/tixcode/internal/model"
    "github.com/iliyamo/tixcode/internal/queue"
    "github.com/iliyamo/tixcode/internal/repository"
)

// TxRunner runs fn in a transaction carried by the context passed to it.
type TxRunner interface {
    WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CodeStore is the verification code persistence the services need.
// Lookups and writes are scoped by owner and report repository.ErrNotFound
// for both missing and foreign codes.
type CodeStore interface {
    Insert(ctx context.Context, c *model.VerificationCode) error
    GetOwned(ctx context.Context, code string, ownerID uint64) (model.VerificationCode, error)
    Bind(ctx context.Context, code string, ownerID uint64, b model.Binding) (bool, error)
    UpdatePreferences(ctx context.Context, code string, ownerID uint64, p model.Preferences, now time.Time) (bool, error)
    IncrementUsage(ctx context.Context, code string, ownerID uint64, now time.Time) error
    ListByOwner(ctx context.Context, ownerID uint64) ([]model.OwnedCode, error)
    MarkExpired(ctx context.Context, now time.Time) (int64, error)
    PurgeEndedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventStore reads events.
type EventStore interface {
    GetByID(ctx context.Context, id uint64) (model.Event, error)
    Search(ctx context.Context, now time.Time, q repository.EventSearchQuery) ([]model.Event, int64, error)
}

// UserStore reads users and debits their points.
type UserStore interface {
    GetByID(ctx context.Context, id uint64) (model.User, error)
    DebitPoints(ctx context.Context, id uint64, amount int64, reason string) (bool, error)
}

// OrderStore persists payment gateway orders.
type OrderStore interface {
    Create(ctx context.Context, o *model.PaymentOrder) error
    GetByTradeNo(ctx context.Context, tradeNo string) (model.PaymentOrder, error)
    MarkPaid(ctx context.Context, tradeNo, gatewayRef string, paidAt time.Time) (bool, error)
    MarkFailed(ctx context.Context, tradeNo string) (bool, error)
}

// Publisher delivers code lifecycle events to the broker.
type Publisher interface {
    Publish(ctx context.Context, ev queue.Event) error
}
