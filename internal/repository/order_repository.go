package repository

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "time"

    "github.com/iliyamo/tixcode/internal/model"
)

// OrderRepo persists payment gateway orders.
type OrderRepo struct {
    db *sql.DB
}

// NewOrderRepo returns an OrderRepo bound to db.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// Create inserts a PENDING order and fills in its ID.
func (r *OrderRepo) Create(ctx context.Context, o *model.PaymentOrder) error {
    prefs, err := json.Marshal(o.Preferences)
    if err != nil {
        return err
    }
    const q = `INSERT INTO payment_orders (trade_no, user_id, event_id, preferences, amount_twd, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
    res, err := conn(ctx, r.db).ExecContext(ctx, q,
        o.TradeNo, o.UserID, o.EventID, string(prefs), o.AmountTWD, o.Status, o.CreatedAt)
    if err != nil {
        if _, dup := duplicateKey(err); dup {
            return ErrConflict
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    o.ID = uint64(id)
    return nil
}

// GetByTradeNo returns the order with the given merchant trade number.
func (r *OrderRepo) GetByTradeNo(ctx context.Context, tradeNo string) (model.PaymentOrder, error) {
    const q = `SELECT id, trade_no, user_id, event_id, preferences, amount_twd, status, gateway_ref, paid_at, created_at
        FROM payment_orders WHERE trade_no = ? LIMIT 1`
    var (
        o      model.PaymentOrder
        prefs  []byte
        ref    sql.NullString
        paidAt sql.NullTime
    )
    err := conn(ctx, r.db).QueryRowContext(ctx, q, tradeNo).Scan(
        &o.ID, &o.TradeNo, &o.UserID, &o.EventID, &prefs, &o.AmountTWD, &o.Status, &ref, &paidAt, &o.CreatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return model.PaymentOrder{}, ErrNotFound
    }
    if err != nil {
        return model.PaymentOrder{}, err
    }
    if err := json.Unmarshal(prefs, &o.Preferences); err != nil {
        return model.PaymentOrder{}, err
    }
    if ref.Valid {
        s := ref.String
        o.GatewayRef = &s
    }
    if paidAt.Valid {
        t := paidAt.Time
        o.PaidAt = &t
    }
    return o, nil
}

// MarkPaid moves a PENDING order to PAID.  It reports false when the order
// is not pending any more, so a replayed notification cannot pay twice.
func (r *OrderRepo) MarkPaid(ctx context.Context, tradeNo, gatewayRef string, paidAt time.Time) (bool, error) {
    const q = `UPDATE payment_orders SET status = 'PAID', gateway_ref = ?, paid_at = ?
        WHERE trade_no = ? AND status = 'PENDING'`
    res, err := conn(ctx, r.db).ExecContext(ctx, q, gatewayRef, paidAt, tradeNo)
    return affectedOne(res, err)
}

// MarkFailed moves a PENDING order to FAILED.
func (r *OrderRepo) MarkFailed(ctx context.Context, tradeNo string) (bool, error) {
    const q = `UPDATE payment_orders SET status = 'FAILED' WHERE trade_no = ? AND status = 'PENDING'`
    res, err := conn(ctx, r.db).ExecContext(ctx, q, tradeNo)
    return affectedOne(res, err)
}
