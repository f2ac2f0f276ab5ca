package model

import "time"

// Payment order states.
const (
    OrderStatusPending = "PENDING"
    OrderStatusPaid    = "PAID"
    OrderStatusFailed  = "FAILED"
)

// PaymentOrder is a gateway checkout started by a user for one code.  The
// requested preferences travel with the order so the code can be issued
// when the gateway reports completion.
//
// Fields:
//  ID          – primary key identifier.
//  TradeNo     – merchant trade number sent to the gateway (unique).
//  UserID      – purchaser.
//  EventID     – event the code will be issued for.
//  Preferences – preferences captured at checkout.
//  AmountTWD   – charged amount.
//  Status      – PENDING, PAID or FAILED.
//  GatewayRef  – gateway transaction number once paid.
//  PaidAt      – when the gateway confirmed payment.
//  CreatedAt   – timestamp of creation.
type PaymentOrder struct {
    ID          uint64      // payment_orders.id
    TradeNo     string      // payment_orders.trade_no
    UserID      uint64      // payment_orders.user_id
    EventID     uint64      // payment_orders.event_id
    Preferences Preferences // payment_orders.preferences (JSON)
    AmountTWD   int         // payment_orders.amount_twd
    Status      string      // payment_orders.status
    GatewayRef  *string     // payment_orders.gateway_ref (nullable)
    PaidAt      *time.Time  // payment_orders.paid_at (nullable)
    CreatedAt   time.Time   // payment_orders.created_at
}

// PointEntry is one row of the loyalty points ledger.  Negative deltas are
// debits.
type PointEntry struct {
    ID        uint64    // point_ledger.id
    UserID    uint64    // point_ledger.user_id
    Delta     int64     // point_ledger.delta
    Reason    string    // point_ledger.reason
    CreatedAt time.Time // point_ledger.created_at
}
