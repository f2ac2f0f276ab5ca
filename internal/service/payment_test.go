package service

import (
    "context"
    "log/slog"
    "strconv"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/tixcode/internal/model"
    "github.com/iliyamo/tixcode/internal/utils"
)

var testPayment = PaymentConfig{
    MerchantID: "3002607", HashKey: "pwFHCqoQZGmho4w6", HashIV: "EkRm7iFT261dpevs",
    GatewayURL: "https://gateway.test/checkout", NotifyURL: "https://api.test/v1/payments/notify",
    ReturnURL: "https://app.test/codes", PriceTWD: 99,
}

func newPayments(h *harness) *PaymentService {
    return NewPaymentService(testPayment, memOrders{h.store}, memEvents{h.store}, h.issuance, h.clock, slog.New(slog.NewTextHandler(h.logs, nil)))
}

func notifyParams(order model.PaymentOrder, rtn string) map[string]string {
    p := map[string]string{
        "MerchantID":      testPayment.MerchantID,
        "MerchantTradeNo": order.TradeNo,
        "RtnCode":         rtn,
        "RtnMsg":          "Succeeded",
        "TradeNo":         "2610191200001",
        "TradeAmt":        strconv.Itoa(order.AmountTWD),
        "PaymentDate":     "2026/10/19 17:05:00",
    }
    p[utils.CheckMacField] = utils.CheckMacValue(p, testPayment.HashKey, testPayment.HashIV)
    return p
}

func TestCreateOrderSignsForm(t *testing.T) {
    h := newHarness()
    h.addUser(1, 0, "key")
    h.addEvent(10, t0.Add(time.Hour), "")

    co, err := newPayments(h).CreateOrder(context.Background(), 1, 10, model.Preferences{SessionIndex: 1, TicketCount: 2})
    require.NoError(t, err)
    assert.Equal(t, model.OrderStatusPending, co.Order.Status)
    assert.Equal(t, 99, co.Order.AmountTWD)
    assert.LessOrEqual(t, len(co.Order.TradeNo), 20)
    assert.Equal(t, "99", co.Fields["TotalAmount"])
    assert.Equal(t, "2026/10/19 17:00:00", co.Fields["MerchantTradeDate"])
    assert.True(t, utils.VerifyCheckMac(co.Fields, testPayment.HashKey, testPayment.HashIV))
    assert.Contains(t, h.store.orders, co.Order.TradeNo)
}

func TestHandleNotifyIssuesOnce(t *testing.T) {
    ctx := context.Background()
    h := newHarness()
    h.addUser(1, 0, "key")
    h.addEvent(10, t0.Add(time.Hour), "")
    svc := newPayments(h)

    co, err := svc.CreateOrder(ctx, 1, 10, model.Preferences{SeatKeywords: []string{"VIP"}, SessionIndex: 1, TicketCount: 2})
    require.NoError(t, err)

    params := notifyParams(co.Order, "1")
    require.NoError(t, svc.HandleNotify(ctx, params))
    require.NoError(t, svc.HandleNotify(ctx, params), "replayed notification is acknowledged")

    owned, err := h.catalog.ListOwned(ctx, 1)
    require.NoError(t, err)
    require.Len(t, owned, 1)
    assert.Equal(t, []string{"VIP"}, owned[0].Preferences.SeatKeywords)

    order := h.store.orders[co.Order.TradeNo]
    assert.Equal(t, model.OrderStatusPaid, order.Status)
    require.NotNil(t, order.PaidAt)
    assert.Equal(t, time.Date(2026, 10, 19, 9, 5, 0, 0, time.UTC), *order.PaidAt)
}

func TestHandleNotifyRejectsTampering(t *testing.T) {
    ctx := context.Background()
    h := newHarness()
    h.addUser(1, 0, "key")
    h.addEvent(10, t0.Add(time.Hour), "")
    svc := newPayments(h)
    co, err := svc.CreateOrder(ctx, 1, 10, model.Preferences{SessionIndex: 1, TicketCount: 1})
    require.NoError(t, err)

    params := notifyParams(co.Order, "1")
    params["TradeAmt"] = "1"
    assert.ErrorIs(t, svc.HandleNotify(ctx, params), ErrInvalidCheckMac)

    bad := co.Order
    bad.AmountTWD = 1
    assert.ErrorIs(t, svc.HandleNotify(ctx, notifyParams(bad, "1")), ErrPaymentMismatch)
    assert.Empty(t, h.store.codes)
}

func TestHandleNotifyFailedPayment(t *testing.T) {
    ctx := context.Background()
    h := newHarness()
    h.addUser(1, 0, "key")
    h.addEvent(10, t0.Add(time.Hour), "")
    svc := newPayments(h)
    co, err := svc.CreateOrder(ctx, 1, 10, model.Preferences{SessionIndex: 1, TicketCount: 1})
    require.NoError(t, err)

    require.NoError(t, svc.HandleNotify(ctx, notifyParams(co.Order, "10100058")))
    assert.Equal(t, model.OrderStatusFailed, h.store.orders[co.Order.TradeNo].Status)
    assert.Empty(t, h.store.codes)
}

func TestHandleNotifyFlagsUnfulfillableOrder(t *testing.T) {
    ctx := context.Background()
    h := newHarness()
    h.addUser(1, 500, "key")
    h.addEvent(10, t0.Add(time.Hour), "")
    svc := newPayments(h)
    co, err := svc.CreateOrder(ctx, 1, 10, model.Preferences{SessionIndex: 1, TicketCount: 1})
    require.NoError(t, err)
    _, err = h.issuePoints(1, 10, model.Preferences{SessionIndex: 1, TicketCount: 1})
    require.NoError(t, err)

    require.NoError(t, svc.HandleNotify(ctx, notifyParams(co.Order, "1")))
    assert.Equal(t, model.OrderStatusFailed, h.store.orders[co.Order.TradeNo].Status)
    assert.Contains(t, h.logs.String(), "refund required")
}
