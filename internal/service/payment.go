package service

import (
    "context"
    "errors"
    "log/slog"
    "strconv"
    "time"

    "github.com/iliyamo/tixcode/internal/clock"
    "github.com/iliyamo/tixcode/internal/model"
    "github.com/iliyamo/tixcode/internal/repository"
    "github.com/iliyamo/tixcode/internal/utils"
)

// gatewayZone is the timezone the gateway formats its timestamps in.
var gatewayZone = time.FixedZone("Asia/Taipei", 8*60*60)

const gatewayTimeLayout = "2006/01/02 15:04:05"

// PaymentConfig holds merchant credentials and the code price.
type PaymentConfig struct {
    MerchantID string
    HashKey    string
    HashIV     string
    GatewayURL string
    NotifyURL  string
    ReturnURL  string
    PriceTWD   int
}

// Checkout is what the browser needs to post to the gateway.
type Checkout struct {
    Order      model.PaymentOrder
    GatewayURL string
    Fields     map[string]string
}

// Issuer mints a code for a completed purchase.
type Issuer interface {
    Issue(ctx context.Context, in IssueInput) (model.VerificationCode, error)
}

// PaymentService starts gateway checkouts and turns verified completion
// notifications into issued codes.
type PaymentService struct {
    cfg    PaymentConfig
    orders OrderStore
    events EventStore
    issuer Issuer
    clock  clock.Clock
    logger *slog.Logger
}

func NewPaymentService(cfg PaymentConfig, orders OrderStore, events EventStore, issuer Issuer, clk clock.Clock, logger *slog.Logger) *PaymentService {
    return &PaymentService{cfg: cfg, orders: orders, events: events, issuer: issuer, clock: clk, logger: logger}
}

// CreateOrder records a PENDING order carrying the requested preferences
// and returns the signed gateway form.
func (s *PaymentService) CreateOrder(ctx context.Context, userID, eventID uint64, p model.Preferences) (Checkout, error) {
    prefs, err := ValidatePreferences(p)
    if err != nil {
        return Checkout{}, err
    }
    event, err := s.events.GetByID(ctx, eventID)
    if errors.Is(err, repository.ErrNotFound) {
        return Checkout{}, ErrEventNotFound
    }
    if err != nil {
        return Checkout{}, err
    }
    now := s.clock.Now()
    if event.Ended(now) {
        return Checkout{}, ErrEventExpired
    }

    tradeNo, err := utils.GenerateCode("TX")
    if err != nil {
        return Checkout{}, err
    }
    order := model.PaymentOrder{
        TradeNo:     tradeNo,
        UserID:      userID,
        EventID:     event.ID,
        Preferences: prefs,
        AmountTWD:   s.cfg.PriceTWD,
        Status:      model.OrderStatusPending,
        CreatedAt:   now,
    }
    if err := s.orders.Create(ctx, &order); err != nil {
        return Checkout{}, err
    }

    fields := map[string]string{
        "MerchantID":        s.cfg.MerchantID,
        "MerchantTradeNo":   order.TradeNo,
        "MerchantTradeDate": now.In(gatewayZone).Format(gatewayTimeLayout),
        "PaymentType":       "aio",
        "TotalAmount":       strconv.Itoa(order.AmountTWD),
        "TradeDesc":         "verification code",
        "ItemName":          "Verification code - " + event.Name,
        "ReturnURL":         s.cfg.NotifyURL,
        "ClientBackURL":     s.cfg.ReturnURL,
        "ChoosePayment":     "ALL",
        "EncryptType":       "1",
    }
    fields[utils.CheckMacField] = utils.CheckMacValue(fields, s.cfg.HashKey, s.cfg.HashIV)
    s.logger.InfoContext(ctx, "payment order created", "user_id", userID, "event_id", event.ID, "trade_no", order.TradeNo)
    return Checkout{Order: order, GatewayURL: s.cfg.GatewayURL, Fields: fields}, nil
}

// HandleNotify processes a gateway completion callback.  A nil error means
// the gateway should be acknowledged, including for repeats of an already
// settled order.
func (s *PaymentService) HandleNotify(ctx context.Context, params map[string]string) error {
    if !utils.VerifyCheckMac(params, s.cfg.HashKey, s.cfg.HashIV) {
        return ErrInvalidCheckMac
    }
    tradeNo := params["MerchantTradeNo"]
    if tradeNo == "" {
        return ErrMissingParameters
    }
    order, err := s.orders.GetByTradeNo(ctx, tradeNo)
    if errors.Is(err, repository.ErrNotFound) {
        return ErrOrderNotFound
    }
    if err != nil {
        return err
    }
    log := s.logger.With("trade_no", tradeNo, "user_id", order.UserID, "event_id", order.EventID)
    if order.Status != model.OrderStatusPending {
        log.InfoContext(ctx, "duplicate payment notification", "status", order.Status)
        return nil
    }

    if params["RtnCode"] != "1" {
        log.WarnContext(ctx, "payment not successful", "rtn_code", params["RtnCode"], "rtn_msg", params["RtnMsg"])
        _, err := s.orders.MarkFailed(ctx, tradeNo)
        return err
    }
    if amt, err := strconv.Atoi(params["TradeAmt"]); err != nil || amt != order.AmountTWD {
        log.ErrorContext(ctx, "paid amount does not match order", "trade_amt", params["TradeAmt"], "amount", order.AmountTWD)
        return ErrPaymentMismatch
    }

    paidAt, err := time.ParseInLocation(gatewayTimeLayout, params["PaymentDate"], gatewayZone)
    if err != nil {
        paidAt = s.clock.Now()
    }
    _, err = s.issuer.Issue(ctx, IssueInput{
        OwnerID:     order.UserID,
        EventID:     order.EventID,
        Preferences: order.Preferences,
        Purchase: PurchaseOutcome{
            Kind:       PurchaseGateway,
            TradeNo:    tradeNo,
            GatewayRef: params["TradeNo"],
            PaidAt:     paidAt.UTC(),
        },
    })
    switch {
    case err == nil:
        return nil
    case errors.Is(err, ErrOrderAlreadyProcessed):
        return nil
    case errors.Is(err, ErrCodeAlreadyIssued), errors.Is(err, ErrEventExpired), errors.Is(err, ErrEventNotFound):
        // Money was taken but no code can exist; flag the order for a refund.
        log.ErrorContext(ctx, "paid order could not be fulfilled, refund required", "error", err)
        _, ferr := s.orders.MarkFailed(ctx, tradeNo)
        return ferr
    default:
        return err
    }
}
