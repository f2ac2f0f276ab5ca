package service

import "errors"

// Domain failures returned by the services.  Handlers map them to HTTP
// statuses; anything not listed here is an internal error.
var (
    ErrInvalidPreferences        = errors.New("invalid preferences")
    ErrMissingParameters         = errors.New("missing required parameters")
    ErrEventNotFound             = errors.New("event not found")
    ErrEventExpired              = errors.New("event has ended")
    ErrCodeNotFound              = errors.New("invalid code or no access")
    ErrCodeExpired               = errors.New("code expired")
    ErrCodeAlreadyIssued         = errors.New("a code for this event was already issued")
    ErrUserNotFound              = errors.New("user not found")
    ErrNoAPIKeyConfigured        = errors.New("no external API key configured")
    ErrBindingConflict           = errors.New("code is bound to a different account")
    ErrModificationLimitExceeded = errors.New("modification limit reached")
    ErrInsufficientPoints        = errors.New("insufficient points")
    ErrInvalidPrice              = errors.New("points price must be positive")
    ErrUnknownPurchase           = errors.New("unknown payment outcome")
    ErrOrderNotFound             = errors.New("payment order not found")
    ErrOrderAlreadyProcessed     = errors.New("payment order already processed")
    ErrInvalidCheckMac           = errors.New("invalid check value")
    ErrPaymentMismatch           = errors.New("payment does not match order")
)
