package service

import (
    "context"
    "log/slog"

    "github.com/iliyamo/tixcode/internal/utils"
)

// BestEffort runs a non-critical side effect.  A failure is logged and
// discarded so the caller's primary result stands; the return value only
// reports whether fn succeeded.
func BestEffort(ctx context.Context, log *slog.Logger, op string, fn func(ctx context.Context) error, attrs ...any) bool {
    if err := fn(ctx); err != nil {
        log.WarnContext(ctx, "best-effort operation failed", append([]any{"op", op, "error", err}, attrs...)...)
        return false
    }
    return true
}

// CodePrefix is the only part of a code that may appear in logs and
// messages.
func CodePrefix(code string) string {
    return utils.MaskCode(code)
}
