package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// StartAuditConsumer consumes CodeEventsQueue and writes one structured
// audit line per message.  It reconnects with exponential backoff until
// ctx is cancelled, then returns ctx.Err().
func StartAuditConsumer(ctx context.Context, url string, logger *slog.Logger) error {
    log := logger.With("component", "audit-consumer")
    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Warn("failed to dial broker", "error", err, "retry_in", backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = consumeLoop(ctx, conn, log)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Warn("consume loop ended, reconnecting", "error", err)
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, log *slog.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Warn("set QoS failed", "error", err)
    }
    if err := declare(ch); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(CodeEventsQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := handleMessage(log, d.Body); err != nil {
                log.Error("handle message failed", "error", err)
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func handleMessage(log *slog.Logger, body []byte) error {
    var env Envelope
    if err := json.Unmarshal(body, &env); err != nil {
        return fmt.Errorf("unmarshal envelope: %w", err)
    }
    attrs := []any{"message_id", env.ID, "occurred_at", env.OccurredAt}
    switch env.Type {
    case TypeCodeIssued:
        var ev CodeIssuedEvent
        if err := json.Unmarshal(env.Payload, &ev); err != nil {
            return fmt.Errorf("unmarshal %s: %w", env.Type, err)
        }
        attrs = append(attrs, "code", ev.CodePrefix, "owner_id", ev.OwnerID, "event_id", ev.EventID, "source", ev.Source)
        log.Info("code issued", attrs...)
    case TypeCodeBound:
        var ev CodeBoundEvent
        if err := json.Unmarshal(env.Payload, &ev); err != nil {
            return fmt.Errorf("unmarshal %s: %w", env.Type, err)
        }
        attrs = append(attrs, "code", ev.CodePrefix, "owner_id", ev.OwnerID, "device_id", ev.DeviceID)
        log.Info("code bound", attrs...)
    default:
        return fmt.Errorf("unknown message type %q", env.Type)
    }
    return nil
}
