package queue

import (
    "context"
    "encoding/json"
    "log/slog"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends code events to RabbitMQ.  Each call dials its own
// connection; publish volume is one message per purchase or bind.
type Publisher struct {
    url    string
    logger *slog.Logger
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, logger *slog.Logger) *Publisher {
    return &Publisher{url: url, logger: logger}
}

// Publish wraps ev in an Envelope and publishes it as a persistent message
// on CodeEventsQueue.  Errors are logged and returned; callers treat
// publishing as best-effort.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
    env, err := NewEnvelope(ev, time.Now())
    if err != nil {
        return err
    }
    body, err := json.Marshal(env)
    if err != nil {
        return err
    }
    log := p.logger.With("queue", CodeEventsQueue, "type", env.Type, "message_id", env.ID)

    conn, err := amqp.Dial(p.url)
    if err != nil {
        log.Warn("rabbitmq: dial failed", "error", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Warn("rabbitmq: channel open failed", "error", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    if err := declare(ch); err != nil {
        log.Warn("rabbitmq: queue declare failed", "error", err)
        return err
    }

    err = ch.PublishWithContext(ctx,
        "",              // default exchange
        CodeEventsQueue, // routing key = queue name
        false,           // mandatory
        false,           // immediate
        amqp.Publishing{
            ContentType:  "application/json",
            DeliveryMode: amqp.Persistent,
            MessageId:    env.ID,
            Type:         env.Type,
            Timestamp:    env.OccurredAt,
            Body:         body,
        })
    if err != nil {
        log.Warn("rabbitmq: publish failed", "error", err)
        return err
    }
    return nil
}

// declare makes sure the durable queue exists.
func declare(ch *amqp.Channel) error {
    _, err := ch.QueueDeclare(CodeEventsQueue, true, false, false, false, nil)
    return err
}
