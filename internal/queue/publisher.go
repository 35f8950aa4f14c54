package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "log/slog"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/scholrhub/internal/lib/sl"
)

// Publisher sends moderation events.  It dials per event, so a broker
// outage never holds state in the API process.
type Publisher struct {
    url string
    log *slog.Logger
}

// NewPublisher returns nil when url is empty; a nil *Publisher drops events.
func NewPublisher(url string, log *slog.Logger) *Publisher {
    if url == "" {
        return nil
    }
    return &Publisher{url: url, log: log.With(slog.String("component", "moderation_publisher"))}
}

// PublishModerated sends ev as a persistent JSON message.  Errors are
// logged and returned so callers may ignore them.
func (p *Publisher) PublishModerated(ctx context.Context, ev ResourceModeratedEvent) error {
    if p == nil {
        return nil
    }
    if err := p.publish(ctx, ev); err != nil {
        p.log.Warn("publish moderation event", slog.Uint64("resource_id", ev.ResourceID), sl.Err(err))
        return err
    }
    return nil
}

func (p *Publisher) publish(ctx context.Context, ev ResourceModeratedEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    conn, err := amqp.Dial(p.url)
    if err != nil {
        return fmt.Errorf("dial: %w", err)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(ModerationQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    return ch.PublishWithContext(ctx, "", ModerationQueue, false, false, amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    })
}
