// Package queue also contains the background consumer that listens to the
// resource.moderated queue and appends one line per event to a log file.
package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/scholrhub/internal/lib/sl"
)

// DefaultLogPath is where moderation lines are appended.
var DefaultLogPath = filepath.Join("logs", "moderation.log")

// StartModerationConsumer consumes the moderation queue until ctx is done,
// reconnecting with exponential backoff (1s doubling up to 30s).  Messages
// that cannot be handled are rejected without requeue.
func StartModerationConsumer(ctx context.Context, url, logPath string, log *slog.Logger) error {
    log = log.With(slog.String("component", "moderation_consumer"))
    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Warn("dial broker failed", sl.Err(err), slog.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            backoff = min(backoff*2, 30*time.Second)
            continue
        }
        backoff = time.Second

        err = consumeLoop(ctx, conn, logPath, log)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Warn("consume loop ended, reconnecting", sl.Err(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logPath string, log *slog.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Warn("set QoS failed", sl.Err(err))
    }
    if _, err := ch.QueueDeclare(ModerationQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(ModerationQueue, "", false, false, false, false, nil)
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
            if err := HandleMessage(d.Body, logPath); err != nil {
                log.Error("handle message failed", sl.Err(err))
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// HandleMessage decodes one event and appends its line to logPath.
func HandleMessage(body []byte, logPath string) error {
    var ev ResourceModeratedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.ResourceID == 0 || ev.Action == "" {
        return errors.New("event missing resource_id or action")
    }
    if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatLine renders an event as a single log line ending in a newline.
func FormatLine(ev ResourceModeratedEvent) string {
    return fmt.Sprintf("[%s] Resource %s | resource_id=%d | title=%q | uploader_id=%d | moderator_id=%d\n",
        ev.At, ev.Action, ev.ResourceID, ev.Title, ev.UploaderID, ev.ModeratorID)
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
