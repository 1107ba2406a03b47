// Package queue contains the background consumer that listens to the slot
// events queue and appends one line per event to logs/booking.log.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DefaultLogPath is where StartBookingConsumer writes booking lines.
var DefaultLogPath = filepath.Join("logs", "booking.log")

// dialTimeout bounds TCP connect plus the AMQP handshake.
const dialTimeout = 5 * time.Second

// StartBookingConsumer connects to the broker at url, declares the slot
// events queue and consumes until ctx is cancelled.  Broken connections are
// re-dialed with exponential backoff capped at 30s.  Messages that cannot
// be handled are rejected without requeue.
func StartBookingConsumer(ctx context.Context, url string, log *zap.Logger) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.DialConfig(url, amqp.Config{
			Heartbeat: 10 * time.Second,
			Locale:    "en_US",
			Dial:      amqp.DefaultDial(dialTimeout),
		})
		if err != nil {
			log.Warn("booking consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("booking consumer: consume loop ended; reconnecting", zap.Error(err))
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

func consumeLoop(ctx context.Context, conn *amqp.Connection, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("booking consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(SlotEventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(SlotEventsQueue, "", false, false, false, false, nil)
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
			if err := appendToLog(DefaultLogPath, d.Body); err != nil {
				log.Error("booking consumer: handle message failed", zap.Error(err))
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func appendToLog(path string, body []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	return handleMessage(f, body)
}

// handleMessage decodes one event and writes its log line to w.
func handleMessage(w io.Writer, body []byte) error {
	var ev SlotEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.SlotID == 0 {
		return errors.New("event missing type or slot_id")
	}
	line := fmt.Sprintf("[%s] %s | slot_id=%d | user_id=%d | username=%q | category=%q | title=%q | start=%s | end=%s\n",
		ev.OccurredAt, ev.Type, ev.SlotID, ev.UserID, ev.Username, ev.Category, ev.Title, ev.StartTime, ev.EndTime)
	if _, err := io.WriteString(w, line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
