package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/timeslot-booking/internal/queue"
)

// Publisher delivers slot events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, ev queue.SlotEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.SlotEvent) error { return nil }

var (
	// ErrPublishBacklog is returned when the outgoing event buffer is full.
	ErrPublishBacklog = errors.New("event backlog full")
	// ErrPublisherClosed is returned by Publish after Close.
	ErrPublisherClosed = errors.New("publisher closed")
)

const (
	defaultDialTimeout    = 3 * time.Second
	defaultPublishTimeout = 5 * time.Second
	defaultBacklog        = 256
)

// RabbitPublisher queues events in memory and sends them from a single
// background goroutine, so Publish never waits on the broker.  Events that
// cannot be delivered are logged and dropped.
type RabbitPublisher struct {
	url            string
	log            *zap.Logger
	dialTimeout    time.Duration
	publishTimeout time.Duration

	events chan queue.SlotEvent
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once

	// owned by run
	conn *amqp.Connection
}

// RabbitOption tunes a RabbitPublisher.
type RabbitOption func(*RabbitPublisher)

// WithDialTimeout bounds TCP connect plus the AMQP handshake.
func WithDialTimeout(d time.Duration) RabbitOption {
	return func(p *RabbitPublisher) { p.dialTimeout = d }
}

// WithBacklog sets how many events may wait for delivery.
func WithBacklog(n int) RabbitOption {
	return func(p *RabbitPublisher) {
		if n > 0 {
			p.events = make(chan queue.SlotEvent, n)
		}
	}
}

// NewRabbitPublisher starts the sender for the broker at url.  Close stops it.
func NewRabbitPublisher(url string, log *zap.Logger, opts ...RabbitOption) *RabbitPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	p := &RabbitPublisher{
		url:            url,
		log:            log,
		dialTimeout:    defaultDialTimeout,
		publishTimeout: defaultPublishTimeout,
		events:         make(chan queue.SlotEvent, defaultBacklog),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	go p.run()
	return p
}

// Publish enqueues ev and returns immediately.
func (p *RabbitPublisher) Publish(ctx context.Context, ev queue.SlotEvent) error {
	select {
	case <-p.stop:
		return ErrPublisherClosed
	default:
	}
	select {
	case p.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrPublishBacklog
	}
}

// Close stops the sender after it has tried the events already queued and
// closes the broker connection.
func (p *RabbitPublisher) Close() error {
	p.once.Do(func() { close(p.stop) })
	<-p.done
	return nil
}

func (p *RabbitPublisher) run() {
	defer close(p.done)
	defer func() {
		if p.conn != nil {
			_ = p.conn.Close()
		}
	}()
	for {
		select {
		case ev := <-p.events:
			p.deliver(ev)
		case <-p.stop:
			p.drain()
			return
		}
	}
}

// drain tries the remaining events once; after the first failure the rest
// are dropped.
func (p *RabbitPublisher) drain() {
	for {
		select {
		case ev := <-p.events:
			if !p.deliver(ev) {
				if n := len(p.events); n > 0 {
					p.log.Warn("dropping queued slot events on shutdown", zap.Int("count", n))
				}
				return
			}
		default:
			return
		}
	}
}

func (p *RabbitPublisher) deliver(ev queue.SlotEvent) bool {
	if err := p.send(ev); err != nil {
		p.log.Warn("slot event not delivered",
			zap.String("type", ev.Type),
			zap.Uint64("slot_id", ev.SlotID),
			zap.Error(err))
		return false
	}
	return true
}

func (p *RabbitPublisher) connection() (*amqp.Connection, error) {
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn, nil
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(p.dialTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	p.conn = conn
	return conn, nil
}

// send declares the queue (idempotent) and publishes ev as persistent JSON
// on a fresh channel.
func (p *RabbitPublisher) send(ev queue.SlotEvent) error {
	conn, err := p.connection()
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue.SlotEventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.publishTimeout)
	defer cancel()
	return ch.PublishWithContext(ctx,
		"",                    // default exchange
		queue.SlotEventsQueue, // routing key = queue name
		false,                 // mandatory
		false,                 // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Type:         ev.Type,
			Body:         body,
		},
	)
}
