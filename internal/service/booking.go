package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/timeslot-booking/internal/model"
	"github.com/iliyamo/timeslot-booking/internal/queue"
	"github.com/iliyamo/timeslot-booking/internal/repository"
)

// SlotTxBeginner opens row-locking transactions over time slots.
type SlotTxBeginner interface {
	BeginSlotTx(ctx context.Context) (repository.SlotTx, error)
}

// BookingCoordinator books and releases slots.  Every call runs in its own
// transaction and serialises on the slot's row lock, so there is no shared
// in-process state and several server instances may run side by side.
type BookingCoordinator struct {
	slots  SlotTxBeginner
	events Publisher
	log    *zap.Logger
	now    func() time.Time
}

// NewBookingCoordinator wires the coordinator.  A nil publisher disables
// events and a nil logger discards log output.
func NewBookingCoordinator(slots SlotTxBeginner, events Publisher, log *zap.Logger) *BookingCoordinator {
	if events == nil {
		events = NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingCoordinator{slots: slots, events: events, log: log, now: time.Now}
}

// Book makes who the holder of the slot.  It fails with ErrNotFound when
// the slot does not exist and ErrConflict when anyone, the caller included,
// already holds it.
func (b *BookingCoordinator) Book(ctx context.Context, slotID uint64, who model.Identity) (*model.TimeSlot, error) {
	ts, err := b.mutate(ctx, slotID, func(ts *model.TimeSlot) (*uint64, error) {
		if ts.IsBooked() {
			return nil, ErrConflict
		}
		holder := who.UserID
		return &holder, nil
	})
	if err != nil {
		b.log.Info("book rejected", zap.Uint64("slot_id", slotID), zap.Uint64("user_id", who.UserID), zap.Error(err))
		return nil, err
	}
	b.log.Info("slot booked", zap.Uint64("slot_id", slotID), zap.Uint64("user_id", who.UserID))
	b.publish(ctx, queue.EventSlotBooked, ts, who)
	return ts, nil
}

// Unbook clears the holder.  Only the current holder may release a slot;
// anyone else, including on a free slot, gets ErrForbidden.
func (b *BookingCoordinator) Unbook(ctx context.Context, slotID uint64, who model.Identity) (*model.TimeSlot, error) {
	ts, err := b.mutate(ctx, slotID, func(ts *model.TimeSlot) (*uint64, error) {
		if !ts.HeldBy(who.UserID) {
			return nil, ErrForbidden
		}
		return nil, nil
	})
	if err != nil {
		b.log.Info("unbook rejected", zap.Uint64("slot_id", slotID), zap.Uint64("user_id", who.UserID), zap.Error(err))
		return nil, err
	}
	b.log.Info("slot unbooked", zap.Uint64("slot_id", slotID), zap.Uint64("user_id", who.UserID))
	b.publish(ctx, queue.EventSlotUnbooked, ts, who)
	return ts, nil
}

// mutate locks the slot, asks decide for the new holder and commits.  Any
// error from decide or the datastore rolls the transaction back.
func (b *BookingCoordinator) mutate(ctx context.Context, slotID uint64, decide func(*model.TimeSlot) (*uint64, error)) (ts *model.TimeSlot, err error) {
	tx, err := b.slots.BeginSlotTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	ts, err = tx.LockSlot(ctx, slotID)
	if err != nil {
		if errors.Is(err, repository.ErrSlotNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock slot %d: %w", slotID, err)
	}

	holder, err := decide(ts)
	if err != nil {
		return nil, err
	}
	if err := tx.SetHolder(ctx, slotID, holder); err != nil {
		return nil, fmt.Errorf("set holder on slot %d: %w", slotID, err)
	}
	ts.BookedBy = holder
	if err := tx.Annotate(ctx, ts); err != nil {
		return nil, fmt.Errorf("annotate slot %d: %w", slotID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit slot %d: %w", slotID, err)
	}
	committed = true
	return ts, nil
}

// publish sends the event after commit.  Failures are logged only; the
// booking itself is already durable.
func (b *BookingCoordinator) publish(ctx context.Context, kind string, ts *model.TimeSlot, who model.Identity) {
	ev := queue.SlotEvent{
		Type:       kind,
		SlotID:     ts.ID,
		UserID:     who.UserID,
		Username:   who.Username,
		Category:   ts.CategoryName,
		Title:      ts.Title,
		StartTime:  ts.StartTime.UTC().Format(time.RFC3339),
		EndTime:    ts.EndTime.UTC().Format(time.RFC3339),
		OccurredAt: b.now().UTC().Format(time.RFC3339),
	}
	if err := b.events.Publish(ctx, ev); err != nil {
		b.log.Warn("publish slot event failed", zap.String("type", kind), zap.Uint64("slot_id", ts.ID), zap.Error(err))
	}
}
