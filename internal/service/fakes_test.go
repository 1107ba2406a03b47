package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/timeslot-booking/internal/model"
	"github.com/iliyamo/timeslot-booking/internal/queue"
	"github.com/iliyamo/timeslot-booking/internal/repository"
)

// memStore is an in-memory slot table with per-row exclusive locks held
// until commit or rollback, mirroring SELECT ... FOR UPDATE.
type memStore struct {
	mu         sync.Mutex
	rowLocks   map[uint64]*sync.Mutex
	rows       map[uint64]model.TimeSlot
	users      map[uint64]string
	categories map[uint64]string
	beginErr   error
}

func newMemStore() *memStore {
	return &memStore{
		rowLocks:   map[uint64]*sync.Mutex{},
		rows:       map[uint64]model.TimeSlot{},
		users:      map[uint64]string{},
		categories: map[uint64]string{},
	}
}

func (s *memStore) addSlot(ts model.TimeSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[ts.ID] = ts
	s.rowLocks[ts.ID] = &sync.Mutex{}
}

func (s *memStore) holder(id uint64) *uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id].BookedBy
}

func (s *memStore) BeginSlotTx(context.Context) (repository.SlotTx, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	return &memTx{s: s, writes: map[uint64]*uint64{}}, nil
}

// List implements SlotLister with the same filter semantics as the SQL.
func (s *memStore) List(_ context.Context, f repository.SlotFilter) ([]model.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[uint64]bool{}
	for _, id := range f.CategoryIDs {
		want[id] = true
	}
	out := make([]model.TimeSlot, 0)
	for _, ts := range s.rows {
		if !f.From.IsZero() && ts.StartTime.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !ts.StartTime.Before(f.To) {
			continue
		}
		if len(want) > 0 && !want[ts.CategoryID] {
			continue
		}
		ts.CategoryName = s.categories[ts.CategoryID]
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

type memTx struct {
	s      *memStore
	held   []*sync.Mutex
	writes map[uint64]*uint64
	done   bool
}

func (t *memTx) LockSlot(_ context.Context, id uint64) (*model.TimeSlot, error) {
	t.s.mu.Lock()
	l, ok := t.s.rowLocks[id]
	t.s.mu.Unlock()
	if !ok {
		return nil, repository.ErrSlotNotFound
	}
	l.Lock()
	t.held = append(t.held, l)

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	ts := t.s.rows[id]
	if ts.BookedBy != nil {
		h := *ts.BookedBy
		ts.BookedBy = &h
	}
	return &ts, nil
}

func (t *memTx) SetHolder(_ context.Context, id uint64, holder *uint64) error {
	t.writes[id] = holder
	return nil
}

func (t *memTx) Annotate(_ context.Context, ts *model.TimeSlot) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	ts.CategoryName = t.s.categories[ts.CategoryID]
	ts.BookedByUsername = nil
	if ts.BookedBy != nil {
		name := t.s.users[*ts.BookedBy]
		ts.BookedByUsername = &name
	}
	return nil
}

func (t *memTx) Commit() error {
	if t.done {
		return errors.New("tx already finished")
	}
	t.s.mu.Lock()
	for id, h := range t.writes {
		row := t.s.rows[id]
		row.BookedBy = h
		t.s.rows[id] = row
	}
	t.s.mu.Unlock()
	t.release()
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.release()
	return nil
}

func (t *memTx) release() {
	t.done = true
	for _, l := range t.held {
		l.Unlock()
	}
	t.held = nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.SlotEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.SlotEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type mockPrefs struct{ mock.Mock }

func (m *mockPrefs) CategoryIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	args := m.Called(ctx, userID)
	ids, _ := args.Get(0).([]uint64)
	return ids, args.Error(1)
}
