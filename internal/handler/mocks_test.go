package handler

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/timeslot-booking/internal/model"
	"github.com/iliyamo/timeslot-booking/internal/repository"
)

type mockBooker struct{ mock.Mock }

func (m *mockBooker) Book(ctx context.Context, id uint64, who model.Identity) (*model.TimeSlot, error) {
	args := m.Called(ctx, id, who)
	ts, _ := args.Get(0).(*model.TimeSlot)
	return ts, args.Error(1)
}

func (m *mockBooker) Unbook(ctx context.Context, id uint64, who model.Identity) (*model.TimeSlot, error) {
	args := m.Called(ctx, id, who)
	ts, _ := args.Get(0).(*model.TimeSlot)
	return ts, args.Error(1)
}

type mockQuery struct{ mock.Mock }

func (m *mockQuery) ListVisible(ctx context.Context, who model.Identity, week, category string) ([]model.TimeSlot, error) {
	args := m.Called(ctx, who, week, category)
	out, _ := args.Get(0).([]model.TimeSlot)
	return out, args.Error(1)
}

type mockPrefs struct{ mock.Mock }

func (m *mockPrefs) GetOrCreate(ctx context.Context, userID uint64) (*model.UserPreference, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).(*model.UserPreference)
	return p, args.Error(1)
}

func (m *mockPrefs) ReplaceCategories(ctx context.Context, userID uint64, ids []uint64) (*model.UserPreference, error) {
	args := m.Called(ctx, userID, ids)
	p, _ := args.Get(0).(*model.UserPreference)
	return p, args.Error(1)
}

type mockSlots struct{ mock.Mock }

func (m *mockSlots) List(ctx context.Context, f repository.SlotFilter) ([]model.TimeSlot, error) {
	args := m.Called(ctx, f)
	out, _ := args.Get(0).([]model.TimeSlot)
	return out, args.Error(1)
}

func (m *mockSlots) Create(ctx context.Context, ts *model.TimeSlot) error {
	args := m.Called(ctx, ts)
	return args.Error(0)
}

func (m *mockSlots) Update(ctx context.Context, ts *model.TimeSlot) error {
	args := m.Called(ctx, ts)
	return args.Error(0)
}

func (m *mockSlots) Delete(ctx context.Context, id uint64) error {
	return m.Called(ctx, id).Error(0)
}

type mockCategories struct{ mock.Mock }

func (m *mockCategories) ListAll(ctx context.Context) ([]model.Category, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]model.Category)
	return out, args.Error(1)
}

func (m *mockCategories) Create(ctx context.Context, c *model.Category) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCategories) Rename(ctx context.Context, id uint64, name string) error {
	return m.Called(ctx, id, name).Error(0)
}

func (m *mockCategories) Delete(ctx context.Context, id uint64) error {
	return m.Called(ctx, id).Error(0)
}

// memUsers and memTokens are small in-memory stores for the auth flow.
type memUsers struct {
	byID map[uint64]model.User
	next uint64
}

func newMemUsers() *memUsers { return &memUsers{byID: map[uint64]model.User{}, next: 1} }

func (s *memUsers) Create(_ context.Context, u repository.NewUser, cost int) (uint64, error) {
	for _, existing := range s.byID {
		if existing.Username == u.Username {
			return 0, repository.ErrUsernameExists
		}
	}
	hash, err := hashForTest(u.Password, cost)
	if err != nil {
		return 0, err
	}
	id := s.next
	s.next++
	s.byID[id] = model.User{ID: id, Username: u.Username, Email: u.Email, PasswordHash: hash, IsAdmin: u.IsAdmin, IsActive: true}
	return id, nil
}

func (s *memUsers) GetByUsername(_ context.Context, username string) (model.User, error) {
	for _, u := range s.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (s *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

type memToken struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

type memTokens struct {
	mu     sync.Mutex
	byHash map[string]*memToken
}

func (s *memTokens) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byHash[hash] = &memToken{userID: userID, exp: exp}
	return nil
}

func (s *memTokens) ConsumeRefresh(_ context.Context, hash string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byHash[hash]
	if !ok || t.revoked || time.Now().After(t.exp) {
		return 0, repository.ErrRefreshInvalid
	}
	t.revoked = true
	return t.userID, nil
}
