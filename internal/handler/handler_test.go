package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/timeslot-booking/internal/config"
	"github.com/iliyamo/timeslot-booking/internal/middleware"
	"github.com/iliyamo/timeslot-booking/internal/model"
	"github.com/iliyamo/timeslot-booking/internal/repository"
	"github.com/iliyamo/timeslot-booking/internal/service"
	"github.com/iliyamo/timeslot-booking/internal/utils"
)

const testSecret = "handler-secret"

var (
	alice = model.Identity{UserID: 1, Username: "alice"}
	admin = model.Identity{UserID: 99, Username: "admin", IsAdmin: true}
)

func hashForTest(plain string, cost int) (string, error) { return utils.HashPassword(plain, cost) }

type fixture struct {
	e       *echo.Echo
	booker  *mockBooker
	query   *mockQuery
	prefs   *mockPrefs
	slots   *mockSlots
	cats    *mockCategories
	users   *memUsers
	tokens  *memTokens
	authCfg config.Config
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		e:       echo.New(),
		booker:  &mockBooker{},
		query:   &mockQuery{},
		prefs:   &mockPrefs{},
		slots:   &mockSlots{},
		cats:    &mockCategories{},
		users:   newMemUsers(),
		tokens:  &memTokens{byHash: map[string]*memToken{}},
		authCfg: config.Config{JWTSecret: testSecret, AccessTTLMin: 5, RefreshTTLDays: 1, BcryptCost: 4},
	}
	t.Cleanup(func() {
		f.booker.AssertExpectations(t)
		f.query.AssertExpectations(t)
		f.prefs.AssertExpectations(t)
		f.slots.AssertExpectations(t)
		f.cats.AssertExpectations(t)
	})

	auth := NewAuthHandler(f.authCfg, f.users, f.tokens, f.prefs, nil)
	slotsH := NewTimeSlotHandler(f.query, f.booker, time.UTC, nil)
	prefsH := NewPreferenceHandler(f.prefs, nil)
	adminH := NewAdminHandler(f.slots, f.cats, time.UTC, nil)
	catsH := NewCategoryHandler(f.cats, nil)

	api := f.e.Group("/api")
	api.POST("/auth/register/", auth.Register)
	api.POST("/auth/token/", auth.Token)
	api.POST("/auth/token/refresh/", auth.Refresh)

	user := api.Group("", middleware.JWTAuth(testSecret))
	user.GET("/auth/me/", auth.Me)
	user.GET("/categories/", catsH.List)
	user.GET("/timeslots/", slotsH.List)
	user.POST("/book/:id/", slotsH.Book)
	user.POST("/unbook/:id/", slotsH.Unbook)
	user.GET("/preferences/", prefsH.Get)
	user.PUT("/preferences/", prefsH.Put)
	user.PATCH("/preferences/", prefsH.Patch)

	adm := api.Group("/admin", middleware.JWTAuth(testSecret), middleware.RequireAdmin())
	adm.POST("/timeslots/", adminH.CreateSlot)
	adm.DELETE("/timeslots/:id/", adminH.DeleteSlot)
	adm.POST("/categories/", adminH.CreateCategory)
	adm.DELETE("/categories/:id/", adminH.DeleteCategory)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, who *model.Identity, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if who != nil {
		tok, err := utils.NewAccessToken(testSecret, *who, 5)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func sampleSlot() *model.TimeSlot {
	start := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	holder := uint64(1)
	name := "alice"
	return &model.TimeSlot{
		ID: 5, CategoryID: 2, CategoryName: "Music", Title: "Jam",
		StartTime: start, EndTime: start.Add(time.Hour),
		BookedBy: &holder, BookedByUsername: &name,
	}
}

func TestBook_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"ok", nil, http.StatusOK},
		{"missing", service.ErrNotFound, http.StatusNotFound},
		{"taken", service.ErrConflict, http.StatusBadRequest},
		{"db down", assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := setup(t)
			var ret *model.TimeSlot
			if tc.err == nil {
				ret = sampleSlot()
			}
			f.booker.On("Book", mock.Anything, uint64(5), alice).Return(ret, tc.err).Once()

			rec := f.do(t, http.MethodPost, "/api/book/5/", &alice, nil)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestBook_ResponseShape(t *testing.T) {
	f := setup(t)
	f.booker.On("Book", mock.Anything, uint64(5), alice).Return(sampleSlot(), nil)

	rec := f.do(t, http.MethodPost, "/api/book/5/", &alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"id": 5, "category": 2, "category_name": "Music", "title": "Jam",
		"start_time": "2024-01-08T09:00:00Z", "end_time": "2024-01-08T10:00:00Z",
		"booked_by": 1, "booked_by_username": "alice"
	}`, rec.Body.String())
}

func TestUnbook_NotHolder(t *testing.T) {
	f := setup(t)
	f.booker.On("Unbook", mock.Anything, uint64(5), alice).Return(nil, service.ErrForbidden)

	rec := f.do(t, http.MethodPost, "/api/unbook/5/", &alice, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"You did not book this slot"}`, rec.Body.String())
}

func TestBook_RequiresAuth(t *testing.T) {
	f := setup(t)
	rec := f.do(t, http.MethodPost, "/api/book/5/", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBook_NonNumericID(t *testing.T) {
	f := setup(t)
	rec := f.do(t, http.MethodPost, "/api/book/abc/", &alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTimeSlots_PassesQuery(t *testing.T) {
	f := setup(t)
	f.query.On("ListVisible", mock.Anything, alice, "2024-01-10", "3").Return([]model.TimeSlot{*sampleSlot()}, nil)

	rec := f.do(t, http.MethodGet, "/api/timeslots/?week=2024-01-10&category=3", &alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Music", got[0]["category_name"])
}

func TestListTimeSlots_EmptyIsArray(t *testing.T) {
	f := setup(t)
	f.query.On("ListVisible", mock.Anything, alice, "", "").Return([]model.TimeSlot{}, nil)

	rec := f.do(t, http.MethodGet, "/api/timeslots/", &alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListTimeSlots_BadCategory(t *testing.T) {
	f := setup(t)
	f.query.On("ListVisible", mock.Anything, alice, "", "x").Return(nil, service.ErrValidation)

	rec := f.do(t, http.MethodGet, "/api/timeslots/?category=x", &alice, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreferences_GetCreatesLazily(t *testing.T) {
	f := setup(t)
	f.prefs.On("GetOrCreate", mock.Anything, alice.UserID).
		Return(&model.UserPreference{ID: 3, UserID: 1, Categories: []uint64{}}, nil)

	rec := f.do(t, http.MethodGet, "/api/preferences/", &alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":3,"user":1,"categories":[]}`, rec.Body.String())
}

func TestPreferences_Put(t *testing.T) {
	f := setup(t)
	f.prefs.On("ReplaceCategories", mock.Anything, alice.UserID, []uint64{1, 2}).
		Return(&model.UserPreference{ID: 3, UserID: 1, Categories: []uint64{1, 2}}, nil)

	rec := f.do(t, http.MethodPut, "/api/preferences/", &alice, map[string]interface{}{"categories": []uint64{1, 2}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":3,"user":1,"categories":[1,2]}`, rec.Body.String())
}

func TestPreferences_PutValidation(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodPut, "/api/preferences/", &alice, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"categories"`)

	rec = f.do(t, http.MethodPut, "/api/preferences/", &alice, map[string]interface{}{"categories": []int{0}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreferences_UnknownCategory(t *testing.T) {
	f := setup(t)
	f.prefs.On("ReplaceCategories", mock.Anything, alice.UserID, []uint64{42}).Return(nil, repository.ErrCategoryNotFound)

	rec := f.do(t, http.MethodPatch, "/api/preferences/", &alice, map[string]interface{}{"categories": []uint64{42}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreferences_PatchWithoutCategoriesIsNoop(t *testing.T) {
	f := setup(t)
	f.prefs.On("GetOrCreate", mock.Anything, alice.UserID).
		Return(&model.UserPreference{ID: 3, UserID: 1, Categories: []uint64{2}}, nil)

	rec := f.do(t, http.MethodPatch, "/api/preferences/", &alice, map[string]interface{}{})
	require.Equal(t, http.StatusOK, rec.Code)
	f.prefs.AssertNotCalled(t, "ReplaceCategories", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdmin_CreateSlot(t *testing.T) {
	f := setup(t)
	start := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	f.slots.On("Create", mock.Anything, mock.MatchedBy(func(ts *model.TimeSlot) bool {
		return ts.CategoryID == 2 && ts.Title == model.DefaultSlotTitle && ts.StartTime.Equal(start)
	})).Run(func(args mock.Arguments) {
		ts := args.Get(1).(*model.TimeSlot)
		ts.ID = 11
		ts.CategoryName = "Music"
	}).Return(nil)

	rec := f.do(t, http.MethodPost, "/api/admin/timeslots/", &admin, map[string]interface{}{
		"category":   2,
		"start_time": start.Format(time.RFC3339),
		"end_time":   start.Add(time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":11`)
	assert.Contains(t, rec.Body.String(), `"booked_by":null`)
}

func TestAdmin_CreateSlotRejectsBadInterval(t *testing.T) {
	f := setup(t)
	start := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)

	rec := f.do(t, http.MethodPost, "/api/admin/timeslots/", &admin, map[string]interface{}{
		"category":   2,
		"start_time": start.Format(time.RFC3339),
		"end_time":   start.Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"end_time":"gtfield"`)
}

func TestAdmin_ForbiddenForUsers(t *testing.T) {
	f := setup(t)
	rec := f.do(t, http.MethodDelete, "/api/admin/timeslots/1/", &alice, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdmin_DeleteMissingCategory(t *testing.T) {
	f := setup(t)
	f.cats.On("Delete", mock.Anything, uint64(7)).Return(repository.ErrCategoryNotFound)

	rec := f.do(t, http.MethodDelete, "/api/admin/categories/7/", &admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdmin_DuplicateCategory(t *testing.T) {
	f := setup(t)
	f.cats.On("Create", mock.Anything, &model.Category{Name: "Music"}).Return(repository.ErrNameExists)

	rec := f.do(t, http.MethodPost, "/api/admin/categories/", &admin, map[string]string{"name": " Music "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	f := setup(t)
	f.prefs.On("GetOrCreate", mock.Anything, uint64(1)).Return(&model.UserPreference{ID: 1, UserID: 1}, nil)

	rec := f.do(t, http.MethodPost, "/api/auth/register/", nil, map[string]string{
		"username": "dave", "email": "Dave@Example.com", "password": "longenough",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":1,"username":"dave","email":"dave@example.com"}`, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/auth/register/", nil, map[string]string{
		"username": "dave", "password": "longenough",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/auth/token/", nil, map[string]string{"username": "dave", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/auth/token/", nil, map[string]string{"username": "dave", "password": "longenough"})
	require.Equal(t, http.StatusOK, rec.Code)
	var pair tokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)

	who, err := utils.ParseAccessToken(testSecret, pair.Access)
	require.NoError(t, err)
	assert.Equal(t, model.Identity{UserID: 1, Username: "dave"}, who)

	rec = f.do(t, http.MethodGet, "/api/auth/me/", &who, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1,"username":"dave","email":"dave@example.com","is_staff":false}`, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/auth/token/refresh/", nil, map[string]string{"refresh": pair.Refresh})
	require.Equal(t, http.StatusOK, rec.Code)

	// the old refresh token was rotated out
	rec = f.do(t, http.MethodPost, "/api/auth/token/refresh/", nil, map[string]string{"refresh": pair.Refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCategories_List(t *testing.T) {
	f := setup(t)
	f.cats.On("ListAll", mock.Anything).Return([]model.Category{{ID: 1, Name: "Music"}, {ID: 2, Name: "Sports"}}, nil)

	rec := f.do(t, http.MethodGet, "/api/categories/", &alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":1,"name":"Music"},{"id":2,"name":"Sports"}]`, rec.Body.String())
}

func TestCategories_ListStoreFailure(t *testing.T) {
	f := setup(t)
	f.cats.On("ListAll", mock.Anything).Return(nil, errors.New("connection reset"))

	rec := f.do(t, http.MethodGet, "/api/categories/", &alice, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestRefresh_ConcurrentReuseIssuesOnce(t *testing.T) {
	f := setup(t)
	f.prefs.On("GetOrCreate", mock.Anything, uint64(1)).Return(&model.UserPreference{ID: 1, UserID: 1}, nil)

	rec := f.do(t, http.MethodPost, "/api/auth/register/", nil, map[string]string{"username": "erin", "password": "longenough"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/auth/token/", nil, map[string]string{"username": "erin", "password": "longenough"})
	require.Equal(t, http.StatusOK, rec.Code)
	var pair tokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))

	body, err := json.Marshal(map[string]string{"refresh": pair.Refresh})
	require.NoError(t, err)

	const callers = 8
	codes := make([]int, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/auth/token/refresh/", bytes.NewReader(body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			f.e.ServeHTTP(rec, req)
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, code := range codes {
		if code == http.StatusOK {
			ok++
		} else {
			assert.Equal(t, http.StatusUnauthorized, code)
		}
	}
	assert.Equal(t, 1, ok)
}
