package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/carebook/go-booking-backend/internal/domain"
	"github.com/carebook/go-booking-backend/internal/model"
	"github.com/carebook/go-booking-backend/internal/services"
)

//
// Hand-rolled fakes
//

type fakeReco struct {
	session string
	slots   []services.RecommendedSlot
	pref    *time.Time
	err     error
}

func (f *fakeReco) Recommend(context.Context, string, string, time.Time, int) (string, []services.RecommendedSlot, error) {
	return f.session, f.slots, f.err
}

func (f *fakeReco) PreferredSlot(context.Context, string, string) (*time.Time, error) {
	return f.pref, f.err
}

type fakeBooking struct {
	booking *domain.Booking
	err     error
}

func (f *fakeBooking) Confirm(context.Context, services.ConfirmParams) (*domain.Booking, error) {
	return f.booking, f.err
}

func (f *fakeBooking) Cancel(context.Context, string) error { return f.err }

func (f *fakeBooking) ListPage(context.Context, string, string, int, int) ([]domain.Booking, int64, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	if f.booking == nil {
		return []domain.Booking{}, 0, nil
	}
	return []domain.Booking{*f.booking}, 1, nil
}

type fakeReminder struct {
	setting *domain.ReminderSetting
	due     []services.DuePair
	err     error
}

func (f *fakeReminder) SetInterval(context.Context, string, string, int) (*domain.ReminderSetting, error) {
	return f.setting, f.err
}

func (f *fakeReminder) Deactivate(context.Context, string, string) error { return f.err }

func (f *fakeReminder) DueReminders(context.Context, time.Time) ([]services.DuePair, error) {
	return f.due, f.err
}

type fakeRetrain struct {
	gen   *model.Generation
	state string
	err   error
}

func (f *fakeRetrain) Retrain(context.Context, time.Time) (*model.Generation, error) {
	return f.gen, f.err
}

func (f *fakeRetrain) State() string { return f.state }

func newTestEngine(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/recommendations", h.Recommend)
	r.POST("/reminder-slots", h.ReminderSlot)
	r.POST("/bookings", h.ConfirmBooking)
	r.GET("/bookings", h.ListBookings)
	r.DELETE("/bookings/:id", h.CancelBooking)
	r.PUT("/reminders", h.SetReminder)
	r.DELETE("/reminders", h.DeleteReminder)
	r.GET("/reminders/due", h.DueReminders)
	r.POST("/admin/retrain", h.Retrain)
	r.GET("/admin/model", h.ModelInfo)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("error envelope: %v (%s)", err, w.Body.String())
	}
	return er.Code
}

//
// Recommend
//

func TestRecommend_BadRequest(t *testing.T) {
	h := New(&fakeReco{}, &fakeBooking{}, &fakeReminder{}, &fakeRetrain{}, model.NewRegistry())
	r := newTestEngine(h)

	w := do(r, http.MethodPost, "/recommendations", `{"primary_user_id":"p1"}`)
	if w.Code != http.StatusBadRequest || errCode(t, w) != ErrCodeBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestRecommend_ServiceError(t *testing.T) {
	h := New(&fakeReco{err: errors.New("db down")}, &fakeBooking{}, &fakeReminder{}, &fakeRetrain{}, model.NewRegistry())
	r := newTestEngine(h)

	w := do(r, http.MethodPost, "/recommendations", `{"primary_user_id":"p1","secondary_user_id":"s1"}`)
	if w.Code != http.StatusInternalServerError || errCode(t, w) != ErrCodeInternal {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestRecommend_OK(t *testing.T) {
	at := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	h := New(&fakeReco{
		session: "sess-1",
		slots:   []services.RecommendedSlot{{SlotID: "slot-1", SlotTime: at, Score: 0.9}},
	}, &fakeBooking{}, &fakeReminder{}, &fakeRetrain{}, model.NewRegistry())
	r := newTestEngine(h)

	w := do(r, http.MethodPost, "/recommendations", `{"primary_user_id":"p1","secondary_user_id":"s1","k":1}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp RecommendResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.SessionID != "sess-1" || len(resp.Recommendations) != 1 || resp.Recommendations[0].SlotID != "slot-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestReminderSlot_NullWithoutHistory(t *testing.T) {
	h := New(&fakeReco{}, &fakeBooking{}, &fakeReminder{}, &fakeRetrain{}, model.NewRegistry())
	r := newTestEngine(h)

	w := do(r, http.MethodPost, "/reminder-slots", `{"primary_user_id":"p1","secondary_user_id":"s1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("json: %v", err)
	}
	if v, ok := m["preferred_slot"]; !ok || v != nil {
		t.Fatalf("expected explicit null preferred_slot, got %v", m)
	}
}

//
// Bookings
//

func TestConfirmBooking_ErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		svcErr   error
		status   int
		wantCode string
	}{
		{"invalid range", services.ErrInvalidTimeRange, http.StatusBadRequest, ErrCodeBadRequest},
		{"slot missing", services.ErrSlotNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"slot taken", services.ErrSlotTaken, http.StatusConflict, ErrCodeSlotTaken},
		{"internal", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternal},
	}
	body := `{"primary_user_id":"p1","secondary_user_id":"s1","start_time":"2025-06-10T09:00:00Z","end_time":"2025-06-10T09:30:00Z"}`

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := New(&fakeReco{}, &fakeBooking{err: tc.svcErr}, &fakeReminder{}, &fakeRetrain{}, model.NewRegistry())
			r := newTestEngine(h)
			w := do(r, http.MethodPost, "/bookings", body)
			if w.Code != tc.status || errCode(t, w) != tc.wantCode {
				t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
			}
		})
	}
}

func TestConfirmBooking_InvalidJSON(t *testing.T) {
	h := New(&fakeReco{}, &fakeBooking{}, &fakeReminder{}, &fakeRetrain{}, model.NewRegistry())
	r := newTestEngine(h)

	w := do(r, http.MethodPost, "/bookings", `{"primary_user_id":`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestCancelBooking_Validation(t *testing.T) {
	h := New(&fakeReco{}, &fakeBooking{err: services.ErrBookingNotFound}, &fakeReminder{}, &fakeRetrain{}, model.NewRegistry())
	r := newTestEngine(h)

	// Not a UUID.
	w := do(r, http.MethodDelete, "/bookings/not-a-uuid", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}

	// Valid UUID but unknown booking.
	w = do(r, http.MethodDelete, "/bookings/"+uuid.NewString(), "")
	if w.Code != http.StatusNotFound || errCode(t, w) != ErrCodeNotFound {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestListBookings_RequiresPair(t *testing.T) {
	h := New(&fakeReco{}, &fakeBooking{}, &fakeReminder{}, &fakeRetrain{}, model.NewRegistry())
	r := newTestEngine(h)

	w := do(r, http.MethodGet, "/bookings?primary_user_id=p1", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

//
// Reminders
//

func TestSetReminder_InvalidInterval(t *testing.T) {
	h := New(&fakeReco{}, &fakeBooking{}, &fakeReminder{err: services.ErrInvalidInterval}, &fakeRetrain{}, model.NewRegistry())
	r := newTestEngine(h)

	w := do(r, http.MethodPut, "/reminders", `{"primary_user_id":"p1","secondary_user_id":"s1","reminder_interval_days":-1}`)
	if w.Code != http.StatusBadRequest || errCode(t, w) != ErrCodeBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestDeleteReminder_NotFound(t *testing.T) {
	h := New(&fakeReco{}, &fakeBooking{}, &fakeReminder{err: services.ErrReminderNotFound}, &fakeRetrain{}, model.NewRegistry())
	r := newTestEngine(h)

	w := do(r, http.MethodDelete, "/reminders?primary_user_id=p1&secondary_user_id=s1", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
}

//
// Admin
//

func TestRetrain_ConflictMapping(t *testing.T) {
	cases := []struct {
		name     string
		svcErr   error
		wantCode string
	}{
		{"insufficient", services.ErrInsufficientData, ErrCodeInsufficientData},
		{"regression", services.ErrModelRegression, ErrCodeModelRegression},
		{"in progress", services.ErrRetrainInProgress, ErrCodeRetrainInProgress},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := New(&fakeReco{}, &fakeBooking{}, &fakeReminder{}, &fakeRetrain{err: tc.svcErr}, model.NewRegistry())
			r := newTestEngine(h)
			w := do(r, http.MethodPost, "/admin/retrain", "")
			if w.Code != http.StatusConflict || errCode(t, w) != tc.wantCode {
				t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
			}
		})
	}
}

func TestModelInfo_ReflectsRegistry(t *testing.T) {
	reg := model.NewRegistry()
	h := New(&fakeReco{}, &fakeBooking{}, &fakeReminder{}, &fakeRetrain{state: "idle"}, reg)
	r := newTestEngine(h)

	w := do(r, http.MethodGet, "/admin/model", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var info ModelInfoResponse
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("json: %v", err)
	}
	if info.Active || info.State != "idle" {
		t.Fatalf("unexpected info: %+v", info)
	}

	reg.Activate(&model.Generation{Version: 3, TrainedRows: 120, Accuracy: 0.91, TrainedAt: time.Now().UTC()})
	w = do(r, http.MethodGet, "/admin/model", "")
	info = ModelInfoResponse{}
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !info.Active || info.Version != 3 {
		t.Fatalf("unexpected info: %+v", info)
	}
}
