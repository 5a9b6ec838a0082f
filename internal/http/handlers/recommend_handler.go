// Recommendation HTTP handlers.
//
// This file exposes the scoring surface of the API:
//   - POST /recommendations   (rank and return top-k free slots for a pair)
//   - POST /reminder-slots    (single "book the same time again" suggestion)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/carebook/go-booking-backend/internal/domain"
	"github.com/carebook/go-booking-backend/internal/model"
	"github.com/carebook/go-booking-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// RecommendService defines the slot-ranking operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type RecommendService interface {
	// Recommend returns a session id and the top-k ranked free slots.
	Recommend(ctx context.Context, primaryID, secondaryID string, now time.Time, k int) (string, []services.RecommendedSlot, error)
	// PreferredSlot returns the pair's habitual appointment time, nil without history.
	PreferredSlot(ctx context.Context, primaryID, secondaryID string) (*time.Time, error)
}

// BookingAPIService defines booking lifecycle operations consumed by HTTP
// handlers.
type BookingAPIService interface {
	// Confirm creates a booking, consuming a slot and labeling the session.
	Confirm(ctx context.Context, p services.ConfirmParams) (*domain.Booking, error)
	// Cancel transitions a booking to cancelled and releases its slot.
	Cancel(ctx context.Context, bookingID string) error
	// ListPage returns a page of the pair's bookings and the total count.
	ListPage(ctx context.Context, primaryID, secondaryID string, page, pageSize int) ([]domain.Booking, int64, error)
}

// ReminderAPIService defines reminder management operations consumed by HTTP
// handlers.
type ReminderAPIService interface {
	// SetInterval creates or updates the pair's reminder cadence.
	SetInterval(ctx context.Context, primaryID, secondaryID string, days int) (*domain.ReminderSetting, error)
	// Deactivate turns the pair's reminders off.
	Deactivate(ctx context.Context, primaryID, secondaryID string) error
	// DueReminders lists every pair due at the given instant.
	DueReminders(ctx context.Context, now time.Time) ([]services.DuePair, error)
}

// RetrainAPIService defines the admin-facing retraining operations.
type RetrainAPIService interface {
	// Retrain runs one full pipeline pass as of the given instant.
	Retrain(ctx context.Context, asOf time.Time) (*model.Generation, error)
	// State reports the pipeline's current phase.
	State() string
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for recommendations, bookings, reminders,
// and model administration. It depends on abstract service interfaces to keep
// transport concerns separate from business logic.
type Handlers struct {
	recoSvc     RecommendService
	bookingSvc  BookingAPIService
	reminderSvc ReminderAPIService
	retrainSvc  RetrainAPIService
	models      *model.Registry
}

// New constructs and returns a Handlers instance bound to the given services.
func New(reco RecommendService, booking BookingAPIService, reminder ReminderAPIService, retrain RetrainAPIService, models *model.Registry) *Handlers {
	return &Handlers{
		recoSvc:     reco,
		bookingSvc:  booking,
		reminderSvc: reminder,
		retrainSvc:  retrain,
		models:      models,
	}
}

//
// DTOs
//

// PairRequest identifies one (primary, secondary) user pair.
type PairRequest struct {
	PrimaryUserID   string `json:"primary_user_id"   binding:"required"`
	SecondaryUserID string `json:"secondary_user_id" binding:"required"`
}

// RecommendRequest is the JSON payload for requesting recommendations.
type RecommendRequest struct {
	PrimaryUserID   string `json:"primary_user_id"   binding:"required"`
	SecondaryUserID string `json:"secondary_user_id" binding:"required"`
	// K optionally overrides how many slots are returned.
	K int `json:"k"`
}

// RecommendResponse wraps a ranked page of slots and the session that groups
// them. Clients echo SessionID back when the user books one of the slots.
type RecommendResponse struct {
	SessionID       string                     `json:"session_id"`
	Recommendations []services.RecommendedSlot `json:"recommendations"`
}

// ReminderSlotResponse carries the single rebooking suggestion. PreferredSlot
// is null when the pair has no booking history.
type ReminderSlotResponse struct {
	PreferredSlot *time.Time `json:"preferred_slot"`
}

//
// Handlers
//

// Recommend ranks the primary user's free future slots for the pair and
// returns the top k, newest session first. An empty list is a normal response
// for a provider without free availability.
func (h *Handlers) Recommend(c *gin.Context) {
	var req RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "primary_user_id and secondary_user_id are required")
		return
	}

	session, slots, err := h.recoSvc.Recommend(c.Request.Context(),
		strings.TrimSpace(req.PrimaryUserID), strings.TrimSpace(req.SecondaryUserID),
		time.Now().UTC(), req.K)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, RecommendResponse{SessionID: session, Recommendations: slots})
}

// ReminderSlot returns the pair's "book the same time again" suggestion used
// by reminder notifications.
func (h *Handlers) ReminderSlot(c *gin.Context) {
	var req PairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "primary_user_id and secondary_user_id are required")
		return
	}

	preferred, err := h.recoSvc.PreferredSlot(c.Request.Context(),
		strings.TrimSpace(req.PrimaryUserID), strings.TrimSpace(req.SecondaryUserID))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, ReminderSlotResponse{PreferredSlot: preferred})
}
