// Booking HTTP handlers.
//
// This file exposes REST endpoints for booking resources:
//   - POST   /bookings        (confirm an appointment, optionally from a recommendation)
//   - GET    /bookings        (list a pair's bookings, paginated)
//   - DELETE /bookings/{id}   (cancel)
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/carebook/go-booking-backend/internal/domain"
	"github.com/carebook/go-booking-backend/internal/services"
	"github.com/carebook/go-booking-backend/internal/utils"
)

//
// DTOs
//

// ConfirmBookingRequest is the JSON payload for confirming an appointment.
// SlotID and SessionID are set when the booking comes out of a recommendation
// flow; both may be omitted for manually entered times.
type ConfirmBookingRequest struct {
	PrimaryUserID   string    `json:"primary_user_id"   binding:"required"`
	SecondaryUserID string    `json:"secondary_user_id" binding:"required"`
	SlotID          *string   `json:"slot_id,omitempty"`
	StartTime       time.Time `json:"start_time"        binding:"required"`
	EndTime         time.Time `json:"end_time"          binding:"required"`
	SessionID       string    `json:"session_id,omitempty"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListBookingsResponse wraps a page of bookings and pagination information.
type ListBookingsResponse struct {
	Bookings   []domain.Booking `json:"bookings"`
	Pagination Pagination       `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

//
// Handlers
//

// ConfirmBooking creates a booking. A contested slot yields 409 with the
// slot_taken code and no side effects; the client is expected to request
// fresh recommendations.
func (h *Handlers) ConfirmBooking(c *gin.Context) {
	var req ConfirmBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	b, err := h.bookingSvc.Confirm(c.Request.Context(), services.ConfirmParams{
		PrimaryUserID:   strings.TrimSpace(req.PrimaryUserID),
		SecondaryUserID: strings.TrimSpace(req.SecondaryUserID),
		SlotID:          req.SlotID,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		SessionID:       strings.TrimSpace(req.SessionID),
	})
	switch {
	case err == nil:
		ok(c, http.StatusCreated, b)
	case errors.Is(err, services.ErrInvalidTimeRange):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "start_time must be before end_time")
	case errors.Is(err, services.ErrSlotNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "availability slot not found")
	case errors.Is(err, services.ErrSlotTaken):
		fail(c, http.StatusConflict, ErrCodeSlotTaken, "availability slot already booked")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// ListBookings returns a page of the pair's bookings, newest first.
func (h *Handlers) ListBookings(c *gin.Context) {
	primaryID := strings.TrimSpace(c.Query("primary_user_id"))
	secondaryID := strings.TrimSpace(c.Query("secondary_user_id"))
	if primaryID == "" || secondaryID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "primary_user_id and secondary_user_id are required")
		return
	}
	page, pageSize := clampPagination(c)

	items, total, err := h.bookingSvc.ListPage(c.Request.Context(), primaryID, secondaryID, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListBookingsResponse{
		Bookings: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// CancelBooking cancels a booking and releases its slot.
func (h *Handlers) CancelBooking(c *gin.Context) {
	bookingID := c.Param("id")
	if _, err := uuid.Parse(bookingID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "booking id must be a UUID")
		return
	}

	err := h.bookingSvc.Cancel(c.Request.Context(), bookingID)
	switch {
	case err == nil:
		noContent(c)
	case errors.Is(err, services.ErrBookingNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "booking not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
