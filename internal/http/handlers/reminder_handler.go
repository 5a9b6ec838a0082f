// Reminder HTTP handlers.
//
//   - PUT    /reminders      (set or update a pair's reminder interval)
//   - DELETE /reminders      (deactivate a pair's reminders)
//   - GET    /reminders/due  (pairs currently due; used by operators and tests)
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/carebook/go-booking-backend/internal/services"
)

// SetReminderRequest is the JSON payload for configuring reminders.
type SetReminderRequest struct {
	PrimaryUserID   string `json:"primary_user_id"   binding:"required"`
	SecondaryUserID string `json:"secondary_user_id" binding:"required"`
	// ReminderIntervalDays is the cadence in days; must be positive.
	ReminderIntervalDays int `json:"reminder_interval_days" binding:"required"`
}

// DueRemindersResponse wraps the pairs due at the evaluation instant.
type DueRemindersResponse struct {
	AsOf time.Time          `json:"as_of"`
	Due  []services.DuePair `json:"due"`
}

// SetReminder creates or updates the pair's reminder interval.
func (h *Handlers) SetReminder(c *gin.Context) {
	var req SetReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	set, err := h.reminderSvc.SetInterval(c.Request.Context(),
		strings.TrimSpace(req.PrimaryUserID), strings.TrimSpace(req.SecondaryUserID),
		req.ReminderIntervalDays)
	switch {
	case err == nil:
		ok(c, http.StatusOK, set)
	case errors.Is(err, services.ErrInvalidInterval):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "reminder_interval_days must be positive")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// DeleteReminder deactivates the pair's reminders. The setting is retained
// and revives on the next SetReminder.
func (h *Handlers) DeleteReminder(c *gin.Context) {
	primaryID := strings.TrimSpace(c.Query("primary_user_id"))
	secondaryID := strings.TrimSpace(c.Query("secondary_user_id"))
	if primaryID == "" || secondaryID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "primary_user_id and secondary_user_id are required")
		return
	}

	err := h.reminderSvc.Deactivate(c.Request.Context(), primaryID, secondaryID)
	switch {
	case err == nil:
		noContent(c)
	case errors.Is(err, services.ErrReminderNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "reminder setting not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// DueReminders reports the pairs due right now. The background sweep performs
// the actual dispatch; this read-only view exists for operators. An optional
// ?now=RFC3339 query pins the evaluation instant for dry runs.
func (h *Handlers) DueReminders(c *gin.Context) {
	now := time.Now().UTC()
	if raw := strings.TrimSpace(c.Query("now")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "now must be RFC3339")
			return
		}
		now = parsed.UTC()
	}
	due, err := h.reminderSvc.DueReminders(c.Request.Context(), now)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, DueRemindersResponse{AsOf: now, Due: due})
}
