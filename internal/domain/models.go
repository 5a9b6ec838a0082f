// Package domain defines the persistence models for appointment scheduling:
// reminder settings, bookings, availability slots, recommendation logs, and
// fitted model generations. These types are mapped with GORM and form the
// core data layer of the recommendation backend.
package domain

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Booking status values. A booking is created as StatusBooked; status
// transitions are the only permitted mutation, and a completed booking is
// immutable.
const (
	StatusBooked    = "booked"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// ReminderSetting configures periodic rebooking reminders for one
// (primary user, secondary user) pair. A row is created on the pair's first
// interaction and is never hard-deleted; deactivation flips Active to false.
//
// Fields:
//   - PrimaryUserID / SecondaryUserID: the pair, unique together.
//   - ReminderIntervalDays: days between reminders; must be positive.
//   - LastReminderSent: when the last reminder was dispatched, nil if never.
//   - Active: soft-deactivation flag.
type ReminderSetting struct {
	ID                   string     `json:"id"                     gorm:"type:char(36);primaryKey"`
	PrimaryUserID        string     `json:"primary_user_id"        gorm:"type:varchar(64);not null;uniqueIndex:ux_reminder_pair,priority:1"`
	SecondaryUserID      string     `json:"secondary_user_id"      gorm:"type:varchar(64);not null;uniqueIndex:ux_reminder_pair,priority:2"`
	ReminderIntervalDays int        `json:"reminder_interval_days" gorm:"not null;default:7;check:reminder_interval_days > 0"`
	LastReminderSent     *time.Time `json:"last_reminder_sent,omitempty"`
	Active               bool       `json:"active"                 gorm:"not null;default:true"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// TableName returns the database table name for ReminderSetting.
func (ReminderSetting) TableName() string { return "reminder_settings" }

// Booking represents one confirmed appointment between a primary and a
// secondary user. StartTime must precede EndTime.
//
// Fields:
//   - PrimaryUserID / SecondaryUserID: the participants; indexed as a pair
//     for history lookups.
//   - StartTime / EndTime: the appointment window.
//   - Status: booked, cancelled, or completed (enforced by DB constraint).
//   - SlotID: the availability slot consumed by this booking, nil when the
//     time was entered manually.
type Booking struct {
	ID              string         `json:"id"                gorm:"type:char(36);primaryKey"`
	PrimaryUserID   string         `json:"primary_user_id"   gorm:"type:varchar(64);not null;index:idx_booking_pair,priority:1"`
	SecondaryUserID string         `json:"secondary_user_id" gorm:"type:varchar(64);not null;index:idx_booking_pair,priority:2"`
	StartTime       time.Time      `json:"start_time"        gorm:"not null;index:idx_booking_pair,priority:3"`
	EndTime         time.Time      `json:"end_time"          gorm:"not null"`
	Status          string         `json:"status"            gorm:"type:varchar(16);not null;default:'booked';check:status IN ('booked','cancelled','completed')"`
	SlotID          *string        `json:"slot_id,omitempty" gorm:"type:char(36);index"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-"                 gorm:"index"`
}

// TableName returns the database table name for Booking.
func (Booking) TableName() string { return "bookings" }

// AvailabilitySlot is a provider-declared bookable instant. IsBooked flips
// true exactly once, when a booking is confirmed against the slot, and flips
// back only through explicit cancellation of that booking.
type AvailabilitySlot struct {
	ID            string    `json:"id"              gorm:"type:char(36);primaryKey"`
	PrimaryUserID string    `json:"primary_user_id" gorm:"type:varchar(64);not null;index:idx_slot_provider,priority:1"`
	SlotTime      time.Time `json:"slot_time"       gorm:"not null;index:idx_slot_provider,priority:2"`
	IsBooked      bool      `json:"is_booked"       gorm:"not null;default:false"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for AvailabilitySlot.
func (AvailabilitySlot) TableName() string { return "avail_slots" }

// RecommendationLogEntry records one candidate slot shown during a
// recommendation event. All candidates of one event share a SessionID; the
// Chosen flag is flipped in place, at most once per session, when the user
// confirms a booking. Rows are append-mostly and form the supervised
// training set for the ranking model: unchosen rows are the negative
// examples.
//
// The feature columns must match feature.Vector field-for-field; the training
// pipeline reads them back positionally.
type RecommendationLogEntry struct {
	ID              string    `json:"id"                gorm:"type:char(36);primaryKey"`
	SessionID       string    `json:"session_id"        gorm:"type:char(36);not null;uniqueIndex:ux_log_session_slot,priority:1"`
	PrimaryUserID   string    `json:"primary_user_id"   gorm:"type:varchar(64);not null;index"`
	SecondaryUserID string    `json:"secondary_user_id" gorm:"type:varchar(64);not null;index"`
	SlotID          string    `json:"slot_id"           gorm:"type:char(36);not null;uniqueIndex:ux_log_session_slot,priority:2"`
	SlotTime        time.Time `json:"slot_time"         gorm:"not null"`
	SameHour        int       `json:"same_hour"         gorm:"not null"`
	SameDow         int       `json:"same_dow"          gorm:"not null"`
	HourDiff        float64   `json:"hour_diff"         gorm:"not null"`
	SlotIsFree      int       `json:"slot_is_free"      gorm:"not null"`
	RecentCount     int       `json:"recent_count"      gorm:"not null"`
	Chosen          bool      `json:"chosen"            gorm:"not null;default:false"`
	CreatedAt       time.Time `json:"created_at"        gorm:"index"`
}

// TableName returns the database table name for RecommendationLogEntry.
func (RecommendationLogEntry) TableName() string { return "recommendation_logs" }

// ModelGeneration is one fitted, versioned instance of the ranking model.
// Generations are immutable once written; at most one row is active, and
// activation is a transactional flip (deactivate old, activate new) so the
// serving layer never observes a half-swapped state.
//
// Weights holds the logistic-regression coefficients as a JSON array in
// feature.Vector field order.
type ModelGeneration struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	Version     int            `json:"version"      gorm:"not null;uniqueIndex"`
	Weights     datatypes.JSON `json:"weights"      gorm:"not null"`
	Bias        float64        `json:"bias"         gorm:"not null"`
	TrainedRows int            `json:"trained_rows" gorm:"not null"`
	Accuracy    float64        `json:"accuracy"     gorm:"not null"`
	Active      bool           `json:"active"       gorm:"not null;default:false;index"`
	TrainedAt   time.Time      `json:"trained_at"   gorm:"not null"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TableName returns the database table name for ModelGeneration.
func (ModelGeneration) TableName() string { return "model_generations" }
