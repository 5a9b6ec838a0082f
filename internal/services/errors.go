// Package services defines the business logic of the recommendation backend:
// slot cataloging, hybrid scoring, recommendation logging, booking
// confirmation, reminder planning, and model retraining. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import "errors"

// Not-found errors.
var (
	// ErrSessionNotFound indicates that a (session, slot) pair was never
	// logged — the session expired, was forged, or references a slot that
	// was not part of it.
	ErrSessionNotFound = errors.New("recommendation session not found")

	// ErrSlotNotFound indicates that the referenced availability slot does
	// not exist.
	ErrSlotNotFound = errors.New("availability slot not found")

	// ErrBookingNotFound indicates that the requested booking does not exist.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrReminderNotFound indicates that no reminder setting exists for the
	// requested pair.
	ErrReminderNotFound = errors.New("reminder setting not found")
)

// Validation errors.
var (
	// ErrSlotTaken is returned when a booking confirmation references a slot
	// that is already booked. The confirmation is rejected outright and no
	// recommendation log row is touched.
	ErrSlotTaken = errors.New("slot is already booked")

	// ErrInvalidInterval is returned when a reminder interval is not a
	// positive number of days.
	ErrInvalidInterval = errors.New("reminder interval must be positive")

	// ErrInvalidTimeRange is returned when a booking's start time is not
	// strictly before its end time.
	ErrInvalidTimeRange = errors.New("start time must precede end time")

	// ErrSessionDecided is returned when a confirmation tries to mark a
	// second slot chosen within one recommendation session.
	ErrSessionDecided = errors.New("session already has a chosen slot")
)

// Retraining errors.
var (
	// ErrInsufficientData is returned when the logged dataset is below the
	// minimum-size threshold; the retrain is skipped and the active
	// generation is left untouched.
	ErrInsufficientData = errors.New("not enough training data")

	// ErrModelRegression is returned when a freshly fitted generation
	// underperforms the active one beyond the configured margin; the new
	// generation is rolled back without ever serving.
	ErrModelRegression = errors.New("new model generation underperforms active one")

	// ErrRetrainInProgress is returned when a retrain is requested while
	// another one holds the pipeline; runs are never interleaved.
	ErrRetrainInProgress = errors.New("retrain already in progress")
)
