// Package feature computes the fixed-shape numeric feature vectors that feed
// both slot ranking and model training. It is intentionally small and
// dependency-free, but engineered with production-grade ergonomics:
//
//   - No logging and no clock reads: "now" is always an explicit argument,
//     so identical inputs always produce bit-identical vectors
//   - A fixed, ordered vector shape shared by serving and training
//     (training rows are rebuilt from the same columns, in the same order,
//     which is what keeps the model free of training-serving skew)
//   - Deterministic tie handling (most-frequent hour/day ties resolve to the
//     smallest value)
//
// All timestamps are evaluated in UTC; callers that store local times must
// normalize before declaring slots.
package feature

import (
	"time"

	"github.com/carebook/go-booking-backend/internal/domain"
)

const (
	// Dim is the width of every feature vector.
	Dim = 5

	// NoHistoryHourDiff marks "no booking history" in the hour_diff channel.
	// The numeric channel never carries nulls; this constant matches the
	// value recorded by every historical log row, so old and new training
	// data stay comparable.
	NoHistoryHourDiff = 999.0

	// DefaultRecentWindowDays bounds the engagement-frequency window.
	DefaultRecentWindowDays = 90
)

// Slot is the candidate descriptor handed to the extractor: one bookable
// instant declared by a primary user.
type Slot struct {
	ID       string
	Time     time.Time
	IsBooked bool
}

// Vector is the fixed feature shape. Field order is the wire order: Values
// returns the fields positionally and the training pipeline reads the logged
// columns back in the same order.
type Vector struct {
	SameHour    int     // candidate hour == most frequent historical booking hour
	SameDow     int     // candidate weekday == most frequent historical weekday
	HourDiff    float64 // |hours since most recent booking|, NoHistoryHourDiff without history
	SlotIsFree  int     // 1 when the slot is not booked
	RecentCount int     // bookings with this provider inside the recent window
}

// Values returns the vector as an ordered float slice for model input.
func (v Vector) Values() [Dim]float64 {
	return [Dim]float64{
		float64(v.SameHour),
		float64(v.SameDow),
		v.HourDiff,
		float64(v.SlotIsFree),
		float64(v.RecentCount),
	}
}

// Extractor derives feature vectors from a pair's booking history.
// The zero value is not usable; construct with NewExtractor.
type Extractor struct {
	// RecentWindowDays is the lookback for RecentCount.
	RecentWindowDays int
}

// NewExtractor returns an Extractor with the default recent-bookings window.
func NewExtractor() *Extractor {
	return &Extractor{RecentWindowDays: DefaultRecentWindowDays}
}

// Extract computes the feature vector for one candidate slot given the
// pair's booking history. Cancelled bookings carry no preference signal and
// are ignored. The history slice may arrive in any order.
//
// Taken slots (IsBooked) are still extractable: they become negative
// training examples, they are just never offered to the end user.
func (e *Extractor) Extract(now time.Time, slot Slot, history []domain.Booking) Vector {
	v := Vector{
		HourDiff: NoHistoryHourDiff,
	}
	if !slot.IsBooked {
		v.SlotIsFree = 1
	}

	slotUTC := slot.Time.UTC()
	window := time.Duration(e.recentWindowDays()) * 24 * time.Hour

	var (
		hourCounts [24]int
		dowCounts  [7]int
		latest     time.Time
		seen       bool
	)
	for _, b := range history {
		if b.Status == domain.StatusCancelled {
			continue
		}
		start := b.StartTime.UTC()
		hourCounts[start.Hour()]++
		dowCounts[int(start.Weekday())]++
		if !seen || start.After(latest) {
			latest = start
			seen = true
		}
		if !start.After(now) && now.Sub(start) <= window {
			v.RecentCount++
		}
	}
	if !seen {
		return v
	}

	if slotUTC.Hour() == argmax(hourCounts[:]) {
		v.SameHour = 1
	}
	if int(slotUTC.Weekday()) == argmax(dowCounts[:]) {
		v.SameDow = 1
	}

	diff := slotUTC.Sub(latest).Hours()
	if diff < 0 {
		diff = -diff
	}
	v.HourDiff = diff
	return v
}

func (e *Extractor) recentWindowDays() int {
	if e.RecentWindowDays > 0 {
		return e.RecentWindowDays
	}
	return DefaultRecentWindowDays
}

// argmax returns the index of the largest count; ties resolve to the lowest
// index so extraction stays deterministic.
func argmax(counts []int) int {
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return best
}
