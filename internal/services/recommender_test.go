package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carebook/go-booking-backend/internal/domain"
	"github.com/carebook/go-booking-backend/internal/model"
)

// mondayMorning is a fixed Monday 08:00 UTC reference instant.
var mondayMorning = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

func newRecommender(t *testing.T) *RecommenderService {
	t.Helper()
	db := newServiceDB(t)
	return NewRecommenderService(db, NewSlotCatalog(db), model.NewRegistry())
}

func TestRecommend_PrefersHabitualHourAndDay(t *testing.T) {
	svc := newRecommender(t)
	ctx := context.Background()
	now := mondayMorning

	// History: three completed Monday 09:00 appointments.
	for w := 1; w <= 3; w++ {
		seedPastBooking(t, svc.DB, "p1", "s1",
			time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC).AddDate(0, 0, -7*w))
	}

	// Candidates next Monday: 09:00, 14:00, 18:00, all free.
	nextMonday := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	seedSlot(t, svc.DB, "slot-09", "p1", nextMonday.Add(9*time.Hour), false)
	seedSlot(t, svc.DB, "slot-14", "p1", nextMonday.Add(14*time.Hour), false)
	seedSlot(t, svc.DB, "slot-18", "p1", nextMonday.Add(18*time.Hour), false)

	session, out, err := svc.Recommend(ctx, "p1", "s1", now, 2)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if session == "" {
		t.Fatal("expected a session id")
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(out))
	}
	if out[0].SlotID != "slot-09" {
		t.Fatalf("expected the habitual-hour slot first, got %s", out[0].SlotID)
	}
	if out[0].Score <= out[1].Score {
		t.Fatalf("expected a strictly higher score for the top slot: %v vs %v", out[0].Score, out[1].Score)
	}
}

func TestRecommend_NeverReturnsBookedSlot(t *testing.T) {
	svc := newRecommender(t)
	ctx := context.Background()
	now := mondayMorning

	seedSlot(t, svc.DB, "taken", "p1", now.Add(24*time.Hour), true)
	seedSlot(t, svc.DB, "free", "p1", now.Add(48*time.Hour), false)

	_, out, err := svc.Recommend(ctx, "p1", "s1", now, 5)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(out) != 1 || out[0].SlotID != "free" {
		t.Fatalf("expected only the free slot, got %+v", out)
	}
}

func TestRecommend_AllBookedYieldsEmptyButLogs(t *testing.T) {
	svc := newRecommender(t)
	ctx := context.Background()
	now := mondayMorning

	seedSlot(t, svc.DB, "t1", "p1", now.Add(24*time.Hour), true)
	seedSlot(t, svc.DB, "t2", "p1", now.Add(48*time.Hour), true)

	session, out, err := svc.Recommend(ctx, "p1", "s1", now, 2)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no recommendations, got %+v", out)
	}
	if session == "" {
		t.Fatal("expected taken candidates to still be logged under a session")
	}

	var rows []domain.RecommendationLogEntry
	if err := svc.DB.Where("session_id = ?", session).Find(&rows).Error; err != nil {
		t.Fatalf("load log rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 logged candidates, got %d", len(rows))
	}
	for _, r := range rows {
		if r.Chosen {
			t.Fatalf("row %s logged as chosen", r.SlotID)
		}
		if r.SlotIsFree != 0 {
			t.Fatalf("row %s logged as free", r.SlotID)
		}
	}
}

func TestRecommend_NoCandidates(t *testing.T) {
	svc := newRecommender(t)

	session, out, err := svc.Recommend(context.Background(), "p1", "s1", mondayMorning, 2)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if session != "" {
		t.Fatalf("expected empty session id, got %q", session)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty result, got %+v", out)
	}
}

func TestRecommend_TieBreakIsDeterministic(t *testing.T) {
	svc := newRecommender(t)
	ctx := context.Background()
	now := mondayMorning

	// No history: every free slot scores identically, so ranking falls back
	// to slot_time then slot_id.
	at := now.Add(24 * time.Hour)
	seedSlot(t, svc.DB, "b-later", "p1", at.Add(time.Hour), false)
	seedSlot(t, svc.DB, "z-early", "p1", at, false)
	seedSlot(t, svc.DB, "a-early", "p1", at, false)

	for i := 0; i < 3; i++ {
		_, out, err := svc.Recommend(ctx, "p1", "s1", now, 3)
		if err != nil {
			t.Fatalf("Recommend run %d: %v", i, err)
		}
		if len(out) != 3 {
			t.Fatalf("run %d: expected 3 results, got %d", i, len(out))
		}
		if out[0].SlotID != "a-early" || out[1].SlotID != "z-early" || out[2].SlotID != "b-later" {
			t.Fatalf("run %d: unexpected order %s, %s, %s",
				i, out[0].SlotID, out[1].SlotID, out[2].SlotID)
		}
	}
}

func TestRecommend_DefaultK(t *testing.T) {
	svc := newRecommender(t)
	ctx := context.Background()
	now := mondayMorning

	for i, id := range []string{"s1", "s2", "s3", "s4"} {
		seedSlot(t, svc.DB, id, "p1", now.Add(time.Duration(i+1)*24*time.Hour), false)
	}

	_, out, err := svc.Recommend(ctx, "p1", "sec", now, 0)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected default of 2 recommendations, got %d", len(out))
	}
}

func TestMarkChosen_IdempotentAndGuarded(t *testing.T) {
	svc := newRecommender(t)
	ctx := context.Background()
	now := mondayMorning

	seedSlot(t, svc.DB, "c1", "p1", now.Add(24*time.Hour), false)
	seedSlot(t, svc.DB, "c2", "p1", now.Add(48*time.Hour), false)

	session, _, err := svc.Recommend(ctx, "p1", "s1", now, 2)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	if err := svc.MarkChosen(ctx, session, "c1"); err != nil {
		t.Fatalf("first MarkChosen: %v", err)
	}
	// Retry with the same arguments is a no-op.
	if err := svc.MarkChosen(ctx, session, "c1"); err != nil {
		t.Fatalf("repeated MarkChosen: %v", err)
	}
	// A different slot in a decided session is rejected.
	if err := svc.MarkChosen(ctx, session, "c2"); !errors.Is(err, ErrSessionDecided) {
		t.Fatalf("expected ErrSessionDecided, got %v", err)
	}

	var chosen int64
	if err := svc.DB.Model(&domain.RecommendationLogEntry{}).
		Where("session_id = ? AND chosen = ?", session, true).
		Count(&chosen).Error; err != nil {
		t.Fatalf("count chosen: %v", err)
	}
	if chosen != 1 {
		t.Fatalf("expected exactly one chosen row, got %d", chosen)
	}
}

func TestMarkChosen_UnknownSession(t *testing.T) {
	svc := newRecommender(t)
	err := svc.MarkChosen(context.Background(), "no-such-session", "no-such-slot")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestPreferredSlot(t *testing.T) {
	svc := newRecommender(t)
	ctx := context.Background()

	got, err := svc.PreferredSlot(ctx, "p1", "s1")
	if err != nil {
		t.Fatalf("PreferredSlot: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil without history, got %v", got)
	}

	older := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 5, 20, 15, 0, 0, 0, time.UTC)
	seedPastBooking(t, svc.DB, "p1", "s1", older)
	seedPastBooking(t, svc.DB, "p1", "s1", newer)

	got, err = svc.PreferredSlot(ctx, "p1", "s1")
	if err != nil {
		t.Fatalf("PreferredSlot: %v", err)
	}
	if got == nil || !got.Equal(newer) {
		t.Fatalf("expected %v, got %v", newer, got)
	}
}
