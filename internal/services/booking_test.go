package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carebook/go-booking-backend/internal/domain"
	"github.com/carebook/go-booking-backend/internal/model"
)

func strptr(s string) *string { return &s }

func TestConfirm_InvalidTimeRange(t *testing.T) {
	svc := &BookingService{DB: newServiceDB(t)}
	at := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	_, err := svc.Confirm(context.Background(), ConfirmParams{
		PrimaryUserID:   "p1",
		SecondaryUserID: "s1",
		StartTime:       at,
		EndTime:         at,
	})
	if !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("expected ErrInvalidTimeRange, got %v", err)
	}
}

func TestConfirm_ManualTimeWithoutSlot(t *testing.T) {
	svc := &BookingService{DB: newServiceDB(t)}
	at := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	b, err := svc.Confirm(context.Background(), ConfirmParams{
		PrimaryUserID:   "p1",
		SecondaryUserID: "s1",
		StartTime:       at,
		EndTime:         at.Add(30 * time.Minute),
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if b.ID == "" || b.Status != domain.StatusBooked {
		t.Fatalf("unexpected booking %+v", b)
	}
	if b.SlotID != nil {
		t.Fatalf("expected nil slot id, got %v", *b.SlotID)
	}
}

func TestConfirm_ConsumesSlotAndLabelsSession(t *testing.T) {
	db := newServiceDB(t)
	booking := &BookingService{DB: db}
	rec := NewRecommenderService(db, NewSlotCatalog(db), model.NewRegistry())
	ctx := context.Background()
	now := mondayMorning

	at := now.Add(24 * time.Hour)
	seedSlot(t, db, "slot-a", "p1", at, false)
	seedSlot(t, db, "slot-b", "p1", at.Add(time.Hour), false)

	session, _, err := rec.Recommend(ctx, "p1", "s1", now, 2)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	b, err := booking.Confirm(ctx, ConfirmParams{
		PrimaryUserID:   "p1",
		SecondaryUserID: "s1",
		SlotID:          strptr("slot-a"),
		StartTime:       at,
		EndTime:         at.Add(30 * time.Minute),
		SessionID:       session,
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if b.SlotID == nil || *b.SlotID != "slot-a" {
		t.Fatalf("unexpected booking slot %+v", b.SlotID)
	}

	var slot domain.AvailabilitySlot
	if err := db.First(&slot, "id = ?", "slot-a").Error; err != nil {
		t.Fatalf("load slot: %v", err)
	}
	if !slot.IsBooked {
		t.Fatal("expected slot to be consumed")
	}

	var row domain.RecommendationLogEntry
	if err := db.First(&row, "session_id = ? AND slot_id = ?", session, "slot-a").Error; err != nil {
		t.Fatalf("load log row: %v", err)
	}
	if !row.Chosen {
		t.Fatal("expected the confirmed slot's log row to be marked chosen")
	}
}

func TestConfirm_TakenSlotLeavesNothingBehind(t *testing.T) {
	db := newServiceDB(t)
	booking := &BookingService{DB: db}
	rec := NewRecommenderService(db, NewSlotCatalog(db), model.NewRegistry())
	ctx := context.Background()
	now := mondayMorning

	at := now.Add(24 * time.Hour)
	seedSlot(t, db, "contested", "p1", at, false)

	session, _, err := rec.Recommend(ctx, "p1", "s1", now, 1)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	// Someone else gets the slot first.
	if err := db.Model(&domain.AvailabilitySlot{}).
		Where("id = ?", "contested").
		Update("is_booked", true).Error; err != nil {
		t.Fatalf("take slot: %v", err)
	}

	_, err = booking.Confirm(ctx, ConfirmParams{
		PrimaryUserID:   "p1",
		SecondaryUserID: "s1",
		SlotID:          strptr("contested"),
		StartTime:       at,
		EndTime:         at.Add(30 * time.Minute),
		SessionID:       session,
	})
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}

	var bookings int64
	if err := db.Model(&domain.Booking{}).Count(&bookings).Error; err != nil {
		t.Fatalf("count bookings: %v", err)
	}
	if bookings != 0 {
		t.Fatalf("expected no booking rows, got %d", bookings)
	}

	var row domain.RecommendationLogEntry
	if err := db.First(&row, "session_id = ? AND slot_id = ?", session, "contested").Error; err != nil {
		t.Fatalf("load log row: %v", err)
	}
	if row.Chosen {
		t.Fatal("rejected confirmation must not label the log row")
	}
}

func TestConfirm_UnknownSlot(t *testing.T) {
	svc := &BookingService{DB: newServiceDB(t)}
	at := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	_, err := svc.Confirm(context.Background(), ConfirmParams{
		PrimaryUserID:   "p1",
		SecondaryUserID: "s1",
		SlotID:          strptr("ghost"),
		StartTime:       at,
		EndTime:         at.Add(30 * time.Minute),
	})
	if !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("expected ErrSlotNotFound, got %v", err)
	}
}

func TestCancel_ReleasesSlot(t *testing.T) {
	db := newServiceDB(t)
	svc := &BookingService{DB: db}
	ctx := context.Background()
	at := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	seedSlot(t, db, "slot-x", "p1", at, false)
	b, err := svc.Confirm(ctx, ConfirmParams{
		PrimaryUserID:   "p1",
		SecondaryUserID: "s1",
		SlotID:          strptr("slot-x"),
		StartTime:       at,
		EndTime:         at.Add(30 * time.Minute),
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	if err := svc.Cancel(ctx, b.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	var got domain.Booking
	if err := db.First(&got, "id = ?", b.ID).Error; err != nil {
		t.Fatalf("load booking: %v", err)
	}
	if got.Status != domain.StatusCancelled {
		t.Fatalf("expected cancelled status, got %s", got.Status)
	}

	var slot domain.AvailabilitySlot
	if err := db.First(&slot, "id = ?", "slot-x").Error; err != nil {
		t.Fatalf("load slot: %v", err)
	}
	if slot.IsBooked {
		t.Fatal("expected cancellation to release the slot")
	}
}

func TestCancel_UnknownBooking(t *testing.T) {
	svc := &BookingService{DB: newServiceDB(t)}
	if err := svc.Cancel(context.Background(), "missing"); !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestListPage_DefaultsAndTotals(t *testing.T) {
	db := newServiceDB(t)
	svc := &BookingService{DB: db}
	ctx := context.Background()

	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedPastBooking(t, db, "p1", "s1", base.AddDate(0, 0, i))
	}

	items, total, err := svc.ListPage(ctx, "p1", "s1", 0, -1)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 5 || len(items) != 5 {
		t.Fatalf("expected 5/5, got total=%d len=%d", total, len(items))
	}

	items, total, err = svc.ListPage(ctx, "p1", "s1", 2, 3)
	if err != nil {
		t.Fatalf("ListPage page 2: %v", err)
	}
	if total != 5 || len(items) != 2 {
		t.Fatalf("expected 2 items on page 2 of 3, got total=%d len=%d", total, len(items))
	}

	items, total, err = svc.ListPage(ctx, "p1", "nobody", 1, 10)
	if err != nil {
		t.Fatalf("ListPage empty pair: %v", err)
	}
	if total != 0 || len(items) != 0 {
		t.Fatalf("expected empty page, got total=%d len=%d", total, len(items))
	}
}
