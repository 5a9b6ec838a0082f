package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestReminderDueEvent_JSONShape(t *testing.T) {
	at := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	pref := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)

	b, err := json.Marshal(ReminderDueEvent{
		PrimaryUserID:   "p1",
		SecondaryUserID: "s1",
		PreferredSlot:   &pref,
		DueAt:           at,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"primary_user_id", "secondary_user_id", "preferred_slot", "due_at"} {
		if _, ok := m[k]; !ok {
			t.Fatalf("missing key %q in %s", k, b)
		}
	}

	// Without history the suggestion is omitted entirely.
	b, err = json.Marshal(ReminderDueEvent{PrimaryUserID: "p1", SecondaryUserID: "s1", DueAt: at})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	m = nil
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := m["preferred_slot"]; ok {
		t.Fatalf("expected preferred_slot omitted, got %s", b)
	}
}

func TestConsoleNotifier(t *testing.T) {
	var n Notifier = ConsoleNotifier{}
	err := n.ReminderDue(context.Background(), ReminderDueEvent{
		PrimaryUserID:   "p1",
		SecondaryUserID: "s1",
		DueAt:           time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("ReminderDue: %v", err)
	}
	if err := n.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
