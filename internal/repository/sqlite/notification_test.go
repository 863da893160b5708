package sqlite

import (
	"context"
	"testing"

	"github.com/enfdev/letterbox/internal/model"
)

func TestNotificationAppendAndList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "3001", "notified")

	messages := []string{"first", "second", "third"}
	for _, m := range messages {
		n := &model.Notification{UserID: user.ID, Message: m}
		if err := db.Append(ctx, n); err != nil {
			t.Fatalf("Append(%q) error = %v", m, err)
		}
		if n.ID == "" {
			t.Error("Append() did not set notification ID")
		}
	}

	got, err := db.ListByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(got) != len(messages) {
		t.Fatalf("ListByUser() returned %d notifications, want %d", len(got), len(messages))
	}
	// Insertion order.
	for i, m := range messages {
		if got[i].Message != m {
			t.Errorf("notification %d message = %q, want %q", i, got[i].Message, m)
		}
		if got[i].Sent {
			t.Errorf("notification %d starts sent", i)
		}
	}
}

func TestNotificationMarkAllSent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "3002", "reader")
	other := createTestUser(t, db, "3003", "bystander")

	for _, target := range []*model.User{user, user, other} {
		if err := db.Append(ctx, &model.Notification{UserID: target.ID, Message: "ping"}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	if err := db.MarkAllSent(ctx, user.ID); err != nil {
		t.Fatalf("MarkAllSent() error = %v", err)
	}

	got, err := db.ListByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	for i, n := range got {
		if !n.Sent {
			t.Errorf("notification %d not marked sent", i)
		}
	}

	// Other users' notifications are untouched.
	othersGot, err := db.ListByUser(ctx, other.ID)
	if err != nil {
		t.Fatalf("ListByUser(other) error = %v", err)
	}
	if len(othersGot) != 1 || othersGot[0].Sent {
		t.Error("MarkAllSent() affected another user's notifications")
	}
}

func TestNotificationDeleteAllByUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "3004", "cleaner")
	other := createTestUser(t, db, "3005", "keeper")

	for _, target := range []*model.User{user, user, other} {
		if err := db.Append(ctx, &model.Notification{UserID: target.ID, Message: "msg"}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	if err := db.DeleteAllByUser(ctx, user.ID); err != nil {
		t.Fatalf("DeleteAllByUser() error = %v", err)
	}

	got, err := db.ListByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ListByUser() returned %d notifications after delete, want 0", len(got))
	}

	othersGot, err := db.ListByUser(ctx, other.ID)
	if err != nil {
		t.Fatalf("ListByUser(other) error = %v", err)
	}
	if len(othersGot) != 1 {
		t.Errorf("DeleteAllByUser() removed another user's notifications")
	}
}
