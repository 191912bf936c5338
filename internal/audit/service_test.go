package audit

import (
	"context"
	"testing"
	"time"
)

func TestService_AppendRequiresType(t *testing.T) {
	svc := NewService(NewMemoryRepo(0))
	if err := svc.Append(context.Background(), Event{Username: "hod"}); err != ErrInvalidEvent {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestService_RecordStampsIDAndTime(t *testing.T) {
	repo := NewMemoryRepo(0)
	svc := NewService(repo)
	now := time.Unix(1700000000, 0)
	svc.clock = func() time.Time { return now }

	if err := svc.Record(context.Background(), EventLogin, "hod", "hod", ""); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	if evs[0].ID == "" {
		t.Fatalf("expected id")
	}
	if !evs[0].CreatedAt.Equal(now) {
		t.Fatalf("expected created_at %v, got %v", now, evs[0].CreatedAt)
	}
}

func TestMemoryRepo_DropsOldestPastCapacity(t *testing.T) {
	repo := NewMemoryRepo(2)
	svc := NewService(repo)
	ctx := context.Background()

	_ = svc.Record(ctx, EventLogin, "a", "", "")
	_ = svc.Record(ctx, EventRefresh, "a", "", "")
	_ = svc.Record(ctx, EventLogout, "a", "", "")

	evs := repo.Events()
	if len(evs) != 2 || evs[0].Type != EventRefresh || evs[1].Type != EventLogout {
		t.Fatalf("unexpected events: %+v", evs)
	}
}
