package roster

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/linecrew/internal/models"
)

func openRosterTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Crew{}, &models.Worker{}, &models.CrewMembership{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestCurrentMembersCoversTheWholeWindow(t *testing.T) {
	db := openRosterTestDB(t)
	svc := New(db, zerolog.Nop())
	ctx := context.Background()

	d := func(value string) time.Time {
		day, err := time.Parse("2006-01-02", value)
		if err != nil {
			t.Fatalf("parse day: %v", err)
		}
		return models.Day(day)
	}

	ended := d("2026-01-15")
	lateEnd := d("2026-03-01")
	memberships := []models.CrewMembership{
		// Open-ended, started before the window.
		{ID: "m-a", CrewID: "crew-1", WorkerID: "worker-a", StartsOn: d("2025-06-01"), FirstRestOffsetDays: 4},
		// Ends mid-window: excluded, a generation run needs the full range.
		{ID: "m-b", CrewID: "crew-1", WorkerID: "worker-b", StartsOn: d("2025-06-01"), EndsOn: &ended},
		// Starts after the window opens: excluded.
		{ID: "m-c", CrewID: "crew-1", WorkerID: "worker-c", StartsOn: d("2026-01-10")},
		// Bounded but covering the window: included.
		{ID: "m-d", CrewID: "crew-1", WorkerID: "worker-d", StartsOn: d("2025-06-01"), EndsOn: &lateEnd, FirstRestOffsetDays: 2},
		// Different crew.
		{ID: "m-e", CrewID: "crew-2", WorkerID: "worker-e", StartsOn: d("2025-06-01")},
	}
	for _, m := range memberships {
		if err := db.Create(&m).Error; err != nil {
			t.Fatalf("seed membership: %v", err)
		}
	}

	members, err := svc.CurrentMembers(ctx, "crew-1", d("2026-01-01"), d("2026-01-31"))
	if err != nil {
		t.Fatalf("current members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("members: got %d want 2: %+v", len(members), members)
	}
	if members[0].WorkerID != "worker-a" || members[0].FirstRestOffsetDays != 4 {
		t.Fatalf("first member: %+v", members[0])
	}
	if members[1].WorkerID != "worker-d" || members[1].FirstRestOffsetDays != 2 {
		t.Fatalf("second member: %+v", members[1])
	}
}

func TestCurrentMembersEmptyCrew(t *testing.T) {
	db := openRosterTestDB(t)
	svc := New(db, zerolog.Nop())

	members, err := svc.CurrentMembers(context.Background(),
		"crew-1",
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("current members: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("expected no members, got %+v", members)
	}
}
