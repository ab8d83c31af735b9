package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/linecrew/internal/composition"
	"github.com/friendsincode/linecrew/internal/generation"
	"github.com/friendsincode/linecrew/internal/hours"
	"github.com/friendsincode/linecrew/internal/models"
	"github.com/friendsincode/linecrew/internal/roster"
	"github.com/friendsincode/linecrew/internal/store"
)

type lifecycleFixture struct {
	db  *gorm.DB
	st  *store.Store
	gen *generation.Service
	svc *Service
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Crew{},
		&models.Worker{},
		&models.CrewMembership{},
		&models.WorkingHoursRule{},
		&models.SchedulePattern{},
		&models.PatternPosition{},
		&models.PatternWeekMaskEntry{},
		&models.SchedulePeriod{},
		&models.ScheduleSlot{},
		&models.CoverageEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	st := store.New(db)
	rosterSvc := roster.New(db, zerolog.Nop())
	gen := generation.New(st, hours.New(db, zerolog.Nop()), rosterSvc, 0, zerolog.Nop())
	validator := composition.NewValidator(st, zerolog.Nop())
	return &lifecycleFixture{
		db:  db,
		st:  st,
		gen: gen,
		svc: New(st, gen, validator, rosterSvc, zerolog.Nop()),
	}
}

// seedPattern creates a 6-day cycle (rest on 5 and 6) requiring two workers
// per day, plus two rostered workers phased identically so every day is
// either fully crewed or all-rest.
func (f *lifecycleFixture) seedPattern(t *testing.T) {
	t.Helper()
	f.seedPhasedPattern(t, 0)
}

// seedPhasedPattern is seedPattern with both workers sharing the given
// first-rest offset.
func (f *lifecycleFixture) seedPhasedPattern(t *testing.T, firstRestOffset int) {
	t.Helper()

	crew := models.Crew{ID: "crew-1", Name: "West District", Active: true}
	if err := f.db.Create(&crew).Error; err != nil {
		t.Fatalf("seed crew: %v", err)
	}

	pattern := models.SchedulePattern{
		ID:                    "pattern-1",
		Name:                  "4x2",
		Mode:                  models.RotationFixedCycle,
		CycleLength:           6,
		RequiredWorkersPerDay: 2,
	}
	if err := f.db.Create(&pattern).Error; err != nil {
		t.Fatalf("seed pattern: %v", err)
	}
	for pos := 1; pos <= 6; pos++ {
		status := models.SlotWork
		if pos >= 5 {
			status = models.SlotRest
		}
		row := models.PatternPosition{
			ID:        "pos-" + string(rune('0'+pos)),
			PatternID: pattern.ID,
			Position:  pos,
			Status:    status,
		}
		if err := f.db.Create(&row).Error; err != nil {
			t.Fatalf("seed position: %v", err)
		}
	}

	memberships := []models.CrewMembership{
		{ID: "m-a", CrewID: crew.ID, WorkerID: "worker-a", StartsOn: testDay(t, "2025-01-01"), FirstRestOffsetDays: firstRestOffset},
		{ID: "m-b", CrewID: crew.ID, WorkerID: "worker-b", StartsOn: testDay(t, "2025-01-01"), FirstRestOffsetDays: firstRestOffset},
	}
	for _, m := range memberships {
		if err := f.db.Create(&m).Error; err != nil {
			t.Fatalf("seed membership: %v", err)
		}
	}
}

func testDay(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("parse day %q: %v", value, err)
	}
	return d
}

func TestCreatePeriodRejectsOverlap(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seedPattern(t)
	ctx := context.Background()

	first, err := f.svc.CreatePeriod(ctx, CreatePeriodInput{
		CrewID:      "crew-1",
		PatternID:   "pattern-1",
		PeriodStart: testDay(t, "2026-01-01"),
		PeriodEnd:   testDay(t, "2026-01-31"),
	})
	if err != nil {
		t.Fatalf("create first period: %v", err)
	}

	_, err = f.svc.CreatePeriod(ctx, CreatePeriodInput{
		CrewID:      "crew-1",
		PatternID:   "pattern-1",
		PeriodStart: testDay(t, "2026-01-20"),
		PeriodEnd:   testDay(t, "2026-02-10"),
	})
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}

	// Archiving the first period frees the range.
	if err := f.db.Model(&models.SchedulePeriod{}).
		Where("id = ?", first.ID).
		Update("status", models.PeriodArchived).Error; err != nil {
		t.Fatalf("archive first period: %v", err)
	}
	if _, err := f.svc.CreatePeriod(ctx, CreatePeriodInput{
		CrewID:      "crew-1",
		PatternID:   "pattern-1",
		PeriodStart: testDay(t, "2026-01-20"),
		PeriodEnd:   testDay(t, "2026-02-10"),
	}); err != nil {
		t.Fatalf("create over archived period: %v", err)
	}
}

func TestCreatePeriodRejectsInvertedRange(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seedPattern(t)

	_, err := f.svc.CreatePeriod(context.Background(), CreatePeriodInput{
		CrewID:      "crew-1",
		PatternID:   "pattern-1",
		PeriodStart: testDay(t, "2026-02-01"),
		PeriodEnd:   testDay(t, "2026-01-01"),
	})
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestCreatePeriodRequiresKnownPattern(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seedPattern(t)

	_, err := f.svc.CreatePeriod(context.Background(), CreatePeriodInput{
		CrewID:      "crew-1",
		PatternID:   "no-such-pattern",
		PeriodStart: testDay(t, "2026-01-01"),
		PeriodEnd:   testDay(t, "2026-01-31"),
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPublishGateSurfacesAllViolations(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seedPattern(t)
	ctx := context.Background()

	period, err := f.svc.CreatePeriod(ctx, CreatePeriodInput{
		CrewID:      "crew-1",
		PatternID:   "pattern-1",
		PeriodStart: testDay(t, "2026-01-01"),
		PeriodEnd:   testDay(t, "2026-01-03"),
	})
	if err != nil {
		t.Fatalf("create period: %v", err)
	}

	// One worker on each day where the pattern requires two.
	for d := 1; d <= 3; d++ {
		slot := models.ScheduleSlot{
			ID:       "s-" + string(rune('0'+d)),
			PeriodID: period.ID,
			Day:      models.Day(time.Date(2026, 1, d, 0, 0, 0, 0, time.UTC)),
			WorkerID: "worker-a",
			State:    models.SlotWork,
			Origin:   models.OriginGenerated,
		}
		if err := f.db.Create(&slot).Error; err != nil {
			t.Fatalf("seed slot: %v", err)
		}
	}

	err = f.svc.Publish(ctx, period.ID, PublishOptions{})
	var compErr *composition.Error
	if !errors.As(err, &compErr) {
		t.Fatalf("expected composition error, got %v", err)
	}
	if len(compErr.Violations) != 3 {
		t.Fatalf("violations: got %d want 3", len(compErr.Violations))
	}

	// The administrative bypass still publishes.
	if err := f.svc.Publish(ctx, period.ID, PublishOptions{SkipCompositionCheck: true}); err != nil {
		t.Fatalf("forced publish: %v", err)
	}
	got, err := f.svc.GetPeriod(ctx, period.ID)
	if err != nil {
		t.Fatalf("reload period: %v", err)
	}
	if got.Status != models.PeriodPublished {
		t.Fatalf("status: got %s want published", got.Status)
	}
	if got.Version != 1 {
		t.Fatalf("version: got %d want 1", got.Version)
	}
	if got.PublishedThrough == nil || !models.Day(*got.PublishedThrough).Equal(models.Day(got.PeriodEnd)) {
		t.Fatalf("published-through marker not set to period end: %v", got.PublishedThrough)
	}
}

func TestPublishRejectsPeriodsCarryingAbsences(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seedPattern(t)
	ctx := context.Background()

	period, err := f.svc.CreatePeriod(ctx, CreatePeriodInput{
		CrewID:      "crew-1",
		PatternID:   "pattern-1",
		PeriodStart: testDay(t, "2026-01-01"),
		PeriodEnd:   testDay(t, "2026-01-01"),
	})
	if err != nil {
		t.Fatalf("create period: %v", err)
	}
	slot := models.ScheduleSlot{
		ID:       "s-1",
		PeriodID: period.ID,
		Day:      models.Day(testDay(t, "2026-01-01")),
		WorkerID: "worker-a",
		State:    models.SlotAbsence,
		Origin:   models.OriginGenerated,
	}
	if err := f.db.Create(&slot).Error; err != nil {
		t.Fatalf("seed slot: %v", err)
	}

	err = f.svc.Publish(ctx, period.ID, PublishOptions{SkipCompositionCheck: true})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seedPattern(t)
	ctx := context.Background()

	period, err := f.svc.CreatePeriod(ctx, CreatePeriodInput{
		CrewID:      "crew-1",
		PatternID:   "pattern-1",
		PeriodStart: testDay(t, "2026-01-01"),
		PeriodEnd:   testDay(t, "2026-01-12"),
	})
	if err != nil {
		t.Fatalf("create period: %v", err)
	}
	if _, err := f.gen.Generate(ctx, period.ID, nil, generation.Options{Mode: generation.ModeFull}); err != nil {
		t.Fatalf("generate: %v", err)
	}

	// Archive requires published.
	if err := f.svc.Archive(ctx, period.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("archive draft: expected ErrInvalidTransition, got %v", err)
	}

	if err := f.svc.SubmitForApproval(ctx, period.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	// Submitting twice is not a legal move.
	if err := f.svc.SubmitForApproval(ctx, period.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("double submit: expected ErrInvalidTransition, got %v", err)
	}

	if err := f.svc.Publish(ctx, period.ID, PublishOptions{}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := f.svc.Publish(ctx, period.ID, PublishOptions{}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("double publish: expected ErrInvalidTransition, got %v", err)
	}

	if err := f.svc.Archive(ctx, period.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if err := f.svc.Archive(ctx, period.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("double archive: expected ErrInvalidTransition, got %v", err)
	}
}

func TestExtendRegeneratesOnlyTheTail(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seedPattern(t)
	ctx := context.Background()

	period, err := f.svc.CreatePeriod(ctx, CreatePeriodInput{
		CrewID:      "crew-1",
		PatternID:   "pattern-1",
		PeriodStart: testDay(t, "2026-01-01"),
		PeriodEnd:   testDay(t, "2026-01-12"),
	})
	if err != nil {
		t.Fatalf("create period: %v", err)
	}
	if _, err := f.gen.Generate(ctx, period.ID, nil, generation.Options{Mode: generation.ModeFull}); err != nil {
		t.Fatalf("generate: %v", err)
	}

	// Only published periods can be extended.
	if err := f.svc.Extend(ctx, period.ID, testDay(t, "2026-01-24")); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("extend draft: expected ErrInvalidTransition, got %v", err)
	}

	if err := f.svc.Publish(ctx, period.ID, PublishOptions{}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	before, err := f.st.ListSlots(ctx, period.ID)
	if err != nil {
		t.Fatalf("list slots: %v", err)
	}
	frozenIDs := make(map[string]string, len(before))
	for _, slot := range before {
		frozenIDs[slot.Day.Format("2006-01-02")+"/"+slot.WorkerID] = slot.ID
	}

	if err := f.svc.Extend(ctx, period.ID, testDay(t, "2026-01-10")); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("shrinking extend: expected ErrInvalidRange, got %v", err)
	}
	if err := f.svc.Extend(ctx, period.ID, testDay(t, "2026-01-24")); err != nil {
		t.Fatalf("extend: %v", err)
	}

	got, err := f.svc.GetPeriod(ctx, period.ID)
	if err != nil {
		t.Fatalf("reload period: %v", err)
	}
	if got.Status != models.PeriodDraft {
		t.Fatalf("status after extend: got %s want draft", got.Status)
	}
	if !models.Day(got.PeriodEnd).Equal(models.Day(testDay(t, "2026-01-24"))) {
		t.Fatalf("period end: got %s", got.PeriodEnd.Format("2006-01-02"))
	}
	if got.PublishedThrough == nil || !models.Day(*got.PublishedThrough).Equal(models.Day(testDay(t, "2026-01-12"))) {
		t.Fatalf("published-through moved: %v", got.PublishedThrough)
	}

	after, err := f.st.ListSlots(ctx, period.ID)
	if err != nil {
		t.Fatalf("list slots: %v", err)
	}
	if len(after) != 48 {
		t.Fatalf("slot count after extend: got %d want 48", len(after))
	}
	for _, slot := range after {
		key := slot.Day.Format("2006-01-02") + "/" + slot.WorkerID
		if id, ok := frozenIDs[key]; ok && id != slot.ID {
			t.Fatalf("published slot %s was replaced", key)
		}
	}

	// A second publish re-freezes at the new boundary.
	if err := f.svc.Publish(ctx, period.ID, PublishOptions{}); err != nil {
		t.Fatalf("republish: %v", err)
	}
	got, err = f.svc.GetPeriod(ctx, period.ID)
	if err != nil {
		t.Fatalf("reload period: %v", err)
	}
	if got.Version != 2 {
		t.Fatalf("version after republish: got %d want 2", got.Version)
	}
	if !models.Day(*got.PublishedThrough).Equal(models.Day(testDay(t, "2026-01-24"))) {
		t.Fatalf("published-through after republish: %v", got.PublishedThrough)
	}
}

func TestExtendKeepsPhaseWhenNoRestIsPublishedYet(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seedPhasedPattern(t, 4)
	ctx := context.Background()

	// Three all-work days: the published segment ends before the first
	// rest block (day five) is ever reached.
	period, err := f.svc.CreatePeriod(ctx, CreatePeriodInput{
		CrewID:      "crew-1",
		PatternID:   "pattern-1",
		PeriodStart: testDay(t, "2026-01-01"),
		PeriodEnd:   testDay(t, "2026-01-03"),
	})
	if err != nil {
		t.Fatalf("create period: %v", err)
	}
	if _, err := f.gen.Generate(ctx, period.ID, nil, generation.Options{Mode: generation.ModeFull}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := f.svc.Publish(ctx, period.ID, PublishOptions{}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if err := f.svc.Extend(ctx, period.ID, testDay(t, "2026-01-12")); err != nil {
		t.Fatalf("extend: %v", err)
	}

	slots, err := f.st.ListSlots(ctx, period.ID)
	if err != nil {
		t.Fatalf("list slots: %v", err)
	}
	var restDays []string
	for _, slot := range slots {
		if slot.WorkerID == "worker-a" && slot.State == models.SlotRest {
			restDays = append(restDays, slot.Day.Format("2006-01-02"))
		}
	}
	// The workers' configured offset puts the first rest block on days
	// five and six. The tail must honor it, not restart the cycle at the
	// extension boundary.
	want := []string{"2026-01-05", "2026-01-06", "2026-01-11", "2026-01-12"}
	if len(restDays) != len(want) {
		t.Fatalf("rest days after extend: got %v want %v", restDays, want)
	}
	for i, day := range want {
		if restDays[i] != day {
			t.Fatalf("rest days after extend: got %v want %v", restDays, want)
		}
	}
}

func TestExtendRollsBackWhenTailGenerationFails(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seedPattern(t)
	ctx := context.Background()

	period, err := f.svc.CreatePeriod(ctx, CreatePeriodInput{
		CrewID:      "crew-1",
		PatternID:   "pattern-1",
		PeriodStart: testDay(t, "2026-01-01"),
		PeriodEnd:   testDay(t, "2026-01-12"),
	})
	if err != nil {
		t.Fatalf("create period: %v", err)
	}
	if _, err := f.gen.Generate(ctx, period.ID, nil, generation.Options{Mode: generation.ModeFull}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := f.svc.Publish(ctx, period.ID, PublishOptions{}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	// Past the generation safety bound, so the tail run fails after the
	// boundary has already been widened.
	err = f.svc.Extend(ctx, period.ID, testDay(t, "2028-04-01"))
	if !errors.Is(err, generation.ErrInvalidRange) {
		t.Fatalf("oversized extend: expected generation.ErrInvalidRange, got %v", err)
	}

	got, err := f.svc.GetPeriod(ctx, period.ID)
	if err != nil {
		t.Fatalf("reload period: %v", err)
	}
	if got.Status != models.PeriodPublished {
		t.Fatalf("status after failed extend: got %s want published", got.Status)
	}
	if !models.Day(got.PeriodEnd).Equal(models.Day(testDay(t, "2026-01-12"))) {
		t.Fatalf("period end after failed extend: got %s want 2026-01-12", got.PeriodEnd.Format("2006-01-02"))
	}
	if got.Version != 1 {
		t.Fatalf("version after failed extend: got %d want 1", got.Version)
	}

	slots, err := f.st.ListSlots(ctx, period.ID)
	if err != nil {
		t.Fatalf("list slots: %v", err)
	}
	if len(slots) != 24 {
		t.Fatalf("slot count after failed extend: got %d want 24", len(slots))
	}
}

func TestUpdateDraftRespectsImmutability(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seedPattern(t)
	ctx := context.Background()

	period, err := f.svc.CreatePeriod(ctx, CreatePeriodInput{
		CrewID:      "crew-1",
		PatternID:   "pattern-1",
		PeriodStart: testDay(t, "2026-01-01"),
		PeriodEnd:   testDay(t, "2026-01-12"),
	})
	if err != nil {
		t.Fatalf("create period: %v", err)
	}

	note := "winter storm coverage"
	if err := f.svc.UpdateDraft(ctx, period.ID, UpdateDraftInput{Note: &note}); err != nil {
		t.Fatalf("update draft: %v", err)
	}

	if _, err := f.gen.Generate(ctx, period.ID, nil, generation.Options{Mode: generation.ModeFull}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := f.svc.Publish(ctx, period.ID, PublishOptions{}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	newEnd := testDay(t, "2026-01-20")
	if err := f.svc.UpdateDraft(ctx, period.ID, UpdateDraftInput{PeriodEnd: &newEnd}); !errors.Is(err, ErrImmutable) {
		t.Fatalf("edit published: expected ErrImmutable, got %v", err)
	}

	if err := f.svc.Archive(ctx, period.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if err := f.svc.UpdateDraft(ctx, period.ID, UpdateDraftInput{Note: &note}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("edit archived: expected ErrInvalidTransition, got %v", err)
	}
}
