package composition

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/linecrew/internal/models"
	"github.com/friendsincode/linecrew/internal/store"
)

func openCompositionTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.SchedulePattern{},
		&models.PatternPosition{},
		&models.PatternWeekMaskEntry{},
		&models.SchedulePeriod{},
		&models.ScheduleSlot{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedValidationPeriod(t *testing.T, db *gorm.DB, required int) *models.SchedulePeriod {
	t.Helper()

	pattern := models.SchedulePattern{
		ID:                    "pattern-1",
		Name:                  "test pattern",
		Mode:                  models.RotationFixedCycle,
		CycleLength:           4,
		RequiredWorkersPerDay: required,
	}
	if err := db.Create(&pattern).Error; err != nil {
		t.Fatalf("seed pattern: %v", err)
	}

	period := models.SchedulePeriod{
		ID:          "period-1",
		CrewID:      "crew-1",
		PatternID:   pattern.ID,
		PeriodStart: models.Day(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)),
		PeriodEnd:   models.Day(time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)),
		Status:      models.PeriodDraft,
	}
	if err := db.Create(&period).Error; err != nil {
		t.Fatalf("seed period: %v", err)
	}
	return &period
}

func seedSlot(t *testing.T, db *gorm.DB, id, periodID, workerID string, day time.Time, state models.SlotStatus) {
	t.Helper()
	slot := models.ScheduleSlot{
		ID:       id,
		PeriodID: periodID,
		Day:      models.Day(day),
		WorkerID: workerID,
		State:    state,
		Origin:   models.OriginGenerated,
	}
	if err := db.Create(&slot).Error; err != nil {
		t.Fatalf("seed slot: %v", err)
	}
}

func TestValidateReportsEveryUnderfilledDay(t *testing.T) {
	db := openCompositionTestDB(t)
	period := seedValidationPeriod(t, db, 2)

	mar := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }

	// Mar 1: full. Mar 2: one worker short. Mar 3: overfilled. Mar 4: all
	// rest, which is legitimate.
	seedSlot(t, db, "s1", period.ID, "worker-a", mar(1), models.SlotWork)
	seedSlot(t, db, "s2", period.ID, "worker-b", mar(1), models.SlotWork)
	seedSlot(t, db, "s3", period.ID, "worker-a", mar(2), models.SlotWork)
	seedSlot(t, db, "s4", period.ID, "worker-b", mar(2), models.SlotRest)
	seedSlot(t, db, "s5", period.ID, "worker-a", mar(3), models.SlotWork)
	seedSlot(t, db, "s6", period.ID, "worker-b", mar(3), models.SlotWork)
	seedSlot(t, db, "s7", period.ID, "worker-c", mar(3), models.SlotWork)
	seedSlot(t, db, "s8", period.ID, "worker-a", mar(4), models.SlotRest)
	seedSlot(t, db, "s9", period.ID, "worker-b", mar(4), models.SlotRest)

	v := NewValidator(store.New(db), zerolog.Nop())
	report, err := v.Validate(context.Background(), period.ID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if report.Valid {
		t.Fatal("expected invalid report")
	}
	if len(report.Violations) != 2 {
		t.Fatalf("violations: got %d want 2: %+v", len(report.Violations), report.Violations)
	}

	first := report.Violations[0]
	if !first.Day.Equal(models.Day(mar(2))) || first.Actual != 1 || first.Required != 2 {
		t.Fatalf("first violation: %+v", first)
	}
	second := report.Violations[1]
	if !second.Day.Equal(models.Day(mar(3))) || second.Actual != 3 || second.Required != 2 {
		t.Fatalf("second violation: %+v", second)
	}
}

func TestValidateAcceptsFullAndAllRestDays(t *testing.T) {
	db := openCompositionTestDB(t)
	period := seedValidationPeriod(t, db, 2)

	mar := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }
	for d := 1; d <= 3; d++ {
		seedSlot(t, db, "sa-"+string(rune('0'+d)), period.ID, "worker-a", mar(d), models.SlotWork)
		seedSlot(t, db, "sb-"+string(rune('0'+d)), period.ID, "worker-b", mar(d), models.SlotWork)
	}
	// Mar 4 has no work slots at all.
	seedSlot(t, db, "sa-4", period.ID, "worker-a", mar(4), models.SlotRest)
	seedSlot(t, db, "sb-4", period.ID, "worker-b", mar(4), models.SlotRest)

	v := NewValidator(store.New(db), zerolog.Nop())
	report, err := v.Validate(context.Background(), period.ID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !report.Valid || len(report.Violations) != 0 {
		t.Fatalf("expected clean report, got %+v", report.Violations)
	}
}

func TestValidateIgnoresRetiredSlots(t *testing.T) {
	db := openCompositionTestDB(t)
	period := seedValidationPeriod(t, db, 1)

	mar := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }
	for d := 1; d <= 4; d++ {
		seedSlot(t, db, "sa-"+string(rune('0'+d)), period.ID, "worker-a", mar(d), models.SlotWork)
	}
	// A retired duplicate on Mar 2 must not count toward the day.
	now := time.Now().UTC()
	retired := models.ScheduleSlot{
		ID:          "retired-1",
		PeriodID:    period.ID,
		Day:         models.Day(mar(2)),
		WorkerID:    "worker-b",
		State:       models.SlotWork,
		Origin:      models.OriginGenerated,
		Retired:     true,
		RetiredAt:   &now,
		RetiredNote: "superseded",
	}
	if err := db.Create(&retired).Error; err != nil {
		t.Fatalf("seed retired slot: %v", err)
	}

	v := NewValidator(store.New(db), zerolog.Nop())
	report, err := v.Validate(context.Background(), period.ID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !report.Valid {
		t.Fatalf("retired slot counted: %+v", report.Violations)
	}
}
