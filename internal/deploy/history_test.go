package deploy

import (
	"context"
	"testing"
	"time"

	"github.com/nerrad567/moku-core/internal/infrastructure/config"
	"github.com/nerrad567/moku-core/internal/infrastructure/database"
	"github.com/nerrad567/moku-core/internal/moku/mokutest"
	_ "github.com/nerrad567/moku-core/migrations" // registers embedded schema
)

func openHistory(t *testing.T) *SQLiteHistory {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Path: database.MemoryPath, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteHistory(db.DB)
}

func TestHistory_RecordsDeployments(t *testing.T) {
	h := openHistory(t)
	ctx := context.Background()

	e := NewEngine()
	e.SetHistory(h)

	sess := attached(t, mokutest.NewGo())
	cfg := mustParse(t, `{"platform": "Moku:Go", "slots": {"1": {"instrument": "Oscilloscope"}}}`)
	report, err := e.Deploy(ctx, sess, cfg)
	if err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}

	got, err := h.Get(ctx, report.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil {
		t.Fatal("Get() = nil, want record")
	}
	if got.Status != StatusDeployed || got.Device != "10.0.0.2" || got.Platform != "Moku:Go" {
		t.Errorf("record = %+v", got.Report)
	}
	if len(got.Slots) != 1 || got.Slots[0].Outcome != OutcomeDeployed {
		t.Errorf("Slots = %+v", got.Slots)
	}
	if len(got.Config) == 0 {
		t.Error("Config not stored")
	}
	if !got.StartedAt.Equal(report.StartedAt.Truncate(time.Microsecond)) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, report.StartedAt)
	}
}

func TestHistory_GetMissing(t *testing.T) {
	h := openHistory(t)

	got, err := h.Get(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Errorf("Get() = %+v, want nil", got)
	}
}

func TestHistory_ListNewestFirstAndFiltered(t *testing.T) {
	h := openHistory(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	reports := []*Report{
		{ID: "a", Device: "10.0.0.2", Status: StatusDeployed, StartedAt: base, CompletedAt: base},
		{ID: "b", Device: "10.0.0.3", Status: StatusError, Error: "slot 1 failed", StartedAt: base.Add(time.Minute), CompletedAt: base.Add(time.Minute)},
		{ID: "c", Device: "10.0.0.2", Status: StatusPartialSuccess, StartedAt: base.Add(2 * time.Minute), CompletedAt: base.Add(2 * time.Minute)},
	}
	for _, r := range reports {
		if err := h.Record(ctx, r, nil); err != nil {
			t.Fatalf("Record(%s) error = %v", r.ID, err)
		}
	}

	all, err := h.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if ids := recordIDs(all); ids != "cba" {
		t.Errorf("List() order = %q, want %q", ids, "cba")
	}
	if all[1].Error != "slot 1 failed" || all[0].Error != "" {
		t.Errorf("errors = %q, %q", all[0].Error, all[1].Error)
	}

	one, err := h.List(ctx, "10.0.0.2", 1)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if ids := recordIDs(one); ids != "c" {
		t.Errorf("filtered = %q, want %q", ids, "c")
	}
}

func recordIDs(records []Record) string {
	var s string
	for _, r := range records {
		s += r.ID
	}
	return s
}
