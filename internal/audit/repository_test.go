package audit

import (
	"context"
	"testing"
	"time"

	"github.com/nerrad567/moku-core/internal/infrastructure/config"
	"github.com/nerrad567/moku-core/internal/infrastructure/database"
	_ "github.com/nerrad567/moku-core/migrations" // registers embedded schema
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Path: database.MemoryPath, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestCreate_GeneratesIDAndTimestamp(t *testing.T) {
	repo := newTestRepo(t)
	entry := &AuditLog{Action: ActionAttach, EntityType: EntityDevice, EntityID: "10.0.0.2", Source: "mcp"}

	if err := repo.Create(context.Background(), entry); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Errorf("entry = %+v, want generated ID and CreatedAt", entry)
	}
}

func TestList_FiltersAndOrders(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

	entries := []*AuditLog{
		{Action: ActionAttach, EntityType: EntityDevice, EntityID: "10.0.0.2", Source: "mcp", CreatedAt: base},
		{Action: ActionDeploy, EntityType: EntityDevice, EntityID: "10.0.0.2", Source: "mcp", CreatedAt: base.Add(time.Second),
			Details: map[string]any{"status": "deployed", "slots": []any{1.0, 2.0}}},
		{Action: ActionDiscover, EntityType: EntityNetwork, Source: "api", CreatedAt: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	tests := []struct {
		name       string
		filter     Filter
		wantTotal  int
		wantFirst  string
		wantLength int
	}{
		{"all newest first", Filter{}, 3, ActionDiscover, 3},
		{"by device", Filter{EntityID: "10.0.0.2"}, 2, ActionDeploy, 2},
		{"by action", Filter{Action: ActionAttach}, 1, ActionAttach, 1},
		{"paged", Filter{Limit: 1, Offset: 1}, 3, ActionDeploy, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if res.Total != tt.wantTotal || len(res.Logs) != tt.wantLength {
				t.Fatalf("Total = %d, len = %d", res.Total, len(res.Logs))
			}
			if res.Logs[0].Action != tt.wantFirst {
				t.Errorf("first action = %q, want %q", res.Logs[0].Action, tt.wantFirst)
			}
		})
	}

	res, err := repo.List(ctx, Filter{Action: ActionDeploy})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if got := res.Logs[0].Details["status"]; got != "deployed" {
		t.Errorf("details status = %v", got)
	}
	if !res.Logs[0].CreatedAt.Equal(base.Add(time.Second)) {
		t.Errorf("CreatedAt = %v", res.Logs[0].CreatedAt)
	}
}

func TestList_ClampsLimit(t *testing.T) {
	repo := newTestRepo(t)

	res, err := repo.List(context.Background(), Filter{Limit: 1000, Offset: -5})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Limit != maxLimit || res.Offset != 0 || res.Logs == nil {
		t.Errorf("result = %+v", res)
	}
}
