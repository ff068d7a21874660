package deploy

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/moku-core/internal/model"
)

// Page size limits for history queries.
const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	// timestampFormat is fixed-width so text ordering matches time ordering.
	timestampFormat = "2006-01-02T15:04:05.000000Z"
)

// Record is a persisted deployment with the config that was pushed.
type Record struct {
	Report
	Config json.RawMessage `json:"config,omitempty"`
}

// History persists deployment reports.
type History interface {
	Record(ctx context.Context, report *Report, cfg *model.Config) error
	List(ctx context.Context, device string, limit int) ([]Record, error)
	Get(ctx context.Context, id string) (*Record, error)
}

// SQLiteHistory stores reports in the deployments table.
type SQLiteHistory struct {
	db *sql.DB
}

// NewSQLiteHistory creates a history backed by db.
func NewSQLiteHistory(db *sql.DB) *SQLiteHistory {
	return &SQLiteHistory{db: db}
}

// Record inserts a report.
func (h *SQLiteHistory) Record(ctx context.Context, report *Report, cfg *model.Config) error {
	slotsJSON, err := json.Marshal(report.Slots)
	if err != nil {
		return fmt.Errorf("marshalling slot results: %w", err)
	}

	var cfgJSON *string
	if cfg != nil {
		b, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshalling config: %w", err)
		}
		s := string(b)
		cfgJSON = &s
	}

	_, err = h.db.ExecContext(ctx,
		`INSERT INTO deployments (id, device, platform, status, slots, routing_declared, routing_configured, error, config, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID, report.Device, report.Platform, string(report.Status),
		string(slotsJSON), report.RoutingDeclared, boolToInt(report.RoutingConfigured),
		nullableString(report.Error), cfgJSON,
		report.StartedAt.UTC().Format(timestampFormat),
		report.CompletedAt.UTC().Format(timestampFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting deployment: %w", err)
	}
	return nil
}

// List returns the most recent deployments, optionally for one device.
func (h *SQLiteHistory) List(ctx context.Context, device string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	query := `SELECT id, device, platform, status, slots, routing_declared, routing_configured, error, config, started_at, completed_at
		FROM deployments`
	var args []any
	if device != "" {
		query += " WHERE device = ?"
		args = append(args, device)
	}
	query += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying deployments: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating deployments: %w", err)
	}
	return records, nil
}

// Get returns one deployment by ID, or nil when absent.
func (h *SQLiteHistory) Get(ctx context.Context, id string) (*Record, error) {
	row := h.db.QueryRowContext(ctx,
		`SELECT id, device, platform, status, slots, routing_declared, routing_configured, error, config, started_at, completed_at
		 FROM deployments WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var (
		rec                 Record
		status, slotsJSON   string
		routingConfigured   int
		errMsg, cfgJSON     sql.NullString
		startedAt, finished string
	)
	err := s.Scan(&rec.ID, &rec.Device, &rec.Platform, &status, &slotsJSON,
		&rec.RoutingDeclared, &routingConfigured, &errMsg, &cfgJSON, &startedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning deployment: %w", err)
	}

	rec.Status = Status(status)
	rec.RoutingConfigured = routingConfigured != 0
	if errMsg.Valid {
		rec.Error = errMsg.String
	}
	if cfgJSON.Valid && cfgJSON.String != "" {
		rec.Config = json.RawMessage(cfgJSON.String)
	}
	if err := json.Unmarshal([]byte(slotsJSON), &rec.Slots); err != nil {
		return nil, fmt.Errorf("decoding slot results for %s: %w", rec.ID, err)
	}
	if rec.StartedAt, err = time.Parse(timestampFormat, startedAt); err != nil {
		return nil, fmt.Errorf("parsing started_at %q: %w", startedAt, err)
	}
	if rec.CompletedAt, err = time.Parse(timestampFormat, finished); err != nil {
		return nil, fmt.Errorf("parsing completed_at %q: %w", finished, err)
	}
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullableString returns nil for empty strings so the column stores NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
