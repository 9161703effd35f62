// Package history persists audit reports to Postgres.
//
// The sink is optional: commands only open a Store when DATABASE_URL is set.
// A report is written in one transaction, the run row by INSERT and its
// findings by COPY.
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/wite2/internal/audit"
	"github.com/JonMunkholm/wite2/internal/core"
	"github.com/JonMunkholm/wite2/internal/schema"
)

// ErrNotConfigured is returned when history is requested without a database URL.
var ErrNotConfigured = errors.New("history database not configured")

// Options configures the connection pool.
type Options struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Store reads and writes audit history.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.URL == "" {
		return nil, ErrNotConfigured
	}
	poolConfig, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// EnsureSchema creates the history tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema.CreateAll()); err != nil {
		return fmt.Errorf("create history schema: %w", err)
	}
	return nil
}

// Run is one stored audit run.
type Run struct {
	ID          int64          `json:"id" yaml:"id"`
	RunID       string         `json:"run_id" yaml:"run_id"`
	Files       core.FileSet   `json:"files" yaml:"files"`
	StartedAt   time.Time      `json:"started_at" yaml:"started_at"`
	Duration    time.Duration  `json:"duration_ns" yaml:"duration"`
	RowsSkipped int            `json:"rows_skipped" yaml:"rows_skipped"`
	Errors      int            `json:"errors" yaml:"errors"`
	Warnings    int            `json:"warnings" yaml:"warnings"`
	ByCheck     map[string]int `json:"by_check" yaml:"by_check"`
	RecordedAt  time.Time      `json:"recorded_at" yaml:"recorded_at"`
}

// RecordReport stores r and its findings and returns the new run's row id.
func (s *Store) RecordReport(ctx context.Context, r *audit.Report) (int64, error) {
	runID, err := toPgUUID(r.RunID)
	if err != nil {
		return 0, err
	}
	byCheck := r.ByCheck
	if byCheck == nil {
		byCheck = map[string]int{}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, insertSQL(schema.AuditRuns)+` RETURNING "id"`,
		runID,
		r.Files.Unit,
		r.Files.OB,
		r.Files.Ground,
		pgtype.Timestamptz{Time: r.StartedAt, Valid: true},
		r.Duration.Milliseconds(),
		r.RowsSkipped,
		r.Errors,
		r.Warnings,
		byCheck,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert audit run: %w", err)
	}

	findings := r.Findings
	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{schema.AuditFindings.Name},
		schema.AuditFindings.InsertColumns(),
		pgx.CopyFromSlice(len(findings), func(i int) ([]any, error) {
			f := findings[i]
			return []any{id, i, f.Check, string(f.Severity), string(f.Kind), f.ID, f.Field, f.Line, f.Message}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy findings: %w", err)
	}
	if int(copied) != len(findings) {
		return 0, fmt.Errorf("copy findings: wrote %d rows, expected %d", copied, len(findings))
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return id, nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 means 20.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT "id", "run_id", "unit_file", "ob_file", "ground_file", "started_at",
		       "duration_ms", "rows_skipped", "errors", "warnings", "by_check", "recorded_at"
		FROM "audit_runs"
		ORDER BY "started_at" DESC, "id" DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run        Run
			runID      pgtype.UUID
			started    pgtype.Timestamptz
			recorded   pgtype.Timestamptz
			durationMS int64
		)
		if err := rows.Scan(&run.ID, &runID, &run.Files.Unit, &run.Files.OB, &run.Files.Ground,
			&started, &durationMS, &run.RowsSkipped, &run.Errors, &run.Warnings, &run.ByCheck, &recorded); err != nil {
			return nil, fmt.Errorf("scan audit run: %w", err)
		}
		run.RunID = uuidToString(runID)
		run.StartedAt = started.Time
		run.RecordedAt = recorded.Time
		run.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit runs: %w", err)
	}
	return runs, nil
}

// Findings returns the findings of one stored run in report order.
func (s *Store) Findings(ctx context.Context, id int64) ([]audit.Finding, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT "check_name", "severity", "kind", "record_id", "field", "line", "message"
		FROM "audit_findings"
		WHERE "audit_run_id" = $1
		ORDER BY "seq"`, id)
	if err != nil {
		return nil, fmt.Errorf("list findings: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (audit.Finding, error) {
		var (
			f        audit.Finding
			severity string
			kind     string
		)
		err := row.Scan(&f.Check, &severity, &kind, &f.ID, &f.Field, &f.Line, &f.Message)
		f.Severity = audit.Severity(severity)
		f.Kind = core.Kind(kind)
		return f, err
	})
}

// ResetFindings deletes every stored finding.
func (s *Store) ResetFindings(ctx context.Context) error {
	return s.truncate(ctx, schema.AuditFindings, false)
}

// ResetRuns deletes every stored run and, through the foreign key, its findings.
func (s *Store) ResetRuns(ctx context.Context) error {
	return s.truncate(ctx, schema.AuditRuns, true)
}

func (s *Store) truncate(ctx context.Context, t schema.Table, cascade bool) error {
	sql := "TRUNCATE " + schema.Quote(t.Name) + " RESTART IDENTITY"
	if cascade {
		sql += " CASCADE"
	}
	if _, err := s.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("reset %s: %w", t.Name, err)
	}
	return nil
}

// insertSQL builds an INSERT over the table's client-supplied columns.
func insertSQL(t schema.Table) string {
	cols := t.InsertColumns()
	quoted := make([]string, len(cols))
	params := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = schema.Quote(c)
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		schema.Quote(t.Name), strings.Join(quoted, ", "), strings.Join(params, ", "))
}

func toPgUUID(s string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("invalid run id %q: %w", s, err)
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}

func uuidToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}
