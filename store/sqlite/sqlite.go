/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements leave.TxStore (requests, approval records, balances, usage
  logs), calendar.Store (holidays) and leave.Directory (employees and
  departments synced from the org directory) on one database.

KEY TABLES:
  leave_requests:    One row per application, id LR<YYYYMMDD><NNNN>
  request_sequences: Per-day id counters
  approval_records:  One row per (request, level)
  leave_balances:    One row per (employee, year), versioned
  leave_usage_logs:  Append-only ledger of deductions and rollbacks
  holidays:          At most one row per date
  employees:         Directory mirror (manager, department, hire date, role)
  departments:       Directory mirror (leader)

APPEND-ONLY ENFORCEMENT:
  Triggers abort any UPDATE or DELETE on leave_usage_logs.

CONCURRENCY:
  A single connection is shared, so ":memory:" databases behave and every
  statement is serialised. WithTx additionally holds a mutex so that only
  one unit of work is open at a time. Code running inside WithTx must use
  the store it is handed, never the outer *Store.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  err = store.WithTx(ctx, func(tx leave.Store) error {
      ...
  })

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - leave/store.go: Interface definitions
  - calendar/holiday.go: Holiday store interface
*/
package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/leave"
)

// timeLayout is fixed-width UTC so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05Z"

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries holds every statement; Store runs them on the pool and WithTx
// runs them on a transaction.
type queries struct {
	db dbtx
}

// Store implements all storage interfaces using SQLite.
type Store struct {
	*queries
	db *sql.DB
	mu sync.Mutex
}

var (
	_ leave.TxStore   = (*Store)(nil)
	_ leave.Directory = (*Store)(nil)
	_ calendar.Store  = (*Store)(nil)
	_ leave.Store     = (*queries)(nil)
	_ calendar.Reader = (*queries)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	db.SetMaxOpenConns(1)

	store := Open(db)
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	return store, nil
}

// Open wraps an existing handle without migrating it.
func Open(db *sql.DB) *Store {
	return &Store{queries: &queries{db: db}, db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		applicant_id TEXT NOT NULL,
		department_id TEXT NOT NULL DEFAULT '',
		leave_type TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		duration TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		attachments_json TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL DEFAULT 'draft',
		current_approval_level INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_requests_applicant
		ON leave_requests(applicant_id, status);
	CREATE INDEX IF NOT EXISTS idx_leave_requests_department
		ON leave_requests(department_id);
	-- Overlap checks and date-range filters
	CREATE INDEX IF NOT EXISTS idx_leave_requests_range
		ON leave_requests(applicant_id, start_time, end_time);

	CREATE TABLE IF NOT EXISTS request_sequences (
		prefix TEXT PRIMARY KEY,
		last_value INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS approval_records (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL REFERENCES leave_requests(id) ON DELETE CASCADE,
		level INTEGER NOT NULL,
		approver_id TEXT NOT NULL DEFAULT '',
		approver_name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'waiting',
		opinion TEXT NOT NULL DEFAULT '',
		decided_at TEXT,
		created_at TEXT NOT NULL,
		UNIQUE(request_id, level)
	);

	CREATE INDEX IF NOT EXISTS idx_approval_records_approver
		ON approval_records(approver_id, status);

	CREATE TABLE IF NOT EXISTS leave_balances (
		employee_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		annual_total TEXT NOT NULL,
		annual_used TEXT NOT NULL,
		annual_remaining TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, year)
	);

	CREATE TABLE IF NOT EXISTS leave_usage_logs (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		request_id TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		duration TEXT NOT NULL,
		change_type TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_usage_logs_employee_year
		ON leave_usage_logs(employee_id, year);

	CREATE TRIGGER IF NOT EXISTS trg_usage_logs_no_update
	BEFORE UPDATE ON leave_usage_logs
	BEGIN
		SELECT RAISE(ABORT, 'leave_usage_logs is append-only');
	END;

	CREATE TRIGGER IF NOT EXISTS trg_usage_logs_no_delete
	BEFORE DELETE ON leave_usage_logs
	BEGIN
		SELECT RAISE(ABORT, 'leave_usage_logs is append-only');
	END;

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		holiday_type TEXT NOT NULL,
		year INTEGER NOT NULL,
		is_workday BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_year
		ON holidays(year);

	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		manager_id TEXT NOT NULL DEFAULT '',
		department_id TEXT NOT NULL DEFAULT '',
		hire_date TEXT,
		role TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_role
		ON employees(role);

	CREATE TABLE IF NOT EXISTS departments (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		leader_id TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (leave.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx leave.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer sqlTx.Rollback()

	if err := fn(&queries{db: sqlTx}); err != nil {
		return err
	}

	return errors.Wrap(sqlTx.Commit(), "failed to commit transaction")
}

// =============================================================================
// HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func timePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

// prefixed qualifies a comma separated column list with a table alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
