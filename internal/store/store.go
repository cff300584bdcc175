// Package store persists validation reports in a SQL database
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/conduit-lang/metadata-validator/internal/state"
	"github.com/conduit-lang/metadata-validator/internal/validator"
	"github.com/google/uuid"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported database/sql driver names
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

// DefaultListLimit bounds List when no limit is given
const DefaultListLimit = 50

// ErrReportNotFound is returned when no report has the requested ID
var ErrReportNotFound = errors.New("report not found")

// Drivers returns the driver names Open accepts
func Drivers() []string {
	return []string{DriverSQLite, DriverPostgres, DriverPgx}
}

// Open opens and pings a database for one of the supported drivers
func Open(driver, dsn string) (*sql.DB, error) {
	if !isSupported(driver) {
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if driver == DriverSQLite {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}

	return db, nil
}

func isSupported(driver string) bool {
	for _, d := range Drivers() {
		if d == driver {
			return true
		}
	}
	return false
}

// ReportStore reads and writes reports in the validation_reports table
type ReportStore struct {
	db     *sql.DB
	driver string
}

// NewReportStore creates a store over db. driver selects the placeholder style.
func NewReportStore(db *sql.DB, driver string) *ReportStore {
	return &ReportStore{db: db, driver: driver}
}

// Initialize ensures the validation_reports table exists
func (s *ReportStore) Initialize(ctx context.Context) error {
	statements := []string{`
CREATE TABLE IF NOT EXISTS validation_reports (
	id VARCHAR(36) PRIMARY KEY,
	kind VARCHAR(255) NOT NULL,
	core_state VARCHAR(16) NOT NULL,
	fields TEXT,
	created_at TIMESTAMP NOT NULL
)`, `
CREATE INDEX IF NOT EXISTS idx_validation_reports_kind
ON validation_reports(kind, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize reports table: %w", err)
		}
	}

	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Save records a report
func (s *ReportStore) Save(ctx context.Context, r *validator.Report) error {
	return s.insert(ctx, s.db, r)
}

// SaveMetadata records every report of a metadata record in one transaction
func (s *ReportStore) SaveMetadata(ctx context.Context, m *validator.MetadataReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, kind := range sortedKinds(m.Reports) {
		if err := s.insert(ctx, tx, m.Reports[kind]); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reports: %w", err)
	}
	return nil
}

func (s *ReportStore) insert(ctx context.Context, ex execer, r *validator.Report) error {
	var fields sql.NullString
	if r.Fields != nil {
		data, err := json.Marshal(r.Fields)
		if err != nil {
			return fmt.Errorf("failed to encode field states: %w", err)
		}
		fields = sql.NullString{String: string(data), Valid: true}
	}

	query := s.rebind(`
INSERT INTO validation_reports (id, kind, core_state, fields, created_at)
VALUES (?, ?, ?, ?, ?)
`)
	_, err := ex.ExecContext(ctx, query, r.ID.String(), r.Kind, string(r.Core), fields, r.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save report %s: %w", r.ID, err)
	}

	return nil
}

// Get returns the report with the given ID
func (s *ReportStore) Get(ctx context.Context, id uuid.UUID) (*validator.Report, error) {
	query := s.rebind(`
SELECT id, kind, core_state, fields, created_at
FROM validation_reports
WHERE id = ?
`)
	r, err := scanReport(s.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report %s: %w", id, err)
	}

	return r, nil
}

// List returns the newest reports first. An empty kind lists every kind.
func (s *ReportStore) List(ctx context.Context, kind string, limit int) ([]*validator.Report, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
SELECT id, kind, core_state, fields, created_at
FROM validation_reports
`
	var args []interface{}
	if kind != "" {
		query += "WHERE kind = ?\n"
		args = append(args, kind)
	}
	query += "ORDER BY created_at DESC\nLIMIT ?\n"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []*validator.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}

	return reports, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row scanner) (*validator.Report, error) {
	var (
		id, kind, core string
		fields         sql.NullString
		createdAt      time.Time
	)
	if err := row.Scan(&id, &kind, &core, &fields, &createdAt); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid report id %q: %w", id, err)
	}

	r := &validator.Report{
		ID:        parsed,
		Kind:      kind,
		Core:      state.MetadataState(core),
		CreatedAt: createdAt.UTC(),
	}
	if fields.Valid {
		if err := json.Unmarshal([]byte(fields.String), &r.Fields); err != nil {
			return nil, fmt.Errorf("invalid field states for report %s: %w", id, err)
		}
	}

	return r, nil
}

// rebind rewrites ? placeholders to $n for the postgres drivers
func (s *ReportStore) rebind(query string) string {
	if s.driver != DriverPostgres && s.driver != DriverPgx {
		return query
	}

	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func sortedKinds(reports map[string]*validator.Report) []string {
	kinds := make([]string, 0, len(reports))
	for k := range reports {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
