package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/conduit-lang/metadata-validator/internal/state"
	"github.com/conduit-lang/metadata-validator/internal/validator"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates an initialized store over an in-memory sqlite database
func setupTestStore(t *testing.T) *ReportStore {
	t.Helper()

	db, err := Open(DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewReportStore(db, DriverSQLite)
	require.NoError(t, s.Initialize(context.Background()))
	return s
}

func newReport(kind string, core state.MetadataState, at time.Time) *validator.Report {
	return &validator.Report{
		ID:   uuid.New(),
		Kind: kind,
		Core: core,
		Fields: map[string]state.MetadataState{
			"subject_id": state.Valid,
			"label":      state.Missing,
		},
		CreatedAt: at,
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "whatever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestReportStore_InitializeIsIdempotent(t *testing.T) {
	s := setupTestStore(t)
	assert.NoError(t, s.Initialize(context.Background()))
}

func TestReportStore_SaveAndGet(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r := newReport("data_description", state.Present, at)
	require.NoError(t, s.Save(ctx, r))

	got, err := s.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, "data_description", got.Kind)
	assert.Equal(t, state.Present, got.Core)
	assert.Equal(t, r.Fields, got.Fields)
	assert.True(t, at.Equal(got.CreatedAt))
}

func TestReportStore_SaveWithoutFields(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	r := &validator.Report{ID: uuid.New(), Kind: "rig", Core: state.Optional, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.Save(ctx, r))

	got, err := s.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, state.Optional, got.Core)
	assert.Nil(t, got.Fields)
}

func TestReportStore_GetNotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestReportStore_List(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	oldest := newReport("subject", state.Valid, base)
	middle := newReport("procedures", state.Missing, base.Add(time.Hour))
	newest := newReport("subject", state.Present, base.Add(2*time.Hour))
	for _, r := range []*validator.Report{oldest, middle, newest} {
		require.NoError(t, s.Save(ctx, r))
	}

	all, err := s.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, newest.ID, all[0].ID)
	assert.Equal(t, oldest.ID, all[2].ID)

	subjects, err := s.List(ctx, "subject", 10)
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Equal(t, newest.ID, subjects[0].ID)

	limited, err := s.List(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, newest.ID, limited[0].ID)
}

func TestReportStore_SaveMetadata(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	m := &validator.MetadataReport{
		ID: uuid.New(),
		Reports: map[string]*validator.Report{
			"subject":    newReport("subject", state.Valid, now),
			"procedures": newReport("procedures", state.Missing, now),
		},
		CreatedAt: now,
	}
	require.NoError(t, s.SaveMetadata(ctx, m))

	all, err := s.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestReportStore_PostgresPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewReportStore(db, DriverPostgres)
	r := newReport("subject", state.Valid, time.Now().UTC())

	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1, $2, $3, $4, $5)")).
		WithArgs(r.ID.String(), "subject", "valid", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Save(context.Background(), r))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportStore_GetScansRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewReportStore(db, DriverPgx)
	id := uuid.New()
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "kind", "core_state", "fields", "created_at"}).
		AddRow(id.String(), "session", "corrupt", `{"rig_id":"present"}`, at)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
		WithArgs(id.String()).
		WillReturnRows(rows)

	got, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, state.Corrupt, got.Core)
	assert.Equal(t, map[string]state.MetadataState{"rig_id": state.Present}, got.Fields)
	assert.Equal(t, at, got.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportStore_SaveMetadataRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewReportStore(db, DriverSQLite)
	now := time.Now().UTC()
	m := &validator.MetadataReport{
		ID: uuid.New(),
		Reports: map[string]*validator.Report{
			"subject": newReport("subject", state.Valid, now),
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO validation_reports").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = s.SaveMetadata(context.Background(), m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportStore_ListQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewReportStore(db, DriverSQLite)
	mock.ExpectQuery("FROM validation_reports").WillReturnError(sql.ErrConnDone)

	_, err = s.List(context.Background(), "", 5)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}
