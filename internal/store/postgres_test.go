package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DockeryAI/competitor-intel/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromPool(mock), mock
}

func TestPostgresStore_GetCompetitor_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, brand_id, name, website`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetCompetitor(context.Background(), "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get competitor")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCompetitors(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	updated := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{
		"id", "brand_id", "name", "website", "logo_url", "positioning_summary", "business_model", "updated_at",
	}).
		AddRow("c1", "b1", "Acme", "https://acme.com", "", "", "saas", &updated).
		AddRow("c2", "b1", "Beta", "", "", "", "", (*time.Time)(nil))

	mock.ExpectQuery(`SELECT id, brand_id, name, website`).
		WithArgs("b1").
		WillReturnRows(rows)

	got, err := s.GetCompetitors(context.Background(), "b1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Acme", got[0].Name)
	assert.Equal(t, updated, got[0].UpdatedAt)
	assert.True(t, got[1].UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AddCompetitor(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO competitors`).
		WithArgs("c1", "b1", "Acme", "https://acme.com", "", "", "", (*time.Time)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.AddCompetitor(context.Background(), &model.CompetitorProfile{
		ID: "c1", BrandID: "b1", Name: "Acme", Website: "https://acme.com",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateCompetitor_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE competitors SET`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateCompetitor(context.Background(), &model.CompetitorProfile{ID: "ghost", Name: "Ghost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPostgresStore_GetGaps(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{
		"id", "brand_id", "competitor_ids", "title", "description", "is_starred", "is_dismissed", "source_scan_ids", "created_at",
	}).AddRow("g1", "b1", []byte(`["c1","c2"]`), "No SSO", "", false, false, []byte(`["s1"]`), created)

	mock.ExpectQuery(`SELECT id, brand_id, competitor_ids`).
		WithArgs("b1").
		WillReturnRows(rows)

	got, err := s.GetGaps(context.Background(), "b1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"c1", "c2"}, got[0].CompetitorIDs)
	assert.Equal(t, []string{"s1"}, got[0].SourceScanIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveGaps(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO gaps`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.SaveGaps(context.Background(), []model.CompetitorGap{
		{ID: "g1", BrandID: "b1", CompetitorIDs: []string{"c1"}, Title: "Gap"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveGaps_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	require.NoError(t, s.SaveGaps(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RemoveCompetitor(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM competitors WHERE id`).
		WithArgs("c1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM gaps WHERE competitor_ids`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`UPDATE gaps SET competitor_ids`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`DELETE FROM scans WHERE competitor_id`).
		WithArgs("c1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCommit()

	require.NoError(t, s.RemoveCompetitor(context.Background(), "c1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetGapStarred_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE gaps SET is_starred`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.SetGapStarred(context.Background(), "ghost", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPostgresStore_DeleteScansForBrand(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM scans WHERE brand_id`).
		WithArgs("b1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	require.NoError(t, s.DeleteScansForBrand(context.Background(), "b1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
