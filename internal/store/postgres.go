package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/DockeryAI/competitor-intel/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies
// it, which keeps the Postgres store unit-testable without a database.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool, for tests.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS competitors (
	id                  TEXT PRIMARY KEY,
	brand_id            TEXT NOT NULL,
	name                TEXT NOT NULL,
	website             TEXT NOT NULL DEFAULT '',
	logo_url            TEXT NOT NULL DEFAULT '',
	positioning_summary TEXT NOT NULL DEFAULT '',
	business_model      TEXT NOT NULL DEFAULT '',
	updated_at          TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS gaps (
	id              TEXT PRIMARY KEY,
	brand_id        TEXT NOT NULL,
	competitor_ids  JSONB NOT NULL,
	title           TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	is_starred      BOOLEAN NOT NULL DEFAULT false,
	is_dismissed    BOOLEAN NOT NULL DEFAULT false,
	source_scan_ids JSONB,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scans (
	id            TEXT PRIMARY KEY,
	brand_id      TEXT NOT NULL,
	competitor_id TEXT NOT NULL,
	scan_type     TEXT NOT NULL,
	summary       TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_competitors_brand_id ON competitors(brand_id);
CREATE INDEX IF NOT EXISTS idx_gaps_brand_id ON gaps(brand_id);
CREATE INDEX IF NOT EXISTS idx_gaps_competitor_ids ON gaps USING gin(competitor_ids);
CREATE INDEX IF NOT EXISTS idx_scans_brand_id ON scans(brand_id);
CREATE INDEX IF NOT EXISTS idx_scans_competitor_id ON scans(competitor_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetCompetitors(ctx context.Context, brandID string) ([]model.CompetitorProfile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, brand_id, name, website, logo_url, positioning_summary, business_model, updated_at
		 FROM competitors WHERE brand_id = $1 ORDER BY name`,
		brandID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query competitors")
	}
	defer rows.Close()

	var out []model.CompetitorProfile
	for rows.Next() {
		var p model.CompetitorProfile
		var updatedAt *time.Time
		if err := rows.Scan(&p.ID, &p.BrandID, &p.Name, &p.Website, &p.LogoURL, &p.PositioningSummary, &p.BusinessModel, &updatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan competitor")
		}
		if updatedAt != nil {
			p.UpdatedAt = *updatedAt
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate competitors")
}

func (s *PostgresStore) GetCompetitor(ctx context.Context, id string) (*model.CompetitorProfile, error) {
	var p model.CompetitorProfile
	var updatedAt *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT id, brand_id, name, website, logo_url, positioning_summary, business_model, updated_at
		 FROM competitors WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.BrandID, &p.Name, &p.Website, &p.LogoURL, &p.PositioningSummary, &p.BusinessModel, &updatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get competitor %s", id)
	}
	if updatedAt != nil {
		p.UpdatedAt = *updatedAt
	}
	return &p, nil
}

func (s *PostgresStore) AddCompetitor(ctx context.Context, p *model.CompetitorProfile) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO competitors (id, brand_id, name, website, logo_url, positioning_summary, business_model, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.BrandID, p.Name, p.Website, p.LogoURL, p.PositioningSummary, p.BusinessModel, pgTime(p.UpdatedAt),
	)
	return eris.Wrapf(err, "postgres: insert competitor %s", p.Name)
}

func (s *PostgresStore) UpdateCompetitor(ctx context.Context, p *model.CompetitorProfile) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE competitors SET name = $1, website = $2, logo_url = $3, positioning_summary = $4, business_model = $5, updated_at = $6
		 WHERE id = $7`,
		p.Name, p.Website, p.LogoURL, p.PositioningSummary, p.BusinessModel, pgTime(p.UpdatedAt), p.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update competitor %s", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: competitor %s not found", p.ID)
	}
	return nil
}

func (s *PostgresStore) RemoveCompetitor(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin remove competitor")
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM competitors WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete competitor %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: competitor %s not found", id)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM gaps WHERE competitor_ids = $1::jsonb`,
		`["`+id+`"]`,
	); err != nil {
		return eris.Wrapf(err, "postgres: cascade delete gaps for %s", id)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE gaps SET competitor_ids = competitor_ids - $1 WHERE competitor_ids ? $1`,
		id,
	); err != nil {
		return eris.Wrapf(err, "postgres: cascade shrink gaps for %s", id)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM scans WHERE competitor_id = $1`, id); err != nil {
		return eris.Wrapf(err, "postgres: cascade delete scans for %s", id)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit remove competitor")
}

func (s *PostgresStore) GetGaps(ctx context.Context, brandID string) ([]model.CompetitorGap, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, brand_id, competitor_ids, title, description, is_starred, is_dismissed, source_scan_ids, created_at
		 FROM gaps WHERE brand_id = $1 ORDER BY created_at, id`,
		brandID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query gaps")
	}
	defer rows.Close()

	var out []model.CompetitorGap
	for rows.Next() {
		var g model.CompetitorGap
		var idsJSON []byte
		var scanIDsJSON []byte
		if err := rows.Scan(&g.ID, &g.BrandID, &idsJSON, &g.Title, &g.Description, &g.IsStarred, &g.IsDismissed, &scanIDsJSON, &g.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan gap")
		}
		if err := json.Unmarshal(idsJSON, &g.CompetitorIDs); err != nil {
			return nil, eris.Wrapf(err, "postgres: decode competitor_ids for gap %s", g.ID)
		}
		if len(scanIDsJSON) > 0 {
			if err := json.Unmarshal(scanIDsJSON, &g.SourceScanIDs); err != nil {
				return nil, eris.Wrapf(err, "postgres: decode source_scan_ids for gap %s", g.ID)
			}
		}
		out = append(out, g)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate gaps")
}

func (s *PostgresStore) SaveGaps(ctx context.Context, gaps []model.CompetitorGap) error {
	if len(gaps) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save gaps")
	}
	defer tx.Rollback(ctx)

	for _, g := range gaps {
		idsJSON, err := json.Marshal(g.CompetitorIDs)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal competitor_ids for gap %s", g.ID)
		}
		scanIDsJSON, err := json.Marshal(g.SourceScanIDs)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal source_scan_ids for gap %s", g.ID)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO gaps (id, brand_id, competitor_ids, title, description, is_starred, is_dismissed, source_scan_ids, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, now()))
			 ON CONFLICT (id) DO UPDATE SET
				competitor_ids = EXCLUDED.competitor_ids,
				title = EXCLUDED.title,
				description = EXCLUDED.description,
				source_scan_ids = EXCLUDED.source_scan_ids`,
			g.ID, g.BrandID, string(idsJSON), g.Title, g.Description, g.IsStarred, g.IsDismissed, string(scanIDsJSON), pgTime(g.CreatedAt),
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert gap %s", g.ID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit save gaps")
}

func (s *PostgresStore) SetGapStarred(ctx context.Context, id string, starred bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE gaps SET is_starred = $1 WHERE id = $2`, starred, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: star gap %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: gap %s not found", id)
	}
	return nil
}

func (s *PostgresStore) SetGapDismissed(ctx context.Context, id string, dismissed bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE gaps SET is_dismissed = $1 WHERE id = $2`, dismissed, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: dismiss gap %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: gap %s not found", id)
	}
	return nil
}

func (s *PostgresStore) DeleteGapsForBrand(ctx context.Context, brandID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM gaps WHERE brand_id = $1`, brandID)
	return eris.Wrapf(err, "postgres: delete gaps for brand %s", brandID)
}

func (s *PostgresStore) DeleteGapsForCompetitor(ctx context.Context, competitorID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM gaps WHERE competitor_ids = $1::jsonb`,
		`["`+competitorID+`"]`,
	)
	return eris.Wrapf(err, "postgres: delete gaps for competitor %s", competitorID)
}

func (s *PostgresStore) SaveScanRecord(ctx context.Context, rec *model.ScanRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scans (id, brand_id, competitor_id, scan_type, summary, created_at)
		 VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))`,
		rec.ID, rec.BrandID, rec.CompetitorID, string(rec.ScanType), rec.Summary, pgTime(rec.CreatedAt),
	)
	return eris.Wrapf(err, "postgres: insert scan record %s", rec.ID)
}

func (s *PostgresStore) DeleteScansForBrand(ctx context.Context, brandID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM scans WHERE brand_id = $1`, brandID)
	return eris.Wrapf(err, "postgres: delete scans for brand %s", brandID)
}

func pgTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
