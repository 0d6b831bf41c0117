package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/DockeryAI/competitor-intel/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS competitors (
	id                  TEXT PRIMARY KEY,
	brand_id            TEXT NOT NULL,
	name                TEXT NOT NULL,
	website             TEXT NOT NULL DEFAULT '',
	logo_url            TEXT NOT NULL DEFAULT '',
	positioning_summary TEXT NOT NULL DEFAULT '',
	business_model      TEXT NOT NULL DEFAULT '',
	updated_at          DATETIME
);

CREATE TABLE IF NOT EXISTS gaps (
	id              TEXT PRIMARY KEY,
	brand_id        TEXT NOT NULL,
	competitor_ids  TEXT NOT NULL,
	title           TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	is_starred      INTEGER NOT NULL DEFAULT 0,
	is_dismissed    INTEGER NOT NULL DEFAULT 0,
	source_scan_ids TEXT,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS scans (
	id            TEXT PRIMARY KEY,
	brand_id      TEXT NOT NULL,
	competitor_id TEXT NOT NULL,
	scan_type     TEXT NOT NULL,
	summary       TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_competitors_brand_id ON competitors(brand_id);
CREATE INDEX IF NOT EXISTS idx_gaps_brand_id ON gaps(brand_id);
CREATE INDEX IF NOT EXISTS idx_scans_brand_id ON scans(brand_id);
CREATE INDEX IF NOT EXISTS idx_scans_competitor_id ON scans(competitor_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetCompetitors(ctx context.Context, brandID string) ([]model.CompetitorProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, brand_id, name, website, logo_url, positioning_summary, business_model, updated_at
		 FROM competitors WHERE brand_id = ? ORDER BY name`,
		brandID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query competitors")
	}
	defer rows.Close()

	var out []model.CompetitorProfile
	for rows.Next() {
		p, err := scanCompetitor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate competitors")
}

func (s *SQLiteStore) GetCompetitor(ctx context.Context, id string) (*model.CompetitorProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, brand_id, name, website, logo_url, positioning_summary, business_model, updated_at
		 FROM competitors WHERE id = ?`,
		id,
	)
	p, err := scanCompetitor(row)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(err, "sqlite: competitor %s not found", id)
		}
		return nil, err
	}
	return p, nil
}

func (s *SQLiteStore) AddCompetitor(ctx context.Context, p *model.CompetitorProfile) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO competitors (id, brand_id, name, website, logo_url, positioning_summary, business_model, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.BrandID, p.Name, p.Website, p.LogoURL, p.PositioningSummary, p.BusinessModel, nullableTime(p.UpdatedAt),
	)
	return eris.Wrapf(err, "sqlite: insert competitor %s", p.Name)
}

func (s *SQLiteStore) UpdateCompetitor(ctx context.Context, p *model.CompetitorProfile) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE competitors SET name = ?, website = ?, logo_url = ?, positioning_summary = ?, business_model = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, p.Website, p.LogoURL, p.PositioningSummary, p.BusinessModel, nullableTime(p.UpdatedAt), p.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update competitor %s", p.ID)
	}
	return checkRowsAffected(res, "competitor", p.ID)
}

func (s *SQLiteStore) RemoveCompetitor(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin remove competitor")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM competitors WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete competitor %s", id)
	}
	if err := checkRowsAffected(res, "competitor", id); err != nil {
		return err
	}

	// Cascade: drop exclusive gaps, shrink shared ones.
	rows, err := tx.QueryContext(ctx,
		`SELECT id, competitor_ids FROM gaps WHERE competitor_ids LIKE ?`,
		`%"`+id+`"%`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: query gaps for cascade")
	}
	type gapRef struct {
		gapID string
		ids   []string
	}
	var refs []gapRef
	for rows.Next() {
		var gapID, idsJSON string
		if err := rows.Scan(&gapID, &idsJSON); err != nil {
			rows.Close()
			return eris.Wrap(err, "sqlite: scan gap ref")
		}
		var ids []string
		if err := json.Unmarshal([]byte(idsJSON), &ids); err != nil {
			rows.Close()
			return eris.Wrapf(err, "sqlite: decode competitor_ids for gap %s", gapID)
		}
		refs = append(refs, gapRef{gapID: gapID, ids: ids})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return eris.Wrap(err, "sqlite: iterate gap refs")
	}

	for _, ref := range refs {
		remaining := removeString(ref.ids, id)
		if len(remaining) == len(ref.ids) {
			continue // LIKE false positive
		}
		if len(remaining) == 0 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM gaps WHERE id = ?`, ref.gapID); err != nil {
				return eris.Wrapf(err, "sqlite: cascade delete gap %s", ref.gapID)
			}
			continue
		}
		idsJSON, _ := json.Marshal(remaining)
		if _, err := tx.ExecContext(ctx, `UPDATE gaps SET competitor_ids = ? WHERE id = ?`, string(idsJSON), ref.gapID); err != nil {
			return eris.Wrapf(err, "sqlite: cascade shrink gap %s", ref.gapID)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM scans WHERE competitor_id = ?`, id); err != nil {
		return eris.Wrapf(err, "sqlite: cascade delete scans for %s", id)
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit remove competitor")
}

func (s *SQLiteStore) GetGaps(ctx context.Context, brandID string) ([]model.CompetitorGap, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, brand_id, competitor_ids, title, description, is_starred, is_dismissed, source_scan_ids, created_at
		 FROM gaps WHERE brand_id = ? ORDER BY created_at, id`,
		brandID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query gaps")
	}
	defer rows.Close()

	var out []model.CompetitorGap
	for rows.Next() {
		g, err := scanGap(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate gaps")
}

func (s *SQLiteStore) SaveGaps(ctx context.Context, gaps []model.CompetitorGap) error {
	if len(gaps) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save gaps")
	}
	defer tx.Rollback()

	for _, g := range gaps {
		idsJSON, err := json.Marshal(g.CompetitorIDs)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal competitor_ids for gap %s", g.ID)
		}
		scanIDsJSON, err := json.Marshal(g.SourceScanIDs)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal source_scan_ids for gap %s", g.ID)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO gaps (id, brand_id, competitor_ids, title, description, is_starred, is_dismissed, source_scan_ids, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			g.ID, g.BrandID, string(idsJSON), g.Title, g.Description, g.IsStarred, g.IsDismissed, string(scanIDsJSON), timeOrNow(g.CreatedAt),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert gap %s", g.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save gaps")
}

func (s *SQLiteStore) SetGapStarred(ctx context.Context, id string, starred bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE gaps SET is_starred = ? WHERE id = ?`, starred, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: star gap %s", id)
	}
	return checkRowsAffected(res, "gap", id)
}

func (s *SQLiteStore) SetGapDismissed(ctx context.Context, id string, dismissed bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE gaps SET is_dismissed = ? WHERE id = ?`, dismissed, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: dismiss gap %s", id)
	}
	return checkRowsAffected(res, "gap", id)
}

func (s *SQLiteStore) DeleteGapsForBrand(ctx context.Context, brandID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM gaps WHERE brand_id = ?`, brandID)
	return eris.Wrapf(err, "sqlite: delete gaps for brand %s", brandID)
}

func (s *SQLiteStore) DeleteGapsForCompetitor(ctx context.Context, competitorID string) error {
	idsJSON, _ := json.Marshal([]string{competitorID})
	_, err := s.db.ExecContext(ctx, `DELETE FROM gaps WHERE competitor_ids = ?`, string(idsJSON))
	return eris.Wrapf(err, "sqlite: delete gaps for competitor %s", competitorID)
}

func (s *SQLiteStore) SaveScanRecord(ctx context.Context, rec *model.ScanRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scans (id, brand_id, competitor_id, scan_type, summary, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.BrandID, rec.CompetitorID, string(rec.ScanType), rec.Summary, timeOrNow(rec.CreatedAt),
	)
	return eris.Wrapf(err, "sqlite: insert scan record %s", rec.ID)
}

func (s *SQLiteStore) DeleteScansForBrand(ctx context.Context, brandID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM scans WHERE brand_id = ?`, brandID)
	return eris.Wrapf(err, "sqlite: delete scans for brand %s", brandID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompetitor(row rowScanner) (*model.CompetitorProfile, error) {
	var p model.CompetitorProfile
	var updatedAt sql.NullTime
	err := row.Scan(&p.ID, &p.BrandID, &p.Name, &p.Website, &p.LogoURL, &p.PositioningSummary, &p.BusinessModel, &updatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan competitor")
	}
	if updatedAt.Valid {
		p.UpdatedAt = updatedAt.Time
	}
	return &p, nil
}

func scanGap(row rowScanner) (*model.CompetitorGap, error) {
	var g model.CompetitorGap
	var idsJSON string
	var scanIDsJSON sql.NullString
	var createdAt sql.NullTime
	err := row.Scan(&g.ID, &g.BrandID, &idsJSON, &g.Title, &g.Description, &g.IsStarred, &g.IsDismissed, &scanIDsJSON, &createdAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan gap")
	}
	if err := json.Unmarshal([]byte(idsJSON), &g.CompetitorIDs); err != nil {
		return nil, eris.Wrapf(err, "sqlite: decode competitor_ids for gap %s", g.ID)
	}
	if scanIDsJSON.Valid && scanIDsJSON.String != "" {
		if err := json.Unmarshal([]byte(scanIDsJSON.String), &g.SourceScanIDs); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode source_scan_ids for gap %s", g.ID)
		}
	}
	if createdAt.Valid {
		g.CreatedAt = createdAt.Time
	}
	return &g, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s %s", kind, id)
	}
	if n == 0 {
		return eris.Errorf("sqlite: %s %s not found", kind, id)
	}
	return nil
}

func removeString(in []string, target string) []string {
	out := in[:0:0]
	for _, s := range in {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}
