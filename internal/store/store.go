// Package store persists competitor profiles, extracted gaps, and scan
// provenance. CRUD only; pipeline logic lives above it.
package store

import (
	"context"

	"github.com/DockeryAI/competitor-intel/internal/model"
)

// Store defines the persistence interface for the intelligence pipeline.
type Store interface {
	// Competitors
	GetCompetitors(ctx context.Context, brandID string) ([]model.CompetitorProfile, error)
	GetCompetitor(ctx context.Context, id string) (*model.CompetitorProfile, error)
	AddCompetitor(ctx context.Context, profile *model.CompetitorProfile) error
	UpdateCompetitor(ctx context.Context, profile *model.CompetitorProfile) error
	// RemoveCompetitor deletes the profile and cascades to its gaps:
	// gaps exclusively tied to it are deleted, shared gaps shrink.
	RemoveCompetitor(ctx context.Context, id string) error

	// Gaps
	GetGaps(ctx context.Context, brandID string) ([]model.CompetitorGap, error)
	SaveGaps(ctx context.Context, gaps []model.CompetitorGap) error
	SetGapStarred(ctx context.Context, id string, starred bool) error
	SetGapDismissed(ctx context.Context, id string, dismissed bool) error
	DeleteGapsForBrand(ctx context.Context, brandID string) error
	// DeleteGapsForCompetitor removes gaps exclusively tied to the
	// competitor. Used for replace semantics on rescan.
	DeleteGapsForCompetitor(ctx context.Context, competitorID string) error

	// Scan provenance
	SaveScanRecord(ctx context.Context, rec *model.ScanRecord) error
	DeleteScansForBrand(ctx context.Context, brandID string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
