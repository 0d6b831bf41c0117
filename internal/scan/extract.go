package scan

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/DockeryAI/competitor-intel/internal/model"
	"github.com/DockeryAI/competitor-intel/internal/store"
)

// GapExtractor turns a competitor's scan results into persisted gaps.
// Rescans replace: gaps exclusively tied to the competitor are deleted
// before the fresh set is saved, so stale single-competitor findings
// never linger. Gaps shared with other competitors are left alone.
type GapExtractor struct {
	scanner Scanner
	store   store.Store
}

// NewGapExtractor creates a GapExtractor.
func NewGapExtractor(scanner Scanner, st store.Store) *GapExtractor {
	return &GapExtractor{scanner: scanner, store: st}
}

// Extract derives gaps from the scan, stamps provenance, and persists
// them with replace semantics. Each saved gap is reported to the sink.
func (x *GapExtractor) Extract(ctx context.Context, brand *model.BrandContext, comp *model.CompetitorProfile, cs *CompetitorScan, sink Sink) ([]model.CompetitorGap, error) {
	gaps, err := x.scanner.ExtractGaps(ctx, brand, comp, cs.Results)
	if err != nil {
		return nil, eris.Wrapf(err, "scan: extract gaps for %s", comp.Name)
	}

	for i := range gaps {
		gaps[i].SourceScanIDs = cs.ScanIDs
	}

	if err := x.store.DeleteGapsForCompetitor(ctx, comp.ID); err != nil {
		return nil, eris.Wrapf(err, "scan: clear stale gaps for %s", comp.Name)
	}
	if err := x.store.SaveGaps(ctx, gaps); err != nil {
		return nil, eris.Wrapf(err, "scan: save gaps for %s", comp.Name)
	}

	for _, g := range gaps {
		sink.GapSaved(g)
	}

	zap.L().Info("scan: gaps extracted",
		zap.String("competitor", comp.Name),
		zap.Int("count", len(gaps)),
	)
	return gaps, nil
}
