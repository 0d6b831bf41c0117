package scan

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/DockeryAI/competitor-intel/internal/model"
	"github.com/DockeryAI/competitor-intel/internal/store"
)

// CompetitorScan is the outcome of running all sources for one
// competitor: whatever succeeded, plus the persisted scan record IDs for
// gap provenance.
type CompetitorScan struct {
	Results []model.ScanResult
	ScanIDs []string
	// Failed lists the sources that errored.
	Failed []model.ScanType
}

// Executor runs the full set of source scans for one competitor. Sources
// run in order; a failed source is reported and skipped, not fatal. The
// scan fails only when every source fails.
type Executor struct {
	scanner       Scanner
	store         store.Store
	sourceTimeout time.Duration
}

// NewExecutor creates an Executor. sourceTimeout bounds each individual
// source scan; zero means no per-source bound.
func NewExecutor(scanner Scanner, st store.Store, sourceTimeout time.Duration) *Executor {
	return &Executor{
		scanner:       scanner,
		store:         st,
		sourceTimeout: sourceTimeout,
	}
}

// ScanCompetitor runs every source for the competitor, persisting a scan
// record per successful source and reporting progress through the sink.
// Progress only moves forward: each finished source, success or failure,
// advances it by an equal share.
func (e *Executor) ScanCompetitor(ctx context.Context, brand *model.BrandContext, comp *model.CompetitorProfile, sink Sink) (*CompetitorScan, error) {
	log := zap.L().With(
		zap.String("competitor_id", comp.ID),
		zap.String("competitor", comp.Name),
	)

	out := &CompetitorScan{}
	total := len(model.AllScanSources)

	for i, scanType := range model.AllScanSources {
		if err := ctx.Err(); err != nil {
			return out, eris.Wrap(err, "scan: run cancelled")
		}

		sink.ScanStarted(comp, scanType)

		result, err := e.runSource(ctx, brand, comp, scanType)

		// The progress tick precedes the terminal event so that a
		// competitor's event log never shows progress after completion.
		sink.ScanProgress(comp, scanType, (i+1)*100/total)

		if err != nil {
			log.Warn("scan: source failed",
				zap.String("scan_type", string(scanType)),
				zap.Error(err),
			)
			out.Failed = append(out.Failed, scanType)
			sink.ScanError(comp, scanType, err)
		} else {
			rec := &model.ScanRecord{
				ID:           uuid.NewString(),
				BrandID:      brand.BrandID,
				CompetitorID: comp.ID,
				ScanType:     scanType,
				Summary:      truncate(result.Content, 2000),
				CreatedAt:    time.Now().UTC(),
			}
			if err := e.store.SaveScanRecord(ctx, rec); err != nil {
				log.Warn("scan: persist scan record",
					zap.String("scan_type", string(scanType)),
					zap.Error(err),
				)
			} else {
				out.ScanIDs = append(out.ScanIDs, rec.ID)
			}
			out.Results = append(out.Results, *result)
			sink.ScanCompleted(comp, scanType, result)
		}
	}

	if len(out.Results) == 0 {
		return out, eris.Errorf("scan: all sources failed for %s", comp.Name)
	}
	return out, nil
}

func (e *Executor) runSource(ctx context.Context, brand *model.BrandContext, comp *model.CompetitorProfile, scanType model.ScanType) (*model.ScanResult, error) {
	if e.sourceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.sourceTimeout)
		defer cancel()
	}
	return e.scanner.ScanSource(ctx, brand, comp, scanType)
}
