// Package discovery resolves the competitor set for a brand: cached
// profiles first, fresh discovery when asked for or when nothing is
// cached yet.
package discovery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/DockeryAI/competitor-intel/internal/identity"
	"github.com/DockeryAI/competitor-intel/internal/model"
	"github.com/DockeryAI/competitor-intel/internal/policy"
	"github.com/DockeryAI/competitor-intel/internal/store"
)

// Discoverer finds competitor candidates for a brand. Satisfied by
// scan.MultiSourceScanner.
type Discoverer interface {
	Discover(ctx context.Context, brand *model.BrandContext) ([]model.DiscoveredCompetitor, error)
}

// Resolution is the outcome of resolving a brand's competitor set.
type Resolution struct {
	Competitors []model.CompetitorProfile
	// FromCache is true when no fresh discovery ran.
	FromCache bool
	// Discovered counts profiles added by fresh discovery in this call.
	Discovered int
}

// Orchestrator decides whether a run uses cached competitors or fresh
// discovery, merges the two, and persists anything new. Fresh results
// never shrink the set: a competitor stays until explicitly removed.
type Orchestrator struct {
	store      store.Store
	discoverer Discoverer
	gate       *policy.Gate
	// autoDiscover runs fresh discovery for brands with no cached
	// competitors even without a refresh request.
	autoDiscover bool
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(st store.Store, d Discoverer, gate *policy.Gate, autoDiscover bool) *Orchestrator {
	return &Orchestrator{
		store:        st,
		discoverer:   d,
		gate:         gate,
		autoDiscover: autoDiscover,
	}
}

// Resolve returns the competitor set for the run. Cached profiles win
// unless opts.ForceRefresh is set or the cache is empty with auto
// discovery on. Discovery failure degrades to the cached set when one
// exists; it is fatal only when there is nothing to fall back to.
func (o *Orchestrator) Resolve(ctx context.Context, brand *model.BrandContext, opts model.RunOptions) (*Resolution, error) {
	log := zap.L().With(zap.String("brand_id", brand.BrandID))

	existing := opts.ExistingCompetitors
	if len(existing) == 0 {
		var err error
		existing, err = o.store.GetCompetitors(ctx, brand.BrandID)
		if err != nil {
			return nil, eris.Wrap(err, "discovery: load cached competitors")
		}
	}
	existing = identity.DedupeProfiles(existing)

	needFresh := opts.ForceRefresh || (len(existing) == 0 && o.autoDiscover)
	if !needFresh {
		return &Resolution{Competitors: existing, FromCache: true}, nil
	}

	if res := o.gate.CheckScan(false); !res.Allowed {
		log.Info("discovery: external call blocked",
			zap.String("reason", string(res.Blocked)),
		)
		return &Resolution{Competitors: existing, FromCache: true}, nil
	}

	candidates, err := o.discoverer.Discover(ctx, brand)
	if err != nil {
		if len(existing) > 0 {
			log.Warn("discovery: fresh discovery failed, using cached set", zap.Error(err))
			return &Resolution{Competitors: existing, FromCache: true}, nil
		}
		return nil, eris.Wrap(err, "discovery: discover competitors")
	}

	added, err := o.merge(ctx, brand, existing, candidates)
	if err != nil {
		return nil, err
	}

	merged := identity.DedupeProfiles(append(existing, added...))
	if len(merged) == 0 && len(existing) > 0 {
		// Unreachable with merge-only semantics, but the cached set is
		// authoritative either way.
		merged = existing
	}

	log.Info("discovery: resolved competitor set",
		zap.Int("cached", len(existing)),
		zap.Int("discovered", len(added)),
		zap.Int("total", len(merged)),
	)
	return &Resolution{Competitors: merged, Discovered: len(added)}, nil
}

// merge persists candidates whose names are not already in the set.
func (o *Orchestrator) merge(ctx context.Context, brand *model.BrandContext, existing []model.CompetitorProfile, candidates []model.DiscoveredCompetitor) ([]model.CompetitorProfile, error) {
	var added []model.CompetitorProfile
	known := existing
	for _, c := range candidates {
		if identity.Normalize(c.Name) == "" {
			continue
		}
		if identity.ContainsName(known, c.Name) {
			continue
		}
		p := model.CompetitorProfile{
			ID:                 uuid.NewString(),
			BrandID:            brand.BrandID,
			Name:               identity.DisplayName(c.Name),
			Website:            c.Website,
			LogoURL:            c.LogoURL,
			PositioningSummary: c.Description,
			BusinessModel:      c.BusinessModel,
			UpdatedAt:          time.Time{},
		}
		if err := o.store.AddCompetitor(ctx, &p); err != nil {
			return nil, eris.Wrapf(err, "discovery: persist competitor %s", c.Name)
		}
		added = append(added, p)
		known = append(known, p)
	}
	return added, nil
}
