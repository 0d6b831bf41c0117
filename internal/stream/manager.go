package stream

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DockeryAI/competitor-intel/internal/discovery"
	"github.com/DockeryAI/competitor-intel/internal/model"
	"github.com/DockeryAI/competitor-intel/internal/policy"
	"github.com/DockeryAI/competitor-intel/internal/scan"
	"github.com/DockeryAI/competitor-intel/internal/store"
)

// Progress checkpoints for the run. Overall progress is monotonic: a
// phase boundary never reports less than anything emitted before it.
const (
	progressDiscovery    = 5
	progressScanBase     = 10
	progressScanSpan     = 50 // scans advance 10 -> 60
	progressAnalysisBase = 60
	progressAnalysisSpan = 20 // extraction advances 60 -> 80
	progressEnrichBase   = 80
	progressEnrichSpan   = 15 // enrichment advances 80 -> 95
	progressFinal        = 95
	progressComplete     = 100
)

// Resolver resolves the competitor set for a run. Satisfied by
// discovery.Orchestrator.
type Resolver interface {
	Resolve(ctx context.Context, brand *model.BrandContext, opts model.RunOptions) (*discovery.Resolution, error)
}

// ManagerDeps carries everything a Manager needs. All dependencies are
// injected; the Manager owns no globals and all per-run state lives on
// the run, so concurrent runs for different brands do not interfere.
type ManagerDeps struct {
	Store    store.Store
	Resolver Resolver
	Scanner  scan.Scanner
	Gate     *policy.Gate
	Broker   *Broker

	// MaxConcurrent bounds how many competitor pipelines run at once.
	MaxConcurrent int
	// SourceTimeout bounds each individual source scan.
	SourceTimeout time.Duration
}

// Manager drives a streaming analysis run through its phases:
// discovery, bounded parallel scans, gap extraction, best-effort
// enrichment, completion. Progress events are published to the broker
// under the brand's topic as they happen, never batched.
type Manager struct {
	store         store.Store
	resolver      Resolver
	gate          *policy.Gate
	broker        *Broker
	executor      *scan.Executor
	extractor     *scan.GapExtractor
	enricher      *scan.Enricher
	maxConcurrent int
}

// NewManager creates a Manager.
func NewManager(deps ManagerDeps) *Manager {
	if deps.MaxConcurrent < 1 {
		deps.MaxConcurrent = 1
	}
	return &Manager{
		store:         deps.Store,
		resolver:      deps.Resolver,
		gate:          deps.Gate,
		broker:        deps.Broker,
		executor:      scan.NewExecutor(deps.Scanner, deps.Store, deps.SourceTimeout),
		extractor:     scan.NewGapExtractor(deps.Scanner, deps.Store),
		enricher:      scan.NewEnricher(deps.Scanner),
		maxConcurrent: deps.MaxConcurrent,
	}
}

// runState is the per-run coordination record. Everything mutable during
// a run hangs off it, so two concurrent runs never share state.
type runState struct {
	brand *model.BrandContext

	mu       sync.Mutex
	progress int
	phase    model.PipelinePhase

	// scan progress accounting: one unit per (competitor, source).
	totalUnits int
	doneUnits  int

	gaps     []model.CompetitorGap
	insights map[string]model.EnhancedCompetitorInsights
}

func newRunState(brand *model.BrandContext) *runState {
	return &runState{
		brand:    brand,
		phase:    model.PhaseIdle,
		insights: make(map[string]model.EnhancedCompetitorInsights),
	}
}

// advance raises overall progress to v, never lowering it. Callers hold
// r.mu.
func (r *runState) advance(v int) {
	if v > r.progress {
		r.progress = v
	}
}

func (r *runState) addGaps(gaps []model.CompetitorGap) {
	r.mu.Lock()
	r.gaps = append(r.gaps, gaps...)
	r.mu.Unlock()
}

func (r *runState) addInsights(competitorID string, in model.EnhancedCompetitorInsights) {
	r.mu.Lock()
	if !in.Empty() {
		r.insights[competitorID] = in
	}
	r.mu.Unlock()
}

// RunStreamingAnalysis executes a full run for the brand and returns the
// aggregate result. The run always terminates: competitor failures are
// tolerated, and only discovery failing with nothing cached or a dead
// store is fatal. Cancelling the context abandons in-flight scans.
func (m *Manager) RunStreamingAnalysis(ctx context.Context, brand *model.BrandContext, opts model.RunOptions) (*model.RunResult, error) {
	run := newRunState(brand)
	log := zap.L().With(zap.String("brand_id", brand.BrandID))
	started := time.Now()

	m.setPhase(run, model.PhaseDiscoveryStarted, progressDiscovery)

	// Show cache first: whatever is already known goes out with the
	// discovery event, before any provider is called.
	m.publish(run, Event{Type: EventDiscoveryStarted, Competitors: m.knownCompetitors(ctx, brand, opts)})

	resolution, err := m.resolver.Resolve(ctx, brand, opts)
	if err != nil {
		m.fail(run, err)
		return nil, eris.Wrap(err, "stream: resolve competitors")
	}
	competitors := resolution.Competitors

	if len(competitors) == 0 {
		log.Info("stream: no competitors to scan, run complete")
		return m.complete(run, &model.RunResult{Competitors: []model.CompetitorProfile{}, Gaps: []model.CompetitorGap{}}), nil
	}

	// Cache-only mode serves persisted results without touching any
	// provider. Not an error, just a short run.
	if res := m.gate.CheckScan(false); !res.Allowed {
		gaps, err := m.store.GetGaps(ctx, brand.BrandID)
		if err != nil {
			m.fail(run, err)
			return nil, eris.Wrap(err, "stream: load cached gaps")
		}
		log.Info("stream: serving cached results",
			zap.String("blocked", string(res.Blocked)),
			zap.Int("competitors", len(competitors)),
			zap.Int("gaps", len(gaps)),
		)
		return m.complete(run, &model.RunResult{Competitors: competitors, Gaps: gaps}), nil
	}

	run.mu.Lock()
	run.totalUnits = len(competitors) * len(model.AllScanSources)
	run.mu.Unlock()

	m.setPhase(run, model.PhaseScanStarted, progressScanBase)

	// The definitive set for the run precedes the first scan-started,
	// so subscribers can render it without waiting on per-competitor
	// events.
	m.publish(run, Event{Type: EventCompetitorsResolved, Competitors: competitors})

	// Wave 1: source scans, bounded. A competitor whose scan fails
	// outright is dropped from the later waves but stays in the result.
	scans := m.runScans(ctx, run, competitors)

	m.setPhase(run, model.PhaseAnalysisStarted, progressAnalysisBase)

	// Wave 2: gap extraction for every competitor that produced data.
	m.runExtraction(ctx, run, competitors, scans)

	m.setPhase(run, model.PhaseAnalysisCompleted, progressAnalysisBase+progressAnalysisSpan)

	// Wave 3: best-effort enrichment.
	m.runEnrichment(ctx, run, competitors, scans)

	m.setPhase(run, model.PhaseAllScansCompleted, progressFinal)
	m.publish(run, Event{Type: EventAllScansCompleted})

	result := &model.RunResult{
		Competitors: competitors,
		Gaps:        run.gaps,
		Insights:    run.insights,
	}
	if result.Gaps == nil {
		result.Gaps = []model.CompetitorGap{}
	}

	log.Info("stream: run finished",
		zap.Int("competitors", len(result.Competitors)),
		zap.Int("gaps", len(result.Gaps)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return m.complete(run, result), nil
}

// knownCompetitors returns the set already available without calling
// any provider: the caller-seeded list if present, else whatever the
// store holds. A load failure degrades to an empty set here since
// resolution surfaces it properly.
func (m *Manager) knownCompetitors(ctx context.Context, brand *model.BrandContext, opts model.RunOptions) []model.CompetitorProfile {
	if len(opts.ExistingCompetitors) > 0 {
		return opts.ExistingCompetitors
	}
	cached, err := m.store.GetCompetitors(ctx, brand.BrandID)
	if err != nil {
		zap.L().Warn("stream: load cached competitors", zap.Error(err))
		return nil
	}
	return cached
}

// runScans executes wave 1 and returns per-competitor scan outcomes,
// nil where the competitor failed entirely.
func (m *Manager) runScans(ctx context.Context, run *runState, competitors []model.CompetitorProfile) []*scan.CompetitorScan {
	scans := make([]*scan.CompetitorScan, len(competitors))

	g := new(errgroup.Group)
	g.SetLimit(m.maxConcurrent)
	for i := range competitors {
		g.Go(func() error {
			comp := &competitors[i]
			cs, err := m.executor.ScanCompetitor(ctx, run.brand, comp, &runSink{m: m, run: run})
			if err != nil {
				// Scoped to this competitor; siblings keep going.
				zap.L().Warn("stream: competitor scan failed",
					zap.String("competitor", comp.Name),
					zap.Error(err),
				)
				return nil
			}
			scans[i] = cs
			comp.UpdatedAt = time.Now().UTC()
			if err := m.store.UpdateCompetitor(ctx, comp); err != nil {
				zap.L().Warn("stream: refresh competitor timestamp",
					zap.String("competitor", comp.Name),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // goroutines never return errors
	return scans
}

func (m *Manager) runExtraction(ctx context.Context, run *runState, competitors []model.CompetitorProfile, scans []*scan.CompetitorScan) {
	g := new(errgroup.Group)
	g.SetLimit(m.maxConcurrent)
	done := 0
	var doneMu sync.Mutex
	for i := range competitors {
		if scans[i] == nil {
			continue
		}
		g.Go(func() error {
			comp := &competitors[i]
			gaps, err := m.extractor.Extract(ctx, run.brand, comp, scans[i], &runSink{m: m, run: run})
			if err != nil {
				zap.L().Warn("stream: gap extraction failed",
					zap.String("competitor", comp.Name),
					zap.Error(err),
				)
			} else {
				run.addGaps(gaps)
			}
			doneMu.Lock()
			done++
			v := progressAnalysisBase + done*progressAnalysisSpan/len(competitors)
			doneMu.Unlock()
			run.mu.Lock()
			run.advance(v)
			run.mu.Unlock()
			return nil
		})
	}
	g.Wait() //nolint:errcheck
}

func (m *Manager) runEnrichment(ctx context.Context, run *runState, competitors []model.CompetitorProfile, scans []*scan.CompetitorScan) {
	g := new(errgroup.Group)
	g.SetLimit(m.maxConcurrent)
	done := 0
	var doneMu sync.Mutex
	for i := range competitors {
		if scans[i] == nil {
			continue
		}
		g.Go(func() error {
			comp := &competitors[i]
			insights := m.enricher.Enrich(ctx, run.brand, comp, scans[i].Results, &runSink{m: m, run: run})
			run.addInsights(comp.ID, insights)
			doneMu.Lock()
			done++
			v := progressEnrichBase + done*progressEnrichSpan/len(competitors)
			doneMu.Unlock()
			run.mu.Lock()
			run.advance(v)
			run.mu.Unlock()
			return nil
		})
	}
	g.Wait() //nolint:errcheck
}

// RescanCompetitor runs the single-competitor pipeline, subject to the
// cache-only and rescan-window policy. A blocked result is normal
// control flow, not an error.
func (m *Manager) RescanCompetitor(ctx context.Context, brand *model.BrandContext, competitorID string, force bool) (policy.Result, error) {
	comp, err := m.store.GetCompetitor(ctx, competitorID)
	if err != nil {
		return policy.Result{}, eris.Wrapf(err, "stream: load competitor %s", competitorID)
	}

	if res := m.gate.CheckRescan(comp, force); !res.Allowed {
		zap.L().Info("stream: rescan blocked",
			zap.String("competitor", comp.Name),
			zap.String("reason", string(res.Blocked)),
		)
		return res, nil
	}

	run := newRunState(brand)
	run.mu.Lock()
	run.totalUnits = len(model.AllScanSources)
	run.mu.Unlock()
	sink := &runSink{m: m, run: run}

	cs, err := m.executor.ScanCompetitor(ctx, brand, comp, sink)
	if err != nil {
		return policy.Result{}, eris.Wrapf(err, "stream: rescan %s", comp.Name)
	}

	if _, err := m.extractor.Extract(ctx, brand, comp, cs, sink); err != nil {
		return policy.Result{}, eris.Wrapf(err, "stream: extract gaps on rescan of %s", comp.Name)
	}

	m.enricher.Enrich(ctx, brand, comp, cs.Results, sink)

	comp.UpdatedAt = time.Now().UTC()
	if err := m.store.UpdateCompetitor(ctx, comp); err != nil {
		zap.L().Warn("stream: refresh competitor timestamp",
			zap.String("competitor", comp.Name),
			zap.Error(err),
		)
	}
	return policy.Result{Allowed: true}, nil
}

// publish stamps the event with the run's overall progress and sends it.
// Holding run.mu across the read and the broker send keeps the progress
// values in the published log monotonic; Broker.Publish never blocks, so
// the lock is held only briefly.
func (m *Manager) publish(run *runState, ev Event) {
	run.mu.Lock()
	ev.Timestamp = time.Now().UTC()
	if ev.OverallProgress == 0 {
		ev.OverallProgress = run.progress
	}
	m.broker.Publish(run.brand.BrandID, ev)
	run.mu.Unlock()
}

// publishScanTick counts one finished source scan and publishes the
// event with the resulting progress, atomically.
func (m *Manager) publishScanTick(run *runState, ev Event) {
	run.mu.Lock()
	run.doneUnits++
	v := progressScanBase
	if run.totalUnits > 0 {
		v += run.doneUnits * progressScanSpan / run.totalUnits
	}
	run.advance(v)
	ev.OverallProgress = run.progress
	ev.Timestamp = time.Now().UTC()
	m.broker.Publish(run.brand.BrandID, ev)
	run.mu.Unlock()
}

func (m *Manager) setPhase(run *runState, phase model.PipelinePhase, progress int) {
	run.mu.Lock()
	run.phase = phase
	run.advance(progress)
	ev := Event{
		Type:            EventPhaseChanged,
		Phase:           phase,
		PhaseLabel:      phase.Label(),
		OverallProgress: run.progress,
		Timestamp:       time.Now().UTC(),
	}
	m.broker.Publish(run.brand.BrandID, ev)
	run.mu.Unlock()
}

func (m *Manager) complete(run *runState, result *model.RunResult) *model.RunResult {
	m.setPhase(run, model.PhaseComplete, progressComplete)
	m.publish(run, Event{Type: EventComplete, Result: result, OverallProgress: progressComplete})
	return result
}

func (m *Manager) fail(run *runState, err error) {
	m.setPhase(run, model.PhaseError, 0)
	m.publish(run, Event{Type: EventError, Error: err.Error()})
}

// runSink translates scan callbacks into published events, keeping the
// per-competitor causal order because each callback publishes inline
// from the competitor's own goroutine.
type runSink struct {
	m   *Manager
	run *runState
}

func (s *runSink) ScanStarted(comp *model.CompetitorProfile, scanType model.ScanType) {
	s.m.publish(s.run, Event{
		Type:           EventScanStarted,
		CompetitorID:   comp.ID,
		CompetitorName: comp.Name,
		ScanType:       scanType,
	})
}

func (s *runSink) ScanProgress(comp *model.CompetitorProfile, scanType model.ScanType, progress int) {
	s.m.publishScanTick(s.run, Event{
		Type:           EventScanProgress,
		CompetitorID:   comp.ID,
		CompetitorName: comp.Name,
		ScanType:       scanType,
		Progress:       progress,
	})
}

func (s *runSink) ScanCompleted(comp *model.CompetitorProfile, scanType model.ScanType, result *model.ScanResult) {
	s.m.publish(s.run, Event{
		Type:           EventScanCompleted,
		CompetitorID:   comp.ID,
		CompetitorName: comp.Name,
		ScanType:       scanType,
	})
}

func (s *runSink) ScanError(comp *model.CompetitorProfile, scanType model.ScanType, err error) {
	s.m.publish(s.run, Event{
		Type:           EventScanError,
		CompetitorID:   comp.ID,
		CompetitorName: comp.Name,
		ScanType:       scanType,
		Error:          err.Error(),
	})
}

func (s *runSink) GapSaved(gap model.CompetitorGap) {
	g := gap
	competitorID := ""
	if len(g.CompetitorIDs) == 1 {
		competitorID = g.CompetitorIDs[0]
	}
	s.m.publish(s.run, Event{
		Type:         EventGapSaved,
		CompetitorID: competitorID,
		Gap:          &g,
	})
}

func (s *runSink) CustomerVoiceReady(competitorID string, voice model.CustomerVoice) {
	v := voice
	s.m.publish(s.run, Event{
		Type:         EventCustomerVoiceReady,
		CompetitorID: competitorID,
		Voice:        &v,
	})
}

func (s *runSink) BattlecardReady(competitorID string, card model.Battlecard) {
	c := card
	s.m.publish(s.run, Event{
		Type:         EventBattlecardReady,
		CompetitorID: competitorID,
		Battlecard:   &c,
	})
}

func (s *runSink) InsightsReady(competitorID string, insights model.EnhancedCompetitorInsights) {
	in := insights
	s.m.publish(s.run, Event{
		Type:         EventInsightsReady,
		CompetitorID: competitorID,
		Insights:     &in,
	})
}
