package stream

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/DockeryAI/competitor-intel/internal/discovery"
	"github.com/DockeryAI/competitor-intel/internal/model"
)

// fakeScanner is a configurable scan.Scanner for manager tests.
type fakeScanner struct {
	mu         sync.Mutex
	scanCalls  int
	DiscoverFn func(ctx context.Context, brand *model.BrandContext) ([]model.DiscoveredCompetitor, error)
	ScanFn     func(ctx context.Context, comp *model.CompetitorProfile, scanType model.ScanType) (*model.ScanResult, error)
	GapsFn     func(comp *model.CompetitorProfile, results []model.ScanResult) ([]model.CompetitorGap, error)
	VoiceFn    func(comp *model.CompetitorProfile) (*model.CustomerVoice, error)
	BattleFn   func(comp *model.CompetitorProfile) (*model.Battlecard, error)
}

func (f *fakeScanner) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scanCalls
}

func (f *fakeScanner) Discover(ctx context.Context, brand *model.BrandContext) ([]model.DiscoveredCompetitor, error) {
	if f.DiscoverFn != nil {
		return f.DiscoverFn(ctx, brand)
	}
	return nil, eris.New("discover not configured")
}

func (f *fakeScanner) ScanSource(ctx context.Context, brand *model.BrandContext, comp *model.CompetitorProfile, scanType model.ScanType) (*model.ScanResult, error) {
	f.mu.Lock()
	f.scanCalls++
	f.mu.Unlock()
	if f.ScanFn != nil {
		return f.ScanFn(ctx, comp, scanType)
	}
	return &model.ScanResult{ScanType: scanType, Content: "content for " + comp.Name}, nil
}

func (f *fakeScanner) ExtractGaps(ctx context.Context, brand *model.BrandContext, comp *model.CompetitorProfile, results []model.ScanResult) ([]model.CompetitorGap, error) {
	if f.GapsFn != nil {
		return f.GapsFn(comp, results)
	}
	return []model.CompetitorGap{{
		ID:            "gap-" + comp.ID,
		BrandID:       comp.BrandID,
		CompetitorIDs: []string{comp.ID},
		Title:         "gap for " + comp.Name,
	}}, nil
}

func (f *fakeScanner) ExtractCustomerVoice(ctx context.Context, comp *model.CompetitorProfile, results []model.ScanResult) (*model.CustomerVoice, error) {
	if f.VoiceFn != nil {
		return f.VoiceFn(comp)
	}
	return &model.CustomerVoice{Summary: "voice for " + comp.Name}, nil
}

func (f *fakeScanner) GenerateBattlecard(ctx context.Context, brand *model.BrandContext, comp *model.CompetitorProfile, results []model.ScanResult) (*model.Battlecard, error) {
	if f.BattleFn != nil {
		return f.BattleFn(comp)
	}
	return &model.Battlecard{Summary: "battlecard for " + comp.Name}, nil
}

// fakeResolver returns a fixed resolution.
type fakeResolver struct {
	resolution *discovery.Resolution
	err        error
}

func (f *fakeResolver) Resolve(ctx context.Context, brand *model.BrandContext, opts model.RunOptions) (*discovery.Resolution, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resolution, nil
}

// memStore is an in-memory store.Store for manager tests.
type memStore struct {
	mu          sync.Mutex
	competitors map[string]*model.CompetitorProfile
	gaps        map[string]*model.CompetitorGap
	scans       []model.ScanRecord
}

func newMemStore(profiles ...model.CompetitorProfile) *memStore {
	s := &memStore{
		competitors: make(map[string]*model.CompetitorProfile),
		gaps:        make(map[string]*model.CompetitorGap),
	}
	for i := range profiles {
		p := profiles[i]
		s.competitors[p.ID] = &p
	}
	return s
}

func (s *memStore) GetCompetitors(ctx context.Context, brandID string) ([]model.CompetitorProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.CompetitorProfile
	for _, p := range s.competitors {
		if p.BrandID == brandID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *memStore) GetCompetitor(ctx context.Context, id string) (*model.CompetitorProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.competitors[id]
	if !ok {
		return nil, eris.Errorf("competitor %s not found", id)
	}
	out := *p
	return &out, nil
}

func (s *memStore) AddCompetitor(ctx context.Context, profile *model.CompetitorProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *profile
	s.competitors[p.ID] = &p
	return nil
}

func (s *memStore) UpdateCompetitor(ctx context.Context, profile *model.CompetitorProfile) error {
	return s.AddCompetitor(ctx, profile)
}

func (s *memStore) RemoveCompetitor(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.competitors, id)
	return nil
}

func (s *memStore) GetGaps(ctx context.Context, brandID string) ([]model.CompetitorGap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.CompetitorGap
	for _, g := range s.gaps {
		if g.BrandID == brandID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (s *memStore) SaveGaps(ctx context.Context, gaps []model.CompetitorGap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range gaps {
		g := gaps[i]
		s.gaps[g.ID] = &g
	}
	return nil
}

func (s *memStore) SetGapStarred(ctx context.Context, id string, starred bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.gaps[id]; ok {
		g.IsStarred = starred
	}
	return nil
}

func (s *memStore) SetGapDismissed(ctx context.Context, id string, dismissed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.gaps[id]; ok {
		g.IsDismissed = dismissed
	}
	return nil
}

func (s *memStore) DeleteGapsForBrand(ctx context.Context, brandID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, g := range s.gaps {
		if g.BrandID == brandID {
			delete(s.gaps, id)
		}
	}
	return nil
}

func (s *memStore) DeleteGapsForCompetitor(ctx context.Context, competitorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, g := range s.gaps {
		if g.ExclusiveTo(competitorID) {
			delete(s.gaps, id)
		}
	}
	return nil
}

func (s *memStore) SaveScanRecord(ctx context.Context, rec *model.ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans = append(s.scans, *rec)
	return nil
}

func (s *memStore) DeleteScansForBrand(ctx context.Context, brandID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []model.ScanRecord
	for _, r := range s.scans {
		if r.BrandID != brandID {
			kept = append(kept, r)
		}
	}
	s.scans = kept
	return nil
}

func (s *memStore) Migrate(ctx context.Context) error { return nil }
func (s *memStore) Close() error                      { return nil }

// drain reads every event buffered on the subscription.
func drain(sub *Subscription) []Event {
	var out []Event
	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}
