package scan

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/DockeryAI/competitor-intel/internal/model"
	"github.com/DockeryAI/competitor-intel/pkg/anthropic"
	"github.com/DockeryAI/competitor-intel/pkg/firecrawl"
	"github.com/DockeryAI/competitor-intel/pkg/google"
	"github.com/DockeryAI/competitor-intel/pkg/perplexity"
)

// --- Scanner mock ---

type mockScanner struct {
	mock.Mock
}

func (m *mockScanner) Discover(ctx context.Context, brand *model.BrandContext) ([]model.DiscoveredCompetitor, error) {
	args := m.Called(ctx, brand)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DiscoveredCompetitor), args.Error(1)
}

func (m *mockScanner) ScanSource(ctx context.Context, brand *model.BrandContext, comp *model.CompetitorProfile, scanType model.ScanType) (*model.ScanResult, error) {
	args := m.Called(ctx, brand, comp, scanType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ScanResult), args.Error(1)
}

func (m *mockScanner) ExtractGaps(ctx context.Context, brand *model.BrandContext, comp *model.CompetitorProfile, results []model.ScanResult) ([]model.CompetitorGap, error) {
	args := m.Called(ctx, brand, comp, results)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CompetitorGap), args.Error(1)
}

func (m *mockScanner) ExtractCustomerVoice(ctx context.Context, comp *model.CompetitorProfile, results []model.ScanResult) (*model.CustomerVoice, error) {
	args := m.Called(ctx, comp, results)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CustomerVoice), args.Error(1)
}

func (m *mockScanner) GenerateBattlecard(ctx context.Context, brand *model.BrandContext, comp *model.CompetitorProfile, results []model.ScanResult) (*model.Battlecard, error) {
	args := m.Called(ctx, brand, comp, results)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Battlecard), args.Error(1)
}

// --- Store mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetCompetitors(ctx context.Context, brandID string) ([]model.CompetitorProfile, error) {
	args := m.Called(ctx, brandID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CompetitorProfile), args.Error(1)
}

func (m *mockStore) GetCompetitor(ctx context.Context, id string) (*model.CompetitorProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CompetitorProfile), args.Error(1)
}

func (m *mockStore) AddCompetitor(ctx context.Context, profile *model.CompetitorProfile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *mockStore) UpdateCompetitor(ctx context.Context, profile *model.CompetitorProfile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *mockStore) RemoveCompetitor(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) GetGaps(ctx context.Context, brandID string) ([]model.CompetitorGap, error) {
	args := m.Called(ctx, brandID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CompetitorGap), args.Error(1)
}

func (m *mockStore) SaveGaps(ctx context.Context, gaps []model.CompetitorGap) error {
	return m.Called(ctx, gaps).Error(0)
}

func (m *mockStore) SetGapStarred(ctx context.Context, id string, starred bool) error {
	return m.Called(ctx, id, starred).Error(0)
}

func (m *mockStore) SetGapDismissed(ctx context.Context, id string, dismissed bool) error {
	return m.Called(ctx, id, dismissed).Error(0)
}

func (m *mockStore) DeleteGapsForBrand(ctx context.Context, brandID string) error {
	return m.Called(ctx, brandID).Error(0)
}

func (m *mockStore) DeleteGapsForCompetitor(ctx context.Context, competitorID string) error {
	return m.Called(ctx, competitorID).Error(0)
}

func (m *mockStore) SaveScanRecord(ctx context.Context, rec *model.ScanRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockStore) DeleteScansForBrand(ctx context.Context, brandID string) error {
	return m.Called(ctx, brandID).Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

// --- Provider client mocks ---

type mockFirecrawlClient struct {
	mock.Mock
}

func (m *mockFirecrawlClient) Scrape(ctx context.Context, req firecrawl.ScrapeRequest) (*firecrawl.ScrapeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*firecrawl.ScrapeResponse), args.Error(1)
}

type mockGoogleClient struct {
	mock.Mock
}

func (m *mockGoogleClient) TextSearch(ctx context.Context, query string) (*google.TextSearchResponse, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*google.TextSearchResponse), args.Error(1)
}

type mockPerplexityClient struct {
	mock.Mock
}

func (m *mockPerplexityClient) Research(ctx context.Context, systemPrompt, userPrompt string) (*perplexity.ResearchResult, error) {
	args := m.Called(ctx, systemPrompt, userPrompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*perplexity.ResearchResult), args.Error(1)
}

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// --- Recording sink ---

// recordedEvent captures one sink callback for assertion.
type recordedEvent struct {
	Kind         string
	CompetitorID string
	ScanType     model.ScanType
	Progress     int
	Err          error
}

type recordingSink struct {
	mu     sync.Mutex
	events []recordedEvent
	gaps   []model.CompetitorGap
}

func (s *recordingSink) record(ev recordedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) ScanStarted(comp *model.CompetitorProfile, scanType model.ScanType) {
	s.record(recordedEvent{Kind: "scan-started", CompetitorID: comp.ID, ScanType: scanType})
}

func (s *recordingSink) ScanProgress(comp *model.CompetitorProfile, scanType model.ScanType, progress int) {
	s.record(recordedEvent{Kind: "scan-progress", CompetitorID: comp.ID, ScanType: scanType, Progress: progress})
}

func (s *recordingSink) ScanCompleted(comp *model.CompetitorProfile, scanType model.ScanType, result *model.ScanResult) {
	s.record(recordedEvent{Kind: "scan-completed", CompetitorID: comp.ID, ScanType: scanType})
}

func (s *recordingSink) ScanError(comp *model.CompetitorProfile, scanType model.ScanType, err error) {
	s.record(recordedEvent{Kind: "scan-error", CompetitorID: comp.ID, ScanType: scanType, Err: err})
}

func (s *recordingSink) GapSaved(gap model.CompetitorGap) {
	s.mu.Lock()
	s.gaps = append(s.gaps, gap)
	s.mu.Unlock()
	s.record(recordedEvent{Kind: "gap-saved"})
}

func (s *recordingSink) CustomerVoiceReady(competitorID string, voice model.CustomerVoice) {
	s.record(recordedEvent{Kind: "customer-voice-ready", CompetitorID: competitorID})
}

func (s *recordingSink) BattlecardReady(competitorID string, card model.Battlecard) {
	s.record(recordedEvent{Kind: "battlecard-ready", CompetitorID: competitorID})
}

func (s *recordingSink) InsightsReady(competitorID string, insights model.EnhancedCompetitorInsights) {
	s.record(recordedEvent{Kind: "insights-ready", CompetitorID: competitorID})
}

func (s *recordingSink) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Kind
	}
	return out
}

func (s *recordingSink) ofKind(kind string) []recordedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []recordedEvent
	for _, ev := range s.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}
