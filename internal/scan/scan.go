// Package scan runs the per-competitor source scans and the analysis
// stages built on top of them. The Scanner interface is the single
// capability boundary to the outside world; everything above it is
// orchestration.
package scan

import (
	"context"

	"github.com/DockeryAI/competitor-intel/internal/model"
)

// Scanner is the capability surface the pipeline depends on. The
// production implementation fans out to Firecrawl, Google Places,
// Perplexity, and Anthropic; tests substitute a mock.
type Scanner interface {
	// Discover finds competitor candidates for a brand.
	Discover(ctx context.Context, brand *model.BrandContext) ([]model.DiscoveredCompetitor, error)

	// ScanSource runs one source scan for a competitor.
	ScanSource(ctx context.Context, brand *model.BrandContext, comp *model.CompetitorProfile, scanType model.ScanType) (*model.ScanResult, error)

	// ExtractGaps derives positioning gaps from a competitor's scan results.
	ExtractGaps(ctx context.Context, brand *model.BrandContext, comp *model.CompetitorProfile, results []model.ScanResult) ([]model.CompetitorGap, error)

	// ExtractCustomerVoice summarizes review content for a competitor.
	ExtractCustomerVoice(ctx context.Context, comp *model.CompetitorProfile, results []model.ScanResult) (*model.CustomerVoice, error)

	// GenerateBattlecard produces a sales battlecard against a competitor.
	GenerateBattlecard(ctx context.Context, brand *model.BrandContext, comp *model.CompetitorProfile, results []model.ScanResult) (*model.Battlecard, error)
}

// Sink receives progress callbacks as a competitor's scan advances. The
// streaming manager translates these into client events; batch callers
// can use NopSink.
type Sink interface {
	ScanStarted(comp *model.CompetitorProfile, scanType model.ScanType)
	ScanProgress(comp *model.CompetitorProfile, scanType model.ScanType, progress int)
	ScanCompleted(comp *model.CompetitorProfile, scanType model.ScanType, result *model.ScanResult)
	ScanError(comp *model.CompetitorProfile, scanType model.ScanType, err error)
	GapSaved(gap model.CompetitorGap)
	CustomerVoiceReady(competitorID string, voice model.CustomerVoice)
	BattlecardReady(competitorID string, card model.Battlecard)
	InsightsReady(competitorID string, insights model.EnhancedCompetitorInsights)
}

// NopSink discards all callbacks.
type NopSink struct{}

func (NopSink) ScanStarted(*model.CompetitorProfile, model.ScanType)                      {}
func (NopSink) ScanProgress(*model.CompetitorProfile, model.ScanType, int)                {}
func (NopSink) ScanCompleted(*model.CompetitorProfile, model.ScanType, *model.ScanResult) {}
func (NopSink) ScanError(*model.CompetitorProfile, model.ScanType, error)                 {}
func (NopSink) GapSaved(model.CompetitorGap)                                              {}
func (NopSink) CustomerVoiceReady(string, model.CustomerVoice)                            {}
func (NopSink) BattlecardReady(string, model.Battlecard)                                  {}
func (NopSink) InsightsReady(string, model.EnhancedCompetitorInsights)                    {}
