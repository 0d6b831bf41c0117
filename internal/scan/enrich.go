package scan

import (
	"context"

	"go.uber.org/zap"

	"github.com/DockeryAI/competitor-intel/internal/model"
)

// Enricher runs the optional per-competitor analysis steps: customer
// voice and battlecard. Enrichment is best effort; a failed step logs
// and leaves its field nil, it never fails the run.
type Enricher struct {
	scanner Scanner
}

// NewEnricher creates an Enricher.
func NewEnricher(scanner Scanner) *Enricher {
	return &Enricher{scanner: scanner}
}

// Enrich produces whatever insights it can from the scan results,
// reporting each as it lands.
func (n *Enricher) Enrich(ctx context.Context, brand *model.BrandContext, comp *model.CompetitorProfile, results []model.ScanResult, sink Sink) model.EnhancedCompetitorInsights {
	log := zap.L().With(zap.String("competitor", comp.Name))
	var insights model.EnhancedCompetitorInsights

	voice, err := n.scanner.ExtractCustomerVoice(ctx, comp, results)
	if err != nil {
		log.Warn("scan: customer voice enrichment skipped", zap.Error(err))
	} else {
		insights.CustomerVoice = voice
		sink.CustomerVoiceReady(comp.ID, *voice)
	}

	card, err := n.scanner.GenerateBattlecard(ctx, brand, comp, results)
	if err != nil {
		log.Warn("scan: battlecard enrichment skipped", zap.Error(err))
	} else {
		insights.Battlecard = card
		sink.BattlecardReady(comp.ID, *card)
	}

	if !insights.Empty() {
		sink.InsightsReady(comp.ID, insights)
	}
	return insights
}
