// Package stream is the top-level run coordinator: it sequences the
// pipeline phases, fans out competitor scans with bounded concurrency,
// and broadcasts tagged lifecycle events to subscribers.
package stream

import (
	"time"

	"github.com/DockeryAI/competitor-intel/internal/model"
)

// EventType tags a lifecycle event. Consumers switch on the tag; every
// payload field an event carries is typed.
type EventType string

const (
	EventPhaseChanged        EventType = "phase-changed"
	EventDiscoveryStarted    EventType = "discovery-started"
	EventCompetitorsResolved EventType = "competitors-resolved"
	EventScanStarted         EventType = "scan-started"
	EventScanProgress        EventType = "scan-progress"
	EventScanCompleted       EventType = "scan-completed"
	EventScanError           EventType = "scan-error"
	EventGapSaved            EventType = "gap-saved"
	EventCustomerVoiceReady  EventType = "customer-voice-ready"
	EventBattlecardReady     EventType = "competitor-voice-battlecard-ready"
	EventInsightsReady       EventType = "enhanced-insights-ready"
	EventAllScansCompleted   EventType = "all-scans-completed"
	EventComplete            EventType = "complete"
	EventError               EventType = "error"
)

// Event is one tagged lifecycle event. Competitor-scoped events carry
// CompetitorID; consumers must key their state by it, not by arrival
// order, since only per-competitor ordering is guaranteed.
type Event struct {
	Type            EventType           `json:"type"`
	Timestamp       time.Time           `json:"timestamp"`
	Phase           model.PipelinePhase `json:"phase,omitempty"`
	PhaseLabel      string              `json:"phase_label,omitempty"`
	OverallProgress int                 `json:"overall_progress"`

	// Competitors carries the known competitor set on discovery-started
	// (whatever was cached) and competitors-resolved (the definitive set
	// for the run, published before any scan-started).
	Competitors []model.CompetitorProfile `json:"competitors,omitempty"`

	CompetitorID   string         `json:"competitor_id,omitempty"`
	CompetitorName string         `json:"competitor_name,omitempty"`
	ScanType       model.ScanType `json:"scan_type,omitempty"`
	// Progress is the competitor-scoped scan progress, 0 to 100.
	Progress int `json:"progress,omitempty"`

	Gap        *model.CompetitorGap              `json:"gap,omitempty"`
	Voice      *model.CustomerVoice              `json:"customer_voice,omitempty"`
	Battlecard *model.Battlecard                 `json:"battlecard,omitempty"`
	Insights   *model.EnhancedCompetitorInsights `json:"insights,omitempty"`
	Result     *model.RunResult                  `json:"result,omitempty"`

	Error string `json:"error,omitempty"`
}
