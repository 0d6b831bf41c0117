package model

import "time"

// ScanType identifies one data source scanned for a competitor.
type ScanType string

const (
	ScanTypeWebsite  ScanType = "website"
	ScanTypeReviews  ScanType = "reviews-google"
	ScanTypeResearch ScanType = "perplexity-research"
	ScanTypeLLM      ScanType = "llm-analysis"
	ScanTypeFull     ScanType = "full"
)

// AllScanSources lists the individual sources run during a full scan, in
// execution order.
var AllScanSources = []ScanType{
	ScanTypeWebsite,
	ScanTypeReviews,
	ScanTypeResearch,
	ScanTypeLLM,
}

// ScanState is the lifecycle state of one (competitor, scan_type) pair.
type ScanState string

const (
	ScanStatePending ScanState = "pending"
	ScanStateLoading ScanState = "loading"
	ScanStateSuccess ScanState = "success"
	ScanStateError   ScanState = "error"
)

// ScanStatus is the transient progress record for one (competitor,
// scan_type) pair. It exists only for the duration of a pipeline run.
type ScanStatus struct {
	CompetitorID   string     `json:"competitor_id"`
	CompetitorName string     `json:"competitor_name"`
	ScanType       ScanType   `json:"scan_type"`
	Status         ScanState  `json:"status"`
	Progress       int        `json:"progress"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
}

// ScanResult is the payload produced by one source scan.
type ScanResult struct {
	ScanType ScanType `json:"scan_type"`
	Content  string   `json:"content"`
	Source   string   `json:"source,omitempty"`
}

// ScanRecord is the persisted provenance row for one source scan of a
// competitor. Gap records reference these through SourceScanIDs.
type ScanRecord struct {
	ID           string    `json:"id" db:"id"`
	BrandID      string    `json:"brand_id" db:"brand_id"`
	CompetitorID string    `json:"competitor_id" db:"competitor_id"`
	ScanType     ScanType  `json:"scan_type" db:"scan_type"`
	Summary      string    `json:"summary" db:"summary"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
