package model

import "time"

// CompetitorProfile is the persisted identity record for one competitor
// of a brand. The ID is stable across rescans; UpdatedAt is refreshed on
// every successful rescan.
type CompetitorProfile struct {
	ID                 string    `json:"id" db:"id"`
	BrandID            string    `json:"brand_id" db:"brand_id"`
	Name               string    `json:"name" db:"name"`
	Website            string    `json:"website,omitempty" db:"website"`
	LogoURL            string    `json:"logo_url,omitempty" db:"logo_url"`
	PositioningSummary string    `json:"positioning_summary,omitempty" db:"positioning_summary"`
	BusinessModel      string    `json:"business_model,omitempty" db:"business_model"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// DiscoveredCompetitor is a competitor candidate returned by fresh
// discovery, before it has been persisted as a profile.
type DiscoveredCompetitor struct {
	Name          string `json:"name"`
	Website       string `json:"website,omitempty"`
	LogoURL       string `json:"logo_url,omitempty"`
	Description   string `json:"description,omitempty"`
	BusinessModel string `json:"business_model,omitempty"`
}

// RunOptions controls a streaming analysis run.
type RunOptions struct {
	// ForceRefresh runs fresh discovery even when cached competitors exist.
	ForceRefresh bool `json:"force_refresh"`
	// ExistingCompetitors seeds the run with an already-loaded set. When
	// non-empty and ForceRefresh is false, discovery is skipped entirely.
	ExistingCompetitors []CompetitorProfile `json:"existing_competitors,omitempty"`
}

// RunResult is the aggregate outcome of a streaming analysis run,
// assembled from whatever succeeded.
type RunResult struct {
	Competitors []CompetitorProfile                   `json:"competitors"`
	Gaps        []CompetitorGap                       `json:"gaps"`
	Insights    map[string]EnhancedCompetitorInsights `json:"insights,omitempty"`
}
