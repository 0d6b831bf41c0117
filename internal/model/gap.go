package model

import "time"

// CompetitorGap is one extracted positioning/opportunity gap. A gap may
// span multiple competitors; SourceScanIDs records which scan records it
// was derived from.
type CompetitorGap struct {
	ID            string    `json:"id" db:"id"`
	BrandID       string    `json:"brand_id" db:"brand_id"`
	CompetitorIDs []string  `json:"competitor_ids" db:"competitor_ids"`
	Title         string    `json:"title" db:"title"`
	Description   string    `json:"description" db:"description"`
	IsStarred     bool      `json:"is_starred" db:"is_starred"`
	IsDismissed   bool      `json:"is_dismissed" db:"is_dismissed"`
	SourceScanIDs []string  `json:"source_scan_ids,omitempty" db:"source_scan_ids"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// SpansCompetitor reports whether the gap references the given competitor.
func (g *CompetitorGap) SpansCompetitor(competitorID string) bool {
	for _, id := range g.CompetitorIDs {
		if id == competitorID {
			return true
		}
	}
	return false
}

// ExclusiveTo reports whether the gap is tied to the given competitor and
// no other. Used for replace semantics on rescan: only exclusive gaps are
// superseded by a competitor's fresh extraction.
func (g *CompetitorGap) ExclusiveTo(competitorID string) bool {
	return len(g.CompetitorIDs) == 1 && g.CompetitorIDs[0] == competitorID
}
