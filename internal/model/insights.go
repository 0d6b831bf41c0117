package model

// CustomerVoice summarizes how a competitor's customers talk about it:
// recurring praise, complaints, and the language they use.
type CustomerVoice struct {
	Themes     []string `json:"themes,omitempty"`
	Praise     []string `json:"praise,omitempty"`
	Complaints []string `json:"complaints,omitempty"`
	Summary    string   `json:"summary"`
}

// Battlecard is a sales-facing summary of how to position against a
// competitor.
type Battlecard struct {
	Strengths     []string `json:"strengths,omitempty"`
	Weaknesses    []string `json:"weaknesses,omitempty"`
	Counterpoints []string `json:"counterpoints,omitempty"`
	Summary       string   `json:"summary"`
}

// EnhancedCompetitorInsights holds optional per-competitor enrichment.
// Fields are nil until the corresponding enrichment step succeeds.
type EnhancedCompetitorInsights struct {
	CustomerVoice *CustomerVoice `json:"customer_voice,omitempty"`
	Battlecard    *Battlecard    `json:"battlecard,omitempty"`
}

// Empty reports whether no enrichment has landed for the competitor.
func (i EnhancedCompetitorInsights) Empty() bool {
	return i.CustomerVoice == nil && i.Battlecard == nil
}
