package scan

import (
	"fmt"
	"strings"

	"github.com/DockeryAI/competitor-intel/internal/model"
)

const discoverySystemPrompt = `You are a competitive intelligence analyst. Respond only with a JSON array, no prose. Each element: {"name": string, "website": string, "description": string, "business_model": string}.`

const researchSystemPrompt = `You are a market research analyst. Write a factual, citation-grounded briefing. No speculation about private financials.`

const analysisSystemPrompt = `You are a competitive strategy analyst. Write a concise positioning assessment in plain prose.`

const gapSystemPrompt = `You are a competitive strategy analyst. Respond only with a JSON array, no prose. Each element: {"title": string, "description": string}. Titles under 10 words.`

const voiceSystemPrompt = `You are a customer insights analyst. Respond only with a JSON object: {"themes": [string], "praise": [string], "complaints": [string], "summary": string}.`

const battlecardSystemPrompt = `You are a sales enablement analyst. Respond only with a JSON object: {"strengths": [string], "weaknesses": [string], "counterpoints": [string], "summary": string}.`

func discoveryPrompt(brand *model.BrandContext) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Find the 5-8 most direct competitors of the following business.\n\n")
	writeBrandBlock(&sb, brand)
	sb.WriteString("\nList only real companies that compete for the same customers. Prefer companies of comparable size or the category leaders.")
	return sb.String()
}

func researchPrompt(brand *model.BrandContext, comp *model.CompetitorProfile) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Research the company %q", comp.Name)
	if comp.Website != "" {
		fmt.Fprintf(&sb, " (%s)", comp.Website)
	}
	sb.WriteString(".\n\nCover: product and pricing, target customers, recent launches or funding, and how the market talks about them.")
	if brand.Industry != "" {
		fmt.Fprintf(&sb, " Focus on their position in the %s space.", brand.Industry)
	}
	return sb.String()
}

func analysisPrompt(brand *model.BrandContext, comp *model.CompetitorProfile) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Assess the competitive positioning of %q relative to the following business.\n\n", comp.Name)
	writeBrandBlock(&sb, brand)
	if comp.PositioningSummary != "" {
		fmt.Fprintf(&sb, "\nWhat is known about %s: %s\n", comp.Name, comp.PositioningSummary)
	}
	sb.WriteString("\nWhere do they overlap, where do they differ, and who wins each segment?")
	return sb.String()
}

func gapPrompt(brand *model.BrandContext, comp *model.CompetitorProfile, results []model.ScanResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Based on the scan data below, list the positioning gaps and opportunities the following business has against %q.\n\n", comp.Name)
	writeBrandBlock(&sb, brand)
	writeScanBlock(&sb, results)
	sb.WriteString("\nEach gap must be something the business can act on. 3 to 6 gaps.")
	return sb.String()
}

func voicePrompt(comp *model.CompetitorProfile, reviewContent string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Summarize what customers say about %q from these reviews.\n\n%s", comp.Name, truncate(reviewContent, 8000))
	return sb.String()
}

func battlecardPrompt(brand *model.BrandContext, comp *model.CompetitorProfile, results []model.ScanResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Build a sales battlecard for the following business against %q.\n\n", comp.Name)
	writeBrandBlock(&sb, brand)
	writeScanBlock(&sb, results)
	sb.WriteString("\nCounterpoints are talk tracks a rep can use when the competitor comes up.")
	return sb.String()
}

func writeBrandBlock(sb *strings.Builder, brand *model.BrandContext) {
	fmt.Fprintf(sb, "Business: %s\n", brand.Name)
	if brand.Industry != "" {
		fmt.Fprintf(sb, "Industry: %s\n", brand.Industry)
	}
	if brand.Description != "" {
		fmt.Fprintf(sb, "Description: %s\n", brand.Description)
	}
	if brand.UniqueSolution != "" {
		fmt.Fprintf(sb, "Unique solution: %s\n", brand.UniqueSolution)
	}
	if brand.KeyBenefit != "" {
		fmt.Fprintf(sb, "Key benefit: %s\n", brand.KeyBenefit)
	}
	if brand.TargetCustomer != "" {
		fmt.Fprintf(sb, "Target customer: %s\n", brand.TargetCustomer)
	}
	if len(brand.Keywords) > 0 {
		fmt.Fprintf(sb, "Keywords: %s\n", strings.Join(brand.Keywords, ", "))
	}
}

// writeScanBlock appends each scan result, truncated so the combined
// prompt stays well inside the model's context window.
func writeScanBlock(sb *strings.Builder, results []model.ScanResult) {
	perSource := 12000 / max(len(results), 1)
	for _, r := range results {
		fmt.Fprintf(sb, "\n--- %s ---\n%s\n", r.ScanType, truncate(r.Content, perSource))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n[truncated]"
}
