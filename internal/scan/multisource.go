package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/DockeryAI/competitor-intel/internal/model"
	"github.com/DockeryAI/competitor-intel/internal/resilience"
	"github.com/DockeryAI/competitor-intel/pkg/anthropic"
	"github.com/DockeryAI/competitor-intel/pkg/firecrawl"
	"github.com/DockeryAI/competitor-intel/pkg/google"
	"github.com/DockeryAI/competitor-intel/pkg/perplexity"
)

// Provider names used for rate limiting, retries, and the breaker.
const (
	providerFirecrawl  = "firecrawl"
	providerGoogle     = "google-places"
	providerPerplexity = "perplexity"
	providerAnthropic  = "anthropic"
)

const analysisMaxTokens = 2048

// MultiSourceDeps carries the provider clients and guards for a
// MultiSourceScanner.
type MultiSourceDeps struct {
	Firecrawl  firecrawl.Client
	Google     google.Client
	Perplexity perplexity.Client
	Anthropic  anthropic.Client

	AnthropicModel string

	Retry   resilience.RetryConfig
	Breaker *resilience.SourceBreaker
}

// MultiSourceScanner implements Scanner against the real providers. Every
// outbound call goes through the per-provider rate limiter, the breaker,
// and the retry loop.
type MultiSourceScanner struct {
	deps     MultiSourceDeps
	limiters map[string]*rate.Limiter
}

// NewMultiSource creates a MultiSourceScanner.
func NewMultiSource(deps MultiSourceDeps) *MultiSourceScanner {
	if deps.Breaker == nil {
		deps.Breaker = resilience.NewSourceBreaker(resilience.DefaultBreakerConfig())
	}
	return &MultiSourceScanner{
		deps: deps,
		limiters: map[string]*rate.Limiter{
			providerFirecrawl:  rate.NewLimiter(rate.Limit(2), 1),
			providerGoogle:     rate.NewLimiter(rate.Limit(10), 1),
			providerPerplexity: rate.NewLimiter(rate.Limit(1), 1),
			providerAnthropic:  rate.NewLimiter(rate.Limit(2), 1),
		},
	}
}

// call runs fn under the provider's limiter, breaker, and retry policy.
func call[T any](ctx context.Context, s *MultiSourceScanner, provider string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := s.deps.Breaker.Allow(provider); err != nil {
		return zero, err
	}
	if err := s.limiters[provider].Wait(ctx); err != nil {
		return zero, err
	}
	val, err := resilience.Retry(ctx, provider, s.deps.Retry, fn)
	s.deps.Breaker.Record(provider, err)
	return val, err
}

func (s *MultiSourceScanner) Discover(ctx context.Context, brand *model.BrandContext) ([]model.DiscoveredCompetitor, error) {
	result, err := call(ctx, s, providerPerplexity, func(ctx context.Context) (*perplexity.ResearchResult, error) {
		r, err := s.deps.Perplexity.Research(ctx, discoverySystemPrompt, discoveryPrompt(brand))
		return r, markTransient(err)
	})
	if err != nil {
		return nil, eris.Wrap(err, "scan: discover competitors")
	}

	var discovered []model.DiscoveredCompetitor
	if err := json.Unmarshal([]byte(cleanJSON(result.Content)), &discovered); err != nil {
		return nil, eris.Wrap(err, "scan: parse discovery response")
	}

	out := discovered[:0]
	for _, d := range discovered {
		if strings.TrimSpace(d.Name) == "" {
			continue
		}
		out = append(out, d)
	}
	zap.L().Info("scan: discovery finished",
		zap.String("brand_id", brand.BrandID),
		zap.Int("candidates", len(out)),
	)
	return out, nil
}

func (s *MultiSourceScanner) ScanSource(ctx context.Context, brand *model.BrandContext, comp *model.CompetitorProfile, scanType model.ScanType) (*model.ScanResult, error) {
	switch scanType {
	case model.ScanTypeWebsite:
		return s.scanWebsite(ctx, comp)
	case model.ScanTypeReviews:
		return s.scanReviews(ctx, comp)
	case model.ScanTypeResearch:
		return s.scanResearch(ctx, brand, comp)
	case model.ScanTypeLLM:
		return s.scanLLMAnalysis(ctx, brand, comp)
	default:
		return nil, eris.Errorf("scan: unknown scan type %q", scanType)
	}
}

func (s *MultiSourceScanner) scanWebsite(ctx context.Context, comp *model.CompetitorProfile) (*model.ScanResult, error) {
	if comp.Website == "" {
		return nil, eris.Errorf("scan: competitor %s has no website", comp.Name)
	}

	resp, err := call(ctx, s, providerFirecrawl, func(ctx context.Context) (*firecrawl.ScrapeResponse, error) {
		r, err := s.deps.Firecrawl.Scrape(ctx, firecrawl.ScrapeRequest{
			URL:     comp.Website,
			Formats: []string{"markdown"},
		})
		return r, markTransient(err)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "scan: scrape website %s", comp.Website)
	}

	return &model.ScanResult{
		ScanType: model.ScanTypeWebsite,
		Content:  resp.Data.Markdown,
		Source:   comp.Website,
	}, nil
}

func (s *MultiSourceScanner) scanReviews(ctx context.Context, comp *model.CompetitorProfile) (*model.ScanResult, error) {
	resp, err := call(ctx, s, providerGoogle, func(ctx context.Context) (*google.TextSearchResponse, error) {
		r, err := s.deps.Google.TextSearch(ctx, comp.Name)
		return r, markTransient(err)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "scan: google reviews for %s", comp.Name)
	}
	if len(resp.Places) == 0 {
		return nil, eris.Errorf("scan: no places found for %s", comp.Name)
	}

	place := resp.Places[0]
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %.1f stars across %d ratings\n", place.DisplayName.Text, place.Rating, place.UserRatingCount)
	for _, rev := range place.Reviews {
		fmt.Fprintf(&sb, "[%d/5] %s\n", rev.Rating, rev.Text.Text)
	}

	return &model.ScanResult{
		ScanType: model.ScanTypeReviews,
		Content:  sb.String(),
		Source:   "google-places",
	}, nil
}

func (s *MultiSourceScanner) scanResearch(ctx context.Context, brand *model.BrandContext, comp *model.CompetitorProfile) (*model.ScanResult, error) {
	result, err := call(ctx, s, providerPerplexity, func(ctx context.Context) (*perplexity.ResearchResult, error) {
		r, err := s.deps.Perplexity.Research(ctx, researchSystemPrompt, researchPrompt(brand, comp))
		return r, markTransient(err)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "scan: research %s", comp.Name)
	}

	content := result.Content
	if len(result.Citations) > 0 {
		content += "\n\nSources:\n" + strings.Join(result.Citations, "\n")
	}

	return &model.ScanResult{
		ScanType: model.ScanTypeResearch,
		Content:  content,
		Source:   "perplexity",
	}, nil
}

func (s *MultiSourceScanner) scanLLMAnalysis(ctx context.Context, brand *model.BrandContext, comp *model.CompetitorProfile) (*model.ScanResult, error) {
	resp, err := s.createMessage(ctx, analysisSystemPrompt, analysisPrompt(brand, comp), "llm-analysis")
	if err != nil {
		return nil, eris.Wrapf(err, "scan: llm analysis for %s", comp.Name)
	}

	return &model.ScanResult{
		ScanType: model.ScanTypeLLM,
		Content:  resp.Text(),
		Source:   "anthropic",
	}, nil
}

func (s *MultiSourceScanner) ExtractGaps(ctx context.Context, brand *model.BrandContext, comp *model.CompetitorProfile, results []model.ScanResult) ([]model.CompetitorGap, error) {
	if len(results) == 0 {
		return nil, eris.Errorf("scan: no scan results to extract gaps for %s", comp.Name)
	}

	resp, err := s.createMessage(ctx, gapSystemPrompt, gapPrompt(brand, comp, results), "gap-extraction")
	if err != nil {
		return nil, eris.Wrapf(err, "scan: extract gaps for %s", comp.Name)
	}

	var raw []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text())), &raw); err != nil {
		return nil, eris.Wrapf(err, "scan: parse gaps for %s", comp.Name)
	}

	gaps := make([]model.CompetitorGap, 0, len(raw))
	for _, g := range raw {
		if strings.TrimSpace(g.Title) == "" {
			continue
		}
		gaps = append(gaps, model.CompetitorGap{
			ID:            uuid.NewString(),
			BrandID:       brand.BrandID,
			CompetitorIDs: []string{comp.ID},
			Title:         g.Title,
			Description:   g.Description,
			CreatedAt:     time.Now().UTC(),
		})
	}
	return gaps, nil
}

func (s *MultiSourceScanner) ExtractCustomerVoice(ctx context.Context, comp *model.CompetitorProfile, results []model.ScanResult) (*model.CustomerVoice, error) {
	reviews := resultOfType(results, model.ScanTypeReviews)
	if reviews == nil {
		return nil, eris.Errorf("scan: no review content for %s", comp.Name)
	}

	resp, err := s.createMessage(ctx, voiceSystemPrompt, voicePrompt(comp, reviews.Content), "customer-voice")
	if err != nil {
		return nil, eris.Wrapf(err, "scan: customer voice for %s", comp.Name)
	}

	var voice model.CustomerVoice
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text())), &voice); err != nil {
		return nil, eris.Wrapf(err, "scan: parse customer voice for %s", comp.Name)
	}
	return &voice, nil
}

func (s *MultiSourceScanner) GenerateBattlecard(ctx context.Context, brand *model.BrandContext, comp *model.CompetitorProfile, results []model.ScanResult) (*model.Battlecard, error) {
	if len(results) == 0 {
		return nil, eris.Errorf("scan: no scan results for battlecard on %s", comp.Name)
	}

	resp, err := s.createMessage(ctx, battlecardSystemPrompt, battlecardPrompt(brand, comp, results), "battlecard")
	if err != nil {
		return nil, eris.Wrapf(err, "scan: battlecard for %s", comp.Name)
	}

	var card model.Battlecard
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text())), &card); err != nil {
		return nil, eris.Wrapf(err, "scan: parse battlecard for %s", comp.Name)
	}
	return &card, nil
}

func (s *MultiSourceScanner) createMessage(ctx context.Context, system, prompt, stage string) (*anthropic.MessageResponse, error) {
	resp, err := call(ctx, s, providerAnthropic, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		r, err := s.deps.Anthropic.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     s.deps.AnthropicModel,
			MaxTokens: analysisMaxTokens,
			System:    system,
			Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
		})
		return r, markTransient(err)
	})
	if err != nil {
		return nil, err
	}
	resp.Usage.LogUsage(s.deps.AnthropicModel, stage)
	return resp, nil
}

func resultOfType(results []model.ScanResult, t model.ScanType) *model.ScanResult {
	for i := range results {
		if results[i].ScanType == t {
			return &results[i]
		}
	}
	return nil
}

// markTransient tags provider errors carrying a retryable HTTP status so
// the retry loop picks them up.
func markTransient(err error) error {
	if err == nil {
		return nil
	}
	status := 0
	var fcErr *firecrawl.APIError
	var gErr *google.APIError
	var pErr *perplexity.APIError
	switch {
	case eris.As(err, &fcErr):
		status = fcErr.StatusCode
	case eris.As(err, &gErr):
		status = gErr.StatusCode
	case eris.As(err, &pErr):
		status = pErr.StatusCode
	}
	if status != 0 && resilience.IsTransientHTTPStatus(status) {
		return resilience.Transient(err, status)
	}
	return err
}

// cleanJSON extracts a JSON document from text that may contain markdown
// code fences or surrounding prose.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	text = strings.TrimSpace(text)

	objStart := strings.Index(text, "{")
	arrStart := strings.Index(text, "[")
	if arrStart >= 0 && (objStart < 0 || arrStart < objStart) {
		if end := strings.LastIndex(text, "]"); end > arrStart {
			return text[arrStart : end+1]
		}
	}
	if objStart >= 0 {
		if end := strings.LastIndex(text, "}"); end > objStart {
			return text[objStart : end+1]
		}
	}
	return text
}
