package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrSourceOpen is returned when a provider's breaker is open and the
// call is rejected without being attempted.
var ErrSourceOpen = eris.New("resilience: source breaker open")

// BreakerConfig controls when a provider is taken out of rotation.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before the
	// breaker opens. Default: 5.
	FailureThreshold int

	// CooldownPeriod is how long an open breaker rejects calls before
	// allowing a probe. Default: 30s.
	CooldownPeriod time.Duration
}

// DefaultBreakerConfig returns the breaker settings used for scan providers.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		CooldownPeriod:   30 * time.Second,
	}
}

type breakerState struct {
	failures int
	openedAt time.Time
	open     bool
}

// SourceBreaker tracks consecutive failures per scan provider. A provider
// whose breaker is open is skipped until the cooldown passes,
// after which one probe call is allowed through.
type SourceBreaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu      sync.Mutex
	sources map[string]*breakerState
}

// NewSourceBreaker creates a SourceBreaker.
func NewSourceBreaker(cfg BreakerConfig) *SourceBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.CooldownPeriod <= 0 {
		cfg.CooldownPeriod = 30 * time.Second
	}
	return &SourceBreaker{
		cfg:     cfg,
		now:     time.Now,
		sources: make(map[string]*breakerState),
	}
}

// SetClock overrides the time source, for tests.
func (b *SourceBreaker) SetClock(now func() time.Time) {
	b.now = now
}

// Allow reports whether a call to the provider may proceed. An open
// breaker past its cooldown admits the call as a probe.
func (b *SourceBreaker) Allow(provider string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.sources[provider]
	if !ok || !st.open {
		return nil
	}
	if b.now().Sub(st.openedAt) >= b.cfg.CooldownPeriod {
		// Probe allowed; the next Record decides whether to close.
		return nil
	}
	return ErrSourceOpen
}

// Record notes the outcome of a provider call. Success closes the breaker
// and clears the failure count; failure increments it and opens the
// breaker once the threshold is reached.
func (b *SourceBreaker) Record(provider string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.sources[provider]
	if !ok {
		st = &breakerState{}
		b.sources[provider] = st
	}

	if err == nil {
		if st.open {
			zap.L().Info("resilience: source breaker closed", zap.String("provider", provider))
		}
		st.failures = 0
		st.open = false
		return
	}

	st.failures++
	if !st.open && st.failures >= b.cfg.FailureThreshold {
		st.open = true
		st.openedAt = b.now()
		zap.L().Warn("resilience: source breaker opened",
			zap.String("provider", provider),
			zap.Int("consecutive_failures", st.failures),
		)
	} else if st.open {
		// Failed probe keeps the breaker open and restarts the cooldown.
		st.openedAt = b.now()
	}
}

// Failures returns the consecutive failure count for a provider.
func (b *SourceBreaker) Failures(provider string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st, ok := b.sources[provider]; ok {
		return st.failures
	}
	return 0
}
