// Package policy holds the pure pre-flight checks consulted before any
// external scan call: the process-wide cache-only mode and the
// per-competitor rescan throttle.
package policy

import (
	"time"

	"github.com/DockeryAI/competitor-intel/internal/model"
)

// BlockReason discriminates why a rescan was refused.
type BlockReason string

const (
	// BlockNone means the call may proceed.
	BlockNone BlockReason = ""
	// BlockCache means cache-only mode refused the external call.
	BlockCache BlockReason = "cache"
	// BlockThrottle means the competitor was scanned within the rescan window.
	BlockThrottle BlockReason = "24h"
)

// Result is the discriminated outcome of a gate check.
type Result struct {
	Allowed bool        `json:"success"`
	Blocked BlockReason `json:"blocked,omitempty"`
}

// Gate evaluates scan admission policy. The zero value allows everything;
// construct with New to pick up configuration.
type Gate struct {
	cacheOnly    bool
	rescanWindow time.Duration
	now          func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// New creates a Gate. A rescanWindow of zero disables the throttle.
func New(cacheOnly bool, rescanWindow time.Duration, opts ...Option) *Gate {
	g := &Gate{
		cacheOnly:    cacheOnly,
		rescanWindow: rescanWindow,
		now:          time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// CacheOnly reports whether the process-wide cache-only flag is set.
func (g *Gate) CacheOnly() bool {
	return g.cacheOnly
}

// CheckScan gates a bulk external call (discovery or rescan-all). Only
// cache-only mode applies; forceBypass overrides it.
func (g *Gate) CheckScan(forceBypass bool) Result {
	if g.cacheOnly && !forceBypass {
		return Result{Blocked: BlockCache}
	}
	return Result{Allowed: true}
}

// CheckRescan gates a single-competitor rescan. Cache-only mode is
// checked first, then the rescan window against the profile's last
// successful scan. forceBypass skips both checks.
func (g *Gate) CheckRescan(profile *model.CompetitorProfile, forceBypass bool) Result {
	if forceBypass {
		return Result{Allowed: true}
	}
	if g.cacheOnly {
		return Result{Blocked: BlockCache}
	}
	if g.rescanWindow > 0 && !profile.UpdatedAt.IsZero() {
		if g.now().Sub(profile.UpdatedAt) < g.rescanWindow {
			return Result{Blocked: BlockThrottle}
		}
	}
	return Result{Allowed: true}
}
