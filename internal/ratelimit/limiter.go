// Package ratelimit paces browser actions against each target host.
package ratelimit

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// Config defines action pacing.
type Config struct {
	ActionsPerSecond float64 // Zero or negative disables pacing
	Burst            int
}

// DefaultConfig lets short bursts through and then settles at a few actions
// per second, which is gentle on a public site.
var DefaultConfig = Config{
	ActionsPerSecond: 5,
	Burst:            3,
}

// Pacer hands out per-host limiters.
type Pacer struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	config   Config
}

// NewPacer creates a pacer with the given configuration.
func NewPacer(config Config) *Pacer {
	if config.Burst <= 0 {
		config.Burst = 1
	}
	return &Pacer{
		limiters: make(map[string]*rate.Limiter),
		config:   config,
	}
}

// GetLimiter returns the limiter for host, creating one if necessary.
func (p *Pacer) GetLimiter(host string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if l, ok := p.limiters[host]; ok {
		return l
	}
	limit := rate.Inf
	if p.config.ActionsPerSecond > 0 {
		limit = rate.Limit(p.config.ActionsPerSecond)
	}
	l := rate.NewLimiter(limit, p.config.Burst)
	p.limiters[host] = l
	return l
}

// Wait blocks until an action against host may run or ctx is done.
func (p *Pacer) Wait(ctx context.Context, host string) error {
	return p.GetLimiter(host).Wait(ctx)
}

// ForURL binds the pacer to the host of rawURL.
func (p *Pacer) ForURL(rawURL string) *HostPacer {
	return &HostPacer{pacer: p, host: HostOf(rawURL)}
}

// HostPacer is a Pacer fixed to one host.
type HostPacer struct {
	pacer *Pacer
	host  string
}

// Wait blocks until the next action may run.
func (h *HostPacer) Wait(ctx context.Context) error {
	return h.pacer.Wait(ctx, h.host)
}

// Host returns the bound host.
func (h *HostPacer) Host() string {
	return h.host
}

// HostOf returns the lower-cased host of rawURL, or rawURL itself when it
// does not parse as an absolute URL.
func HostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSpace(rawURL))
	}
	return strings.ToLower(u.Host)
}
