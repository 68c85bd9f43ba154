package marketdata

import (
	"context"
	"time"

	"opencalc/internal/domain/strike"
	"opencalc/pkg/errors"
	"opencalc/pkg/logger"
)

// QuoteCache stores short-lived underlying quotes so batch scans do not
// re-hit the provider for the same symbol within one refresh window.
type QuoteCache interface {
	Get(ctx context.Context, symbol string) (*Quote, error)
	Save(ctx context.Context, q *Quote, ttl time.Duration) error
}

// CachedProvider decorates a Provider with a quote cache. Expirations and
// chains always go to the source; only underlying quotes are cached.
type CachedProvider struct {
	source Provider
	cache  QuoteCache
	ttl    time.Duration
	log    *logger.Logger
}

// NewCachedProvider wraps source with a quote cache
func NewCachedProvider(source Provider, cache QuoteCache, ttl time.Duration, log *logger.Logger) *CachedProvider {
	return &CachedProvider{
		source: source,
		cache:  cache,
		ttl:    ttl,
		log:    log,
	}
}

func (p *CachedProvider) Name() string {
	return p.source.Name()
}

// GetQuote returns the cached quote when fresh, falling through to the
// source otherwise. Cache failures degrade to a source fetch.
func (p *CachedProvider) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	cached, err := p.cache.Get(ctx, symbol)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		p.log.Warnw("Quote cache read failed", "symbol", symbol, "error", err)
	}

	q, err := p.source.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if err := p.cache.Save(ctx, q, p.ttl); err != nil {
		p.log.Warnw("Quote cache write failed", "symbol", symbol, "error", err)
	}

	return q, nil
}

func (p *CachedProvider) GetExpirations(ctx context.Context, symbol string) ([]time.Time, error) {
	return p.source.GetExpirations(ctx, symbol)
}

func (p *CachedProvider) GetChain(ctx context.Context, symbol string, expiration time.Time) ([]strike.ContractQuote, error) {
	return p.source.GetChain(ctx, symbol, expiration)
}
