package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/proprun/internal/domain"
	"github.com/alejandrodnm/proprun/internal/ports"
)

// CachingEstimator consulta la cache de alquileres antes de llamar al estimador.
// Implementa ports.RentEstimator.
type CachingEstimator struct {
	inner     ports.RentEstimator
	cache     ports.RentCache
	maxAge    time.Duration // 0 = las entradas no caducan
	cacheOnly bool          // nunca llama al estimador interno
	now       func() time.Time
}

// NewCachingEstimator envuelve inner con cache. inner puede ser nil en modo cache-only.
func NewCachingEstimator(inner ports.RentEstimator, cache ports.RentCache, maxAge time.Duration, cacheOnly bool) *CachingEstimator {
	return &CachingEstimator{
		inner:     inner,
		cache:     cache,
		maxAge:    maxAge,
		cacheOnly: cacheOnly,
		now:       time.Now,
	}
}

// Estimate devuelve la estimación cacheada si existe y no ha caducado; si no,
// llama al estimador interno y guarda el resultado.
func (c *CachingEstimator) Estimate(ctx context.Context, l domain.RawListing) (domain.RentEstimate, error) {
	est, fetchedAt, ok, err := c.cache.GetRent(ctx, l.Address)
	if err != nil {
		// la cache es best-effort: un fallo de lectura no descarta el listing
		slog.Warn("rent cache read failed", "address", l.Address, "err", err)
	}
	if ok && !c.expired(fetchedAt) {
		slog.Debug("rent cache hit", "address", l.Address)
		return est, nil
	}

	if c.cacheOnly || c.inner == nil {
		return domain.RentEstimate{}, fmt.Errorf("evaluator.CachingEstimator %q: %w: not cached (cache-only mode)", l.Address, domain.ErrRentLookup)
	}

	est, err = c.inner.Estimate(ctx, l)
	if err != nil {
		return domain.RentEstimate{}, err
	}

	if err := c.cache.PutRent(ctx, l.Address, est); err != nil {
		slog.Warn("rent cache write failed", "address", l.Address, "err", err)
	} else {
		slog.Debug("cached rent estimate", "address", l.Address)
	}
	return est, nil
}

func (c *CachingEstimator) expired(fetchedAt time.Time) bool {
	return c.maxAge > 0 && c.now().Sub(fetchedAt) > c.maxAge
}
