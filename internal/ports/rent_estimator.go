package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/proprun/internal/domain"
)

// RentEstimator resuelve la estimación de alquiler de un listing.
type RentEstimator interface {
	// Estimate devuelve el alquiler estimado y su banda low/high.
	// Los errores envuelven domain.ErrRentLookup: el listing se descarta, el pipeline sigue.
	Estimate(ctx context.Context, listing domain.RawListing) (domain.RentEstimate, error)
}

// RentCache persiste estimaciones por dirección para no repetir llamadas a la API.
type RentCache interface {
	// GetRent devuelve la estimación cacheada y cuándo se obtuvo. ok=false si no existe.
	GetRent(ctx context.Context, address string) (est domain.RentEstimate, fetchedAt time.Time, ok bool, err error)

	// PutRent guarda (o reemplaza) la estimación de una dirección.
	PutRent(ctx context.Context, address string, est domain.RentEstimate) error
}
