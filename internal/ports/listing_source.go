package ports

import (
	"context"

	"github.com/alejandrodnm/proprun/internal/domain"
)

// ListingSource obtiene los candidatos en venta para una ubicación.
type ListingSource interface {
	// Search devuelve como mucho limit listings para location ("Austin, TX").
	// Los errores envuelven domain.ErrListingSource y son fatales para la consulta.
	Search(ctx context.Context, location string, limit int) ([]domain.RawListing, error)
}
