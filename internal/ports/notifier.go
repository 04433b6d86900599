package ports

import (
	"context"

	"github.com/alejandrodnm/proprun/internal/domain"
)

// Notifier presenta los listings evaluados al usuario.
type Notifier interface {
	// Notify muestra los listings en el orden recibido (ya ordenados y filtrados).
	Notify(ctx context.Context, listings []domain.EvaluatedListing) error
}
