package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/proprun/internal/domain"
)

// Storage persiste el histórico de ejecuciones del pipeline.
type Storage interface {
	// SaveRun persiste el resumen de una ejecución y sus listings evaluados.
	SaveRun(ctx context.Context, run domain.Run, listings []domain.EvaluatedListing) error

	// GetRuns devuelve las ejecuciones iniciadas en el rango de tiempo dado.
	GetRuns(ctx context.Context, from, to time.Time) ([]domain.Run, error)

	// GetRunListings devuelve los listings evaluados de una ejecución.
	GetRunListings(ctx context.Context, runID string) ([]domain.EvaluatedListing, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
