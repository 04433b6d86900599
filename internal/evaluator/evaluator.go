package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/proprun/internal/domain"
	"github.com/alejandrodnm/proprun/internal/ports"
)

// Config contiene la configuración del orquestador.
type Config struct {
	Workers      int           // lookups concurrentes (0 = DefaultWorkers)
	Timeout      time.Duration // presupuesto total de la evaluación (0 = sin límite)
	RetryLookup  bool          // un único reintento por lookup fallido
	RetryBackoff time.Duration // espera antes del reintento
	Costs        domain.OperatingCostPolicy
}

// DefaultWorkers respeta los rate limits de la API de alquileres.
const DefaultWorkers = 5

// DefaultConfig devuelve una configuración conservadora.
func DefaultConfig() Config {
	return Config{
		Workers:      DefaultWorkers,
		Timeout:      30 * time.Second,
		RetryLookup:  false,
		RetryBackoff: 500 * time.Millisecond,
		Costs:        domain.DefaultOperatingCostPolicy(),
	}
}

// Outcome es el resultado de evaluar un lote de listings.
type Outcome struct {
	Listings  []domain.EvaluatedListing // en el orden del source
	Attempted int
	Failed    int  // lookups o evaluaciones fallidas (listing descartado)
	TimedOut  bool // el presupuesto expiró; Listings son parciales
}

// Evaluator orquesta rent lookup + modelo financiero para cada listing.
type Evaluator struct {
	cfg   Config
	rents ports.RentEstimator
}

// New crea un Evaluator con el estimador de alquileres inyectado.
func New(cfg Config, rents ports.RentEstimator) *Evaluator {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	return &Evaluator{cfg: cfg, rents: rents}
}

// Evaluate evalúa todos los listings con el pool de workers.
//
// Los listings cuyo lookup falla se descartan. Si el presupuesto de tiempo
// expira se devuelven los ya evaluados; si no hay ninguno devuelve ErrTimeout.
// Los supuestos inválidos fallan antes de cualquier llamada externa.
func (e *Evaluator) Evaluate(ctx context.Context, listings []domain.RawListing, a domain.FinancialAssumptions) (Outcome, error) {
	if err := a.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("evaluator.Evaluate: %w", err)
	}
	if len(listings) == 0 {
		return Outcome{}, nil
	}

	evalCtx := ctx
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		evalCtx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	out := evaluateConcurrent(evalCtx, e.evaluateOne, listings, a, e.cfg.Workers)

	// Cancelación del caller (no del presupuesto): se propaga tal cual.
	if ctx.Err() != nil && len(out.Listings) == 0 {
		return out, fmt.Errorf("evaluator.Evaluate: %w", ctx.Err())
	}
	if out.TimedOut && len(out.Listings) == 0 {
		return out, fmt.Errorf("evaluator.Evaluate: %d listings pending: %w", out.Attempted, domain.ErrTimeout)
	}
	return out, nil
}

// evaluateOne hace lookup (con reintento opcional) y aplica el modelo financiero.
func (e *Evaluator) evaluateOne(ctx context.Context, l domain.RawListing, a domain.FinancialAssumptions) (domain.EvaluatedListing, error) {
	rent, err := e.lookup(ctx, l)
	if err != nil {
		return domain.EvaluatedListing{}, err
	}
	return domain.Evaluate(l, rent, a, e.cfg.Costs)
}

// lookup llama al estimador; con RetryLookup hace como mucho un reintento
// tras RetryBackoff. Errores de contexto no se reintentan.
func (e *Evaluator) lookup(ctx context.Context, l domain.RawListing) (domain.RentEstimate, error) {
	rent, err := e.rents.Estimate(ctx, l)
	if err == nil || !e.cfg.RetryLookup || ctx.Err() != nil {
		return rent, err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return rent, err
	}

	slog.Debug("rent lookup failed, retrying once",
		"address", l.Address,
		"backoff", e.cfg.RetryBackoff,
		"err", err,
	)

	select {
	case <-time.After(e.cfg.RetryBackoff):
	case <-ctx.Done():
		return domain.RentEstimate{}, ctx.Err()
	}
	return e.rents.Estimate(ctx, l)
}
