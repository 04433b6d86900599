package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/proprun/internal/domain"
	"github.com/alejandrodnm/proprun/internal/evaluator"
	"github.com/alejandrodnm/proprun/internal/ports"
	"github.com/alejandrodnm/proprun/internal/ranking"
)

// Config contiene la configuración del pipeline.
type Config struct {
	// OverFetchFactor pide al source ceil(num_listings × factor) candidatos para
	// compensar lookups fallidos. 1 = sin over-fetch.
	OverFetchFactor float64
	// MaxListings acota num_listings por consulta (0 = sin tope).
	MaxListings int
	Evaluator   evaluator.Config
}

// DefaultConfig devuelve la configuración por defecto.
func DefaultConfig() Config {
	return Config{
		OverFetchFactor: 1.0,
		MaxListings:     500,
		Evaluator:       evaluator.DefaultConfig(),
	}
}

// Result es la salida de una ejecución.
type Result struct {
	Run      domain.Run
	Listings []domain.EvaluatedListing // ordenados y filtrados según la View
}

// Pipeline es la fachada: consulta + supuestos → listings evaluados y ordenados.
type Pipeline struct {
	cfg       Config
	source    ports.ListingSource
	evaluator *evaluator.Evaluator
	storage   ports.Storage  // opcional
	notifier  ports.Notifier // opcional
	now       func() time.Time
}

// New crea un Pipeline con todas las dependencias inyectadas.
// storage y notifier pueden ser nil.
func New(
	cfg Config,
	source ports.ListingSource,
	rents ports.RentEstimator,
	storage ports.Storage,
	notifier ports.Notifier,
) *Pipeline {
	if cfg.OverFetchFactor < 1 {
		cfg.OverFetchFactor = 1
	}
	return &Pipeline{
		cfg:       cfg,
		source:    source,
		evaluator: evaluator.New(cfg.Evaluator, rents),
		storage:   storage,
		notifier:  notifier,
		now:       time.Now,
	}
}

// Run ejecuta la consulta completa.
//
// Errores explícitos: ErrInvalidAssumptions (antes de cualquier llamada
// externa), ErrListingSource y ErrTimeout sin ningún listing evaluado. En
// todos ellos el Result no contiene listings. Los lookups fallidos solo
// reducen el número de resultados.
func (p *Pipeline) Run(ctx context.Context, q domain.ListingQuery, view ranking.View) (Result, error) {
	if err := q.Validate(); err != nil {
		return Result{}, fmt.Errorf("pipeline.Run: %w", err)
	}
	if p.cfg.MaxListings > 0 && q.NumListings > p.cfg.MaxListings {
		return Result{}, fmt.Errorf("pipeline.Run: %w", &domain.AssumptionError{
			Field:  "num_listings",
			Value:  q.NumListings,
			Reason: fmt.Sprintf("must be <= %d", p.cfg.MaxListings),
		})
	}

	start := p.now()
	run := domain.Run{
		ID:        uuid.NewString(),
		Location:  q.Location,
		Requested: q.NumListings,
		StartedAt: start.UTC(),
	}

	candidates, err := p.source.Search(ctx, q.Location, p.fetchLimit(q.NumListings))
	if err != nil {
		return Result{Run: run}, fmt.Errorf("pipeline.Run: %w", err)
	}
	candidates = filterZip(candidates, q.ZipCode)
	run.Fetched = len(candidates)

	out, err := p.evaluator.Evaluate(ctx, candidates, q.Assumptions)
	run.Failed = out.Failed
	run.TimedOut = out.TimedOut
	if err != nil {
		run.Duration = p.now().Sub(start)
		p.persist(ctx, run, nil)
		return Result{Run: run}, fmt.Errorf("pipeline.Run: %w", err)
	}

	evaluated := out.Listings
	if len(evaluated) > q.NumListings {
		evaluated = evaluated[:q.NumListings]
	}
	run.Evaluated = len(evaluated)
	run.Profitable = countProfitable(evaluated)

	ranked := ranking.Apply(evaluated, view)
	run.Duration = p.now().Sub(start)

	p.persist(ctx, run, evaluated)

	if p.notifier != nil {
		if err := p.notifier.Notify(ctx, ranked); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}

	slog.Info("pipeline run complete",
		"run_id", run.ID,
		"location", run.Location,
		"requested", run.Requested,
		"fetched", run.Fetched,
		"evaluated", run.Evaluated,
		"failed", run.Failed,
		"profitable", run.Profitable,
		"shown", len(ranked),
		"timed_out", run.TimedOut,
		"duration", run.Duration.Round(time.Millisecond),
	)
	return Result{Run: run, Listings: ranked}, nil
}

// fetchLimit aplica el over-fetch sobre num_listings.
func (p *Pipeline) fetchLimit(n int) int {
	return int(math.Ceil(float64(n) * p.cfg.OverFetchFactor))
}

// persist guarda el resumen de la ejecución. Un fallo de storage no falla la consulta.
func (p *Pipeline) persist(ctx context.Context, run domain.Run, listings []domain.EvaluatedListing) {
	if p.storage == nil {
		return
	}
	// se persiste aunque el caller haya cancelado: la ejecución ya ocurrió
	if err := p.storage.SaveRun(context.WithoutCancel(ctx), run, listings); err != nil {
		slog.Warn("storage error", "run_id", run.ID, "err", err)
	}
}

// filterZip conserva solo los candidatos con el zip exacto. Vacío = sin filtro.
func filterZip(listings []domain.RawListing, zip string) []domain.RawListing {
	if zip == "" {
		return listings
	}
	out := make([]domain.RawListing, 0, len(listings))
	for _, l := range listings {
		if l.ZipCode == zip {
			out = append(out, l)
		}
	}
	return out
}

func countProfitable(listings []domain.EvaluatedListing) int {
	n := 0
	for _, l := range listings {
		if l.IsProfitable {
			n++
		}
	}
	return n
}
