package evaluator

// concurrent.go: worker pool para la evaluación paralela de listings.
//
// Cada listing se evalúa de forma independiente y escribe solo en su propio
// slot (índice del source). El collector fusiona los resultados al terminar
// todos los workers o al expirar el contexto, lo que ocurra antes.

import (
	"context"
	"log/slog"

	"github.com/alejandrodnm/proprun/internal/domain"
)

type evalFunc func(ctx context.Context, l domain.RawListing, a domain.FinancialAssumptions) (domain.EvaluatedListing, error)

type result struct {
	idx     int
	listing domain.EvaluatedListing
	err     error
}

// evaluateConcurrent evalúa los listings con un pool de workers acotado.
func evaluateConcurrent(
	ctx context.Context,
	eval evalFunc,
	listings []domain.RawListing,
	a domain.FinancialAssumptions,
	workers int,
) Outcome {
	if workers > len(listings) {
		workers = len(listings)
	}

	workCh := make(chan int, len(listings))
	// buffer completo: un worker nunca se bloquea enviando aunque el collector ya haya salido
	resultCh := make(chan result, len(listings))

	for i := 0; i < workers; i++ {
		go func() {
			for idx := range workCh {
				if ctx.Err() != nil {
					resultCh <- result{idx: idx, err: ctx.Err()}
					continue
				}
				l, err := eval(ctx, listings[idx], a)
				resultCh <- result{idx: idx, listing: l, err: err}
			}
		}()
	}

	for idx := range listings {
		workCh <- idx
	}
	close(workCh)

	slots := make([]*domain.EvaluatedListing, len(listings))
	out := Outcome{Attempted: len(listings)}

	received := 0
	accept := func(r result) {
		received++
		if r.err != nil {
			out.Failed++
			slog.Warn("listing dropped",
				"address", listings[r.idx].Address,
				"err", r.err,
			)
			return
		}
		l := r.listing
		slots[r.idx] = &l
	}

collect:
	for received < len(listings) {
		select {
		case r := <-resultCh:
			accept(r)
		case <-ctx.Done():
			out.TimedOut = true
			break collect
		}
	}
	// select elige al azar entre canales listos: lo que ya esté en el buffer
	// al expirar el contexto se conserva.
drain:
	for received < len(listings) {
		select {
		case r := <-resultCh:
			accept(r)
		default:
			break drain
		}
	}
	// Los workers pueden haber devuelto ya el error de contexto antes de que
	// el collector viera ctx.Done().
	if ctx.Err() != nil && out.Failed > 0 {
		out.TimedOut = true
	}

	out.Listings = make([]domain.EvaluatedListing, 0, len(listings))
	for _, s := range slots {
		if s != nil {
			out.Listings = append(out.Listings, *s)
		}
	}
	if out.TimedOut {
		out.Failed += len(listings) - received
	}

	slog.Debug("concurrent evaluation complete",
		"queued", len(listings),
		"evaluated", len(out.Listings),
		"failed", out.Failed,
		"timed_out", out.TimedOut,
		"workers", workers,
	)
	return out
}
