package domain

import "time"

// Run es el resumen de una ejecución del pipeline. Se persiste como histórico.
type Run struct {
	ID         string
	Location   string
	Requested  int // num_listings pedidos
	Fetched    int // candidatos devueltos por el source
	Evaluated  int // listings evaluados con éxito
	Failed     int // lookups de alquiler fallidos
	Profitable int
	TimedOut   bool
	StartedAt  time.Time
	Duration   time.Duration
}
