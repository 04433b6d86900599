package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/proprun/config"
	"github.com/alejandrodnm/proprun/internal/adapters/listings"
	"github.com/alejandrodnm/proprun/internal/adapters/rentcast"
	"github.com/alejandrodnm/proprun/internal/adapters/storage"
	"github.com/alejandrodnm/proprun/internal/evaluator"
	"github.com/alejandrodnm/proprun/internal/pipeline"
	"github.com/alejandrodnm/proprun/internal/ports"
)

var errMissingAPIKey = errors.New("RENTCAST_API_KEY is not set (use --cache-only to run without it)")

// buildPipeline conecta source, estimador, cache y storage según la config.
// El caller debe cerrar el storage devuelto.
func buildPipeline(cfg *config.Config, notifier ports.Notifier) (*pipeline.Pipeline, *storage.SQLiteStorage, error) {
	if cfg.RentCast.APIKey == "" && !cfg.RentCache.CacheOnly {
		return nil, nil, errMissingAPIKey
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage %q: %w", cfg.Storage.DSN, err)
	}

	var rents ports.RentEstimator
	if !cfg.RentCache.CacheOnly {
		rents = rentcast.NewClient(rentcast.Options{
			BaseURL:    cfg.RentCast.BaseURL,
			APIKey:     cfg.RentCast.APIKey,
			RatePerSec: cfg.RentCast.RatePerSec,
			Burst:      cfg.RentCast.Burst,
			Timeout:    time.Duration(cfg.RentCast.TimeoutSeconds) * time.Second,
		})
	}
	if cfg.RentCache.Enabled || cfg.RentCache.CacheOnly {
		maxAge := time.Duration(cfg.RentCache.MaxAgeHours) * time.Hour
		rents = evaluator.NewCachingEstimator(rents, store, maxAge, cfg.RentCache.CacheOnly)
	}

	source := listings.NewCSVSource(
		cfg.Listings.Dir,
		cfg.Listings.File,
		time.Duration(cfg.Listings.MaxAgeHours)*time.Hour,
	)

	pcfg := pipeline.DefaultConfig()
	pcfg.OverFetchFactor = cfg.Pipeline.OverFetchFactor
	pcfg.MaxListings = cfg.Pipeline.MaxListings
	pcfg.Evaluator = evaluator.Config{
		Workers:      cfg.Pipeline.Workers,
		Timeout:      cfg.EvaluationTimeout(),
		RetryLookup:  cfg.Pipeline.RetryLookup,
		RetryBackoff: cfg.RetryBackoff(),
		Costs:        cfg.CostPolicy(),
	}

	return pipeline.New(pcfg, source, rents, store, notifier), store, nil
}
