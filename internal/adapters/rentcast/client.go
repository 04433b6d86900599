package rentcast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/proprun/internal/domain"
)

const (
	defaultBaseURL = "https://api.rentcast.io"
	rentPath       = "/v1/avm/rent/long-term"

	// RentCast permite 20 req/s en los planes de pago; nos quedamos al 50%.
	defaultRatePerSec = 10
	defaultBurst      = 5

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond

	// Sin superficie la API no estima; se asume un piso medio.
	defaultSquareFootage = 1000
)

// Options configura el Client. Los campos a cero usan los defaults.
type Options struct {
	BaseURL    string
	APIKey     string
	RatePerSec float64
	Burst      int
	Timeout    time.Duration
}

// Client es el HTTP client de RentCast con rate limiting y retries.
// Implementa ports.RentEstimator.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
}

// NewClient crea un Client. Si BaseURL está vacío usa el de producción.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = defaultRatePerSec
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: opts.Timeout},
		baseURL: opts.BaseURL,
		apiKey:  opts.APIKey,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.Burst),
	}
}

// Estimate pide a RentCast la estimación de alquiler a largo plazo del listing.
// Listings sin dormitorios o baños se rechazan sin llamar a la API.
func (c *Client) Estimate(ctx context.Context, listing domain.RawListing) (domain.RentEstimate, error) {
	params, err := rentParams(listing)
	if err != nil {
		return domain.RentEstimate{}, fmt.Errorf("rentcast.Estimate %q: %w", listing.Address, err)
	}

	slog.Debug("fetching rent estimate",
		"address", listing.Address,
		"property_type", params.Get("propertyType"),
		"bedrooms", params.Get("bedrooms"),
		"bathrooms", params.Get("bathrooms"),
		"sqft", params.Get("squareFootage"),
	)

	var resp rentEstimateResponse
	if err := c.get(ctx, c.baseURL+rentPath+"?"+params.Encode(), &resp); err != nil {
		return domain.RentEstimate{}, fmt.Errorf("rentcast.Estimate %q: %w: %w", listing.Address, domain.ErrRentLookup, err)
	}

	est, err := mapRentEstimate(resp)
	if err != nil {
		return domain.RentEstimate{}, fmt.Errorf("rentcast.Estimate %q: %w", listing.Address, err)
	}
	return est, nil
}

// rentParams construye la query string de /avm/rent/long-term.
func rentParams(l domain.RawListing) (url.Values, error) {
	if l.Address == "" {
		return nil, fmt.Errorf("%w: empty address", domain.ErrRentLookup)
	}
	if l.Bedrooms <= 0 || l.Bathrooms <= 0 {
		return nil, fmt.Errorf("%w: missing bedrooms or bathrooms", domain.ErrRentLookup)
	}

	sqft := l.SquareFootage
	if sqft <= 0 {
		slog.Debug("missing sqft, using default", "address", l.Address, "sqft", defaultSquareFootage)
		sqft = defaultSquareFootage
	}

	v := url.Values{}
	v.Set("address", l.Address)
	if pt := propertyType(l.PropertyType); pt != "" {
		v.Set("propertyType", pt)
	}
	v.Set("bedrooms", strconv.FormatFloat(l.Bedrooms, 'f', -1, 64))
	v.Set("bathrooms", strconv.FormatFloat(l.Bathrooms, 'f', -1, 64))
	v.Set("squareFootage", strconv.FormatFloat(sqft, 'f', -1, 64))
	return v, nil
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("X-Api-Key", c.apiKey)
		}
		return c.http.Do(req)
	}, out)
}

// doWithRetry ejecuta la función con backoff exponencial.
// 429 y 5xx se reintentan; cualquier otro 4xx falla inmediatamente.
func (c *Client) doWithRetry(ctx context.Context, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if ctx.Err() != nil || attempt == maxRetries {
				return fmt.Errorf("request failed after %d attempts: %w", attempt+1, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by RentCast", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
