package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/alejandrodnm/proprun/internal/domain"
	"github.com/alejandrodnm/proprun/internal/pipeline"
	"github.com/alejandrodnm/proprun/internal/ranking"
)

// Códigos de error del cuerpo {"error":{"code",...}}.
const (
	codeInvalidRequest     = "invalid_request"
	codeInvalidAssumptions = "invalid_assumptions"
	codeListingSource      = "listing_source_error"
	codeTimeout            = "timeout"
	codeNotFound           = "not_found"
	codeInternal           = "internal_error"
)

const maxBodyBytes = 1 << 20

// Runner ejecuta una consulta completa del pipeline.
type Runner interface {
	Run(ctx context.Context, q domain.ListingQuery, view ranking.View) (pipeline.Result, error)
}

// RunStore lee el histórico de ejecuciones.
type RunStore interface {
	GetRuns(ctx context.Context, from, to time.Time) ([]domain.Run, error)
	GetRunListings(ctx context.Context, runID string) ([]domain.EvaluatedListing, error)
}

// Defaults son los valores para los campos omitidos del request.
type Defaults struct {
	Assumptions domain.FinancialAssumptions
	NumListings int
}

// Handler agrupa los handlers HTTP de la API.
type Handler struct {
	runner   Runner
	runs     RunStore // opcional
	defaults Defaults
	validate *validator.Validate
}

// NewHandler crea el handler. runs puede ser nil si no hay storage.
func NewHandler(runner Runner, runs RunStore, defaults Defaults) *Handler {
	if defaults.NumListings <= 0 {
		defaults.NumListings = 10
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	// los errores de validación usan el nombre JSON del campo
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handler{runner: runner, runs: runs, defaults: defaults, validate: v}
}

// Health responde el estado del servicio.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "proprun",
	})
}

// ProcessListings evalúa y ordena los listings de una ubicación.
// POST /process_listings
func (h *Handler) ProcessListings(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if field, err := h.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error(), field)
		return
	}

	res, err := h.runner.Run(r.Context(), req.query(h.defaults.Assumptions, h.defaults.NumListings), req.view())
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, processResponse{
		RunID:   res.Run.ID,
		Results: toListingResponses(res.Listings),
	})
}

// ListRuns devuelve las ejecuciones recientes.
// GET /runs?since=24h
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "run history is disabled", "")
		return
	}

	since := 24 * time.Hour
	if s := r.URL.Query().Get("since"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "since must be a positive duration like 24h", "since")
			return
		}
		since = d
	}

	now := time.Now().UTC()
	runs, err := h.runs.GetRuns(r.Context(), now.Add(-since), now)
	if err != nil {
		slog.Error("failed to load runs", "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to load runs", "")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"runs": toRunResponses(runs)})
}

// RunListings devuelve los listings guardados de una ejecución.
// GET /runs/{id}/listings
func (h *Handler) RunListings(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "run history is disabled", "")
		return
	}

	id := mux.Vars(r)["id"]
	listings, err := h.runs.GetRunListings(r.Context(), id)
	if err != nil {
		slog.Error("failed to load run listings", "run_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to load run listings", "")
		return
	}
	respondJSON(w, http.StatusOK, processResponse{RunID: id, Results: toListingResponses(listings)})
}

// decode lee el cuerpo rechazando campos desconocidos y lo valida.
// Devuelve el campo culpable cuando se conoce.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst *processRequest) (string, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &typeErr):
			return typeErr.Field, fmt.Errorf("field %s must be %s", typeErr.Field, typeErr.Type)
		case errors.Is(err, io.EOF):
			return "", errors.New("request body is empty")
		default:
			return "", fmt.Errorf("malformed request body: %w", err)
		}
	}
	if dec.More() {
		return "", errors.New("request body must contain a single JSON object")
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			field := strings.TrimPrefix(fe.Namespace(), "processRequest.")
			return field, fmt.Errorf("field %s failed validation: %s", field, describeTag(fe))
		}
		return "", err
	}
	return "", nil
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min", "gte":
		return "must be >= " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " long"
	case "len", "numeric":
		return "must be a 5-digit zip code"
	default:
		return fe.Tag()
	}
}

// writePipelineError traduce la taxonomía de errores del dominio a HTTP.
func (h *Handler) writePipelineError(w http.ResponseWriter, err error) {
	var ae *domain.AssumptionError
	switch {
	case errors.As(err, &ae):
		field := ae.Field
		if f, ok := requestField[field]; ok {
			field = f
		}
		writeError(w, http.StatusUnprocessableEntity, codeInvalidAssumptions, ae.Error(), field)
	case errors.Is(err, domain.ErrInvalidAssumptions):
		writeError(w, http.StatusUnprocessableEntity, codeInvalidAssumptions, err.Error(), "")
	case errors.Is(err, domain.ErrListingSource):
		slog.Warn("listing source failed", "err", err)
		writeError(w, http.StatusBadGateway, codeListingSource, "listing source unavailable", "")
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, codeTimeout, "evaluation timed out before any listing completed", "")
	default:
		slog.Error("pipeline failed", "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal server error", "")
	}
}

// respondJSON serializa antes de escribir la cabecera: si el encode falla
// (p.ej. NaN) se responde 500 en vez de un 200 con cuerpo vacío.
func respondJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		slog.Error("failed to encode response", "status", status, "err", err)
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(errorBody{Error: errorDetail{Code: codeInternal, Message: "failed to encode response"}})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Debug("failed to write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message, field string) {
	respondJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message, Field: field}})
}
