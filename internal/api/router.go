package api

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

// NewRouter registra las rutas y middlewares de la API.
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/process_listings", h.ProcessListings).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/runs", h.ListRuns).Methods(http.MethodGet)
	r.HandleFunc("/runs/{id}/listings", h.RunListings).Methods(http.MethodGet)

	r.Use(loggingMiddleware)
	r.Use(recoveryMiddleware)
	r.Use(corsMiddleware(allowedOrigins))

	return r
}

// statusRecorder captura el status code para el log de la petición.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}

func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("panic recovered", "path", r.URL.Path, "err", err)
				writeError(w, http.StatusInternalServerError, codeInternal, "internal server error", "")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware permite los orígenes configurados. "*" abre a cualquiera.
// Las peticiones preflight se responden aquí sin llegar al handler.
func corsMiddleware(origins []string) mux.MiddlewareFunc {
	allowAll := slices.Contains(origins, "*")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || slices.Contains(origins, origin)) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ", "))
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.Header().Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
