package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"topomap/internal/metrics"
	"topomap/internal/topology"
	"topomap/internal/viewer"
)

type Options struct {
	Metrics        *metrics.Metrics
	Refresh        func()
	// Ping, when set, must succeed for /readyz to report ready.
	Ping           func(ctx context.Context) error
	SuggestLimit   int
	AllowedOrigins []string
}

type Handler struct {
	log            zerolog.Logger
	viewers        *viewer.Registry
	metrics        *metrics.Metrics
	refresh        func()
	ping           func(ctx context.Context) error
	suggestLimit   int
	allowedOrigins []string
	validate       *validator.Validate
}

func NewHandler(log zerolog.Logger, viewers *viewer.Registry, opts Options) *Handler {
	limit := opts.SuggestLimit
	if limit <= 0 {
		limit = topology.DefaultSuggestLimit
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handler{
		log:            log,
		viewers:        viewers,
		metrics:        opts.Metrics,
		refresh:        opts.Refresh,
		ping:           opts.Ping,
		suggestLimit:   limit,
		allowedOrigins: opts.AllowedOrigins,
		validate:       v,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	if len(h.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	r.Use(h.accessLog)

	// Health
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	// API
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Route("/topology", func(r chi.Router) {
				r.Get("/snapshot", h.handleSnapshot)
				r.Post("/refresh", h.handleRefresh)
				r.Route("/sessions", func(r chi.Router) {
					r.Post("/", h.handleCreateSession)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", h.handleGetSession)
						r.Delete("/", h.handleDeleteSession)
						r.Post("/gestures", h.handleGesture)
						r.Post("/reset", h.handleReset)
						r.Put("/search", h.handleSearch)
						r.Get("/suggestions", h.handleSuggestions)
					})
				})
			})
		})
	})

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		h.metrics.ObserveHTTPRequest(r.Method, route, ww.Status(), elapsed)

		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", elapsed.Milliseconds()).
			Msg("http_request")
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	resp := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if details != nil {
		resp["error"].(map[string]any)["details"] = details
	}
	h.writeJSON(w, status, resp)
}

func decodeJSONStrict(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("unexpected extra data after JSON body")
		}
		return err
	}
	return nil
}

// decodeAndValidate writes a validation_failed response and returns false when
// the body is malformed or breaks a struct rule.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSONStrict(r, dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		details := map[string]any{}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, e := range verrs {
				if e.Param() != "" {
					details[e.Field()] = e.Tag() + "=" + e.Param()
				} else {
					details[e.Field()] = e.Tag()
				}
			}
		} else {
			details["error"] = err.Error()
		}
		h.writeError(w, http.StatusBadRequest, "validation_failed", "request failed validation", details)
		return false
	}
	return true
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not ready", map[string]any{"error": err.Error()})
			return
		}
	}
	if h.viewers == nil || !h.viewers.Ready() {
		h.writeError(w, http.StatusServiceUnavailable, "source_unavailable", "no device list published yet", nil)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ready": true})
}
