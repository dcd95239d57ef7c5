// Package httpserver exposes the profile API over HTTP/JSON.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/and161185/profiled/internal/auth"
	"github.com/and161185/profiled/internal/convert"
	"github.com/and161185/profiled/internal/errs"
	"github.com/and161185/profiled/internal/service"
)

const maxBody = 4 << 10

type ctxKey struct{}

// Handler serves /me, /healthz and /metrics.
type Handler struct {
	profiles service.ProfileService
	verifier *auth.Verifier
	log      *zap.Logger
	mux      *http.ServeMux
}

// New builds the HTTP handler. gatherer may be nil to disable /metrics.
func New(profiles service.ProfileService, verifier *auth.Verifier, log *zap.Logger, gatherer prometheus.Gatherer) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{profiles: profiles, verifier: verifier, log: log, mux: http.NewServeMux()}
	h.mux.Handle("POST /me", h.authed(h.updateMe))
	h.mux.Handle("GET /me", h.authed(h.getMe))
	h.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	if gatherer != nil {
		h.mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return h
}

// ServeHTTP logs every request and recovers from handler panics.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	defer func() {
		if p := recover(); p != nil {
			h.log.Error("panic", zap.Any("reason", p), zap.String("path", r.URL.Path))
			writeError(rec, http.StatusInternalServerError, "internal")
		}
		h.log.Info("http",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("dur", time.Since(start)),
			zap.String("peer", r.RemoteAddr),
		)
	}()
	h.mux.ServeHTTP(rec, r)
}

func (h *Handler) authed(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, http.StatusUnauthorized, "no auth")
			return
		}
		id, err := h.verifier.Subject(tok)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func userID(r *http.Request) uuid.UUID {
	id, _ := r.Context().Value(ctxKey{}).(uuid.UUID)
	return id
}

func (h *Handler) updateMe(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	m, err := convert.MutationFromMap(body)
	if err == nil {
		err = m.ValidateRequest()
	}
	if err == nil {
		_, err = h.profiles.Update(r.Context(), userID(r), m)
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) getMe(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.Get(r.Context(), userID(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(convert.ProfileToMap(p))
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errs.UserVisible(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, errs.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		h.log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
