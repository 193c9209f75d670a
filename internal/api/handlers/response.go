package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"

	apierrors "github.com/narvanalabs/solr-monitor/internal/api/errors"
	"github.com/narvanalabs/solr-monitor/pkg/logger"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteRawJSON writes an already-encoded JSON document.
func WriteRawJSON(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// WriteError writes an APIError tagged with the request's id.
func WriteError(w http.ResponseWriter, r *http.Request, err *apierrors.APIError) {
	apierrors.WriteError(w, err.WithRequestID(middleware.GetReqID(r.Context())))
}

// WriteBadRequest writes a 400 validation error.
func WriteBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, apierrors.NewValidationError(message))
}

// writeServiceError answers with the API error for a cluster service failure.
// Probe failures never get here; they are part of the returned documents.
func writeServiceError(w http.ResponseWriter, r *http.Request, base *slog.Logger, err error) {
	apiErr, level := apierrors.FromService(err)
	apiErr = apiErr.WithRequestID(middleware.GetReqID(r.Context()))

	log := logger.From(base).WithContext(r.Context())
	log.Log(r.Context(), level, "request failed",
		append(apiErr.LogAttrs(false), "error", err, "path", r.URL.Path)...,
	)
	apierrors.WriteError(w, apiErr)
}

// parseBoolParam reads an optional boolean query parameter.
func parseBoolParam(r *http.Request, name string, def bool, errs *apierrors.ValidationErrors) bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		errs.Add(name, name+" must be a boolean")
		return def
	}
	return v
}
