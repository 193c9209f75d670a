package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/narvanalabs/solr-monitor/internal/cluster"
)

// maxProxyBody caps request bodies relayed to a node.
const maxProxyBody = 1 << 20

// PassthroughHandler relays single-node admin calls.
type PassthroughHandler struct {
	service *cluster.Service
	logger  *slog.Logger
}

// NewPassthroughHandler creates a new passthrough handler.
func NewPassthroughHandler(svc *cluster.Service, logger *slog.Logger) *PassthroughHandler {
	return &PassthroughHandler{
		service: svc,
		logger:  logger,
	}
}

// SystemInfo handles GET /system/info?node=.
func (h *PassthroughHandler) SystemInfo(w http.ResponseWriter, r *http.Request) {
	body, err := h.service.SystemInfo(r.Context(), r.URL.Query().Get("node"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteRawJSON(w, http.StatusOK, body)
}

// Cores handles GET /admin/cores?datacenter=&node=.
func (h *PassthroughHandler) Cores(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	body, err := h.service.Cores(r.Context(), q.Get("datacenter"), q.Get("node"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteRawJSON(w, http.StatusOK, body)
}

// Security handles GET|POST /security/{resource}?node=. The node's answer,
// including its status code, is relayed unchanged.
func (h *PassthroughHandler) Security(w http.ResponseWriter, r *http.Request) {
	resource := cluster.SecurityResource(chi.URLParam(r, "resource"))
	if !resource.Valid() {
		WriteBadRequest(w, r, "resource must be authentication or authorization")
		return
	}

	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(io.LimitReader(r.Body, maxProxyBody))
		if err != nil {
			WriteBadRequest(w, r, "could not read request body")
			return
		}
	}

	resp, err := h.service.Security(r.Context(), r.URL.Query().Get("node"), resource, r.Method, body, r.Header.Get("Content-Type"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}
