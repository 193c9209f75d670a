package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/narvanalabs/solr-monitor/internal/cluster"
	"github.com/narvanalabs/solr-monitor/pkg/logger"
)

// DatacenterHandler serves the per-datacenter views.
type DatacenterHandler struct {
	service *cluster.Service
	logger  *slog.Logger
}

// NewDatacenterHandler creates a new datacenter handler.
func NewDatacenterHandler(svc *cluster.Service, logger *slog.Logger) *DatacenterHandler {
	return &DatacenterHandler{
		service: svc,
		logger:  logger,
	}
}

// List handles GET /datacenters - the configured topology as is.
func (h *DatacenterHandler) List(w http.ResponseWriter, r *http.Request) {
	topo, err := h.service.Topology()
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, topo)
}

// Summary handles GET /datacenters/summary.
func (h *DatacenterHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.DatacentersSummary(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}

// Get handles GET /datacenters/{datacenter}.
func (h *DatacenterHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "datacenter")
	r = r.WithContext(logger.ContextWithDatacenter(r.Context(), name))

	detail, err := h.service.DatacenterDetail(r.Context(), name)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, detail)
}
