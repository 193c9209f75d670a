package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/narvanalabs/solr-monitor/internal/api/errors"
	"github.com/narvanalabs/solr-monitor/internal/cluster"
	"github.com/narvanalabs/solr-monitor/internal/topology"
	"github.com/narvanalabs/solr-monitor/pkg/logger"
)

// ClusterHandler serves the node and coordination views of the cluster.
type ClusterHandler struct {
	service *cluster.Service
	logger  *slog.Logger
}

// NewClusterHandler creates a new cluster handler.
func NewClusterHandler(svc *cluster.Service, logger *slog.Logger) *ClusterHandler {
	return &ClusterHandler{
		service: svc,
		logger:  logger,
	}
}

// ListNodes handles GET /cluster/nodes?datacenter=&node=&loadAll=.
// loadAll defaults to true; false probes only each datacenter's first node.
func (h *ClusterHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	var errs apierrors.ValidationErrors
	loadAll := parseBoolParam(r, "loadAll", true, &errs)
	if apiErr := errs.Err(); apiErr != nil {
		WriteError(w, r, apiErr)
		return
	}

	q := topology.Query{
		Datacenter: r.URL.Query().Get("datacenter"),
		Node:       r.URL.Query().Get("node"),
		LoadAll:    loadAll,
	}

	list, err := h.service.ListNodes(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

// GetNode handles GET /cluster/nodes/{nodeID}.
func (h *ClusterHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	if nodeID == "" {
		WriteBadRequest(w, r, "node id is required")
		return
	}

	node, err := h.service.GetNode(r.Context(), nodeID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, node)
}

// Zookeeper handles GET /cluster/zookeeper?datacenter=.
func (h *ClusterHandler) Zookeeper(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.ZookeeperOverview(r.Context(), r.URL.Query().Get("datacenter"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, overview)
}

// ZookeeperDetails handles GET /cluster/zookeeper/{datacenter}/details.
func (h *ClusterHandler) ZookeeperDetails(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "datacenter")
	r = r.WithContext(logger.ContextWithDatacenter(r.Context(), name))

	details, err := h.service.ZookeeperDetails(r.Context(), name)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, details)
}
