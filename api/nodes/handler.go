package nodes

import (
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"imonitor/internal/httpx"
	"imonitor/internal/registry"
)

// ReserveRequest represents a node reservation request
type ReserveRequest struct {
	Label string `json:"label"`
}

// ListResponse represents the node listing response
type ListResponse struct {
	Nodes       []registry.NodeView `json:"nodes"`
	GeneratedAt int64               `json:"generated_at"`
}

// Handler handles node registry API
type Handler struct {
	registry *registry.Service
}

// NewHandler creates a new nodes handler
func NewHandler(reg *registry.Service) *Handler {
	return &Handler{registry: reg}
}

// Reserve handles POST /api/nodes/reserve
func (h *Handler) Reserve(c *gin.Context) {
	var req ReserveRequest
	// An empty body means a reservation without a label.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httpx.FailErr(c, httpx.ErrParamInvalid(err.Error()))
		return
	}

	res, err := h.registry.Reserve(c.Request.Context(), req.Label)
	if err != nil {
		httpx.FailErr(c, httpx.ErrDatabaseError("failed to reserve node", err))
		return
	}

	httpx.OK(c, res)
}

// List handles GET /api/nodes
func (h *Handler) List(c *gin.Context) {
	now := time.Now().Unix()

	views, err := h.registry.ListWithStatus(c.Request.Context(), now)
	if err != nil {
		httpx.FailErr(c, httpx.ErrDatabaseError("failed to list nodes", err))
		return
	}

	httpx.OK(c, ListResponse{
		Nodes:       views,
		GeneratedAt: now,
	})
}

// Delete handles DELETE /api/nodes/:token
func (h *Handler) Delete(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		httpx.FailErr(c, httpx.ErrParamMissing("token is required"))
		return
	}

	err := h.registry.Deregister(c.Request.Context(), token)
	if errors.Is(err, registry.ErrUnknownToken) {
		httpx.FailErr(c, httpx.ErrNotFound("unknown token"))
		return
	}
	if err != nil {
		httpx.FailErr(c, httpx.ErrDatabaseError("failed to delete node", err))
		return
	}

	httpx.OK(c, gin.H{"status": "deleted"})
}
