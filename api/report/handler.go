package report

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"imonitor/internal/httpx"
	"imonitor/internal/registry"
)

// ReportRequest represents one metrics report pushed by an agent.
// Meta and metrics are opaque to the collector and stored as-is.
type ReportRequest struct {
	Token     string          `json:"token" binding:"required"`
	Hostname  *string         `json:"hostname"`
	IPAddress string          `json:"ip_address"`
	Meta      json.RawMessage `json:"meta" binding:"required"`
	Metrics   json.RawMessage `json:"metrics" binding:"required"`
}

// Handler handles report ingestion
type Handler struct {
	registry *registry.Service
}

// NewHandler creates a new report handler
func NewHandler(reg *registry.Service) *Handler {
	return &Handler{registry: reg}
}

// Report handles POST /api/report
func (h *Handler) Report(c *gin.Context) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid(err.Error()))
		return
	}

	// Agents behind NAT often cannot see their public address; fall back to
	// the address the request arrived from.
	ip := req.IPAddress
	if ip == "" {
		ip = c.ClientIP()
	}

	err := h.registry.IngestReport(c.Request.Context(), registry.ReportInput{
		Token:     req.Token,
		Hostname:  req.Hostname,
		IPAddress: ip,
		Meta:      datatypes.JSON(req.Meta),
		Metrics:   datatypes.JSON(req.Metrics),
	}, time.Now().Unix())

	if errors.Is(err, registry.ErrUnknownToken) {
		httpx.FailErr(c, httpx.ErrNotFound("unknown token"))
		return
	}
	if err != nil {
		httpx.FailErr(c, httpx.ErrDatabaseError("failed to ingest report", err))
		return
	}

	httpx.OK(c, gin.H{"status": "ok"})
}
