package api

import (
	"github.com/gin-gonic/gin"

	"imonitor/api/bootstrap"
	"imonitor/api/nodes"
	"imonitor/api/report"
	"imonitor/internal/config"
	"imonitor/internal/httpx"
	"imonitor/internal/registry"
)

// SetupRouter registers all collector routes
func SetupRouter(r *gin.Engine, reg *registry.Service, cfg *config.Config) {
	bootstrapHandler := bootstrap.NewHandler(cfg)
	r.GET("/install.sh", bootstrapHandler.GetInstallScript)

	api := r.Group("/api")
	{
		api.GET("/ping", pingHandler)

		nodesHandler := nodes.NewHandler(reg)
		nodesGroup := api.Group("/nodes")
		{
			nodesGroup.GET("", nodesHandler.List)
			nodesGroup.POST("/reserve", nodesHandler.Reserve)
			nodesGroup.DELETE("/:token", nodesHandler.Delete)
		}

		reportHandler := report.NewHandler(reg)
		api.POST("/report", reportHandler.Report)
	}
}

// pingHandler handles the liveness probe
func pingHandler(c *gin.Context) {
	httpx.OK(c, gin.H{
		"pong": true,
	})
}
