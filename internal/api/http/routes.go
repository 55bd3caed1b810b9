package http

import "github.com/gin-gonic/gin"

// Register mounts the REST routes on r
func (h *Handlers) Register(r gin.IRoutes) {
	r.GET("/health", h.Health)

	// Catalog
	r.GET("/catalog", h.GetCatalog)
	r.POST("/catalog/refresh", h.RefreshCatalog)

	// Apps
	r.GET("/apps", h.ListApps)
	r.GET("/apps/installed", h.ListInstalled)
	r.GET("/apps/updates", h.ListUpdates)
	r.GET("/apps/:id/state", h.AppState)
	r.POST("/apps/:id/install", h.Install)
	r.POST("/apps/:id/update", h.Update)
	r.POST("/apps/:id/repair", h.Repair)
	r.POST("/apps/:id/cancel", h.Cancel)
	r.POST("/apps/:id/launch", h.Launch)
	r.DELETE("/apps/:id", h.Uninstall)

	// Settings
	r.GET("/settings", h.GetSettings)
	r.PUT("/settings", h.SaveSettings)

	r.GET("/launcher/update", h.LauncherUpdate)
}
