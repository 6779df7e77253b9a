package api

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the session API under /api.
func RegisterRoutes(r *gin.Engine, h *Handler) {
	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/catalog", h.Catalog)
		api.GET("/state", h.State)

		api.PUT("/style", h.SetStyle)
		api.PUT("/background", h.SetBackground)
		api.PUT("/border", h.SetBorder)
		api.PUT("/text", h.SetText)

		api.POST("/upload", h.Upload)
		api.GET("/upload", h.UploadInfo)
		api.POST("/upload/drag", h.Drag)
		api.PUT("/upload/position", h.MoveTo)
		api.POST("/upload/commit", h.Commit)
		api.GET("/upload/preview", h.Preview)
		api.GET("/upload/cropped", h.Cropped)

		api.GET("/render", h.Render)
		api.GET("/export/:format", h.Export)
	}
}
