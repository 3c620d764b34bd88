package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/basit/filevault-backend/handlers"
)

func RegisterFileRoutes(r *gin.Engine, h *handlers.Handler) {
	fileGroup := r.Group("/api/files")

	fileGroup.POST("", h.Upload)
	fileGroup.GET("", h.List)
	fileGroup.GET("/:uuid", h.Show)
	fileGroup.PUT("/:uuid", h.Touch)
	fileGroup.DELETE("/:uuid", h.Destroy)
	fileGroup.POST("/:uuid/restore", h.Restore)
	fileGroup.POST("/:uuid/attach", h.Attach)
	fileGroup.POST("/:uuid/detach", h.Detach)
}
