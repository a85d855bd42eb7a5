package routes

import (
	"net/http"

	"cabinet_tracker/internal/handlers"
	"cabinet_tracker/internal/logger"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts every HTTP route.
func RegisterRoutes(ginRouter *gin.Engine, appHandlers *handlers.AppHandlers) {
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := ginRouter.Group("/api/v1")
	{
		appHandlers.ImageHandler.RegisterRoutes(api)
		appHandlers.FileHandler.RegisterRoutes(api)
	}
	logger.Debug("HTTP routes registered", "routes", len(ginRouter.Routes()))
}
