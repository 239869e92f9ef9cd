package routes

import (
	"time"

	"market-scanner/controllers"
	"market-scanner/middleware"
	"market-scanner/services/screener"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up all API routes.
func SetupRoutes(router *gin.Engine, s *screener.Screener) {
	scanController := controllers.NewScanController(s)

	api := router.Group("/api")
	{
		// Scans and updates hit external providers, keep them throttled.
		api.POST("/scan", middleware.RateLimit(5, time.Minute), scanController.RunScan)
		api.POST("/update", middleware.RateLimit(5, time.Minute), scanController.UpdateData)

		api.GET("/status", scanController.GetStatus)
		api.GET("/strategies", scanController.GetStrategies)
		api.GET("/history", scanController.GetHistory)
	}
}
