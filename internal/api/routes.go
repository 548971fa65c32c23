package api

import (
	"github.com/RishiKendai/textguard/internal/config"
	"github.com/gin-gonic/gin"
)

func SetupRoutes(cfg *config.Config, handler *Handler, rateLimiter *RateLimiter) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	router.Use(ErrorHandlerMiddleware())

	// Health endpoint (no auth)
	router.GET("/health", handler.Health)

	api := router.Group("/api/v1")
	api.Use(JWTAuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer))
	api.Use(RateLimitMiddleware(rateLimiter))
	{
		api.POST("/documents", handler.UploadDocuments)
		api.GET("/documents", handler.ListDocuments)
		api.GET("/documents/:id/content", handler.DownloadDocument)
		api.DELETE("/documents/:id", handler.DeleteDocument)

		api.POST("/reports", handler.CreateReport)
		api.GET("/reports", handler.ListReports)
		api.GET("/reports/:runId", handler.GetReport)
		api.GET("/reports/:runId/status", handler.GetReportStatus)
	}

	return router
}
