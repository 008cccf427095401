package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/readiness/internal/middleware"
	"github.com/xxxsen/readiness/internal/pkg/apikey"
)

type RouterDeps struct {
	Assessments     *AssessmentHandler
	Metrics         http.Handler
	APIKeys         *apikey.Verifier
	UploadRateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", Health)
	if deps.Metrics != nil {
		api.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	authGroup := api.Group("/assessment")
	authGroup.Use(middleware.APIKeyAuth(deps.APIKeys))
	authGroup.POST("/upload", middleware.RateLimit(deps.UploadRateLimit), deps.Assessments.Upload)
	authGroup.GET("/:id", deps.Assessments.Status)
	authGroup.DELETE("/:id", deps.Assessments.Delete)
	authGroup.GET("/:id/json", deps.Assessments.ReportJSON)
	authGroup.GET("/:id/pdf", deps.Assessments.ReportPDF)
	authGroup.POST("/:id/cancel", deps.Assessments.Cancel)
}
