package routes

import (
	"example.com/greenhouse/services/gateway/api/handlers"
	"example.com/greenhouse/services/gateway/config"
	"example.com/greenhouse/services/gateway/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRoutes sets up all the routes for the server
func SetupRoutes(r *gin.Engine, cfg *config.Config, svc service.Service, log *logrus.Logger) {
	// Device-facing protocol. Paths and plain-text bodies are fixed by the
	// deployed ESP32 firmware.
	deviceHandler := handlers.NewDeviceHandler(svc, log)
	r.GET("/get", deviceHandler.PollDevice)
	r.POST("/upload", deviceHandler.UploadPayload)
	r.GET("/level", handlers.PlantLevel(cfg.Plant.GrowthStage))

	// Operator triggers
	trigger := r.Group("/trigger")
	{
		trigger.GET("/cam", deviceHandler.TriggerCamera)
		trigger.GET("/esp32", deviceHandler.TriggerSensor)
	}

	// Frontend API
	galleryHandler := handlers.NewGalleryHandler(svc, log)
	predictHandler := handlers.NewPredictHandler(svc, log)
	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/uploads", galleryHandler.ListUploads)
		api.GET("/heartbeats", galleryHandler.ListHeartbeats)
		api.GET("/sensor", galleryHandler.GetLatestSensor)
		api.POST("/predict", predictHandler.Predict)
		api.GET("/events/stats", deviceHandler.GetPublisherStats)
	}

	// Stored payloads served back byte-for-byte
	r.Static("/uploads", cfg.Storage.UploadDir)
}
