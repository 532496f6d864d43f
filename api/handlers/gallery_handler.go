// api/handlers/gallery_handler.go
package handlers

import (
	"net/http"
	"path/filepath"
	"strconv"

	"example.com/greenhouse/services/gateway/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// timestampFormat matches what the frontend gallery renders
const timestampFormat = "2006-01-02 15:04:05"

// GalleryHandler serves the read-only projections over the persistence log
type GalleryHandler struct {
	service service.Service
	log     *logrus.Logger
}

// NewGalleryHandler creates a new GalleryHandler instance
func NewGalleryHandler(svc service.Service, log *logrus.Logger) *GalleryHandler {
	return &GalleryHandler{
		service: svc,
		log:     log,
	}
}

// uploadEntry is one row of the gallery listing
type uploadEntry struct {
	Filename  string `json:"filename"`
	URL       string `json:"url"`
	Timestamp string `json:"timestamp"`
}

// ListUploads returns the most recent uploads on GET /api/uploads
func (h *GalleryHandler) ListUploads(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 50
	}

	events, err := h.service.RecentUploads(c, limit)
	if err != nil {
		h.log.WithError(err).Error("Failed to list uploads")
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":    false,
			"error": "failed to list uploads",
		})
		return
	}

	uploads := make([]uploadEntry, 0, len(events))
	for _, event := range events {
		filename := filepath.Base(event.StoredPath)
		uploads = append(uploads, uploadEntry{
			Filename:  filename,
			URL:       "/uploads/" + filename,
			Timestamp: event.ReceivedAt.Format(timestampFormat),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"uploads": uploads,
	})
}

// ListHeartbeats returns the most recent device check-ins on
// GET /api/heartbeats, for the operator to see which devices are alive
func (h *GalleryHandler) ListHeartbeats(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 50
	}

	heartbeats, err := h.service.RecentHeartbeats(c, limit)
	if err != nil {
		h.log.WithError(err).Error("Failed to list heartbeats")
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":    false,
			"error": "failed to list heartbeats",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"heartbeats": heartbeats,
	})
}

// sensorData mirrors the frontend contract: every field is null until a
// sensor upload has parsed successfully
type sensorData struct {
	Temperature  *float64 `json:"temperature"`
	Humidity     *float64 `json:"humidity"`
	SoilMoisture *int     `json:"soil_moisture"`
	WaterLevel   *float64 `json:"water_level"`
	Timestamp    *string  `json:"timestamp"`
}

// GetLatestSensor returns the most recent reading on GET /api/sensor
func (h *GalleryHandler) GetLatestSensor(c *gin.Context) {
	reading, err := h.service.LatestSensorReading(c)
	if err != nil {
		h.log.WithError(err).Error("Failed to get latest sensor reading")
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":    false,
			"error": "failed to get sensor data",
		})
		return
	}

	var data sensorData
	if reading != nil {
		ts := reading.ObservedAt.Format(timestampFormat)
		data = sensorData{
			Temperature:  &reading.Temperature,
			Humidity:     &reading.Humidity,
			SoilMoisture: &reading.SoilMoisture,
			WaterLevel:   &reading.WaterLevel,
			Timestamp:    &ts,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":   true,
		"data": data,
	})
}
