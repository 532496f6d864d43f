// api/handlers/predict_handler.go
package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"example.com/greenhouse/services/gateway/internal/inference"
	"example.com/greenhouse/services/gateway/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// allowedImageExts limits what gets forwarded to the inference collaborator
var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}

// PredictHandler proxies images to the disease-classification collaborator
type PredictHandler struct {
	service service.Service
	log     *logrus.Logger
}

// NewPredictHandler creates a new PredictHandler instance
func NewPredictHandler(svc service.Service, log *logrus.Logger) *PredictHandler {
	return &PredictHandler{
		service: svc,
		log:     log,
	}
}

// Predict handles POST /api/predict
func (h *PredictHandler) Predict(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":    false,
			"error": "no file",
		})
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if fileHeader.Filename == "" || !allowedImageExts[ext] {
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":    false,
			"error": "bad filename/ext",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":    false,
			"error": "failed to read file",
		})
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":    false,
			"error": "failed to read file",
		})
		return
	}

	prediction, err := h.service.Predict(c, image, fileHeader.Filename)
	if err != nil {
		if errors.Is(err, inference.ErrDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ok":    false,
				"error": "inference service not configured",
			})
			return
		}

		h.log.WithError(err).Error("Prediction failed")
		c.JSON(http.StatusBadGateway, gin.H{
			"ok":    false,
			"error": "prediction failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"class_id":   prediction.ClassID,
		"label":      prediction.Label,
		"confidence": prediction.Confidence,
	})
}
