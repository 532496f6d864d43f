// api/handlers/device_handler.go
package handlers

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"example.com/greenhouse/services/gateway/internal/models"
	"example.com/greenhouse/services/gateway/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Poll response bodies. These are plain-text bodies, not HTTP status codes;
// the ESP32 firmware parses the body and expects an HTTP 200 around it.
const (
	pollBodyIdle     = "200"
	pollBodyCommand  = "201"
	pollBodyRejected = "400"
)

// DeviceHandler handles the device-facing protocol endpoints
type DeviceHandler struct {
	service service.Service
	log     *logrus.Logger
}

// NewDeviceHandler creates a new DeviceHandler instance
func NewDeviceHandler(svc service.Service, log *logrus.Logger) *DeviceHandler {
	return &DeviceHandler{
		service: svc,
		log:     log,
	}
}

// PollDevice answers a device check-in on GET /get
func (h *DeviceHandler) PollDevice(c *gin.Context) {
	deviceID := c.Query("id")

	result := h.service.Poll(c, deviceID)

	switch result.Outcome {
	case models.OutcomeCommandIssued:
		c.String(http.StatusOK, pollBodyCommand)
	case models.OutcomeRejected:
		c.String(http.StatusOK, pollBodyRejected)
	default:
		c.String(http.StatusOK, pollBodyIdle)
	}
}

// UploadPayload ingests a device upload on POST /upload
func (h *DeviceHandler) UploadPayload(c *gin.Context) {
	deviceID := c.Query("id")
	contentType := c.ContentType()

	body, err := c.GetRawData()
	if err != nil {
		h.log.WithError(err).Warn("Failed to read upload body")
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "fail",
			"error":  "failed to read request body",
		})
		return
	}

	upload := service.Upload{
		Encoding: models.EncodingFromContentType(c.GetHeader("Content-Type")),
		Body:     body,
	}
	if upload.Encoding == models.EncodingMultipart {
		upload.Part = extractFilePart(c.GetHeader("Content-Type"), body)
	}

	event, err := h.service.Ingest(c, deviceID, upload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownDevice):
			c.JSON(http.StatusBadRequest, gin.H{
				"status": "fail",
				"error":  "unknown device",
			})
		case errors.Is(err, service.ErrMissingFilePart):
			c.JSON(http.StatusBadRequest, gin.H{
				"status": "fail",
				"error":  "form field 'file' not found",
			})
		default:
			h.log.WithError(err).WithFields(logrus.Fields{
				"device_id":    deviceID,
				"content_type": contentType,
			}).Error("Failed to ingest upload")
			c.JSON(http.StatusInternalServerError, gin.H{
				"status": "fail",
				"error":  err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"saved":  filepath.Base(event.StoredPath),
	})
}

// TriggerCamera sets the camera trigger flag on GET /trigger/cam
func (h *DeviceHandler) TriggerCamera(c *gin.Context) {
	h.service.RequestCapture(c, models.DeviceClassCamera)
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "camera will receive 201 on next poll",
	})
}

// TriggerSensor sets the sensor trigger flag on GET /trigger/esp32
func (h *DeviceHandler) TriggerSensor(c *gin.Context) {
	h.service.RequestCapture(c, models.DeviceClassSensor)
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "sensor will receive 201 on next poll",
	})
}

// GetPublisherStats returns statistics about the event publisher
func (h *DeviceHandler) GetPublisherStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"stats":  h.service.PublisherStats(),
	})
}

// extractFilePart pulls the "file" part out of a multipart body. The body
// has already been read for raw-byte fallback, so the form is re-parsed from
// the buffer here. Returns nil when the part is absent or the form is
// malformed; the dispatcher decides whether that matters.
func extractFilePart(contentType string, body []byte) *service.UploadPart {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil
	}
	boundary, ok := params["boundary"]
	if !ok {
		return nil
	}

	reader := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := reader.NextPart()
		if err != nil {
			return nil
		}
		if part.FormName() != "file" {
			continue
		}

		data, err := io.ReadAll(part)
		if err != nil {
			return nil
		}
		return &service.UploadPart{
			Filename: part.FileName(),
			Data:     data,
		}
	}
}
