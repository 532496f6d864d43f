package handlers

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"example.com/greenhouse/services/gateway/internal/inference"
	"example.com/greenhouse/services/gateway/internal/models"
	"example.com/greenhouse/services/gateway/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock Service for handler testing
type MockService struct {
	mock.Mock
}

func (m *MockService) Poll(ctx context.Context, deviceID string) *service.PollResult {
	args := m.Called(ctx, deviceID)
	return args.Get(0).(*service.PollResult)
}

func (m *MockService) Ingest(ctx context.Context, deviceID string, upload service.Upload) (*models.UploadEvent, error) {
	args := m.Called(ctx, deviceID, upload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UploadEvent), args.Error(1)
}

func (m *MockService) RequestCapture(ctx context.Context, class models.DeviceClass) {
	m.Called(ctx, class)
}

func (m *MockService) RecentUploads(ctx context.Context, limit int) ([]*models.UploadEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.UploadEvent), args.Error(1)
}

func (m *MockService) RecentHeartbeats(ctx context.Context, limit int) ([]*models.DeviceHeartbeat, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DeviceHeartbeat), args.Error(1)
}

func (m *MockService) LatestSensorReading(ctx context.Context) (*models.SensorReading, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SensorReading), args.Error(1)
}

func (m *MockService) Predict(ctx context.Context, image []byte, filename string) (*inference.Prediction, error) {
	args := m.Called(ctx, image, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inference.Prediction), args.Error(1)
}

func (m *MockService) PublisherStats() map[string]interface{} {
	args := m.Called()
	return args.Get(0).(map[string]interface{})
}

func (m *MockService) Shutdown() error {
	args := m.Called()
	return args.Error(0)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.FatalLevel)
	return log
}

func init() {
	gin.SetMode(gin.TestMode)
}

// The poll protocol speaks through the body: the HTTP status is always 200
func TestPollDeviceBodies(t *testing.T) {
	tests := []struct {
		name     string
		outcome  models.HeartbeatOutcome
		wantBody string
	}{
		{"idle", models.OutcomeAcknowledged, "200"},
		{"command pending", models.OutcomeCommandIssued, "201"},
		{"unrecognized", models.OutcomeRejected, "400"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(MockService)
			mockSvc.On("Poll", mock.Anything, "ESP32-A1").Return(&service.PollResult{
				Class:   models.DeviceClassSensor,
				Outcome: tt.outcome,
			})

			router := gin.New()
			h := NewDeviceHandler(mockSvc, testLogger())
			router.GET("/get", h.PollDevice)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/get?id=ESP32-A1", nil)
			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			require.Equal(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestUploadPayloadSuccess(t *testing.T) {
	mockSvc := new(MockService)
	mockSvc.On("Ingest", mock.Anything, "ESP32CAM-7", mock.MatchedBy(func(u service.Upload) bool {
		return u.Encoding == models.EncodingJpeg && string(u.Body) == "still-bytes"
	})).Return(&models.UploadEvent{StoredPath: "/data/uploads/CAM_20260314_092653.jpg"}, nil)

	router := gin.New()
	h := NewDeviceHandler(mockSvc, testLogger())
	router.POST("/upload", h.UploadPayload)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/upload?id=ESP32CAM-7", bytes.NewReader([]byte("still-bytes")))
	req.Header.Set("Content-Type", "image/jpeg")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"ok"`)
	require.Contains(t, w.Body.String(), "CAM_20260314_092653.jpg")
	mockSvc.AssertExpectations(t)
}

func TestUploadPayloadMultipartPart(t *testing.T) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "frame.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	mockSvc := new(MockService)
	mockSvc.On("Ingest", mock.Anything, "ESP32CAM-7", mock.MatchedBy(func(u service.Upload) bool {
		return u.Encoding == models.EncodingMultipart &&
			u.Part != nil &&
			u.Part.Filename == "frame.png" &&
			string(u.Part.Data) == "png-bytes"
	})).Return(&models.UploadEvent{StoredPath: "CAM_20260314_092653.png"}, nil)

	router := gin.New()
	h := NewDeviceHandler(mockSvc, testLogger())
	router.POST("/upload", h.UploadPayload)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/upload?id=ESP32CAM-7", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestUploadPayloadUnknownDevice(t *testing.T) {
	mockSvc := new(MockService)
	mockSvc.On("Ingest", mock.Anything, "ESP8266-X", mock.Anything).Return(nil, service.ErrUnknownDevice)

	router := gin.New()
	h := NewDeviceHandler(mockSvc, testLogger())
	router.POST("/upload", h.UploadPayload)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/upload?id=ESP8266-X", bytes.NewReader([]byte("payload")))
	req.Header.Set("Content-Type", "text/plain")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "unknown device")
}

func TestUploadPayloadMissingFilePart(t *testing.T) {
	mockSvc := new(MockService)
	mockSvc.On("Ingest", mock.Anything, "ESP32CAM-7", mock.Anything).Return(nil, service.ErrMissingFilePart)

	router := gin.New()
	h := NewDeviceHandler(mockSvc, testLogger())
	router.POST("/upload", h.UploadPayload)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/upload?id=ESP32CAM-7", bytes.NewReader([]byte("--x--")))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "form field 'file' not found")
}

func TestUploadPayloadPersistFailure(t *testing.T) {
	mockSvc := new(MockService)
	mockSvc.On("Ingest", mock.Anything, "ESP32-A1", mock.Anything).Return(nil, errors.New("disk full"))

	router := gin.New()
	h := NewDeviceHandler(mockSvc, testLogger())
	router.POST("/upload", h.UploadPayload)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/upload?id=ESP32-A1", bytes.NewReader([]byte("payload")))
	req.Header.Set("Content-Type", "text/plain")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), `"status":"fail"`)
}

func TestTriggerEndpoints(t *testing.T) {
	mockSvc := new(MockService)
	mockSvc.On("RequestCapture", mock.Anything, models.DeviceClassCamera).Return()
	mockSvc.On("RequestCapture", mock.Anything, models.DeviceClassSensor).Return()

	router := gin.New()
	h := NewDeviceHandler(mockSvc, testLogger())
	router.GET("/trigger/cam", h.TriggerCamera)
	router.GET("/trigger/esp32", h.TriggerSensor)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/trigger/cam", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/trigger/esp32", nil))
	require.Equal(t, http.StatusOK, w.Code)

	mockSvc.AssertExpectations(t)
}

func TestExtractFilePart(t *testing.T) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "frame.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	got := extractFilePart(writer.FormDataContentType(), buf.Bytes())

	require.NotNil(t, got)
	require.Equal(t, "frame.jpg", got.Filename)
	require.Equal(t, []byte("jpeg-bytes"), got.Data)
}

// A multipart form without a "file" part yields nil, not an error
func TestExtractFilePartAbsent(t *testing.T) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("comment", "no file here"))
	require.NoError(t, writer.Close())

	got := extractFilePart(writer.FormDataContentType(), buf.Bytes())

	require.Nil(t, got)
}
