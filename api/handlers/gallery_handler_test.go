package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"example.com/greenhouse/services/gateway/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestListUploads(t *testing.T) {
	receivedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	mockSvc := new(MockService)
	mockSvc.On("RecentUploads", mock.Anything, 50).Return([]*models.UploadEvent{
		{StoredPath: "/data/uploads/CAM_20260314_092653.jpg", DeviceClass: models.DeviceClassCamera, ReceivedAt: receivedAt},
		{StoredPath: "/data/uploads/ESP32_20260314_092612_sensor.txt", DeviceClass: models.DeviceClassSensor, ReceivedAt: receivedAt},
	}, nil)

	router := gin.New()
	h := NewGalleryHandler(mockSvc, testLogger())
	router.GET("/api/uploads", h.ListUploads)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/uploads", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		OK      bool `json:"ok"`
		Uploads []struct {
			Filename  string `json:"filename"`
			URL       string `json:"url"`
			Timestamp string `json:"timestamp"`
		} `json:"uploads"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.OK)
	require.Len(t, resp.Uploads, 2)
	require.Equal(t, "CAM_20260314_092653.jpg", resp.Uploads[0].Filename)
	require.Equal(t, "/uploads/CAM_20260314_092653.jpg", resp.Uploads[0].URL)
	require.Equal(t, "2026-03-14 09:26:53", resp.Uploads[0].Timestamp)
}

// A bad or missing limit falls back to the default of 50
func TestListUploadsLimit(t *testing.T) {
	mockSvc := new(MockService)
	mockSvc.On("RecentUploads", mock.Anything, 10).Return([]*models.UploadEvent{}, nil)

	router := gin.New()
	h := NewGalleryHandler(mockSvc, testLogger())
	router.GET("/api/uploads", h.ListUploads)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/uploads?limit=10", nil))

	require.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)

	mockSvc = new(MockService)
	mockSvc.On("RecentUploads", mock.Anything, 50).Return([]*models.UploadEvent{}, nil)

	router = gin.New()
	h = NewGalleryHandler(mockSvc, testLogger())
	router.GET("/api/uploads", h.ListUploads)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/uploads?limit=abc", nil))

	require.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestListHeartbeats(t *testing.T) {
	mockSvc := new(MockService)
	mockSvc.On("RecentHeartbeats", mock.Anything, 50).Return([]*models.DeviceHeartbeat{
		{DeviceID: "ESP32CAM-7", DeviceClass: models.DeviceClassCamera, Outcome: models.OutcomeCommandIssued},
		{DeviceID: "ESP32-A1", DeviceClass: models.DeviceClassSensor, Outcome: models.OutcomeAcknowledged},
	}, nil)

	router := gin.New()
	h := NewGalleryHandler(mockSvc, testLogger())
	router.GET("/api/heartbeats", h.ListHeartbeats)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/heartbeats", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "ESP32CAM-7")
	require.Contains(t, w.Body.String(), "command_issued")
	mockSvc.AssertExpectations(t)
}

func TestGetLatestSensor(t *testing.T) {
	observed := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	mockSvc := new(MockService)
	mockSvc.On("LatestSensorReading", mock.Anything).Return(&models.SensorReading{
		Temperature:  23.5,
		Humidity:     60,
		SoilMoisture: 400,
		WaterLevel:   80,
		ObservedAt:   observed,
	}, nil)

	router := gin.New()
	h := NewGalleryHandler(mockSvc, testLogger())
	router.GET("/api/sensor", h.GetLatestSensor)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sensor", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		OK   bool `json:"ok"`
		Data struct {
			Temperature  *float64 `json:"temperature"`
			Humidity     *float64 `json:"humidity"`
			SoilMoisture *int     `json:"soil_moisture"`
			WaterLevel   *float64 `json:"water_level"`
			Timestamp    *string  `json:"timestamp"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.OK)
	require.NotNil(t, resp.Data.Temperature)
	require.Equal(t, 23.5, *resp.Data.Temperature)
	require.Equal(t, 400, *resp.Data.SoilMoisture)
	require.Equal(t, "2026-03-14 09:26:53", *resp.Data.Timestamp)
}

// Before any sensor upload has parsed, every field comes back null
func TestGetLatestSensorEmpty(t *testing.T) {
	mockSvc := new(MockService)
	mockSvc.On("LatestSensorReading", mock.Anything).Return(nil, nil)

	router := gin.New()
	h := NewGalleryHandler(mockSvc, testLogger())
	router.GET("/api/sensor", h.GetLatestSensor)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sensor", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		OK   bool `json:"ok"`
		Data struct {
			Temperature *float64 `json:"temperature"`
			Timestamp   *string  `json:"timestamp"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.OK)
	require.Nil(t, resp.Data.Temperature)
	require.Nil(t, resp.Data.Timestamp)
}

func TestPlantLevel(t *testing.T) {
	router := gin.New()
	router.GET("/level", PlantLevel("300"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/level", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "300", w.Body.String())
}
