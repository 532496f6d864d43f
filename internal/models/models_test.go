package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// The camera prefix extends the sensor prefix, so camera identifiers must
// never fall through to the sensor class
func TestClassifyDevice(t *testing.T) {
	tests := []struct {
		deviceID string
		want     DeviceClass
	}{
		{"ESP32CAM", DeviceClassCamera},
		{"ESP32CAM-7", DeviceClassCamera},
		{"ESP32CAM_greenhouse_2", DeviceClassCamera},
		{"ESP32", DeviceClassSensor},
		{"ESP32-A1", DeviceClassSensor},
		{"ESP32_sensor_3", DeviceClassSensor},
		{"ESP8266", DeviceClassUnknown},
		{"esp32", DeviceClassUnknown},
		{"", DeviceClassUnknown},
		{"UNKNOWN", DeviceClassUnknown},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, ClassifyDevice(tt.deviceID), "deviceID %q", tt.deviceID)
	}
}

func TestEncodingFromContentType(t *testing.T) {
	require.Equal(t, EncodingText, EncodingFromContentType("text/plain"))
	require.Equal(t, EncodingText, EncodingFromContentType("text/plain; charset=utf-8"))
	require.Equal(t, EncodingMultipart, EncodingFromContentType("multipart/form-data; boundary=xyz"))
	require.Equal(t, EncodingOctetStream, EncodingFromContentType("application/octet-stream"))
	require.Equal(t, EncodingJpeg, EncodingFromContentType("image/jpeg"))
	require.Equal(t, EncodingUnknown, EncodingFromContentType(""))
	require.Equal(t, EncodingUnknown, EncodingFromContentType("application/json"))
}
