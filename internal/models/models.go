package models

import (
	"strings"
	"time"
)

// DeviceClass identifies the kind of device behind an identifier
type DeviceClass string

const (
	// DeviceClassCamera represents ESP32-CAM still-image devices
	DeviceClassCamera DeviceClass = "camera"
	// DeviceClassSensor represents ESP32 telemetry devices
	DeviceClassSensor DeviceClass = "sensor"
	// DeviceClassUnknown represents identifiers that match no known prefix
	DeviceClassUnknown DeviceClass = "unknown"
)

// Device identifier prefixes. The camera prefix extends the sensor prefix,
// so classification must test the camera prefix first.
const (
	CameraDevicePrefix = "ESP32CAM"
	SensorDevicePrefix = "ESP32"
)

// UnknownDeviceID is substituted when a device omits its identifier
const UnknownDeviceID = "UNKNOWN"

// devicePrefixes is the ordered classification table, most specific first
var devicePrefixes = []struct {
	prefix string
	class  DeviceClass
}{
	{CameraDevicePrefix, DeviceClassCamera},
	{SensorDevicePrefix, DeviceClassSensor},
}

// ClassifyDevice maps a device identifier to its class by prefix match.
// The table is ordered most-specific-first: "ESP32CAM-7" is a camera even
// though it also carries the sensor prefix.
func ClassifyDevice(deviceID string) DeviceClass {
	for _, entry := range devicePrefixes {
		if strings.HasPrefix(deviceID, entry.prefix) {
			return entry.class
		}
	}
	return DeviceClassUnknown
}

// HeartbeatOutcome records how a poll was answered
type HeartbeatOutcome string

const (
	// OutcomeAcknowledged means the poll was answered with nothing pending
	OutcomeAcknowledged HeartbeatOutcome = "acknowledged"
	// OutcomeCommandIssued means the poll consumed a pending trigger
	OutcomeCommandIssued HeartbeatOutcome = "command_issued"
	// OutcomeRejected means the device identifier was not recognized
	OutcomeRejected HeartbeatOutcome = "rejected"
)

// Encoding is the declared content encoding of an upload
type Encoding string

const (
	EncodingText        Encoding = "text"
	EncodingMultipart   Encoding = "multipart"
	EncodingOctetStream Encoding = "octet-stream"
	EncodingJpeg        Encoding = "jpeg"
	EncodingUnknown     Encoding = "unknown"
)

// EncodingFromContentType maps an HTTP Content-Type header to an Encoding tag
func EncodingFromContentType(contentType string) Encoding {
	switch {
	case contentType == "":
		return EncodingUnknown
	case strings.HasPrefix(contentType, "text/plain"):
		return EncodingText
	case strings.Contains(contentType, "multipart/form-data"):
		return EncodingMultipart
	case strings.HasPrefix(contentType, "application/octet-stream"):
		return EncodingOctetStream
	case strings.HasPrefix(contentType, "image/jpeg"):
		return EncodingJpeg
	default:
		return EncodingUnknown
	}
}

// DeviceHeartbeat is an append-only record of a device check-in
type DeviceHeartbeat struct {
	ID          uint             `json:"id" gorm:"primarykey"`
	DeviceID    string           `json:"device_id" gorm:"Column:device_id;index"`
	DeviceClass DeviceClass      `json:"device_class" gorm:"Column:device_class"`
	Outcome     HeartbeatOutcome `json:"outcome" gorm:"Column:outcome"`
	ObservedAt  time.Time        `json:"observed_at" gorm:"Column:observed_at"`
}

// UploadEvent is an append-only record of a persisted upload. The stored
// payload itself is owned by the filesystem; the event only records the
// reference.
type UploadEvent struct {
	ID          uint        `json:"id" gorm:"primarykey"`
	StoredPath  string      `json:"stored_path" gorm:"Column:stored_path"`
	DeviceClass DeviceClass `json:"device_class" gorm:"Column:device_class"`
	Encoding    Encoding    `json:"encoding" gorm:"Column:encoding"`
	ReceivedAt  time.Time   `json:"received_at" gorm:"Column:received_at"`
}

// SensorReading is a derived fact written once per successfully parsed
// sensor upload
type SensorReading struct {
	ID           uint      `json:"id" gorm:"primarykey"`
	Temperature  float64   `json:"temperature" gorm:"Column:temperature"`
	Humidity     float64   `json:"humidity" gorm:"Column:humidity"`
	SoilMoisture int       `json:"soil_moisture" gorm:"Column:soil_moisture"`
	WaterLevel   float64   `json:"water_level" gorm:"Column:water_level"`
	ObservedAt   time.Time `json:"observed_at" gorm:"Column:observed_at"`
}
