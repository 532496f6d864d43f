package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"example.com/greenhouse/services/gateway/config"
	"example.com/greenhouse/services/gateway/internal/cache"
	"example.com/greenhouse/services/gateway/internal/inference"
	"example.com/greenhouse/services/gateway/internal/models"
	"example.com/greenhouse/services/gateway/internal/registry"
	"example.com/greenhouse/services/gateway/internal/repository"
	"example.com/greenhouse/services/gateway/internal/sensor"
	"example.com/greenhouse/services/gateway/internal/storage"

	"github.com/sirupsen/logrus"
)

// ErrUnknownDevice is a classification failure: the device identifier
// matches no known prefix. Nothing is persisted for these requests.
var ErrUnknownDevice = errors.New("unknown device")

// ErrMissingFilePart is returned for multipart camera uploads without the
// expected "file" part
var ErrMissingFilePart = errors.New("form field 'file' not found")

// UploadPart is a named part extracted from a multipart submission
type UploadPart struct {
	Filename string
	Data     []byte
}

// Upload carries a device payload into ingestion: the declared encoding tag,
// the raw body, and the named part when the submission was multipart
type Upload struct {
	Encoding models.Encoding
	Body     []byte
	Part     *UploadPart
}

// PollResult is the answer to a device check-in
type PollResult struct {
	Class   models.DeviceClass
	Outcome models.HeartbeatOutcome
}

// Service defines the gateway business logic
type Service interface {
	// Device protocol operations
	Poll(ctx context.Context, deviceID string) *PollResult
	Ingest(ctx context.Context, deviceID string, upload Upload) (*models.UploadEvent, error)

	// Operator operations
	RequestCapture(ctx context.Context, class models.DeviceClass)

	// Frontend queries
	RecentUploads(ctx context.Context, limit int) ([]*models.UploadEvent, error)
	RecentHeartbeats(ctx context.Context, limit int) ([]*models.DeviceHeartbeat, error)
	LatestSensorReading(ctx context.Context) (*models.SensorReading, error)
	Predict(ctx context.Context, image []byte, filename string) (*inference.Prediction, error)

	// Monitoring and lifecycle
	PublisherStats() map[string]interface{}
	Shutdown() error
}

// service is an implementation of the Service interface
type service struct {
	repo      repository.Repository
	registry  *registry.Registry
	store     *storage.FileStore
	cache     cache.RedisClient
	inference inference.Client
	publisher Publisher
	log       *logrus.Logger
}

// ServiceConfig holds the configuration for the service
type ServiceConfig struct {
	Repository repository.Repository
	Registry   *registry.Registry
	Store      *storage.FileStore
	Cache      cache.RedisClient
	Inference  inference.Client
	Publisher  Publisher
	Logger     *logrus.Logger
}

// NewService creates a new service instance
func NewService(cfg ServiceConfig) (Service, error) {
	if cfg.Repository == nil {
		return nil, errors.New("repository is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("file store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Inference == nil {
		cfg.Inference = inference.NewClient(config.InferenceConfig{})
	}
	if cfg.Publisher == nil {
		return nil, errors.New("publisher is required")
	}

	return &service{
		repo:      cfg.Repository,
		registry:  cfg.Registry,
		store:     cfg.Store,
		cache:     cfg.Cache,
		inference: cfg.Inference,
		publisher: cfg.Publisher,
		log:       cfg.Logger,
	}, nil
}

// DefaultPublisherWorkers picks a worker count for the event publisher based
// on available CPUs
func DefaultPublisherWorkers() int {
	workers := runtime.NumCPU() * 2
	if workers < 4 {
		workers = 4
	}
	return workers
}

// Poll answers a device check-in. It records a heartbeat for every poll and
// consumes the class's pending trigger when one is set. Unknown devices are
// rejected without touching any trigger flag. The device protocol has no
// error channel, so storage failures are logged and the poll is still
// answered.
func (s *service) Poll(ctx context.Context, deviceID string) *PollResult {
	if deviceID == "" {
		deviceID = models.UnknownDeviceID
	}

	class := models.ClassifyDevice(deviceID)
	outcome := models.OutcomeAcknowledged

	switch {
	case class == models.DeviceClassUnknown:
		outcome = models.OutcomeRejected
	case s.registry.ConsumeTrigger(class):
		outcome = models.OutcomeCommandIssued
	}

	hb := &models.DeviceHeartbeat{
		DeviceID:    deviceID,
		DeviceClass: class,
		Outcome:     outcome,
		ObservedAt:  time.Now(),
	}

	if err := s.repo.SaveHeartbeat(ctx, hb); err != nil {
		s.log.WithError(err).WithField("device_id", deviceID).Error("Failed to record heartbeat")
	}

	if outcome == models.OutcomeCommandIssued {
		s.publish(&Event{
			Kind:        EventCommandIssued,
			DeviceID:    deviceID,
			DeviceClass: class,
		})
	}

	return &PollResult{Class: class, Outcome: outcome}
}

// Ingest classifies an upload by device identifier and declared encoding,
// persists the payload, and records exactly one UploadEvent per successful
// persist. Sensor payloads are additionally handed to the telemetry parser;
// a parse failure is informational since the raw text is already stored.
func (s *service) Ingest(ctx context.Context, deviceID string, upload Upload) (*models.UploadEvent, error) {
	if deviceID == "" {
		deviceID = models.UnknownDeviceID
	}

	class := models.ClassifyDevice(deviceID)
	receivedAt := time.Now()

	var storedPath string
	var err error

	switch class {
	case models.DeviceClassCamera:
		storedPath, err = s.persistCameraUpload(upload, receivedAt)
	case models.DeviceClassSensor:
		storedPath, err = s.persistSensorUpload(ctx, upload, receivedAt)
	default:
		return nil, ErrUnknownDevice
	}
	if err != nil {
		return nil, err
	}

	event := &models.UploadEvent{
		StoredPath:  storedPath,
		DeviceClass: class,
		Encoding:    upload.Encoding,
		ReceivedAt:  receivedAt,
	}
	if err := s.repo.SaveUploadEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to record upload event: %w", err)
	}

	s.publish(&Event{
		Kind:        EventUploadReceived,
		DeviceID:    deviceID,
		DeviceClass: class,
		Payload:     event,
	})

	s.log.WithFields(logrus.Fields{
		"device_id":   deviceID,
		"stored_path": storedPath,
		"encoding":    upload.Encoding,
	}).Info("Upload persisted")

	return event, nil
}

// persistCameraUpload stores a still image. Multipart submissions take their
// suffix from the declared filename; everything else is stored as raw JPEG
// bytes regardless of the declared content type, because the camera firmware
// is known to mislabel it.
func (s *service) persistCameraUpload(upload Upload, receivedAt time.Time) (string, error) {
	if upload.Encoding == models.EncodingMultipart {
		if upload.Part == nil {
			return "", ErrMissingFilePart
		}
		ext := filepath.Ext(upload.Part.Filename)
		return s.store.SaveCameraStill(upload.Part.Data, ext, receivedAt)
	}

	return s.store.SaveCameraStill(upload.Body, "", receivedAt)
}

// persistSensorUpload stores the telemetry text for audit and attempts to
// parse it into a typed reading
func (s *service) persistSensorUpload(ctx context.Context, upload Upload, receivedAt time.Time) (string, error) {
	body := string(upload.Body)

	storedPath, err := s.store.SaveSensorText(body, receivedAt)
	if err != nil {
		return "", err
	}

	reading, parseErr := sensor.Parse(body, receivedAt)
	if parseErr != nil {
		// Informational: the raw payload is already durably stored above
		s.log.WithError(parseErr).Warn("Sensor payload did not parse")
		return storedPath, nil
	}

	if err := s.repo.SaveSensorReading(ctx, reading); err != nil {
		s.log.WithError(err).Error("Failed to record sensor reading")
		return storedPath, nil
	}

	s.cacheLatestReading(ctx, reading)
	s.publish(&Event{
		Kind:        EventSensorReading,
		DeviceClass: models.DeviceClassSensor,
		Payload:     reading,
	})

	return storedPath, nil
}

// RequestCapture marks the class as having a one-shot command pending. The
// flag is consumed by the next poll from that class and never expires.
func (s *service) RequestCapture(ctx context.Context, class models.DeviceClass) {
	s.registry.SetTrigger(class)
	s.publish(&Event{
		Kind:        EventCaptureRequested,
		DeviceClass: class,
	})
}

// RecentUploads returns the most recent upload events, newest first
func (s *service) RecentUploads(ctx context.Context, limit int) ([]*models.UploadEvent, error) {
	return s.repo.ListRecentUploads(ctx, limit)
}

// RecentHeartbeats returns the most recent device check-ins, newest first
func (s *service) RecentHeartbeats(ctx context.Context, limit int) ([]*models.DeviceHeartbeat, error) {
	return s.repo.ListRecentHeartbeats(ctx, limit)
}

// LatestSensorReading returns the most recent reading, preferring the cache
// and falling back to the persistence log. A nil reading means no sensor
// upload has parsed yet.
func (s *service) LatestSensorReading(ctx context.Context) (*models.SensorReading, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cache.LatestSensorKey); err == nil {
			var reading models.SensorReading
			if err := json.Unmarshal([]byte(cached), &reading); err == nil {
				return &reading, nil
			}
		}
	}

	reading, err := s.repo.LatestSensorReading(ctx)
	if err != nil {
		return nil, err
	}
	if reading != nil {
		s.cacheLatestReading(ctx, reading)
	}

	return reading, nil
}

// Predict forwards an image to the inference collaborator
func (s *service) Predict(ctx context.Context, image []byte, filename string) (*inference.Prediction, error) {
	return s.inference.Predict(ctx, image, filename)
}

// PublisherStats returns statistics about the event publisher
func (s *service) PublisherStats() map[string]interface{} {
	return s.publisher.Stats()
}

// Shutdown gracefully stops the service
func (s *service) Shutdown() error {
	s.log.Info("Shutting down service...")
	s.publisher.Stop()
	return nil
}

// cacheLatestReading stores the reading under the latest-sensor key; cache
// failures are logged and ignored
func (s *service) cacheLatestReading(ctx context.Context, reading *models.SensorReading) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(reading)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cache.LatestSensorKey, string(data), 24*time.Hour); err != nil {
		s.log.WithError(err).Warn("Failed to cache latest sensor reading")
	}
}

// publish enqueues an event for downstream delivery; a full queue is logged,
// never surfaced to the device
func (s *service) publish(event *Event) {
	if err := s.publisher.Publish(event); err != nil {
		s.log.WithError(err).WithField("kind", event.Kind).Warn("Failed to enqueue gateway event")
	}
}
