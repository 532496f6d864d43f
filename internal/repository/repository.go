package repository

import (
	"context"
	"errors"

	"example.com/greenhouse/services/gateway/internal/database"
	"example.com/greenhouse/services/gateway/internal/models"

	"gorm.io/gorm"
)

// Repository is the append-only persistence log for the gateway. Records are
// written once and never updated or deleted; queries are most-recent-first
// projections for the frontend.
type Repository interface {
	// Heartbeat operations
	SaveHeartbeat(ctx context.Context, hb *models.DeviceHeartbeat) error
	ListRecentHeartbeats(ctx context.Context, limit int) ([]*models.DeviceHeartbeat, error)

	// UploadEvent operations
	SaveUploadEvent(ctx context.Context, event *models.UploadEvent) error
	ListRecentUploads(ctx context.Context, limit int) ([]*models.UploadEvent, error)

	// SensorReading operations
	SaveSensorReading(ctx context.Context, reading *models.SensorReading) error
	LatestSensorReading(ctx context.Context) (*models.SensorReading, error)
}

// repo is an implementation of the Repository interface
type repo struct {
	db database.DB
}

// NewRepository creates a new repository instance
func NewRepository(db database.DB) Repository {
	return &repo{
		db: db,
	}
}

// Heartbeat operations implementation

func (r *repo) SaveHeartbeat(ctx context.Context, hb *models.DeviceHeartbeat) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Create(hb).Error
}

func (r *repo) ListRecentHeartbeats(ctx context.Context, limit int) ([]*models.DeviceHeartbeat, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var heartbeats []*models.DeviceHeartbeat
	query := gormDB.WithContext(ctx).Order("id DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&heartbeats).Error; err != nil {
		return nil, err
	}

	return heartbeats, nil
}

// UploadEvent operations implementation

func (r *repo) SaveUploadEvent(ctx context.Context, event *models.UploadEvent) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Create(event).Error
}

func (r *repo) ListRecentUploads(ctx context.Context, limit int) ([]*models.UploadEvent, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var events []*models.UploadEvent
	query := gormDB.WithContext(ctx).Order("id DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}

	return events, nil
}

// SensorReading operations implementation

func (r *repo) SaveSensorReading(ctx context.Context, reading *models.SensorReading) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Create(reading).Error
}

// LatestSensorReading returns the most recent reading, or nil when the log
// is empty.
func (r *repo) LatestSensorReading(ctx context.Context) (*models.SensorReading, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var reading models.SensorReading
	if err := gormDB.WithContext(ctx).Order("id DESC").First(&reading).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &reading, nil
}
