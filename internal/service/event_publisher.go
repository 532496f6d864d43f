// internal/service/event_publisher.go
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"example.com/greenhouse/services/gateway/internal/messaging"
	"example.com/greenhouse/services/gateway/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event kinds published downstream
const (
	EventCommandIssued    = "command_issued"
	EventCaptureRequested = "capture_requested"
	EventUploadReceived   = "upload_received"
	EventSensorReading    = "sensor_reading"
)

// Event is a gateway fact pushed to the platform queue after it has been
// persisted locally. Delivery is best-effort; the persistence log is the
// source of truth.
type Event struct {
	UUID        string             `json:"uuid"`
	Kind        string             `json:"kind"`
	DeviceID    string             `json:"device_id,omitempty"`
	DeviceClass models.DeviceClass `json:"device_class,omitempty"`
	Payload     interface{}        `json:"payload,omitempty"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

// Publisher delivers gateway events downstream asynchronously
type Publisher interface {
	Publish(event *Event) error
	Stats() map[string]interface{}
	Stop()
}

// busPublisher fans events out to Service Bus through a worker pool so no
// device request ever blocks on the broker
type busPublisher struct {
	messagingClient messaging.ServiceBusClient
	log             *logrus.Logger
	workers         int
	queue           chan *Event
	wg              sync.WaitGroup
	ctx             context.Context
	cancel          context.CancelFunc

	queueCapacityAlertThreshold float64
}

// NewPublisher creates an event publisher with a worker pool
func NewPublisher(client messaging.ServiceBusClient, log *logrus.Logger, workers int) Publisher {
	ctx, cancel := context.WithCancel(context.Background())
	p := &busPublisher{
		messagingClient:             client,
		log:                         log,
		workers:                     workers,
		queue:                       make(chan *Event, 10000),
		ctx:                         ctx,
		cancel:                      cancel,
		queueCapacityAlertThreshold: 0.8,
	}

	p.startWorkers()
	go p.monitorQueueCapacity()

	p.log.Infof("Started event publisher with %d workers", workers)

	return p
}

// startWorkers launches the worker goroutines
func (p *busPublisher) startWorkers() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// worker delivers events from the queue
func (p *busPublisher) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			p.log.Debugf("Publisher worker %d shutting down", id)
			return
		case event := <-p.queue:
			start := time.Now()
			p.deliver(event)
			p.log.Debugf("Publisher worker %d delivered event in %v", id, time.Since(start))
		}
	}
}

// deliver sends one event to Service Bus, sessioned by device so per-device
// ordering survives the fan-out
func (p *busPublisher) deliver(event *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sessionID := event.DeviceID
	if sessionID == "" {
		sessionID = string(event.DeviceClass)
	}

	if err := p.messagingClient.SendMessage(ctx, event, sessionID); err != nil {
		p.log.WithError(err).WithFields(logrus.Fields{
			"kind": event.Kind,
			"uuid": event.UUID,
		}).Error("Failed to publish gateway event")
	}
}

// monitorQueueCapacity logs a warning when the queue fills past the alert
// threshold
func (p *busPublisher) monitorQueueCapacity() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			queueLength := len(p.queue)
			queueCapacity := cap(p.queue)
			usage := float64(queueLength) / float64(queueCapacity)

			if usage >= p.queueCapacityAlertThreshold {
				p.log.Warnf("Event queue at %d%% capacity (%d/%d)!", int(usage*100), queueLength, queueCapacity)
			}
		}
	}
}

// Publish enqueues an event for delivery without blocking the caller
func (p *busPublisher) Publish(event *Event) error {
	if event.UUID == "" {
		event.UUID = uuid.New().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	select {
	case p.queue <- event:
		return nil
	default:
		return errors.New("event queue is full")
	}
}

// Stats returns current queue statistics
func (p *busPublisher) Stats() map[string]interface{} {
	return map[string]interface{}{
		"queue_length":   len(p.queue),
		"queue_capacity": cap(p.queue),
		"worker_count":   p.workers,
	}
}

// Stop gracefully shuts down the publisher
func (p *busPublisher) Stop() {
	p.log.Info("Stopping event publisher...")
	p.cancel()
	p.wg.Wait()
	p.log.Info("Event publisher stopped")
}
