package registry

import (
	"sync"

	"example.com/greenhouse/services/gateway/internal/models"
)

// Registry holds one pending-trigger flag per device class. An operator sets
// a flag; the next poll from that class consumes it. Consumption is an atomic
// read-modify-write, so a set flag is delivered to at most one poll even
// under concurrent requests.
type Registry struct {
	mu    sync.Mutex
	flags map[models.DeviceClass]bool
}

// New creates an empty registry with all flags idle
func New() *Registry {
	return &Registry{
		flags: make(map[models.DeviceClass]bool),
	}
}

// SetTrigger marks the class as having a pending command. Setting an
// already-pending flag is a no-op. Flags never expire; a pending command
// stays pending until a poll consumes it.
func (r *Registry) SetTrigger(class models.DeviceClass) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flags[class] = true
}

// ConsumeTrigger reports whether a command was pending for the class and, if
// so, resets the flag before returning. A false return has no side effects.
func (r *Registry) ConsumeTrigger(class models.DeviceClass) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.flags[class] {
		return false
	}
	r.flags[class] = false
	return true
}

// Pending reports the current flag state without consuming it
func (r *Registry) Pending(class models.DeviceClass) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flags[class]
}
