package mockfeed

import (
	"sync"

	"github.com/QuahJunJie/industrial-iot-dashboard/models"
)

const (
	readingWindowSize = 500
	eventWindowSize   = 100
	defaultLimit      = 60
)

// Store keeps a bounded in-memory window of readings and events per device.
type Store struct {
	mu      sync.RWMutex
	devices map[string]*deviceWindow
}

// deviceWindow is a pair of ring buffers for one device.
type deviceWindow struct {
	readings *readingRing
	events   *eventRing
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		devices: make(map[string]*deviceWindow),
	}
}

func (s *Store) window(deviceID string) *deviceWindow {
	w, ok := s.devices[deviceID]
	if !ok {
		w = &deviceWindow{
			readings: newReadingRing(readingWindowSize),
			events:   newEventRing(eventWindowSize),
		}
		s.devices[deviceID] = w
	}
	return w
}

// AddReading appends a telemetry reading to the device's window.
func (s *Store) AddReading(reading models.TelemetryReading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window(reading.DeviceID).readings.add(reading)
}

// AddEvent appends an event to the device's window.
func (s *Store) AddEvent(event models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window(event.DeviceID).events.add(event)
}

// Snapshot assembles the feed response: up to limit readings and the event
// window, both newest first.
func (s *Store) Snapshot(deviceID string, limit int) *models.Snapshot {
	if limit <= 0 {
		limit = defaultLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &models.Snapshot{
		DeviceID:  deviceID,
		Telemetry: []models.TelemetryReading{},
		Events:    []models.Event{},
	}

	w, ok := s.devices[deviceID]
	if !ok {
		return snap
	}

	snap.Telemetry = w.readings.newestFirst(limit)
	snap.Events = w.events.newestFirst(eventWindowSize)
	return snap
}

// readingRing is a fixed-size ring buffer of telemetry readings.
type readingRing struct {
	items    []models.TelemetryReading
	maxSize  int
	position int
	full     bool
}

func newReadingRing(maxSize int) *readingRing {
	return &readingRing{
		items:   make([]models.TelemetryReading, maxSize),
		maxSize: maxSize,
	}
}

func (r *readingRing) add(item models.TelemetryReading) {
	r.items[r.position] = item
	r.position = (r.position + 1) % r.maxSize
	if !r.full && r.position == 0 {
		r.full = true
	}
}

// newestFirst returns up to n items, most recently added first.
func (r *readingRing) newestFirst(n int) []models.TelemetryReading {
	size := r.position
	if r.full {
		size = r.maxSize
	}
	if n > size {
		n = size
	}

	result := make([]models.TelemetryReading, 0, n)
	for i := 1; i <= n; i++ {
		idx := (r.position - i + r.maxSize) % r.maxSize
		result = append(result, r.items[idx])
	}
	return result
}

// eventRing is a fixed-size ring buffer of events.
type eventRing struct {
	items    []models.Event
	maxSize  int
	position int
	full     bool
}

func newEventRing(maxSize int) *eventRing {
	return &eventRing{
		items:   make([]models.Event, maxSize),
		maxSize: maxSize,
	}
}

func (r *eventRing) add(item models.Event) {
	r.items[r.position] = item
	r.position = (r.position + 1) % r.maxSize
	if !r.full && r.position == 0 {
		r.full = true
	}
}

func (r *eventRing) newestFirst(n int) []models.Event {
	size := r.position
	if r.full {
		size = r.maxSize
	}
	if n > size {
		n = size
	}

	result := make([]models.Event, 0, n)
	for i := 1; i <= n; i++ {
		idx := (r.position - i + r.maxSize) % r.maxSize
		result = append(result, r.items[idx])
	}
	return result
}
