package dashboard

import (
	"log"
	"sort"
	"sync"

	"github.com/QuahJunJie/industrial-iot-dashboard/alert"
	"github.com/QuahJunJie/industrial-iot-dashboard/classify"
	"github.com/QuahJunJie/industrial-iot-dashboard/models"
)

// AlertFunc receives each newly fired alert event exactly once.
type AlertFunc func(*models.Event)

// MetricDelta compares the latest reading of a metric against the previous
// one.
type MetricDelta struct {
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	Delta    float64 `json:"delta"`
	Trend    string  `json:"trend"` // up | down | stable
}

// StatusView is the derived read model for the latest reading.
type StatusView struct {
	DeviceID      string                   `json:"device_id"`
	Status        classify.Status          `json:"status"`
	Proximity     string                   `json:"proximity,omitempty"`
	AlertMessages []string                 `json:"alert_messages"`
	Latest        *models.TelemetryReading `json:"latest,omitempty"`
	Temperature   *MetricDelta             `json:"temperature,omitempty"`
	Vibration     *MetricDelta             `json:"vibration,omitempty"`
}

// State composes the poller's snapshots, the threshold classifier and the
// alert edge detector into the read model served to clients. It owns the
// sliding window of readings for one device; independent devices get
// independent State instances.
type State struct {
	mu sync.RWMutex

	thresholds classify.Thresholds
	detector   *alert.EdgeDetector
	onAlert    AlertFunc

	snapshot     *models.Snapshot
	pendingAlert *models.Event
}

// New creates an empty dashboard state.
func New(thresholds classify.Thresholds, onAlert AlertFunc) *State {
	if !thresholds.Valid() {
		thresholds = classify.DefaultThresholds()
	}
	return &State{
		thresholds: thresholds,
		detector:   alert.NewEdgeDetector(),
		onAlert:    onAlert,
	}
}

// Apply accepts a snapshot from the poller. Telemetry is re-sorted oldest
// first since the feed does not guarantee ordering; events keep the feed's
// newest-first order. The edge detector runs before the snapshot becomes
// visible to readers, so new-alert detection is never skipped for an
// accepted snapshot.
func (s *State) Apply(snap *models.Snapshot) {
	if snap == nil {
		return
	}

	telemetry := make([]models.TelemetryReading, len(snap.Telemetry))
	copy(telemetry, snap.Telemetry)
	sort.SliceStable(telemetry, func(i, j int) bool {
		return telemetry[i].Timestamp < telemetry[j].Timestamp
	})

	fired := s.detector.Observe(snap)

	s.mu.Lock()
	s.snapshot = &models.Snapshot{
		DeviceID:  snap.DeviceID,
		Telemetry: telemetry,
		Events:    snap.Events,
	}
	if fired != nil {
		s.pendingAlert = fired
	}
	onAlert := s.onAlert
	s.mu.Unlock()

	if fired != nil {
		log.Printf("New alert for device %s: %s (%s)", fired.DeviceID, fired.EventType, fired.Severity)
		if onAlert != nil {
			onAlert(fired)
		}
	}
}

// Reset clears the detector and the pending alert, as when switching
// devices. The stale snapshot is kept until the next fetch replaces it.
func (s *State) Reset() {
	s.detector.Reset()
	s.mu.Lock()
	s.pendingAlert = nil
	s.mu.Unlock()
}

// SetThresholds replaces the classification limits.
func (s *State) SetThresholds(t classify.Thresholds) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thresholds = t
}

// Thresholds returns the current classification limits.
func (s *State) Thresholds() classify.Thresholds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.thresholds
}

// Snapshot returns the last accepted snapshot, telemetry sorted oldest
// first, or nil before the first fetch.
func (s *State) Snapshot() *models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// NewAlert returns the pending one-shot alert, or nil when none is waiting.
func (s *State) NewAlert() *models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingAlert
}

// ClearNewAlert acknowledges the pending alert. The detector does not
// re-emit it.
func (s *State) ClearNewAlert() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingAlert = nil
}

// Latest returns the newest telemetry reading, or nil when no data has
// arrived yet.
func (s *State) Latest() *models.TelemetryReading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestLocked()
}

func (s *State) latestLocked() *models.TelemetryReading {
	if s.snapshot == nil || len(s.snapshot.Telemetry) == 0 {
		return nil
	}
	latest := s.snapshot.Telemetry[len(s.snapshot.Telemetry)-1]
	return &latest
}

func (s *State) previousLocked() *models.TelemetryReading {
	if s.snapshot == nil || len(s.snapshot.Telemetry) < 2 {
		return nil
	}
	prev := s.snapshot.Telemetry[len(s.snapshot.Telemetry)-2]
	return &prev
}

// Status derives the full classification view for the latest reading.
func (s *State) Status() StatusView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := StatusView{
		Status:        classify.StatusStopped,
		AlertMessages: []string{},
	}
	if s.snapshot != nil {
		view.DeviceID = s.snapshot.DeviceID
	}

	latest := s.latestLocked()
	if latest == nil {
		return view
	}

	view.Latest = latest
	view.Status = classify.ClassifyStatus(latest.Temperature, latest.Vibration, latest.Distance, s.thresholds)
	if prox, ok := classify.ClassifyProximity(latest.Distance, s.thresholds); ok {
		view.Proximity = string(prox)
	}
	view.AlertMessages = classify.BuildAlertMessages(latest.Temperature, latest.Vibration, latest.Distance, s.thresholds)

	if prev := s.previousLocked(); prev != nil {
		view.Temperature = delta(latest.Temperature, prev.Temperature)
		view.Vibration = delta(latest.Vibration, prev.Vibration)
	}

	return view
}

// delta computes the change between consecutive readings with a 0.1 dead
// band on the trend direction.
func delta(current, previous float64) *MetricDelta {
	d := current - previous
	trend := "stable"
	if d > 0.1 {
		trend = "up"
	} else if d < -0.1 {
		trend = "down"
	}
	return &MetricDelta{
		Current:  current,
		Previous: previous,
		Delta:    d,
		Trend:    trend,
	}
}
