package alert

import (
	"math"
	"sync"

	"github.com/QuahJunJie/industrial-iot-dashboard/models"
)

// EdgeDetector turns the latest event of each snapshot into a one-shot
// notification. It keeps a single high-water-mark of the newest event
// timestamp seen so far; events at or below the mark never re-fire.
//
// The detector trusts the feed's newest-first ordering and inspects only
// events[0]. An out-of-order or duplicate-timestamp event is silently
// missed.
type EdgeDetector struct {
	mu         sync.Mutex
	lastSeenTs int64
}

// NewEdgeDetector returns a detector that has seen no events.
func NewEdgeDetector() *EdgeDetector {
	return &EdgeDetector{lastSeenTs: math.MinInt64}
}

// Observe inspects the snapshot's assumed-latest event. It returns the event
// exactly once when its timestamp exceeds the high-water-mark, advancing the
// mark; otherwise nil. An empty event list returns nil without changing
// state.
func (d *EdgeDetector) Observe(snapshot *models.Snapshot) *models.Event {
	if snapshot == nil || len(snapshot.Events) == 0 {
		return nil
	}

	latest := snapshot.Events[0]

	d.mu.Lock()
	defer d.mu.Unlock()

	if latest.EventTs > d.lastSeenTs {
		d.lastSeenTs = latest.EventTs
		return &latest
	}
	return nil
}

// Reset clears the high-water-mark, as when switching devices. The next
// observed event fires regardless of its timestamp.
func (d *EdgeDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastSeenTs = math.MinInt64
}
