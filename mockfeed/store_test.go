package mockfeed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QuahJunJie/industrial-iot-dashboard/models"
)

func TestSnapshotNewestFirst(t *testing.T) {
	store := NewStore()

	for i := 1; i <= 5; i++ {
		store.AddReading(models.TelemetryReading{
			DeviceID:  "aegis-one",
			Timestamp: int64(i * 1000),
		})
		store.AddEvent(models.Event{
			DeviceID: "aegis-one",
			EventTs:  int64(i * 1000),
		})
	}

	snap := store.Snapshot("aegis-one", 60)
	require.Len(t, snap.Telemetry, 5)
	assert.Equal(t, int64(5000), snap.Telemetry[0].Timestamp)
	assert.Equal(t, int64(1000), snap.Telemetry[4].Timestamp)

	require.Len(t, snap.Events, 5)
	assert.Equal(t, int64(5000), snap.Events[0].EventTs)
}

func TestSnapshotHonorsLimit(t *testing.T) {
	store := NewStore()

	for i := 1; i <= 100; i++ {
		store.AddReading(models.TelemetryReading{DeviceID: "aegis-one", Timestamp: int64(i)})
	}

	snap := store.Snapshot("aegis-one", 30)
	require.Len(t, snap.Telemetry, 30)
	assert.Equal(t, int64(100), snap.Telemetry[0].Timestamp)
	assert.Equal(t, int64(71), snap.Telemetry[29].Timestamp)
}

func TestSnapshotUnknownDevice(t *testing.T) {
	store := NewStore()

	snap := store.Snapshot("ghost", 60)
	assert.Equal(t, "ghost", snap.DeviceID)
	assert.Empty(t, snap.Telemetry)
	assert.Empty(t, snap.Events)
}

func TestReadingRingWrapsAround(t *testing.T) {
	ring := newReadingRing(3)

	for i := 1; i <= 5; i++ {
		ring.add(models.TelemetryReading{Timestamp: int64(i)})
	}

	items := ring.newestFirst(3)
	require.Len(t, items, 3)
	assert.Equal(t, int64(5), items[0].Timestamp)
	assert.Equal(t, int64(4), items[1].Timestamp)
	assert.Equal(t, int64(3), items[2].Timestamp)
}

func TestDevicesAreIndependent(t *testing.T) {
	store := NewStore()

	store.AddReading(models.TelemetryReading{DeviceID: "a", Timestamp: 1})
	store.AddReading(models.TelemetryReading{DeviceID: "b", Timestamp: 2})

	assert.Len(t, store.Snapshot("a", 60).Telemetry, 1)
	assert.Len(t, store.Snapshot("b", 60).Telemetry, 1)
}
