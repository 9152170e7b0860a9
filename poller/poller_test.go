package poller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QuahJunJie/industrial-iot-dashboard/models"
)

func testSnapshot(deviceID string) models.Snapshot {
	return models.Snapshot{
		DeviceID: deviceID,
		Telemetry: []models.TelemetryReading{
			{DeviceID: deviceID, Timestamp: 1000, Temperature: 25.0, Vibration: 0.4, Status: "RUNNING"},
		},
		Events: []models.Event{
			{DeviceID: deviceID, EventTs: 500, EventType: "ALERT", Severity: "INFO"},
		},
	}
}

func writeSnapshot(w http.ResponseWriter, snap models.Snapshot) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

func testConfig(baseURL string) models.APIConfig {
	return models.APIConfig{BaseURL: baseURL, DeviceID: "aegis-one", Limit: 60}
}

func TestFetchSnapshotBuildsRequest(t *testing.T) {
	var gotPath, gotDevice, gotLimit, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotDevice = r.URL.Query().Get("deviceId")
		gotLimit = r.URL.Query().Get("limit")
		gotAuth = r.Header.Get("Authorization")
		writeSnapshot(w, testSnapshot("aegis-one"))
	}))
	defer server.Close()

	snap, err := FetchSnapshot(context.Background(), server.Client(), testConfig(server.URL), "secret-token")
	require.NoError(t, err)

	assert.Equal(t, "/data", gotPath)
	assert.Equal(t, "aegis-one", gotDevice)
	assert.Equal(t, "60", gotLimit)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "aegis-one", snap.DeviceID)
	require.Len(t, snap.Telemetry, 1)
	require.Len(t, snap.Events, 1)
}

func TestFetchSnapshotHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := FetchSnapshot(context.Background(), server.Client(), testConfig(server.URL), "")
	require.Error(t, err)
	assert.Equal(t, "HTTP 500: Internal Server Error", err.Error())
}

func TestFetchSnapshotMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	_, err := FetchSnapshot(context.Background(), server.Client(), testConfig(server.URL), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestRefreshUpdatesSessionAndSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeSnapshot(w, testSnapshot("aegis-one"))
	}))
	defer server.Close()

	var published atomic.Int32
	p := New(testConfig(server.URL), time.Minute, func(*models.Snapshot) {
		published.Add(1)
	})
	defer p.Stop()

	p.Refresh()

	require.Eventually(t, func() bool {
		return p.Session().IsConnected
	}, 2*time.Second, 10*time.Millisecond)

	session := p.Session()
	assert.False(t, session.IsLoading)
	assert.Empty(t, session.Error)
	require.NotNil(t, session.LastUpdated)

	snap := p.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, "aegis-one", snap.DeviceID)
	assert.Equal(t, int32(1), published.Load())
}

func TestFailureRetainsPreviousSnapshot(t *testing.T) {
	var fail atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		writeSnapshot(w, testSnapshot("aegis-one"))
	}))
	defer server.Close()

	p := New(testConfig(server.URL), time.Minute, nil)
	defer p.Stop()

	p.Refresh()
	require.Eventually(t, func() bool {
		return p.Snapshot() != nil
	}, 2*time.Second, 10*time.Millisecond)

	fail.Store(true)
	p.Refresh()
	require.Eventually(t, func() bool {
		return p.Session().Error != ""
	}, 2*time.Second, 10*time.Millisecond)

	session := p.Session()
	assert.False(t, session.IsConnected)
	assert.Equal(t, "HTTP 503: Service Unavailable", session.Error)

	// Stale-but-present data is preferred over clearing the view.
	require.NotNil(t, p.Snapshot())
	assert.Equal(t, "aegis-one", p.Snapshot().DeviceID)
}

func TestSupersededRequestIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			<-release
			writeSnapshot(w, testSnapshot("stale"))
			return
		}
		writeSnapshot(w, testSnapshot("fresh"))
	}))
	defer server.Close()

	var mu sync.Mutex
	var seen []string
	p := New(testConfig(server.URL), time.Minute, func(snap *models.Snapshot) {
		mu.Lock()
		seen = append(seen, snap.DeviceID)
		mu.Unlock()
	})
	defer p.Stop()

	p.Refresh()
	require.Eventually(t, func() bool {
		return calls.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	// Supersede the blocked request.
	p.Refresh()
	require.Eventually(t, func() bool {
		snap := p.Snapshot()
		return snap != nil && snap.DeviceID == "fresh"
	}, 2*time.Second, 10*time.Millisecond)

	// Let the superseded request resolve; its outcome must be swallowed.
	close(release)
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, "fresh", p.Snapshot().DeviceID)
	assert.Empty(t, p.Session().Error)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"fresh"}, seen)
}

func TestPublishesSnapshotsInAcceptanceOrder(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeSnapshot(w, testSnapshot("first"))
			return
		}
		writeSnapshot(w, testSnapshot("second"))
	}))
	defer server.Close()

	entered := make(chan struct{})
	gate := make(chan struct{})
	var gateOnce sync.Once
	openGate := func() { gateOnce.Do(func() { close(gate) }) }

	var mu sync.Mutex
	var seen []string
	p := New(testConfig(server.URL), time.Minute, func(snap *models.Snapshot) {
		// Stall the first delivery; the recording below stands in for the
		// downstream consumer finishing with the snapshot.
		if snap.DeviceID == "first" {
			close(entered)
			<-gate
		}
		mu.Lock()
		seen = append(seen, snap.DeviceID)
		mu.Unlock()
	})
	defer p.Stop()
	defer openGate()

	p.Refresh()
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first snapshot was never delivered")
	}

	// The first snapshot is accepted but still being delivered; nothing on
	// the poller may expose it yet.
	assert.Nil(t, p.Snapshot())

	// Trigger a second fetch while the first delivery is stalled.
	p.Refresh()
	require.Eventually(t, func() bool {
		return calls.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)

	// Give the second resolution time to queue behind the stalled delivery,
	// then let the first one finish.
	time.Sleep(50 * time.Millisecond)
	openGate()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second"}, seen)
}

func TestSetConfigInvalidatesInFlightRequest(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		device := r.URL.Query().Get("deviceId")
		if device == "aegis-one" {
			close(arrived)
			<-release
		}
		writeSnapshot(w, testSnapshot(device))
	}))
	defer server.Close()

	var mu sync.Mutex
	var seen []string
	p := New(testConfig(server.URL), time.Minute, func(snap *models.Snapshot) {
		mu.Lock()
		seen = append(seen, snap.DeviceID)
		mu.Unlock()
	})
	defer p.Stop()

	p.Refresh()
	select {
	case <-arrived:
	case <-time.After(2 * time.Second):
		t.Fatal("request never reached the feed")
	}

	// Swap devices while the old device's request is still in flight.
	cfg := testConfig(server.URL)
	cfg.DeviceID = "aegis-two"
	p.SetConfig(cfg)

	require.Eventually(t, func() bool {
		snap := p.Snapshot()
		return snap != nil && snap.DeviceID == "aegis-two"
	}, 2*time.Second, 10*time.Millisecond)

	// Let the invalidated request resolve; its outcome must never surface.
	close(release)
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, "aegis-two", p.Snapshot().DeviceID)
	assert.Empty(t, p.Session().Error)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"aegis-two"}, seen)
}

func TestRequestDeadlineFollowsInterval(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		writeSnapshot(w, testSnapshot("aegis-one"))
	}))
	defer server.Close()

	p := New(testConfig(server.URL), time.Minute, nil)
	defer p.Stop()

	// Shrinking the interval shrinks the per-request deadline with it.
	p.SetAutoRefresh(false)
	p.SetInterval(50 * time.Millisecond)

	require.Eventually(t, func() bool {
		return p.Session().Error != ""
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, p.Session().Error, "context deadline exceeded")

	// An explicit timeout overrides the interval alignment.
	p.SetTimeout(2 * time.Second)
	p.Refresh()
	require.Eventually(t, func() bool {
		return p.Snapshot() != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStopSilencesFurtherFetches(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeSnapshot(w, testSnapshot("aegis-one"))
	}))
	defer server.Close()

	p := New(testConfig(server.URL), time.Minute, nil)

	p.Refresh()
	require.Eventually(t, func() bool {
		return p.Snapshot() != nil
	}, 2*time.Second, 10*time.Millisecond)

	p.Stop()
	p.Stop() // safe to call twice

	before := calls.Load()
	p.Refresh()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, before, calls.Load())
}

func TestSetConfigRestartsWithImmediateFetch(t *testing.T) {
	var mu sync.Mutex
	var devices []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		device := r.URL.Query().Get("deviceId")
		mu.Lock()
		devices = append(devices, device)
		mu.Unlock()
		writeSnapshot(w, testSnapshot(device))
	}))
	defer server.Close()

	p := New(testConfig(server.URL), time.Minute, nil)
	defer p.Stop()

	p.Start()
	require.Eventually(t, func() bool {
		snap := p.Snapshot()
		return snap != nil && snap.DeviceID == "aegis-one"
	}, 2*time.Second, 10*time.Millisecond)

	cfg := testConfig(server.URL)
	cfg.DeviceID = "aegis-two"
	p.SetConfig(cfg)

	require.Eventually(t, func() bool {
		snap := p.Snapshot()
		return snap != nil && snap.DeviceID == "aegis-two"
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "aegis-two", devices[len(devices)-1])
}

func TestAutoRefreshTicks(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeSnapshot(w, testSnapshot("aegis-one"))
	}))
	defer server.Close()

	p := New(testConfig(server.URL), 50*time.Millisecond, nil)
	defer p.Stop()

	p.Start()
	require.Eventually(t, func() bool {
		return calls.Load() >= 3
	}, 2*time.Second, 10*time.Millisecond)
}
