package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/QuahJunJie/industrial-iot-dashboard/models"
)

// SnapshotFunc receives each accepted snapshot, in order, before the
// snapshot is visible anywhere else.
type SnapshotFunc func(*models.Snapshot)

// Poller owns the fetch lifecycle against the telemetry/events endpoint:
// one immediate fetch on start, repeating fetches on a ticker, and at most
// one outstanding request at any time. A fetch triggered while another is
// in flight supersedes it; the superseded request's resolution is discarded
// without touching shared state. Accepted snapshots are delivered to the
// callback one at a time, in acceptance order.
type Poller struct {
	mu sync.Mutex
	// publishMu serializes snapshot acceptance and delivery so a slow
	// consumer cannot be overtaken by a later fetch.
	publishMu sync.Mutex

	client     *http.Client
	config     models.APIConfig
	authToken  string
	interval   time.Duration
	timeout    time.Duration // 0 aligns with the polling interval
	onSnapshot SnapshotFunc

	session  models.SessionState
	snapshot *models.Snapshot

	generation     uint64
	cancelInFlight context.CancelFunc
	loopCancel     context.CancelFunc
	stopped        bool
}

// New creates a poller for the given upstream. The per-request deadline
// defaults to the polling interval so a hung request can never outlive its
// slot.
func New(cfg models.APIConfig, interval time.Duration, onSnapshot SnapshotFunc) *Poller {
	return &Poller{
		client:     &http.Client{},
		config:     cfg,
		interval:   interval,
		onSnapshot: onSnapshot,
		session: models.SessionState{
			AutoRefresh: true,
			IntervalSec: int(interval / time.Second),
		},
	}
}

// SetTimeout overrides the per-request deadline. Zero restores the default
// of one polling interval.
func (p *Poller) SetTimeout(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = d
}

// SetAuthToken sets the bearer token attached to upstream requests. Empty
// disables the header.
func (p *Poller) SetAuthToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authToken = token
}

// Start performs an immediate fetch and begins the refresh schedule.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	log.Printf("Starting poller for device %s, interval: %v", p.config.DeviceID, p.interval)
	p.restartLocked()
}

// Stop cancels the schedule and any in-flight request. Safe to call more
// than once; no callback fires after Stop returns.
func (p *Poller) Stop() {
	// Taking publishMu first waits out any delivery in progress, so the
	// no-callback-after-Stop guarantee holds.
	p.publishMu.Lock()
	defer p.publishMu.Unlock()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	if p.loopCancel != nil {
		p.loopCancel()
		p.loopCancel = nil
	}
	if p.cancelInFlight != nil {
		p.cancelInFlight()
		p.cancelInFlight = nil
	}
	log.Printf("Poller stopped for device %s", p.config.DeviceID)
}

// Refresh triggers a single out-of-schedule fetch.
func (p *Poller) Refresh() {
	p.fetch()
}

// SetConfig swaps the upstream target and restarts the schedule from a
// fresh immediate fetch. Any in-flight request against the old config is
// superseded.
func (p *Poller) SetConfig(cfg models.APIConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || cfg == p.config {
		return
	}
	p.config = cfg
	p.restartLocked()
}

// SetInterval changes the refresh period and restarts the schedule.
func (p *Poller) SetInterval(interval time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || interval <= 0 || interval == p.interval {
		return
	}
	p.interval = interval
	p.session.IntervalSec = int(interval / time.Second)
	p.restartLocked()
}

// SetAutoRefresh toggles the repeating schedule. Disabling keeps manual
// Refresh working; enabling restarts from an immediate fetch.
func (p *Poller) SetAutoRefresh(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || enabled == p.session.AutoRefresh {
		return
	}
	p.session.AutoRefresh = enabled
	if enabled {
		p.restartLocked()
		return
	}
	if p.loopCancel != nil {
		p.loopCancel()
		p.loopCancel = nil
	}
}

// Config returns the current upstream target.
func (p *Poller) Config() models.APIConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.config
}

// Session returns a copy of the session flags.
func (p *Poller) Session() models.SessionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// Snapshot returns the last accepted snapshot, or nil before the first
// successful fetch. A failed fetch never clears it.
func (p *Poller) Snapshot() *models.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot
}

// restartLocked tears down the current schedule epoch and starts a new one.
// The previous epoch's outstanding request is invalidated here, before the
// new schedule issues its first fetch, so a response for the old config can
// never be accepted. Caller holds p.mu.
func (p *Poller) restartLocked() {
	p.generation++
	if p.cancelInFlight != nil {
		p.cancelInFlight()
		p.cancelInFlight = nil
	}
	if p.loopCancel != nil {
		p.loopCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.loopCancel = cancel

	interval := p.interval
	auto := p.session.AutoRefresh
	go p.run(ctx, interval, auto)
}

// run is one schedule epoch: immediate fetch, then ticker-driven fetches
// until the epoch is cancelled.
func (p *Poller) run(ctx context.Context, interval time.Duration, auto bool) {
	p.fetch()
	if !auto {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetch()
		}
	}
}

// fetch issues one request, superseding any request still in flight. The
// resolution of a superseded or post-Stop request is dropped on the floor.
func (p *Poller) fetch() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}

	p.generation++
	gen := p.generation

	if p.cancelInFlight != nil {
		p.cancelInFlight()
	}
	timeout := p.timeout
	if timeout <= 0 {
		timeout = p.interval
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	p.cancelInFlight = cancel

	cfg := p.config
	token := p.authToken
	p.session.IsLoading = true
	p.session.Error = ""
	p.mu.Unlock()

	go func() {
		snap, err := FetchSnapshot(ctx, p.client, cfg, token)
		cancel()

		p.publishMu.Lock()
		defer p.publishMu.Unlock()

		p.mu.Lock()
		if p.stopped || gen != p.generation {
			// Superseded or torn down; not an error, not a state change.
			p.mu.Unlock()
			return
		}

		p.session.IsLoading = false
		if err != nil {
			p.session.Error = err.Error()
			p.session.IsConnected = false
			p.mu.Unlock()
			log.Printf("Fetch failed for device %s: %v", cfg.DeviceID, err)
			return
		}
		onSnapshot := p.onSnapshot
		p.mu.Unlock()

		// The consumer observes the snapshot before any accessor on the
		// poller exposes it.
		if onSnapshot != nil {
			onSnapshot(snap)
		}

		now := time.Now()
		p.mu.Lock()
		p.session.IsConnected = true
		p.session.LastUpdated = &now
		p.snapshot = snap
		p.mu.Unlock()
	}()
}

// FetchSnapshot issues a single GET {base}/data?deviceId=&limit= request
// and decodes the response body.
func FetchSnapshot(ctx context.Context, client *http.Client, cfg models.APIConfig, token string) (*models.Snapshot, error) {
	query := url.Values{}
	query.Set("deviceId", cfg.DeviceID)
	query.Set("limit", strconv.Itoa(cfg.Limit))
	endpoint := strings.TrimRight(cfg.BaseURL, "/") + "/data?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch data: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var snap models.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode response: %v", err)
	}

	return &snap, nil
}
