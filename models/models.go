package models

import (
	"time"
)

// TelemetryReading is a single sensor sample as returned by the device feed.
// Field names match the upstream API exactly.
type TelemetryReading struct {
	DeviceID    string   `json:"deviceId"`
	Timestamp   int64    `json:"ts"` // epoch milliseconds
	Temperature float64  `json:"temp"`
	Vibration   float64  `json:"vib"`
	Distance    *float64 `json:"distance,omitempty"` // cm, absent on devices without the sensor
	Status      string   `json:"status"`
}

// EventDetails carries the detection metadata attached to a device event.
type EventDetails struct {
	Alerts             []string `json:"alerts"`
	Temperature        float64  `json:"temp"`
	Vibration          float64  `json:"vib"`
	Distance           *float64 `json:"distance,omitempty"`
	DetectionLatencyMs *int64   `json:"detectionLatencyMs"`
	DriftPct           *float64 `json:"driftPct"`
	SampleIntervalMs   int64    `json:"sampleIntervalMs"`
	BaselineVib        *float64 `json:"baselineVib"`
	TP                 bool     `json:"tp"`
	FP                 bool     `json:"fp"`
	TN                 bool     `json:"tn"`
	FN                 bool     `json:"fn"`
}

// Event is an alert event emitted by the device. The feed returns events
// newest-first; consumers that derive "latest" rely on index 0.
type Event struct {
	DeviceID  string       `json:"deviceId"`
	EventTs   int64        `json:"eventTs"` // epoch milliseconds
	EventType string       `json:"eventType"`
	Severity  string       `json:"severity"` // CRITICAL | WARNING | INFO
	Details   EventDetails `json:"details"`
}

// Snapshot is one fetch cycle's full telemetry+events payload.
type Snapshot struct {
	DeviceID  string             `json:"deviceId"`
	Telemetry []TelemetryReading `json:"telemetry"`
	Events    []Event            `json:"events"`
}

// APIConfig identifies the upstream feed to poll.
type APIConfig struct {
	BaseURL  string `json:"apiBaseUrl"`
	DeviceID string `json:"deviceId"`
	Limit    int    `json:"limit"` // 30, 60 or 120
}

// SessionState mirrors the polling session flags exposed to the UI.
type SessionState struct {
	IsLoading   bool       `json:"is_loading"`
	IsConnected bool       `json:"is_connected"`
	Error       string     `json:"error,omitempty"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
	AutoRefresh bool       `json:"auto_refresh"`
	IntervalSec int        `json:"refresh_interval_seconds"`
}

// Alert is a fired alert as stored in the archive.
type Alert struct {
	ID             int        `json:"id" db:"id"`
	DeviceID       string     `json:"device_id" db:"device_id"`
	AlertType      string     `json:"alert_type" db:"alert_type"`
	Severity       string     `json:"severity" db:"severity"`
	Message        string     `json:"message" db:"message"`
	EventTs        int64      `json:"event_ts" db:"event_ts"`
	Acknowledged   bool       `json:"acknowledged" db:"acknowledged"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at" db:"acknowledged_at"`
}

// WebSocketMessage is the envelope pushed to dashboard clients.
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// EventStats is the aggregate view over archived events.
type EventStats struct {
	TotalEvents    int64     `json:"total_events"`
	CriticalEvents int64     `json:"critical_events"`
	WarningEvents  int64     `json:"warning_events"`
	AvgTemperature float64   `json:"avg_temperature"`
	AvgVibration   float64   `json:"avg_vibration"`
	UptimePercent  float64   `json:"uptime_percent"`
	LastEventTime  time.Time `json:"last_event_time"`
}
