package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/QuahJunJie/industrial-iot-dashboard/models"
)

// DB is the optional Postgres archive of observed device events and fired
// alerts. The sync/alert core runs without it.
type DB struct {
	*sql.DB
}

// New opens and verifies a database connection.
func New(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %v", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &DB{db}, nil
}

// InsertDeviceEvent archives an event observed on the feed. Re-observing
// the same event on a later poll is a no-op.
func (db *DB) InsertDeviceEvent(event *models.Event) error {
	detailsJSON, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal event details: %v", err)
	}

	query := `
		INSERT INTO device_events (device_id, event_ts, event_type, severity, details)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (device_id, event_ts) DO NOTHING
	`

	_, err = db.Exec(query, event.DeviceID, event.EventTs, event.EventType, event.Severity, detailsJSON)
	if err != nil {
		return fmt.Errorf("failed to insert device event: %v", err)
	}

	return nil
}

// GetRecentEvents retrieves archived events, newest first.
func (db *DB) GetRecentEvents(limit int, deviceID string) ([]models.Event, error) {
	query := `
		SELECT device_id, event_ts, event_type, severity, details
		FROM device_events
		WHERE ($2 = '' OR device_id = $2)
		ORDER BY event_ts DESC
		LIMIT $1
	`

	rows, err := db.Query(query, limit, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query device events: %v", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		var detailsBytes []byte

		err := rows.Scan(&event.DeviceID, &event.EventTs, &event.EventType, &event.Severity, &detailsBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device event: %v", err)
		}

		if err := json.Unmarshal(detailsBytes, &event.Details); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event details: %v", err)
		}

		events = append(events, event)
	}

	return events, nil
}

// GetEventStats aggregates archived events for one device (or all when
// deviceID is empty) since the given time.
func (db *DB) GetEventStats(deviceID string, since time.Time) (*models.EventStats, error) {
	query := `
		SELECT
			COUNT(*) as total_events,
			COUNT(*) FILTER (WHERE severity = 'CRITICAL') as critical_events,
			COUNT(*) FILTER (WHERE severity = 'WARNING') as warning_events,
			COALESCE(AVG((details->>'temp')::float), 0) as avg_temperature,
			COALESCE(AVG((details->>'vib')::float), 0) as avg_vibration,
			MAX(to_timestamp(event_ts / 1000.0)) as last_event_time
		FROM device_events
		WHERE ($1 = '' OR device_id = $1) AND event_ts >= $2
	`

	var stats models.EventStats
	var lastEventTime sql.NullTime

	err := db.QueryRow(query, deviceID, since.UnixMilli()).Scan(
		&stats.TotalEvents, &stats.CriticalEvents, &stats.WarningEvents,
		&stats.AvgTemperature, &stats.AvgVibration, &lastEventTime)

	if err != nil {
		return nil, fmt.Errorf("failed to get event stats: %v", err)
	}

	if lastEventTime.Valid {
		stats.LastEventTime = lastEventTime.Time
	}

	if stats.TotalEvents > 0 {
		healthyEvents := stats.TotalEvents - stats.CriticalEvents
		stats.UptimePercent = float64(healthyEvents) / float64(stats.TotalEvents) * 100
	}

	return &stats, nil
}

// InsertAlert archives a fired alert.
func (db *DB) InsertAlert(alert *models.Alert) error {
	query := `
		INSERT INTO alerts (device_id, alert_type, severity, message, event_ts)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := db.Exec(query, alert.DeviceID, alert.AlertType, alert.Severity, alert.Message, alert.EventTs)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %v", err)
	}

	return nil
}

// GetUnacknowledgedAlerts retrieves alerts awaiting acknowledgement, newest
// first.
func (db *DB) GetUnacknowledgedAlerts() ([]models.Alert, error) {
	query := `
		SELECT id, device_id, alert_type, severity, message, event_ts, acknowledged, created_at, acknowledged_at
		FROM alerts
		WHERE acknowledged = false
		ORDER BY created_at DESC
		LIMIT 100
	`

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %v", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var alert models.Alert
		err := rows.Scan(&alert.ID, &alert.DeviceID, &alert.AlertType, &alert.Severity,
			&alert.Message, &alert.EventTs, &alert.Acknowledged, &alert.CreatedAt, &alert.AcknowledgedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %v", err)
		}
		alerts = append(alerts, alert)
	}

	return alerts, nil
}

// AcknowledgeAlert marks an alert as acknowledged.
func (db *DB) AcknowledgeAlert(alertID int) error {
	query := `
		UPDATE alerts
		SET acknowledged = true, acknowledged_at = NOW()
		WHERE id = $1
	`

	_, err := db.Exec(query, alertID)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert: %v", err)
	}

	return nil
}
