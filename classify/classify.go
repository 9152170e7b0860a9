package classify

import (
	"fmt"
)

// Status is the operating state derived from raw sensor values.
type Status string

const (
	StatusRunning  Status = "RUNNING"
	StatusWarning  Status = "WARNING"
	StatusCritical Status = "CRITICAL"
	StatusStopped  Status = "STOPPED"
)

// Proximity is the object-distance classification for devices with the
// ultrasonic sensor fitted.
type Proximity string

const (
	ProximitySafe    Proximity = "SAFE"
	ProximityWarning Proximity = "WARNING"
	ProximityDanger  Proximity = "DANGER"
)

// Thresholds holds the configurable alert limits. Values come from
// configuration; the zero value is not usable, use DefaultThresholds.
type Thresholds struct {
	TempWarning    float64 `json:"temp_warning"`
	TempCritical   float64 `json:"temp_critical"`
	VibWarning     float64 `json:"vib_warning"`
	VibCritical    float64 `json:"vib_critical"`
	DistanceWarnCm float64 `json:"distance_warning_cm"`
	DistanceCritCm float64 `json:"distance_critical_cm"`
}

// DefaultThresholds returns the stock Aegis-One limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TempWarning:    35.0,
		TempCritical:   45.0,
		VibWarning:     1.5,
		VibCritical:    2.5,
		DistanceWarnCm: 100.0,
		DistanceCritCm: 30.0,
	}
}

// Valid reports whether the thresholds are internally consistent.
func (t Thresholds) Valid() bool {
	return t.TempCritical > t.TempWarning &&
		t.VibCritical > t.VibWarning &&
		t.DistanceCritCm < t.DistanceWarnCm &&
		t.DistanceCritCm > 0
}

// ClassifyStatus maps raw readings to an operating status. All comparisons
// are strict; a single critical metric dominates any number of warnings.
// distance is nil for devices without the proximity sensor. NaN inputs fail
// every comparison and fall through to RUNNING.
func ClassifyStatus(temp, vib float64, distance *float64, t Thresholds) Status {
	if temp > t.TempCritical || vib > t.VibCritical || (distance != nil && *distance < t.DistanceCritCm) {
		return StatusCritical
	}
	if temp > t.TempWarning || vib > t.VibWarning || (distance != nil && *distance < t.DistanceWarnCm) {
		return StatusWarning
	}
	return StatusRunning
}

// ClassifyProximity maps a distance reading to a proximity band. It returns
// ok=false when the device has no distance reading.
func ClassifyProximity(distance *float64, t Thresholds) (Proximity, bool) {
	if distance == nil {
		return "", false
	}
	switch {
	case *distance < t.DistanceCritCm:
		return ProximityDanger, true
	case *distance < t.DistanceWarnCm:
		return ProximityWarning, true
	default:
		return ProximitySafe, true
	}
}

// Severity maps a status to the event severity vocabulary used by the feed.
func Severity(s Status) string {
	switch s {
	case StatusCritical:
		return "CRITICAL"
	case StatusWarning:
		return "WARNING"
	default:
		return "INFO"
	}
}

// BuildAlertMessages produces the human-readable alert strings for a
// reading, temperature first, then vibration, then proximity. Each message
// embeds the measured value, the comparison operator and the threshold at
// the unit's natural precision (temp 2dp, vib 3dp, distance 1dp). A nominal
// reading produces no messages.
func BuildAlertMessages(temp, vib float64, distance *float64, t Thresholds) []string {
	var alerts []string

	if temp > t.TempCritical {
		alerts = append(alerts, fmt.Sprintf("TEMP_CRIT %.2f°C > %.2f°C", temp, t.TempCritical))
	} else if temp > t.TempWarning {
		alerts = append(alerts, fmt.Sprintf("TEMP_WARN %.2f°C > %.2f°C", temp, t.TempWarning))
	}

	if vib > t.VibCritical {
		alerts = append(alerts, fmt.Sprintf("VIB_CRIT %.3fmm/s > %.3fmm/s", vib, t.VibCritical))
	} else if vib > t.VibWarning {
		alerts = append(alerts, fmt.Sprintf("VIB_WARN %.3fmm/s > %.3fmm/s", vib, t.VibWarning))
	}

	if distance != nil {
		if *distance < t.DistanceCritCm {
			alerts = append(alerts, fmt.Sprintf("PROX_CRIT %.1fcm < %.1fcm", *distance, t.DistanceCritCm))
		} else if *distance < t.DistanceWarnCm {
			alerts = append(alerts, fmt.Sprintf("PROX_WARN %.1fcm < %.1fcm", *distance, t.DistanceWarnCm))
		}
	}

	return alerts
}
