package mockfeed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/QuahJunJie/industrial-iot-dashboard/classify"
	"github.com/QuahJunJie/industrial-iot-dashboard/models"
)

const sampleIntervalMs = 5000

// BuildEvent derives a full event record from raw readings: severity and
// alert strings come from the canonical classifier, detection metadata is
// synthesized the way the device firmware reports it.
func BuildEvent(deviceID string, eventTs int64, temp, vib float64, distance *float64, t classify.Thresholds) models.Event {
	status := classify.ClassifyStatus(temp, vib, distance, t)
	severity := classify.Severity(status)
	latency := rand.Int63n(500)
	alerting := severity == "CRITICAL" || severity == "WARNING"

	return models.Event{
		DeviceID:  deviceID,
		EventTs:   eventTs,
		EventType: "ALERT",
		Severity:  severity,
		Details: models.EventDetails{
			Alerts:             classify.BuildAlertMessages(temp, vib, distance, t),
			Temperature:        temp,
			Vibration:          vib,
			Distance:           distance,
			DetectionLatencyMs: &latency,
			SampleIntervalMs:   sampleIntervalMs,
			TP:                 alerting,
		},
	}
}

// GenerateBatch produces count readings spaced sampleIntervalMs apart and
// ending now, each jittered ±10% around the base values.
func GenerateBatch(base models.TelemetryReading, count int, t classify.Thresholds) []models.TelemetryReading {
	now := time.Now().UnixMilli()
	readings := make([]models.TelemetryReading, 0, count)

	for i := 0; i < count; i++ {
		temp := base.Temperature * (1 + variance())
		vib := base.Vibration * (1 + variance())
		if vib < 0 {
			vib = 0
		}
		var distance *float64
		if base.Distance != nil {
			d := *base.Distance * (1 + variance())
			distance = &d
		}

		readings = append(readings, models.TelemetryReading{
			DeviceID:    base.DeviceID,
			Timestamp:   now - int64(count-i-1)*sampleIntervalMs,
			Temperature: temp,
			Vibration:   vib,
			Distance:    distance,
			Status:      string(classify.ClassifyStatus(temp, vib, distance, t)),
		})
	}

	return readings
}

// Scenario produces a canned sequence of readings: "normal" holds nominal
// values, "warning" ramps into the warning band, "critical" spikes every
// metric past its critical limit.
func Scenario(name, deviceID string, t classify.Thresholds) ([]models.TelemetryReading, error) {
	now := time.Now().UnixMilli()
	var readings []models.TelemetryReading

	switch name {
	case "normal":
		for i := 0; i < 10; i++ {
			d := 150 + rand.Float64()*50
			temp := 25 + rand.Float64()*5
			vib := 0.3 + rand.Float64()*0.3
			readings = append(readings, models.TelemetryReading{
				DeviceID:    deviceID,
				Timestamp:   now - int64(9-i)*sampleIntervalMs,
				Temperature: temp,
				Vibration:   vib,
				Distance:    &d,
				Status:      string(classify.ClassifyStatus(temp, vib, &d, t)),
			})
		}

	case "warning":
		for i := 0; i < 10; i++ {
			progress := float64(i) / 10
			temp := 25 + progress*15  // 25°C → 40°C
			vib := 0.5 + progress*1.2 // 0.5 → 1.7
			d := 150 - progress*70    // 150cm → 80cm
			readings = append(readings, models.TelemetryReading{
				DeviceID:    deviceID,
				Timestamp:   now - int64(9-i)*sampleIntervalMs,
				Temperature: temp,
				Vibration:   vib,
				Distance:    &d,
				Status:      string(classify.ClassifyStatus(temp, vib, &d, t)),
			})
		}

	case "critical":
		for i := 0; i < 5; i++ {
			temp := 48 + rand.Float64()*5
			vib := 2.8 + rand.Float64()*0.5
			d := 20 + rand.Float64()*10
			readings = append(readings, models.TelemetryReading{
				DeviceID:    deviceID,
				Timestamp:   now - int64(4-i)*3000,
				Temperature: temp,
				Vibration:   vib,
				Distance:    &d,
				Status:      string(classify.ClassifyStatus(temp, vib, &d, t)),
			})
		}

	default:
		return nil, fmt.Errorf("unknown scenario: %s", name)
	}

	return readings, nil
}

// variance returns a jitter factor in [-0.1, 0.1).
func variance() float64 {
	return (rand.Float64() - 0.5) * 0.2
}
