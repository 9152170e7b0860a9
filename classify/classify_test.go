package classify

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestClassifyStatusNominal(t *testing.T) {
	thresholds := DefaultThresholds()

	assert.Equal(t, StatusRunning, ClassifyStatus(25.0, 0.5, nil, thresholds))
	assert.Equal(t, StatusRunning, ClassifyStatus(30.0, 1.0, ptr(150), thresholds))
}

func TestClassifyStatusCriticalDominates(t *testing.T) {
	thresholds := DefaultThresholds()

	// A single critical metric overrides any number of nominal ones.
	assert.Equal(t, StatusCritical, ClassifyStatus(20.0, 3.0, ptr(200), thresholds))
	assert.Equal(t, StatusCritical, ClassifyStatus(50.0, 0.2, nil, thresholds))
	assert.Equal(t, StatusCritical, ClassifyStatus(20.0, 0.2, ptr(10), thresholds))

	// Critical on one metric beats warning on another.
	assert.Equal(t, StatusCritical, ClassifyStatus(40.0, 3.0, ptr(80), thresholds))
}

func TestClassifyStatusStrictBoundaries(t *testing.T) {
	thresholds := DefaultThresholds()

	// Exactly at the warning threshold is not a warning.
	assert.Equal(t, StatusRunning, ClassifyStatus(35.0, 0.5, nil, thresholds))
	assert.Equal(t, StatusWarning, ClassifyStatus(35.1, 0.5, nil, thresholds))

	// Exactly at the critical threshold stays a warning.
	assert.Equal(t, StatusWarning, ClassifyStatus(45.0, 0.5, nil, thresholds))
	assert.Equal(t, StatusCritical, ClassifyStatus(45.1, 0.5, nil, thresholds))

	// Distance comparisons are strict too.
	assert.Equal(t, StatusRunning, ClassifyStatus(25.0, 0.5, ptr(100), thresholds))
	assert.Equal(t, StatusWarning, ClassifyStatus(25.0, 0.5, ptr(99.9), thresholds))
	assert.Equal(t, StatusWarning, ClassifyStatus(25.0, 0.5, ptr(30), thresholds))
	assert.Equal(t, StatusCritical, ClassifyStatus(25.0, 0.5, ptr(29.9), thresholds))
}

func TestClassifyStatusNaNFallsThrough(t *testing.T) {
	thresholds := DefaultThresholds()

	nan := math.NaN()
	assert.Equal(t, StatusRunning, ClassifyStatus(nan, nan, &nan, thresholds))
	assert.Equal(t, StatusRunning, ClassifyStatus(nan, 0.5, nil, thresholds))
}

func TestClassifyProximity(t *testing.T) {
	thresholds := DefaultThresholds()

	_, ok := ClassifyProximity(nil, thresholds)
	assert.False(t, ok)

	prox, ok := ClassifyProximity(ptr(25), thresholds)
	require.True(t, ok)
	assert.Equal(t, ProximityDanger, prox)

	prox, ok = ClassifyProximity(ptr(50), thresholds)
	require.True(t, ok)
	assert.Equal(t, ProximityWarning, prox)

	prox, ok = ClassifyProximity(ptr(150), thresholds)
	require.True(t, ok)
	assert.Equal(t, ProximitySafe, prox)

	// Boundaries are strict.
	prox, _ = ClassifyProximity(ptr(30), thresholds)
	assert.Equal(t, ProximityWarning, prox)
	prox, _ = ClassifyProximity(ptr(100), thresholds)
	assert.Equal(t, ProximitySafe, prox)
}

func TestBuildAlertMessagesOrderAndFormat(t *testing.T) {
	thresholds := DefaultThresholds()

	alerts := BuildAlertMessages(48.0, 3.0, ptr(25), thresholds)
	require.Len(t, alerts, 3)
	assert.Equal(t, "TEMP_CRIT 48.00°C > 45.00°C", alerts[0])
	assert.Equal(t, "VIB_CRIT 3.000mm/s > 2.500mm/s", alerts[1])
	assert.Equal(t, "PROX_CRIT 25.0cm < 30.0cm", alerts[2])
}

func TestBuildAlertMessagesWarnings(t *testing.T) {
	thresholds := DefaultThresholds()

	alerts := BuildAlertMessages(38.5, 1.75, ptr(80), thresholds)
	require.Len(t, alerts, 3)
	assert.Equal(t, "TEMP_WARN 38.50°C > 35.00°C", alerts[0])
	assert.Equal(t, "VIB_WARN 1.750mm/s > 1.500mm/s", alerts[1])
	assert.Equal(t, "PROX_WARN 80.0cm < 100.0cm", alerts[2])
}

func TestBuildAlertMessagesNominal(t *testing.T) {
	thresholds := DefaultThresholds()

	assert.Empty(t, BuildAlertMessages(25.0, 0.5, ptr(150), thresholds))
	assert.Empty(t, BuildAlertMessages(25.0, 0.5, nil, thresholds))
}

func TestBuildAlertMessagesNoDistance(t *testing.T) {
	thresholds := DefaultThresholds()

	alerts := BuildAlertMessages(48.0, 0.5, nil, thresholds)
	require.Len(t, alerts, 1)
	assert.Equal(t, "TEMP_CRIT 48.00°C > 45.00°C", alerts[0])
}

func TestSeverity(t *testing.T) {
	assert.Equal(t, "CRITICAL", Severity(StatusCritical))
	assert.Equal(t, "WARNING", Severity(StatusWarning))
	assert.Equal(t, "INFO", Severity(StatusRunning))
	assert.Equal(t, "INFO", Severity(StatusStopped))
}

func TestThresholdsValid(t *testing.T) {
	assert.True(t, DefaultThresholds().Valid())

	bad := DefaultThresholds()
	bad.TempCritical = bad.TempWarning
	assert.False(t, bad.Valid())

	bad = DefaultThresholds()
	bad.DistanceCritCm = 200
	assert.False(t, bad.Valid())
}
