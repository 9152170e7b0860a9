package mockfeed

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/QuahJunJie/industrial-iot-dashboard/classify"
	"github.com/QuahJunJie/industrial-iot-dashboard/models"
)

// Handler serves the mock device feed: the GET /data contract the dashboard
// polls, plus the POST /mock-data generation surface.
type Handler struct {
	store      *Store
	thresholds classify.Thresholds
}

// NewHandler creates a feed handler over the given store.
func NewHandler(store *Store, thresholds classify.Thresholds) *Handler {
	if !thresholds.Valid() {
		thresholds = classify.DefaultThresholds()
	}
	return &Handler{store: store, thresholds: thresholds}
}

// GetData serves GET /data?deviceId=&limit= in the upstream feed's shape.
func (h *Handler) GetData(c *gin.Context) {
	deviceID := c.Query("deviceId")
	if deviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "deviceId is required",
		})
		return
	}

	limit := defaultLimit
	if l := c.Query("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid limit",
			})
			return
		}
		limit = parsed
	}

	c.JSON(http.StatusOK, h.store.Snapshot(deviceID, limit))
}

// mockDataRequest is the POST /mock-data body.
type mockDataRequest struct {
	Type  string       `json:"type" binding:"required"`
	Count int          `json:"count"`
	Data  mockDataBody `json:"data"`
}

type mockDataBody struct {
	DeviceID  string   `json:"deviceId"`
	Ts        int64    `json:"ts"`
	EventTs   int64    `json:"eventTs"`
	Temp      float64  `json:"temp"`
	Vib       float64  `json:"vib"`
	Distance  *float64 `json:"distance"`
	Status    string   `json:"status"`
	EventType string   `json:"eventType"`
	Scenario  string   `json:"scenario"`
}

// PostMockData serves POST /mock-data with bodies of shape
// {type: telemetry|event|scenario, data, count}.
func (h *Handler) PostMockData(c *gin.Context) {
	var req mockDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	deviceID := req.Data.DeviceID
	if deviceID == "" {
		deviceID = "aegis-one"
	}

	switch req.Type {
	case "telemetry":
		h.createTelemetry(c, deviceID, req)

	case "event":
		h.createEvent(c, deviceID, req)

	case "scenario":
		h.createScenario(c, deviceID, req)

	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid type. Use 'telemetry', 'event', or 'scenario'",
		})
	}
}

func (h *Handler) createTelemetry(c *gin.Context, deviceID string, req mockDataRequest) {
	base := models.TelemetryReading{
		DeviceID:    deviceID,
		Timestamp:   req.Data.Ts,
		Temperature: req.Data.Temp,
		Vibration:   req.Data.Vib,
		Distance:    req.Data.Distance,
		Status:      req.Data.Status,
	}
	if base.Timestamp == 0 {
		base.Timestamp = time.Now().UnixMilli()
	}
	if base.Status == "" {
		base.Status = string(classify.ClassifyStatus(base.Temperature, base.Vibration, base.Distance, h.thresholds))
	}

	records := []models.TelemetryReading{base}
	if req.Count > 1 {
		records = GenerateBatch(base, req.Count, h.thresholds)
	}
	for _, record := range records {
		h.store.AddReading(record)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": strconv.Itoa(len(records)) + " telemetry record(s) created",
		"data":    records,
	})
}

func (h *Handler) createEvent(c *gin.Context, deviceID string, req mockDataRequest) {
	eventTs := req.Data.EventTs
	if eventTs == 0 {
		eventTs = time.Now().UnixMilli()
	}

	event := BuildEvent(deviceID, eventTs, req.Data.Temp, req.Data.Vib, req.Data.Distance, h.thresholds)
	if req.Data.EventType != "" {
		event.EventType = req.Data.EventType
	}
	h.store.AddEvent(event)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Event record created",
		"data":    event,
	})
}

func (h *Handler) createScenario(c *gin.Context, deviceID string, req mockDataRequest) {
	readings, err := Scenario(req.Data.Scenario, deviceID, h.thresholds)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	for _, reading := range readings {
		h.store.AddReading(reading)
		if reading.Status != string(classify.StatusRunning) {
			h.store.AddEvent(BuildEvent(deviceID, reading.Timestamp, reading.Temperature, reading.Vibration, reading.Distance, h.thresholds))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Scenario '" + req.Data.Scenario + "' generated",
		"data": gin.H{
			"recordsCreated": len(readings),
			"records":        readings,
		},
	})
}
