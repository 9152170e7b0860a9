package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/QuahJunJie/industrial-iot-dashboard/classify"
	"github.com/QuahJunJie/industrial-iot-dashboard/dashboard"
	"github.com/QuahJunJie/industrial-iot-dashboard/database"
	"github.com/QuahJunJie/industrial-iot-dashboard/models"
	"github.com/QuahJunJie/industrial-iot-dashboard/poller"
	"github.com/QuahJunJie/industrial-iot-dashboard/websocket"
)

// validLimits mirrors the window sizes the upstream feed accepts.
var validLimits = map[int]bool{30: true, 60: true, 120: true}

// Handler contains all the dependencies needed for HTTP handlers
type Handler struct {
	state *dashboard.State
	poll  *poller.Poller
	hub   *websocket.Hub
	db    *database.DB // nil when the archive is disabled
}

// New creates a new handler instance
func New(state *dashboard.State, poll *poller.Poller, hub *websocket.Hub, db *database.DB) *Handler {
	return &Handler{
		state: state,
		poll:  poll,
		hub:   hub,
		db:    db,
	}
}

// GetSnapshot returns the last accepted snapshot plus session flags.
func (h *Handler) GetSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"snapshot": h.state.Snapshot(),
		"session":  h.poll.Session(),
	})
}

// GetTelemetry returns the telemetry window, oldest first.
func (h *Handler) GetTelemetry(c *gin.Context) {
	snapshot := h.state.Snapshot()
	if snapshot == nil {
		c.JSON(http.StatusOK, gin.H{"telemetry": []models.TelemetryReading{}, "count": 0})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"telemetry": snapshot.Telemetry,
		"count":     len(snapshot.Telemetry),
	})
}

// GetEvents returns the event window from the current snapshot, newest
// first.
func (h *Handler) GetEvents(c *gin.Context) {
	snapshot := h.state.Snapshot()
	if snapshot == nil {
		c.JSON(http.StatusOK, gin.H{"events": []models.Event{}, "count": 0})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": snapshot.Events,
		"count":  len(snapshot.Events),
	})
}

// GetStatus returns the derived read model: classification of the latest
// reading, KPI deltas, session flags and any pending one-shot alert.
func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    h.state.Status(),
		"session":   h.poll.Session(),
		"new_alert": h.state.NewAlert(),
	})
}

// DismissAlert acknowledges the pending one-shot alert.
func (h *Handler) DismissAlert(c *gin.Context) {
	h.state.ClearNewAlert()
	c.JSON(http.StatusOK, gin.H{
		"message": "Alert dismissed",
	})
}

// RefreshNow triggers a manual out-of-schedule fetch.
func (h *Handler) RefreshNow(c *gin.Context) {
	h.poll.Refresh()
	c.JSON(http.StatusAccepted, gin.H{
		"message": "Refresh triggered",
	})
}

// UpdateConfig swaps the polled device feed. A device change resets the
// alert edge detector so the new device's first event still fires.
func (h *Handler) UpdateConfig(c *gin.Context) {
	var req struct {
		BaseURL  string `json:"apiBaseUrl" binding:"required"`
		DeviceID string `json:"deviceId" binding:"required"`
		Limit    int    `json:"limit" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if !validLimits[req.Limit] {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid limit: must be 30, 60 or 120",
		})
		return
	}

	previous := h.poll.Config()
	cfg := models.APIConfig{BaseURL: req.BaseURL, DeviceID: req.DeviceID, Limit: req.Limit}
	if cfg.DeviceID != previous.DeviceID {
		h.state.Reset()
	}
	h.poll.SetConfig(cfg)

	c.JSON(http.StatusOK, gin.H{
		"message": "Config updated",
		"config":  cfg,
	})
}

// UpdateSession toggles auto-refresh and the refresh interval.
func (h *Handler) UpdateSession(c *gin.Context) {
	var req struct {
		AutoRefresh *bool `json:"auto_refresh"`
		IntervalSec *int  `json:"refresh_interval_seconds"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.IntervalSec != nil {
		if *req.IntervalSec <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid refresh interval",
			})
			return
		}
		h.poll.SetInterval(time.Duration(*req.IntervalSec) * time.Second)
	}
	if req.AutoRefresh != nil {
		h.poll.SetAutoRefresh(*req.AutoRefresh)
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Session updated",
		"session": h.poll.Session(),
	})
}

// GetThresholds retrieves the current classification thresholds.
func (h *Handler) GetThresholds(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"thresholds": h.state.Thresholds(),
	})
}

// UpdateThresholds replaces the classification thresholds.
func (h *Handler) UpdateThresholds(c *gin.Context) {
	var thresholds classify.Thresholds
	if err := c.ShouldBindJSON(&thresholds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid threshold data",
			"details": err.Error(),
		})
		return
	}

	if !thresholds.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid thresholds: critical must exceed warning, distance critical must be below distance warning",
		})
		return
	}

	h.state.SetThresholds(thresholds)

	c.JSON(http.StatusOK, gin.H{
		"message":    "Thresholds updated successfully",
		"thresholds": thresholds,
	})
}

// GetAlerts retrieves unacknowledged alerts from the archive.
func (h *Handler) GetAlerts(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Alert archive is not configured",
		})
		return
	}

	alerts, err := h.db.GetUnacknowledgedAlerts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve alerts",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// AcknowledgeAlert acknowledges a specific archived alert.
func (h *Handler) AcknowledgeAlert(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Alert archive is not configured",
		})
		return
	}

	alertID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid alert ID",
		})
		return
	}

	if err := h.db.AcknowledgeAlert(alertID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to acknowledge alert",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Alert acknowledged successfully",
		"alert_id": alertID,
	})
}

// GetArchivedEvents retrieves events from the archive, reaching past the
// feed's in-memory window.
func (h *Handler) GetArchivedEvents(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Alert archive is not configured",
		})
		return
	}

	limit := 50
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

	events, err := h.db.GetRecentEvents(limit, c.Query("device_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve archived events",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}

// GetEventStats aggregates archived events over a time window.
func (h *Handler) GetEventStats(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Alert archive is not configured",
		})
		return
	}

	deviceID := c.Query("device_id")
	sinceParam := c.DefaultQuery("since", "24h")

	var since time.Time
	switch sinceParam {
	case "1h":
		since = time.Now().Add(-1 * time.Hour)
	case "24h":
		since = time.Now().Add(-24 * time.Hour)
	case "7d":
		since = time.Now().Add(-7 * 24 * time.Hour)
	case "30d":
		since = time.Now().Add(-30 * 24 * time.Hour)
	default:
		if duration, err := time.ParseDuration(sinceParam); err == nil {
			since = time.Now().Add(-duration)
		} else {
			since = time.Now().Add(-24 * time.Hour)
		}
	}

	stats, err := h.db.GetEventStats(deviceID, since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve event statistics",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats": stats,
		"period": gin.H{
			"since":    since.Format(time.RFC3339),
			"duration": sinceParam,
		},
	})
}

// GetSystemHealth returns overall system health information
func (h *Handler) GetSystemHealth(c *gin.Context) {
	session := h.poll.Session()

	health := gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"upstream": gin.H{
			"connected":    session.IsConnected,
			"last_updated": session.LastUpdated,
			"error":        session.Error,
		},
		"websocket": gin.H{
			"connected_clients": h.hub.GetClientCount(),
		},
		"archive": gin.H{
			"enabled": h.db != nil,
		},
		"thresholds": h.state.Thresholds(),
	}

	if !session.IsConnected {
		health["status"] = "degraded"
	}

	c.JSON(http.StatusOK, health)
}

// WebSocketEndpoint handles WebSocket connections
func (h *Handler) WebSocketEndpoint(c *gin.Context) {
	h.hub.HandleWebSocket(c.Writer, c.Request)
}
