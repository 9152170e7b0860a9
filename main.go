package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/QuahJunJie/industrial-iot-dashboard/config"
	"github.com/QuahJunJie/industrial-iot-dashboard/dashboard"
	"github.com/QuahJunJie/industrial-iot-dashboard/database"
	"github.com/QuahJunJie/industrial-iot-dashboard/handlers"
	"github.com/QuahJunJie/industrial-iot-dashboard/models"
	"github.com/QuahJunJie/industrial-iot-dashboard/poller"
	"github.com/QuahJunJie/industrial-iot-dashboard/websocket"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting Aegis-One Dashboard Server on port %s", cfg.Server.Port)

	// Initialize the optional alert archive
	var db *database.DB
	if cfg.Database.URL != "" {
		db, err = database.New(cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		log.Println("Alert archive connected")
	} else {
		log.Println("DATABASE_URL not set, alert archive disabled")
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(cfg.Server.AllowOrigins)
	go wsHub.Run()

	log.Println("WebSocket hub started")

	// Dashboard state with alert fan-out: archive the fired event and push
	// it to connected clients.
	alertCallback := func(event *models.Event) {
		if db != nil {
			if err := db.InsertDeviceEvent(event); err != nil {
				log.Printf("Failed to archive device event: %v", err)
			}
			archived := &models.Alert{
				DeviceID:  event.DeviceID,
				AlertType: event.EventType,
				Severity:  event.Severity,
				Message:   strings.Join(event.Details.Alerts, "; "),
				EventTs:   event.EventTs,
			}
			if err := db.InsertAlert(archived); err != nil {
				log.Printf("Failed to archive alert: %v", err)
			}
		}
		wsHub.BroadcastAlert(event)
	}

	state := dashboard.New(cfg.Thresholds, alertCallback)

	// Polling client: edge detection runs inside state.Apply before the
	// snapshot reaches any other consumer.
	apiConfig := models.APIConfig{
		BaseURL:  cfg.Upstream.BaseURL,
		DeviceID: cfg.Upstream.DeviceID,
		Limit:    cfg.Upstream.Limit,
	}
	interval := time.Duration(cfg.Upstream.RefreshIntervalSec) * time.Second

	poll := poller.New(apiConfig, interval, func(snapshot *models.Snapshot) {
		state.Apply(snapshot)
		wsHub.BroadcastSnapshot(state.Snapshot())
	})
	if cfg.Upstream.RequestTimeoutSec > 0 {
		poll.SetTimeout(time.Duration(cfg.Upstream.RequestTimeoutSec) * time.Second)
	}
	if cfg.Upstream.AuthToken != "" {
		poll.SetAuthToken(cfg.Upstream.AuthToken)
	}
	poll.Start()
	defer poll.Stop()

	// Periodic statistics broadcast
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			stats := map[string]interface{}{
				"session":           poll.Session(),
				"connected_clients": wsHub.GetClientCount(),
				"timestamp":         time.Now(),
			}
			if db != nil {
				if archived, err := db.GetEventStats("", time.Now().Add(-1*time.Hour)); err == nil {
					stats["archive_stats"] = archived
				} else {
					log.Printf("Failed to get archive stats: %v", err)
				}
			}
			wsHub.BroadcastStats(stats)
		}
	}()

	// Initialize HTTP handlers
	handler := handlers.New(state, poll, wsHub, db)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	router.Use(func(ctx *gin.Context) {
		c.HandlerFunc(ctx.Writer, ctx.Request)
		if ctx.Request.Method == "OPTIONS" {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}
		ctx.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"version":   "1.0.0",
		})
	})

	// API routes
	api := router.Group("/api")
	{
		// Read model
		api.GET("/snapshot", handler.GetSnapshot)
		api.GET("/telemetry", handler.GetTelemetry)
		api.GET("/events", handler.GetEvents)
		api.GET("/status", handler.GetStatus)

		// Polling session
		api.POST("/refresh", handler.RefreshNow)
		api.PUT("/config", handler.UpdateConfig)
		api.PUT("/session", handler.UpdateSession)

		// Thresholds
		api.GET("/thresholds", handler.GetThresholds)
		api.PUT("/thresholds", handler.UpdateThresholds)

		// Alerts
		api.POST("/alerts/dismiss", handler.DismissAlert)
		api.GET("/alerts", handler.GetAlerts)
		api.PUT("/alerts/:id/acknowledge", handler.AcknowledgeAlert)
		api.GET("/events/archive", handler.GetArchivedEvents)
		api.GET("/events/stats", handler.GetEventStats)

		// System health
		api.GET("/system/health", handler.GetSystemHealth)
	}

	// WebSocket endpoint
	router.GET("/ws", handler.WebSocketEndpoint)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("HTTP server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	poll.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
