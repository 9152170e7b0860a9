package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/QuahJunJie/industrial-iot-dashboard/config"
	"github.com/QuahJunJie/industrial-iot-dashboard/mockfeed"
)

// The mock feed stands in for the device cloud during development: it
// serves GET /data in the upstream shape and accepts generated data via
// POST /mock-data or Kafka.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	port := os.Getenv("MOCKFEED_PORT")
	if port == "" {
		port = "8090"
	}

	log.Printf("Starting Aegis-One mock feed on port %s", port)

	store := mockfeed.NewStore()
	handler := mockfeed.NewHandler(store, cfg.Thresholds)

	// Seed a nominal window so a freshly started dashboard has data.
	seed, err := mockfeed.Scenario("normal", cfg.Upstream.DeviceID, cfg.Thresholds)
	if err != nil {
		log.Fatalf("Failed to seed feed: %v", err)
	}
	for _, reading := range seed {
		store.AddReading(reading)
	}

	// Optional Kafka ingest of simulator readings.
	var ingest *mockfeed.Ingest
	if os.Getenv("MOCKFEED_KAFKA_INGEST") == "true" {
		ingest, err = mockfeed.NewIngest(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic, store, cfg.Thresholds)
		if err != nil {
			log.Fatalf("Failed to initialize Kafka ingest: %v", err)
		}
		ingest.Start()
		defer ingest.Stop()
		log.Printf("Kafka ingest enabled, topic: %s", cfg.Kafka.Topic)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})
	router.GET("/data", handler.GetData)
	router.POST("/mock-data", handler.PostMockData)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("Mock feed listening on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down mock feed...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Mock feed stopped")
}
