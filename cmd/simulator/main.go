package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/joho/godotenv"

	"github.com/QuahJunJie/industrial-iot-dashboard/models"
)

// Simulator generates drifting Aegis-One readings and publishes them to
// Kafka for the mock feed to ingest.
type Simulator struct {
	producer  sarama.SyncProducer
	topic     string
	frequency time.Duration
	deviceID  string
	faultRate float64

	temperature float64
	vibration   float64
	distance    float64
}

// NewSimulator creates a simulator publishing to the given brokers/topic.
func NewSimulator(brokers []string, topic, deviceID string, frequency time.Duration) (*Simulator, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Retry.Backoff = 100 * time.Millisecond
	cfg.Producer.Return.Successes = true
	cfg.ClientID = fmt.Sprintf("aegis-simulator-%s", deviceID)

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %v", err)
	}

	return &Simulator{
		producer:    producer,
		topic:       topic,
		frequency:   frequency,
		deviceID:    deviceID,
		faultRate:   0.02, // 2% fault probability
		temperature: 28.0,
		vibration:   0.4,
		distance:    150.0,
	}, nil
}

// generateReading produces the next reading with realistic drift and an
// occasional injected fault.
func (s *Simulator) generateReading() models.TelemetryReading {
	s.temperature += (rand.Float64() - 0.5) * 1.0  // ±0.5 variation
	s.vibration += (rand.Float64() - 0.5) * 0.1    // ±0.05 variation
	s.distance += (rand.Float64() - 0.5) * 10.0    // ±5.0 variation

	s.temperature = clamp(s.temperature, 20.0, 34.0)
	s.vibration = clamp(s.vibration, 0.1, 1.2)
	s.distance = clamp(s.distance, 110.0, 250.0)

	temp := s.temperature
	vib := s.vibration
	dist := s.distance

	// Inject faults past the drift bounds so the feed produces events.
	if rand.Float64() < s.faultRate {
		switch rand.Intn(4) {
		case 0: // overheat
			temp = 46.0 + rand.Float64()*8.0
		case 1: // bearing vibration spike
			vib = 2.6 + rand.Float64()*0.8
		case 2: // object in the safety envelope
			dist = 15.0 + rand.Float64()*10.0
		case 3: // gradual warning drift
			temp = 36.0 + rand.Float64()*5.0
		}
	}

	return models.TelemetryReading{
		DeviceID:    s.deviceID,
		Timestamp:   time.Now().UnixMilli(),
		Temperature: temp,
		Vibration:   vib,
		Distance:    &dist,
	}
}

// publishReading sends a reading to Kafka keyed by device id.
func (s *Simulator) publishReading(reading models.TelemetryReading) error {
	payload, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %v", err)
	}

	message := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(reading.DeviceID),
		Value: sarama.ByteEncoder(payload),
	}

	partition, offset, err := s.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to produce message: %v", err)
	}

	log.Printf("Reading delivered to topic %s [%d] at offset %d: temp=%.2f vib=%.3f",
		s.topic, partition, offset, reading.Temperature, reading.Vibration)

	return nil
}

// Start runs the publishing loop until interrupted.
func (s *Simulator) Start() {
	log.Printf("Starting simulator for device %s, frequency: %v", s.deviceID, s.frequency)

	ticker := time.NewTicker(s.frequency)
	defer ticker.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			if err := s.publishReading(s.generateReading()); err != nil {
				log.Printf("Error publishing reading: %v", err)
			}
		case sig := <-sigChan:
			log.Printf("Received signal %v, shutting down...", sig)
			s.Close()
			return
		}
	}
}

// Close flushes and closes the producer.
func (s *Simulator) Close() {
	log.Println("Closing simulator...")
	if err := s.producer.Close(); err != nil {
		log.Printf("Error closing producer: %v", err)
	}
}

// clamp constrains a value between min and max
func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	brokers := getEnvOrDefault("KAFKA_BROKERS", "localhost:9092")
	topic := getEnvOrDefault("KAFKA_TOPIC", "aegis.telemetry")
	deviceID := getEnvOrDefault("AEGIS_DEVICE_ID", "aegis-one")

	frequencyMs, err := strconv.Atoi(getEnvOrDefault("SIMULATOR_FREQUENCY_MS", "5000"))
	if err != nil {
		log.Fatalf("Invalid simulator frequency: %v", err)
	}

	log.Printf("Configuration: brokers=%s, topic=%s, device=%s, frequency=%dms",
		brokers, topic, deviceID, frequencyMs)

	simulator, err := NewSimulator([]string{brokers}, topic, deviceID, time.Duration(frequencyMs)*time.Millisecond)
	if err != nil {
		log.Fatalf("Failed to create simulator: %v", err)
	}

	simulator.Start()
}
