package mockfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/IBM/sarama"

	"github.com/QuahJunJie/industrial-iot-dashboard/classify"
	"github.com/QuahJunJie/industrial-iot-dashboard/models"
)

// Ingest consumes simulator readings from Kafka into the feed store, so
// remote simulators can drive the mock feed the same way the generation
// API does. Readings that classify above RUNNING also produce an event,
// which is what moves the dashboard's alert detector during testing.
type Ingest struct {
	group      sarama.ConsumerGroup
	topics     []string
	store      *Store
	thresholds classify.Thresholds
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewIngest creates a consumer-group ingest for the given brokers/topic.
func NewIngest(brokers []string, groupID, topic string, store *Store, thresholds classify.Thresholds) (*Ingest, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	cfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %v", err)
	}

	if !thresholds.Valid() {
		thresholds = classify.DefaultThresholds()
	}

	return &Ingest{
		group:      group,
		topics:     []string{topic},
		store:      store,
		thresholds: thresholds,
		done:       make(chan struct{}),
	}, nil
}

// Start begins consuming in the background.
func (i *Ingest) Start() {
	log.Printf("Starting Kafka ingest, topics: %v", i.topics)

	ctx, cancel := context.WithCancel(context.Background())
	i.cancel = cancel

	go func() {
		for err := range i.group.Errors() {
			log.Printf("Kafka ingest error: %v", err)
		}
	}()

	go func() {
		defer close(i.done)
		handler := &ingestHandler{store: i.store, thresholds: i.thresholds}
		for {
			if err := i.group.Consume(ctx, i.topics, handler); err != nil {
				log.Printf("Kafka consume error: %v", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
}

// Stop shuts the ingest down and waits for the consume loop to exit.
func (i *Ingest) Stop() error {
	log.Println("Stopping Kafka ingest...")
	if i.cancel != nil {
		i.cancel()
		<-i.done
	}
	return i.group.Close()
}

// ingestHandler is the sarama consumer-group callback.
type ingestHandler struct {
	store      *Store
	thresholds classify.Thresholds
}

func (h *ingestHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *ingestHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *ingestHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		var reading models.TelemetryReading
		if err := json.Unmarshal(msg.Value, &reading); err != nil {
			log.Printf("Failed to unmarshal reading at offset %d: %v", msg.Offset, err)
			sess.MarkMessage(msg, "")
			continue
		}

		if err := validateReading(&reading); err != nil {
			log.Printf("Dropping invalid reading: %v", err)
			sess.MarkMessage(msg, "")
			continue
		}

		status := classify.ClassifyStatus(reading.Temperature, reading.Vibration, reading.Distance, h.thresholds)
		if reading.Status == "" {
			reading.Status = string(status)
		}
		h.store.AddReading(reading)

		if status != classify.StatusRunning {
			h.store.AddEvent(BuildEvent(reading.DeviceID, reading.Timestamp, reading.Temperature, reading.Vibration, reading.Distance, h.thresholds))
		}

		sess.MarkMessage(msg, "")
	}
	return nil
}

// validateReading rejects readings outside physically plausible bounds.
func validateReading(reading *models.TelemetryReading) error {
	if reading.DeviceID == "" {
		return fmt.Errorf("deviceId is required")
	}
	if reading.Timestamp <= 0 {
		return fmt.Errorf("ts is required")
	}
	if reading.Temperature < -50 || reading.Temperature > 200 {
		return fmt.Errorf("temperature out of range: %f", reading.Temperature)
	}
	if reading.Vibration < 0 || reading.Vibration > 50 {
		return fmt.Errorf("vibration out of range: %f", reading.Vibration)
	}
	if reading.Distance != nil && (*reading.Distance < 0 || *reading.Distance > 1000) {
		return fmt.Errorf("distance out of range: %f", *reading.Distance)
	}
	return nil
}
