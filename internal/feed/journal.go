package feed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sirupsen/logrus"
)

// TickRecord is the journal wire format for one accepted tick.
type TickRecord struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Volume int64   `json:"volume"`
	Time   string  `json:"time"`
}

// Journal archives accepted ticks to Kafka. It is a side channel off the
// ingestion hot path: produce is async and delivery failures are only
// logged via the delivery-report loop.
type Journal struct {
	producer *kafka.Producer
	topic    string
	logger   *logrus.Logger
}

// NewJournal creates a Kafka producer for the tick journal.
func NewJournal(broker, topic string, logger *logrus.Logger) (*Journal, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": broker,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	j := &Journal{producer: producer, topic: topic, logger: logger}
	j.startDeliveryReport()
	logger.Info("Tick journal producer initialized")
	return j, nil
}

// startDeliveryReport watches the producer's event channel and logs failed
// deliveries.
func (j *Journal) startDeliveryReport() {
	go func() {
		for e := range j.producer.Events() {
			switch ev := e.(type) {
			case *kafka.Message:
				if ev.TopicPartition.Error != nil {
					j.logger.Errorf("Tick delivery failed: %v", ev.TopicPartition.Error)
				}
			}
		}
	}()
}

// Publish enqueues one tick for delivery.
func (j *Journal) Publish(symbol string, tick Tick, now time.Time) error {
	record := TickRecord{
		Symbol: symbol,
		Price:  tick.Last,
		Open:   tick.Open,
		High:   tick.High,
		Low:    tick.Low,
		Volume: tick.Volume,
		Time:   now.UTC().Format(time.RFC3339Nano),
	}

	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal tick record: %w", err)
	}

	return j.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &j.topic, Partition: kafka.PartitionAny},
		Key:            []byte(symbol),
		Value:          value,
	}, nil)
}

// Close flushes pending messages and shuts the producer down.
func (j *Journal) Close() {
	j.producer.Flush(5000)
	j.producer.Close()
	j.logger.Info("Tick journal producer closed")
}
