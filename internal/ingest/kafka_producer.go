package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/ride-hailing/internal/models"
)

// PositionUpdate is the wire form of a user position report flowing through
// Kafka to the directory consumer.
type PositionUpdate struct {
	Username string       `json:"username"`
	Position models.Coord `json:"position"`
	SentAt   time.Time    `json:"sent_at"`
}

type KafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.LeastBytes{}})
	return &KafkaProducer{writer: w}
}

func (k *KafkaProducer) PublishPosition(username string, pos models.Coord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, _ := json.Marshal(PositionUpdate{Username: username, Position: pos, SentAt: time.Now()})
	return k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(username), Value: b})
}

func (k *KafkaProducer) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
