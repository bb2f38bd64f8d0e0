package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaSink publishes each accepted instruction's audit line to a
// Kafka topic, keyed by side so one side's lines stay in partition
// order.
type KafkaSink struct {
	writer  *kafka.Writer
	timeout time.Duration
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
		timeout: 5 * time.Second,
	}
}

// Open is a no-op: the writer dials lazily on first write.
func (s *KafkaSink) Open() error {
	return nil
}

func (s *KafkaSink) Write(kind string, rank int, side string, price, qty float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(side),
		Value: []byte(Line(kind, rank, side, price, qty)),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
