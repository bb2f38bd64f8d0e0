package broadcaster

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"depthbook/infra/outbox"
)

// Broadcaster drains the outbox to Kafka. It runs beside the
// dispatcher and never touches the book: the outbox is its only input.
type Broadcaster struct {
	box      *outbox.Outbox
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	log      logrus.FieldLogger
}

func New(
	box *outbox.Outbox,
	brokers []string,
	topic string,
	interval time.Duration,
	log logrus.FieldLogger,
) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return newWithProducer(box, producer, topic, interval, log), nil
}

func newWithProducer(
	box *outbox.Outbox,
	producer sarama.SyncProducer,
	topic string,
	interval time.Duration,
	log logrus.FieldLogger,
) *Broadcaster {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Broadcaster{
		box:      box,
		producer: producer,
		topic:    topic,
		interval: interval,
		log:      log,
	}
}

// Start launches the drain loop. It returns immediately; cancel the
// context to stop.
func (b *Broadcaster) Start(ctx context.Context) {
	b.log.Info("broadcaster started")

	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.drainOnce()
				b.cleanupOnce()
			}
		}
	}()
}

type pending struct {
	seq     uint64
	payload []byte
}

// drainOnce publishes every pending entry: earlier failures first,
// then entries new since the last tick. The batch is collected before
// any publish so a failure in this tick is retried in the next, not
// immediately.
func (b *Broadcaster) drainOnce() {
	var batch []pending
	for _, state := range []outbox.State{outbox.StateSent, outbox.StateNew} {
		err := b.box.ScanByState(state, func(seq uint64, e outbox.Entry) error {
			batch = append(batch, pending{seq: seq, payload: e.Payload})
			return nil
		})
		if err != nil {
			b.log.WithError(err).WithField("state", state).Warn("outbox scan failed")
		}
	}

	for _, p := range batch {
		if err := b.box.SetState(p.seq, outbox.StateSent); err != nil {
			b.log.WithError(err).WithField("seq", p.seq).Warn("outbox update failed")
			continue
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Value: sarama.ByteEncoder(p.payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			b.log.WithError(err).WithField("seq", p.seq).Warn("publish failed, will retry")
			continue
		}

		if err := b.box.SetState(p.seq, outbox.StateAcked); err != nil {
			b.log.WithError(err).WithField("seq", p.seq).Warn("outbox update failed")
		}
	}
}

// cleanupOnce drops entries that Kafka has acknowledged.
func (b *Broadcaster) cleanupOnce() {
	err := b.box.ScanByState(outbox.StateAcked, func(seq uint64, _ outbox.Entry) error {
		return b.box.Delete(seq)
	})
	if err != nil {
		b.log.WithError(err).Warn("outbox cleanup failed")
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
