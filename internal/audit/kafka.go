package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaProducer publishes audit events to a Kafka topic via franz-go.
type KafkaProducer struct {
	client *kgo.Client
	topic  string
}

// NewKafkaProducer connects to the given brokers. Returns nil if no brokers
// are configured (audit stays local-only).
func NewKafkaProducer(brokers []string, topic string) (*KafkaProducer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &KafkaProducer{client: client, topic: topic}, nil
}

// Produce delivers one event synchronously. The Worker already decouples this
// from the ledger write path, so waiting for the broker ack here is fine.
func (p *KafkaProducer) Produce(ctx context.Context, key string, payload []byte) error {
	record := &kgo.Record{Key: []byte(key), Value: payload}
	return p.client.ProduceSync(ctx, record).FirstErr()
}

// Close flushes buffered records and closes the client.
func (p *KafkaProducer) Close() {
	p.client.Close()
}

func marshalEvent(event Event) ([]byte, error) {
	return json.Marshal(event)
}
