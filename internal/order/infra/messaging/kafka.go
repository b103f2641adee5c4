package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier writes the canceled order id as both key and value, so all
// events of one order land on the same partition.
type KafkaNotifier struct {
	w messageWriter
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
}

func NewKafkaNotifier(w messageWriter) *KafkaNotifier {
	return &KafkaNotifier{w: w}
}

func (n *KafkaNotifier) NotifyCancellation(ctx context.Context, orderID string) error {
	msg := kafka.Message{Key: []byte(orderID), Value: []byte(orderID), Time: time.Now().UTC()}
	if err := n.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.w.Close()
}
