package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("event producer closed")

// Producer publishes JSON events to a single Kafka topic. Delivery is
// asynchronous; broker failures are logged by a background goroutine.
type Producer struct {
	producer sarama.AsyncProducer
	topic    string
	logger   *zap.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewProducer connects an async producer to brokers.
func NewProducer(brokers []string, topic string, logger *zap.Logger) (*Producer, error) {
	config := sarama.NewConfig()
	config.ClientID = "ranch"
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 500 * time.Millisecond
	config.Producer.Retry.Max = 5
	config.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewAsyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to start kafka producer: %w", err)
	}
	return newProducer(producer, topic, logger), nil
}

func newProducer(producer sarama.AsyncProducer, topic string, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Producer{producer: producer, topic: topic, logger: logger, done: make(chan struct{})}

	go func() {
		defer close(p.done)
		for err := range producer.Errors() {
			key, _ := err.Msg.Key.Encode()
			p.logger.Error("failed to deliver kafka message",
				zap.String("topic", err.Msg.Topic),
				zap.ByteString("key", key),
				zap.Error(err.Err))
		}
	}()

	return p
}

// Publish encodes payload as JSON and queues it under key. Messages with the
// same key land on the same partition, so events of one sale stay ordered.
func (p *Producer) Publish(key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	p.producer.Input() <- &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	}
	return nil
}

// Close flushes buffered messages and shuts the producer down.
func (p *Producer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	err := p.producer.Close()
	<-p.done
	return err
}
