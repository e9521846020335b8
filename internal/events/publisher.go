package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/main4/cmms/pkg/config"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EntityEvent describes one mutation of a tenant-scoped entity, published
// for downstream audit consumers.
type EntityEvent struct {
	Entity    string    `json:"entity"`
	Operation string    `json:"operation"` // "created", "updated", "deleted"
	RecordID  uint      `json:"record_id"`
	TenantID  uint      `json:"tenant_id"`
	UserID    uint      `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// messageWriter is the slice of kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes entity events to Kafka through a buffered channel and a
// small worker pool, so handlers never block on the broker.
type Publisher struct {
	writer       messageWriter
	eventChan    chan EntityEvent
	workerCount  int
	shutdownChan chan struct{}
	wg           sync.WaitGroup
	log          *zap.Logger
}

var publisher *Publisher

// Init starts the global publisher. An empty broker leaves publishing
// disabled; Publish becomes a no-op.
func Init(conf *config.KafkaConfig, log *zap.Logger) {
	if conf.Broker == "" {
		log.Info("Kafka broker not configured, entity events disabled")
		return
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(conf.Broker),
		Topic:        conf.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}

	publisher = &Publisher{
		writer:       writer,
		eventChan:    make(chan EntityEvent, 1000),
		workerCount:  4,
		shutdownChan: make(chan struct{}),
		log:          log,
	}
	publisher.startWorkers()

	log.Info("Kafka entity event publisher started",
		zap.String("broker", conf.Broker),
		zap.String("topic", conf.Topic),
		zap.Int("workers", publisher.workerCount))
}

func (p *Publisher) startWorkers() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *Publisher) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case event := <-p.eventChan:
			if err := p.send(event); err != nil {
				p.log.Warn("Failed to publish entity event",
					zap.Int("worker", id),
					zap.String("entity", event.Entity),
					zap.Error(err))
			}
		case <-p.shutdownChan:
			return
		}
	}
}

func (p *Publisher) send(event EntityEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(fmt.Sprintf("%s:%d", event.Entity, event.TenantID)),
		Value: data,
	})
}

// Publish queues an entity event without blocking. Events are dropped when
// the queue is full or publishing is disabled.
func Publish(entity, operation string, recordID, tenantID, userID uint) {
	if publisher == nil {
		return
	}

	event := EntityEvent{
		Entity:    entity,
		Operation: operation,
		RecordID:  recordID,
		TenantID:  tenantID,
		UserID:    userID,
		Timestamp: time.Now(),
	}

	select {
	case publisher.eventChan <- event:
	default:
		publisher.log.Warn("Entity event queue full, event dropped",
			zap.String("entity", entity),
			zap.String("operation", operation))
	}
}

// Shutdown stops the workers, drains events still queued and closes the
// writer. Runs after the HTTP server and background jobs have stopped, so
// nothing publishes concurrently.
func Shutdown() {
	if publisher == nil {
		return
	}
	close(publisher.shutdownChan)
	publisher.wg.Wait()

	for {
		select {
		case event := <-publisher.eventChan:
			if err := publisher.send(event); err != nil {
				publisher.log.Warn("Failed to publish entity event during shutdown",
					zap.String("entity", event.Entity),
					zap.Error(err))
			}
		default:
			if err := publisher.writer.Close(); err != nil {
				publisher.log.Warn("Failed to close Kafka writer", zap.Error(err))
			}
			return
		}
	}
}
