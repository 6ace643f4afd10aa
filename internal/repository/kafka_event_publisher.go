package repository

import (
	"context"
	"strconv"

	"StudentDrop/internal/domain/models"
	"StudentDrop/internal/domain/repository"
)

// eventProducer is satisfied by *pkgkafka.Producer.
type eventProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaEventPublisher implements EventPublisher for Kafka. Events are keyed
// by student id so one student's events stay ordered on a partition.
type KafkaEventPublisher struct {
	producer eventProducer
	topic    string
}

// NewKafkaEventPublisher creates Kafka publisher.
func NewKafkaEventPublisher(producer eventProducer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, e *models.Event) error {
	return p.producer.Publish(ctx, p.topic, eventKey(e), e)
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func eventKey(e *models.Event) []byte {
	if e.Type == models.EventTraining {
		return []byte("training")
	}
	return []byte(strconv.FormatInt(e.StudentID, 10))
}

var _ repository.EventPublisher = (*KafkaEventPublisher)(nil)
