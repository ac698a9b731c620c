package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"codejudge/internal/common/mq"
	"codejudge/internal/judge/model"
)

// SolvedEventPublisher announces first solves to downstream consumers.
type SolvedEventPublisher interface {
	PublishSolved(ctx context.Context, event model.SolvedEvent) error
}

// MQSolvedEventPublisher publishes solved events to a message queue.
type MQSolvedEventPublisher struct {
	producer mq.Producer
	topic    string
}

func NewMQSolvedEventPublisher(producer mq.Producer, topic string) *MQSolvedEventPublisher {
	return &MQSolvedEventPublisher{producer: producer, topic: topic}
}

func (p *MQSolvedEventPublisher) PublishSolved(ctx context.Context, event model.SolvedEvent) error {
	if p == nil || p.producer == nil {
		return errors.New("solved event producer is not configured")
	}
	if p.topic == "" {
		return errors.New("solved event topic is required")
	}
	if event.UserID == "" || event.ProblemID == "" {
		return errors.New("solved event needs user and problem")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal solved event failed: %w", err)
	}
	message := mq.NewMessage(payload)
	// Keyed by user so one user's events stay ordered on a partition.
	message.ID = event.UserID
	message.SetHeader("event", "problem.solved")
	message.SetHeader("problem_id", event.ProblemID)
	if err := p.producer.Publish(ctx, p.topic, message); err != nil {
		return fmt.Errorf("publish solved event failed: %w", err)
	}
	return nil
}
