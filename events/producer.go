package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"go-storefront/models"
)

// Producer publishes order lifecycle events to Kafka. Publishing is
// best-effort: the order is already durable when an event goes out, so
// callers log failures instead of failing the request.
type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewProducer(brokers, topic string, logger *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{
		writer: writer,
		logger: logger,
	}
}

func (p *Producer) PublishOrderCreated(order *models.Order) error {
	return p.publish(TypeOrderCreated, order)
}

func (p *Producer) PublishOrderCancelled(order *models.Order) error {
	return p.publish(TypeOrderCancelled, order)
}

func (p *Producer) publish(eventType string, order *models.Order) error {
	event := OrderEvent{
		EventID:     uuid.New().String(),
		Type:        eventType,
		OrderID:     order.ID.Hex(),
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID.Hex(),
		Total:       order.Total,
		Status:      string(order.Status),
		Items:       eventItems(order),
		Timestamp:   time.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal order event", zap.Error(err))
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: payload,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish order event",
			zap.String("event_id", event.EventID),
			zap.String("type", eventType),
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
		return err
	}

	p.logger.Info("Order event published",
		zap.String("event_id", event.EventID),
		zap.String("type", eventType),
		zap.String("order_number", order.OrderNumber))
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
