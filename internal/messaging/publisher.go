package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"table-orders/internal/logger"
	"table-orders/internal/models"
)

// Publisher publishes customer notifications to the fanout exchange. It
// satisfies the feed sink contract, so the reconciler can fan status
// changes out to external delivery channels.
type Publisher struct {
	conn   *Connection
	logger *logger.Logger
}

// NewPublisher creates a new notification publisher
func NewPublisher(conn *Connection, log *logger.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: log,
	}
}

// Deliver publishes one notification; it implements feed.Sink.
func (p *Publisher) Deliver(ctx context.Context, notification models.Notification) error {
	if p.conn.IsClosed() {
		if err := p.conn.Reconnect(); err != nil {
			return fmt.Errorf("failed to reconnect: %w", err)
		}
	}

	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = p.conn.Channel().PublishWithContext(
		ctx,
		NotificationsExchange, // exchange
		"",                    // routing key (ignored for fanout)
		false,                 // mandatory
		false,                 // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	)
	if err != nil {
		p.logger.Error("notification_publish_failed", "Failed to publish notification", "", err, map[string]interface{}{
			"order_id": notification.OrderID,
			"status":   string(notification.Status),
		})
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	p.logger.Debug("notification_published", "Published notification", "", map[string]interface{}{
		"order_id": notification.OrderID,
		"status":   string(notification.Status),
	})
	return nil
}

// Close closes the publisher
func (p *Publisher) Close() error {
	return p.conn.Close()
}
