package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"table-orders/internal/logger"
	"table-orders/internal/messaging"
	"table-orders/internal/models"
)

// Subscriber handles customer notification messages
type Subscriber struct {
	consumer *messaging.Consumer
	logger   *logger.Logger

	// Graceful shutdown
	shutdown chan os.Signal
	done     chan bool
}

// NewSubscriber creates a new notification subscriber
func NewSubscriber(consumer *messaging.Consumer, logger *logger.Logger) *Subscriber {
	return &Subscriber{
		consumer: consumer,
		logger:   logger,
		shutdown: make(chan os.Signal, 1),
		done:     make(chan bool, 1),
	}
}

// Start starts the notification subscriber
func (s *Subscriber) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()

	// Set up graceful shutdown
	signal.Notify(s.shutdown, syscall.SIGINT, syscall.SIGTERM)

	s.logger.Info("service_started", "Notification subscriber started", requestID, nil)

	// Start message consumption
	go func() {
		if err := s.consumer.StartConsuming(ctx, s.handleNotification); err != nil {
			s.logger.Error("consumer_failed", "Notification consumer failed", requestID, err, nil)
		}
		s.done <- true
	}()

	// Wait for shutdown signal or consumer to finish
	select {
	case <-s.shutdown:
		s.logger.Info("graceful_shutdown", "Received shutdown signal", requestID, nil)
		return s.gracefulShutdown(requestID)
	case <-s.done:
		return nil
	}
}

// handleNotification processes an incoming order notification
func (s *Subscriber) handleNotification(ctx context.Context, body []byte) error {
	requestID := logger.GenerateRequestID()

	var n models.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		s.logger.Error("message_parsing_failed", "Failed to parse notification message", requestID, err, nil)
		return fmt.Errorf("failed to parse notification: %w", err)
	}

	s.logger.Debug("notification_received", "Received order notification", requestID, map[string]interface{}{
		"order_number": n.OrderNumber,
		"status":       n.Status,
	})

	s.displayNotification(&n)

	return nil
}

// displayNotification displays a human-readable notification to console
func (s *Subscriber) displayNotification(n *models.Notification) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")

	// Print to console (stdout)
	fmt.Printf("[%s] %s %s\n", timestamp, n.Title, n.Body)

	// Also log as structured data
	s.logger.Info("notification_displayed", "Notification displayed to user", "", map[string]interface{}{
		"order_id":     n.OrderID,
		"order_number": n.OrderNumber,
		"status":       n.Status,
		"title":        n.Title,
	})
}

// gracefulShutdown handles graceful shutdown of the subscriber
func (s *Subscriber) gracefulShutdown(requestID string) error {
	s.logger.Info("graceful_shutdown", "Starting graceful shutdown", requestID, nil)

	if s.consumer != nil {
		s.consumer.Close()
	}

	s.logger.Info("graceful_shutdown", "Graceful shutdown completed", requestID, nil)
	return nil
}
