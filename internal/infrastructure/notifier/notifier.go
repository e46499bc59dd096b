package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"github.com/rabbitmq/amqp091-go"
)

// RabbitNotifier publishes notifications to a durable topic exchange.
type RabbitNotifier struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	clock    domain.Clock
	logger   *slog.Logger
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	if !strings.HasSuffix(clean, "/") {
		clean += "/"
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

func NewRabbitNotifier(amqpURL, exchange string, clock domain.Clock, logger *slog.Logger) (*RabbitNotifier, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp091.Dial(cleanURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &RabbitNotifier{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		clock:    clock,
		logger:   logger,
	}, nil
}

func (n *RabbitNotifier) Notify(ctx context.Context, userID, template string, metadata map[string]string) error {
	payload := newPayload(userID, template, metadata, n.clock.Now())
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishing
	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.channel.PublishWithContext(ctx,
		n.exchange,
		payload.routingKey(),
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    payload.SentAt,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	n.logger.Debug("notification published", "user_id", userID, "template", template, "routing_key", payload.routingKey())
	return nil
}

func (n *RabbitNotifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.channel != nil {
		n.channel.Close()
	}
	if n.conn != nil {
		n.conn.Close()
	}
}

// LogNotifier only logs. It stands in when no broker is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, userID, template string, metadata map[string]string) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification", "user_id", userID, "template", template, "metadata", metadata)
	return nil
}
