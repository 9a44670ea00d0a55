// Package messaging forwards data events raised by the table layer to a RabbitMQ
// exchange. AMQPClient owns the broker connection and reconnects on its own;
// EventPublisher turns AfterDataInsert, AfterDataUpdate and AfterDataDelete
// events into JSON messages.
package messaging

import (
	"context"
)

// Publisher sends one message to an exchange.
type Publisher interface {
	// PublishToExchange publishes data and waits for the broker to confirm it.
	PublishToExchange(ctx context.Context, options PublishOptions, data []byte) error

	// IsReady returns true if the publisher is connected and can send messages.
	IsReady() bool

	// Close shuts the publisher down.
	Close() error
}

// PublishOptions contains options for publishing messages.
type PublishOptions struct {
	Exchange    string         // AMQP exchange name
	RoutingKey  string         // AMQP routing key
	Headers     map[string]any // Message headers
	ContentType string
	MessageID   string
	Mandatory   bool
}
