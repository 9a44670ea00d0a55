package messaging

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Internal interfaces and adapters to enable testing without a real broker
type amqpConnection interface {
	Channel() (amqpChannel, error)
	NotifyClose(c chan *amqp.Error) chan *amqp.Error
	Close() error
}

type amqpChannel interface {
	Confirm(noWait bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	NotifyClose(c chan *amqp.Error) chan *amqp.Error
	NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation
	Close() error
}

// Adapter to real amqp connection
type realConnection struct{ c *amqp.Connection }

func (r realConnection) Channel() (amqpChannel, error) {
	ch, err := r.c.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}
func (r realConnection) NotifyClose(c chan *amqp.Error) chan *amqp.Error { return r.c.NotifyClose(c) }
func (r realConnection) Close() error                                    { return r.c.Close() }

var (
	dialMu       sync.RWMutex
	amqpDialFunc = func(url string) (amqpConnection, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, err
		}
		return realConnection{c: conn}, nil
	}
)

func getAMQPDialFunc() func(string) (amqpConnection, error) {
	dialMu.RLock()
	defer dialMu.RUnlock()
	return amqpDialFunc
}

// setAMQPDialFunc swaps the dialer and returns a function restoring the previous one.
func setAMQPDialFunc(f func(string) (amqpConnection, error)) (restore func()) {
	dialMu.Lock()
	defer dialMu.Unlock()
	prev := amqpDialFunc
	amqpDialFunc = f
	return func() {
		dialMu.Lock()
		defer dialMu.Unlock()
		amqpDialFunc = prev
	}
}

// headerCarrier adapts AMQP headers to the OpenTelemetry propagation API.
type headerCarrier amqp.Table

func (h headerCarrier) Get(key string) string {
	if v, ok := h[key].(string); ok {
		return v
	}
	return ""
}

func (h headerCarrier) Set(key, value string) { h[key] = value }

func (h headerCarrier) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	return keys
}
