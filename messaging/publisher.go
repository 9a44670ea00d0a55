package messaging

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gaborage/go-tables/config"
	"github.com/gaborage/go-tables/database/events"
	"github.com/gaborage/go-tables/logger"
)

const defaultPublishTimeout = 5 * time.Second

// Message is the JSON body of a forwarded data event.
type Message struct {
	ID         string    `json:"id"`
	Event      string    `json:"event"`
	Connection string    `json:"connection"`
	Table      string    `json:"table"`
	Statement  string    `json:"statement"`
	Affected   int64     `json:"affected"`
	InsertID   *int64    `json:"insertId,omitempty"`
	Error      string    `json:"error,omitempty"`
	Time       time.Time `json:"time"`
}

// EventPublisher forwards data events from an events.Bus to an exchange. It
// never cancels or fails the statement that raised the event: publish errors
// are logged.
type EventPublisher struct {
	client   Publisher
	exchange string
	prefix   string
	timeout  time.Duration
	log      logger.Logger
	now      func() time.Time
}

// NewEventPublisher creates a publisher sending to cfg.Exchange with routing
// keys under cfg.RoutingPrefix.
func NewEventPublisher(client Publisher, cfg config.AMQPConfig, log logger.Logger) *EventPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &EventPublisher{
		client:   client,
		exchange: cfg.Exchange,
		prefix:   cfg.RoutingPrefix,
		timeout:  defaultPublishTimeout,
		log:      log,
		now:      time.Now,
	}
}

// Attach subscribes the publisher to the data events of bus.
func (p *EventPublisher) Attach(bus *events.Bus) {
	for _, name := range []events.Name{events.AfterDataInsert, events.AfterDataUpdate, events.AfterDataDelete} {
		bus.On(name, p.Handle)
	}
}

// Handle publishes e. It always returns false.
func (p *EventPublisher) Handle(ctx context.Context, e *events.Event) bool {
	msg := Message{
		ID:         uuid.NewString(),
		Event:      string(e.Name),
		Connection: e.Connection,
		Table:      e.Table,
		Statement:  e.Statement,
		Affected:   e.Affected,
		Time:       p.now().UTC(),
	}
	if e.InsertID.Valid {
		id := e.InsertID.Int64
		msg.InsertID = &id
	}
	if e.Err != nil {
		msg.Error = e.Err.Error()
	}

	body, err := json.Marshal(msg)
	if err != nil {
		p.log.WithContext(ctx).Error().Err(err).Str("table", e.Table).Msg("Failed to encode data event")
		return false
	}

	pubCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	key := RoutingKey(p.prefix, e.Table, e.Name)
	err = p.client.PublishToExchange(pubCtx, PublishOptions{
		Exchange:   p.exchange,
		RoutingKey: key,
		MessageID:  msg.ID,
		Headers:    map[string]any{"x-connection": e.Connection},
	}, body)
	if err != nil {
		p.log.WithContext(ctx).Warn().
			Err(err).
			Str("exchange", p.exchange).
			Str("routing_key", key).
			Msg("Failed to forward data event")
		return false
	}

	logger.IncrementPublishCounter(ctx)
	return false
}

// RoutingKey returns "<prefix>.<table>.<insert|update|delete>". An empty prefix
// is omitted.
func RoutingKey(prefix, table string, name events.Name) string {
	op := strings.ToLower(strings.TrimPrefix(string(name), "AfterData"))
	parts := make([]string, 0, 3)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	return strings.Join(append(parts, table, op), ".")
}
