package messaging

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/gaborage/go-tables/logger"
)

// Reconnection delays
const (
	defaultReconnectDelay = 5 * time.Second
	defaultReInitDelay    = 2 * time.Second
	defaultResendDelay    = time.Second
	defaultConfirmTimeout = 10 * time.Second
	defaultPublishRetries = 3
)

// OpenTelemetry constants
const (
	messagingTracerName     = "go-tables/messaging"
	messagingSystemRabbitMQ = "rabbitmq"
	operationPublish        = "publish"
)

var (
	// ErrNotReady is returned by PublishToExchange while no channel is open.
	ErrNotReady = errors.New("not connected to AMQP broker")
	// ErrNotConfirmed is returned when the broker nacks or never confirms a message.
	ErrNotConfirmed = errors.New("message not confirmed by AMQP broker")

	errAlreadyClosed = errors.New("AMQP client already closed")
	errShutdown      = errors.New("AMQP client is shutting down")
)

type exchangeDecl struct {
	name string
	kind string
}

// ClientOption configures an AMQPClient.
type ClientOption func(*AMQPClient)

// WithExchange declares a durable exchange every time a channel is opened.
func WithExchange(name, kind string) ClientOption {
	return func(c *AMQPClient) {
		if name != "" {
			c.exchanges = append(c.exchanges, exchangeDecl{name: name, kind: kind})
		}
	}
}

// WithDelays overrides the reconnect, channel re-init and resend delays.
func WithDelays(reconnect, reInit, resend time.Duration) ClientOption {
	return func(c *AMQPClient) {
		c.reconnectDelay = reconnect
		c.reInitDelay = reInit
		c.resendDelay = resend
	}
}

// WithConfirmTimeout bounds the wait for a publisher confirmation.
func WithConfirmTimeout(d time.Duration) ClientOption {
	return func(c *AMQPClient) { c.confirmTimeout = d }
}

// AMQPClient publishes to RabbitMQ with publisher confirms. It connects in the
// background and reconnects whenever the connection or channel drops.
type AMQPClient struct {
	m               sync.RWMutex
	brokerURL       string
	log             logger.Logger
	exchanges       []exchangeDecl
	connection      amqpConnection
	channel         amqpChannel
	done            chan struct{}
	notifyConnClose chan *amqp.Error
	notifyChanClose chan *amqp.Error
	notifyConfirm   chan amqp.Confirmation
	isReady         bool
	closed          bool

	// one publish in flight at a time so confirmations line up with messages
	publishMu sync.Mutex

	reconnectDelay time.Duration
	reInitDelay    time.Duration
	resendDelay    time.Duration
	confirmTimeout time.Duration
}

var _ Publisher = (*AMQPClient)(nil)

// NewAMQPClient creates a client and starts connecting to brokerURL.
func NewAMQPClient(brokerURL string, log logger.Logger, opts ...ClientOption) *AMQPClient {
	c := &AMQPClient{
		brokerURL:      brokerURL,
		log:            log,
		done:           make(chan struct{}),
		reconnectDelay: defaultReconnectDelay,
		reInitDelay:    defaultReInitDelay,
		resendDelay:    defaultResendDelay,
		confirmTimeout: defaultConfirmTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.handleReconnect()
	return c
}

// IsReady returns true if the client is connected and ready to send messages.
func (c *AMQPClient) IsReady() bool {
	c.m.RLock()
	defer c.m.RUnlock()
	return c.isReady
}

func (c *AMQPClient) setReady(ready bool) {
	c.m.Lock()
	c.isReady = ready
	c.m.Unlock()
}

// createPublishSpan creates and configures an OpenTelemetry span for AMQP publish operations.
func createPublishSpan(ctx context.Context, options PublishOptions, dataLen int) (context.Context, trace.Span) {
	destination := options.Exchange
	if destination == "" {
		destination = options.RoutingKey
	}

	ctx, span := otel.Tracer(messagingTracerName).Start(ctx, destination+" "+operationPublish,
		trace.WithSpanKind(trace.SpanKindProducer),
	)

	attrs := []attribute.KeyValue{
		attribute.String(string(semconv.MessagingSystemKey), messagingSystemRabbitMQ),
		semconv.MessagingOperationName(operationPublish),
		semconv.MessagingDestinationName(destination),
		semconv.MessagingMessageBodySize(dataLen),
	}
	if options.RoutingKey != "" {
		attrs = append(attrs, attribute.String("messaging.rabbitmq.routing_key", options.RoutingKey))
	}
	if options.MessageID != "" {
		attrs = append(attrs, semconv.MessagingMessageID(options.MessageID))
	}
	span.SetAttributes(attrs...)

	return ctx, span
}

// PublishToExchange publishes data and waits for the broker confirmation. A nack
// or a confirmation timeout is retried a few times before ErrNotConfirmed.
func (c *AMQPClient) PublishToExchange(ctx context.Context, options PublishOptions, data []byte) error {
	ctx, span := createPublishSpan(ctx, options, len(data))
	defer span.End()

	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	for attempt := 1; attempt <= defaultPublishRetries; attempt++ {
		c.m.RLock()
		ready, channel, confirms := c.isReady, c.channel, c.notifyConfirm
		c.m.RUnlock()
		if !ready {
			return fail(ErrNotReady)
		}

		if err := channel.PublishWithContext(ctx, options.Exchange, options.RoutingKey, options.Mandatory, false,
			c.publishing(ctx, options, data)); err != nil {
			c.log.Warn().Err(err).Int("attempt", attempt).Msg("Publish failed, retrying...")
			if err := c.wait(ctx, c.resendDelay); err != nil {
				return fail(err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			return fail(ctx.Err())
		case <-c.done:
			return fail(errShutdown)
		case confirm := <-confirms:
			if confirm.Ack {
				c.log.Debug().
					Str("exchange", options.Exchange).
					Str("routing_key", options.RoutingKey).
					Uint64("delivery_tag", confirm.DeliveryTag).
					Msg("Message published successfully")
				span.SetStatus(codes.Ok, "")
				return nil
			}
			c.log.Warn().Uint64("delivery_tag", confirm.DeliveryTag).Msg("Message publish not acknowledged, retrying...")
			span.AddEvent("amqp.publish.retry", trace.WithAttributes(
				attribute.String("reason", "message not acknowledged"),
				attribute.String("delivery_tag", strconv.FormatUint(confirm.DeliveryTag, 10)),
			))
		case <-time.After(c.confirmTimeout):
			c.log.Warn().Msg("Publish confirmation timeout, retrying...")
			span.AddEvent("amqp.publish.retry", trace.WithAttributes(
				attribute.String("reason", "confirmation timeout"),
			))
		}
	}
	return fail(ErrNotConfirmed)
}

func (c *AMQPClient) publishing(ctx context.Context, options PublishOptions, data []byte) amqp.Publishing {
	headers := amqp.Table{}
	for k, v := range options.Headers {
		headers[k] = v
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier(headers))

	contentType := options.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	return amqp.Publishing{
		Headers:      headers,
		ContentType:  contentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    options.MessageID,
		Timestamp:    time.Now(),
		Body:         data,
	}
}

func (c *AMQPClient) wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return errShutdown
	case <-time.After(d):
		return nil
	}
}

// Close gracefully shuts down the client.
func (c *AMQPClient) Close() error {
	c.m.Lock()
	defer c.m.Unlock()

	if c.closed {
		return errAlreadyClosed
	}
	c.closed = true
	close(c.done)
	c.isReady = false

	var errs []error
	if c.channel != nil {
		errs = append(errs, c.channel.Close())
	}
	if c.connection != nil {
		errs = append(errs, c.connection.Close())
	}

	c.log.Info().Msg("AMQP client closed")
	return errors.Join(errs...)
}

// handleReconnect manages connection lifecycle and reconnection logic.
func (c *AMQPClient) handleReconnect() {
	for {
		c.setReady(false)
		c.log.Info().Str("broker_url", redactAMQPURL(c.brokerURL)).Msg("Attempting to connect to AMQP broker")

		conn, err := getAMQPDialFunc()(c.brokerURL)
		if err != nil {
			c.log.Error().Err(err).Msg("Failed to connect to AMQP broker, retrying...")
			select {
			case <-c.done:
				return
			case <-time.After(c.reconnectDelay):
			}
			continue
		}

		if !c.changeConnection(conn) {
			_ = conn.Close()
			return
		}
		c.log.Info().Msg("Connected to AMQP broker")

		if done := c.handleReInit(conn); done {
			return
		}
	}
}

// handleReInit opens channels on conn until the client closes (true) or the
// connection drops (false).
func (c *AMQPClient) handleReInit(conn amqpConnection) bool {
	for {
		c.setReady(false)

		if err := c.init(conn); err != nil {
			c.log.Error().Err(err).Msg("Failed to initialize AMQP channel, retrying...")
			select {
			case <-c.done:
				return true
			case <-c.notifyConnClose:
				c.log.Info().Msg("AMQP connection closed, reconnecting...")
				return false
			case <-time.After(c.reInitDelay):
			}
			continue
		}

		select {
		case <-c.done:
			return true
		case <-c.notifyConnClose:
			c.log.Info().Msg("AMQP connection closed, reconnecting...")
			return false
		case <-c.notifyChanClose:
			c.log.Info().Msg("AMQP channel closed, reinitializing...")
		}
	}
}

// init opens a channel in confirm mode and declares the configured exchanges.
func (c *AMQPClient) init(conn amqpConnection) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return err
	}
	for _, ex := range c.exchanges {
		kind := ex.kind
		if kind == "" {
			kind = amqp.ExchangeTopic
		}
		if err := ch.ExchangeDeclare(ex.name, kind, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			return err
		}
	}

	c.m.Lock()
	defer c.m.Unlock()
	if c.closed {
		_ = ch.Close()
		return errShutdown
	}
	c.channel = ch
	c.notifyChanClose = ch.NotifyClose(make(chan *amqp.Error, 1))
	c.notifyConfirm = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	c.isReady = true

	c.log.Info().Msg("AMQP client initialized and ready")
	return nil
}

// changeConnection stores conn unless the client is already closed.
func (c *AMQPClient) changeConnection(conn amqpConnection) bool {
	c.m.Lock()
	defer c.m.Unlock()
	if c.closed {
		return false
	}
	c.connection = conn
	c.notifyConnClose = conn.NotifyClose(make(chan *amqp.Error, 1))
	return true
}

// redactAMQPURL masks the password of an AMQP URL for logging.
func redactAMQPURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "amqp://<redacted>"
	}
	return u.Redacted()
}
