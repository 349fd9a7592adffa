package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"ledger/internal/log"
	"ledger/internal/metrics"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
	dialAttempts   = 3
)

// ErrCircuitOpen is returned while the broker is considered down.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Client publishes movement events to a topic exchange. A lost connection is
// re-established on the next publish; repeated failures open a circuit
// breaker so requests are not held up by a dead broker.
type Client struct {
	url          string
	exchangeName string
	logger       *log.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	// lastFailure is the Unix nano time of the latest failure.
	lastFailure  atomic.Int64
}

// NewClient dials the broker and declares the exchange.
func NewClient(ctx context.Context, url, exchangeName string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.FromContext(ctx)
	}
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		logger:       logger.WithComponent(log.ComponentAMQP),
	}

	var err error
	for attempt := 0; attempt < dialAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(exponentialBackoff(attempt - 1)):
			}
		}
		c.mu.Lock()
		err = c.connectLocked()
		c.mu.Unlock()
		if err == nil {
			return c, nil
		}
		c.logger.Warn("AMQP connection failed", "attempt", attempt+1, "error", err)
	}
	return nil, err
}

func (c *Client) connectLocked() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		c.exchangeName, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	c.conn = conn
	c.channel = channel
	return nil
}

func (c *Client) resetLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// PublishMovementEvent publishes evt with its event name as routing key.
func (c *Client) PublishMovementEvent(ctx context.Context, evt *MovementEvent) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("publish %s: %w", evt.Event, ErrCircuitOpen)
	}
	defer func() { metrics.ObserveEvent(evt.Event, err) }()

	body, err := evt.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel == nil || c.channel.IsClosed() {
		c.resetLocked()
		if err := c.connectLocked(); err != nil {
			c.recordFailure()
			return fmt.Errorf("reconnect: %w", err)
		}
		c.log().Info("AMQP connection re-established", "exchange", c.exchangeName)
	}

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		evt.Event,      // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    evt.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.resetLocked()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	slog.DebugContext(ctx, "Published movement event",
		log.FieldComponent, log.ComponentAMQP,
		"event", evt.Event,
		log.FieldMovementID, evt.ID,
		"exchange", c.exchangeName)
	return nil
}

func (c *Client) log() *log.Logger {
	if c.logger == nil {
		return log.FromContext(context.Background())
	}
	return c.logger
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	if time.Since(time.Unix(0, c.lastFailure.Load())) > openTimeout {
		atomic.StoreInt32(&c.state, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.lastFailure.Store(time.Now().UnixNano())
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures ||
		atomic.LoadInt32(&c.state) == StateHalfOpen {
		if atomic.SwapInt32(&c.state, StateOpen) != StateOpen {
			c.log().Warn("AMQP circuit breaker opened", "failures", atomic.LoadInt64(&c.failureCount))
		}
	}
}

// exponentialBackoff returns 1s, 2s, 4s ... capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << uint(attempt)
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}
	return err
}
