package rabbitmq

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/ziflex/lecho/v3"
)

const (
	defaultHeartbeat = 10 * time.Second
	defaultLocale    = "en_US"
)

var ErrReconnecting = errors.New("amqp: trying to publish during reconnect")

type AMQPClient interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Close() error
}

type defaultAMQPClient struct {
	mu   sync.RWMutex
	conn *amqp.Connection
	uri  string

	publishChannel  *amqp.Channel
	notifyCloseChan chan *amqp.Error

	reconFlag atomic.Bool
	closed    atomic.Bool

	logger *lecho.Logger
}

type AMQPOption = func(c *defaultAMQPClient)

func WithAMQPLogger(logger *lecho.Logger) AMQPOption {
	return func(c *defaultAMQPClient) {
		c.logger = logger
	}
}

// DialAMQP connects to the broker and keeps the connection alive in the background.
func DialAMQP(uri string, options ...AMQPOption) (AMQPClient, error) {
	client := &defaultAMQPClient{
		uri: uri,
		logger: lecho.New(
			os.Stdout,
			lecho.WithLevel(log.DEBUG),
			lecho.WithTimestamp(),
		),
	}
	for _, opt := range options {
		opt(client)
	}

	if err := client.connect(); err != nil {
		return client, err
	}

	go client.reconnectionLoop()

	return client, nil
}

func (c *defaultAMQPClient) connect() error {
	conn, err := amqp.DialConfig(c.uri, amqp.Config{
		Heartbeat: defaultHeartbeat,
		Locale:    defaultLocale,
		Dial:      amqp.DefaultDial(time.Second * 3),
	})
	if err != nil {
		return err
	}

	publishChannel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	notifyCloseChan := make(chan *amqp.Error, 1)
	conn.NotifyClose(notifyCloseChan)

	c.mu.Lock()
	c.conn = conn
	c.publishChannel = publishChannel
	c.notifyCloseChan = notifyCloseChan
	c.mu.Unlock()

	return nil
}

func (c *defaultAMQPClient) reconnectionLoop() {
	for {
		c.mu.RLock()
		notifyClose := c.notifyCloseChan
		c.mu.RUnlock()

		amqpError, ok := <-notifyClose
		if !ok || c.closed.Load() {
			// graceful close
			return
		}
		c.logger.Error(amqpError)

		exponentialBackoff := backoff.NewExponentialBackOff()
		exponentialBackoff.MaxInterval = time.Second * 10
		exponentialBackoff.MaxElapsedTime = time.Minute

		c.reconFlag.Store(true)

		c.logger.Info("amqp: trying to reconnect...")
		if err := backoff.Retry(c.connect, exponentialBackoff); err != nil {
			c.logger.Errorf("amqp: giving up reconnecting: %v", err)
			return
		}

		c.reconFlag.Store(false)
		c.logger.Info("amqp: successfully reconnected")
	}
}

func (c *defaultAMQPClient) Close() error {
	c.closed.Store(true)
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *defaultAMQPClient) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	// short lived channel, declarations are rare
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	return ch.ExchangeDeclare(name, kind, durable, autoDelete, internal, noWait, args)
}

func (c *defaultAMQPClient) PublishWithContext(ctx context.Context, exchange string, key string, mandatory bool, immediate bool, msg amqp.Publishing) error {
	if c.reconFlag.Load() {
		exponentialBackoff := backoff.NewExponentialBackOff()
		exponentialBackoff.MaxInterval = time.Second * 10
		exponentialBackoff.MaxElapsedTime = time.Minute

		err := backoff.Retry(func() error {
			if c.reconFlag.Load() {
				return ErrReconnecting
			}
			return nil
		}, backoff.WithContext(exponentialBackoff, ctx))
		if err != nil {
			return err
		}
	}

	c.mu.RLock()
	ch := c.publishChannel
	c.mu.RUnlock()
	return ch.PublishWithContext(ctx, exchange, key, mandatory, immediate, msg)
}
