package rabbitmq

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aquaoffice/tresorerie.go/db/models"
	"github.com/getsentry/sentry-go"
	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/ziflex/lecho/v3"
)

//go:generate mockgen -destination=./mock_rabbitmq/rabbitmq.go github.com/aquaoffice/tresorerie.go/rabbitmq AMQPClient

// bufPool reuses encoding buffers between published entries.
var bufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

const (
	contentTypeJSON = "application/json"

	DefaultLedgerExchange = "treasury_ledger"
)

type (
	SubscribeToEntriesFunc = func() (entries chan models.LedgerEntry, err error)
	EncodeEntryFunc        = func(ctx context.Context, w io.Writer, entry models.LedgerEntry) error
)

type Client interface {
	StartPublishLedgerEntries(context.Context, SubscribeToEntriesFunc, EncodeEntryFunc) error
	// Close will close all connections to rabbitmq
	Close() error
}

type DefaultClient struct {
	amqpClient AMQPClient
	logger     *lecho.Logger

	ledgerExchange string
}

type ClientOption = func(client *DefaultClient)

func WithLedgerExchange(exchange string) ClientOption {
	return func(client *DefaultClient) {
		client.ledgerExchange = exchange
	}
}

func WithLogger(logger *lecho.Logger) ClientOption {
	return func(client *DefaultClient) {
		client.logger = logger
	}
}

// Dial connects to rabbitmq and returns a client publishing on a reconnecting channel.
func Dial(uri string, options ...ClientOption) (Client, error) {
	client := NewClient(nil, options...)
	amqpClient, err := DialAMQP(uri, WithAMQPLogger(client.logger))
	if err != nil {
		return nil, err
	}
	client.amqpClient = amqpClient
	return client, nil
}

func NewClient(amqpClient AMQPClient, options ...ClientOption) *DefaultClient {
	client := &DefaultClient{
		amqpClient: amqpClient,
		logger: lecho.New(
			os.Stdout,
			lecho.WithLevel(log.DEBUG),
			lecho.WithTimestamp(),
		),
		ledgerExchange: DefaultLedgerExchange,
	}

	for _, opt := range options {
		opt(client)
	}

	return client
}

func (client *DefaultClient) Close() error { return client.amqpClient.Close() }

// RoutingKey is ledger.<account id>.<credit|debit>.
func RoutingKey(entry models.LedgerEntry) string {
	return fmt.Sprintf("ledger.%d.%s", entry.AccountID, strings.ToLower(entry.Direction))
}

func (client *DefaultClient) StartPublishLedgerEntries(ctx context.Context, subscribeFunc SubscribeToEntriesFunc, payloadFunc EncodeEntryFunc) error {
	err := client.amqpClient.ExchangeDeclare(
		client.ledgerExchange,
		// topic is a type of exchange that allows routing messages to different queue's bases on a routing key
		"topic",
		// Durable and Non-Auto-Deleted exchanges will survive server restarts and remain
		// declared when there are no remaining bindings.
		true,
		false,
		// Non-Internal exchange's accept direct publishing
		false,
		// Nowait: We set this to false as we want to wait for a server response
		// to check whether the exchange was created succesfully
		false,
		nil,
	)
	if err != nil {
		return err
	}

	client.logger.Info("Starting rabbitmq ledger publisher")

	entries, err := subscribeFunc()
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return context.Canceled
		case entry, ok := <-entries:
			if !ok {
				return nil
			}
			if err := client.publishEntry(ctx, entry, payloadFunc); err != nil {
				captureErr(client.logger, err)
			}
		}
	}
}

func (client *DefaultClient) publishEntry(ctx context.Context, entry models.LedgerEntry, payloadFunc EncodeEntryFunc) error {
	payload := bufPool.Get().(*bytes.Buffer)
	payload.Reset()
	defer bufPool.Put(payload)

	err := payloadFunc(ctx, payload, entry)
	if err != nil {
		return err
	}

	err = client.amqpClient.PublishWithContext(ctx,
		client.ledgerExchange,
		RoutingKey(entry),
		false,
		false,
		amqp.Publishing{
			ContentType: contentTypeJSON,
			Body:        payload.Bytes(),
		},
	)
	if err != nil {
		return err
	}

	client.logger.Debugf("Successfully published ledger entry to rabbitmq with reference %s", entry.Reference)

	return nil
}

func captureErr(logger *lecho.Logger, err error) {
	logger.Error(err)
	sentry.CaptureException(err)
}
