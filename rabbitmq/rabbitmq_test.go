package rabbitmq_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aquaoffice/tresorerie.go/common"
	"github.com/aquaoffice/tresorerie.go/db/models"
	"github.com/aquaoffice/tresorerie.go/rabbitmq"
	"github.com/aquaoffice/tresorerie.go/rabbitmq/mock_rabbitmq"
	"github.com/golang/mock/gomock"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func encodeReference(ctx context.Context, w io.Writer, entry models.LedgerEntry) error {
	return json.NewEncoder(w).Encode(map[string]string{"reference": entry.Reference})
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "ledger.7.credit", rabbitmq.RoutingKey(models.LedgerEntry{AccountID: 7, Direction: common.DirectionCredit}))
	assert.Equal(t, "ledger.12.debit", rabbitmq.RoutingKey(models.LedgerEntry{AccountID: 12, Direction: common.DirectionDebit}))
}

func TestStartPublishLedgerEntries(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	amqpClient := mock_rabbitmq.NewMockAMQPClient(ctrl)
	client := rabbitmq.NewClient(amqpClient, rabbitmq.WithLedgerExchange("ledger_test"))

	amqpClient.EXPECT().
		ExchangeDeclare(gomock.Eq("ledger_test"), gomock.Eq("topic"), true, false, false, false, gomock.Nil()).
		Times(1).
		Return(nil)

	published := make(chan amqp.Publishing, 2)
	keys := make(chan string, 2)
	amqpClient.EXPECT().
		PublishWithContext(gomock.Any(), gomock.Eq("ledger_test"), gomock.Any(), false, false, gomock.Any()).
		Times(2).
		DoAndReturn(func(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
			// the pooled buffer is reused after publishing returns
			body := make([]byte, len(msg.Body))
			copy(body, msg.Body)
			msg.Body = body
			keys <- key
			published <- msg
			return nil
		})

	entries := make(chan models.LedgerEntry, 2)
	entries <- models.LedgerEntry{AccountID: 3, Direction: common.DirectionCredit, Reference: "TRANS-00001", Amount: decimal.NewFromInt(10)}
	entries <- models.LedgerEntry{AccountID: 3, Direction: common.DirectionDebit, Reference: "TRANS-00002", Amount: decimal.NewFromInt(4)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- client.StartPublishLedgerEntries(ctx, func() (chan models.LedgerEntry, error) {
			return entries, nil
		}, encodeReference)
	}()

	for i, expected := range []struct{ key, reference string }{
		{"ledger.3.credit", "TRANS-00001"},
		{"ledger.3.debit", "TRANS-00002"},
	} {
		select {
		case msg := <-published:
			assert.Equal(t, expected.key, <-keys, "message %d", i)
			assert.Equal(t, "application/json", msg.ContentType)
			payload := map[string]string{}
			assert.NoError(t, json.Unmarshal(msg.Body, &payload))
			assert.Equal(t, expected.reference, payload["reference"])
		case <-time.After(time.Second):
			t.Fatalf("message %d was not published", i)
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop")
	}
}

func TestStartPublishLedgerEntriesExchangeError(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	amqpClient := mock_rabbitmq.NewMockAMQPClient(ctrl)
	client := rabbitmq.NewClient(amqpClient)

	boom := errors.New("channel closed")
	amqpClient.EXPECT().
		ExchangeDeclare(gomock.Eq(rabbitmq.DefaultLedgerExchange), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(boom)

	err := client.StartPublishLedgerEntries(context.Background(), func() (chan models.LedgerEntry, error) {
		t.Fatal("subscription must not start without an exchange")
		return nil, nil
	}, encodeReference)
	assert.ErrorIs(t, err, boom)
}

func TestStartPublishLedgerEntriesKeepsGoingAfterPublishError(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	amqpClient := mock_rabbitmq.NewMockAMQPClient(ctrl)
	client := rabbitmq.NewClient(amqpClient)

	amqpClient.EXPECT().ExchangeDeclare(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	gomock.InOrder(
		amqpClient.EXPECT().
			PublishWithContext(gomock.Any(), gomock.Any(), gomock.Eq("ledger.1.credit"), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(rabbitmq.ErrReconnecting),
		amqpClient.EXPECT().
			PublishWithContext(gomock.Any(), gomock.Any(), gomock.Eq("ledger.2.credit"), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil),
	)

	entries := make(chan models.LedgerEntry, 2)
	entries <- models.LedgerEntry{AccountID: 1, Direction: common.DirectionCredit, Reference: "TRANS-00001"}
	entries <- models.LedgerEntry{AccountID: 2, Direction: common.DirectionCredit, Reference: "TRANS-00002"}
	close(entries)

	err := client.StartPublishLedgerEntries(context.Background(), func() (chan models.LedgerEntry, error) {
		return entries, nil
	}, encodeReference)
	assert.NoError(t, err)
}
