package integration_tests

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/aquaoffice/tresorerie.go/lib/service"
	"github.com/aquaoffice/tresorerie.go/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type RabbitMQTestSuite struct {
	TestSuite
	publisherCancelFn context.CancelFunc
	testQueueName     string
	exchange          string
}

func (suite *RabbitMQTestSuite) SetupSuite() {
	suite.setupEcho()
	suite.testQueueName = "test_ledger_entries"
	suite.exchange = "test_treasury_ledger"
	suite.service.Config.RabbitMQUri = os.Getenv("RABBITMQ_URI")

	client, err := rabbitmq.Dial(suite.service.Config.RabbitMQUri,
		rabbitmq.WithLedgerExchange(suite.exchange),
		rabbitmq.WithLogger(suite.service.Logger),
	)
	if err != nil {
		suite.T().Fatalf("could not connect to rabbitmq: %v", err)
	}
	suite.service.RabbitMQClient = client

	ctx, cancel := context.WithCancel(context.Background())
	suite.publisherCancelFn = cancel
	go func() {
		err := suite.service.StartRabbitMqPublisher(ctx)
		if err != nil && err != context.Canceled {
			suite.service.Logger.Error(err)
		}
	}()
	assert.Eventually(suite.T(), func() bool {
		return suite.service.EntryPubSub.SubscriberCount(service.WildcardTopic) == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func (suite *RabbitMQTestSuite) TestPublishLedgerEntry() {
	conn, err := amqp.Dial(suite.service.Config.RabbitMQUri)
	assert.NoError(suite.T(), err)
	defer conn.Close()

	ch, err := conn.Channel()
	assert.NoError(suite.T(), err)
	defer ch.Close()

	q, err := ch.QueueDeclare(suite.testQueueName, true, false, false, false, nil)
	assert.NoError(suite.T(), err)
	err = ch.QueueBind(q.Name, "ledger.*.debit", suite.exchange, false, nil)
	assert.NoError(suite.T(), err)

	account := suite.createAccountReq("Banque", "bank")
	suite.recordEntryReq(account.ID, entryBody("15", "CREDIT", "Virement reçu"), http.StatusCreated)
	debit := suite.recordEntryReq(account.ID, entryBody("5", "DEBIT", "Frais bancaires"), http.StatusCreated)

	m, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	assert.NoError(suite.T(), err)

	select {
	case msg := <-m:
		event := service.LedgerEntryEvent{}
		assert.NoError(suite.T(), json.Unmarshal(msg.Body, &event))
		assert.Equal(suite.T(), debit.Reference, event.Reference)
		assert.Equal(suite.T(), "10.00", event.RunningBalance.String())
	case <-time.After(5 * time.Second):
		suite.T().Fatal("no ledger entry was published")
	}

	_, err = ch.QueueDelete(q.Name, false, false, false)
	assert.NoError(suite.T(), err)
}

func (suite *RabbitMQTestSuite) TearDownSuite() {
	suite.publisherCancelFn()
	assert.NoError(suite.T(), suite.service.RabbitMQClient.Close())
	assert.NoError(suite.T(), clearAll(suite.service))
}

func TestRabbitMQSuite(t *testing.T) {
	if _, ok := os.LookupEnv("RABBITMQ_URI"); !ok {
		t.Skip("RABBITMQ_URI is not set")
	}
	suite.Run(t, new(RabbitMQTestSuite))
}
