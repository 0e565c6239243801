package integration_tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aquaoffice/tresorerie.go/lib/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type WebHookTestSuite struct {
	TestSuite
	webHookServer   *httptest.Server
	entryChan       chan service.LedgerEntryEvent
	webhookCancelFn context.CancelFunc
}

func (suite *WebHookTestSuite) SetupSuite() {
	suite.setupEcho()

	suite.entryChan = make(chan service.LedgerEntryEvent, 10)
	suite.webHookServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		event := service.LedgerEntryEvent{}
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			suite.echo.Logger.Error(err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		suite.entryChan <- event
	}))
	suite.service.Config.WebhookUrl = suite.webHookServer.URL

	ctx, cancel := context.WithCancel(context.Background())
	suite.webhookCancelFn = cancel
	go suite.service.StartWebhookSubscription(ctx, suite.service.Config.WebhookUrl)
	assert.Eventually(suite.T(), func() bool {
		return suite.service.EntryPubSub.SubscriberCount(service.WildcardTopic) == 1
	}, time.Second, 10*time.Millisecond)
}

func (suite *WebHookTestSuite) TestWebHook() {
	account := suite.createAccountReq("Caisse", "cash")
	body := entryBody("99.9", "CREDIT", "Vente webhook")
	body["reference"] = "WEBHOOK-1"
	suite.recordEntryReq(account.ID, body, http.StatusCreated)

	select {
	case event := <-suite.entryChan:
		assert.Equal(suite.T(), "WEBHOOK-1", event.Reference)
		assert.Equal(suite.T(), account.ID, event.AccountID)
		assert.Equal(suite.T(), "99.90", event.Amount.String())
		assert.Equal(suite.T(), "CREDIT", event.Direction)
	case <-time.After(2 * time.Second):
		suite.T().Fatal("webhook was not called")
	}

	// a replay is not a new event
	suite.recordEntryReq(account.ID, body, http.StatusOK)
	select {
	case event := <-suite.entryChan:
		suite.T().Fatalf("unexpected webhook call for %s", event.Reference)
	case <-time.After(200 * time.Millisecond):
	}
}

func (suite *WebHookTestSuite) TearDownSuite() {
	suite.webhookCancelFn()
	suite.webHookServer.Close()
	assert.NoError(suite.T(), clearAll(suite.service))
}

func TestWebHookSuite(t *testing.T) {
	suite.Run(t, new(WebHookTestSuite))
}
