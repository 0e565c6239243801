package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/aquaoffice/tresorerie.go/common"
	"github.com/aquaoffice/tresorerie.go/db/models"
)

// LedgerEntryEvent is the payload sent to webhooks and AMQP consumers.
type LedgerEntryEvent struct {
	ID             int64       `json:"id"`
	AccountID      int64       `json:"account_id"`
	Amount         json.Number `json:"amount"`
	Direction      string      `json:"direction"`
	RunningBalance json.Number `json:"running_balance"`
	Motif          string      `json:"motif"`
	Reference      string      `json:"reference"`
	OccurredOn     string      `json:"occurred_on"`
	CreatedBy      string      `json:"created_by"`
	SourceType     string      `json:"source_type"`
	SourceID       string      `json:"source_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

func NewLedgerEntryEvent(entry models.LedgerEntry) LedgerEntryEvent {
	return LedgerEntryEvent{
		ID:             entry.ID,
		AccountID:      entry.AccountID,
		Amount:         json.Number(entry.Amount.StringFixed(2)),
		Direction:      entry.Direction,
		RunningBalance: json.Number(entry.RunningBalance.StringFixed(2)),
		Motif:          entry.Motif,
		Reference:      entry.Reference,
		OccurredOn:     entry.OccurredOn.Format(common.DateLayout),
		CreatedBy:      entry.CreatedBy,
		SourceType:     entry.SourceType,
		SourceID:       entry.SourceID,
		CreatedAt:      entry.CreatedAt,
	}
}

func (svc *TreasuryService) EncodeLedgerEntry(ctx context.Context, w io.Writer, entry models.LedgerEntry) error {
	return json.NewEncoder(w).Encode(NewLedgerEntryEvent(entry))
}

func (svc *TreasuryService) StartWebhookSubscription(ctx context.Context, url string) {
	svc.Logger.Infof("Starting webhook subscription with webhook url %s", url)
	entries, subId, err := svc.SubscribeLedgerEntries()
	if err != nil {
		svc.Logger.Error(err)
		return
	}
	defer svc.EntryPubSub.Unsubscribe(subId, WildcardTopic)

	client := &http.Client{Timeout: time.Duration(svc.Config.WebhookTimeout) * time.Second}
	for {
		select {
		case <-ctx.Done():
			return
		case entry := <-entries:
			svc.postToWebhook(ctx, client, url, entry)
		}
	}
}

func (svc *TreasuryService) postToWebhook(ctx context.Context, client *http.Client, url string, entry models.LedgerEntry) {
	payload := new(bytes.Buffer)
	err := svc.EncodeLedgerEntry(ctx, payload, entry)
	if err != nil {
		svc.Logger.Error(err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, payload)
	if err != nil {
		svc.Logger.Error(err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		svc.Logger.Error(err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			svc.Logger.Error(err)
		}
		svc.Logger.Errorf("Webhook status code was %d, body: %s", resp.StatusCode, msg)
		return
	}
	svc.Logger.Debugf("Posted ledger entry %s to webhook", entry.Reference)
}
