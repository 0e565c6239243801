package service

import (
	"context"
	"errors"

	"github.com/aquaoffice/tresorerie.go/db/models"
)

// StartRabbitMqPublisher forwards every committed entry to the ledger exchange until ctx ends.
func (svc *TreasuryService) StartRabbitMqPublisher(ctx context.Context) error {
	if svc.RabbitMQClient == nil {
		return errors.New("rabbitmq client is not configured")
	}
	var subId string
	subscribe := func() (chan models.LedgerEntry, error) {
		entries, id, err := svc.SubscribeLedgerEntries()
		subId = id
		return entries, err
	}
	defer func() {
		if subId != "" {
			svc.EntryPubSub.Unsubscribe(subId, WildcardTopic)
		}
	}()

	svc.Logger.Infof("Starting rabbitmq publisher")
	return svc.RabbitMQClient.StartPublishLedgerEntries(ctx, subscribe, svc.EncodeLedgerEntry)
}

// SubscribeLedgerEntries returns a channel receiving every committed entry.
// The caller owns the subscription and must drain the channel.
func (svc *TreasuryService) SubscribeLedgerEntries() (chan models.LedgerEntry, string, error) {
	entries := make(chan models.LedgerEntry, 100)
	subId, err := svc.EntryPubSub.Subscribe(WildcardTopic, entries)
	if err != nil {
		return nil, "", err
	}
	return entries, subId, nil
}
