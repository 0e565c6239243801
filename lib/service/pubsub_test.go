package service_test

import (
	"testing"
	"time"

	"github.com/aquaoffice/tresorerie.go/db/models"
	"github.com/aquaoffice/tresorerie.go/lib/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnsubscribeReleasesBlockedPublisher(t *testing.T) {
	ps := service.NewPubsub()
	entries := make(chan models.LedgerEntry, 1)
	subID, err := ps.Subscribe(service.WildcardTopic, entries)
	require.NoError(t, err)
	// fills the buffer, nobody drains it
	ps.Publish(7, models.LedgerEntry{ID: 1})

	published := make(chan struct{})
	go func() {
		ps.Publish(7, models.LedgerEntry{ID: 2})
		close(published)
	}()
	subscribed := make(chan struct{})
	go func() {
		_, err := ps.Subscribe(7, make(chan models.LedgerEntry, 1))
		assert.NoError(t, err)
		close(subscribed)
	}()
	unsubscribed := make(chan struct{})
	go func() {
		ps.Unsubscribe(subID, service.WildcardTopic)
		close(unsubscribed)
	}()

	for name, done := range map[string]chan struct{}{"publish": published, "subscribe": subscribed, "unsubscribe": unsubscribed} {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("%s did not return while a subscriber was full", name)
		}
	}
	assert.Equal(t, 0, ps.SubscriberCount(service.WildcardTopic))
	assert.Equal(t, 1, ps.SubscriberCount(7))

	e, open := <-entries
	assert.True(t, open)
	assert.Equal(t, int64(1), e.ID)
	_, open = <-entries
	assert.False(t, open)

	// unknown ids are ignored
	ps.Unsubscribe(subID, service.WildcardTopic)
}
