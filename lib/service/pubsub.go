package service

import (
	"sync"

	"github.com/aquaoffice/tresorerie.go/db/models"
	"github.com/google/uuid"
)

// WildcardTopic receives the entries of every account.
const WildcardTopic int64 = 0

type subscription struct {
	ch   chan models.LedgerEntry
	done chan struct{}
	once sync.Once
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

type Pubsub struct {
	mu   sync.RWMutex
	subs map[int64]map[string]*subscription

	// byID is never held while sending, Unsubscribe uses it to release blocked publishers
	idxMu sync.Mutex
	byID  map[string]*subscription
}

func NewPubsub() *Pubsub {
	ps := &Pubsub{}
	ps.subs = make(map[int64]map[string]*subscription)
	ps.byID = make(map[string]*subscription)
	return ps
}

func (ps *Pubsub) Subscribe(topic int64, ch chan models.LedgerEntry) (subId string, err error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.subs[topic] == nil {
		ps.subs[topic] = make(map[string]*subscription)
	}
	subId = uuid.NewString()
	sub := &subscription{ch: ch, done: make(chan struct{})}
	ps.subs[topic][subId] = sub

	ps.idxMu.Lock()
	ps.byID[subId] = sub
	ps.idxMu.Unlock()
	return subId, nil
}

// Unsubscribe closes the subscriber channel.
// A publisher blocked on that subscriber gives up the pending entry.
func (ps *Pubsub) Unsubscribe(id string, topic int64) {
	ps.idxMu.Lock()
	sub := ps.byID[id]
	delete(ps.byID, id)
	ps.idxMu.Unlock()
	if sub == nil {
		return
	}
	sub.stop()

	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.subs[topic][id] == nil {
		return
	}
	close(sub.ch)
	delete(ps.subs[topic], id)
}

func (ps *Pubsub) SubscriberCount(topic int64) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subs[topic])
}

// Publish delivers msg to the subscribers of topic and of the wildcard topic.
// Subscribers are expected to drain their channel until they unsubscribe.
func (ps *Pubsub) Publish(topic int64, msg models.LedgerEntry) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, sub := range ps.subs[topic] {
		sub.send(msg)
	}
	if topic == WildcardTopic {
		return
	}
	for _, sub := range ps.subs[WildcardTopic] {
		sub.send(msg)
	}
}

func (s *subscription) send(msg models.LedgerEntry) {
	select {
	case s.ch <- msg:
	case <-s.done:
	}
}
