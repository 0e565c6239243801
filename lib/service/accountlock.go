package service

import (
	"context"
	"sort"
	"sync"
)

// accountLocks serializes writers per account inside one process.
// Entries are reference counted and dropped once nobody holds or waits on them.
type accountLocks struct {
	mu    sync.Mutex
	locks map[int64]*accountLock
}

type accountLock struct {
	ch   chan struct{}
	refs int
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: map[int64]*accountLock{}}
}

// lock acquires every given account in ascending id order.
// The returned func releases all of them.
func (l *accountLocks) lock(ctx context.Context, ids ...int64) (func(), error) {
	ordered := uniqueSorted(ids)
	unlocks := make([]func(), 0, len(ordered))
	unlockAll := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, id := range ordered {
		unlock, err := l.lockOne(ctx, id)
		if err != nil {
			unlockAll()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return unlockAll, nil
}

func (l *accountLocks) lockOne(ctx context.Context, id int64) (func(), error) {
	al := l.acquire(id)
	select {
	case al.ch <- struct{}{}:
		return func() {
			<-al.ch
			l.release(id, al)
		}, nil
	case <-ctx.Done():
		l.release(id, al)
		return nil, ctx.Err()
	}
}

func (l *accountLocks) acquire(id int64) *accountLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	al, ok := l.locks[id]
	if !ok {
		al = &accountLock{ch: make(chan struct{}, 1)}
		l.locks[id] = al
	}
	al.refs++
	return al
}

func (l *accountLocks) release(id int64, al *accountLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	al.refs--
	if al.refs == 0 {
		delete(l.locks, id)
	}
}

func (l *accountLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func uniqueSorted(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
