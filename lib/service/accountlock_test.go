package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniqueSorted(t *testing.T) {
	assert.Equal(t, []int64{1, 3, 7}, uniqueSorted([]int64{7, 1, 3, 7, 1}))
	assert.Empty(t, uniqueSorted(nil))
}

func TestAccountLocksSerializeWriters(t *testing.T) {
	locks := newAccountLocks()
	ctx := context.Background()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locks.lock(ctx, 1)
			if !assert.NoError(t, err) {
				return
			}
			current := counter
			time.Sleep(time.Microsecond)
			counter = current + 1
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, locks.size())
}

func TestAccountLocksHonorContext(t *testing.T) {
	locks := newAccountLocks()
	unlock, err := locks.lock(context.Background(), 1, 2)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locks.lock(ctx, 2, 3)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// accounts not involved stay available
	unlockOther, err := locks.lock(context.Background(), 3)
	require.NoError(t, err)
	unlockOther()

	unlock()
	assert.Equal(t, 0, locks.size())
}
