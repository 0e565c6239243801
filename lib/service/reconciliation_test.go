package service_test

import (
	"context"
	"testing"

	"github.com/aquaoffice/tresorerie.go/common"
	"github.com/aquaoffice/tresorerie.go/db/models"
	"github.com/aquaoffice/tresorerie.go/lib/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileAccount(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	account := createAccount(t, svc, "Caisse")
	record(t, svc, entry(account.ID, "100", common.DirectionCredit))
	tampered := record(t, svc, entry(account.ID, "30", common.DirectionDebit))
	record(t, svc, entry(account.ID, "5.5", common.DirectionCredit))

	result, err := svc.ReconcileAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, result.Consistent)
	assert.Equal(t, int64(3), result.EntryCount)
	assert.Equal(t, "75.50", result.ComputedBalance.StringFixed(2))
	assert.Zero(t, result.FirstBrokenEntryID)

	rewriteEntry(t, svc, tampered.ID, "running_balance", "71")

	result, err = svc.ReconcileAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, result.Consistent)
	assert.Equal(t, tampered.ID, result.FirstBrokenEntryID)

	_, err = svc.ReconcileAccount(ctx, 999)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestReconcileDetectsStaleProjection(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	account := createAccount(t, svc, "Caisse")
	record(t, svc, entry(account.ID, "10", common.DirectionCredit))

	_, err := svc.DB.NewUpdate().Model((*models.AccountBalance)(nil)).
		Set("balance = ?", "11").
		Where("account_id = ?", account.ID).
		Exec(ctx)
	require.NoError(t, err)

	results, err := svc.ReconcileAll(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Consistent)
	assert.Zero(t, results[0].FirstBrokenEntryID)
	assert.Equal(t, "11.00", results[0].ProjectedBalance.StringFixed(2))
}

// a missing projection row is rebuilt from the ledger on the next write
func TestMissingProjectionIsRebuilt(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	account := createAccount(t, svc, "Caisse")
	record(t, svc, entry(account.ID, "10", common.DirectionCredit))
	record(t, svc, entry(account.ID, "4", common.DirectionDebit))

	_, err := svc.DB.NewDelete().Model((*models.AccountBalance)(nil)).Where("account_id = ?", account.ID).Exec(ctx)
	require.NoError(t, err)

	balance, err := svc.CurrentBalance(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "6.00", balance.StringFixed(2))

	e := record(t, svc, entry(account.ID, "1", common.DirectionCredit))
	assert.Equal(t, "7.00", e.RunningBalance.StringFixed(2))

	result, err := svc.ReconcileAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, result.Consistent)
	assert.Equal(t, int64(3), result.ProjectedEntryCount)
}

// writes committed during a reconciliation never make a healthy ledger look broken
func TestReconcileWhileRecording(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	account := createAccount(t, svc, "Caisse")
	record(t, svc, entry(account.ID, "50", common.DirectionCredit))

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			direction := common.DirectionCredit
			if i%3 == 0 {
				direction = common.DirectionDebit
			}
			if _, _, err := svc.RecordEntry(ctx, entry(account.ID, "1", direction)); !assert.NoError(t, err) {
				return
			}
		}
	}()
	defer func() {
		close(stop)
		<-stopped
	}()

	for i := 0; i < 100; i++ {
		result, err := svc.ReconcileAccount(ctx, account.ID)
		require.NoError(t, err)
		assert.True(t, result.Consistent, "run %d: computed %s over %d entries, projected %s over %d entries",
			i, result.ComputedBalance, result.EntryCount, result.ProjectedBalance, result.ProjectedEntryCount)
	}
}
