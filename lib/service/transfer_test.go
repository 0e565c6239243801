package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aquaoffice/tresorerie.go/common"
	"github.com/aquaoffice/tresorerie.go/db/models"
	"github.com/aquaoffice/tresorerie.go/lib/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransfer(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	cash := createAccount(t, svc, "Caisse")
	bank := createAccount(t, svc, "Banque")
	record(t, svc, entry(cash.ID, "500", common.DirectionCredit))

	result, err := svc.Transfer(ctx, service.TransferRequest{
		FromAccountID: cash.ID,
		ToAccountID:   bank.ID,
		Amount:        amount("320.40"),
		Motif:         "Dépôt en banque",
		CreatedBy:     "tester",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.SourceID)
	assert.Equal(t, common.DirectionDebit, result.Debit.Direction)
	assert.Equal(t, common.SourceTypeTransfer, result.Debit.SourceType)
	assert.Equal(t, result.SourceID, result.Debit.SourceID)
	assert.Equal(t, result.SourceID, result.Credit.SourceID)
	assert.Equal(t, "179.60", result.Debit.RunningBalance.StringFixed(2))
	assert.Equal(t, "320.40", result.Credit.RunningBalance.StringFixed(2))
	assert.NotEqual(t, result.Debit.Reference, result.Credit.Reference)

	for _, id := range []int64{cash.ID, bank.ID} {
		reconciliation, err := svc.ReconcileAccount(ctx, id)
		require.NoError(t, err)
		assert.True(t, reconciliation.Consistent)
	}
}

func TestTransferRejections(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	cash := createAccount(t, svc, "Caisse")
	bank := createAccount(t, svc, "Banque")

	_, err := svc.Transfer(ctx, service.TransferRequest{FromAccountID: cash.ID, ToAccountID: cash.ID, Amount: amount("1"), CreatedBy: "tester"})
	assert.ErrorIs(t, err, service.ErrValidation)
	_, err = svc.Transfer(ctx, service.TransferRequest{FromAccountID: cash.ID, ToAccountID: bank.ID, Amount: amount("0"), CreatedBy: "tester"})
	assert.ErrorIs(t, err, service.ErrValidation)
	_, err = svc.Transfer(ctx, service.TransferRequest{FromAccountID: cash.ID, ToAccountID: 999, Amount: amount("1"), CreatedBy: "tester"})
	assert.ErrorIs(t, err, service.ErrNotFound)

	count, err := svc.DB.NewSelect().Model((*models.LedgerEntry)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

// opposite transfers lock the same pair of accounts in the same order
func TestConcurrentOppositeTransfers(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	a := createAccount(t, svc, "Caisse")
	b := createAccount(t, svc, "Banque")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := a.ID, b.ID
			if i%2 == 1 {
				from, to = to, from
			}
			_, err := svc.Transfer(ctx, service.TransferRequest{FromAccountID: from, ToAccountID: to, Amount: amount("10"), CreatedBy: "tester"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	results, err := svc.ReconcileAll(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Consistent)
		assert.True(t, r.ComputedBalance.IsZero())
		assert.Equal(t, int64(10), r.EntryCount)
	}
}
