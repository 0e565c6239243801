package service

import (
	"context"
	"database/sql"

	"github.com/aquaoffice/tresorerie.go/db/models"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

const reconciliationBatchSize = 500

// Reconciliation is the outcome of replaying the ledger of one account.
type Reconciliation struct {
	AccountID           int64
	EntryCount          int64
	ComputedBalance     decimal.Decimal
	ProjectedBalance    decimal.Decimal
	ProjectedEntryCount int64
	// FirstBrokenEntryID is the first entry whose running balance does not
	// match the replayed sum, 0 when the chain holds
	FirstBrokenEntryID int64
	Consistent         bool
}

// ReconcileAccount replays every entry of the account from an opening balance of 0
// and compares the result with the recorded running balances and the projection.
// Entries and projection are read from one snapshot, so writes committed
// meanwhile are either seen by both reads or by neither.
func (svc *TreasuryService) ReconcileAccount(ctx context.Context, accountID int64) (*Reconciliation, error) {
	opts := &sql.TxOptions{}
	if svc.DB.Dialect().Name() == dialect.PG {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}

	result := &Reconciliation{AccountID: accountID, ComputedBalance: decimal.Zero, ProjectedBalance: decimal.Zero}
	err := svc.DB.RunInTx(ctx, opts, func(ctx context.Context, tx bun.Tx) error {
		if _, err := findAccount(ctx, tx, accountID); err != nil {
			return err
		}
		lastID := int64(0)
		for {
			batch := []models.LedgerEntry{}
			err := tx.NewSelect().
				Model(&batch).
				Where("account_id = ?", accountID).
				Where("id > ?", lastID).
				OrderExpr("id ASC").
				Limit(reconciliationBatchSize).
				Scan(ctx)
			if err != nil {
				return err
			}
			for i := range batch {
				entry := &batch[i]
				result.ComputedBalance = result.ComputedBalance.Add(entry.Signed())
				result.EntryCount++
				if result.FirstBrokenEntryID == 0 && !entry.RunningBalance.Equal(result.ComputedBalance) {
					result.FirstBrokenEntryID = entry.ID
				}
				lastID = entry.ID
			}
			if len(batch) < reconciliationBatchSize {
				break
			}
		}

		balance := &models.AccountBalance{}
		err := tx.NewSelect().Model(balance).Where("account_id = ?", accountID).Scan(ctx)
		switch {
		case err == nil:
			result.ProjectedBalance = balance.Balance
			result.ProjectedEntryCount = balance.EntryCount
		case !isNoRows(err):
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Consistent = result.FirstBrokenEntryID == 0 &&
		result.ComputedBalance.Equal(result.ProjectedBalance) &&
		result.EntryCount == result.ProjectedEntryCount
	return result, nil
}

// ReconcileAll reconciles every account in id order.
func (svc *TreasuryService) ReconcileAll(ctx context.Context) ([]Reconciliation, error) {
	accounts, err := svc.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]Reconciliation, 0, len(accounts))
	for _, a := range accounts {
		r, err := svc.ReconcileAccount(ctx, a.Account.ID)
		if err != nil {
			return results, err
		}
		results = append(results, *r)
	}
	return results, nil
}
