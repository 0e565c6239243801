package service

import (
	"context"

	"github.com/aquaoffice/tresorerie.go/db/models"
	"github.com/uptrace/bun"
)

var (
	LockBalance         = lockBalance
	ErrConcurrentUpdate = errConcurrentUpdate
)

// AccountLockRefs counts the holder and the waiters of the account lock.
func (svc *TreasuryService) AccountLockRefs(accountID int64) int {
	svc.locks.mu.Lock()
	defer svc.locks.mu.Unlock()
	if al, ok := svc.locks.locks[accountID]; ok {
		return al.refs
	}
	return 0
}

// AppendEntry appends on top of balance without taking the account lock.
func (svc *TreasuryService) AppendEntry(ctx context.Context, tx bun.Tx, balance *models.AccountBalance, req EntryRequest) (*models.LedgerEntry, error) {
	req, err := normalizeEntryRequest(req)
	if err != nil {
		return nil, err
	}
	return svc.appendEntry(ctx, tx, balance, req, 0)
}
