package service

import (
	"context"
	"strings"
	"time"

	"github.com/aquaoffice/tresorerie.go/common"
	"github.com/aquaoffice/tresorerie.go/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type TransferRequest struct {
	FromAccountID int64
	ToAccountID   int64
	Amount        decimal.NullDecimal
	Motif         string
	OccurredOn    time.Time
	CreatedBy     string
}

// TransferResult holds both legs of a transfer, linked by SourceID.
type TransferResult struct {
	SourceID string
	Debit    *models.LedgerEntry
	Credit   *models.LedgerEntry
}

// Transfer moves money between two accounts as a DEBIT on the source and a
// CREDIT on the destination, committed together or not at all.
func (svc *TreasuryService) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	verr := &ValidationError{}
	if req.FromAccountID <= 0 {
		verr.Add("from_account_id", "is required")
	}
	if req.ToAccountID <= 0 {
		verr.Add("to_account_id", "is required")
	}
	if req.FromAccountID > 0 && req.FromAccountID == req.ToAccountID {
		verr.Add("to_account_id", "must differ from from_account_id")
	}
	validateAmount(verr, "amount", req.Amount, true)
	if strings.TrimSpace(req.CreatedBy) == "" {
		verr.Add("created_by", "is required")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	sourceID := uuid.NewString()
	leg := func(accountID int64, direction string) EntryRequest {
		return EntryRequest{
			AccountID:  accountID,
			Amount:     req.Amount,
			Direction:  direction,
			Motif:      req.Motif,
			OccurredOn: req.OccurredOn,
			CreatedBy:  req.CreatedBy,
			SourceType: common.SourceTypeTransfer,
			SourceID:   sourceID,
		}
	}
	debitReq, err := normalizeEntryRequest(leg(req.FromAccountID, common.DirectionDebit))
	if err != nil {
		return nil, err
	}
	creditReq, err := normalizeEntryRequest(leg(req.ToAccountID, common.DirectionCredit))
	if err != nil {
		return nil, err
	}

	unlock, err := svc.locks.lock(ctx, req.FromAccountID, req.ToAccountID)
	if err != nil {
		return nil, err
	}
	result := &TransferResult{SourceID: sourceID}
	err = svc.runInTxWithRetry(ctx, func(ctx context.Context, tx bun.Tx, attempt int) error {
		if _, err := findAccount(ctx, tx, req.FromAccountID); err != nil {
			return err
		}
		if _, err := findAccount(ctx, tx, req.ToAccountID); err != nil {
			return err
		}

		// row locks follow the same ascending order as the in-process locks
		balances := map[int64]*models.AccountBalance{}
		for _, id := range uniqueSorted([]int64{req.FromAccountID, req.ToAccountID}) {
			balance, err := lockBalance(ctx, tx, id)
			if err != nil {
				return err
			}
			balances[id] = balance
		}

		var err error
		result.Debit, err = svc.appendEntry(ctx, tx, balances[req.FromAccountID], debitReq, attempt)
		if err != nil {
			return err
		}
		result.Credit, err = svc.appendEntry(ctx, tx, balances[req.ToAccountID], creditReq, attempt)
		return err
	})
	unlock()
	if err != nil {
		return nil, err
	}

	svc.EntryPubSub.Publish(result.Debit.AccountID, *result.Debit)
	svc.EntryPubSub.Publish(result.Credit.AccountID, *result.Credit)
	return result, nil
}
