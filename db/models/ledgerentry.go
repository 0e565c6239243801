package models

import (
	"context"
	"time"

	"github.com/aquaoffice/tresorerie.go/common"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// LedgerEntry : one balance-affecting movement on an account.
// Rows are never updated or deleted once inserted.
type LedgerEntry struct {
	bun.BaseModel `bun:"table:ledger_entries,alias:le"`

	ID             int64           `bun:",pk,autoincrement"`
	AccountID      int64           `bun:",notnull"`
	Account        *Account        `bun:"rel:belongs-to,join:account_id=id"`
	Amount         decimal.Decimal `bun:"type:numeric(18,2),notnull"`
	Direction      string          `bun:",notnull"`
	RunningBalance decimal.Decimal `bun:"type:numeric(18,2),notnull"`
	Motif          string          `bun:",notnull"`
	Reference      string          `bun:",unique,notnull"`
	OccurredOn     time.Time       `bun:"type:date,notnull"`
	CreatedBy      string          `bun:",notnull"`
	SourceType     string          `bun:",notnull"`
	SourceID       string          `bun:",nullzero"`
	CreatedAt      time.Time       `bun:",nullzero,notnull,default:current_timestamp"`
}

func (e *LedgerEntry) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery:
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now().UTC()
		}
	}
	return nil
}

// Signed returns the amount with the sign its direction applies to the balance.
func (e *LedgerEntry) Signed() decimal.Decimal {
	if e.Direction == common.DirectionDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}

var _ bun.BeforeAppendModelHook = (*LedgerEntry)(nil)
