package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// AccountBalance : current balance projection of an account.
// It is written in the same transaction as the entry it reflects and its row
// is the lock target for writers of the account.
type AccountBalance struct {
	bun.BaseModel `bun:"table:account_balances,alias:ab"`

	AccountID   int64           `bun:",pk"`
	Balance     decimal.Decimal `bun:"type:numeric(18,2),notnull"`
	LastEntryID int64           `bun:",nullzero"`
	EntryCount  int64           `bun:",notnull"`
	Version     int64           `bun:",notnull"`
	UpdatedAt   time.Time       `bun:",notnull"`
}
