package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Account : a named pocket of money (cash register, bank account)
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID          int64        `bun:",pk,autoincrement"`
	Designation string       `bun:",notnull"`
	Type        string       `bun:",notnull"`
	Reference   string       `bun:",unique,notnull"`
	CreatedAt   time.Time    `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt   bun.NullTime `bun:",nullzero"`
}

func (a *Account) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery:
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now().UTC()
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = bun.NullTime{Time: time.Now().UTC()}
	}
	return nil
}

var _ bun.BeforeAppendModelHook = (*Account)(nil)
