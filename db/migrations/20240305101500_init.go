package migrations

import (
	"context"

	"github.com/aquaoffice/tresorerie.go/db/models"
	"github.com/uptrace/bun"
)

/* This init reflects the current model fields when run on a fresh db.
Subsequent migrations that add or drop columns must use IfNotExists/IfExists.
*/
func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {

		if _, err := db.NewCreateTable().Model((*models.Account)(nil)).IfNotExists().Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.LedgerEntry)(nil)).
			IfNotExists().
			ForeignKey(`("account_id") REFERENCES "accounts" ("id")`).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.AccountBalance)(nil)).
			IfNotExists().
			ForeignKey(`("account_id") REFERENCES "accounts" ("id") ON DELETE CASCADE`).
			Exec(ctx); err != nil {
			return err
		}
		// entries are always read per account in id order
		if _, err := db.NewCreateIndex().
			Model((*models.LedgerEntry)(nil)).
			Index("ledger_entries_account_id_id_idx").
			Column("account_id", "id").
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		if _, err := db.NewDropTable().Model((*models.AccountBalance)(nil)).IfExists().Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewDropTable().Model((*models.LedgerEntry)(nil)).IfExists().Exec(ctx); err != nil {
			return err
		}
		_, err := db.NewDropTable().Model((*models.Account)(nil)).IfExists().Exec(ctx)
		return err
	})
}
