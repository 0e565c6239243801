package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

// Generated references draw their number from these sequences on PostgreSQL.
// They are owned by the id columns so TRUNCATE ... RESTART IDENTITY resets them too.
func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		if db.Dialect().Name().String() != "pg" {
			return nil
		}
		sql := `
			CREATE SEQUENCE IF NOT EXISTS ledger_entry_reference_seq OWNED BY ledger_entries.id;
			SELECT setval('ledger_entry_reference_seq', COALESCE((SELECT MAX(id) FROM ledger_entries), 0) + 1, false);

			CREATE SEQUENCE IF NOT EXISTS account_reference_seq OWNED BY accounts.id;
			SELECT setval('account_reference_seq', COALESCE((SELECT MAX(id) FROM accounts), 0) + 1, false);
		`
		if _, err := db.ExecContext(ctx, sql); err != nil {
			return err
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		if db.Dialect().Name().String() != "pg" {
			return nil
		}
		_, err := db.ExecContext(ctx, `
			DROP SEQUENCE IF EXISTS account_reference_seq;
			DROP SEQUENCE IF EXISTS ledger_entry_reference_seq;
		`)
		return err
	})
}
