package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {

		if db.Dialect().Name().String() != "pg" {
			fmt.Printf("\033[1;31m%s\033[0m", "You are not using PostgreSQL. DB level ledger checks can not be enabled!\n")
			return nil
		}
		sql := `
			ALTER TABLE ledger_entries DROP CONSTRAINT IF EXISTS ledger_entries_amount_check;
			ALTER TABLE ledger_entries ADD CONSTRAINT ledger_entries_amount_check CHECK (amount >= 0);

			ALTER TABLE ledger_entries DROP CONSTRAINT IF EXISTS ledger_entries_direction_check;
			ALTER TABLE ledger_entries ADD CONSTRAINT ledger_entries_direction_check CHECK (direction IN ('CREDIT', 'DEBIT'));

			-- ledger entries are append-only, corrections are new compensating entries
			CREATE OR REPLACE FUNCTION reject_ledger_entry_mutation()
				RETURNS TRIGGER AS $$
			BEGIN
				RAISE EXCEPTION 'ledger entries are append-only [id:%]', OLD.id;
			END;
			$$ LANGUAGE plpgsql;

			DROP TRIGGER IF EXISTS reject_ledger_entry_mutation ON ledger_entries;

			CREATE TRIGGER reject_ledger_entry_mutation
			BEFORE UPDATE OR DELETE ON ledger_entries
			FOR EACH ROW EXECUTE PROCEDURE reject_ledger_entry_mutation();
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
			DROP TRIGGER IF EXISTS reject_ledger_entry_mutation ON ledger_entries;
			DROP FUNCTION IF EXISTS reject_ledger_entry_mutation();
			ALTER TABLE ledger_entries DROP CONSTRAINT IF EXISTS ledger_entries_direction_check;
			ALTER TABLE ledger_entries DROP CONSTRAINT IF EXISTS ledger_entries_amount_check;
		`)
		return err
	})
}
