package service_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/aquaoffice/tresorerie.go/db"
	"github.com/aquaoffice/tresorerie.go/db/migrations"
	"github.com/aquaoffice/tresorerie.go/db/models"
	"github.com/aquaoffice/tresorerie.go/lib/logging"
	"github.com/aquaoffice/tresorerie.go/lib/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/migrate"
)

// testDatabaseUri points at DATABASE_URI when set, e.g. a PostgreSQL test database,
// and at a private in-memory sqlite database otherwise.
// PostgreSQL runs share one database, run them with go test -p 1.
func testDatabaseUri() string {
	if uri, ok := os.LookupEnv("DATABASE_URI"); ok {
		return uri
	}
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
}

func isPostgres(svc *service.TreasuryService) bool {
	return svc.DB.Dialect().Name() == dialect.PG
}

func newTestService(t *testing.T) *service.TreasuryService {
	t.Helper()
	c := &service.Config{
		DatabaseUri:          testDatabaseUri(),
		EntryReferencePrefix: "TRANS",
		DefaultPageSize:      15,
		MaxPageSize:          100,
		ReferenceMaxRetries:  5,
	}
	dbConn, err := db.Open(c)
	require.NoError(t, err)
	t.Cleanup(func() { dbConn.Close() })

	ctx := context.Background()
	migrator := migrate.NewMigrator(dbConn, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	svc := service.NewTreasuryService(c, dbConn, logging.Logger(""))
	if isPostgres(svc) {
		// also restarts the reference sequences owned by the id columns
		_, err = dbConn.ExecContext(ctx, "TRUNCATE ledger_entries, account_balances, accounts RESTART IDENTITY CASCADE")
		require.NoError(t, err)
	}
	return svc
}

// rewriteEntry changes a stored entry behind the service, lifting the
// append-only trigger on PostgreSQL for the duration of the change.
func rewriteEntry(t *testing.T, svc *service.TreasuryService, id int64, column string, value interface{}) {
	t.Helper()
	ctx := context.Background()
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if isPostgres(svc) {
			if _, err := tx.ExecContext(ctx, "ALTER TABLE ledger_entries DISABLE TRIGGER reject_ledger_entry_mutation"); err != nil {
				return err
			}
		}
		_, err := tx.NewUpdate().Model((*models.LedgerEntry)(nil)).
			Set("? = ?", bun.Ident(column), value).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		if isPostgres(svc) {
			_, err = tx.ExecContext(ctx, "ALTER TABLE ledger_entries ENABLE TRIGGER reject_ledger_entry_mutation")
		}
		return err
	})
	require.NoError(t, err)
}

func createAccount(t *testing.T, svc *service.TreasuryService, designation string) *models.Account {
	t.Helper()
	account, err := svc.CreateAccount(context.Background(), service.AccountRequest{Designation: designation, Type: "cash"})
	require.NoError(t, err)
	return account
}

func amount(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func entry(accountID int64, value, direction string) service.EntryRequest {
	return service.EntryRequest{
		AccountID: accountID,
		Amount:    amount(value),
		Direction: direction,
		Motif:     "test",
		CreatedBy: "tester",
	}
}

func record(t *testing.T, svc *service.TreasuryService, req service.EntryRequest) *models.LedgerEntry {
	t.Helper()
	e, replayed, err := svc.RecordEntry(context.Background(), req)
	require.NoError(t, err)
	require.False(t, replayed)
	return e
}
