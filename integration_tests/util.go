package integration_tests

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/aquaoffice/tresorerie.go/controllers"
	"github.com/aquaoffice/tresorerie.go/db"
	"github.com/aquaoffice/tresorerie.go/db/migrations"
	"github.com/aquaoffice/tresorerie.go/db/models"
	"github.com/aquaoffice/tresorerie.go/lib/logging"
	"github.com/aquaoffice/tresorerie.go/lib/responses"
	"github.com/aquaoffice/tresorerie.go/lib/service"
	"github.com/aquaoffice/tresorerie.go/lib/tokens"
	"github.com/aquaoffice/tresorerie.go/lib/transport"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/migrate"
)

const (
	testAdminToken = "treasurer-secret"
	testOperator   = "caissier"
)

// TreasuryTestServiceInit opens the database named by DATABASE_URI, or a private
// in-memory sqlite database when it is unset, and migrates it.
// Suites share a PostgreSQL database, run them with go test -p 1.
func TreasuryTestServiceInit() (svc *service.TreasuryService, err error) {
	dbUri, ok := os.LookupEnv("DATABASE_URI")
	if !ok {
		dbUri = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	}
	c := &service.Config{
		DatabaseUri:          dbUri,
		AdminToken:           testAdminToken,
		EntryReferencePrefix: "TRANS",
		DefaultPageSize:      15,
		MaxPageSize:          100,
		ReferenceMaxRetries:  5,
		WebhookTimeout:       2,
	}

	dbConn, err := db.Open(c)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ctx := context.Background()
	migrator := migrate.NewMigrator(dbConn, migrations.Migrations)
	err = migrator.Init(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init migrations: %w", err)
	}
	_, err = migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	logger := logging.Logger(c.LogFilePath)
	return service.NewTreasuryService(c, dbConn, logger), nil
}

func clearTable(svc *service.TreasuryService, tableName string) error {
	_, err := svc.DB.Exec(fmt.Sprintf("DELETE FROM %s", tableName))
	return err
}

func isPostgres(svc *service.TreasuryService) bool {
	return svc.DB.Dialect().Name() == dialect.PG
}

// clearAll empties the ledger. PostgreSQL rejects DELETE on ledger entries,
// TRUNCATE bypasses the row trigger and restarts ids and reference sequences.
func clearAll(svc *service.TreasuryService) error {
	if isPostgres(svc) {
		_, err := svc.DB.Exec("TRUNCATE ledger_entries, account_balances, accounts RESTART IDENTITY CASCADE")
		return err
	}
	for _, table := range []string{"ledger_entries", "account_balances", "accounts"} {
		if err := clearTable(svc, table); err != nil {
			return err
		}
	}
	return nil
}

type TestSuite struct {
	suite.Suite
	echo    *echo.Echo
	service *service.TreasuryService
}

// setupEcho wires the full API the way the server does, without rate limits.
func (suite *TestSuite) setupEcho() {
	svc, err := TreasuryTestServiceInit()
	if err != nil {
		suite.T().Fatalf("Error initializing test service: %v", err)
	}
	suite.service = svc
	if err := clearAll(svc); err != nil {
		suite.T().Fatalf("Error clearing test database: %v", err)
	}
	suite.echo = transport.InitEcho(svc.Config, svc.Logger)
	noop := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	transport.RegisterEndpoints(svc, suite.echo, noop, tokens.AdminTokenMiddleware(svc.Config.AdminToken), noop)
}

// rewriteEntry changes a stored entry behind the service, lifting the
// append-only trigger on PostgreSQL for the duration of the change.
func (suite *TestSuite) rewriteEntry(id int64, column string, value interface{}) error {
	pg := isPostgres(suite.service)
	return suite.service.DB.RunInTx(context.Background(), &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if pg {
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
		if pg {
			_, err = tx.ExecContext(ctx, "ALTER TABLE ledger_entries ENABLE TRIGGER reject_ledger_entry_mutation")
		}
		return err
	})
}

func (suite *TestSuite) do(method, target string, body interface{}) *httptest.ResponseRecorder {
	return suite.doWithToken(method, target, testAdminToken, body)
}

func (suite *TestSuite) doWithToken(method, target, token string, body interface{}) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var buf bytes.Buffer
	if body != nil {
		assert.NoError(suite.T(), json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	req.Header.Set("X-Operator", testOperator)
	suite.echo.ServeHTTP(rec, req)
	return rec
}

func (suite *TestSuite) decode(rec *httptest.ResponseRecorder, v interface{}) {
	assert.NoError(suite.T(), json.NewDecoder(rec.Body).Decode(v))
}

func (suite *TestSuite) checkErrResponse(rec *httptest.ResponseRecorder, status int) *responses.ErrorResponse {
	errorResponse := &responses.ErrorResponse{}
	assert.Equal(suite.T(), status, rec.Code, rec.Body.String())
	suite.decode(rec, errorResponse)
	assert.True(suite.T(), errorResponse.Error)
	return errorResponse
}

func (suite *TestSuite) createAccountReq(designation, accountType string) *controllers.AccountResponse {
	rec := suite.do(http.MethodPost, "/accounts", &controllers.CreateAccountRequestBody{
		Designation: designation,
		Type:        accountType,
	})
	assert.Equal(suite.T(), http.StatusCreated, rec.Code, rec.Body.String())
	account := &controllers.AccountResponse{}
	suite.decode(rec, account)
	return account
}

// entryBody is posted as a map so amounts go over the wire as JSON numbers.
func entryBody(amount string, direction, motif string) map[string]interface{} {
	return map[string]interface{}{
		"amount":    json.Number(amount),
		"direction": direction,
		"motif":     motif,
	}
}

func (suite *TestSuite) recordEntryReq(accountID int64, body map[string]interface{}, status int) *controllers.EntryResponse {
	rec := suite.do(http.MethodPost, fmt.Sprintf("/accounts/%d/entries", accountID), body)
	assert.Equal(suite.T(), status, rec.Code, rec.Body.String())
	entry := &controllers.EntryResponse{}
	suite.decode(rec, entry)
	return entry
}

func (suite *TestSuite) balanceReq(accountID int64) string {
	rec := suite.do(http.MethodGet, fmt.Sprintf("/accounts/%d/balance", accountID), nil)
	assert.Equal(suite.T(), http.StatusOK, rec.Code, rec.Body.String())
	balance := &controllers.BalanceResponse{}
	suite.decode(rec, balance)
	return balance.Balance.String()
}
