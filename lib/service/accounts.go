package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/aquaoffice/tresorerie.go/common"
	"github.com/aquaoffice/tresorerie.go/db/models"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type AccountRequest struct {
	Designation string
	Type        string
	Reference   string
}

// AccountUpdate holds the mutable attributes of an account, nil means unchanged.
type AccountUpdate struct {
	Designation *string
	Type        *string
}

type AccountWithBalance struct {
	Account    models.Account
	Balance    decimal.Decimal
	EntryCount int64
}

func normalizeAccountType(accountType string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(accountType))
	switch t {
	case common.AccountTypeCash, common.AccountTypeBank:
		return t, true
	}
	return t, false
}

func (svc *TreasuryService) CreateAccount(ctx context.Context, req AccountRequest) (*models.Account, error) {
	verr := &ValidationError{}
	designation := strings.TrimSpace(req.Designation)
	if designation == "" {
		verr.Add("designation", "is required")
	}
	accountType, ok := normalizeAccountType(req.Type)
	if !ok {
		verr.Add("type", "must be one of cash, bank")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	reference := strings.TrimSpace(req.Reference)

	var account *models.Account
	err := svc.runInTxWithRetry(ctx, func(ctx context.Context, tx bun.Tx, attempt int) error {
		account = &models.Account{
			Designation: designation,
			Type:        accountType,
			Reference:   reference,
		}
		if reference != "" {
			exists, err := tx.NewSelect().Model((*models.Account)(nil)).Where("reference = ?", reference).Exists(ctx)
			if err != nil {
				return err
			}
			if exists {
				return conflict("account reference %s is already used", reference)
			}
		} else {
			generated, err := nextReference(ctx, tx, (*models.Account)(nil), accountReferenceSequence, svc.accountPrefix(), attempt)
			if err != nil {
				return err
			}
			account.Reference = generated
		}
		if _, err := tx.NewInsert().Model(account).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return errReferenceTaken
			}
			return err
		}
		balance := &models.AccountBalance{
			AccountID: account.ID,
			Balance:   decimal.Zero,
			UpdatedAt: time.Now().UTC(),
		}
		_, err := tx.NewInsert().Model(balance).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (svc *TreasuryService) FindAccount(ctx context.Context, id int64) (*models.Account, error) {
	return findAccount(ctx, svc.DB, id)
}

func findAccount(ctx context.Context, db bun.IDB, id int64) (*models.Account, error) {
	account := &models.Account{}
	err := db.NewSelect().Model(account).Where("id = ?", id).Limit(1).Scan(ctx)
	if isNoRows(err) {
		return nil, notFound("account", id)
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (svc *TreasuryService) FindAccountWithBalance(ctx context.Context, id int64) (*AccountWithBalance, error) {
	account, err := svc.FindAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	result := &AccountWithBalance{Account: *account, Balance: decimal.Zero}
	balance := &models.AccountBalance{}
	err = svc.DB.NewSelect().Model(balance).Where("account_id = ?", id).Scan(ctx)
	switch {
	case err == nil:
		result.Balance = balance.Balance
		result.EntryCount = balance.EntryCount
	case !isNoRows(err):
		return nil, err
	}
	return result, nil
}

func (svc *TreasuryService) ListAccounts(ctx context.Context) ([]AccountWithBalance, error) {
	accounts := []models.Account{}
	if err := svc.DB.NewSelect().Model(&accounts).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	balances := []models.AccountBalance{}
	if err := svc.DB.NewSelect().Model(&balances).Scan(ctx); err != nil {
		return nil, err
	}
	byAccount := make(map[int64]models.AccountBalance, len(balances))
	for _, b := range balances {
		byAccount[b.AccountID] = b
	}

	result := make([]AccountWithBalance, 0, len(accounts))
	for _, a := range accounts {
		b := byAccount[a.ID]
		result = append(result, AccountWithBalance{Account: a, Balance: b.Balance, EntryCount: b.EntryCount})
	}
	return result, nil
}

func (svc *TreasuryService) UpdateAccount(ctx context.Context, id int64, update AccountUpdate) (*models.Account, error) {
	verr := &ValidationError{}
	var designation, accountType string
	if update.Designation != nil {
		designation = strings.TrimSpace(*update.Designation)
		if designation == "" {
			verr.Add("designation", "must not be empty")
		}
	}
	if update.Type != nil {
		var ok bool
		if accountType, ok = normalizeAccountType(*update.Type); !ok {
			verr.Add("type", "must be one of cash, bank")
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	var account *models.Account
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error
		account, err = findAccount(ctx, tx, id)
		if err != nil {
			return err
		}
		columns := []string{"updated_at"}
		if update.Designation != nil {
			account.Designation = designation
			columns = append(columns, "designation")
		}
		if update.Type != nil {
			account.Type = accountType
			columns = append(columns, "type")
		}
		_, err = tx.NewUpdate().Model(account).Column(columns...).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// DeleteAccount removes an account that never received an entry.
func (svc *TreasuryService) DeleteAccount(ctx context.Context, id int64) error {
	unlock, err := svc.locks.lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	return svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := findAccount(ctx, tx, id); err != nil {
			return err
		}
		count, err := tx.NewSelect().Model((*models.LedgerEntry)(nil)).Where("account_id = ?", id).Count(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			return conflict("account %d has %d ledger entries and can not be deleted", id, count)
		}
		if _, err := tx.NewDelete().Model((*models.AccountBalance)(nil)).Where("account_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		_, err = tx.NewDelete().Model((*models.Account)(nil)).Where("id = ?", id).Exec(ctx)
		return err
	})
}
