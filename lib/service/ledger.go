package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aquaoffice/tresorerie.go/common"
	"github.com/aquaoffice/tresorerie.go/db/models"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// EntryRequest describes a movement to append to an account ledger.
type EntryRequest struct {
	AccountID  int64
	Amount     decimal.NullDecimal
	Direction  string
	Motif      string
	OccurredOn time.Time
	CreatedBy  string
	// Reference doubles as idempotency key, generated when empty
	Reference  string
	SourceType string
	SourceID   string
}

// TxHook runs inside the transaction that inserts the entry.
// Returning an error rolls back the entry together with the caller's changes.
type TxHook func(ctx context.Context, tx bun.Tx, entry *models.LedgerEntry) error

// amounts and balances are stored as numeric(18,2), at most 16 integer digits
var maxAmount = decimal.New(1, 16)

var sortableEntryColumns = map[string]bool{
	"id":              true,
	"amount":          true,
	"direction":       true,
	"running_balance": true,
	"motif":           true,
	"reference":       true,
	"occurred_on":     true,
	"created_by":      true,
	"created_at":      true,
}

type EntryFilter struct {
	Query         string
	Direction     string
	From          time.Time
	To            time.Time
	SortField     string
	SortDirection string
	Page          int
	PerPage       int
}

type EntryPage struct {
	Entries  []models.LedgerEntry
	Total    int
	Page     int
	PerPage  int
	LastPage int
}

// ParseDirection maps a direction tag to CREDIT or DEBIT.
// Legacy RECETTE and DEPENSE tags are accepted.
func ParseDirection(tag string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(tag)) {
	case common.DirectionCredit, common.LegacyDirectionRecette:
		return common.DirectionCredit, nil
	case common.DirectionDebit, common.LegacyDirectionDepense:
		return common.DirectionDebit, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, tag)
}

func validSourceType(sourceType string) bool {
	switch sourceType {
	case common.SourceTypeManual,
		common.SourceTypeInvoice,
		common.SourceTypeSale,
		common.SourceTypeMaintenance,
		common.SourceTypeTransfer:
		return true
	}
	return false
}

// BusinessDate truncates t to its calendar day.
func BusinessDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validateAmount(verr *ValidationError, field string, amount decimal.NullDecimal, strictlyPositive bool) {
	switch {
	case !amount.Valid:
		verr.Add(field, "is required")
	case amount.Decimal.IsNegative():
		verr.Add(field, "must not be negative")
	case amount.Decimal.GreaterThanOrEqual(maxAmount):
		verr.Add(field, "must be lower than "+maxAmount.String())
	case strictlyPositive && amount.Decimal.IsZero():
		verr.Add(field, "must be greater than zero")
	case amount.Decimal.Exponent() < -2 && !amount.Decimal.Equal(amount.Decimal.Round(2)):
		verr.Add(field, "must have at most 2 decimal places")
	}
}

func normalizeEntryRequest(req EntryRequest) (EntryRequest, error) {
	verr := &ValidationError{}
	validateAmount(verr, "amount", req.Amount, false)
	req.CreatedBy = strings.TrimSpace(req.CreatedBy)
	if req.CreatedBy == "" {
		verr.Add("created_by", "is required")
	}
	if strings.TrimSpace(req.Direction) == "" {
		verr.Add("direction", "is required")
	}
	if req.SourceType == "" {
		req.SourceType = common.SourceTypeManual
	}
	if !validSourceType(req.SourceType) {
		verr.Add("source_type", "must be one of manual, invoice, sale, maintenance, transfer")
	}
	if err := verr.OrNil(); err != nil {
		return req, err
	}

	direction, err := ParseDirection(req.Direction)
	if err != nil {
		return req, err
	}
	req.Direction = direction
	req.Amount.Decimal = req.Amount.Decimal.Round(2)

	req.Motif = strings.TrimSpace(req.Motif)
	if req.Motif == "" {
		req.Motif = common.DefaultMotif
	}
	if req.OccurredOn.IsZero() {
		req.OccurredOn = time.Now()
	}
	req.OccurredOn = BusinessDate(req.OccurredOn)
	req.Reference = strings.TrimSpace(req.Reference)
	return req, nil
}

func signedAmount(direction string, amount decimal.Decimal) decimal.Decimal {
	if direction == common.DirectionDebit {
		return amount.Neg()
	}
	return amount
}

// RecordEntry appends an entry to the ledger of req.AccountID.
// replayed reports that an identical entry with the same reference already existed.
func (svc *TreasuryService) RecordEntry(ctx context.Context, req EntryRequest) (entry *models.LedgerEntry, replayed bool, err error) {
	return svc.RecordEntryWith(ctx, req, nil)
}

// RecordEntryWith is RecordEntry with a hook sharing the insert transaction.
// The hook does not run on an idempotent replay.
func (svc *TreasuryService) RecordEntryWith(ctx context.Context, req EntryRequest, hook TxHook) (entry *models.LedgerEntry, replayed bool, err error) {
	req, err = normalizeEntryRequest(req)
	if err != nil {
		return nil, false, err
	}

	unlock, err := svc.locks.lock(ctx, req.AccountID)
	if err != nil {
		return nil, false, err
	}
	err = svc.runInTxWithRetry(ctx, func(ctx context.Context, tx bun.Tx, attempt int) error {
		entry, replayed = nil, false
		if _, err := findAccount(ctx, tx, req.AccountID); err != nil {
			return err
		}
		if req.Reference != "" {
			existing, err := findEntryByReference(ctx, tx, req.Reference)
			switch {
			case err == nil:
				if existing.AccountID != req.AccountID ||
					existing.Direction != req.Direction ||
					!existing.Amount.Equal(req.Amount.Decimal) {
					return conflict("reference %s is already used by entry %d", req.Reference, existing.ID)
				}
				entry, replayed = existing, true
				return nil
			case !isNotFound(err):
				return err
			}
		}

		balance, err := lockBalance(ctx, tx, req.AccountID)
		if err != nil {
			return err
		}
		entry, err = svc.appendEntry(ctx, tx, balance, req, attempt)
		if err != nil {
			return err
		}
		if hook != nil {
			return hook(ctx, tx, entry)
		}
		return nil
	})
	unlock()
	if err != nil {
		return nil, false, err
	}

	if !replayed {
		svc.EntryPubSub.Publish(entry.AccountID, *entry)
	}
	return entry, replayed, nil
}

// lockBalance loads the balance projection of an account and, on PostgreSQL,
// row-locks it until the transaction ends.
func lockBalance(ctx context.Context, tx bun.Tx, accountID int64) (*models.AccountBalance, error) {
	balance := &models.AccountBalance{}
	q := tx.NewSelect().Model(balance).Where("account_id = ?", accountID)
	if tx.Dialect().Name() == dialect.PG {
		q = q.For("UPDATE")
	}
	err := q.Scan(ctx)
	if err == nil {
		return balance, nil
	}
	if !isNoRows(err) {
		return nil, err
	}

	// no projection row yet, derive it from the last entry of the account
	balance = &models.AccountBalance{AccountID: accountID, Balance: decimal.Zero, UpdatedAt: time.Now().UTC()}
	last := &models.LedgerEntry{}
	err = tx.NewSelect().Model(last).Where("account_id = ?", accountID).OrderExpr("id DESC").Limit(1).Scan(ctx)
	switch {
	case err == nil:
		count, err := tx.NewSelect().Model((*models.LedgerEntry)(nil)).Where("account_id = ?", accountID).Count(ctx)
		if err != nil {
			return nil, err
		}
		balance.Balance = last.RunningBalance
		balance.LastEntryID = last.ID
		balance.EntryCount = int64(count)
	case !isNoRows(err):
		return nil, err
	}
	if _, err := tx.NewInsert().Model(balance).Exec(ctx); err != nil {
		return nil, err
	}
	return balance, nil
}

// appendEntry inserts the entry on top of balance and moves the projection forward.
// balance is updated in place.
func (svc *TreasuryService) appendEntry(ctx context.Context, tx bun.Tx, balance *models.AccountBalance, req EntryRequest, attempt int) (*models.LedgerEntry, error) {
	next := balance.Balance.Add(signedAmount(req.Direction, req.Amount.Decimal))
	if next.Abs().GreaterThanOrEqual(maxAmount) {
		return nil, NewValidationError("amount", fmt.Sprintf("would move the balance of account %d out of range", balance.AccountID))
	}

	reference := req.Reference
	if reference == "" {
		generated, err := nextReference(ctx, tx, (*models.LedgerEntry)(nil), entryReferenceSequence, svc.entryPrefix(), attempt)
		if err != nil {
			return nil, err
		}
		reference = generated
	}

	entry := &models.LedgerEntry{
		AccountID:      req.AccountID,
		Amount:         req.Amount.Decimal,
		Direction:      req.Direction,
		RunningBalance: next,
		Motif:          req.Motif,
		Reference:      reference,
		OccurredOn:     req.OccurredOn,
		CreatedBy:      req.CreatedBy,
		SourceType:     req.SourceType,
		SourceID:       req.SourceID,
	}
	if _, err := tx.NewInsert().Model(entry).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, errReferenceTaken
		}
		return nil, err
	}

	now := time.Now().UTC()
	res, err := tx.NewUpdate().
		Model((*models.AccountBalance)(nil)).
		Set("balance = ?", next).
		Set("last_entry_id = ?", entry.ID).
		Set("entry_count = entry_count + 1").
		Set("version = version + 1").
		Set("updated_at = ?", now).
		Where("account_id = ?", balance.AccountID).
		Where("version = ?", balance.Version).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n != 1 {
		return nil, fmt.Errorf("account %d: %w", balance.AccountID, errConcurrentUpdate)
	}

	balance.Balance = next
	balance.LastEntryID = entry.ID
	balance.EntryCount++
	balance.Version++
	balance.UpdatedAt = now
	return entry, nil
}

// CurrentBalance returns the running balance after the last entry of the account, 0 without entries.
func (svc *TreasuryService) CurrentBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	if _, err := svc.FindAccount(ctx, accountID); err != nil {
		return decimal.Zero, err
	}
	balance := &models.AccountBalance{}
	err := svc.DB.NewSelect().Model(balance).Where("account_id = ?", accountID).Scan(ctx)
	if err == nil {
		return balance.Balance, nil
	}
	if !isNoRows(err) {
		return decimal.Zero, err
	}
	last := &models.LedgerEntry{}
	err = svc.DB.NewSelect().Model(last).Where("account_id = ?", accountID).OrderExpr("id DESC").Limit(1).Scan(ctx)
	if isNoRows(err) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return last.RunningBalance, nil
}

func (svc *TreasuryService) ListEntries(ctx context.Context, accountID int64, filter EntryFilter) (*EntryPage, error) {
	defaultPageSize, maxPageSize := svc.pageSizes()

	verr := &ValidationError{}
	sortField := strings.ToLower(strings.TrimSpace(filter.SortField))
	if sortField == "" {
		sortField = "id"
	}
	if !sortableEntryColumns[sortField] {
		verr.Add("sort_field", fmt.Sprintf("can not sort by %q", filter.SortField))
	}
	sortDirection := strings.ToUpper(strings.TrimSpace(filter.SortDirection))
	if sortDirection == "" {
		sortDirection = "DESC"
	}
	if sortDirection != "ASC" && sortDirection != "DESC" {
		verr.Add("sort_direction", "must be asc or desc")
	}
	page, perPage := filter.Page, filter.PerPage
	if page == 0 {
		page = 1
	}
	if page < 0 {
		verr.Add("page", "must be positive")
	}
	if perPage == 0 {
		perPage = defaultPageSize
	}
	if perPage < 0 {
		verr.Add("per_page", "must be positive")
	}
	if perPage > maxPageSize {
		perPage = maxPageSize
	}
	if page > 0 && perPage > 0 && page-1 > math.MaxInt/perPage {
		verr.Add("page", "is out of range")
	}
	direction := ""
	if filter.Direction != "" {
		d, err := ParseDirection(filter.Direction)
		if err != nil {
			verr.Add("direction", "must be CREDIT or DEBIT")
		}
		direction = d
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.From.After(filter.To) {
		verr.Add("from", "must not be after to")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if _, err := svc.FindAccount(ctx, accountID); err != nil {
		return nil, err
	}

	entries := []models.LedgerEntry{}
	q := svc.DB.NewSelect().Model(&entries).Where("account_id = ?", accountID)
	if search := strings.TrimSpace(filter.Query); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where(`LOWER(motif) LIKE ? ESCAPE '\'`, pattern).
				WhereOr(`LOWER(reference) LIKE ? ESCAPE '\'`, pattern).
				WhereOr(`LOWER(created_by) LIKE ? ESCAPE '\'`, pattern).
				WhereOr(`CAST(occurred_on AS TEXT) LIKE ? ESCAPE '\'`, pattern)
		})
	}
	if direction != "" {
		q = q.Where("direction = ?", direction)
	}
	if !filter.From.IsZero() {
		q = q.Where("occurred_on >= ?", BusinessDate(filter.From))
	}
	if !filter.To.IsZero() {
		q = q.Where("occurred_on <= ?", BusinessDate(filter.To))
	}
	q = q.OrderExpr("? ?", bun.Ident(sortField), bun.Safe(sortDirection))
	if sortField != "id" {
		q = q.OrderExpr("id ?", bun.Safe(sortDirection))
	}

	total, err := q.Limit(perPage).Offset((page - 1) * perPage).ScanAndCount(ctx)
	if err != nil {
		return nil, err
	}

	lastPage := int(math.Ceil(float64(total) / float64(perPage)))
	if lastPage < 1 {
		lastPage = 1
	}
	return &EntryPage{
		Entries:  entries,
		Total:    total,
		Page:     page,
		PerPage:  perPage,
		LastPage: lastPage,
	}, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (svc *TreasuryService) FindEntry(ctx context.Context, accountID, entryID int64) (*models.LedgerEntry, error) {
	entry := &models.LedgerEntry{}
	err := svc.DB.NewSelect().Model(entry).
		Where("id = ?", entryID).
		Where("account_id = ?", accountID).
		Limit(1).
		Scan(ctx)
	if isNoRows(err) {
		return nil, notFound("ledger entry", entryID)
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (svc *TreasuryService) FindEntryByReference(ctx context.Context, reference string) (*models.LedgerEntry, error) {
	return findEntryByReference(ctx, svc.DB, reference)
}

func findEntryByReference(ctx context.Context, db bun.IDB, reference string) (*models.LedgerEntry, error) {
	entry := &models.LedgerEntry{}
	err := db.NewSelect().Model(entry).Where("reference = ?", reference).Limit(1).Scan(ctx)
	if isNoRows(err) {
		return nil, notFound("ledger entry", reference)
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}
