package controllers

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/aquaoffice/tresorerie.go/common"
	"github.com/aquaoffice/tresorerie.go/db/models"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type AccountResponse struct {
	ID          int64       `json:"id"`
	Designation string      `json:"designation"`
	Type        string      `json:"type"`
	Reference   string      `json:"reference"`
	Balance     json.Number `json:"balance"`
	EntryCount  int64       `json:"entry_count"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   *time.Time  `json:"updated_at,omitempty"`
}

type EntryResponse struct {
	ID             int64       `json:"id"`
	AccountID      int64       `json:"account_id"`
	Amount         json.Number `json:"amount"`
	Direction      string      `json:"direction"`
	RunningBalance json.Number `json:"running_balance"`
	Motif          string      `json:"motif"`
	Reference      string      `json:"reference"`
	OccurredOn     string      `json:"occurred_on"`
	CreatedBy      string      `json:"created_by"`
	SourceType     string      `json:"source_type"`
	SourceID       string      `json:"source_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// money renders a fixed point amount as a JSON number with two decimals.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func toAccountResponse(account *models.Account, balance decimal.Decimal, entryCount int64) *AccountResponse {
	resp := &AccountResponse{
		ID:          account.ID,
		Designation: account.Designation,
		Type:        account.Type,
		Reference:   account.Reference,
		Balance:     money(balance),
		EntryCount:  entryCount,
		CreatedAt:   account.CreatedAt,
	}
	if !account.UpdatedAt.IsZero() {
		updatedAt := account.UpdatedAt.Time
		resp.UpdatedAt = &updatedAt
	}
	return resp
}

func toEntryResponse(entry *models.LedgerEntry) *EntryResponse {
	return &EntryResponse{
		ID:             entry.ID,
		AccountID:      entry.AccountID,
		Amount:         money(entry.Amount),
		Direction:      entry.Direction,
		RunningBalance: money(entry.RunningBalance),
		Motif:          entry.Motif,
		Reference:      entry.Reference,
		OccurredOn:     entry.OccurredOn.Format(common.DateLayout),
		CreatedBy:      entry.CreatedBy,
		SourceType:     entry.SourceType,
		SourceID:       entry.SourceID,
		CreatedAt:      entry.CreatedAt,
	}
}

func parseID(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

// operator prefers the body value over the X-Operator header.
func operator(c echo.Context, fromBody string) string {
	if s := strings.TrimSpace(fromBody); s != "" {
		return s
	}
	return strings.TrimSpace(c.Request().Header.Get(common.OperatorHeader))
}

// parseDate reads an optional YYYY-MM-DD value.
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(common.DateLayout, value)
}
