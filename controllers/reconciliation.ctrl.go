package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/aquaoffice/tresorerie.go/lib/responses"
	"github.com/aquaoffice/tresorerie.go/lib/service"
	"github.com/labstack/echo/v4"
)

type ReconciliationController struct {
	svc *service.TreasuryService
}

func NewReconciliationController(svc *service.TreasuryService) *ReconciliationController {
	return &ReconciliationController{svc: svc}
}

type ReconciliationResponse struct {
	AccountID           int64       `json:"account_id"`
	EntryCount          int64       `json:"entry_count"`
	ComputedBalance     json.Number `json:"computed_balance"`
	ProjectedBalance    json.Number `json:"projected_balance"`
	ProjectedEntryCount int64       `json:"projected_entry_count"`
	FirstBrokenEntryID  int64       `json:"first_broken_entry_id,omitempty"`
	Consistent          bool        `json:"consistent"`
}

// Reconcile godoc
// @Summary      Reconcile an account
// @Description  Replays the ledger of the account and checks running balances and the stored balance
// @Accept       json
// @Produce      json
// @Tags         Ledger
// @Param        id   path      int  true  "Account id"
// @Success      200  {object}  ReconciliationResponse
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Router       /accounts/{id}/reconciliation [get]
func (controller *ReconciliationController) Reconcile(c echo.Context) error {
	accountID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	result, err := controller.svc.ReconcileAccount(c.Request().Context(), accountID)
	if err != nil {
		return responses.Error(c, err)
	}
	if !result.Consistent {
		c.Logger().Warnf("Account %d is inconsistent, first broken entry %d", accountID, result.FirstBrokenEntryID)
	}
	return c.JSON(http.StatusOK, &ReconciliationResponse{
		AccountID:           result.AccountID,
		EntryCount:          result.EntryCount,
		ComputedBalance:     money(result.ComputedBalance),
		ProjectedBalance:    money(result.ProjectedBalance),
		ProjectedEntryCount: result.ProjectedEntryCount,
		FirstBrokenEntryID:  result.FirstBrokenEntryID,
		Consistent:          result.Consistent,
	})
}
