package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/aquaoffice/tresorerie.go/lib/responses"
	"github.com/aquaoffice/tresorerie.go/lib/service"
	"github.com/labstack/echo/v4"
)

// BalanceController : BalanceController struct
type BalanceController struct {
	svc *service.TreasuryService
}

func NewBalanceController(svc *service.TreasuryService) *BalanceController {
	return &BalanceController{svc: svc}
}

type BalanceResponse struct {
	AccountID int64       `json:"account_id"`
	Balance   json.Number `json:"balance"`
}

// Balance godoc
// @Summary      Retrieve balance
// @Description  Running balance after the last entry of the account, 0 without entries
// @Accept       json
// @Produce      json
// @Tags         Ledger
// @Param        id   path      int  true  "Account id"
// @Success      200  {object}  BalanceResponse
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Router       /accounts/{id}/balance [get]
func (controller *BalanceController) Balance(c echo.Context) error {
	accountID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	balance, err := controller.svc.CurrentBalance(c.Request().Context(), accountID)
	if err != nil {
		return responses.Error(c, err)
	}
	return c.JSON(http.StatusOK, &BalanceResponse{
		AccountID: accountID,
		Balance:   money(balance),
	})
}
