package controllers

import (
	"net/http"

	"github.com/aquaoffice/tresorerie.go/lib/responses"
	"github.com/aquaoffice/tresorerie.go/lib/service"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// AccountController : Account registry controller struct
type AccountController struct {
	svc *service.TreasuryService
}

func NewAccountController(svc *service.TreasuryService) *AccountController {
	return &AccountController{svc: svc}
}

type CreateAccountRequestBody struct {
	Designation string `json:"designation" validate:"required,max=255"`
	Type        string `json:"type" validate:"required"`
	Reference   string `json:"reference" validate:"max=64"`
}

type UpdateAccountRequestBody struct {
	Designation *string `json:"designation" validate:"omitempty,max=255"`
	Type        *string `json:"type"`
}

// ListAccounts godoc
// @Summary      List accounts
// @Description  Returns every account with its current balance
// @Accept       json
// @Produce      json
// @Tags         Account
// @Success      200  {object}  []AccountResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Router       /accounts [get]
func (controller *AccountController) ListAccounts(c echo.Context) error {
	accounts, err := controller.svc.ListAccounts(c.Request().Context())
	if err != nil {
		return responses.Error(c, err)
	}
	response := make([]*AccountResponse, len(accounts))
	for i := range accounts {
		response[i] = toAccountResponse(&accounts[i].Account, accounts[i].Balance, accounts[i].EntryCount)
	}
	return c.JSON(http.StatusOK, response)
}

// CreateAccount godoc
// @Summary      Create an account
// @Description  Creates a cash or bank account, the reference is generated when omitted
// @Accept       json
// @Produce      json
// @Tags         Account
// @Param        account  body      CreateAccountRequestBody  true  "Account"
// @Success      201      {object}  AccountResponse
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      409      {object}  responses.ErrorResponse
// @Failure      422      {object}  responses.ErrorResponse
// @Failure      500      {object}  responses.ErrorResponse
// @Router       /accounts [post]
// @Security     AdminToken
func (controller *AccountController) CreateAccount(c echo.Context) error {
	var body CreateAccountRequestBody
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load create account request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return responses.Error(c, err)
	}

	account, err := controller.svc.CreateAccount(c.Request().Context(), service.AccountRequest{
		Designation: body.Designation,
		Type:        body.Type,
		Reference:   body.Reference,
	})
	if err != nil {
		return responses.Error(c, err)
	}
	c.Logger().Infof("Created account %s (%d)", account.Reference, account.ID)
	return c.JSON(http.StatusCreated, toAccountResponse(account, decimal.Zero, 0))
}

// GetAccount godoc
// @Summary      Retrieve an account
// @Description  Returns one account with its current balance
// @Accept       json
// @Produce      json
// @Tags         Account
// @Param        id   path      int  true  "Account id"
// @Success      200  {object}  AccountResponse
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Router       /accounts/{id} [get]
func (controller *AccountController) GetAccount(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	account, err := controller.svc.FindAccountWithBalance(c.Request().Context(), id)
	if err != nil {
		return responses.Error(c, err)
	}
	return c.JSON(http.StatusOK, toAccountResponse(&account.Account, account.Balance, account.EntryCount))
}

// UpdateAccount godoc
// @Summary      Update an account
// @Description  Only the designation and the type of an account can change
// @Accept       json
// @Produce      json
// @Tags         Account
// @Param        id       path      int                       true  "Account id"
// @Param        account  body      UpdateAccountRequestBody  true  "Changes"
// @Success      200      {object}  AccountResponse
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      404      {object}  responses.ErrorResponse
// @Failure      422      {object}  responses.ErrorResponse
// @Failure      500      {object}  responses.ErrorResponse
// @Router       /accounts/{id} [put]
// @Security     AdminToken
func (controller *AccountController) UpdateAccount(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	var body UpdateAccountRequestBody
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load update account request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return responses.Error(c, err)
	}

	ctx := c.Request().Context()
	if _, err := controller.svc.UpdateAccount(ctx, id, service.AccountUpdate{
		Designation: body.Designation,
		Type:        body.Type,
	}); err != nil {
		return responses.Error(c, err)
	}
	account, err := controller.svc.FindAccountWithBalance(ctx, id)
	if err != nil {
		return responses.Error(c, err)
	}
	return c.JSON(http.StatusOK, toAccountResponse(&account.Account, account.Balance, account.EntryCount))
}

// DeleteAccount godoc
// @Summary      Delete an account
// @Description  Only accounts without ledger entries can be deleted
// @Tags         Account
// @Param        id   path  int  true  "Account id"
// @Success      204
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Failure      409  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Router       /accounts/{id} [delete]
// @Security     AdminToken
func (controller *AccountController) DeleteAccount(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := controller.svc.DeleteAccount(c.Request().Context(), id); err != nil {
		return responses.Error(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
