package controllers

import (
	"net/http"

	"github.com/aquaoffice/tresorerie.go/lib/responses"
	"github.com/aquaoffice/tresorerie.go/lib/service"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// TransferController : Treasury transfer controller struct
type TransferController struct {
	svc *service.TreasuryService
}

func NewTransferController(svc *service.TreasuryService) *TransferController {
	return &TransferController{svc: svc}
}

type TransferRequestBody struct {
	FromAccountID int64               `json:"from_account_id" validate:"required"`
	ToAccountID   int64               `json:"to_account_id" validate:"required,nefield=FromAccountID"`
	Amount        decimal.NullDecimal `json:"amount" swaggertype:"number"`
	Motif         string              `json:"motif" validate:"max=255"`
	OccurredOn    string              `json:"occurred_on" validate:"omitempty,datetime=2006-01-02"`
	CreatedBy     string              `json:"created_by" validate:"max=255"`
}

type TransferResponse struct {
	SourceID string         `json:"source_id"`
	Debit    *EntryResponse `json:"debit"`
	Credit   *EntryResponse `json:"credit"`
}

// Transfer godoc
// @Summary      Transfer between accounts
// @Description  Records a DEBIT on the source and a CREDIT on the destination in one transaction
// @Accept       json
// @Produce      json
// @Tags         Ledger
// @Param        transfer  body      TransferRequestBody  true  "Transfer"
// @Success      201       {object}  TransferResponse
// @Failure      400       {object}  responses.ErrorResponse
// @Failure      404       {object}  responses.ErrorResponse
// @Failure      422       {object}  responses.ErrorResponse
// @Failure      500       {object}  responses.ErrorResponse
// @Router       /transfers [post]
// @Security     AdminToken
func (controller *TransferController) Transfer(c echo.Context) error {
	var body TransferRequestBody
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load transfer request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return responses.Error(c, err)
	}
	occurredOn, err := parseDate(body.OccurredOn)
	if err != nil {
		return responses.Error(c, service.NewValidationError("occurred_on", "must be a date formatted as 2006-01-02"))
	}

	result, err := controller.svc.Transfer(c.Request().Context(), service.TransferRequest{
		FromAccountID: body.FromAccountID,
		ToAccountID:   body.ToAccountID,
		Amount:        body.Amount,
		Motif:         body.Motif,
		OccurredOn:    occurredOn,
		CreatedBy:     operator(c, body.CreatedBy),
	})
	if err != nil {
		return responses.Error(c, err)
	}
	c.Logger().Infof("Transferred %s from account %d to account %d (%s)", result.Debit.Amount.StringFixed(2), body.FromAccountID, body.ToAccountID, result.SourceID)
	return c.JSON(http.StatusCreated, &TransferResponse{
		SourceID: result.SourceID,
		Debit:    toEntryResponse(result.Debit),
		Credit:   toEntryResponse(result.Credit),
	})
}
