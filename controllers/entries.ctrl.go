package controllers

import (
	"net/http"
	"strconv"

	"github.com/aquaoffice/tresorerie.go/lib/responses"
	"github.com/aquaoffice/tresorerie.go/lib/service"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// EntryController : Ledger entries controller struct
type EntryController struct {
	svc *service.TreasuryService
}

func NewEntryController(svc *service.TreasuryService) *EntryController {
	return &EntryController{svc: svc}
}

type RecordEntryRequestBody struct {
	Amount     decimal.NullDecimal `json:"amount" swaggertype:"number"`
	Direction  string              `json:"direction" validate:"required"`
	Motif      string              `json:"motif" validate:"max=255"`
	OccurredOn string              `json:"occurred_on" validate:"omitempty,datetime=2006-01-02"`
	CreatedBy  string              `json:"created_by" validate:"max=255"`
	Reference  string              `json:"reference" validate:"max=64"`
	SourceType string              `json:"source_type"`
	SourceID   string              `json:"source_id" validate:"max=64"`
}

type EntryPageResponse struct {
	Data        []*EntryResponse `json:"data"`
	Total       int              `json:"total"`
	CurrentPage int              `json:"current_page"`
	PerPage     int              `json:"per_page"`
	LastPage    int              `json:"last_page"`
}

// ListEntries godoc
// @Summary      List ledger entries
// @Description  Returns a page of the ledger of an account, newest first by default
// @Accept       json
// @Produce      json
// @Tags         Ledger
// @Param        id              path      int     true   "Account id"
// @Param        page            query     int     false  "Page, starting at 1"
// @Param        per_page        query     int     false  "Entries per page"
// @Param        sort_field      query     string  false  "Column to sort by"
// @Param        sort_direction  query     string  false  "asc or desc"
// @Param        q               query     string  false  "Search in motif, reference, date and operator"
// @Param        direction       query     string  false  "CREDIT or DEBIT"
// @Param        from            query     string  false  "First business date, YYYY-MM-DD"
// @Param        to              query     string  false  "Last business date, YYYY-MM-DD"
// @Success      200             {object}  EntryPageResponse
// @Failure      400             {object}  responses.ErrorResponse
// @Failure      404             {object}  responses.ErrorResponse
// @Failure      422             {object}  responses.ErrorResponse
// @Failure      500             {object}  responses.ErrorResponse
// @Router       /accounts/{id}/entries [get]
func (controller *EntryController) ListEntries(c echo.Context) error {
	accountID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	verr := &service.ValidationError{}
	filter := service.EntryFilter{
		Query:         c.QueryParam("q"),
		Direction:     c.QueryParam("direction"),
		SortField:     c.QueryParam("sort_field"),
		SortDirection: c.QueryParam("sort_direction"),
	}
	for name, dst := range map[string]*int{"page": &filter.Page, "per_page": &filter.PerPage} {
		if value := c.QueryParam(name); value != "" {
			n, err := strconv.Atoi(value)
			if err != nil {
				verr.Add(name, "must be a number")
			}
			*dst = n
		}
	}
	if filter.From, err = parseDate(c.QueryParam("from")); err != nil {
		verr.Add("from", "must be a date formatted as 2006-01-02")
	}
	if filter.To, err = parseDate(c.QueryParam("to")); err != nil {
		verr.Add("to", "must be a date formatted as 2006-01-02")
	}
	if err := verr.OrNil(); err != nil {
		return responses.Error(c, err)
	}

	page, err := controller.svc.ListEntries(c.Request().Context(), accountID, filter)
	if err != nil {
		return responses.Error(c, err)
	}
	response := &EntryPageResponse{
		Data:        make([]*EntryResponse, len(page.Entries)),
		Total:       page.Total,
		CurrentPage: page.Page,
		PerPage:     page.PerPage,
		LastPage:    page.LastPage,
	}
	for i := range page.Entries {
		response.Data[i] = toEntryResponse(&page.Entries[i])
	}
	return c.JSON(http.StatusOK, response)
}

// RecordEntry godoc
// @Summary      Record a ledger entry
// @Description  Appends a CREDIT or DEBIT to the ledger of an account. Replaying a known reference returns the stored entry with status 200.
// @Accept       json
// @Produce      json
// @Tags         Ledger
// @Param        id     path      int                     true  "Account id"
// @Param        entry  body      RecordEntryRequestBody  true  "Entry"
// @Success      201    {object}  EntryResponse
// @Success      200    {object}  EntryResponse
// @Failure      400    {object}  responses.ErrorResponse
// @Failure      404    {object}  responses.ErrorResponse
// @Failure      409    {object}  responses.ErrorResponse
// @Failure      422    {object}  responses.ErrorResponse
// @Failure      500    {object}  responses.ErrorResponse
// @Router       /accounts/{id}/entries [post]
// @Security     AdminToken
func (controller *EntryController) RecordEntry(c echo.Context) error {
	accountID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	var body RecordEntryRequestBody
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load record entry request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return responses.Error(c, err)
	}
	occurredOn, err := parseDate(body.OccurredOn)
	if err != nil {
		return responses.Error(c, service.NewValidationError("occurred_on", "must be a date formatted as 2006-01-02"))
	}

	entry, replayed, err := controller.svc.RecordEntry(c.Request().Context(), service.EntryRequest{
		AccountID:  accountID,
		Amount:     body.Amount,
		Direction:  body.Direction,
		Motif:      body.Motif,
		OccurredOn: occurredOn,
		CreatedBy:  operator(c, body.CreatedBy),
		Reference:  body.Reference,
		SourceType: body.SourceType,
		SourceID:   body.SourceID,
	})
	if err != nil {
		return responses.Error(c, err)
	}
	if replayed {
		c.Logger().Infof("Replayed ledger entry %s on account %d", entry.Reference, accountID)
		return c.JSON(http.StatusOK, toEntryResponse(entry))
	}
	c.Logger().Infof("Recorded ledger entry %s on account %d, running balance %s", entry.Reference, accountID, entry.RunningBalance.StringFixed(2))
	return c.JSON(http.StatusCreated, toEntryResponse(entry))
}

// GetEntry godoc
// @Summary      Retrieve a ledger entry
// @Accept       json
// @Produce      json
// @Tags         Ledger
// @Param        id        path      int  true  "Account id"
// @Param        entry_id  path      int  true  "Entry id"
// @Success      200       {object}  EntryResponse
// @Failure      400       {object}  responses.ErrorResponse
// @Failure      404       {object}  responses.ErrorResponse
// @Failure      500       {object}  responses.ErrorResponse
// @Router       /accounts/{id}/entries/{entry_id} [get]
func (controller *EntryController) GetEntry(c echo.Context) error {
	accountID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	entryID, err := parseID(c, "entry_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	entry, err := controller.svc.FindEntry(c.Request().Context(), accountID, entryID)
	if err != nil {
		return responses.Error(c, err)
	}
	return c.JSON(http.StatusOK, toEntryResponse(entry))
}
