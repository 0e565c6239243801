package controllers

import (
	"net/http"

	"github.com/aquaoffice/tresorerie.go/lib/service"
	"github.com/labstack/echo/v4"
)

type HealthController struct {
	svc *service.TreasuryService
}

func NewHealthController(svc *service.TreasuryService) *HealthController {
	return &HealthController{svc: svc}
}

type HealthResponse struct {
	Result string `json:"result"`
}

// Health godoc
// @Summary      Check system health
// @Description  Reports whether the database answers
// @Produce      json
// @Tags         Health
// @Success      200  {object}  HealthResponse
// @Failure      503  {object}  HealthResponse
// @Router       /health [get]
func (controller *HealthController) Health(c echo.Context) error {
	if err := controller.svc.DB.PingContext(c.Request().Context()); err != nil {
		c.Logger().Errorf("Health check failed: %v", err)
		return c.JSON(http.StatusServiceUnavailable, &HealthResponse{Result: "UNAVAILABLE"})
	}
	return c.JSON(http.StatusOK, &HealthResponse{
		Result: "OK",
	})
}
