package transport

import (
	"github.com/aquaoffice/tresorerie.go/controllers"
	"github.com/aquaoffice/tresorerie.go/lib/service"
	"github.com/labstack/echo/v4"
)

// RegisterEndpoints mounts the treasury API. Reads go through logMw only,
// writes additionally through the admin token and the strict rate limit.
func RegisterEndpoints(svc *service.TreasuryService, e *echo.Echo, strictRateLimitMiddleware echo.MiddlewareFunc, adminMw echo.MiddlewareFunc, logMw echo.MiddlewareFunc) {
	accountCtrl := controllers.NewAccountController(svc)
	entryCtrl := controllers.NewEntryController(svc)

	write := []echo.MiddlewareFunc{adminMw, strictRateLimitMiddleware, logMw}

	e.GET("/accounts", accountCtrl.ListAccounts, logMw)
	e.POST("/accounts", accountCtrl.CreateAccount, write...)
	e.GET("/accounts/:id", accountCtrl.GetAccount, logMw)
	e.PUT("/accounts/:id", accountCtrl.UpdateAccount, write...)
	e.DELETE("/accounts/:id", accountCtrl.DeleteAccount, write...)

	e.GET("/accounts/:id/entries", entryCtrl.ListEntries, logMw)
	e.POST("/accounts/:id/entries", entryCtrl.RecordEntry, write...)
	e.GET("/accounts/:id/entries/:entry_id", entryCtrl.GetEntry, logMw)
	e.GET("/accounts/:id/balance", controllers.NewBalanceController(svc).Balance, logMw)
	e.GET("/accounts/:id/reconciliation", controllers.NewReconciliationController(svc).Reconcile, logMw)

	e.POST("/transfers", controllers.NewTransferController(svc).Transfer, write...)

	e.GET("/health", controllers.NewHealthController(svc).Health)
}
