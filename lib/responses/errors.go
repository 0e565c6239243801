package responses

import (
	"context"
	"errors"
	"net/http"

	"github.com/aquaoffice/tresorerie.go/lib/service"
	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error          bool              `json:"error"`
	Code           int               `json:"code"`
	Message        string            `json:"message"`
	Fields         map[string]string `json:"fields,omitempty"`
	HttpStatusCode int               `json:"-"`
}

var GeneralServerError = ErrorResponse{
	Error:          true,
	Code:           6,
	Message:        "Something went wrong. Please try again later",
	HttpStatusCode: http.StatusInternalServerError,
}

var BadArgumentsError = ErrorResponse{
	Error:          true,
	Code:           8,
	Message:        "Bad arguments",
	HttpStatusCode: http.StatusBadRequest,
}

var BadAuthError = ErrorResponse{
	Error:          true,
	Code:           1,
	Message:        "bad auth",
	HttpStatusCode: http.StatusUnauthorized,
}

var ValidationFailedError = ErrorResponse{
	Error:          true,
	Code:           2,
	Message:        "Validation failed",
	HttpStatusCode: http.StatusUnprocessableEntity,
}

var InvalidDirectionError = ErrorResponse{
	Error:          true,
	Code:           3,
	Message:        "Invalid direction, expected CREDIT or DEBIT",
	HttpStatusCode: http.StatusUnprocessableEntity,
}

var NotFoundError = ErrorResponse{
	Error:          true,
	Code:           4,
	Message:        "Not found",
	HttpStatusCode: http.StatusNotFound,
}

var ConflictError = ErrorResponse{
	Error:          true,
	Code:           5,
	Message:        "Conflict",
	HttpStatusCode: http.StatusConflict,
}

var RequestCanceledError = ErrorResponse{
	Error:          true,
	Code:           7,
	Message:        "Request canceled before it could complete",
	HttpStatusCode: http.StatusServiceUnavailable,
}

// FromServiceError maps an error of the service layer to its response.
func FromServiceError(err error) ErrorResponse {
	var verr *service.ValidationError
	var resp ErrorResponse
	switch {
	case errors.As(err, &verr):
		resp = ValidationFailedError
		resp.Fields = verr.Fields
		return resp
	case errors.Is(err, service.ErrInvalidDirection):
		resp = InvalidDirectionError
	case errors.Is(err, service.ErrNotFound):
		resp = NotFoundError
	case errors.Is(err, service.ErrConflict):
		resp = ConflictError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return RequestCanceledError
	default:
		return GeneralServerError
	}
	resp.Message = err.Error()
	return resp
}

// Error logs err and renders the matching response.
func Error(c echo.Context, err error) error {
	resp := FromServiceError(err)
	if resp.HttpStatusCode >= http.StatusInternalServerError {
		c.Logger().Errorf("%s %s failed: %v", c.Request().Method, c.Path(), err)
		captureException(c, err)
	} else {
		c.Logger().Debugf("%s %s rejected: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(resp.HttpStatusCode, resp)
}

// client mistakes are not worth an exception report
func isErrAllowedForSentry(err error) bool {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code >= http.StatusInternalServerError
	}
	return FromServiceError(err).HttpStatusCode >= http.StatusInternalServerError
}

func captureException(c echo.Context, err error) {
	if hub := sentryecho.GetHubFromContext(c); hub != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetExtra("Operator", c.Get("Operator"))
			hub.CaptureException(err)
		})
	}
}

func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if isErrAllowedForSentry(err) {
		c.Logger().Error(err)
		captureException(c, err)
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
		c.JSON(he.Code, ErrorResponse{
			Error:   true,
			Code:    he.Code,
			Message: msg,
		})
		return
	}
	resp := FromServiceError(err)
	c.JSON(resp.HttpStatusCode, resp)
}
