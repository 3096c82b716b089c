package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"uk.co.dudmesh.viberrelay/internal/auth"
	"uk.co.dudmesh.viberrelay/internal/model"
)

var statusCodes = map[string]int{
	"validation":         http.StatusBadRequest,
	"not_found":          http.StatusNotFound,
	"auth":               http.StatusUnauthorized,
	"remote_rejected":    http.StatusBadGateway,
	"remote_unavailable": http.StatusServiceUnavailable,
	"store_unavailable":  http.StatusServiceUnavailable,
	"shutting_down":      http.StatusServiceUnavailable,
}

// StatusCode maps err onto the HTTP status returned to callers.
func StatusCode(err error) int {
	var httpError *echo.HTTPError
	if errors.As(err, &httpError) {
		return httpError.Code
	}
	if errors.Is(err, auth.ErrorMissingToken) || errors.Is(err, auth.ErrorInvalidToken) {
		return http.StatusUnauthorized
	}
	if code, ok := statusCodes[model.ErrorCode(err)]; ok {
		return code
	}
	return http.StatusInternalServerError
}

func NewErrorHandler() echo.HTTPErrorHandler {
	logger := log.New("http")
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := StatusCode(err)
		var payload interface{}

		var httpError *echo.HTTPError
		switch {
		case errors.As(err, &httpError):
			payload = model.ErrorPayload{Code: http.StatusText(status), Message: http.StatusText(status)}
			if msg, ok := httpError.Message.(string); ok {
				payload = model.ErrorPayload{Code: http.StatusText(status), Message: msg}
			}
		case errors.Is(err, auth.ErrorMissingToken) || errors.Is(err, auth.ErrorInvalidToken):
			payload = model.ErrorPayload{Code: "unauthorized", Message: err.Error()}
		default:
			payload = model.NewErrorPayload(err)
		}

		if status >= http.StatusInternalServerError {
			logger.Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, payload)
		}
		if err != nil {
			logger.Errorf("writing error response: %v", err)
		}
	}
}
