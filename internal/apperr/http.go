package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/chirp/internal/logging"
)

type body struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

const genericMessage = "something went wrong, please try again later"

// HTTPErrorHandler renders classified errors as {"error": {...}}.
// Unclassified errors are logged and rendered with a generic message.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, b := render(err)
	if status >= http.StatusInternalServerError {
		logging.Ctx(c.Request().Context()).Error().Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("request failed")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, echo.Map{"error": b})
	}
	if err != nil {
		logging.Ctx(c.Request().Context()).Warn().Err(err).Msg("failed to write error response")
	}
}

func render(err error) (int, body) {
	var ae *Error
	if errors.As(err, &ae) {
		msg := ae.Message
		if ae.Code == CodeCreatorNotFound || ae.Code == CodeInternal {
			msg = genericMessage
		}
		return ae.Code.HTTPStatus(), body{Code: ae.Code, Message: msg, Field: ae.Field}
	}

	// Router-level errors (unknown route, bad method, middleware rejections).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code := CodeInternal
		switch he.Code {
		case http.StatusBadRequest:
			code = CodeInvalidInput
		case http.StatusUnauthorized:
			code = CodeUnauthenticated
		case http.StatusNotFound, http.StatusMethodNotAllowed:
			code = CodeNotFound
		case http.StatusTooManyRequests:
			code = CodeRateLimited
		}
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		return he.Code, body{Code: code, Message: msg}
	}

	return http.StatusInternalServerError, body{Code: CodeInternal, Message: genericMessage}
}
