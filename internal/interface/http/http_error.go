package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/asase/envreport/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

// domainStatus maps pkg/errors codes to the response status and public code.
var domainStatus = map[string]struct {
	status int
	code   string
}{
	apperrors.CodeInvalidInput: {http.StatusBadRequest, "invalid_request"},
	apperrors.CodeNotFound:     {http.StatusNotFound, "not_found"},
	apperrors.CodeStorage:      {http.StatusInternalServerError, apperrors.CodeStorage},
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if mapped, ok := domainStatus[appErr.Code]; ok {
			message := appErr.Message
			// Storage details stay in the logs.
			if mapped.status >= http.StatusInternalServerError {
				message = "failed to store or load reports"
			}
			return NewHTTPError(mapped.status, mapped.code, message, err)
		}
	}
	return NewHTTPError(http.StatusInternalServerError, "internal_error", "something went wrong", err)
}

func abortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(asHTTPError(err))
	c.Abort()
}

func errorHandlingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		httpErr := asHTTPError(c.Errors.Last().Err)
		level := slog.LevelWarn
		if httpErr.Status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request failed", "code", httpErr.Code, "status", httpErr.Status, "path", c.Request.URL.Path, "error", httpErr.Err)

		var body errorBody
		body.Error.Code = httpErr.Code
		body.Error.Message = httpErr.Message
		if body.Error.Message == "" {
			body.Error.Message = httpErr.Error()
		}
		c.JSON(httpErr.Status, body)
	}
}
