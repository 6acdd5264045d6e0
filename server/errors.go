package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/richinex/booster/connection"
	"github.com/richinex/booster/service"
)

type requestError struct {
	Status  int
	Message string
	Type    string
	Field   string
	Key     string
}

func (e requestError) Error() string {
	return e.Message
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Field   string `json:"field,omitempty"`
		Key     string `json:"key,omitempty"`
	} `json:"error"`
}

func writeError(c echo.Context, e requestError) error {
	var payload errorBody
	payload.Error.Message = e.Message
	payload.Error.Type = e.Type
	payload.Error.Field = e.Field
	payload.Error.Key = e.Key
	return c.JSON(e.Status, payload)
}

func errorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var reqErr requestError
		if errors.As(err, &reqErr) {
			_ = writeError(c, reqErr)
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = writeError(c, requestError{Status: he.Code, Message: fmt.Sprint(he.Message), Type: "invalid_request_error"})
			return
		}

		log.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("unhandled error")
		_ = writeError(c, requestError{Status: http.StatusInternalServerError, Message: "internal server error", Type: "server_error"})
	}
}

// toHTTPError maps service and provider errors onto API errors. Provider
// failures keep their classified type so the UI can pick a message.
func toHTTPError(err error) error {
	var reqErr requestError
	if errors.As(err, &reqErr) {
		return reqErr
	}

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: verr.Message,
			Type:    string(connection.ErrorValidation),
			Field:   verr.Field,
			Key:     verr.Key,
		}
	}
	if errors.Is(err, service.ErrModelNotFound) {
		return requestError{Status: http.StatusNotFound, Message: err.Error(), Type: "not_found"}
	}
	if errors.Is(err, service.ErrNoActiveModel) {
		return requestError{Status: http.StatusBadRequest, Message: err.Error(), Type: "invalid_request_error"}
	}

	kind, msg := connection.Classify(err)
	status := http.StatusBadGateway
	if kind == connection.ErrorValidation {
		status = http.StatusBadRequest
	}
	return requestError{Status: status, Message: msg, Type: string(kind)}
}

func decodeRequestBody[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return requestError{
				Status:  http.StatusBadRequest,
				Message: "request body is required",
				Type:    "invalid_request_error",
			}
		}
		return requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("invalid JSON payload: %v", err),
			Type:    "invalid_request_error",
		}
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "request body must contain a single JSON object",
			Type:    "invalid_request_error",
		}
	}
	return nil
}
