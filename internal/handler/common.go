package handler // handler holds the echo HTTP handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/merchant-inventory/internal/logger"
	"github.com/iliyamo/merchant-inventory/internal/repository"
	"github.com/iliyamo/merchant-inventory/internal/service"
)

// requestTimeout bounds every database-backed call made by a handler.
const requestTimeout = 5 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// getUserID extracts the user_id stored by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		if t != 0 {
			return t, nil
		}
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil && n != 0 {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// principal builds the acting user from the authenticated context.
func principal(c echo.Context) (service.Principal, error) {
	id, err := getUserID(c)
	if err != nil {
		return service.Principal{}, err
	}
	role, _ := c.Get("role").(string)
	return service.Principal{UserID: id, Role: role}, nil
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	return n, err == nil && n > 0
}

// fieldErrors is the validation part of an error body: field -> messages.
type fieldErrors map[string][]string

func (f fieldErrors) add(field, msg string) { f[field] = append(f[field], msg) }

func badRequest(c echo.Context, errs fieldErrors) error {
	return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "validation failed", "errors": errs})
}

// respondError maps service and repository errors to HTTP responses.
// Field-scoped errors carry their message under "errors"; anything not
// recognised is logged and reported as a generic 500.
func respondError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrDuplicateAllocation), errors.Is(err, repository.ErrEmailExists):
		status = http.StatusConflict
	case errors.Is(err, repository.ErrInsufficientStock):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, repository.ErrAllocationNotFound),
		errors.Is(err, repository.ErrMerchantNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrTransactionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repository.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	if status == http.StatusInternalServerError || status == http.StatusGatewayTimeout {
		logger.FromContext(c.Request().Context()).Error("request failed",
			zap.String("path", c.Path()), zap.Error(err))
		return c.JSON(status, echo.Map{"error": http.StatusText(status)})
	}

	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return c.JSON(status, echo.Map{
			"error":  ve.Message,
			"errors": fieldErrors{ve.Field: {ve.Message}},
		})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}
