package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/main4/cmms/pkg/apperr"
	"github.com/main4/cmms/pkg/jwtutil"
)

// currentUser extracts the authenticated claims set by JWTAuthMiddleware
func currentUser(c echo.Context) (*jwtutil.UserClaims, error) {
	claims, ok := c.Get("user").(*jwtutil.UserClaims)
	if !ok {
		return nil, apperr.New(apperr.KindUnauthorized, "authentication required")
	}
	return claims, nil
}

// tenantScope returns the claims plus the tenant every query must be scoped
// to. Users without a selected tenant cannot touch tenant data.
func tenantScope(c echo.Context) (*jwtutil.UserClaims, uint, error) {
	claims, err := currentUser(c)
	if err != nil {
		return nil, 0, err
	}
	if claims.TenantID == nil {
		return nil, 0, apperr.New(apperr.KindForbidden, "no tenant selected")
	}
	return claims, *claims.TenantID, nil
}

// pathID parses the :id route parameter
func pathID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, apperr.New(apperr.KindValidation, "invalid id")
	}
	return uint(id), nil
}

// fromDB converts a gorm error into a structured error for respondError
func fromDB(err error) error {
	return apperr.FromDB(err)
}

// retryOnDuplicate runs fn, and once more when it fails with a duplicate
// key. Used where a generated value can lose a race to a concurrent insert.
func retryOnDuplicate(fn func() error) error {
	err := fn()
	if err != nil && apperr.IsDuplicate(err) {
		err = fn()
	}
	return err
}

// respondError maps a structured error onto an HTTP status and JSON body.
// Handlers dispatch on error kind, never on message text.
func respondError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	message := "internal error"

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
		switch appErr.Kind {
		case apperr.KindValidation:
			status = http.StatusBadRequest
		case apperr.KindNotFound:
			status = http.StatusNotFound
		case apperr.KindDuplicate:
			status = http.StatusConflict
		case apperr.KindUnauthorized:
			status = http.StatusUnauthorized
		case apperr.KindForbidden:
			status = http.StatusForbidden
		}
	}

	return c.JSON(status, echo.Map{"error": message})
}

// respondFieldErrors returns per-field validation failures as a 422 body
func respondFieldErrors(c echo.Context, fields map[string]string) error {
	return c.JSON(http.StatusUnprocessableEntity, echo.Map{
		"error":  "validation failed",
		"fields": fields,
	})
}
