package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/main4/cmms/pkg/database"
)

// HealthCheck handles the health check endpoint
func HealthCheck(c echo.Context) error {
	status := "healthy"
	dbStatus := "up"

	if sqlDB, err := database.GetDB().DB(); err != nil || sqlDB.Ping() != nil {
		status = "degraded"
		dbStatus = "down"
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}

	return c.JSON(code, echo.Map{
		"status":   status,
		"service":  "cmms",
		"database": dbStatus,
	})
}
