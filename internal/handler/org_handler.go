package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/main4/cmms/internal/model"
	"github.com/main4/cmms/pkg/apperr"
	"github.com/main4/cmms/pkg/cache"
	"github.com/main4/cmms/pkg/database"
	"github.com/main4/cmms/pkg/logger"
	"github.com/main4/cmms/pkg/validate"
	"github.com/main4/cmms/prometheus"
	"go.uber.org/zap"
)

// ListLocationLevels returns the tenant's hierarchy tiers, cached
func ListLocationLevels(c echo.Context) error {
	log := logger.FromEcho(c)

	_, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var levels []model.LocationLevel
	key := cache.ListKey("location_level", tenantID)
	if err := cache.GetList(key, &levels); err == nil {
		prometheus.CacheCounter.WithLabelValues("hit").Inc()
		return c.JSON(http.StatusOK, levels)
	}
	prometheus.CacheCounter.WithLabelValues("miss").Inc()

	defer prometheus.TrackDBOperation("query")(time.Now())
	if result := database.GetDB().Where("tenant_id = ?", tenantID).Order("id").Find(&levels); result.Error != nil {
		log.Error("Failed to list location levels", zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	if err := cache.SetList(key, levels); err != nil {
		log.Warn("Failed to cache location level list", zap.Error(err))
	}
	return c.JSON(http.StatusOK, levels)
}

// CreateLocationLevel creates a hierarchy tier
func CreateLocationLevel(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		Name     string `json:"name" validate:"required,max=100"`
		Code     string `json:"code" validate:"max=20"`
		IsActive *bool  `json:"is_active,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	level := model.LocationLevel{
		TenantID: tenantID,
		Name:     req.Name,
		Code:     req.Code,
		IsActive: true,
	}
	if req.IsActive != nil {
		level.IsActive = *req.IsActive
	}

	if result := database.GetDB().Create(&level); result.Error != nil {
		log.Error("Failed to create location level", zap.String("name", req.Name), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	afterMutation(c, "location_level", "created", level.ID, tenantID, claims.UserID)
	log.Info("Location level created", zap.Uint("level_id", level.ID), zap.String("name", level.Name))
	return c.JSON(http.StatusCreated, level)
}

// UpdateLocationLevel updates a hierarchy tier
func UpdateLocationLevel(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		Name     string `json:"name" validate:"required,max=100"`
		Code     string `json:"code" validate:"max=20"`
		IsActive *bool  `json:"is_active,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	var level model.LocationLevel
	result := database.GetDB().Where("tenant_id = ?", tenantID).First(&level, id)
	if result.Error != nil {
		log.Warn("Location level not found for update", zap.Uint("level_id", id))
		return respondError(c, fromDB(result.Error))
	}

	level.Name = req.Name
	level.Code = req.Code
	if req.IsActive != nil {
		level.IsActive = *req.IsActive
	}

	if result := database.GetDB().Save(&level); result.Error != nil {
		log.Error("Failed to update location level", zap.Uint("level_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	afterMutation(c, "location_level", "updated", level.ID, tenantID, claims.UserID)
	log.Info("Location level updated", zap.Uint("level_id", level.ID))
	return c.JSON(http.StatusOK, level)
}

// DeleteLocationLevel removes a tier unless locations still reference it
func DeleteLocationLevel(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var inUse int64
	database.GetDB().Model(&model.Location{}).
		Where("tenant_id = ? AND location_level_id = ?", tenantID, id).
		Count(&inUse)
	if inUse > 0 {
		log.Warn("Location level in use, refusing delete", zap.Uint("level_id", id), zap.Int64("locations", inUse))
		return respondError(c, apperr.New(apperr.KindValidation, "location level is in use by locations"))
	}

	result := database.GetDB().Where("tenant_id = ?", tenantID).Delete(&model.LocationLevel{}, id)
	if result.Error != nil {
		log.Error("Failed to delete location level", zap.Uint("level_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}
	if result.RowsAffected == 0 {
		return respondError(c, apperr.New(apperr.KindNotFound, "location level not found"))
	}

	afterMutation(c, "location_level", "deleted", id, tenantID, claims.UserID)
	log.Info("Location level deleted", zap.Uint("level_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Location level deleted successfully"})
}

// ListDepartments returns the tenant's departments, cached
func ListDepartments(c echo.Context) error {
	log := logger.FromEcho(c)

	_, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var departments []model.Department
	key := cache.ListKey("department", tenantID)
	if err := cache.GetList(key, &departments); err == nil {
		prometheus.CacheCounter.WithLabelValues("hit").Inc()
		return c.JSON(http.StatusOK, departments)
	}
	prometheus.CacheCounter.WithLabelValues("miss").Inc()

	defer prometheus.TrackDBOperation("query")(time.Now())
	if result := database.GetDB().Where("tenant_id = ?", tenantID).Order("name").Find(&departments); result.Error != nil {
		log.Error("Failed to list departments", zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	if err := cache.SetList(key, departments); err != nil {
		log.Warn("Failed to cache department list", zap.Error(err))
	}
	return c.JSON(http.StatusOK, departments)
}

// CreateDepartment creates a department
func CreateDepartment(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		Name        string `json:"name" validate:"required,max=100"`
		Description string `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	department := model.Department{
		TenantID:    tenantID,
		Name:        req.Name,
		Description: req.Description,
	}

	if result := database.GetDB().Create(&department); result.Error != nil {
		log.Error("Failed to create department", zap.String("name", req.Name), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	afterMutation(c, "department", "created", department.ID, tenantID, claims.UserID)
	log.Info("Department created", zap.Uint("department_id", department.ID), zap.String("name", department.Name))
	return c.JSON(http.StatusCreated, department)
}

// UpdateDepartment updates a department
func UpdateDepartment(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		Name        string `json:"name" validate:"required,max=100"`
		Description string `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	var department model.Department
	result := database.GetDB().Where("tenant_id = ?", tenantID).First(&department, id)
	if result.Error != nil {
		log.Warn("Department not found for update", zap.Uint("department_id", id))
		return respondError(c, fromDB(result.Error))
	}

	department.Name = req.Name
	department.Description = req.Description

	if result := database.GetDB().Save(&department); result.Error != nil {
		log.Error("Failed to update department", zap.Uint("department_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	afterMutation(c, "department", "updated", department.ID, tenantID, claims.UserID)
	log.Info("Department updated", zap.Uint("department_id", department.ID))
	return c.JSON(http.StatusOK, department)
}

// DeleteDepartment removes a department
func DeleteDepartment(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	result := database.GetDB().Where("tenant_id = ?", tenantID).Delete(&model.Department{}, id)
	if result.Error != nil {
		log.Error("Failed to delete department", zap.Uint("department_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}
	if result.RowsAffected == 0 {
		return respondError(c, apperr.New(apperr.KindNotFound, "department not found"))
	}

	afterMutation(c, "department", "deleted", id, tenantID, claims.UserID)
	log.Info("Department deleted", zap.Uint("department_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Department deleted successfully"})
}
