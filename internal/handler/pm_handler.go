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

// PMScheduleRequest carries the writable fields of a PM schedule
type PMScheduleRequest struct {
	Name           string     `json:"name" validate:"required,max=200"`
	AssetID        *uint      `json:"asset_id,omitempty"`
	FrequencyValue int        `json:"frequency_value" validate:"required,gte=1"`
	FrequencyUnit  string     `json:"frequency_unit" validate:"required,oneof=day week month year"`
	NextDueDate    *time.Time `json:"next_due_date,omitempty"`
	AssignedTo     *uint      `json:"assigned_to,omitempty"`
	ChecklistItems string     `json:"checklist_items,omitempty"`
	IsActive       *bool      `json:"is_active,omitempty"`
}

// advanceDueDate computes the due date one frequency interval after from
func advanceDueDate(from time.Time, value int, unit string) time.Time {
	switch unit {
	case "day":
		return from.AddDate(0, 0, value)
	case "week":
		return from.AddDate(0, 0, 7*value)
	case "month":
		return from.AddDate(0, value, 0)
	case "year":
		return from.AddDate(value, 0, 0)
	}
	return from
}

// ListPMSchedules returns the tenant's PM schedules, cached
func ListPMSchedules(c echo.Context) error {
	log := logger.FromEcho(c)

	_, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var schedules []model.PMSchedule
	key := cache.ListKey("pm_schedule", tenantID)
	if err := cache.GetList(key, &schedules); err == nil {
		prometheus.CacheCounter.WithLabelValues("hit").Inc()
		return c.JSON(http.StatusOK, schedules)
	}
	prometheus.CacheCounter.WithLabelValues("miss").Inc()

	defer prometheus.TrackDBOperation("query")(time.Now())
	result := database.GetDB().Preload("Asset").
		Where("tenant_id = ?", tenantID).
		Order("next_due_date").
		Find(&schedules)
	if result.Error != nil {
		log.Error("Failed to list PM schedules", zap.Uint("tenant_id", tenantID), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	if err := cache.SetList(key, schedules); err != nil {
		log.Warn("Failed to cache PM schedule list", zap.Error(err))
	}
	return c.JSON(http.StatusOK, schedules)
}

// CreatePMSchedule creates a recurring maintenance plan
func CreatePMSchedule(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var req PMScheduleRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse PM schedule request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	schedule := model.PMSchedule{
		TenantID:       tenantID,
		Name:           req.Name,
		AssetID:        req.AssetID,
		FrequencyValue: req.FrequencyValue,
		FrequencyUnit:  req.FrequencyUnit,
		NextDueDate:    req.NextDueDate,
		AssignedTo:     req.AssignedTo,
		ChecklistItems: req.ChecklistItems,
		IsActive:       true,
	}
	if req.IsActive != nil {
		schedule.IsActive = *req.IsActive
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&schedule); result.Error != nil {
		log.Error("Failed to create PM schedule", zap.String("name", req.Name), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	afterMutation(c, "pm_schedule", "created", schedule.ID, tenantID, claims.UserID)
	log.Info("PM schedule created",
		zap.Uint("pm_schedule_id", schedule.ID),
		zap.String("name", schedule.Name))
	return c.JSON(http.StatusCreated, schedule)
}

// UpdatePMSchedule updates a recurring maintenance plan
func UpdatePMSchedule(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req PMScheduleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	var schedule model.PMSchedule
	result := database.GetDB().Where("tenant_id = ?", tenantID).First(&schedule, id)
	if result.Error != nil {
		log.Warn("PM schedule not found for update", zap.Uint("pm_schedule_id", id))
		return respondError(c, fromDB(result.Error))
	}

	schedule.Name = req.Name
	schedule.AssetID = req.AssetID
	schedule.FrequencyValue = req.FrequencyValue
	schedule.FrequencyUnit = req.FrequencyUnit
	schedule.NextDueDate = req.NextDueDate
	schedule.AssignedTo = req.AssignedTo
	schedule.ChecklistItems = req.ChecklistItems
	if req.IsActive != nil {
		schedule.IsActive = *req.IsActive
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&schedule); result.Error != nil {
		log.Error("Failed to update PM schedule", zap.Uint("pm_schedule_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	afterMutation(c, "pm_schedule", "updated", schedule.ID, tenantID, claims.UserID)
	log.Info("PM schedule updated", zap.Uint("pm_schedule_id", schedule.ID))
	return c.JSON(http.StatusOK, schedule)
}

// CompletePMSchedule marks one occurrence done and advances the next due
// date by the schedule's frequency.
func CompletePMSchedule(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var schedule model.PMSchedule
	result := database.GetDB().Where("tenant_id = ?", tenantID).First(&schedule, id)
	if result.Error != nil {
		log.Warn("PM schedule not found", zap.Uint("pm_schedule_id", id))
		return respondError(c, fromDB(result.Error))
	}

	base := time.Now()
	if schedule.NextDueDate != nil {
		base = *schedule.NextDueDate
	}
	next := advanceDueDate(base, schedule.FrequencyValue, schedule.FrequencyUnit)
	schedule.NextDueDate = &next

	if result := database.GetDB().Save(&schedule); result.Error != nil {
		log.Error("Failed to advance PM schedule", zap.Uint("pm_schedule_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	afterMutation(c, "pm_schedule", "updated", schedule.ID, tenantID, claims.UserID)
	log.Info("PM schedule occurrence completed",
		zap.Uint("pm_schedule_id", schedule.ID),
		zap.Time("next_due", next))
	return c.JSON(http.StatusOK, schedule)
}

// DeletePMSchedule removes a PM schedule
func DeletePMSchedule(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	result := database.GetDB().Where("tenant_id = ?", tenantID).Delete(&model.PMSchedule{}, id)
	if result.Error != nil {
		log.Error("Failed to delete PM schedule", zap.Uint("pm_schedule_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}
	if result.RowsAffected == 0 {
		return respondError(c, apperr.New(apperr.KindNotFound, "PM schedule not found"))
	}

	afterMutation(c, "pm_schedule", "deleted", id, tenantID, claims.UserID)
	log.Info("PM schedule deleted", zap.Uint("pm_schedule_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "PM schedule deleted successfully"})
}

// ListChecklists returns the tenant's reusable checklists, cached
func ListChecklists(c echo.Context) error {
	log := logger.FromEcho(c)

	_, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var checklists []model.ChecklistRecord
	key := cache.ListKey("checklist", tenantID)
	if err := cache.GetList(key, &checklists); err == nil {
		prometheus.CacheCounter.WithLabelValues("hit").Inc()
		return c.JSON(http.StatusOK, checklists)
	}
	prometheus.CacheCounter.WithLabelValues("miss").Inc()

	if result := database.GetDB().Where("tenant_id = ?", tenantID).Order("name").Find(&checklists); result.Error != nil {
		log.Error("Failed to list checklists", zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	if err := cache.SetList(key, checklists); err != nil {
		log.Warn("Failed to cache checklist list", zap.Error(err))
	}
	return c.JSON(http.StatusOK, checklists)
}

// CreateChecklist creates a reusable checklist
func CreateChecklist(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		Name        string `json:"name" validate:"required,max=200"`
		Description string `json:"description"`
		Items       string `json:"items" validate:"required,json"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	checklist := model.ChecklistRecord{
		TenantID:    tenantID,
		Name:        req.Name,
		Description: req.Description,
		Items:       req.Items,
	}
	if result := database.GetDB().Create(&checklist); result.Error != nil {
		log.Error("Failed to create checklist", zap.String("name", req.Name), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	afterMutation(c, "checklist", "created", checklist.ID, tenantID, claims.UserID)
	log.Info("Checklist created", zap.Uint("checklist_id", checklist.ID), zap.String("name", checklist.Name))
	return c.JSON(http.StatusCreated, checklist)
}

// UpdateChecklist updates a reusable checklist
func UpdateChecklist(c echo.Context) error {
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
		Name        string `json:"name" validate:"required,max=200"`
		Description string `json:"description"`
		Items       string `json:"items" validate:"required,json"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	var checklist model.ChecklistRecord
	result := database.GetDB().Where("tenant_id = ?", tenantID).First(&checklist, id)
	if result.Error != nil {
		log.Warn("Checklist not found for update", zap.Uint("checklist_id", id))
		return respondError(c, fromDB(result.Error))
	}

	checklist.Name = req.Name
	checklist.Description = req.Description
	checklist.Items = req.Items

	if result := database.GetDB().Save(&checklist); result.Error != nil {
		log.Error("Failed to update checklist", zap.Uint("checklist_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	afterMutation(c, "checklist", "updated", checklist.ID, tenantID, claims.UserID)
	log.Info("Checklist updated", zap.Uint("checklist_id", checklist.ID))
	return c.JSON(http.StatusOK, checklist)
}

// DeleteChecklist removes a reusable checklist
func DeleteChecklist(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	result := database.GetDB().Where("tenant_id = ?", tenantID).Delete(&model.ChecklistRecord{}, id)
	if result.Error != nil {
		log.Error("Failed to delete checklist", zap.Uint("checklist_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}
	if result.RowsAffected == 0 {
		return respondError(c, apperr.New(apperr.KindNotFound, "checklist not found"))
	}

	afterMutation(c, "checklist", "deleted", id, tenantID, claims.UserID)
	log.Info("Checklist deleted", zap.Uint("checklist_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Checklist deleted successfully"})
}
