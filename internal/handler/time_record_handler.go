package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/main4/cmms/internal/model"
	"github.com/main4/cmms/pkg/apperr"
	"github.com/main4/cmms/pkg/database"
	"github.com/main4/cmms/pkg/logger"
	"github.com/main4/cmms/pkg/validate"
	"github.com/main4/cmms/prometheus"
	"go.uber.org/zap"
)

// TimeRecordRequest carries the writable fields of a time record. Every
// record must reference at least one of work order, PM schedule or asset.
type TimeRecordRequest struct {
	WorkOrderID  *uint     `json:"work_order_id,omitempty"`
	PMScheduleID *uint     `json:"pm_schedule_id,omitempty"`
	AssetID      *uint     `json:"asset_id,omitempty"`
	WorkDate     time.Time `json:"work_date" validate:"required"`
	HoursWorked  float64   `json:"hours_worked" validate:"required,gt=0,lte=24"`
	StartTime    string    `json:"start_time" validate:"max=8"`
	EndTime      string    `json:"end_time" validate:"max=8"`
	Description  string    `json:"description" validate:"required"`
	WorkType     string    `json:"work_type" validate:"max=30"`
}

func (r *TimeRecordRequest) hasParent() bool {
	return r.WorkOrderID != nil || r.PMScheduleID != nil || r.AssetID != nil
}

// ListTimeRecords returns time records filtered by work order, schedule,
// asset or user.
func ListTimeRecords(c echo.Context) error {
	log := logger.FromEcho(c)

	_, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	query := database.GetDB().Where("tenant_id = ?", tenantID)
	if v := c.QueryParam("work_order_id"); v != "" {
		query = query.Where("work_order_id = ?", v)
	}
	if v := c.QueryParam("pm_schedule_id"); v != "" {
		query = query.Where("pm_schedule_id = ?", v)
	}
	if v := c.QueryParam("asset_id"); v != "" {
		query = query.Where("asset_id = ?", v)
	}
	if v := c.QueryParam("user_id"); v != "" {
		query = query.Where("user_id = ?", v)
	}

	var records []model.TimeRecord
	defer prometheus.TrackDBOperation("query")(time.Now())
	if result := query.Order("work_date DESC").Find(&records); result.Error != nil {
		log.Error("Failed to list time records", zap.Uint("tenant_id", tenantID), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	return c.JSON(http.StatusOK, records)
}

// CreateTimeRecord logs hours worked. Records without any parent reference
// are rejected before touching the store.
func CreateTimeRecord(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var req TimeRecordRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse time record request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}
	if !req.hasParent() {
		return respondFieldErrors(c, map[string]string{
			"work_order_id": "at least one of work_order_id, pm_schedule_id or asset_id is required",
		})
	}

	record := model.TimeRecord{
		TenantID:     tenantID,
		WorkOrderID:  req.WorkOrderID,
		PMScheduleID: req.PMScheduleID,
		AssetID:      req.AssetID,
		UserID:       claims.UserID,
		WorkDate:     req.WorkDate,
		HoursWorked:  req.HoursWorked,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Description:  req.Description,
		WorkType:     req.WorkType,
		CreatedBy:    &claims.UserID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&record); result.Error != nil {
		log.Error("Failed to create time record", zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	afterMutation(c, "time_record", "created", record.ID, tenantID, claims.UserID)
	log.Info("Time record created",
		zap.Uint("time_record_id", record.ID),
		zap.Float64("hours", record.HoursWorked))
	return c.JSON(http.StatusCreated, record)
}

// UpdateTimeRecord updates a time record, keeping the parent rule intact
func UpdateTimeRecord(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req TimeRecordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}
	if !req.hasParent() {
		return respondFieldErrors(c, map[string]string{
			"work_order_id": "at least one of work_order_id, pm_schedule_id or asset_id is required",
		})
	}

	var record model.TimeRecord
	result := database.GetDB().Where("tenant_id = ?", tenantID).First(&record, id)
	if result.Error != nil {
		log.Warn("Time record not found for update", zap.Uint("time_record_id", id))
		return respondError(c, fromDB(result.Error))
	}

	record.WorkOrderID = req.WorkOrderID
	record.PMScheduleID = req.PMScheduleID
	record.AssetID = req.AssetID
	record.WorkDate = req.WorkDate
	record.HoursWorked = req.HoursWorked
	record.StartTime = req.StartTime
	record.EndTime = req.EndTime
	record.Description = req.Description
	record.WorkType = req.WorkType

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&record); result.Error != nil {
		log.Error("Failed to update time record", zap.Uint("time_record_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	afterMutation(c, "time_record", "updated", record.ID, tenantID, claims.UserID)
	log.Info("Time record updated", zap.Uint("time_record_id", record.ID))
	return c.JSON(http.StatusOK, record)
}

// DeleteTimeRecord removes a time record
func DeleteTimeRecord(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	result := database.GetDB().Where("tenant_id = ?", tenantID).Delete(&model.TimeRecord{}, id)
	if result.Error != nil {
		log.Error("Failed to delete time record", zap.Uint("time_record_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}
	if result.RowsAffected == 0 {
		return respondError(c, apperr.New(apperr.KindNotFound, "time record not found"))
	}

	afterMutation(c, "time_record", "deleted", id, tenantID, claims.UserID)
	log.Info("Time record deleted", zap.Uint("time_record_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Time record deleted successfully"})
}
