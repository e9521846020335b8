package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
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
	"gorm.io/gorm"
)

// WorkOrderRequest carries the writable fields of a work order
type WorkOrderRequest struct {
	Title          string     `json:"title" validate:"required,max=200"`
	Description    string     `json:"description"`
	AssetID        *uint      `json:"asset_id,omitempty"`
	AssignedTo     *uint      `json:"assigned_to,omitempty"`
	Status         string     `json:"status" validate:"omitempty,oneof=open in_progress completed cancelled"`
	Priority       string     `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	WorkType       string     `json:"work_type" validate:"omitempty,oneof=corrective preventive emergency inspection"`
	EstimatedHours *float64   `json:"estimated_hours,omitempty"`
	ActualHours    *float64   `json:"actual_hours,omitempty"`
	EstimatedCost  *float64   `json:"estimated_cost,omitempty"`
	ActualCost     *float64   `json:"actual_cost,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
}

// nextWorkOrderNumber issues the tenant's next sequential WO number
func nextWorkOrderNumber(tx *gorm.DB, tenantID uint) (string, error) {
	var count int64
	if err := tx.Model(&model.WorkOrder{}).Unscoped().
		Where("tenant_id = ?", tenantID).
		Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("WO-%05d", count+1), nil
}

// ListWorkOrders returns the tenant's work orders with optional status and
// assignee filters. Unfiltered lists are cached.
func ListWorkOrders(c echo.Context) error {
	log := logger.FromEcho(c)

	_, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	status := c.QueryParam("status")
	assignedTo := c.QueryParam("assigned_to")
	assetID := c.QueryParam("asset_id")
	cacheable := status == "" && assignedTo == "" && assetID == ""

	var orders []model.WorkOrder
	key := cache.ListKey("work_order", tenantID)
	if cacheable {
		if err := cache.GetList(key, &orders); err == nil {
			prometheus.CacheCounter.WithLabelValues("hit").Inc()
			return c.JSON(http.StatusOK, orders)
		}
		prometheus.CacheCounter.WithLabelValues("miss").Inc()
	}

	query := database.GetDB().Preload("Asset").Where("tenant_id = ?", tenantID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if assignedTo != "" {
		query = query.Where("assigned_to = ?", assignedTo)
	}
	if assetID != "" {
		query = query.Where("asset_id = ?", assetID)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	if result := query.Order("created_at DESC").Find(&orders); result.Error != nil {
		log.Error("Failed to list work orders", zap.Uint("tenant_id", tenantID), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	if cacheable {
		if err := cache.SetList(key, orders); err != nil {
			log.Warn("Failed to cache work order list", zap.Error(err))
		}
	}
	return c.JSON(http.StatusOK, orders)
}

// GetWorkOrder returns one work order with its comments
func GetWorkOrder(c echo.Context) error {
	log := logger.FromEcho(c)

	_, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var order model.WorkOrder
	result := database.GetDB().Preload("Asset").
		Where("tenant_id = ?", tenantID).
		First(&order, id)
	if result.Error != nil {
		log.Warn("Work order not found", zap.Uint("work_order_id", id))
		return respondError(c, fromDB(result.Error))
	}

	var comments []model.WorkOrderComment
	database.GetDB().
		Where("tenant_id = ? AND work_order_id = ?", tenantID, id).
		Order("created_at").
		Find(&comments)

	return c.JSON(http.StatusOK, echo.Map{
		"work_order": order,
		"comments":   comments,
	})
}

// CreateWorkOrder creates a work order with a tenant-sequential number
func CreateWorkOrder(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var req WorkOrderRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse work order request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	order := model.WorkOrder{
		TenantID:       tenantID,
		Title:          req.Title,
		Description:    req.Description,
		AssetID:        req.AssetID,
		AssignedTo:     req.AssignedTo,
		CreatedBy:      claims.UserID,
		EstimatedHours: req.EstimatedHours,
		EstimatedCost:  req.EstimatedCost,
		DueDate:        req.DueDate,
	}
	if req.Status != "" {
		order.Status = req.Status
	}
	if req.Priority != "" {
		order.Priority = req.Priority
	}
	if req.WorkType != "" {
		order.WorkType = req.WorkType
	}

	// Two concurrent creates can count the same next number; the unique
	// index over (tenant_id, work_order_number) fails the loser, which
	// recounts once.
	defer prometheus.TrackDBOperation("insert")(time.Now())
	err = retryOnDuplicate(func() error {
		return database.GetDB().Transaction(func(tx *gorm.DB) error {
			number, err := nextWorkOrderNumber(tx, tenantID)
			if err != nil {
				return err
			}
			order.WorkOrderNumber = number
			return tx.Create(&order).Error
		})
	})
	if err != nil {
		log.Error("Failed to create work order", zap.String("title", req.Title), zap.Error(err))
		return respondError(c, fromDB(err))
	}

	afterMutation(c, "work_order", "created", order.ID, tenantID, claims.UserID)
	log.Info("Work order created",
		zap.Uint("work_order_id", order.ID),
		zap.String("number", order.WorkOrderNumber),
		zap.String("title", order.Title))
	return c.JSON(http.StatusCreated, order)
}

// UpdateWorkOrder updates a work order. Completing it stamps completed_at;
// reopening clears it. Status changes are appended to the comment trail.
func UpdateWorkOrder(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req WorkOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	var order model.WorkOrder
	result := database.GetDB().Where("tenant_id = ?", tenantID).First(&order, id)
	if result.Error != nil {
		log.Warn("Work order not found for update", zap.Uint("work_order_id", id))
		return respondError(c, fromDB(result.Error))
	}

	oldStatus := order.Status

	order.Title = req.Title
	order.Description = req.Description
	order.AssetID = req.AssetID
	order.AssignedTo = req.AssignedTo
	order.EstimatedHours = req.EstimatedHours
	order.ActualHours = req.ActualHours
	order.EstimatedCost = req.EstimatedCost
	order.ActualCost = req.ActualCost
	order.DueDate = req.DueDate
	if req.Status != "" {
		order.Status = req.Status
	}
	if req.Priority != "" {
		order.Priority = req.Priority
	}
	if req.WorkType != "" {
		order.WorkType = req.WorkType
	}

	if order.Status == "completed" && oldStatus != "completed" {
		now := time.Now()
		order.CompletedAt = &now
	} else if order.Status != "completed" {
		order.CompletedAt = nil
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&order).Error; err != nil {
			return err
		}
		if order.Status != oldStatus {
			comment := model.WorkOrderComment{
				TenantID:    tenantID,
				WorkOrderID: order.ID,
				UserID:      claims.UserID,
				Comment:     fmt.Sprintf("Status changed from %s to %s", oldStatus, order.Status),
				CommentType: "status_change",
			}
			return tx.Create(&comment).Error
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to update work order", zap.Uint("work_order_id", id), zap.Error(err))
		return respondError(c, fromDB(err))
	}

	afterMutation(c, "work_order", "updated", order.ID, tenantID, claims.UserID)
	log.Info("Work order updated",
		zap.Uint("work_order_id", order.ID),
		zap.String("status", order.Status))
	return c.JSON(http.StatusOK, order)
}

// DeleteWorkOrder soft-deletes a work order
func DeleteWorkOrder(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	result := database.GetDB().Where("tenant_id = ?", tenantID).Delete(&model.WorkOrder{}, id)
	if result.Error != nil {
		log.Error("Failed to delete work order", zap.Uint("work_order_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}
	if result.RowsAffected == 0 {
		return respondError(c, apperr.New(apperr.KindNotFound, "work order not found"))
	}

	afterMutation(c, "work_order", "deleted", id, tenantID, claims.UserID)
	log.Info("Work order deleted", zap.Uint("work_order_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Work order deleted successfully"})
}

// AddWorkOrderComment appends a comment to a work order's activity trail
func AddWorkOrderComment(c echo.Context) error {
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
		Comment string `json:"comment" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	var count int64
	database.GetDB().Model(&model.WorkOrder{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Count(&count)
	if count == 0 {
		return respondError(c, apperr.New(apperr.KindNotFound, "work order not found"))
	}

	comment := model.WorkOrderComment{
		TenantID:    tenantID,
		WorkOrderID: id,
		UserID:      claims.UserID,
		Comment:     req.Comment,
		CommentType: "comment",
	}
	if result := database.GetDB().Create(&comment); result.Error != nil {
		log.Error("Failed to add comment", zap.Uint("work_order_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	prometheus.RecordMutation("work_order_comment", "create")
	log.Info("Work order comment added",
		zap.Uint("work_order_id", id),
		zap.Uint("comment_id", comment.ID))
	return c.JSON(http.StatusCreated, comment)
}

// ExportWorkOrders streams the tenant's work orders as CSV
func ExportWorkOrders(c echo.Context) error {
	log := logger.FromEcho(c)

	_, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var orders []model.WorkOrder
	result := database.GetDB().Preload("Asset").
		Where("tenant_id = ?", tenantID).
		Order("created_at").
		Find(&orders)
	if result.Error != nil {
		log.Error("Failed to load work orders for export", zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.Write([]string{"Number", "Title", "Status", "Priority", "Type", "Asset", "Due Date", "Completed At"})
	for _, order := range orders {
		assetName := ""
		if order.Asset != nil {
			assetName = order.Asset.Name
		}
		dueDate := ""
		if order.DueDate != nil {
			dueDate = order.DueDate.Format("2006-01-02")
		}
		completedAt := ""
		if order.CompletedAt != nil {
			completedAt = order.CompletedAt.Format("2006-01-02")
		}
		_ = w.Write([]string{
			order.WorkOrderNumber,
			order.Title,
			order.Status,
			order.Priority,
			order.WorkType,
			assetName,
			dueDate,
			completedAt,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Error("Failed to serialize work order CSV", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "export failed"})
	}

	log.Info("Work orders exported", zap.Uint("tenant_id", tenantID), zap.Int("count", len(orders)))
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="work-orders.csv"`)
	return c.Blob(http.StatusOK, "text/csv", []byte(b.String()))
}
