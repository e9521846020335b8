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

// PartRequest carries the writable fields of an inventory part
type PartRequest struct {
	Name             string   `json:"name" validate:"required,max=150"`
	SKU              string   `json:"sku" validate:"max=50"`
	Category         string   `json:"category" validate:"max=100"`
	QuantityInStock  int      `json:"quantity_in_stock" validate:"gte=0"`
	ReorderThreshold int      `json:"reorder_threshold" validate:"gte=0"`
	UnitOfMeasure    string   `json:"unit_of_measure" validate:"max=30"`
	UnitCost         *float64 `json:"unit_cost,omitempty"`
	SupplierID       *uint    `json:"supplier_id,omitempty"`
	StorageLocation  string   `json:"storage_location" validate:"max=100"`
}

// ListParts returns the tenant's inventory. low_stock=true narrows to
// parts at or below their reorder threshold. Unfiltered lists are cached.
func ListParts(c echo.Context) error {
	log := logger.FromEcho(c)

	_, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	lowStockOnly := c.QueryParam("low_stock") == "true"

	var parts []model.InventoryPart
	key := cache.ListKey("inventory_part", tenantID)
	if !lowStockOnly {
		if err := cache.GetList(key, &parts); err == nil {
			prometheus.CacheCounter.WithLabelValues("hit").Inc()
			return c.JSON(http.StatusOK, parts)
		}
		prometheus.CacheCounter.WithLabelValues("miss").Inc()
	}

	query := database.GetDB().Preload("Supplier").Where("tenant_id = ?", tenantID)
	if lowStockOnly {
		query = query.Where("reorder_threshold > 0 AND quantity_in_stock <= reorder_threshold")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	if result := query.Order("name").Find(&parts); result.Error != nil {
		log.Error("Failed to list inventory parts", zap.Uint("tenant_id", tenantID), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	if !lowStockOnly {
		if err := cache.SetList(key, parts); err != nil {
			log.Warn("Failed to cache part list", zap.Error(err))
		}
	}
	return c.JSON(http.StatusOK, parts)
}

// GetPart returns one inventory part
func GetPart(c echo.Context) error {
	log := logger.FromEcho(c)

	_, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var part model.InventoryPart
	result := database.GetDB().Preload("Supplier").
		Where("tenant_id = ?", tenantID).
		First(&part, id)
	if result.Error != nil {
		log.Warn("Part not found", zap.Uint("part_id", id))
		return respondError(c, fromDB(result.Error))
	}

	return c.JSON(http.StatusOK, part)
}

// CreatePart creates an inventory part
func CreatePart(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var req PartRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse part request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	part := model.InventoryPart{
		TenantID:         tenantID,
		Name:             req.Name,
		SKU:              req.SKU,
		Category:         req.Category,
		QuantityInStock:  req.QuantityInStock,
		ReorderThreshold: req.ReorderThreshold,
		UnitOfMeasure:    req.UnitOfMeasure,
		UnitCost:         req.UnitCost,
		SupplierID:       req.SupplierID,
		StorageLocation:  req.StorageLocation,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&part); result.Error != nil {
		log.Error("Failed to create part", zap.String("name", req.Name), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	afterMutation(c, "inventory_part", "created", part.ID, tenantID, claims.UserID)
	log.Info("Part created",
		zap.Uint("part_id", part.ID),
		zap.String("name", part.Name),
		zap.String("sku", part.SKU))
	return c.JSON(http.StatusCreated, part)
}

// UpdatePart updates an inventory part. Raising the stock above the
// threshold clears the alert cooldown so the next shortage alerts again
// immediately.
func UpdatePart(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req PartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	var part model.InventoryPart
	result := database.GetDB().Where("tenant_id = ?", tenantID).First(&part, id)
	if result.Error != nil {
		log.Warn("Part not found for update", zap.Uint("part_id", id))
		return respondError(c, fromDB(result.Error))
	}

	restocked := req.QuantityInStock > part.ReorderThreshold && part.QuantityInStock <= part.ReorderThreshold

	part.Name = req.Name
	part.SKU = req.SKU
	part.Category = req.Category
	part.QuantityInStock = req.QuantityInStock
	part.ReorderThreshold = req.ReorderThreshold
	part.UnitOfMeasure = req.UnitOfMeasure
	part.UnitCost = req.UnitCost
	part.SupplierID = req.SupplierID
	part.StorageLocation = req.StorageLocation
	if restocked {
		part.LastAlertSentAt = nil
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&part); result.Error != nil {
		log.Error("Failed to update part", zap.Uint("part_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	afterMutation(c, "inventory_part", "updated", part.ID, tenantID, claims.UserID)
	log.Info("Part updated",
		zap.Uint("part_id", part.ID),
		zap.Int("quantity", part.QuantityInStock),
		zap.Bool("restocked", restocked))
	return c.JSON(http.StatusOK, part)
}

// AdjustStock applies a relative stock movement to a part
func AdjustStock(c echo.Context) error {
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
		Delta int `json:"delta" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	var part model.InventoryPart
	result := database.GetDB().Where("tenant_id = ?", tenantID).First(&part, id)
	if result.Error != nil {
		log.Warn("Part not found for stock adjustment", zap.Uint("part_id", id))
		return respondError(c, fromDB(result.Error))
	}

	newQuantity := part.QuantityInStock + req.Delta
	if newQuantity < 0 {
		return respondError(c, apperr.New(apperr.KindValidation, "stock cannot go below zero"))
	}

	updates := map[string]interface{}{"quantity_in_stock": newQuantity}
	if newQuantity > part.ReorderThreshold {
		updates["last_alert_sent_at"] = nil
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := database.GetDB().Model(&part).Updates(updates).Error; err != nil {
		log.Error("Failed to adjust stock", zap.Uint("part_id", id), zap.Error(err))
		return respondError(c, fromDB(err))
	}

	afterMutation(c, "inventory_part", "updated", part.ID, tenantID, claims.UserID)
	log.Info("Stock adjusted",
		zap.Uint("part_id", part.ID),
		zap.Int("delta", req.Delta),
		zap.Int("quantity", newQuantity))

	part.QuantityInStock = newQuantity
	return c.JSON(http.StatusOK, part)
}

// DeletePart removes an inventory part
func DeletePart(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	result := database.GetDB().Where("tenant_id = ?", tenantID).Delete(&model.InventoryPart{}, id)
	if result.Error != nil {
		log.Error("Failed to delete part", zap.Uint("part_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}
	if result.RowsAffected == 0 {
		return respondError(c, apperr.New(apperr.KindNotFound, "part not found"))
	}

	afterMutation(c, "inventory_part", "deleted", id, tenantID, claims.UserID)
	log.Info("Part deleted", zap.Uint("part_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Part deleted successfully"})
}
