package handler

import (
	"bytes"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/main4/cmms/internal/labels"
	"github.com/main4/cmms/internal/model"
	"github.com/main4/cmms/pkg/apperr"
	"github.com/main4/cmms/pkg/cache"
	"github.com/main4/cmms/pkg/database"
	"github.com/main4/cmms/pkg/logger"
	"github.com/main4/cmms/pkg/validate"
	"github.com/main4/cmms/prometheus"
	"go.uber.org/zap"
)

// AssetRequest carries the writable fields of an asset
type AssetRequest struct {
	Name          string     `json:"name" validate:"required,max=150"`
	AssetTag      string     `json:"asset_tag" validate:"max=50"`
	CategoryID    *uint      `json:"category_id,omitempty"`
	LocationID    *uint      `json:"location_id,omitempty"`
	DepartmentID  *uint      `json:"department_id,omitempty"`
	ParentAssetID *uint      `json:"parent_asset_id,omitempty"`
	Status        string     `json:"status" validate:"omitempty,oneof=Active Inactive Retired"`
	Priority      string     `json:"priority" validate:"omitempty,oneof=Low Medium High Critical"`
	Description   string     `json:"description"`
	Manufacturer  string     `json:"manufacturer" validate:"max=100"`
	ModelNumber   string     `json:"model_number" validate:"max=100"`
	SerialNumber  string     `json:"serial_number" validate:"max=100"`
	PurchaseCost  *float64   `json:"purchase_cost,omitempty"`
	PurchaseDate  *time.Time `json:"purchase_date,omitempty"`
}

// ListAssets returns the tenant's assets with optional status, category and
// location filters. Unfiltered lists are cached.
func ListAssets(c echo.Context) error {
	log := logger.FromEcho(c)

	_, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	status := c.QueryParam("status")
	categoryID := c.QueryParam("category_id")
	locationID := c.QueryParam("location_id")
	cacheable := status == "" && categoryID == "" && locationID == ""

	var assets []model.Asset
	key := cache.ListKey("asset", tenantID)
	if cacheable {
		if err := cache.GetList(key, &assets); err == nil {
			prometheus.CacheCounter.WithLabelValues("hit").Inc()
			return c.JSON(http.StatusOK, assets)
		}
		prometheus.CacheCounter.WithLabelValues("miss").Inc()
	}

	query := database.GetDB().Preload("Category").Preload("Location").
		Where("tenant_id = ?", tenantID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if locationID != "" {
		query = query.Where("location_id = ?", locationID)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	if result := query.Order("name").Find(&assets); result.Error != nil {
		log.Error("Failed to list assets", zap.Uint("tenant_id", tenantID), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	if cacheable {
		if err := cache.SetList(key, assets); err != nil {
			log.Warn("Failed to cache asset list", zap.Error(err))
		}
	}
	return c.JSON(http.StatusOK, assets)
}

// GetAsset returns one asset with its relations
func GetAsset(c echo.Context) error {
	log := logger.FromEcho(c)

	_, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var asset model.Asset
	result := database.GetDB().Preload("Category").Preload("Location").
		Where("tenant_id = ?", tenantID).
		First(&asset, id)
	if result.Error != nil {
		log.Warn("Asset not found", zap.Uint("asset_id", id))
		return respondError(c, fromDB(result.Error))
	}

	return c.JSON(http.StatusOK, asset)
}

// CreateAsset creates an asset
func CreateAsset(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var req AssetRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse asset request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	asset := model.Asset{
		TenantID:      tenantID,
		Name:          req.Name,
		AssetTag:      req.AssetTag,
		CategoryID:    req.CategoryID,
		LocationID:    req.LocationID,
		DepartmentID:  req.DepartmentID,
		ParentAssetID: req.ParentAssetID,
		Description:   req.Description,
		Manufacturer:  req.Manufacturer,
		ModelNumber:   req.ModelNumber,
		SerialNumber:  req.SerialNumber,
		PurchaseCost:  req.PurchaseCost,
		PurchaseDate:  req.PurchaseDate,
	}
	if req.Status != "" {
		asset.Status = req.Status
	}
	if req.Priority != "" {
		asset.Priority = req.Priority
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&asset); result.Error != nil {
		log.Error("Failed to create asset", zap.String("name", req.Name), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	afterMutation(c, "asset", "created", asset.ID, tenantID, claims.UserID)
	log.Info("Asset created",
		zap.Uint("asset_id", asset.ID),
		zap.String("name", asset.Name),
		zap.String("asset_tag", asset.AssetTag))
	return c.JSON(http.StatusCreated, asset)
}

// UpdateAsset updates an asset. An asset can never become its own parent.
func UpdateAsset(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req AssetRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}
	if req.ParentAssetID != nil && *req.ParentAssetID == id {
		return respondError(c, apperr.New(apperr.KindValidation, "an asset cannot be its own parent"))
	}

	var asset model.Asset
	result := database.GetDB().Where("tenant_id = ?", tenantID).First(&asset, id)
	if result.Error != nil {
		log.Warn("Asset not found for update", zap.Uint("asset_id", id))
		return respondError(c, fromDB(result.Error))
	}

	asset.Name = req.Name
	asset.AssetTag = req.AssetTag
	asset.CategoryID = req.CategoryID
	asset.LocationID = req.LocationID
	asset.DepartmentID = req.DepartmentID
	asset.ParentAssetID = req.ParentAssetID
	asset.Description = req.Description
	asset.Manufacturer = req.Manufacturer
	asset.ModelNumber = req.ModelNumber
	asset.SerialNumber = req.SerialNumber
	asset.PurchaseCost = req.PurchaseCost
	asset.PurchaseDate = req.PurchaseDate
	if req.Status != "" {
		asset.Status = req.Status
	}
	if req.Priority != "" {
		asset.Priority = req.Priority
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&asset); result.Error != nil {
		log.Error("Failed to update asset", zap.Uint("asset_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	afterMutation(c, "asset", "updated", asset.ID, tenantID, claims.UserID)
	log.Info("Asset updated", zap.Uint("asset_id", asset.ID))
	return c.JSON(http.StatusOK, asset)
}

// DeleteAsset soft-deletes an asset
func DeleteAsset(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	result := database.GetDB().Where("tenant_id = ?", tenantID).Delete(&model.Asset{}, id)
	if result.Error != nil {
		log.Error("Failed to delete asset", zap.Uint("asset_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}
	if result.RowsAffected == 0 {
		return respondError(c, apperr.New(apperr.KindNotFound, "asset not found"))
	}

	afterMutation(c, "asset", "deleted", id, tenantID, claims.UserID)
	log.Info("Asset deleted", zap.Uint("asset_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Asset deleted successfully"})
}

// PrintAssetLabels renders a PDF of tag labels for the requested assets
func PrintAssetLabels(c echo.Context) error {
	log := logger.FromEcho(c)

	_, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		AssetIDs []uint `json:"asset_ids" validate:"required,min=1"`
		Size     string `json:"size"`
		Copies   int    `json:"copies"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse label request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}
	if req.Size == "" {
		req.Size = labels.DefaultSize
	}

	var assets []model.Asset
	result := database.GetDB().Preload("Location").
		Where("tenant_id = ? AND id IN ?", tenantID, req.AssetIDs).
		Find(&assets)
	if result.Error != nil {
		log.Error("Failed to load assets for labels", zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}
	if len(assets) == 0 {
		return respondError(c, apperr.New(apperr.KindNotFound, "no matching assets"))
	}

	items := make([]labels.Label, 0, len(assets))
	for _, asset := range assets {
		item := labels.Label{
			AssetName: asset.Name,
			AssetTag:  asset.AssetTag,
		}
		if asset.Location != nil {
			item.Location = asset.Location.Name
		}
		items = append(items, item)
	}

	var buf bytes.Buffer
	if err := labels.Render(&buf, req.Size, req.Copies, items); err != nil {
		log.Warn("Label rendering failed", zap.String("size", req.Size), zap.Error(err))
		return respondError(c, apperr.Wrap(apperr.KindValidation, err.Error(), err))
	}

	log.Info("Asset labels rendered",
		zap.Uint("tenant_id", tenantID),
		zap.Int("assets", len(items)),
		zap.String("size", req.Size))

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="asset-labels.pdf"`)
	return c.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}
