package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/main4/cmms/internal/csvimport"
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

// PrefixRequest carries the writable fields of an asset tag prefix
type PrefixRequest struct {
	PrefixLetter string `json:"prefix_letter" validate:"required,len=1"`
	NumberCode   int    `json:"number_code" validate:"required,gte=1,lte=999"`
	CategoryID   *uint  `json:"category_id,omitempty"`
	Description  string `json:"description" validate:"required"`
}

// ListPrefixes returns the tenant's asset tag prefixes, cached
func ListPrefixes(c echo.Context) error {
	log := logger.FromEcho(c)

	_, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var prefixes []model.AssetPrefix
	key := cache.ListKey("asset_prefix", tenantID)
	if err := cache.GetList(key, &prefixes); err == nil {
		prometheus.CacheCounter.WithLabelValues("hit").Inc()
		return c.JSON(http.StatusOK, prefixes)
	}
	prometheus.CacheCounter.WithLabelValues("miss").Inc()

	defer prometheus.TrackDBOperation("query")(time.Now())
	result := database.GetDB().Preload("Category").
		Where("tenant_id = ?", tenantID).
		Order("prefix_letter, number_code").
		Find(&prefixes)
	if result.Error != nil {
		log.Error("Failed to list prefixes", zap.Uint("tenant_id", tenantID), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	if err := cache.SetList(key, prefixes); err != nil {
		log.Warn("Failed to cache prefix list", zap.Error(err))
	}
	return c.JSON(http.StatusOK, prefixes)
}

// CreatePrefix creates an asset tag prefix. The letter and code combo is
// unique per tenant.
func CreatePrefix(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var req PrefixRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse prefix request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	letter := strings.ToUpper(strings.TrimSpace(req.PrefixLetter))
	if letter < "A" || letter > "Z" {
		return respondFieldErrors(c, map[string]string{"prefix_letter": "prefix_letter must be a letter A-Z"})
	}

	prefix := model.AssetPrefix{
		TenantID:     tenantID,
		PrefixLetter: letter,
		NumberCode:   req.NumberCode,
		CategoryID:   req.CategoryID,
		Description:  req.Description,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&prefix); result.Error != nil {
		log.Warn("Failed to create prefix",
			zap.String("letter", letter),
			zap.Int("code", req.NumberCode),
			zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	afterMutation(c, "asset_prefix", "created", prefix.ID, tenantID, claims.UserID)
	log.Info("Prefix created",
		zap.Uint("prefix_id", prefix.ID),
		zap.String("letter", prefix.PrefixLetter),
		zap.Int("code", prefix.NumberCode))
	return c.JSON(http.StatusCreated, prefix)
}

// UpdatePrefix updates an asset tag prefix
func UpdatePrefix(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req PrefixRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	var prefix model.AssetPrefix
	result := database.GetDB().Where("tenant_id = ?", tenantID).First(&prefix, id)
	if result.Error != nil {
		log.Warn("Prefix not found for update", zap.Uint("prefix_id", id))
		return respondError(c, fromDB(result.Error))
	}

	prefix.PrefixLetter = strings.ToUpper(strings.TrimSpace(req.PrefixLetter))
	prefix.NumberCode = req.NumberCode
	prefix.CategoryID = req.CategoryID
	prefix.Description = req.Description

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&prefix); result.Error != nil {
		log.Error("Failed to update prefix", zap.Uint("prefix_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	afterMutation(c, "asset_prefix", "updated", prefix.ID, tenantID, claims.UserID)
	log.Info("Prefix updated", zap.Uint("prefix_id", prefix.ID))
	return c.JSON(http.StatusOK, prefix)
}

// DeletePrefix removes an asset tag prefix
func DeletePrefix(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	result := database.GetDB().Where("tenant_id = ?", tenantID).Delete(&model.AssetPrefix{}, id)
	if result.Error != nil {
		log.Error("Failed to delete prefix", zap.Uint("prefix_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}
	if result.RowsAffected == 0 {
		return respondError(c, apperr.New(apperr.KindNotFound, "prefix not found"))
	}

	afterMutation(c, "asset_prefix", "deleted", id, tenantID, claims.UserID)
	log.Info("Prefix deleted", zap.Uint("prefix_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Prefix deleted successfully"})
}

// ImportPrefixes parses an uploaded prefix CSV, validates every row against
// the tenant's existing combos and categories, and inserts the valid rows
// in a single transaction. The full per-row outcome goes back to the
// caller.
func ImportPrefixes(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	content, err := readUploadedCSV(c)
	if err != nil {
		return respondError(c, err)
	}

	existingCombos, err := loadExistingCombos(tenantID)
	if err != nil {
		return respondError(c, fromDB(err))
	}
	categories, err := loadCategoryNames(tenantID)
	if err != nil {
		return respondError(c, fromDB(err))
	}

	rows, err := csvimport.ParsePrefixCSV(content, existingCombos, categories)
	if err != nil {
		log.Warn("Prefix CSV failed to parse", zap.Error(err))
		return respondError(c, apperr.Wrap(apperr.KindValidation, "could not parse CSV file", err))
	}

	var toInsert []model.AssetPrefix
	imported, skipped := 0, 0
	for _, row := range rows {
		if !row.Valid {
			prometheus.ImportRowCounter.WithLabelValues("prefix", "invalid").Inc()
			skipped++
			continue
		}
		prometheus.ImportRowCounter.WithLabelValues("prefix", "valid").Inc()
		code, _ := strconv.Atoi(row.NumberCode)
		toInsert = append(toInsert, model.AssetPrefix{
			TenantID:     tenantID,
			PrefixLetter: row.PrefixLetter,
			NumberCode:   code,
			CategoryID:   row.CategoryID,
			Description:  row.Description,
		})
		imported++
	}

	if len(toInsert) > 0 {
		defer prometheus.TrackDBOperation("insert")(time.Now())
		err = database.GetDB().Transaction(func(tx *gorm.DB) error {
			return tx.Create(&toInsert).Error
		})
		if err != nil {
			log.Error("Prefix import insert failed", zap.Error(err))
			return respondError(c, fromDB(err))
		}
		afterMutation(c, "asset_prefix", "created", 0, tenantID, claims.UserID)
	}

	log.Info("Prefix CSV imported",
		zap.Uint("tenant_id", tenantID),
		zap.Int("imported", imported),
		zap.Int("skipped", skipped))

	return c.JSON(http.StatusOK, echo.Map{
		"imported": imported,
		"skipped":  skipped,
		"rows":     rows,
	})
}

// ExportPrefixes streams the tenant's prefixes as CSV in the import format
func ExportPrefixes(c echo.Context) error {
	log := logger.FromEcho(c)

	_, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var prefixes []model.AssetPrefix
	result := database.GetDB().Preload("Category").
		Where("tenant_id = ?", tenantID).
		Order("prefix_letter, number_code").
		Find(&prefixes)
	if result.Error != nil {
		log.Error("Failed to load prefixes for export", zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	rows := make([]csvimport.ParsedPrefix, 0, len(prefixes))
	for _, p := range prefixes {
		row := csvimport.ParsedPrefix{
			PrefixLetter: p.PrefixLetter,
			NumberCode:   strconv.Itoa(p.NumberCode),
			Description:  p.Description,
		}
		if p.Category != nil {
			row.CategoryName = p.Category.Name
		}
		rows = append(rows, row)
	}

	content, err := csvimport.PrefixesToCSV(rows)
	if err != nil {
		log.Error("Failed to serialize prefix CSV", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "export failed"})
	}

	log.Info("Prefixes exported", zap.Uint("tenant_id", tenantID), zap.Int("count", len(rows)))
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="asset-prefixes.csv"`)
	return c.Blob(http.StatusOK, "text/csv", []byte(content))
}

func loadExistingCombos(tenantID uint) (map[string]bool, error) {
	var prefixes []model.AssetPrefix
	if result := database.GetDB().Where("tenant_id = ?", tenantID).Find(&prefixes); result.Error != nil {
		return nil, result.Error
	}
	combos := make(map[string]bool, len(prefixes))
	for _, p := range prefixes {
		combos[csvimport.ComboKey(p.PrefixLetter, strconv.Itoa(p.NumberCode))] = true
	}
	return combos, nil
}

func loadCategoryNames(tenantID uint) (map[string]uint, error) {
	var categories []model.Category
	if result := database.GetDB().Where("tenant_id = ?", tenantID).Find(&categories); result.Error != nil {
		return nil, result.Error
	}
	names := make(map[string]uint, len(categories))
	for _, cat := range categories {
		names[strings.ToLower(cat.Name)] = cat.ID
	}
	return names, nil
}
