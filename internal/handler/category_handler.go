package handler

import (
	"io"
	"net/http"
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

// CategoryRequest carries the writable fields of an asset category
type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

// ListCategories returns the tenant's categories, cached
func ListCategories(c echo.Context) error {
	log := logger.FromEcho(c)

	_, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var categories []model.Category
	key := cache.ListKey("category", tenantID)
	if err := cache.GetList(key, &categories); err == nil {
		prometheus.CacheCounter.WithLabelValues("hit").Inc()
		return c.JSON(http.StatusOK, categories)
	}
	prometheus.CacheCounter.WithLabelValues("miss").Inc()

	defer prometheus.TrackDBOperation("query")(time.Now())
	if result := database.GetDB().Where("tenant_id = ?", tenantID).Order("name").Find(&categories); result.Error != nil {
		log.Error("Failed to list categories", zap.Uint("tenant_id", tenantID), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	if err := cache.SetList(key, categories); err != nil {
		log.Warn("Failed to cache category list", zap.Error(err))
	}
	return c.JSON(http.StatusOK, categories)
}

// CreateCategory creates a category. Names are unique per tenant.
func CreateCategory(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse category request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	category := model.Category{
		TenantID:    tenantID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&category); result.Error != nil {
		log.Warn("Failed to create category", zap.String("name", req.Name), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	afterMutation(c, "category", "created", category.ID, tenantID, claims.UserID)
	log.Info("Category created", zap.Uint("category_id", category.ID), zap.String("name", category.Name))
	return c.JSON(http.StatusCreated, category)
}

// UpdateCategory updates a category's name and description
func UpdateCategory(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	var category model.Category
	result := database.GetDB().Where("tenant_id = ?", tenantID).First(&category, id)
	if result.Error != nil {
		log.Warn("Category not found for update", zap.Uint("category_id", id))
		return respondError(c, fromDB(result.Error))
	}

	category.Name = strings.TrimSpace(req.Name)
	category.Description = req.Description

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&category); result.Error != nil {
		log.Error("Failed to update category", zap.Uint("category_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	afterMutation(c, "category", "updated", category.ID, tenantID, claims.UserID)
	log.Info("Category updated", zap.Uint("category_id", category.ID))
	return c.JSON(http.StatusOK, category)
}

// DeleteCategory removes a category. Categories referenced by assets or
// prefixes fail with a validation error from the foreign key.
func DeleteCategory(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	result := database.GetDB().Where("tenant_id = ?", tenantID).Delete(&model.Category{}, id)
	if result.Error != nil {
		log.Error("Failed to delete category", zap.Uint("category_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}
	if result.RowsAffected == 0 {
		return respondError(c, apperr.New(apperr.KindNotFound, "category not found"))
	}

	afterMutation(c, "category", "deleted", id, tenantID, claims.UserID)
	log.Info("Category deleted", zap.Uint("category_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Category deleted successfully"})
}

// readUploadedCSV accepts either a multipart "file" upload or a raw
// text/csv request body.
func readUploadedCSV(c echo.Context) (string, error) {
	if file, err := c.FormFile("file"); err == nil {
		src, err := file.Open()
		if err != nil {
			return "", apperr.Wrap(apperr.KindValidation, "could not read uploaded file", err)
		}
		defer src.Close()
		data, err := io.ReadAll(src)
		if err != nil {
			return "", apperr.Wrap(apperr.KindValidation, "could not read uploaded file", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return "", apperr.Wrap(apperr.KindValidation, "could not read request body", err)
	}
	if len(data) == 0 {
		return "", apperr.New(apperr.KindValidation, "no CSV content provided")
	}
	return string(data), nil
}

// ImportCategories parses an uploaded CSV and inserts the valid rows in a
// single transaction. Invalid rows are reported back per row and never
// block the rest of the file.
func ImportCategories(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	content, err := readUploadedCSV(c)
	if err != nil {
		return respondError(c, err)
	}

	rows, err := csvimport.ParseCategoryCSV(content)
	if err != nil {
		log.Warn("Category CSV failed to parse", zap.Error(err))
		return respondError(c, apperr.Wrap(apperr.KindValidation, "could not parse CSV file", err))
	}

	// Existing names are skipped, case-insensitively, matching the create
	// endpoint's uniqueness rule.
	var existing []model.Category
	if result := database.GetDB().Where("tenant_id = ?", tenantID).Find(&existing); result.Error != nil {
		return respondError(c, fromDB(result.Error))
	}
	existingNames := make(map[string]bool, len(existing))
	for _, cat := range existing {
		existingNames[strings.ToLower(cat.Name)] = true
	}

	var toInsert []model.Category
	imported, skipped := 0, 0
	for i := range rows {
		row := &rows[i]
		if !row.Valid {
			prometheus.ImportRowCounter.WithLabelValues("category", "invalid").Inc()
			skipped++
			continue
		}
		lower := strings.ToLower(row.Name)
		if existingNames[lower] {
			row.Valid = false
			row.Error = "Already exists"
			prometheus.ImportRowCounter.WithLabelValues("category", "invalid").Inc()
			skipped++
			continue
		}
		existingNames[lower] = true
		prometheus.ImportRowCounter.WithLabelValues("category", "valid").Inc()
		toInsert = append(toInsert, model.Category{
			TenantID:    tenantID,
			Name:        row.Name,
			Description: row.Description,
		})
		imported++
	}

	if len(toInsert) > 0 {
		defer prometheus.TrackDBOperation("insert")(time.Now())
		err = database.GetDB().Transaction(func(tx *gorm.DB) error {
			return tx.Create(&toInsert).Error
		})
		if err != nil {
			log.Error("Category import insert failed", zap.Error(err))
			return respondError(c, fromDB(err))
		}
		afterMutation(c, "category", "created", 0, tenantID, claims.UserID)
	}

	log.Info("Category CSV imported",
		zap.Uint("tenant_id", tenantID),
		zap.Int("imported", imported),
		zap.Int("skipped", skipped))

	return c.JSON(http.StatusOK, echo.Map{
		"imported": imported,
		"skipped":  skipped,
		"rows":     rows,
	})
}
