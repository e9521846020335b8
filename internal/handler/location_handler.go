package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/main4/cmms/internal/bulkentry"
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

// LocationRequest carries the writable fields of a location
type LocationRequest struct {
	Name             string `json:"name" validate:"required,max=150"`
	LocationCode     string `json:"location_code" validate:"required,max=50"`
	LocationLevelID  *uint  `json:"location_level_id,omitempty"`
	DepartmentID     *uint  `json:"department_id,omitempty"`
	ParentLocationID *uint  `json:"parent_location_id,omitempty"`
	Description      string `json:"description"`
}

// ListLocations returns the tenant's location hierarchy, cached
func ListLocations(c echo.Context) error {
	log := logger.FromEcho(c)

	_, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var locations []model.Location
	key := cache.ListKey("location", tenantID)
	if err := cache.GetList(key, &locations); err == nil {
		prometheus.CacheCounter.WithLabelValues("hit").Inc()
		return c.JSON(http.StatusOK, locations)
	}
	prometheus.CacheCounter.WithLabelValues("miss").Inc()

	defer prometheus.TrackDBOperation("query")(time.Now())
	result := database.GetDB().
		Preload("LocationLevel").
		Preload("Department").
		Where("tenant_id = ?", tenantID).
		Order("name").
		Find(&locations)
	if result.Error != nil {
		log.Error("Failed to list locations", zap.Uint("tenant_id", tenantID), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	if err := cache.SetList(key, locations); err != nil {
		log.Warn("Failed to cache location list", zap.Error(err))
	}
	return c.JSON(http.StatusOK, locations)
}

// GetLocation returns one location with its relations
func GetLocation(c echo.Context) error {
	log := logger.FromEcho(c)

	_, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var location model.Location
	result := database.GetDB().
		Preload("LocationLevel").
		Preload("Department").
		Preload("ParentLocation").
		Where("tenant_id = ?", tenantID).
		First(&location, id)
	if result.Error != nil {
		log.Warn("Location not found", zap.Uint("location_id", id))
		return respondError(c, fromDB(result.Error))
	}

	return c.JSON(http.StatusOK, location)
}

// CreateLocation creates a single location
func CreateLocation(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var req LocationRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse location request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	if req.ParentLocationID != nil {
		if err := verifyLocationInTenant(tenantID, *req.ParentLocationID); err != nil {
			return respondError(c, err)
		}
	}

	location := model.Location{
		TenantID:         tenantID,
		Name:             req.Name,
		LocationCode:     req.LocationCode,
		LocationLevelID:  req.LocationLevelID,
		DepartmentID:     req.DepartmentID,
		ParentLocationID: req.ParentLocationID,
		Description:      req.Description,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&location); result.Error != nil {
		log.Error("Failed to create location", zap.String("name", req.Name), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	afterMutation(c, "location", "created", location.ID, tenantID, claims.UserID)
	log.Info("Location created",
		zap.Uint("location_id", location.ID),
		zap.String("name", location.Name),
		zap.String("code", location.LocationCode))
	return c.JSON(http.StatusCreated, location)
}

// UpdateLocation updates a location. A location can never become its own
// parent.
func UpdateLocation(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req LocationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	if req.ParentLocationID != nil {
		if *req.ParentLocationID == id {
			return respondError(c, apperr.New(apperr.KindValidation, "a location cannot be its own parent"))
		}
		if err := verifyLocationInTenant(tenantID, *req.ParentLocationID); err != nil {
			return respondError(c, err)
		}
	}

	var location model.Location
	result := database.GetDB().Where("tenant_id = ?", tenantID).First(&location, id)
	if result.Error != nil {
		log.Warn("Location not found for update", zap.Uint("location_id", id))
		return respondError(c, fromDB(result.Error))
	}

	location.Name = req.Name
	location.LocationCode = req.LocationCode
	location.LocationLevelID = req.LocationLevelID
	location.DepartmentID = req.DepartmentID
	location.ParentLocationID = req.ParentLocationID
	location.Description = req.Description

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&location); result.Error != nil {
		log.Error("Failed to update location", zap.Uint("location_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	afterMutation(c, "location", "updated", location.ID, tenantID, claims.UserID)
	log.Info("Location updated", zap.Uint("location_id", location.ID))
	return c.JSON(http.StatusOK, location)
}

// DeleteLocation removes a location. Locations with children are refused.
func DeleteLocation(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var children int64
	database.GetDB().Model(&model.Location{}).
		Where("tenant_id = ? AND parent_location_id = ?", tenantID, id).
		Count(&children)
	if children > 0 {
		log.Warn("Location has children, refusing delete",
			zap.Uint("location_id", id),
			zap.Int64("children", children))
		return respondError(c, apperr.New(apperr.KindValidation, "location has child locations; move or delete them first"))
	}

	result := database.GetDB().Where("tenant_id = ?", tenantID).Delete(&model.Location{}, id)
	if result.Error != nil {
		log.Error("Failed to delete location", zap.Uint("location_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}
	if result.RowsAffected == 0 {
		return respondError(c, apperr.New(apperr.KindNotFound, "location not found"))
	}

	afterMutation(c, "location", "deleted", id, tenantID, claims.UserID)
	log.Info("Location deleted", zap.Uint("location_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Location deleted successfully"})
}

// BulkCreateLocations inserts a batch of draft locations in one
// transaction. Draft rows may reference each other as parents through temp
// ids; rows are ordered so parents land first and children get the real
// server-assigned ids. Any failure rolls back the whole batch.
func BulkCreateLocations(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		Rows []bulkentry.DraftRow `json:"rows"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse bulk entry request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	filled := bulkentry.Filled(req.Rows)
	if len(filled) == 0 {
		return respondError(c, apperr.New(apperr.KindValidation, "no rows to insert"))
	}

	if errs := bulkentry.Validate(filled); errs != nil {
		prometheus.BulkEntryCounter.WithLabelValues("aborted").Inc()
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error": "validation failed",
			"rows":  errs,
		})
	}

	ordered, err := bulkentry.Order(filled)
	if err != nil {
		prometheus.BulkEntryCounter.WithLabelValues("aborted").Inc()
		log.Warn("Bulk entry rejected", zap.Error(err))
		return respondError(c, apperr.Wrap(apperr.KindValidation, err.Error(), err))
	}

	// Existing-parent references must live in this tenant
	for _, row := range ordered {
		if row.ParentTempID == "" && row.ParentID != nil {
			if err := verifyLocationInTenant(tenantID, *row.ParentID); err != nil {
				prometheus.BulkEntryCounter.WithLabelValues("aborted").Inc()
				return respondError(c, err)
			}
		}
	}

	idMap := make(map[string]uint, len(ordered))
	created := make([]model.Location, 0, len(ordered))

	defer prometheus.TrackDBOperation("insert")(time.Now())
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		for _, row := range ordered {
			parentID, err := bulkentry.ResolveParent(row, idMap)
			if err != nil {
				return apperr.Wrap(apperr.KindValidation, err.Error(), err)
			}

			location := model.Location{
				TenantID:         tenantID,
				Name:             row.Name,
				LocationCode:     row.LocationCode,
				LocationLevelID:  row.LocationLevelID,
				DepartmentID:     row.DepartmentID,
				ParentLocationID: parentID,
				Description:      row.Description,
			}
			if result := tx.Create(&location); result.Error != nil {
				return result.Error
			}

			idMap[row.TempID] = location.ID
			created = append(created, location)
		}
		return nil
	})
	if err != nil {
		prometheus.BulkEntryCounter.WithLabelValues("aborted").Inc()
		log.Error("Bulk entry aborted", zap.Uint("tenant_id", tenantID), zap.Error(err))
		if apperr.KindOf(err) != apperr.KindInternal {
			return respondError(c, err)
		}
		return respondError(c, fromDB(err))
	}

	prometheus.BulkEntryCounter.WithLabelValues("committed").Inc()
	afterMutation(c, "location", "created", 0, tenantID, claims.UserID)
	log.Info("Bulk entry committed",
		zap.Uint("tenant_id", tenantID),
		zap.Int("created", len(created)))

	return c.JSON(http.StatusCreated, echo.Map{
		"created": created,
		"id_map":  idMap,
	})
}

func verifyLocationInTenant(tenantID, locationID uint) error {
	var count int64
	database.GetDB().Model(&model.Location{}).
		Where("tenant_id = ? AND id = ?", tenantID, locationID).
		Count(&count)
	if count == 0 {
		return apperr.New(apperr.KindValidation, "parent location not found")
	}
	return nil
}
