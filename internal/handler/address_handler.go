package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/main4/cmms/internal/events"
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

// AddressRequest carries the writable fields of an address-book entry
type AddressRequest struct {
	CompanyName    string `json:"company_name" validate:"max=150"`
	AddressLine1   string `json:"address_line_1" validate:"required,max=200"`
	AddressLine2   string `json:"address_line_2" validate:"max=200"`
	City           string `json:"city" validate:"max=100"`
	Postcode       string `json:"postcode" validate:"max=20"`
	Country        string `json:"country" validate:"max=100"`
	ContactName    string `json:"contact_name" validate:"max=100"`
	Email          string `json:"email" validate:"omitempty,email"`
	Phone          string `json:"phone" validate:"max=30"`
	Website        string `json:"website" validate:"omitempty,url"`
	Notes          string `json:"notes"`
	IsSupplier     bool   `json:"is_supplier"`
	IsManufacturer bool   `json:"is_manufacturer"`
}

// ListAddresses returns the tenant's address book, optionally filtered to
// suppliers or manufacturers. Unfiltered lists are served from the cache.
func ListAddresses(c echo.Context) error {
	log := logger.FromEcho(c)

	_, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	supplierOnly := c.QueryParam("is_supplier") == "true"
	manufacturerOnly := c.QueryParam("is_manufacturer") == "true"

	var addresses []model.Address

	cacheable := !supplierOnly && !manufacturerOnly
	key := cache.ListKey("address", tenantID)
	if cacheable {
		if err := cache.GetList(key, &addresses); err == nil {
			prometheus.CacheCounter.WithLabelValues("hit").Inc()
			return c.JSON(http.StatusOK, addresses)
		}
		prometheus.CacheCounter.WithLabelValues("miss").Inc()
	}

	query := database.GetDB().Where("tenant_id = ?", tenantID)
	if supplierOnly {
		query = query.Where("is_supplier = ?", true)
	}
	if manufacturerOnly {
		query = query.Where("is_manufacturer = ?", true)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	if result := query.Order("company_name").Find(&addresses); result.Error != nil {
		log.Error("Failed to list addresses", zap.Uint("tenant_id", tenantID), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	if cacheable {
		if err := cache.SetList(key, addresses); err != nil {
			log.Warn("Failed to cache address list", zap.Error(err))
		}
	}

	return c.JSON(http.StatusOK, addresses)
}

// GetAddress returns one address with its contacts
func GetAddress(c echo.Context) error {
	log := logger.FromEcho(c)

	_, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var address model.Address
	result := database.GetDB().Where("tenant_id = ?", tenantID).First(&address, id)
	if result.Error != nil {
		log.Warn("Address not found", zap.Uint("address_id", id))
		return respondError(c, fromDB(result.Error))
	}

	var contacts []model.AddressContact
	database.GetDB().
		Where("tenant_id = ? AND address_id = ?", tenantID, id).
		Order("is_primary DESC, name").
		Find(&contacts)

	return c.JSON(http.StatusOK, echo.Map{
		"address":  address,
		"contacts": contacts,
	})
}

// CreateAddress creates an address-book entry
func CreateAddress(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var req AddressRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse address request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	address := model.Address{
		TenantID:       tenantID,
		CompanyName:    req.CompanyName,
		AddressLine1:   req.AddressLine1,
		AddressLine2:   req.AddressLine2,
		City:           req.City,
		Postcode:       req.Postcode,
		Country:        req.Country,
		ContactName:    req.ContactName,
		Email:          req.Email,
		Phone:          req.Phone,
		Website:        req.Website,
		Notes:          req.Notes,
		IsSupplier:     req.IsSupplier,
		IsManufacturer: req.IsManufacturer,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&address); result.Error != nil {
		log.Error("Failed to create address", zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	afterMutation(c, "address", "created", address.ID, tenantID, claims.UserID)
	log.Info("Address created", zap.Uint("address_id", address.ID), zap.String("company", address.CompanyName))
	return c.JSON(http.StatusCreated, address)
}

// UpdateAddress updates an address-book entry
func UpdateAddress(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req AddressRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	var address model.Address
	result := database.GetDB().Where("tenant_id = ?", tenantID).First(&address, id)
	if result.Error != nil {
		log.Warn("Address not found for update", zap.Uint("address_id", id))
		return respondError(c, fromDB(result.Error))
	}

	address.CompanyName = req.CompanyName
	address.AddressLine1 = req.AddressLine1
	address.AddressLine2 = req.AddressLine2
	address.City = req.City
	address.Postcode = req.Postcode
	address.Country = req.Country
	address.ContactName = req.ContactName
	address.Email = req.Email
	address.Phone = req.Phone
	address.Website = req.Website
	address.Notes = req.Notes
	address.IsSupplier = req.IsSupplier
	address.IsManufacturer = req.IsManufacturer

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&address); result.Error != nil {
		log.Error("Failed to update address", zap.Uint("address_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	afterMutation(c, "address", "updated", address.ID, tenantID, claims.UserID)
	log.Info("Address updated", zap.Uint("address_id", address.ID))
	return c.JSON(http.StatusOK, address)
}

// DeleteAddress soft-deletes an address and its contacts
func DeleteAddress(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		result := tx.Where("tenant_id = ?", tenantID).Delete(&model.Address{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperr.New(apperr.KindNotFound, "address not found")
		}
		return tx.Where("tenant_id = ? AND address_id = ?", tenantID, id).
			Delete(&model.AddressContact{}).Error
	})
	if err != nil {
		log.Error("Failed to delete address", zap.Uint("address_id", id), zap.Error(err))
		if apperr.KindOf(err) != apperr.KindInternal {
			return respondError(c, err)
		}
		return respondError(c, fromDB(err))
	}

	afterMutation(c, "address", "deleted", id, tenantID, claims.UserID)
	cache.Invalidate("address_contact", tenantID)
	log.Info("Address deleted", zap.Uint("address_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Address deleted successfully"})
}

// afterMutation performs the bookkeeping shared by every entity mutation:
// metric, audit event and cache invalidation.
func afterMutation(c echo.Context, entity, operation string, recordID, tenantID, userID uint) {
	log := logger.FromEcho(c)

	switch operation {
	case "created":
		prometheus.RecordMutation(entity, "create")
	case "updated":
		prometheus.RecordMutation(entity, "update")
	case "deleted":
		prometheus.RecordMutation(entity, "delete")
	}

	events.Publish(entity, operation, recordID, tenantID, userID)

	if err := cache.Invalidate(entity, tenantID); err != nil {
		log.Warn("Cache invalidation failed",
			zap.String("entity", entity),
			zap.Uint("tenant_id", tenantID),
			zap.Error(err))
	}
}
