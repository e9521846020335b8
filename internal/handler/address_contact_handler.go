package handler

import (
	"net/http"
	"strconv"
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

// ContactRequest carries the writable fields of an address contact
type ContactRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	Title     string `json:"title" validate:"max=50"`
	JobRole   string `json:"job_role" validate:"max=100"`
	Phone     string `json:"phone" validate:"max=30"`
	Mobile    string `json:"mobile" validate:"max=30"`
	Email     string `json:"email" validate:"omitempty,email"`
	Notes     string `json:"notes"`
	IsPrimary bool   `json:"is_primary"`
}

func addressParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("address_id"), 10, 32)
	if err != nil {
		return 0, apperr.New(apperr.KindValidation, "invalid address id")
	}
	return uint(id), nil
}

// loadAddress verifies the address exists within the tenant
func loadAddress(tenantID, addressID uint) (*model.Address, error) {
	var address model.Address
	result := database.GetDB().Where("tenant_id = ?", tenantID).First(&address, addressID)
	if result.Error != nil {
		return nil, apperr.FromDB(result.Error)
	}
	return &address, nil
}

// ListAddressContacts returns the contacts of one address, primary first.
// Served from the cache keyed by tenant and address.
func ListAddressContacts(c echo.Context) error {
	log := logger.FromEcho(c)

	_, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	addressID, err := addressParam(c)
	if err != nil {
		return respondError(c, err)
	}

	var contacts []model.AddressContact
	key := cache.ListKey("address_contact", tenantID, addressID)
	if err := cache.GetList(key, &contacts); err == nil {
		prometheus.CacheCounter.WithLabelValues("hit").Inc()
		return c.JSON(http.StatusOK, contacts)
	}
	prometheus.CacheCounter.WithLabelValues("miss").Inc()

	defer prometheus.TrackDBOperation("query")(time.Now())
	result := database.GetDB().
		Where("tenant_id = ? AND address_id = ?", tenantID, addressID).
		Order("is_primary DESC, name").
		Find(&contacts)
	if result.Error != nil {
		log.Error("Failed to list address contacts", zap.Uint("address_id", addressID), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	if err := cache.SetList(key, contacts); err != nil {
		log.Warn("Failed to cache contact list", zap.Error(err))
	}
	return c.JSON(http.StatusOK, contacts)
}

// CreateAddressContact adds a contact to an address. Setting is_primary
// clears the flag on every sibling in the same transaction, so the address
// never carries two primary contacts.
func CreateAddressContact(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	addressID, err := addressParam(c)
	if err != nil {
		return respondError(c, err)
	}
	if _, err := loadAddress(tenantID, addressID); err != nil {
		return respondError(c, err)
	}

	var req ContactRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse contact request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	contact := model.AddressContact{
		TenantID:  tenantID,
		AddressID: addressID,
		Name:      req.Name,
		Title:     req.Title,
		JobRole:   req.JobRole,
		Phone:     req.Phone,
		Mobile:    req.Mobile,
		Email:     req.Email,
		Notes:     req.Notes,
		IsPrimary: req.IsPrimary,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if req.IsPrimary {
			if err := clearPrimarySiblings(tx, tenantID, addressID, 0); err != nil {
				return err
			}
		}
		return tx.Create(&contact).Error
	})
	if err != nil {
		log.Error("Failed to create contact", zap.Uint("address_id", addressID), zap.Error(err))
		return respondError(c, fromDB(err))
	}

	afterMutation(c, "address_contact", "created", contact.ID, tenantID, claims.UserID)
	log.Info("Contact created",
		zap.Uint("address_id", addressID),
		zap.Uint("contact_id", contact.ID),
		zap.Bool("is_primary", contact.IsPrimary))
	return c.JSON(http.StatusCreated, contact)
}

// UpdateAddressContact updates a contact, preserving the single-primary rule
func UpdateAddressContact(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	addressID, err := addressParam(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req ContactRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	var contact model.AddressContact
	result := database.GetDB().
		Where("tenant_id = ? AND address_id = ?", tenantID, addressID).
		First(&contact, id)
	if result.Error != nil {
		log.Warn("Contact not found for update", zap.Uint("contact_id", id))
		return respondError(c, fromDB(result.Error))
	}

	contact.Name = req.Name
	contact.Title = req.Title
	contact.JobRole = req.JobRole
	contact.Phone = req.Phone
	contact.Mobile = req.Mobile
	contact.Email = req.Email
	contact.Notes = req.Notes
	contact.IsPrimary = req.IsPrimary

	defer prometheus.TrackDBOperation("update")(time.Now())
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if req.IsPrimary {
			if err := clearPrimarySiblings(tx, tenantID, addressID, contact.ID); err != nil {
				return err
			}
		}
		return tx.Save(&contact).Error
	})
	if err != nil {
		log.Error("Failed to update contact", zap.Uint("contact_id", id), zap.Error(err))
		return respondError(c, fromDB(err))
	}

	afterMutation(c, "address_contact", "updated", contact.ID, tenantID, claims.UserID)
	log.Info("Contact updated", zap.Uint("contact_id", contact.ID), zap.Bool("is_primary", contact.IsPrimary))
	return c.JSON(http.StatusOK, contact)
}

// DeleteAddressContact removes a contact from an address
func DeleteAddressContact(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	addressID, err := addressParam(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	result := database.GetDB().
		Where("tenant_id = ? AND address_id = ?", tenantID, addressID).
		Delete(&model.AddressContact{}, id)
	if result.Error != nil {
		log.Error("Failed to delete contact", zap.Uint("contact_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}
	if result.RowsAffected == 0 {
		return respondError(c, apperr.New(apperr.KindNotFound, "contact not found"))
	}

	afterMutation(c, "address_contact", "deleted", id, tenantID, claims.UserID)
	log.Info("Contact deleted", zap.Uint("address_id", addressID), zap.Uint("contact_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Contact deleted successfully"})
}

// clearPrimarySiblings drops is_primary on every other contact of the
// address. Runs inside the caller's transaction.
func clearPrimarySiblings(tx *gorm.DB, tenantID, addressID, keepID uint) error {
	query := tx.Model(&model.AddressContact{}).
		Where("tenant_id = ? AND address_id = ? AND is_primary = ?", tenantID, addressID, true)
	if keepID != 0 {
		query = query.Where("id != ?", keepID)
	}
	return query.Update("is_primary", false).Error
}
