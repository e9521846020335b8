package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/main4/cmms/internal/model"
	"github.com/main4/cmms/pkg/database"
	"github.com/main4/cmms/pkg/logger"
	"github.com/main4/cmms/pkg/validate"
	"github.com/main4/cmms/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateTenant creates a tenant owned by the authenticated user. The owner
// gets a UserTenant row and the new tenant becomes their default, all in
// one transaction.
func CreateTenant(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		Name        string `json:"name" validate:"required,max=100"`
		Description string `json:"description"`
		Settings    string `json:"settings,omitempty"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse tenant creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	tenant := model.Tenant{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     claims.UserID,
		Settings:    req.Settings,
		Active:      true,
	}

	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if result := tx.Create(&tenant); result.Error != nil {
			return result.Error
		}

		userTenant := model.UserTenant{
			UserID:    claims.UserID,
			TenantID:  tenant.ID,
			Role:      "owner",
			IsDefault: true,
			Active:    true,
		}
		if result := tx.Create(&userTenant); result.Error != nil {
			return result.Error
		}

		return tx.Model(&model.User{}).
			Where("id = ?", claims.UserID).
			Update("tenant_id", tenant.ID).Error
	})
	if err != nil {
		log.Error("Failed to create tenant", zap.String("name", req.Name), zap.Error(err))
		return respondError(c, fromDB(err))
	}

	prometheus.RecordMutation("tenant", "create")
	log.Info("Tenant created",
		zap.String("name", tenant.Name),
		zap.Uint("tenant_id", tenant.ID),
		zap.Uint("owner_id", tenant.OwnerID))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Tenant created successfully",
		"tenant":  tenant,
	})
}

// GetTenant returns the authenticated user's current tenant
func GetTenant(c echo.Context) error {
	log := logger.FromEcho(c)

	_, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var tenant model.Tenant
	if result := database.GetDB().First(&tenant, tenantID); result.Error != nil {
		log.Error("Failed to load tenant", zap.Uint("tenant_id", tenantID), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	return c.JSON(http.StatusOK, tenant)
}

// ListTenantMembers returns every active member of the current tenant
func ListTenantMembers(c echo.Context) error {
	log := logger.FromEcho(c)

	_, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var members []model.UserTenant
	result := database.GetDB().Preload("User").
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Find(&members)
	if result.Error != nil {
		log.Error("Failed to list tenant members", zap.Uint("tenant_id", tenantID), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	log.Debug("Tenant members listed", zap.Uint("tenant_id", tenantID), zap.Int("count", len(members)))
	return c.JSON(http.StatusOK, members)
}

// UpdateMemberRole changes a member's role within the current tenant
func UpdateMemberRole(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	memberID, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		Role string `json:"role" validate:"required,oneof=owner admin member"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	var membership model.UserTenant
	result := database.GetDB().
		Where("user_id = ? AND tenant_id = ?", memberID, tenantID).
		First(&membership)
	if result.Error != nil {
		log.Warn("Membership not found", zap.Uint("user_id", memberID), zap.Uint("tenant_id", tenantID))
		return respondError(c, fromDB(result.Error))
	}

	membership.Role = req.Role
	if result := database.GetDB().Save(&membership); result.Error != nil {
		log.Error("Failed to update member role", zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	prometheus.RecordMutation("user_tenant", "update")
	log.Info("Member role updated",
		zap.Uint("tenant_id", tenantID),
		zap.Uint("user_id", memberID),
		zap.String("role", req.Role),
		zap.Uint("changed_by", claims.UserID))

	return c.JSON(http.StatusOK, membership)
}
