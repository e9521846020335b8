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

// ContractRequest carries the writable fields of a service contract
type ContractRequest struct {
	ContractTitle        string     `json:"contract_title" validate:"required,max=200"`
	VendorName           string     `json:"vendor_name" validate:"max=150"`
	AddressID            *uint      `json:"address_id,omitempty"`
	StartDate            *time.Time `json:"start_date,omitempty"`
	EndDate              time.Time  `json:"end_date" validate:"required"`
	Cost                 *float64   `json:"cost,omitempty"`
	ReminderDaysBefore   *int       `json:"reminder_days_before,omitempty" validate:"omitempty,gte=0,lte=365"`
	EmailReminderEnabled bool       `json:"email_reminder_enabled"`
	Notes                string     `json:"notes"`
}

func (r *ContractRequest) check() map[string]string {
	if fields := validate.Struct(r); fields != nil {
		return fields
	}
	if r.StartDate != nil && r.EndDate.Before(*r.StartDate) {
		return map[string]string{"end_date": "end_date must be on or after start_date"}
	}
	if r.EmailReminderEnabled && r.ReminderDaysBefore == nil {
		return map[string]string{"reminder_days_before": "reminder_days_before is required when email reminders are enabled"}
	}
	return nil
}

// ListContracts returns the tenant's service contracts, cached. The
// expiring_within query narrows to contracts ending within N days.
func ListContracts(c echo.Context) error {
	log := logger.FromEcho(c)

	_, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	expiringWithin := c.QueryParam("expiring_within")

	var contracts []model.ServiceContract
	key := cache.ListKey("service_contract", tenantID)
	if expiringWithin == "" {
		if err := cache.GetList(key, &contracts); err == nil {
			prometheus.CacheCounter.WithLabelValues("hit").Inc()
			return c.JSON(http.StatusOK, contracts)
		}
		prometheus.CacheCounter.WithLabelValues("miss").Inc()
	}

	query := database.GetDB().Where("tenant_id = ?", tenantID)
	if expiringWithin != "" {
		if err := validate.Var(expiringWithin, "number"); err != nil {
			return respondError(c, apperr.New(apperr.KindValidation, "expiring_within must be a number of days"))
		}
		query = query.Where("end_date <= now() + (? || ' days')::interval AND end_date >= now()", expiringWithin)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	if result := query.Order("end_date").Find(&contracts); result.Error != nil {
		log.Error("Failed to list contracts", zap.Uint("tenant_id", tenantID), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	if expiringWithin == "" {
		if err := cache.SetList(key, contracts); err != nil {
			log.Warn("Failed to cache contract list", zap.Error(err))
		}
	}
	return c.JSON(http.StatusOK, contracts)
}

// GetContract returns one service contract with its reminder history
func GetContract(c echo.Context) error {
	log := logger.FromEcho(c)

	_, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var contract model.ServiceContract
	result := database.GetDB().Where("tenant_id = ?", tenantID).First(&contract, id)
	if result.Error != nil {
		log.Warn("Contract not found", zap.Uint("contract_id", id))
		return respondError(c, fromDB(result.Error))
	}

	var reminders []model.ContractReminderLog
	database.GetDB().
		Where("tenant_id = ? AND contract_id = ?", tenantID, id).
		Order("created_at DESC").
		Find(&reminders)

	return c.JSON(http.StatusOK, echo.Map{
		"contract":  contract,
		"reminders": reminders,
	})
}

// CreateContract creates a service contract
func CreateContract(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var req ContractRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse contract request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := req.check(); fields != nil {
		return respondFieldErrors(c, fields)
	}

	contract := model.ServiceContract{
		TenantID:             tenantID,
		ContractTitle:        req.ContractTitle,
		VendorName:           req.VendorName,
		AddressID:            req.AddressID,
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		Cost:                 req.Cost,
		ReminderDaysBefore:   req.ReminderDaysBefore,
		EmailReminderEnabled: req.EmailReminderEnabled,
		Notes:                req.Notes,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&contract); result.Error != nil {
		log.Error("Failed to create contract", zap.String("title", req.ContractTitle), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	afterMutation(c, "service_contract", "created", contract.ID, tenantID, claims.UserID)
	log.Info("Contract created",
		zap.Uint("contract_id", contract.ID),
		zap.String("title", contract.ContractTitle),
		zap.Time("end_date", contract.EndDate))
	return c.JSON(http.StatusCreated, contract)
}

// UpdateContract updates a service contract
func UpdateContract(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req ContractRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := req.check(); fields != nil {
		return respondFieldErrors(c, fields)
	}

	var contract model.ServiceContract
	result := database.GetDB().Where("tenant_id = ?", tenantID).First(&contract, id)
	if result.Error != nil {
		log.Warn("Contract not found for update", zap.Uint("contract_id", id))
		return respondError(c, fromDB(result.Error))
	}

	contract.ContractTitle = req.ContractTitle
	contract.VendorName = req.VendorName
	contract.AddressID = req.AddressID
	contract.StartDate = req.StartDate
	contract.EndDate = req.EndDate
	contract.Cost = req.Cost
	contract.ReminderDaysBefore = req.ReminderDaysBefore
	contract.EmailReminderEnabled = req.EmailReminderEnabled
	contract.Notes = req.Notes

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&contract); result.Error != nil {
		log.Error("Failed to update contract", zap.Uint("contract_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	afterMutation(c, "service_contract", "updated", contract.ID, tenantID, claims.UserID)
	log.Info("Contract updated", zap.Uint("contract_id", contract.ID))
	return c.JSON(http.StatusOK, contract)
}

// DeleteContract removes a service contract
func DeleteContract(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	result := database.GetDB().Where("tenant_id = ?", tenantID).Delete(&model.ServiceContract{}, id)
	if result.Error != nil {
		log.Error("Failed to delete contract", zap.Uint("contract_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}
	if result.RowsAffected == 0 {
		return respondError(c, apperr.New(apperr.KindNotFound, "contract not found"))
	}

	afterMutation(c, "service_contract", "deleted", id, tenantID, claims.UserID)
	log.Info("Contract deleted", zap.Uint("contract_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Contract deleted successfully"})
}
