package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/main4/cmms/internal/model"
	"github.com/main4/cmms/pkg/apperr"
	"github.com/main4/cmms/pkg/database"
	"github.com/main4/cmms/pkg/logger"
	"github.com/main4/cmms/pkg/validate"
	"github.com/main4/cmms/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PresetRequest carries the writable fields of a filter preset
type PresetRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Page     string `json:"page" validate:"required,max=50"`
	Criteria string `json:"criteria" validate:"required,json"`
}

// PresetCandidate is one preset staged during an import: parsed and
// validated but not yet persisted. Invalid candidates carry the reason and
// are dropped at confirm time.
type PresetCandidate struct {
	Name     string `json:"name"`
	Page     string `json:"page"`
	Criteria string `json:"criteria"`
	Valid    bool   `json:"valid"`
	Error    string `json:"error,omitempty"`
}

// ListPresets returns the authenticated user's filter presets, optionally
// narrowed to one page.
func ListPresets(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	query := database.GetDB().
		Where("tenant_id = ? AND user_id = ?", tenantID, claims.UserID)
	if page := c.QueryParam("page"); page != "" {
		query = query.Where("page = ?", page)
	}

	var presets []model.FilterPreset
	defer prometheus.TrackDBOperation("query")(time.Now())
	if result := query.Order("name").Find(&presets); result.Error != nil {
		log.Error("Failed to list presets", zap.Uint("user_id", claims.UserID), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	return c.JSON(http.StatusOK, presets)
}

// CreatePreset saves a named filter combination for the current user
func CreatePreset(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var req PresetRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse preset request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	preset := model.FilterPreset{
		TenantID: tenantID,
		UserID:   claims.UserID,
		Name:     req.Name,
		Page:     req.Page,
		Criteria: req.Criteria,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&preset); result.Error != nil {
		log.Error("Failed to create preset", zap.String("name", req.Name), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	prometheus.RecordMutation("filter_preset", "create")
	log.Info("Preset created",
		zap.Uint("preset_id", preset.ID),
		zap.String("name", preset.Name),
		zap.String("page", preset.Page))
	return c.JSON(http.StatusCreated, preset)
}

// UpdatePreset updates one of the user's presets
func UpdatePreset(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req PresetRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	var preset model.FilterPreset
	result := database.GetDB().
		Where("tenant_id = ? AND user_id = ?", tenantID, claims.UserID).
		First(&preset, id)
	if result.Error != nil {
		log.Warn("Preset not found for update", zap.Uint("preset_id", id))
		return respondError(c, fromDB(result.Error))
	}

	preset.Name = req.Name
	preset.Page = req.Page
	preset.Criteria = req.Criteria

	if result := database.GetDB().Save(&preset); result.Error != nil {
		log.Error("Failed to update preset", zap.Uint("preset_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	prometheus.RecordMutation("filter_preset", "update")
	log.Info("Preset updated", zap.Uint("preset_id", preset.ID))
	return c.JSON(http.StatusOK, preset)
}

// DeletePreset removes one of the user's presets
func DeletePreset(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	result := database.GetDB().
		Where("tenant_id = ? AND user_id = ?", tenantID, claims.UserID).
		Delete(&model.FilterPreset{}, id)
	if result.Error != nil {
		log.Error("Failed to delete preset", zap.Uint("preset_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}
	if result.RowsAffected == 0 {
		return respondError(c, apperr.New(apperr.KindNotFound, "preset not found"))
	}

	prometheus.RecordMutation("filter_preset", "delete")
	log.Info("Preset deleted", zap.Uint("preset_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Preset deleted successfully"})
}

// ExportPresets returns the user's presets as a portable JSON document
func ExportPresets(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var presets []model.FilterPreset
	result := database.GetDB().
		Where("tenant_id = ? AND user_id = ?", tenantID, claims.UserID).
		Order("page, name").
		Find(&presets)
	if result.Error != nil {
		log.Error("Failed to load presets for export", zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	out := make([]PresetCandidate, 0, len(presets))
	for _, p := range presets {
		out = append(out, PresetCandidate{Name: p.Name, Page: p.Page, Criteria: p.Criteria})
	}

	log.Info("Presets exported", zap.Uint("user_id", claims.UserID), zap.Int("count", len(out)))
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="filter-presets.json"`)
	return c.JSON(http.StatusOK, out)
}

// StagePresetImport parses an uploaded preset document and returns the
// validated candidates without writing anything. The caller reviews the
// staging result and posts the rows to keep to ConfirmPresetImport. No
// server-side state is held between the two calls.
func StagePresetImport(c echo.Context) error {
	log := logger.FromEcho(c)

	if _, _, err := tenantScope(c); err != nil {
		return respondError(c, err)
	}

	data, err := io.ReadAll(c.Request().Body)
	if err != nil || len(data) == 0 {
		return respondError(c, apperr.New(apperr.KindValidation, "no import content provided"))
	}

	var raw []PresetCandidate
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Warn("Preset import failed to parse", zap.Error(err))
		return respondError(c, apperr.Wrap(apperr.KindValidation, "could not parse preset document", err))
	}

	staged := make([]PresetCandidate, 0, len(raw))
	valid := 0
	for _, cand := range raw {
		cand.Valid = true
		cand.Error = ""
		switch {
		case cand.Name == "":
			cand.Valid = false
			cand.Error = "Name is required"
		case len(cand.Name) > 100:
			cand.Valid = false
			cand.Error = "Name must be 100 characters or less"
		case cand.Page == "":
			cand.Valid = false
			cand.Error = "Page is required"
		case !json.Valid([]byte(cand.Criteria)):
			cand.Valid = false
			cand.Error = "Criteria must be valid JSON"
		}
		if cand.Valid {
			valid++
		}
		staged = append(staged, cand)
	}

	log.Info("Preset import staged", zap.Int("total", len(staged)), zap.Int("valid", valid))
	return c.JSON(http.StatusOK, echo.Map{
		"staged": staged,
		"valid":  valid,
	})
}

// ConfirmPresetImport persists the staged candidates the user chose to
// keep. Candidates are re-validated and written in one transaction; a name
// clash on the same page overwrites the user's existing preset.
func ConfirmPresetImport(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		Presets []PresetCandidate `json:"presets"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if len(req.Presets) == 0 {
		return respondError(c, apperr.New(apperr.KindValidation, "no presets to import"))
	}

	imported := 0
	defer prometheus.TrackDBOperation("insert")(time.Now())
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		for _, cand := range req.Presets {
			if cand.Name == "" || len(cand.Name) > 100 || cand.Page == "" || !json.Valid([]byte(cand.Criteria)) {
				return apperr.New(apperr.KindValidation, "import contains an invalid preset; re-stage and try again")
			}

			var existing model.FilterPreset
			result := tx.Where("tenant_id = ? AND user_id = ? AND page = ? AND name = ?",
				tenantID, claims.UserID, cand.Page, cand.Name).
				First(&existing)
			if result.Error == nil {
				existing.Criteria = cand.Criteria
				if err := tx.Save(&existing).Error; err != nil {
					return err
				}
			} else {
				preset := model.FilterPreset{
					TenantID: tenantID,
					UserID:   claims.UserID,
					Name:     cand.Name,
					Page:     cand.Page,
					Criteria: cand.Criteria,
				}
				if err := tx.Create(&preset).Error; err != nil {
					return err
				}
			}
			imported++
		}
		return nil
	})
	if err != nil {
		log.Error("Preset import confirm failed", zap.Error(err))
		if apperr.KindOf(err) != apperr.KindInternal {
			return respondError(c, err)
		}
		return respondError(c, fromDB(err))
	}

	prometheus.RecordMutation("filter_preset", "create")
	log.Info("Preset import confirmed",
		zap.Uint("user_id", claims.UserID),
		zap.Int("imported", imported))
	return c.JSON(http.StatusOK, echo.Map{"imported": imported})
}
