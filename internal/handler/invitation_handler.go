package handler

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/main4/cmms/internal/model"
	"github.com/main4/cmms/pkg/apperr"
	"github.com/main4/cmms/pkg/config"
	"github.com/main4/cmms/pkg/database"
	"github.com/main4/cmms/pkg/logger"
	"github.com/main4/cmms/pkg/mailer"
	"github.com/main4/cmms/pkg/validate"
	"github.com/main4/cmms/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	appConf *config.Config
	mail    *mailer.Mailer
)

// SetConfig wires the loaded configuration into the handler package
func SetConfig(conf *config.Config) {
	appConf = conf
}

// SetMailer wires the shared mailer into the handler package
func SetMailer(m *mailer.Mailer) {
	mail = m
}

// newInviteToken returns a 64-character opaque token for the accept link
func newInviteToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// claimInvitation stamps accepted_at on an unused invitation. A token
// accepted by a concurrent request leaves zero rows affected, so the
// second accept fails instead of silently reusing the token.
func claimInvitation(tx *gorm.DB, invitationID uint, now time.Time) error {
	result := tx.Model(&model.UserInvitation{}).
		Where("id = ? AND accepted_at IS NULL", invitationID).
		Update("accepted_at", now)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.KindValidation, "invitation has already been used")
	}
	return nil
}

// CreateInvitation invites an email address to join the current tenant.
// The invitee gets a single-use accept link that expires after the
// configured number of days.
func CreateInvitation(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		Email string `json:"email" validate:"required,email"`
		Name  string `json:"name" validate:"max=100"`
		Role  string `json:"role" validate:"omitempty,oneof=admin member"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse invitation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}
	if req.Role == "" {
		req.Role = "member"
	}

	// A live invitation for the same email in this tenant blocks a second one
	var count int64
	database.GetDB().Model(&model.UserInvitation{}).
		Where("tenant_id = ? AND email = ? AND accepted_at IS NULL AND expires_at > ?", tenantID, req.Email, time.Now()).
		Count(&count)
	if count > 0 {
		log.Warn("Invitation already pending", zap.String("email", req.Email), zap.Uint("tenant_id", tenantID))
		return respondError(c, apperr.New(apperr.KindDuplicate, "an invitation for this email is already pending"))
	}

	token, err := newInviteToken()
	if err != nil {
		log.Error("Failed to generate invitation token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "invitation failed"})
	}

	invitation := model.UserInvitation{
		TenantID:  tenantID,
		Email:     req.Email,
		Name:      req.Name,
		Role:      req.Role,
		Token:     token,
		InvitedBy: claims.UserID,
		ExpiresAt: time.Now().AddDate(0, 0, appConf.Invite.ExpiryDays),
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&invitation); result.Error != nil {
		log.Error("Failed to create invitation", zap.String("email", req.Email), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	sendInvitationEmail(c, &invitation)

	prometheus.RecordMutation("invitation", "create")
	log.Info("Invitation created",
		zap.Uint("tenant_id", tenantID),
		zap.String("email", req.Email),
		zap.String("role", req.Role),
		zap.Uint("invited_by", claims.UserID))

	return c.JSON(http.StatusCreated, invitation)
}

// sendInvitationEmail delivers the accept link and logs the outcome. A
// failed send never fails the invitation; admins can resend.
func sendInvitationEmail(c echo.Context, invitation *model.UserInvitation) {
	log := logger.FromEcho(c)

	acceptURL := fmt.Sprintf("%s/accept-invitation?token=%s", appConf.Server.BaseURL, invitation.Token)
	html := fmt.Sprintf(
		`<h2>You have been invited</h2>
<p>You have been invited to join a maintenance workspace.</p>
<p><a href="%s">Accept the invitation</a> before %s.</p>`,
		acceptURL, invitation.ExpiresAt.Format("2 January 2006"))

	providerID, err := mail.Send(c.Request().Context(), mailer.Message{
		To:      []string{invitation.Email},
		Subject: "You have been invited to join a workspace",
		HTML:    html,
	})

	entry := model.EmailLog{
		TenantID:  &invitation.TenantID,
		Recipient: invitation.Email,
		Subject:   "You have been invited to join a workspace",
		EmailType: "user_invitation",
	}
	if err != nil {
		entry.Status = "failed"
		entry.ErrorMessage = err.Error()
		log.Warn("Invitation email failed", zap.String("email", invitation.Email), zap.Error(err))
	} else {
		entry.Status = "sent"
		entry.ProviderID = providerID
	}
	if dbErr := database.GetDB().Create(&entry).Error; dbErr != nil {
		log.Error("Failed to write email log", zap.Error(dbErr))
	}
}

// ListInvitations returns the current tenant's invitations, newest first
func ListInvitations(c echo.Context) error {
	log := logger.FromEcho(c)

	_, tenantID, err := tenantScope(c)
	if err != nil {
		return respondError(c, err)
	}

	var invitations []model.UserInvitation
	result := database.GetDB().
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&invitations)
	if result.Error != nil {
		log.Error("Failed to list invitations", zap.Uint("tenant_id", tenantID), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	return c.JSON(http.StatusOK, invitations)
}

// RevokeInvitation soft-deletes a pending invitation
func RevokeInvitation(c echo.Context) error {
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
		Where("tenant_id = ? AND accepted_at IS NULL", tenantID).
		Delete(&model.UserInvitation{}, id)
	if result.Error != nil {
		log.Error("Failed to revoke invitation", zap.Uint("invitation_id", id), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}
	if result.RowsAffected == 0 {
		return respondError(c, apperr.New(apperr.KindNotFound, "invitation not found"))
	}

	prometheus.RecordMutation("invitation", "delete")
	log.Info("Invitation revoked",
		zap.Uint("tenant_id", tenantID),
		zap.Uint("invitation_id", id),
		zap.Uint("revoked_by", claims.UserID))

	return c.JSON(http.StatusOK, echo.Map{"message": "Invitation revoked"})
}

// AcceptInvitation redeems an invitation token. An account is created for
// new email addresses; existing accounts are joined to the tenant. The
// token dies on first use.
func AcceptInvitation(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		Token    string `json:"token" validate:"required,len=64"`
		Name     string `json:"name" validate:"max=100"`
		Password string `json:"password" validate:"omitempty,min=8"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse accept request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if fields := validate.Struct(req); fields != nil {
		return respondFieldErrors(c, fields)
	}

	var invitation model.UserInvitation
	result := database.GetDB().Where("token = ?", req.Token).First(&invitation)
	if result.Error != nil {
		log.Warn("Invitation token not found")
		return respondError(c, apperr.New(apperr.KindNotFound, "invitation not found"))
	}

	if invitation.AcceptedAt != nil {
		log.Warn("Invitation already accepted", zap.Uint("invitation_id", invitation.ID))
		return respondError(c, apperr.New(apperr.KindValidation, "invitation has already been used"))
	}
	if time.Now().After(invitation.ExpiresAt) {
		log.Warn("Invitation expired", zap.Uint("invitation_id", invitation.ID))
		return respondError(c, apperr.New(apperr.KindValidation, "invitation has expired"))
	}

	var user model.User
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		result := tx.Where("email = ?", invitation.Email).First(&user)
		if result.Error != nil {
			if req.Password == "" {
				return apperr.New(apperr.KindValidation, "password is required for a new account")
			}
			hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			name := req.Name
			if name == "" {
				name = invitation.Name
			}
			user = model.User{
				Email:    invitation.Email,
				Password: string(hashed),
				Name:     name,
				TenantID: &invitation.TenantID,
			}
			if result := tx.Create(&user); result.Error != nil {
				return result.Error
			}
		}

		var existing model.UserTenant
		if result := tx.Where("user_id = ? AND tenant_id = ?", user.ID, invitation.TenantID).
			First(&existing); result.Error == nil {
			return apperr.New(apperr.KindDuplicate, "user is already a member of this tenant")
		}

		membership := model.UserTenant{
			UserID:   user.ID,
			TenantID: invitation.TenantID,
			Role:     invitation.Role,
			Active:   true,
		}
		if result := tx.Create(&membership); result.Error != nil {
			return result.Error
		}

		return claimInvitation(tx, invitation.ID, time.Now())
	})
	if err != nil {
		log.Error("Failed to accept invitation", zap.Uint("invitation_id", invitation.ID), zap.Error(err))
		if apperr.KindOf(err) != apperr.KindInternal {
			return respondError(c, err)
		}
		return respondError(c, fromDB(err))
	}

	prometheus.RecordMutation("invitation", "update")
	log.Info("Invitation accepted",
		zap.Uint("tenant_id", invitation.TenantID),
		zap.Uint("invitation_id", invitation.ID),
		zap.Uint("user_id", user.ID))

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Invitation accepted",
		"tenant_id": invitation.TenantID,
		"user": map[string]interface{}{
			"id":    user.ID,
			"email": user.Email,
		},
	})
}
