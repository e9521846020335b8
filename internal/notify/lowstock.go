package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/main4/cmms/internal/model"
	"github.com/main4/cmms/pkg/database"
	"github.com/main4/cmms/pkg/mailer"
	"github.com/main4/cmms/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NeedsAlert reports whether a part should trigger a low-stock email now.
// A part qualifies when stock has fallen to or below its reorder threshold
// and no alert went out within the cooldown window.
func NeedsAlert(part *model.InventoryPart, now time.Time, cooldown time.Duration) bool {
	if part.ReorderThreshold <= 0 {
		return false
	}
	if part.QuantityInStock > part.ReorderThreshold {
		return false
	}
	if part.LastAlertSentAt != nil && now.Sub(*part.LastAlertSentAt) < cooldown {
		return false
	}
	return true
}

// LowStockHTML renders the alert email body for one part
func LowStockHTML(part *model.InventoryPart) string {
	sku := part.SKU
	if sku == "" {
		sku = "-"
	}
	return fmt.Sprintf(
		`<h2>Low stock alert</h2>
<p><strong>%s</strong> (SKU: %s) has fallen to its reorder threshold.</p>
<table>
<tr><td>Quantity in stock</td><td>%d</td></tr>
<tr><td>Reorder threshold</td><td>%d</td></tr>
<tr><td>Storage location</td><td>%s</td></tr>
</table>
<p>Please review inventory and reorder if required.</p>`,
		part.Name, sku, part.QuantityInStock, part.ReorderThreshold, part.StorageLocation)
}

// CheckLowStock scans every tenant's inventory for parts at or below their
// reorder threshold and emails the tenant's admins. Each send is logged in
// email_logs; failures are recorded and never retried.
func (n *Notifier) CheckLowStock(ctx context.Context) {
	db := database.GetDB()
	now := time.Now()

	var parts []model.InventoryPart
	if err := db.WithContext(ctx).
		Where("reorder_threshold > 0 AND quantity_in_stock <= reorder_threshold").
		Find(&parts).Error; err != nil {
		n.log.Error("Low stock scan failed", zap.Error(err))
		return
	}

	for i := range parts {
		part := &parts[i]
		if !NeedsAlert(part, now, n.cooldown) {
			continue
		}

		recipients, err := tenantAdminUsers(ctx, db, part.TenantID)
		if err != nil {
			n.log.Error("Failed to load tenant admins for low stock alert",
				zap.Uint("tenant_id", part.TenantID),
				zap.Error(err))
			continue
		}
		if len(recipients) == 0 {
			continue
		}

		subject := fmt.Sprintf("Low stock alert: %s", part.Name)
		html := LowStockHTML(part)
		sent := false
		for _, user := range recipients {
			if n.deliver(ctx, part.TenantID, user.Email, subject, html, "low_stock_alert") {
				sent = true
				prometheus.NotificationCounter.WithLabelValues("low_stock", "sent").Inc()
			} else {
				prometheus.NotificationCounter.WithLabelValues("low_stock", "failed").Inc()
			}
		}

		// Start the cooldown once any admin got the alert, so a flapping
		// quantity does not spam the whole team.
		if sent {
			if err := db.WithContext(ctx).Model(part).
				Update("last_alert_sent_at", now).Error; err != nil {
				n.log.Error("Failed to record low stock alert time",
					zap.Uint("part_id", part.ID),
					zap.Error(err))
			}
			n.log.Info("Low stock alert sent",
				zap.Uint("tenant_id", part.TenantID),
				zap.Uint("part_id", part.ID),
				zap.String("part", part.Name),
				zap.Int("quantity", part.QuantityInStock))
		}
	}
}

// deliver sends one email and writes the outcome to email_logs
func (n *Notifier) deliver(ctx context.Context, tenantID uint, to, subject, html, emailType string) bool {
	providerID, err := n.mail.Send(ctx, mailer.Message{
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})

	entry := model.EmailLog{
		TenantID:  &tenantID,
		Recipient: to,
		Subject:   subject,
		EmailType: emailType,
	}
	if err != nil {
		entry.Status = "failed"
		entry.ErrorMessage = err.Error()
		n.log.Warn("Notification email failed",
			zap.String("recipient", to),
			zap.String("type", emailType),
			zap.Error(err))
	} else {
		entry.Status = "sent"
		entry.ProviderID = providerID
	}

	if dbErr := database.GetDB().WithContext(ctx).Create(&entry).Error; dbErr != nil {
		n.log.Error("Failed to write email log", zap.Error(dbErr))
	}
	return err == nil
}

// tenantAdminUsers returns the active owners and admins of a tenant
func tenantAdminUsers(ctx context.Context, db *gorm.DB, tenantID uint) ([]model.User, error) {
	var users []model.User
	err := db.WithContext(ctx).
		Joins("JOIN user_tenants ON user_tenants.user_id = users.id").
		Where("user_tenants.tenant_id = ? AND user_tenants.role IN ? AND user_tenants.active = ? AND user_tenants.deleted_at IS NULL",
			tenantID, []string{"owner", "admin"}, true).
		Where("users.active = ?", true).
		Find(&users).Error
	return users, err
}
