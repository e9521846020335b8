package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/main4/cmms/internal/model"
	"github.com/main4/cmms/pkg/database"
	"github.com/main4/cmms/prometheus"
	"go.uber.org/zap"
)

// ReminderDueToday reports whether a contract's reminder date falls on the
// given day. The reminder date is end_date minus reminder_days_before,
// compared by calendar date.
func ReminderDueToday(endDate time.Time, daysBefore int, today time.Time) bool {
	reminder := endDate.AddDate(0, 0, -daysBefore)
	ry, rm, rd := reminder.Date()
	ty, tm, td := today.Date()
	return ry == ty && rm == tm && rd == td
}

// ContractReminderHTML renders the reminder email body for one contract
func ContractReminderHTML(contract *model.ServiceContract) string {
	vendor := contract.VendorName
	if vendor == "" {
		vendor = "-"
	}
	return fmt.Sprintf(
		`<h2>Service contract expiring</h2>
<p>The contract <strong>%s</strong> with %s ends on %s.</p>
<p>Review the contract and renew or let it lapse before the end date.</p>`,
		contract.ContractTitle, vendor, contract.EndDate.Format("2 January 2006"))
}

// CheckContractReminders emails tenant admins for every contract whose
// reminder date is today. A contract_reminder_logs row per recipient keeps
// the job idempotent within a day.
func (n *Notifier) CheckContractReminders(ctx context.Context) {
	db := database.GetDB()
	today := time.Now()

	var contracts []model.ServiceContract
	if err := db.WithContext(ctx).
		Where("email_reminder_enabled = ? AND reminder_days_before IS NOT NULL", true).
		Find(&contracts).Error; err != nil {
		n.log.Error("Contract reminder scan failed", zap.Error(err))
		return
	}

	for i := range contracts {
		contract := &contracts[i]
		if !ReminderDueToday(contract.EndDate, *contract.ReminderDaysBefore, today) {
			continue
		}

		recipients, err := tenantAdminUsers(ctx, db, contract.TenantID)
		if err != nil {
			n.log.Error("Failed to load tenant admins for contract reminder",
				zap.Uint("tenant_id", contract.TenantID),
				zap.Error(err))
			continue
		}

		subject := fmt.Sprintf("Contract expiring: %s", contract.ContractTitle)
		html := ContractReminderHTML(contract)

		for _, user := range recipients {
			if n.remindedToday(ctx, contract.ID, user.ID, today) {
				continue
			}

			if n.deliver(ctx, contract.TenantID, user.Email, subject, html, "contract_reminder") {
				prometheus.NotificationCounter.WithLabelValues("contract_reminder", "sent").Inc()
				logEntry := model.ContractReminderLog{
					TenantID:       contract.TenantID,
					ContractID:     contract.ID,
					UserID:         user.ID,
					DeliveryMethod: "email",
				}
				if err := db.WithContext(ctx).Create(&logEntry).Error; err != nil {
					n.log.Error("Failed to write contract reminder log", zap.Error(err))
				}
			} else {
				prometheus.NotificationCounter.WithLabelValues("contract_reminder", "failed").Inc()
			}
		}

		n.log.Info("Contract reminder processed",
			zap.Uint("tenant_id", contract.TenantID),
			zap.Uint("contract_id", contract.ID),
			zap.Time("end_date", contract.EndDate))
	}
}

// remindedToday reports whether this user already got a reminder for this
// contract today.
func (n *Notifier) remindedToday(ctx context.Context, contractID, userID uint, today time.Time) bool {
	dayStart := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())

	var count int64
	err := database.GetDB().WithContext(ctx).
		Model(&model.ContractReminderLog{}).
		Where("contract_id = ? AND user_id = ? AND created_at >= ?", contractID, userID, dayStart).
		Count(&count).Error
	if err != nil {
		n.log.Error("Failed to check contract reminder log", zap.Error(err))
		return false
	}
	return count > 0
}
