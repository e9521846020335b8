package notify

import (
	"context"
	"time"

	"github.com/main4/cmms/pkg/config"
	"github.com/main4/cmms/pkg/mailer"
	"go.uber.org/zap"
)

// Notifier runs the background notification jobs: low-stock alerts and
// service contract expiry reminders.
type Notifier struct {
	mail     *mailer.Mailer
	conf     *config.NotifyConfig
	cooldown time.Duration
	log      *zap.Logger
}

// New creates a Notifier
func New(mail *mailer.Mailer, conf *config.NotifyConfig, log *zap.Logger) *Notifier {
	return &Notifier{
		mail:     mail,
		conf:     conf,
		cooldown: conf.AlertCooldown,
		log:      log,
	}
}

// Start runs both check loops until ctx is cancelled. Each job fires once
// at startup and then on its configured interval.
func (n *Notifier) Start(ctx context.Context) {
	go n.loop(ctx, "low_stock", n.conf.LowStockInterval, n.CheckLowStock)
	go n.loop(ctx, "contract_reminder", n.conf.ContractInterval, n.CheckContractReminders)
}

func (n *Notifier) loop(ctx context.Context, name string, interval time.Duration, job func(context.Context)) {
	n.log.Info("Notification job started",
		zap.String("job", name),
		zap.Duration("interval", interval))

	job(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			job(ctx)
		case <-ctx.Done():
			n.log.Info("Notification job stopped", zap.String("job", name))
			return
		}
	}
}
