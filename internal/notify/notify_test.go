package notify

import (
	"testing"
	"time"

	"github.com/main4/cmms/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestNeedsAlert(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cooldown := 24 * time.Hour
	recent := now.Add(-2 * time.Hour)
	stale := now.Add(-30 * time.Hour)

	tests := []struct {
		name string
		part model.InventoryPart
		want bool
	}{
		{
			name: "at threshold with no prior alert",
			part: model.InventoryPart{QuantityInStock: 5, ReorderThreshold: 5},
			want: true,
		},
		{
			name: "below threshold",
			part: model.InventoryPart{QuantityInStock: 1, ReorderThreshold: 5},
			want: true,
		},
		{
			name: "above threshold",
			part: model.InventoryPart{QuantityInStock: 6, ReorderThreshold: 5},
			want: false,
		},
		{
			name: "threshold disabled",
			part: model.InventoryPart{QuantityInStock: 0, ReorderThreshold: 0},
			want: false,
		},
		{
			name: "alerted within cooldown",
			part: model.InventoryPart{QuantityInStock: 1, ReorderThreshold: 5, LastAlertSentAt: &recent},
			want: false,
		},
		{
			name: "cooldown elapsed",
			part: model.InventoryPart{QuantityInStock: 1, ReorderThreshold: 5, LastAlertSentAt: &stale},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsAlert(&tt.part, now, cooldown))
		})
	}
}

func TestReminderDueToday(t *testing.T) {
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	// 30 days before 31 March is 1 March
	assert.True(t, ReminderDueToday(end, 30, time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)))
	assert.False(t, ReminderDueToday(end, 30, time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)))
	assert.False(t, ReminderDueToday(end, 30, time.Date(2026, 2, 28, 9, 30, 0, 0, time.UTC)))

	// Zero days before means the reminder lands on the end date itself
	assert.True(t, ReminderDueToday(end, 0, time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC)))

	// Time of day never matters
	assert.True(t, ReminderDueToday(end, 7, time.Date(2026, 3, 24, 0, 0, 1, 0, time.UTC)))
}

func TestLowStockHTML(t *testing.T) {
	part := model.InventoryPart{
		Name:             "V-belt A42",
		SKU:              "VB-A42",
		QuantityInStock:  2,
		ReorderThreshold: 5,
		StorageLocation:  "Shelf 3",
	}

	html := LowStockHTML(&part)
	assert.Contains(t, html, "V-belt A42")
	assert.Contains(t, html, "VB-A42")
	assert.Contains(t, html, "Shelf 3")
	assert.Contains(t, html, ">2<")
	assert.Contains(t, html, ">5<")
}

func TestContractReminderHTML(t *testing.T) {
	contract := model.ServiceContract{
		ContractTitle: "Boiler servicing",
		VendorName:    "Acme Heating",
		EndDate:       time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
	}

	html := ContractReminderHTML(&contract)
	assert.Contains(t, html, "Boiler servicing")
	assert.Contains(t, html, "Acme Heating")
	assert.Contains(t, html, "30 June 2026")
}
