package handler

import (
	"testing"

	"github.com/main4/cmms/internal/model"
	"github.com/main4/cmms/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkOrderNumberUniquePerTenant(t *testing.T) {
	db := newTestDB(t, &model.WorkOrder{})

	first := model.WorkOrder{TenantID: 1, WorkOrderNumber: "WO-00001", Title: "Replace pump seal"}
	require.NoError(t, db.Create(&first).Error)

	// a concurrent create that counted the same number loses on the index
	dup := model.WorkOrder{TenantID: 1, WorkOrderNumber: "WO-00001", Title: "Change drive belt"}
	err := db.Create(&dup).Error
	require.Error(t, err)
	assert.True(t, apperr.IsDuplicate(apperr.FromDB(err)))

	// the same number is free in another tenant
	other := model.WorkOrder{TenantID: 2, WorkOrderNumber: "WO-00001", Title: "Swap filter"}
	assert.NoError(t, db.Create(&other).Error)
}

func TestNextWorkOrderNumber_CountsSoftDeleted(t *testing.T) {
	db := newTestDB(t, &model.WorkOrder{})

	a := model.WorkOrder{TenantID: 1, WorkOrderNumber: "WO-00001", Title: "Inspect hoist"}
	b := model.WorkOrder{TenantID: 1, WorkOrderNumber: "WO-00002", Title: "Grease bearings"}
	require.NoError(t, db.Create(&a).Error)
	require.NoError(t, db.Create(&b).Error)
	require.NoError(t, db.Delete(&a).Error)

	number, err := nextWorkOrderNumber(db, 1)
	require.NoError(t, err)
	assert.Equal(t, "WO-00003", number)
}
