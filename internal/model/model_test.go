package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressJSON_UnfilledOptionalFieldsStayEmpty(t *testing.T) {
	addr := Address{ID: 7, TenantID: 1, AddressLine1: "1 Mill Lane"}

	data, err := json.Marshal(addr)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, "1 Mill Lane", out["address_line_1"])
	for _, field := range []string{"company_name", "address_line_2", "city", "postcode", "email", "phone", "notes"} {
		assert.Equal(t, "", out[field], field)
	}
	assert.Equal(t, false, out["is_supplier"])
	assert.NotContains(t, string(data), "undefined")
}

func TestAssetJSON_UnsetReferencesOmitted(t *testing.T) {
	asset := Asset{ID: 3, TenantID: 1, Name: "Compressor", AssetTag: "E-001"}

	data, err := json.Marshal(asset)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))

	assert.NotContains(t, out, "category_id")
	assert.NotContains(t, out, "location_id")
	assert.NotContains(t, out, "purchase_date")

	catID := uint(9)
	asset.CategoryID = &catID
	data, err = json.Marshal(asset)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, float64(9), out["category_id"])
}
