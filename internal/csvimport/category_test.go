package csvimport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategoryCSV_ValidRows(t *testing.T) {
	content := "Category Name,Description\nHVAC,Heating ventilation and air conditioning\nElectrical,"

	rows, err := ParseCategoryCSV(content)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.True(t, rows[0].Valid)
	assert.Equal(t, "HVAC", rows[0].Name)
	assert.Equal(t, "Heating ventilation and air conditioning", rows[0].Description)

	// Description is optional
	assert.True(t, rows[1].Valid)
	assert.Empty(t, rows[1].Description)
}

func TestParseCategoryCSV_ColumnsLocatedByHeaderName(t *testing.T) {
	// Reordered columns resolve through the header, not position
	content := "Description,Category Name\nCooling systems,HVAC"

	rows, err := ParseCategoryCSV(content)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Valid)
	assert.Equal(t, "HVAC", rows[0].Name)
	assert.Equal(t, "Cooling systems", rows[0].Description)
}

func TestParseCategoryCSV_PositionalFallback(t *testing.T) {
	// Unrecognized header falls back to column positions 0 and 1
	content := "ColA,ColB\nPlumbing,Pipes and fittings"

	rows, err := ParseCategoryCSV(content)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Plumbing", rows[0].Name)
	assert.Equal(t, "Pipes and fittings", rows[0].Description)
}

func TestParseCategoryCSV_NameRequired(t *testing.T) {
	content := "Category Name,Description\n,orphan description"

	rows, err := ParseCategoryCSV(content)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Valid)
	assert.Equal(t, "Name is required", rows[0].Error)
}

func TestParseCategoryCSV_NameTooLong(t *testing.T) {
	content := "Category Name,Description\n" + strings.Repeat("x", 101) + ",desc"

	rows, err := ParseCategoryCSV(content)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Valid)
	assert.Equal(t, "Name must be 100 characters or less", rows[0].Error)
}

func TestParseCategoryCSV_EmptyInput(t *testing.T) {
	rows, err := ParseCategoryCSV("")
	require.NoError(t, err)
	assert.Empty(t, rows)
}
