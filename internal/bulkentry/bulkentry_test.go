package bulkentry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilled(t *testing.T) {
	rows := []DraftRow{
		{TempID: "a", Name: "Building A", LocationCode: "A"},
		{TempID: "b"}, // untouched grid row
		{TempID: "c", LocationCode: "C"},
		{TempID: "d", Name: "  "}, // whitespace only
	}

	filled := Filled(rows)
	require.Len(t, filled, 2)
	assert.Equal(t, "a", filled[0].TempID)
	assert.Equal(t, "c", filled[1].TempID)
}

func TestValidate_RequiresNameAndCode(t *testing.T) {
	rows := []DraftRow{
		{TempID: "a", Name: "Building A", LocationCode: "A"},
		{TempID: "b", Name: "Building B"},
		{TempID: "c", LocationCode: "C"},
	}

	errs := Validate(rows)
	require.NotNil(t, errs)
	assert.NotContains(t, errs, "a")
	assert.Equal(t, "location_code is required", errs["b"]["location_code"])
	assert.Equal(t, "name is required", errs["c"]["name"])
}

func TestValidate_AllValid(t *testing.T) {
	rows := []DraftRow{{TempID: "a", Name: "Site", LocationCode: "S1"}}
	assert.Nil(t, Validate(rows))
}

func TestOrder_ParentBeforeChild(t *testing.T) {
	rows := []DraftRow{
		{TempID: "b", Name: "Floor 1", LocationCode: "F1", ParentTempID: "a"},
		{TempID: "a", Name: "Building A", LocationCode: "A"},
	}

	ordered, err := Order(rows)
	require.NoError(t, err)
	require.Len(t, ordered, 2)
	assert.Equal(t, "a", ordered[0].TempID)
	assert.Equal(t, "b", ordered[1].TempID)
}

func TestOrder_MultiLevelChain(t *testing.T) {
	// c -> b -> a, entered deepest first
	rows := []DraftRow{
		{TempID: "c", Name: "Room 101", LocationCode: "R101", ParentTempID: "b"},
		{TempID: "b", Name: "Floor 1", LocationCode: "F1", ParentTempID: "a"},
		{TempID: "a", Name: "Building A", LocationCode: "A"},
	}

	ordered, err := Order(rows)
	require.NoError(t, err)
	require.Len(t, ordered, 3)
	assert.Equal(t, "a", ordered[0].TempID)
	assert.Equal(t, "b", ordered[1].TempID)
	assert.Equal(t, "c", ordered[2].TempID)
}

func TestOrder_ExistingParentNotReordered(t *testing.T) {
	existing := uint(99)
	rows := []DraftRow{
		{TempID: "a", Name: "Room", LocationCode: "R", ParentID: &existing},
		{TempID: "b", Name: "Site", LocationCode: "S"},
	}

	ordered, err := Order(rows)
	require.NoError(t, err)
	assert.Equal(t, "a", ordered[0].TempID)
	assert.Equal(t, "b", ordered[1].TempID)
}

func TestOrder_UnknownDraftParent(t *testing.T) {
	rows := []DraftRow{
		{TempID: "a", Name: "Floor", LocationCode: "F", ParentTempID: "missing"},
	}

	_, err := Order(rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown draft parent")
}

func TestOrder_CycleRejected(t *testing.T) {
	rows := []DraftRow{
		{TempID: "a", Name: "A", LocationCode: "A", ParentTempID: "b"},
		{TempID: "b", Name: "B", LocationCode: "B", ParentTempID: "a"},
	}

	_, err := Order(rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestOrder_SelfReferenceRejected(t *testing.T) {
	rows := []DraftRow{
		{TempID: "a", Name: "A", LocationCode: "A", ParentTempID: "a"},
	}

	_, err := Order(rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "itself")
}

func TestResolveParent_DraftResolvedThroughMap(t *testing.T) {
	idMap := map[string]uint{"a": 42}
	row := DraftRow{TempID: "b", ParentTempID: "a"}

	parent, err := ResolveParent(row, idMap)
	require.NoError(t, err)
	require.NotNil(t, parent)
	// The persisted parent must be the server-assigned id, never the temp id
	assert.Equal(t, uint(42), *parent)
}

func TestResolveParent_ExistingID(t *testing.T) {
	existing := uint(7)
	row := DraftRow{TempID: "b", ParentID: &existing}

	parent, err := ResolveParent(row, map[string]uint{})
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, uint(7), *parent)
}

func TestResolveParent_NoParent(t *testing.T) {
	parent, err := ResolveParent(DraftRow{TempID: "a"}, map[string]uint{})
	require.NoError(t, err)
	assert.Nil(t, parent)
}

func TestResolveParent_MissingFromMap(t *testing.T) {
	row := DraftRow{TempID: "b", ParentTempID: "a"}
	_, err := ResolveParent(row, map[string]uint{})
	require.Error(t, err)
}
