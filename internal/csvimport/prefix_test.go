package csvimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noCombos() map[string]bool { return map[string]bool{} }

func noCategories() map[string]uint { return map[string]uint{} }

func TestParsePrefixCSV_ValidRows(t *testing.T) {
	content := "Prefix,Code,Category,Description\nE,1,Electrical,Electrical equipment\nP,10,,Plumbing items"
	categories := map[string]uint{"electrical": 7}

	rows, err := ParsePrefixCSV(content, noCombos(), categories)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.True(t, rows[0].Valid)
	assert.Equal(t, "E", rows[0].PrefixLetter)
	assert.Equal(t, "1", rows[0].NumberCode)
	require.NotNil(t, rows[0].CategoryID)
	assert.Equal(t, uint(7), *rows[0].CategoryID)

	// Category is optional
	assert.True(t, rows[1].Valid)
	assert.Nil(t, rows[1].CategoryID)
}

func TestParsePrefixCSV_InvalidPrefixFormat(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		reason string
	}{
		{"empty prefix", "", "Prefix required"},
		{"multi letter", "AB", "Invalid prefix (use A-Z)"},
		{"digit", "3", "Invalid prefix (use A-Z)"},
		{"symbol", "!", "Invalid prefix (use A-Z)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := "Prefix,Code,Category,Description\n" + tt.prefix + ",1,,desc"
			rows, err := ParsePrefixCSV(content, noCombos(), noCategories())
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.False(t, rows[0].Valid)
			assert.Equal(t, tt.reason, rows[0].Error)
		})
	}
}

func TestParsePrefixCSV_LowercaseLetterUppercased(t *testing.T) {
	content := "Prefix,Code,Category,Description\ne,1,,desc"
	rows, err := ParsePrefixCSV(content, noCombos(), noCategories())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Valid)
	assert.Equal(t, "E", rows[0].PrefixLetter)
}

func TestParsePrefixCSV_CodeRange(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{"1", true},
		{"999", true},
		{"0", false},
		{"1000", false},
		{"abc", false},
		{"", false},
	}

	for _, tt := range tests {
		content := "Prefix,Code,Category,Description\nE," + tt.code + ",,desc"
		rows, err := ParsePrefixCSV(content, noCombos(), noCategories())
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, tt.valid, rows[0].Valid, "code %q", tt.code)
	}
}

func TestParsePrefixCSV_DuplicateInFile(t *testing.T) {
	// Same letter+code on two data rows: first wins, second is rejected
	// regardless of its other fields.
	content := "Prefix,Code,Category,Description\nE,1,Electrical,desc1\nE,1,Electrical,desc2"
	categories := map[string]uint{"electrical": 1}

	rows, err := ParsePrefixCSV(content, noCombos(), categories)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.True(t, rows[0].Valid)
	assert.False(t, rows[1].Valid)
	assert.Equal(t, "Duplicate in file", rows[1].Error)
}

func TestParsePrefixCSV_AlreadyExists(t *testing.T) {
	content := "Prefix,Code,Category,Description\nE,1,,desc"
	existing := map[string]bool{"E-1": true}

	rows, err := ParsePrefixCSV(content, existing, noCategories())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Valid)
	assert.Equal(t, "Already exists", rows[0].Error)
}

func TestParsePrefixCSV_CodeNormalizedForDuplicateCheck(t *testing.T) {
	// "01" and "1" persist as the same combo
	content := "Prefix,Code,Category,Description\nE,1,,desc\nE,01,,other"
	rows, err := ParsePrefixCSV(content, noCombos(), noCategories())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Valid)
	assert.False(t, rows[1].Valid)
	assert.Equal(t, "Duplicate in file", rows[1].Error)
}

func TestParsePrefixCSV_CategoryNotFound(t *testing.T) {
	content := "Prefix,Code,Category,Description\nE,1,Nonexistent,desc"
	rows, err := ParsePrefixCSV(content, noCombos(), noCategories())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Valid)
	assert.Equal(t, "Category not found", rows[0].Error)
}

func TestParsePrefixCSV_CategoryLookupCaseInsensitive(t *testing.T) {
	content := "Prefix,Code,Category,Description\nE,1,ELECTRICAL,desc"
	categories := map[string]uint{"electrical": 42}

	rows, err := ParsePrefixCSV(content, noCombos(), categories)
	require.NoError(t, err)
	require.True(t, rows[0].Valid)
	require.NotNil(t, rows[0].CategoryID)
	assert.Equal(t, uint(42), *rows[0].CategoryID)
}

func TestParsePrefixCSV_DescriptionRequired(t *testing.T) {
	content := "Prefix,Code,Category,Description\nE,1,,"
	rows, err := ParsePrefixCSV(content, noCombos(), noCategories())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Valid)
	assert.Equal(t, "Description required", rows[0].Error)
}

func TestParsePrefixCSV_QuotedFields(t *testing.T) {
	content := "Prefix,Code,Category,Description\nE,1,,\"desc, with comma and \"\"quotes\"\"\""
	rows, err := ParsePrefixCSV(content, noCombos(), noCategories())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Valid)
	assert.Equal(t, `desc, with comma and "quotes"`, rows[0].Description)
}

func TestParsePrefixCSV_BlankLinesSkipped(t *testing.T) {
	content := "Prefix,Code,Category,Description\n\nE,1,,desc\n\n"
	rows, err := ParsePrefixCSV(content, noCombos(), noCategories())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestPrefixCSV_RoundTrip(t *testing.T) {
	content := "Prefix,Code,Category,Description\nE,1,Electrical,First prefix\nP,20,,\"Pumps, valves\""
	categories := map[string]uint{"electrical": 3}

	parsed, err := ParsePrefixCSV(content, noCombos(), categories)
	require.NoError(t, err)

	var valid []ParsedPrefix
	for _, p := range parsed {
		if p.Valid {
			valid = append(valid, p)
		}
	}
	require.Len(t, valid, 2)

	serialized, err := PrefixesToCSV(valid)
	require.NoError(t, err)

	reparsed, err := ParsePrefixCSV(serialized, noCombos(), categories)
	require.NoError(t, err)
	require.Len(t, reparsed, len(valid))

	for i := range valid {
		assert.Equal(t, valid[i].PrefixLetter, reparsed[i].PrefixLetter)
		assert.Equal(t, valid[i].NumberCode, reparsed[i].NumberCode)
		assert.Equal(t, valid[i].Description, reparsed[i].Description)
	}
}
