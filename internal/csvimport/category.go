package csvimport

import (
	"encoding/csv"
	"fmt"
	"strings"
)

const categoryNameMaxLen = 100

// ParsedCategory is one category row extracted from an uploaded CSV
type ParsedCategory struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Valid       bool   `json:"valid"`
	Error       string `json:"error,omitempty"`
}

// ParseCategoryCSV parses the category import format. Unlike the prefix
// importer, columns are located by header name ("Category Name"/"Name" and
// "Description", case-insensitive) with a positional fallback when the
// header is unrecognized. The divergence from the prefix importer's
// positional skip is deliberate.
func ParseCategoryCSV(content string) ([]ParsedCategory, error) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	nameIdx, descIdx := categoryColumns(records[0])

	var categories []ParsedCategory
	for i := 1; i < len(records); i++ {
		values := records[i]
		if isBlankRow(values) {
			continue
		}

		row := ParsedCategory{
			Name:        strings.TrimSpace(field(values, nameIdx)),
			Description: strings.TrimSpace(field(values, descIdx)),
			Valid:       true,
		}

		switch {
		case row.Name == "":
			row.Valid = false
			row.Error = "Name is required"
		case len(row.Name) > categoryNameMaxLen:
			row.Valid = false
			row.Error = fmt.Sprintf("Name must be %d characters or less", categoryNameMaxLen)
		}

		categories = append(categories, row)
	}

	return categories, nil
}

// categoryColumns resolves the name and description column indexes from the
// header row, defaulting to positions 0 and 1.
func categoryColumns(header []string) (nameIdx, descIdx int) {
	nameIdx, descIdx = 0, 1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "category name", "name":
			nameIdx = i
		case "description":
			descIdx = i
		}
	}
	return nameIdx, descIdx
}
