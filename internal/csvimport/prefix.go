package csvimport

import (
	"encoding/csv"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParsedPrefix is one asset tag prefix row extracted from an uploaded CSV,
// tagged valid or invalid with the first failing check's reason.
type ParsedPrefix struct {
	PrefixLetter string `json:"prefix_letter"`
	NumberCode   string `json:"number_code"`
	CategoryName string `json:"category_name"`
	CategoryID   *uint  `json:"category_id,omitempty"`
	Description  string `json:"description"`
	Valid        bool   `json:"valid"`
	Error        string `json:"error,omitempty"`
}

var prefixLetterRe = regexp.MustCompile(`^[A-Z]$`)

// ComboKey normalizes a (letter, code) pair into the uniqueness key used
// for duplicate detection. A non-numeric code collapses to 0, matching the
// combo the row would be persisted under.
func ComboKey(letter, code string) string {
	n, _ := strconv.Atoi(strings.TrimSpace(code))
	return fmt.Sprintf("%s-%d", letter, n)
}

// ParsePrefixCSV parses the prefix import format: header row (skipped
// positionally) then Prefix,Code,Category,Description data rows. Each row
// is validated independently; checks short-circuit so a row carries only
// the first failing reason. existingCombos holds combos already persisted
// for the tenant, categories maps lower-cased category names to ids.
func ParsePrefixCSV(content string, existingCombos map[string]bool, categories map[string]uint) ([]ParsedPrefix, error) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	var prefixes []ParsedPrefix
	seenInFile := make(map[string]bool)

	// Row 0 is always the header
	for i := 1; i < len(records); i++ {
		values := records[i]
		if isBlankRow(values) {
			continue
		}

		row := ParsedPrefix{
			PrefixLetter: strings.ToUpper(strings.TrimSpace(field(values, 0))),
			NumberCode:   strings.TrimSpace(field(values, 1)),
			CategoryName: strings.TrimSpace(field(values, 2)),
			Description:  strings.TrimSpace(field(values, 3)),
			Valid:        true,
		}

		combo := ComboKey(row.PrefixLetter, row.NumberCode)

		switch {
		case row.PrefixLetter == "":
			row.invalidate("Prefix required")
		case !prefixLetterRe.MatchString(row.PrefixLetter):
			row.invalidate("Invalid prefix (use A-Z)")
		case row.NumberCode == "":
			row.invalidate("Code required")
		case !codeInRange(row.NumberCode):
			row.invalidate("Code must be 1-999")
		case existingCombos[combo]:
			row.invalidate("Already exists")
		case seenInFile[combo]:
			row.invalidate("Duplicate in file")
		}

		if row.Valid && row.CategoryName != "" {
			if id, ok := categories[strings.ToLower(row.CategoryName)]; ok {
				row.CategoryID = &id
			} else {
				row.invalidate("Category not found")
			}
		}

		if row.Valid && row.Description == "" {
			row.invalidate("Description required")
		}

		// Every row claims its combo, valid or not, so later duplicates of
		// an invalid row still report "Duplicate in file".
		seenInFile[combo] = true
		prefixes = append(prefixes, row)
	}

	return prefixes, nil
}

// PrefixesToCSV serializes prefix rows back to the import format, header
// included.
func PrefixesToCSV(prefixes []ParsedPrefix) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)

	if err := w.Write([]string{"Prefix", "Code", "Category", "Description"}); err != nil {
		return "", err
	}
	for _, p := range prefixes {
		if err := w.Write([]string{p.PrefixLetter, p.NumberCode, p.CategoryName, p.Description}); err != nil {
			return "", err
		}
	}
	w.Flush()
	return b.String(), w.Error()
}

func (p *ParsedPrefix) invalidate(reason string) {
	p.Valid = false
	p.Error = reason
}

func codeInRange(code string) bool {
	n, err := strconv.Atoi(code)
	return err == nil && n >= 1 && n <= 999
}

func field(values []string, idx int) string {
	if idx < len(values) {
		return values[idx]
	}
	return ""
}

func isBlankRow(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
