package bulkentry

import (
	"fmt"
	"strings"
)

// DraftRow is one not-yet-persisted location in a bulk entry grid. TempID
// is a client-generated identifier; ParentTempID may reference another
// draft row in the same batch, ParentID a location that already exists.
type DraftRow struct {
	TempID          string `json:"temp_id"`
	Name            string `json:"name"`
	LocationCode    string `json:"location_code"`
	LocationLevelID *uint  `json:"location_level_id,omitempty"`
	DepartmentID    *uint  `json:"department_id,omitempty"`
	ParentTempID    string `json:"parent_temp_id,omitempty"`
	ParentID        *uint  `json:"parent_id,omitempty"`
	Description     string `json:"description"`
}

// Filled returns the rows the user actually entered data into: anything
// with at least a name or a code. Untouched grid rows are ignored.
func Filled(rows []DraftRow) []DraftRow {
	var filled []DraftRow
	for _, row := range rows {
		if strings.TrimSpace(row.Name) != "" || strings.TrimSpace(row.LocationCode) != "" {
			filled = append(filled, row)
		}
	}
	return filled
}

// Validate checks that every filled row carries both required fields.
// Returns temp id -> field -> message for the rows that fail.
func Validate(rows []DraftRow) map[string]map[string]string {
	errs := make(map[string]map[string]string)
	for _, row := range rows {
		rowErrs := make(map[string]string)
		if strings.TrimSpace(row.Name) == "" {
			rowErrs["name"] = "name is required"
		}
		if strings.TrimSpace(row.LocationCode) == "" {
			rowErrs["location_code"] = "location_code is required"
		}
		if len(rowErrs) > 0 {
			errs[row.TempID] = rowErrs
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Order topologically sorts rows so every draft parent is inserted before
// the rows that reference it, whatever the chain depth. A reference to a
// temp id not present in the batch, or a dependency cycle, is an error.
func Order(rows []DraftRow) ([]DraftRow, error) {
	byTempID := make(map[string]int, len(rows))
	for i, row := range rows {
		byTempID[row.TempID] = i
	}

	// Kahn's algorithm over draft-parent edges. Rows without a draft
	// parent keep their relative entry order at the front.
	indegree := make([]int, len(rows))
	children := make(map[int][]int)
	for i, row := range rows {
		if row.ParentTempID == "" {
			continue
		}
		parentIdx, ok := byTempID[row.ParentTempID]
		if !ok {
			return nil, fmt.Errorf("row %q references unknown draft parent %q", rowLabel(row), row.ParentTempID)
		}
		if parentIdx == i {
			return nil, fmt.Errorf("row %q references itself as parent", rowLabel(row))
		}
		indegree[i]++
		children[parentIdx] = append(children[parentIdx], i)
	}

	var queue []int
	for i := range rows {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	ordered := make([]DraftRow, 0, len(rows))
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		ordered = append(ordered, rows[i])
		for _, child := range children[i] {
			indegree[child]--
			if indegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(ordered) != len(rows) {
		for i := range rows {
			if indegree[i] > 0 {
				return nil, fmt.Errorf("dependency cycle involving row %q", rowLabel(rows[i]))
			}
		}
	}

	return ordered, nil
}

// ResolveParent maps a row's parent reference to a real location id using
// the temp-id map populated by earlier inserts in the batch. Returns nil
// for rows with no parent.
func ResolveParent(row DraftRow, idMap map[string]uint) (*uint, error) {
	if row.ParentTempID != "" {
		realID, ok := idMap[row.ParentTempID]
		if !ok {
			return nil, fmt.Errorf("draft parent %q has not been inserted yet", row.ParentTempID)
		}
		return &realID, nil
	}
	return row.ParentID, nil
}

func rowLabel(row DraftRow) string {
	if strings.TrimSpace(row.Name) != "" {
		return row.Name
	}
	if strings.TrimSpace(row.LocationCode) != "" {
		return row.LocationCode
	}
	return row.TempID
}
