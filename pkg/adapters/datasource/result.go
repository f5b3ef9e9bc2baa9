package datasource

import (
	"sort"
)

// NormalizedResult is the uniform tabular shape produced from every
// driver's RawResult.
type NormalizedResult struct {
	Data     []map[string]any
	Columns  []string
	RowCount int
}

// Normalize applies the single enforcement point for limit truncation
// and column derivation:
//
//   - rows are truncated to limit unless the driver already truncated at
//     the cursor (LimitApplied)
//   - columns fall back to the first row's keys, sorted for determinism,
//     when the driver provided none; an empty row set yields an empty
//     column list
//   - the row count equals the returned row count, except for
//     non-row-returning relational statements where it is the
//     driver-reported affected-row count
func Normalize(raw *RawResult, limit int) *NormalizedResult {
	if raw == nil {
		return &NormalizedResult{}
	}

	rows := raw.Rows
	if !raw.LimitApplied && limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	columns := raw.Columns
	if len(columns) == 0 && len(rows) > 0 {
		columns = make([]string, 0, len(rows[0]))
		for key := range rows[0] {
			columns = append(columns, key)
		}
		sort.Strings(columns)
	}
	if columns == nil {
		columns = []string{}
	}

	rowCount := len(rows)
	if !raw.HasRowSet {
		rowCount = int(raw.RowsAffected)
	}

	return &NormalizedResult{
		Data:     rows,
		Columns:  columns,
		RowCount: rowCount,
	}
}
