package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeNil(t *testing.T) {
	result := Normalize(nil, 100)
	assert.Empty(t, result.Data)
	assert.Equal(t, 0, result.RowCount)
}

func TestNormalizeTruncatesToLimit(t *testing.T) {
	raw := &RawResult{
		HasRowSet: true,
		Rows: []map[string]any{
			{"id": 1}, {"id": 2}, {"id": 3}, {"id": 4}, {"id": 5},
		},
	}

	result := Normalize(raw, 2)
	assert.Len(t, result.Data, 2)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, 1, result.Data[0]["id"])
}

func TestNormalizeSkipsTruncationWhenLimitApplied(t *testing.T) {
	// A relational driver truncated at the cursor; rows may legitimately
	// exceed a smaller limit and must pass through untouched.
	raw := &RawResult{
		HasRowSet:    true,
		LimitApplied: true,
		Rows:         []map[string]any{{"id": 1}, {"id": 2}, {"id": 3}},
	}

	result := Normalize(raw, 2)
	assert.Len(t, result.Data, 3)
	assert.Equal(t, 3, result.RowCount)
}

func TestNormalizeDerivesColumnsFromFirstRow(t *testing.T) {
	raw := &RawResult{
		HasRowSet: true,
		Rows: []map[string]any{
			{"name": "a", "id": 1, "email": "a@x"},
		},
	}

	result := Normalize(raw, 100)
	// Sorted for determinism when the driver gives no column order
	assert.Equal(t, []string{"email", "id", "name"}, result.Columns)
}

func TestNormalizePrefersDriverColumns(t *testing.T) {
	raw := &RawResult{
		HasRowSet: true,
		Columns:   []string{"id", "name"},
		Rows:      []map[string]any{{"id": 1, "name": "a"}},
	}

	result := Normalize(raw, 100)
	assert.Equal(t, []string{"id", "name"}, result.Columns)
}

func TestNormalizeEmptyRowSet(t *testing.T) {
	raw := &RawResult{HasRowSet: true}

	result := Normalize(raw, 100)
	assert.Empty(t, result.Data)
	assert.Equal(t, []string{}, result.Columns)
	assert.Equal(t, 0, result.RowCount)
}

func TestNormalizeAffectedRowCount(t *testing.T) {
	// Non-row-returning relational statement: count comes from the
	// driver-reported affected rows, not the (empty) row set.
	raw := &RawResult{HasRowSet: false, RowsAffected: 7}

	result := Normalize(raw, 100)
	assert.Empty(t, result.Data)
	assert.Equal(t, 7, result.RowCount)
}
