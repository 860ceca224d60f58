package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_QueryBuilder(t *testing.T) {
	baseQuery := "SELECT * FROM transactions"
	testCases := []struct {
		name          string
		condition     string
		values        []interface{}
		expectedQuery string
	}{
		{
			name:          "single parameter",
			condition:     "id = ?",
			values:        []interface{}{"123"},
			expectedQuery: "SELECT * FROM transactions WHERE 1=1 AND id = ?",
		},
		{
			name:          "multiple parameters",
			condition:     "(status = ? OR kiosk_id = ?)",
			values:        []interface{}{"pending", "kiosk-1"},
			expectedQuery: "SELECT * FROM transactions WHERE 1=1 AND (status = ? OR kiosk_id = ?)",
		},
		{
			name:          "empty value",
			condition:     "nullifier_hash is NULL",
			values:        []interface{}{},
			expectedQuery: "SELECT * FROM transactions WHERE 1=1 AND nullifier_hash is NULL",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			qb := NewQueryBuilder(baseQuery)

			qb.AddCondition(tc.condition, tc.values...)
			actualQuery, params := qb.Build()

			assert.Equal(t, tc.expectedQuery, actualQuery)
			assert.Equal(t, tc.values, params)
		})
	}

	t.Run("Test AddSorting with prefix", func(t *testing.T) {
		qb := NewQueryBuilder("SELECT * FROM transactions t")

		qb.AddSorting("created_at", "DESC", "t")
		actual, _ := qb.Build()

		expectedQuery := "SELECT * FROM transactions t ORDER BY t.created_at DESC"
		assert.Equal(t, expectedQuery, actual)
	})

	t.Run("Test AddSorting without prefix", func(t *testing.T) {
		qb := NewQueryBuilder("SELECT * FROM transactions")

		qb.AddSorting("expires_at", "ASC", "")
		actual, _ := qb.Build()

		expectedQuery := "SELECT * FROM transactions ORDER BY expires_at ASC"
		assert.Equal(t, expectedQuery, actual)
	})

	t.Run("Test AddPagination", func(t *testing.T) {
		qb := NewQueryBuilder("SELECT * FROM transactions t")

		qb.AddPagination(2, 20)
		actual, params := qb.Build()

		expectedQuery := "SELECT * FROM transactions t LIMIT ? OFFSET ?"
		assert.Equal(t, expectedQuery, actual)
		assert.Equal(t, []interface{}{20, 20}, params)
	})

	t.Run("Test Full query", func(t *testing.T) {
		qb := NewQueryBuilder("SELECT * FROM transactions t")
		qb.AddCondition("status = ?", "failed")
		qb.AddSorting("created_at", "DESC", "t")
		qb.AddPagination(2, 20)
		actual, params := qb.Build()

		expectedQuery := "SELECT * FROM transactions t WHERE 1=1 AND status = ? ORDER BY t.created_at DESC LIMIT ? OFFSET ?"
		assert.Equal(t, expectedQuery, actual)
		assert.Equal(t, []interface{}{"failed", 20, 20}, params)
	})
}
