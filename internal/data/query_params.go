package data

import "fmt"

// QueryParams carries the operator list surface's filtering, sorting and pagination knobs down to
// TransactionModel.List.
type QueryParams struct {
	Page      int
	PageLimit int
	SortBy    SortField
	SortOrder SortOrder
	Filters   map[FilterKey]interface{}
}

type SortOrder string

const (
	SortOrderASC  SortOrder = "ASC"
	SortOrderDESC SortOrder = "DESC"
)

type SortField string

const (
	SortFieldCreatedAt SortField = "created_at"
	SortFieldUpdatedAt SortField = "updated_at"
	SortFieldExpiresAt SortField = "expires_at"
)

type FilterKey string

const (
	FilterKeyStatus          FilterKey = "status"
	FilterKeyKioskID         FilterKey = "kiosk_id"
	FilterKeyCreatedAtAfter  FilterKey = "created_at_after"
	FilterKeyCreatedAtBefore FilterKey = "created_at_before"
)

func (fk FilterKey) Equals() string {
	return fmt.Sprintf("%s = ?", fk)
}
