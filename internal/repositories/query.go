package repositories

import "time"

// SortDirection orders a listing on a named field. The zero value means
// "no ordering requested".
type SortDirection string

const (
	SortNone SortDirection = ""
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ProductFilter narrows a product listing. Zero-valued fields apply no
// constraint. When both predicates are set they combine with OR, so a
// single search term can match either the name or the type.
type ProductFilter struct {
	NameContains string
	TypeContains string
}

// ProductSort orders a product listing.
type ProductSort struct {
	ByName SortDirection
}

// TransactionFilter narrows a transaction listing. Nil fields apply no
// constraint; range bounds are inclusive.
type TransactionFilter struct {
	DateFrom    *time.Time
	DateTo      *time.Time
	QuantityMin *int
	QuantityMax *int
}

// TransactionSort orders a transaction listing by date, with quantity as
// the tie-breaker in the same direction.
type TransactionSort struct {
	ByDate SortDirection
}
