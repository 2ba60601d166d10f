package models

import (
	"fmt"
	"strconv"
)

// LocationType tells which table a stock location row belongs to.
type LocationType string

const (
	LocationTypeBranch    LocationType = "B"
	LocationTypeWarehouse LocationType = "W"
)

func (t LocationType) IsValid() bool {
	switch t {
	case LocationTypeBranch, LocationTypeWarehouse:
		return true
	}
	return false
}

func (t LocationType) String() string {
	return string(t)
}

// LocationRef identifies one branch or warehouse. Comparable, usable as a map key.
type LocationRef struct {
	Type LocationType
	Id   int
}

func (r LocationRef) String() string {
	return fmt.Sprintf("%s%d", r.Type, r.Id)
}

// MarshalText makes the compact "B1"/"W2" form the wire shape, so refs work
// both as values and as JSON map keys.
func (r LocationRef) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *LocationRef) UnmarshalText(text []byte) error {
	s := string(text)
	if len(s) < 2 {
		return fmt.Errorf("invalid location %q", s)
	}
	locType := LocationType(s[:1])
	id, err := strconv.Atoi(s[1:])
	if !locType.IsValid() || err != nil || id <= 0 {
		return fmt.Errorf("invalid location %q", s)
	}
	r.Type = locType
	r.Id = id
	return nil
}

// LocationSet is the operator's current location filter. A nil set means all locations.
type LocationSet map[LocationRef]bool

func NewLocationSet(refs ...LocationRef) LocationSet {
	set := LocationSet{}
	for _, ref := range refs {
		set[ref] = true
	}
	return set
}

func (s LocationSet) Contains(ref LocationRef) bool {
	if len(s) == 0 {
		return true
	}
	return s[ref]
}

type VariantType string

const (
	VariantTypeColor VariantType = "color"
	VariantTypeShape VariantType = "shape"
)

func (t VariantType) IsValid() bool {
	switch t {
	case VariantTypeColor, VariantTypeShape:
		return true
	}
	return false
}

type StockStatus string

const (
	StockStatusZero StockStatus = "zero"
	StockStatusLow  StockStatus = "low"
	StockStatusGood StockStatus = "good"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "P"
	OrderStatusConfirmed OrderStatus = "C"
	OrderStatusDelivered OrderStatus = "D"
	OrderStatusCancelled OrderStatus = "X"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type UserRole string

const (
	UserRoleAdmin    UserRole = "A"
	UserRoleOperator UserRole = "O"
)
