package models

import (
	"fmt"
	"time"
)

// Collection is a named grouping of items, usually one installation project
type Collection struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ImageRef    string    `json:"image_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Upper bounds for placement coordinates
const (
	MaxRow    = 1000
	MaxColumn = 1000
)

// Placement is the location an item was scanned into.
// Column is nil for row-only placements.
type Placement struct {
	Section string `json:"section"`
	Row     int    `json:"row"`
	Column  *int   `json:"column,omitempty"`
}

// String renders the placement as section-row-column, e.g. "A-1-3"
func (p Placement) String() string {
	if p.Column == nil {
		return fmt.Sprintf("%s-%d", p.Section, p.Row)
	}
	return fmt.Sprintf("%s-%d-%d", p.Section, p.Row, *p.Column)
}

// Item represents one serialized physical unit
type Item struct {
	ID           int64      `json:"id"`
	CollectionID int64      `json:"collection_id"`
	PackageID    string     `json:"package_id"`
	Serial       string     `json:"serial"`
	Placement    *Placement `json:"placement,omitempty"`
	PlacedAt     *time.Time `json:"placed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Placed reports whether the item has been scanned into a location
func (i *Item) Placed() bool {
	return i.PlacedAt != nil
}

// MappingRule describes how to pull an identifier out of a tag record of a given type
type MappingRule struct {
	ID           int64     `json:"id"`
	CollectionID int64     `json:"collection_id"`
	RecordType   string    `json:"record_type"`
	FieldPath    string    `json:"field_path"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ShareToken grants read-only access to a collection's layout
type ShareToken struct {
	Token        string     `json:"token"`
	CollectionID int64      `json:"collection_id"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Expired reports whether the token is past its expiry at the given instant
func (t *ShareToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}

// ImportRecord is one candidate row of a bulk import
type ImportRecord struct {
	PackageID string `json:"package_id" parquet:"package_id"`
	Serial    string `json:"serial" parquet:"serial"`
}
