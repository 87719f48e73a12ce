// Package domain defines the core business types for the float tracker.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WatchTarget is a configured marketplace filter. Name is the identity key
// and must be unique across the watch-list.
type WatchTarget struct {
	Name       string  `json:"name"           yaml:"name"`
	DefIndex   int     `json:"def_index"      yaml:"def_index"`
	PaintIndex int     `json:"paint_index"    yaml:"paint_index"`
	MaxPrice   int64   `json:"max_price"      yaml:"max_price"` // cents
	MinFloat   float64 `json:"min_float"      yaml:"min_float"`
	MaxFloat   float64 `json:"max_float"      yaml:"max_float"`
	Tier       string  `json:"tier,omitempty" yaml:"-"`
}

// InRange reports whether an observation satisfies the target's price bound
// and float range.
func (t *WatchTarget) InRange(o *Observation) bool {
	return o.Price <= t.MaxPrice &&
		t.MinFloat <= o.FloatValue &&
		o.FloatValue <= t.MaxFloat
}

// Observation is a single listing row from one marketplace snapshot.
type Observation struct {
	ID         string  `json:"id"`
	Price      int64   `json:"price"` // cents
	FloatValue float64 `json:"float_value"`
	Note       *string `json:"note,omitempty"`
}

// ChangeEntry is one element of a listing's price log.
type ChangeEntry struct {
	Price     int64     `json:"price"`
	Float     float64   `json:"float"`
	Timestamp time.Time `json:"timestamp"`
}

// ListingRecord is the persisted state of one (target, listing) pair.
// Changes[0] is the creation entry; every later entry is a price change.
type ListingRecord struct {
	Price     int64         `json:"price"`
	Float     float64       `json:"float"`
	Timestamp time.Time     `json:"timestamp"`
	Changes   []ChangeEntry `json:"changes"`
}

// Clone returns a deep copy of the record.
func (r *ListingRecord) Clone() ListingRecord {
	c := *r
	c.Changes = make([]ChangeEntry, len(r.Changes))
	copy(c.Changes, r.Changes)
	return c
}

// CreatedAt returns the timestamp of the creation entry.
func (r *ListingRecord) CreatedAt() time.Time {
	if len(r.Changes) == 0 {
		return r.Timestamp
	}
	return r.Changes[0].Timestamp
}

// PriceChanges returns the number of logged changes, excluding creation.
func (r *ListingRecord) PriceChanges() int {
	if len(r.Changes) == 0 {
		return 0
	}
	return len(r.Changes) - 1
}

// TargetHistory maps listing id to its record.
type TargetHistory map[string]ListingRecord

// History maps target name to that target's listings.
type History map[string]TargetHistory

// DecisionKind classifies the outcome of reconciling one observation.
type DecisionKind int

// Decision kinds.
const (
	NoOp DecisionKind = iota
	NewListing
	PriceChanged
)

// String implements fmt.Stringer.
func (k DecisionKind) String() string {
	switch k {
	case NewListing:
		return "new_listing"
	case PriceChanged:
		return "price_changed"
	default:
		return "noop"
	}
}

// Decision is the result of reconciling an observation against history.
type Decision struct {
	Kind        DecisionKind
	AlertWorthy bool
}

// Direction of a price move.
type Direction string

// Direction constants.
const (
	DirectionDown Direction = "down"
	DirectionUp   Direction = "up"
)

// PriceDelta describes a price move in the display currency.
type PriceDelta struct {
	Previous  decimal.Decimal
	Current   decimal.Decimal
	Amount    decimal.Decimal // absolute value
	Percent   decimal.Decimal // relative to Previous, 0 when Previous is 0
	Direction Direction
}

// NewListingEvent is dispatched for an alert-worthy new listing.
type NewListingEvent struct {
	Target       WatchTarget
	Observation  Observation
	Tier         string
	Note         *string
	Rate         float64
	DisplayPrice decimal.Decimal
}

// PriceChangeEvent is dispatched when a tracked listing changes price.
type PriceChangeEvent struct {
	Target      WatchTarget
	Previous    ListingRecord
	Observation Observation
	Tier        string
	Note        *string
	Rate        float64
	Delta       PriceDelta
}

// LowestOffer is the cheapest recently active listing for a target.
type LowestOffer struct {
	Target       string          `json:"target"`
	ListingID    string          `json:"listing_id"`
	Price        int64           `json:"price"`
	DisplayPrice decimal.Decimal `json:"display_price"`
	Float        float64         `json:"float"`
}

// Stats summarizes history activity over a trailing window.
type Stats struct {
	PeriodHours  int           `json:"period_hours"`
	Since        time.Time     `json:"since"`
	NewOffers    int           `json:"new_offers"`
	PriceChanges int           `json:"price_changes"`
	Lowest       []LowestOffer `json:"lowest"`
}
