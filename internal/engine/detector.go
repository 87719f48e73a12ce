package engine

import (
	"github.com/shopspring/decimal"

	domain "github.com/donaldgifford/float-tracker/pkg/types"
)

var hundred = decimal.NewFromInt(100)

// Reconcile classifies obs against the stored record for the same listing.
// existing is nil when the listing has never been seen for target.
//
// A new listing is alert-worthy only inside the target's price bound and
// float range; it is recorded either way. A price change on a known listing
// always alerts. A float change alone is not a transition.
func Reconcile(
	target *domain.WatchTarget,
	obs *domain.Observation,
	existing *domain.ListingRecord,
) domain.Decision {
	if existing == nil {
		return domain.Decision{
			Kind:        domain.NewListing,
			AlertWorthy: target.InRange(obs),
		}
	}

	if existing.Price != obs.Price {
		return domain.Decision{Kind: domain.PriceChanged, AlertWorthy: true}
	}

	return domain.Decision{Kind: domain.NoOp}
}

// DisplayPrice converts cents to the display currency at rate.
func DisplayPrice(cents int64, rate float64) decimal.Decimal {
	return decimal.New(cents, -2).Mul(decimal.NewFromFloat(rate))
}

// ComputeDelta describes a move from prevCents to curCents in the display
// currency. Percent is relative to the previous display price and is zero
// when that price is zero.
func ComputeDelta(prevCents, curCents int64, rate float64) domain.PriceDelta {
	prev := DisplayPrice(prevCents, rate)
	cur := DisplayPrice(curCents, rate)
	amount := cur.Sub(prev).Abs()

	percent := decimal.Zero
	if !prev.IsZero() {
		percent = amount.Div(prev).Mul(hundred)
	}

	dir := domain.DirectionUp
	if curCents < prevCents {
		dir = domain.DirectionDown
	}

	return domain.PriceDelta{
		Previous:  prev,
		Current:   cur,
		Amount:    amount,
		Percent:   percent,
		Direction: dir,
	}
}
