// Package notify defines the notification interface and implementations
// for listing alerts.
package notify

import (
	"context"

	domain "github.com/donaldgifford/float-tracker/pkg/types"
)

// Notifier delivers alerts for listing transitions. Delivery is best effort:
// callers log a returned error and move on.
type Notifier interface {
	NotifyNewListing(ctx context.Context, ev *domain.NewListingEvent) error
	NotifyPriceChange(ctx context.Context, ev *domain.PriceChangeEvent) error
}
