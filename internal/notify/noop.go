package notify

import (
	"context"
	"log/slog"

	domain "github.com/donaldgifford/float-tracker/pkg/types"
)

// NoOpNotifier implements Notifier by logging discarded alerts. It is used
// when Discord is not configured.
type NoOpNotifier struct {
	log *slog.Logger
}

// NewNoOpNotifier creates a notifier that discards alerts with a log message.
func NewNoOpNotifier(log *slog.Logger) *NoOpNotifier {
	return &NoOpNotifier{log: log}
}

// NotifyNewListing logs and discards a new-listing alert.
func (n *NoOpNotifier) NotifyNewListing(_ context.Context, ev *domain.NewListingEvent) error {
	n.log.Info("new offer (no notification backend configured)",
		"target", ev.Target.Name,
		"listing", ev.Observation.ID,
		"price", ev.DisplayPrice.StringFixed(2),
		"float", ev.Observation.FloatValue,
	)
	return nil
}

// NotifyPriceChange logs and discards a price-change alert.
func (n *NoOpNotifier) NotifyPriceChange(_ context.Context, ev *domain.PriceChangeEvent) error {
	n.log.Info("price change (no notification backend configured)",
		"target", ev.Target.Name,
		"listing", ev.Observation.ID,
		"previous", ev.Delta.Previous.StringFixed(2),
		"price", ev.Delta.Current.StringFixed(2),
		"direction", string(ev.Delta.Direction),
	)
	return nil
}
