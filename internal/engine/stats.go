package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	domain "github.com/donaldgifford/float-tracker/pkg/types"
)

// ComputeStats summarizes h over the window starting at since. New offers
// are records whose creation entry falls in the window; price changes are
// log entries after the first that fall in the window. Lowest holds, per
// target, the cheapest record created or changed in the window, listed in
// targets order. Targets absent from the list are reported after, sorted.
func ComputeStats(
	h domain.History,
	targets []string,
	since time.Time,
	periodHours int,
	rate float64,
) domain.Stats {
	st := domain.Stats{
		PeriodHours: periodHours,
		Since:       since,
		Lowest:      []domain.LowestOffer{},
	}

	for _, name := range orderedTargets(h, targets) {
		var lowest *domain.LowestOffer

		for _, id := range sortedIDs(h[name]) {
			rec := h[name][id]
			if !rec.CreatedAt().Before(since) {
				st.NewOffers++
			}
			for _, c := range rec.Changes[min(1, len(rec.Changes)):] {
				if !c.Timestamp.Before(since) {
					st.PriceChanges++
				}
			}

			if rec.Timestamp.Before(since) {
				continue
			}
			if lowest == nil || rec.Price < lowest.Price {
				lowest = &domain.LowestOffer{
					Target:    name,
					ListingID: id,
					Price:     rec.Price,
					Float:     rec.Float,
				}
			}
		}

		if lowest != nil {
			lowest.DisplayPrice = DisplayPrice(lowest.Price, rate)
			st.Lowest = append(st.Lowest, *lowest)
		}
	}

	return st
}

// Stats computes statistics over the last period from a history snapshot.
func (eng *Engine) Stats(period time.Duration) domain.Stats {
	names := make([]string, len(eng.targets))
	for i := range eng.targets {
		names[i] = eng.targets[i].Name
	}
	since := eng.nowFunc().Add(-period)
	return ComputeStats(eng.store.Snapshot(), names, since, int(period.Hours()), eng.rate.Get())
}

// FormatStats renders st as the plain-text report printed by the console
// listener and the CLI.
func FormatStats(st *domain.Stats, symbol string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Stats for the last %dh\n", st.PeriodHours)
	fmt.Fprintf(&b, "- New offers detected: %d\n", st.NewOffers)
	fmt.Fprintf(&b, "- Price changes: %d\n", st.PriceChanges)
	for _, lo := range st.Lowest {
		fmt.Fprintf(&b, "- Lowest offer for %s: %s%s (float %s)\n",
			lo.Target,
			lo.DisplayPrice.StringFixed(2), symbol,
			strconv.FormatFloat(lo.Float, 'f', -1, 64),
		)
	}
	return b.String()
}

func orderedTargets(h domain.History, targets []string) []string {
	seen := make(map[string]bool, len(targets))
	out := make([]string, 0, len(h))
	for _, name := range targets {
		if _, ok := h[name]; ok && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	var extra []string
	for name := range h {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func sortedIDs(th domain.TargetHistory) []string {
	ids := make([]string, 0, len(th))
	for id := range th {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
