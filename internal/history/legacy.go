package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/donaldgifford/float-tracker/pkg/types"
)

// legacyLayout is a naive ISO-8601 timestamp with optional fraction.
const legacyLayout = "2006-01-02T15:04:05.999999999"

// The legacy document shares the record layout but stores prices as dollar
// floats and timestamps without a zone.
type legacyChange struct {
	Price     decimal.Decimal `json:"price"`
	Float     float64         `json:"float"`
	Timestamp string          `json:"timestamp"`
}

type legacyRecord struct {
	legacyChange
	Changes []legacyChange `json:"changes"`
}

// decodeLegacy converts a legacy history document. Zoneless timestamps are
// read in local time.
func decodeLegacy(raw []byte) (domain.History, error) {
	var doc map[string]map[string]*legacyRecord
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	h := make(domain.History, len(doc))
	for target, listings := range doc {
		th := make(domain.TargetHistory, len(listings))
		for id, lr := range listings {
			if lr == nil {
				continue
			}
			head, err := lr.convert()
			if err != nil {
				return nil, fmt.Errorf("listing %s/%s: %w", target, id, err)
			}
			rec := domain.ListingRecord{
				Price:     head.Price,
				Float:     head.Float,
				Timestamp: head.Timestamp,
				Changes:   make([]domain.ChangeEntry, 0, len(lr.Changes)),
			}
			for _, c := range lr.Changes {
				entry, err := c.convert()
				if err != nil {
					return nil, fmt.Errorf("listing %s/%s: %w", target, id, err)
				}
				rec.Changes = append(rec.Changes, entry)
			}
			th[id] = rec
		}
		h[target] = th
	}
	return h, nil
}

func (c legacyChange) convert() (domain.ChangeEntry, error) {
	ts, err := parseLegacyTime(c.Timestamp)
	if err != nil {
		return domain.ChangeEntry{}, err
	}
	return domain.ChangeEntry{
		Price:     c.Price.Shift(2).Round(0).IntPart(),
		Float:     c.Float,
		Timestamp: ts,
	}, nil
}

func parseLegacyTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(legacyLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
