package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/donaldgifford/float-tracker/internal/api/handlers"
	"github.com/donaldgifford/float-tracker/internal/engine"
	domain "github.com/donaldgifford/float-tracker/pkg/types"
)

const timeLayout = "2006-01-02 15:04:05"

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

func printOutcomes(w io.Writer, outcomes []engine.TargetOutcome) error {
	tw := newTabWriter(w)
	tw.writef("TARGET\tSTATUS\tOBSERVED\tNEW\tCHANGED\tALERTS\tDURATION\tERROR\n")
	for i := range outcomes {
		o := &outcomes[i]
		tw.writef("%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
			o.Target,
			o.Status,
			o.Observed,
			o.New,
			o.Changed,
			o.Alerts,
			o.Duration.Round(time.Millisecond),
			truncate(o.Error, 50),
		)
	}
	return tw.finish()
}

func printHistory(w io.Writer, h *handlers.HistoryBody) error {
	tw := newTabWriter(w)
	tw.writef("ID\tPRICE\tFLOAT\tCHANGES\tLAST UPDATE\n")
	for i := range h.Listings {
		l := &h.Listings[i]
		tw.writef("%s\t$%s\t%.6f\t%d\t%s\n",
			l.ID,
			cents(l.Price),
			l.Float,
			max(len(l.Changes)-1, 0),
			l.Timestamp.Local().Format(timeLayout),
		)
	}
	return tw.finish()
}

func printStatus(w io.Writer, st *engine.Status, q *handlers.QuotaBody) error {
	tw := newTabWriter(w)
	phase := string(st.Phase)
	if st.CurrentTarget != "" {
		phase += " (" + st.CurrentTarget + ")"
	}
	tw.writef("Phase:\t%s\n", phase)
	tw.writef("Cycles:\t%d\n", st.Cycles)
	if !st.LastCycleAt.IsZero() {
		tw.writef("Last cycle:\t%s\n", st.LastCycleAt.Local().Format(timeLayout))
	}
	tw.writef("Exchange rate:\t%.4f\n", st.Rate)
	tw.writef("Tracked listings:\t%d\n", st.Listings)
	if q != nil {
		remaining := "unlimited"
		if q.Remaining >= 0 {
			remaining = fmt.Sprintf("%d of %d", q.Remaining, q.DailyLimit)
		}
		tw.writef("CSFloat quota:\t%s (resets %s)\n", remaining, q.ResetAt.Local().Format(timeLayout))
	}
	if err := tw.finish(); err != nil {
		return err
	}

	if len(st.LastOutcomes) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return printOutcomes(w, st.LastOutcomes)
}

func historyBody(target string, th domain.TargetHistory) *handlers.HistoryBody {
	body := &handlers.HistoryBody{Target: target}
	for _, id := range sortedKeys(th) {
		rec := th[id]
		body.Listings = append(body.Listings, handlers.ListingBody{
			ID:        id,
			Price:     rec.Price,
			Float:     rec.Float,
			Timestamp: rec.Timestamp,
			Changes:   rec.Changes,
		})
	}
	return body
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func cents(v int64) string {
	return decimal.New(v, -2).StringFixed(2)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
