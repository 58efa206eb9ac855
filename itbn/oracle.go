package itbn

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ercarpio/SG-CNN/events"
	"github.com/ercarpio/SG-CNN/interval"
)

// Verdict is the network's answer for one event.
type Verdict string

const (
	Occurred    Verdict = "Y"
	NotOccurred Verdict = "N"
)

// VerdictOf maps a confirmation flag to its verdict.
func VerdictOf(confirmed bool) Verdict {
	if confirmed {
		return Occurred
	}
	return NotOccurred
}

// Predictions holds a verdict per unknown event of a row.
type Predictions map[events.Name]Verdict

// Row is one fully specified observation handed to the network. Target is the
// event being predicted and is absent from Confirmed. Rows are built fresh for
// every query and must not be modified afterwards.
type Row struct {
	Target    events.Name                 `json:"target"`
	Confirmed map[events.Name]bool        `json:"confirmed"`
	Observed  map[events.Name]bool        `json:"observed"`
	Relations map[Pair]interval.Extended `json:"-"`
}

// Columns flattens the row into the network's field naming: "<event>" as
// "Y"/"N", "obs_<event>" as 0/1 and "<marker><first>_<second>" as the
// numbered relation.
func (r Row) Columns(marker string) map[string]any {
	cols := make(map[string]any, len(r.Confirmed)+len(r.Observed)+len(r.Relations))
	for e, c := range r.Confirmed {
		cols[string(e)] = string(VerdictOf(c))
	}
	for e, o := range r.Observed {
		v := 0
		if o {
			v = 1
		}
		cols["obs_"+string(e)] = v
	}
	for p, rel := range r.Relations {
		cols[marker+p.Key()] = int(rel)
	}
	return cols
}

// Key is a canonical encoding of the row, stable across map iteration order.
func (r Row) Key() string {
	cols := r.Columns(DefaultTemporalMarker)
	names := make([]string, 0, len(cols))
	for n := range cols {
		names = append(names, n)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("target=")
	b.WriteString(string(r.Target))
	for _, n := range names {
		fmt.Fprintf(&b, ";%s=%v", n, cols[n])
	}
	return b.String()
}

// Oracle answers whether the row's target event occurred in the current
// window. Implementations are synchronous and deterministic for a given
// model and row.
type Oracle interface {
	Query(ctx context.Context, row Row) (Predictions, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, row Row) (Predictions, error)

// Query calls f.
func (f OracleFunc) Query(ctx context.Context, row Row) (Predictions, error) { return f(ctx, row) }
