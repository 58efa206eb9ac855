package events

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ercarpio/SG-CNN/interval"
)

// Timing maps an event to the frames it was annotated at in the ground truth.
type Timing map[Name]interval.Interval

// ParseTiming builds a Timing from the parallel label/value arrays stored in a
// session record. Labels carry an "_s" or "_e" suffix for the start and end
// frame of the event.
func ParseTiming(labels []string, values []int) (Timing, error) {
	if len(labels) != len(values) {
		return nil, fmt.Errorf("timing: %d labels for %d values", len(labels), len(values))
	}

	starts := map[Name]int{}
	ends := map[Name]int{}
	for i, label := range labels {
		cut := strings.LastIndexByte(label, '_')
		if cut <= 0 {
			return nil, fmt.Errorf("timing: malformed label %q", label)
		}
		name := Name(label[:cut])
		switch label[cut+1:] {
		case "s":
			starts[name] = values[i]
		case "e":
			ends[name] = values[i]
		default:
			return nil, fmt.Errorf("timing: unknown bound in label %q", label)
		}
	}

	t := make(Timing, len(starts))
	for name, s := range starts {
		e, ok := ends[name]
		if !ok {
			return nil, fmt.Errorf("timing: %s has a start but no end", name)
		}
		iv := interval.New(s, e)
		if err := iv.Validate(); err != nil {
			return nil, fmt.Errorf("timing: %s: %w", name, err)
		}
		t[name] = iv
	}
	for name := range ends {
		if _, ok := starts[name]; !ok {
			return nil, fmt.Errorf("timing: %s has an end but no start", name)
		}
	}
	return t, nil
}

// Labels flattens t back into parallel arrays, sorted by label.
func (t Timing) Labels() ([]string, []int) {
	names := make([]string, 0, len(t))
	for n := range t {
		names = append(names, string(n))
	}
	sort.Strings(names)

	labels := make([]string, 0, 2*len(names))
	values := make([]int, 0, 2*len(names))
	for _, n := range names {
		iv := t[Name(n)]
		labels = append(labels, n+"_e", n+"_s")
		values = append(values, iv.End, iv.Start)
	}
	return labels, values
}

// EventTime pairs an event with an interval for reporting.
type EventTime struct {
	Event Name              `json:"event"`
	Span  interval.Interval `json:"span"`
}

// RealTimes returns the annotated intervals of the detectable events in name
// order. An abort annotation is dropped when the session was rewarded.
func RealTimes(t Timing) []EventTime {
	_, rewarded := t[Reward]
	var out []EventTime
	for _, n := range Detectable {
		iv, ok := t[n]
		if !ok || (n == Abort && rewarded) {
			continue
		}
		out = append(out, EventTime{Event: n, Span: iv})
	}
	return out
}
