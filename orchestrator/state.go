package orchestrator

import (
	"fmt"

	"github.com/ercarpio/SG-CNN/events"
	"github.com/ercarpio/SG-CNN/interval"
	"github.com/ercarpio/SG-CNN/itbn"
)

// SessionState is what the engine knows about a session so far. Signals and
// relations of an event are only written when it is confirmed.
type SessionState struct {
	Confirmed map[events.Name]bool
	Signals   map[events.Name]Signal
	Relations map[itbn.Pair]interval.Extended
}

// NewSessionState returns the all-default state for the model's events.
func NewSessionState(m *itbn.Model) *SessionState {
	s := &SessionState{
		Confirmed: make(map[events.Name]bool, len(m.Events)),
		Signals:   make(map[events.Name]Signal, len(m.Events)),
		Relations: make(map[itbn.Pair]interval.Extended, len(m.Pairs)),
	}
	for _, e := range m.Events {
		s.Confirmed[e] = false
		s.Signals[e] = SignalNone
	}
	for _, p := range m.TrackedPairs() {
		s.Relations[p] = interval.NoRelation
	}
	return s
}

// Clone returns a deep copy.
func (s *SessionState) Clone() *SessionState {
	c := &SessionState{
		Confirmed: make(map[events.Name]bool, len(s.Confirmed)),
		Signals:   make(map[events.Name]Signal, len(s.Signals)),
		Relations: make(map[itbn.Pair]interval.Extended, len(s.Relations)),
	}
	for k, v := range s.Confirmed {
		c.Confirmed[k] = v
	}
	for k, v := range s.Signals {
		c.Signals[k] = v
	}
	for k, v := range s.Relations {
		c.Relations[k] = v
	}
	return c
}

// Row builds the oracle query for target from this state, overlaying the
// round's relations on every pair that includes target. The returned row
// shares nothing with s.
func (s *SessionState) Row(target events.Name, round map[itbn.Pair]interval.Extended) itbn.Row {
	row := itbn.Row{
		Target:    target,
		Confirmed: make(map[events.Name]bool, len(s.Confirmed)),
		Observed:  make(map[events.Name]bool, len(s.Signals)),
		Relations: make(map[itbn.Pair]interval.Extended, len(s.Relations)),
	}
	for e, c := range s.Confirmed {
		if e != target {
			row.Confirmed[e] = c
		}
	}
	for e, sig := range s.Signals {
		row.Observed[e] = sig != SignalNone
	}
	for p, r := range s.Relations {
		row.Relations[p] = r
	}
	for p, r := range round {
		if p.Has(target) {
			row.Relations[p] = r
		}
	}
	return row
}

// signalFor is the signal an event's observation field takes given the
// combined robot and human observations of a window.
func signalFor(e events.Name, robot, human bool) Signal {
	switch events.ModalityOf(e) {
	case events.ByHuman:
		if human {
			return SignalHuman
		}
	default:
		if robot {
			return SignalRobot
		}
	}
	return SignalNone
}

// EventTimes records confirmed events in confirmation order. Entries are
// never replaced or removed.
type EventTimes struct {
	order   []Prediction
	byEvent map[events.Name]int
}

// NewEventTimes returns an empty record.
func NewEventTimes() *EventTimes {
	return &EventTimes{byEvent: map[events.Name]int{}}
}

// Add appends p. Adding an event twice is an error.
func (t *EventTimes) Add(p Prediction) error {
	if _, ok := t.byEvent[p.Event]; ok {
		return fmt.Errorf("event %s already confirmed", p.Event)
	}
	t.byEvent[p.Event] = len(t.order)
	t.order = append(t.order, p)
	return nil
}

// Get returns the window e was confirmed in.
func (t *EventTimes) Get(e events.Name) (interval.Interval, bool) {
	i, ok := t.byEvent[e]
	if !ok {
		return interval.Interval{}, false
	}
	return t.order[i].Span, true
}

// Len is the number of confirmed events.
func (t *EventTimes) Len() int { return len(t.order) }

// List returns a copy of the confirmations in order.
func (t *EventTimes) List() []Prediction {
	return append([]Prediction(nil), t.order...)
}
