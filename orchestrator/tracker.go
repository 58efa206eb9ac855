package orchestrator

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ercarpio/SG-CNN/events"
	"github.com/ercarpio/SG-CNN/interval"
	"github.com/ercarpio/SG-CNN/itbn"
	"github.com/ercarpio/SG-CNN/telemetry"
)

// TrackerOptions are the session rules the tracker applies.
type TrackerOptions struct {
	StartEvent     events.Name
	TerminalEvents []events.Name
	FarFrame       int // start of the interval standing in for unconfirmed events
}

// observation is the combined robot/human signal of the last window that
// confirmed something.
type observation struct {
	robot, human bool
	valid        bool
}

func (o observation) differs(robot, human bool) bool {
	return !o.valid || o.robot != robot || o.human != human
}

// Tracker runs the event state machine of one session.
type Tracker struct {
	model    *itbn.Model
	oracle   itbn.Oracle
	start    events.Name
	terminal map[events.Name]bool
	far      interval.Interval
	log      logrus.FieldLogger
	tel      *telemetry.Instruments

	state      *SessionState
	times      *EventTimes
	last       observation
	terminated bool
	rounds     int
	queries    int
}

// NewTracker returns a tracker with the all-default session state.
func NewTracker(m *itbn.Model, o itbn.Oracle, opts TrackerOptions, log logrus.FieldLogger, tel *telemetry.Instruments) (*Tracker, error) {
	known := map[events.Name]bool{}
	for _, e := range m.Events {
		known[e] = true
	}
	if !known[opts.StartEvent] {
		return nil, fmt.Errorf("start event %q: %w", opts.StartEvent, itbn.ErrUnknownEvent)
	}
	terminal := make(map[events.Name]bool, len(opts.TerminalEvents))
	for _, e := range opts.TerminalEvents {
		if !known[e] {
			return nil, fmt.Errorf("terminal event %q: %w", e, itbn.ErrUnknownEvent)
		}
		terminal[e] = true
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if tel == nil {
		tel = telemetry.Noop()
	}
	return &Tracker{
		model:    m,
		oracle:   o,
		start:    opts.StartEvent,
		terminal: terminal,
		far:      interval.New(opts.FarFrame, opts.FarFrame+1),
		log:      log,
		tel:      tel,
		state:    NewSessionState(m),
		times:    NewEventTimes(),
	}, nil
}

// Observe feeds the tracker the combined observation of a frame in which at
// least one window completed. w is the window the observation belongs to.
func (t *Tracker) Observe(ctx context.Context, frame int, w interval.Interval, robot, human bool) error {
	if t.terminated {
		return nil
	}

	if !t.state.Confirmed[t.start] {
		if !robot {
			return nil
		}
		return t.commit(ctx, []events.Name{t.start}, frame, w, nil, robot, human)
	}

	if !t.last.differs(robot, human) {
		return nil
	}
	return t.round(ctx, frame, w, robot, human)
}

// round queries the oracle for every pending event against one snapshot and
// commits the confirmed ones together.
func (t *Tracker) round(ctx context.Context, frame int, w interval.Interval, robot, human bool) error {
	pending := t.Pending()
	if len(pending) == 0 {
		return nil
	}
	t.rounds++
	ctx, span := t.tel.StartRound(ctx, frame, len(pending))
	defer span.End()

	working := t.state.Clone()
	for _, e := range pending {
		working.Signals[e] = signalFor(e, robot, human)
	}

	rels := make(map[itbn.Pair]interval.Extended, len(t.model.Pairs))
	for _, p := range t.model.TrackedPairs() {
		first, ok := t.times.Get(p.First)
		if !ok {
			first = t.far
		}
		rels[p] = t.model.Coerce(p, interval.RelateExtended(first, w))
	}

	var confirmed []events.Name
	for _, e := range pending {
		preds, err := t.oracle.Query(ctx, working.Row(e, rels))
		if err != nil {
			return fmt.Errorf("%w: oracle query for %s at frame %d: %w", ErrSessionFailed, e, frame, err)
		}
		t.queries++
		verdict := preds[e]
		t.tel.OracleQueried(ctx, string(e), string(verdict))
		t.log.WithFields(logrus.Fields{"frame": frame, "event": e, "verdict": verdict}).Debug("prediction")
		if verdict == itbn.Occurred {
			confirmed = append(confirmed, e)
		}
	}
	if len(confirmed) == 0 {
		return nil
	}
	return t.commit(ctx, confirmed, frame, w, rels, robot, human)
}

// commit marks events confirmed in window w and records the round's relations
// of every pair that includes them.
func (t *Tracker) commit(ctx context.Context, confirmed []events.Name, frame int, w interval.Interval, rels map[itbn.Pair]interval.Extended, robot, human bool) error {
	for _, e := range confirmed {
		if err := t.times.Add(Prediction{Event: e, Span: w, Frame: frame}); err != nil {
			return err
		}
		t.state.Confirmed[e] = true
		t.state.Signals[e] = signalFor(e, robot, human)
		for p, r := range rels {
			if p.Has(e) {
				t.state.Relations[p] = r
			}
		}
		if t.terminal[e] {
			t.terminated = true
		}
		t.tel.EventConfirmed(ctx, string(e))
		t.log.WithFields(logrus.Fields{"frame": frame, "event": e, "window": w.String()}).Debug("event confirmed")
	}
	t.last = observation{robot: robot, human: human, valid: true}
	return nil
}

// Pending lists the unconfirmed events in model order.
func (t *Tracker) Pending() []events.Name {
	var out []events.Name
	for _, e := range t.model.Events {
		if !t.state.Confirmed[e] {
			out = append(out, e)
		}
	}
	return out
}

// Terminated reports whether a terminal event was confirmed.
func (t *Tracker) Terminated() bool { return t.terminated }

// State returns a copy of the session state.
func (t *Tracker) State() *SessionState { return t.state.Clone() }

// Times returns the confirmations so far.
func (t *Tracker) Times() []Prediction { return t.times.List() }

// Rounds is the number of oracle rounds run.
func (t *Tracker) Rounds() int { return t.rounds }

// Queries is the number of oracle queries issued.
func (t *Tracker) Queries() int { return t.queries }
