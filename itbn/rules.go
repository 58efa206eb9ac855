package itbn

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/ercarpio/SG-CNN/events"
)

// RuleOracle answers queries with one CEL predicate per event. Predicates see
//
//	event      string             the target event
//	confirmed  map(string, bool)  every other event's confirmation
//	observed   map(string, bool)  whether each event's actor is observed
//	relations  map(string, int)   numbered relation per pair, keyed "first_second"
//
// An event without a rule is never predicted.
type RuleOracle struct {
	programs map[events.Name]cel.Program
}

// NewRuleOracle compiles the rules of m.
func NewRuleOracle(m *Model) (*RuleOracle, error) {
	env, err := cel.NewEnv(
		cel.Variable("event", cel.StringType),
		cel.Variable("confirmed", cel.MapType(cel.StringType, cel.BoolType)),
		cel.Variable("observed", cel.MapType(cel.StringType, cel.BoolType)),
		cel.Variable("relations", cel.MapType(cel.StringType, cel.IntType)),
	)
	if err != nil {
		return nil, fmt.Errorf("rule env: %w", err)
	}

	o := &RuleOracle{programs: make(map[events.Name]cel.Program, len(m.Rules))}
	for e, expr := range m.Rules {
		ast, iss := env.Compile(expr)
		if iss != nil && iss.Err() != nil {
			return nil, fmt.Errorf("compile rule for %s: %w", e, iss.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("program rule for %s: %w", e, err)
		}
		o.programs[e] = prg
	}
	return o, nil
}

// Query evaluates the target's rule against the row.
func (o *RuleOracle) Query(_ context.Context, row Row) (Predictions, error) {
	prg, ok := o.programs[row.Target]
	if !ok {
		return Predictions{row.Target: NotOccurred}, nil
	}

	confirmed := make(map[string]bool, len(row.Confirmed))
	for e, c := range row.Confirmed {
		confirmed[string(e)] = c
	}
	observed := make(map[string]bool, len(row.Observed))
	for e, v := range row.Observed {
		observed[string(e)] = v
	}
	relations := make(map[string]int64, len(row.Relations))
	for p, r := range row.Relations {
		relations[p.Key()] = int64(r)
	}

	out, _, err := prg.Eval(map[string]any{
		"event":     string(row.Target),
		"confirmed": confirmed,
		"observed":  observed,
		"relations": relations,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate rule for %s: %w", row.Target, err)
	}
	hit, ok := out.Value().(bool)
	if !ok {
		return nil, fmt.Errorf("rule for %s returned %T, want bool", row.Target, out.Value())
	}
	return Predictions{row.Target: VerdictOf(hit)}, nil
}
