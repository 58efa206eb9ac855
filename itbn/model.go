// Package itbn describes the interval temporal Bayesian network the engine
// queries and defines the contract of that query. The network itself is an
// external collaborator: this package only knows which event pairs it tracks,
// which relations it recognizes for each pair, and how a query row is laid
// out.
package itbn

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ercarpio/SG-CNN/events"
	"github.com/ercarpio/SG-CNN/interval"
)

// DefaultTemporalMarker prefixes temporal relation fields on the wire.
const DefaultTemporalMarker = "tm_"

var (
	// ErrUnknownEvent is returned when a model refers to an event outside the
	// detectable set.
	ErrUnknownEvent = errors.New("unknown event")

	// ErrInvalidModel is returned by Validate.
	ErrInvalidModel = errors.New("invalid model")
)

// Pair is an ordered pair of events whose temporal relation the network
// tracks. First is the event expected to happen earlier.
type Pair struct {
	First  events.Name `json:"first" yaml:"first"`
	Second events.Name `json:"second" yaml:"second"`
}

// Has reports whether e is either member of the pair.
func (p Pair) Has(e events.Name) bool { return p.First == e || p.Second == e }

// Key is the pair's name without the temporal marker, e.g. "command_prompt".
func (p Pair) Key() string { return string(p.First) + "_" + string(p.Second) }

func (p Pair) String() string { return p.Key() }

// PairSpec is a tracked pair with the relations the network recognizes.
type PairSpec struct {
	Pair      `yaml:",inline"`
	Relations []interval.Extended `json:"relations" yaml:"relations"`
}

// Model is the serialized description of the temporal network.
type Model struct {
	Name           string                 `json:"name" yaml:"name"`
	TemporalMarker string                 `json:"temporal_marker" yaml:"temporal_marker"`
	Events         []events.Name          `json:"events" yaml:"events"`
	Pairs          []PairSpec             `json:"pairs" yaml:"pairs"`
	Rules          map[events.Name]string `json:"rules,omitempty" yaml:"rules,omitempty"`

	recognized map[Pair]map[interval.Extended]bool
}

// DefaultModel is the structure of the network trained on the
// command/prompt/response/reward interaction.
func DefaultModel() *Model {
	all := make([]interval.Extended, 0, interval.MaxExtended)
	for x := interval.ExtBefore; x <= interval.MaxExtended; x++ {
		all = append(all, x)
	}
	m := &Model{
		Name:           "itbn",
		TemporalMarker: DefaultTemporalMarker,
		Events:         append([]events.Name(nil), events.Detectable...),
		Pairs: []PairSpec{
			{Pair: Pair{events.Command, events.Prompt}, Relations: all},
			{Pair: Pair{events.Command, events.Response}, Relations: all},
			{Pair: Pair{events.Prompt, events.Abort}, Relations: all},
			{Pair: Pair{events.Prompt, events.Response}, Relations: all},
			{Pair: Pair{events.Response, events.Reward}, Relations: all},
		},
	}
	m.index()
	return m
}

// LoadModel reads a model description. The format is chosen by extension
// (.json, .yaml, .yml).
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}

	var m Model
	switch ext := filepath.Ext(path); ext {
	case ".json":
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse JSON model: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse YAML model: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported model format: %s (supported: .json, .yaml, .yml)", ext)
	}

	if m.TemporalMarker == "" {
		m.TemporalMarker = DefaultTemporalMarker
	}
	if len(m.Events) == 0 {
		m.Events = append([]events.Name(nil), events.Detectable...)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.index()
	return &m, nil
}

// Validate checks event names, pair uniqueness and relation ranges.
func (m *Model) Validate() error {
	known := map[events.Name]bool{}
	for _, e := range m.Events {
		if !events.IsDetectable(e) {
			return fmt.Errorf("%w: %w: %q", ErrInvalidModel, ErrUnknownEvent, e)
		}
		known[e] = true
	}

	seen := map[Pair]bool{}
	for i, ps := range m.Pairs {
		if !known[ps.First] || !known[ps.Second] {
			return fmt.Errorf("%w: pair %d (%s): %w", ErrInvalidModel, i, ps.Pair, ErrUnknownEvent)
		}
		if ps.First == ps.Second {
			return fmt.Errorf("%w: pair %d relates %s to itself", ErrInvalidModel, i, ps.First)
		}
		if seen[ps.Pair] {
			return fmt.Errorf("%w: duplicate pair %s", ErrInvalidModel, ps.Pair)
		}
		seen[ps.Pair] = true
		for _, r := range ps.Relations {
			if r == interval.NoRelation || !r.Valid() {
				return fmt.Errorf("%w: pair %s lists relation %d", ErrInvalidModel, ps.Pair, int(r))
			}
		}
	}

	for e := range m.Rules {
		if !known[e] {
			return fmt.Errorf("%w: rule for %w %q", ErrInvalidModel, ErrUnknownEvent, e)
		}
	}
	return nil
}

func (m *Model) index() {
	m.recognized = make(map[Pair]map[interval.Extended]bool, len(m.Pairs))
	for _, ps := range m.Pairs {
		set := make(map[interval.Extended]bool, len(ps.Relations))
		for _, r := range ps.Relations {
			set[r] = true
		}
		m.recognized[ps.Pair] = set
	}
}

// TrackedPairs returns the pairs in declaration order.
func (m *Model) TrackedPairs() []Pair {
	out := make([]Pair, len(m.Pairs))
	for i, ps := range m.Pairs {
		out[i] = ps.Pair
	}
	return out
}

// Recognizes reports whether the network has a state for rel on pair p.
func (m *Model) Recognizes(p Pair, rel interval.Extended) bool {
	if m.recognized == nil {
		m.index()
	}
	return m.recognized[p][rel]
}

// Coerce returns rel when the network recognizes it for p and NoRelation
// otherwise.
func (m *Model) Coerce(p Pair, rel interval.Extended) interval.Extended {
	if m.Recognizes(p, rel) {
		return rel
	}
	return interval.NoRelation
}

// FieldName is the wire name of the relation field for p.
func (m *Model) FieldName(p Pair) string { return m.TemporalMarker + p.Key() }

// Digest identifies the model structure. Verdict caches key on it.
func (m *Model) Digest() string {
	data, _ := json.Marshal(m)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
