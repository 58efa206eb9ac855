package itbn

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ercarpio/SG-CNN/events"
	"github.com/ercarpio/SG-CNN/interval"
)

const modelYAML = `name: test-itbn
pairs:
  - first: command
    second: prompt
    relations: [2, 4]
  - first: prompt
    second: response
    relations: [2]
rules:
  prompt: 'observed["prompt"] && confirmed["command"]'
  response: 'observed["response"] && confirmed["prompt"] && relations["prompt_response"] != 0'
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadModel_YAML(t *testing.T) {
	m, err := LoadModel(writeFile(t, "itbn.yaml", modelYAML))
	require.NoError(t, err)

	assert.Equal(t, "test-itbn", m.Name)
	assert.Equal(t, DefaultTemporalMarker, m.TemporalMarker)
	assert.Equal(t, events.Detectable, m.Events)
	require.Len(t, m.Pairs, 2)

	cp := Pair{events.Command, events.Prompt}
	assert.True(t, m.Recognizes(cp, interval.ExtAfter))
	assert.False(t, m.Recognizes(cp, interval.ExtBefore))
	assert.Equal(t, interval.NoRelation, m.Coerce(cp, interval.ExtOverlaps))
	assert.Equal(t, interval.ExtMetBy, m.Coerce(cp, interval.ExtMetBy))
	assert.Equal(t, "tm_command_prompt", m.FieldName(cp))
}

func TestLoadModel_JSON(t *testing.T) {
	content := `{"temporal_marker": "rel_", "pairs": [{"first": "response", "second": "reward", "relations": [2]}]}`
	m, err := LoadModel(writeFile(t, "itbn.json", content))
	require.NoError(t, err)
	assert.Equal(t, "rel_response_reward", m.FieldName(Pair{events.Response, events.Reward}))
	assert.True(t, m.Recognizes(Pair{events.Response, events.Reward}, interval.ExtAfter))
}

func TestLoadModel_Errors(t *testing.T) {
	cases := []struct {
		name, file, content string
	}{
		{"unsupported extension", "itbn.txt", "pairs: []"},
		{"unknown event", "itbn.yaml", "pairs: [{first: command, second: dance, relations: [1]}]"},
		{"self pair", "itbn.yaml", "pairs: [{first: command, second: command, relations: [1]}]"},
		{"duplicate pair", "itbn.yaml", "pairs: [{first: command, second: prompt}, {first: command, second: prompt}]"},
		{"relation out of range", "itbn.yaml", "pairs: [{first: command, second: prompt, relations: [14]}]"},
		{"zero relation", "itbn.yaml", "pairs: [{first: command, second: prompt, relations: [0]}]"},
		{"rule for unknown event", "itbn.yaml", "rules: {dance: 'true'}"},
		{"bad yaml", "itbn.yaml", "pairs: ["},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadModel(writeFile(t, tc.file, tc.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadModel(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultModel(t *testing.T) {
	m := DefaultModel()
	require.NoError(t, m.Validate())
	assert.Len(t, m.TrackedPairs(), 5)
	for _, p := range m.TrackedPairs() {
		assert.True(t, m.Recognizes(p, interval.ExtBefore))
		assert.False(t, m.Recognizes(p, interval.NoRelation))
	}
	assert.Equal(t, m.Digest(), DefaultModel().Digest())
}

func TestPair_Has(t *testing.T) {
	p := Pair{events.Prompt, events.Abort}
	assert.True(t, p.Has(events.Prompt))
	assert.True(t, p.Has(events.Abort))
	assert.False(t, p.Has(events.Command))
}

func TestRow_ColumnsAndKey(t *testing.T) {
	row := Row{
		Target:    events.Prompt,
		Confirmed: map[events.Name]bool{events.Command: true, events.Reward: false},
		Observed:  map[events.Name]bool{events.Prompt: true, events.Response: false},
		Relations: map[Pair]interval.Extended{{events.Command, events.Prompt}: interval.ExtAfter},
	}

	cols := row.Columns("tm_")
	assert.Equal(t, "Y", cols["command"])
	assert.Equal(t, "N", cols["reward"])
	assert.Equal(t, 1, cols["obs_prompt"])
	assert.Equal(t, 0, cols["obs_response"])
	assert.Equal(t, 2, cols["tm_command_prompt"])
	assert.NotContains(t, cols, "prompt")

	assert.Equal(t, row.Key(), row.Key())
	assert.Contains(t, row.Key(), "target=prompt")
}

func TestRuleOracle(t *testing.T) {
	m, err := LoadModel(writeFile(t, "itbn.yaml", modelYAML))
	require.NoError(t, err)
	o, err := NewRuleOracle(m)
	require.NoError(t, err)

	ctx := context.Background()
	row := Row{
		Target:    events.Prompt,
		Confirmed: map[events.Name]bool{events.Command: true, events.Response: false},
		Observed:  map[events.Name]bool{events.Prompt: true},
	}
	preds, err := o.Query(ctx, row)
	require.NoError(t, err)
	assert.Equal(t, Occurred, preds[events.Prompt])

	row.Confirmed = map[events.Name]bool{events.Command: false, events.Response: false}
	preds, err = o.Query(ctx, row)
	require.NoError(t, err)
	assert.Equal(t, NotOccurred, preds[events.Prompt])

	preds, err = o.Query(ctx, Row{Target: events.Abort})
	require.NoError(t, err)
	assert.Equal(t, NotOccurred, preds[events.Abort])
}

func TestRuleOracle_Errors(t *testing.T) {
	m := DefaultModel()
	m.Rules = map[events.Name]string{events.Prompt: "observed["}
	_, err := NewRuleOracle(m)
	assert.Error(t, err)

	m.Rules = map[events.Name]string{events.Prompt: `relations["command_prompt"]`}
	o, err := NewRuleOracle(m)
	require.NoError(t, err)
	_, err = o.Query(context.Background(), Row{
		Target:    events.Prompt,
		Relations: map[Pair]interval.Extended{{events.Command, events.Prompt}: interval.ExtAfter},
	})
	assert.Error(t, err)
}

func TestLoadModel_Shipped(t *testing.T) {
	m, err := LoadModel(filepath.Join("..", "input", "itbn.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultModel().TrackedPairs(), m.TrackedPairs())

	_, err = NewRuleOracle(m)
	require.NoError(t, err)
}
