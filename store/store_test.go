package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ercarpio/SG-CNN/events"
	"github.com/ercarpio/SG-CNN/interval"
	"github.com/ercarpio/SG-CNN/orchestrator"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sessionReport(name string) *orchestrator.SessionReport {
	r := &orchestrator.SessionReport{
		Name:       name,
		Frames:     200,
		Processed:  112,
		Terminated: true,
		Rounds:     3,
		Queries:    9,
		Predicted: []orchestrator.Prediction{
			{Event: events.Command, Span: interval.New(0, 20), Frame: 20},
			{Event: events.Prompt, Span: interval.New(56, 76), Frame: 76},
		},
	}
	r.Audio.Add(events.Robot, events.Robot)
	return r
}

func TestStore_SessionRoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSession(ctx, "run1", sessionReport("b")))
	require.NoError(t, s.SaveSession(ctx, "run1", sessionReport("a")))

	names, err := s.Sessions(ctx, "run1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	preds, err := s.Predictions(ctx, "run1", "a")
	require.NoError(t, err)
	assert.Equal(t, sessionReport("a").Predicted, preds)

	none, err := s.Predictions(ctx, "run2", "a")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_SaveSessionReplaces(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	r := sessionReport("a")
	require.NoError(t, s.SaveSession(ctx, "run1", r))
	r.Predicted = r.Predicted[:1]
	require.NoError(t, s.SaveSession(ctx, "run1", r))

	preds, err := s.Predictions(ctx, "run1", "a")
	require.NoError(t, err)
	assert.Len(t, preds, 1)
}

func TestStore_Runs(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	start := time.UnixMilli(1_700_000_000_000)
	older := &orchestrator.RunReport{RunID: "01A", StartedAt: start, EndedAt: start.Add(time.Minute), Files: 2}
	newer := &orchestrator.RunReport{RunID: "01B", StartedAt: start.Add(time.Hour), EndedAt: start.Add(2 * time.Hour), Files: 3, Skipped: 1}
	newer.Video.Add(events.Human, events.Silence)
	require.NoError(t, s.SaveRun(ctx, older))
	require.NoError(t, s.SaveRun(ctx, newer))

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "01B", runs[0].ID)
	assert.Equal(t, 1, runs[0].Skipped)
	assert.Equal(t, newer.Video, runs[0].Video)
	assert.True(t, start.Equal(runs[1].StartedAt))
}

func TestStore_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.sqlite")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveSession(context.Background(), "run1", sessionReport("a")))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	names, err := s.Sessions(context.Background(), "run1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names)
}
