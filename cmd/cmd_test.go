package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ercarpio/SG-CNN/clients"
	"github.com/ercarpio/SG-CNN/events"
	"github.com/ercarpio/SG-CNN/interval"
	"github.com/ercarpio/SG-CNN/session"
	"github.com/ercarpio/SG-CNN/store"
)

const chainModelYAML = `name: chain
rules:
  prompt: 'confirmed["command"] && observed["prompt"]'
  response: 'confirmed["prompt"] && observed["response"]'
  reward: 'confirmed["response"] && observed["reward"]'
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd(&out)
	root.SetArgs(args)
	root.SetContext(context.Background())
	err := root.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  log_level: error\n"), 0644))
	return path
}

func writeRecord(t *testing.T, path string) {
	t.Helper()
	timing := events.Timing{
		events.Command:  interval.New(10, 30),
		events.Prompt:   interval.New(40, 60),
		events.Response: interval.New(70, 90),
		events.Reward:   interval.New(100, 120),
		events.Audio0:   interval.New(70, 90),
		events.Gesture0: interval.New(70, 90),
	}
	labels, values := timing.Labels()
	frames := make([][]float32, 200)
	for i := range frames {
		frames[i] = []float32{0}
	}
	data, err := json.Marshal(session.Record{
		SequenceLength: 200,
		Audio:          frames,
		Video:          frames,
		TimingLabels:   labels,
		TimingValues:   values,
	})
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

// labelServer is a classifier endpoint that answers with the label it is sent.
func labelServer(t *testing.T, calls *int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(calls, 1)
		var req clients.ClassifyReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var hot events.OneHot
		copy(hot[:], req.Label)
		_ = json.NewEncoder(w).Encode(clients.ClassifyResp{Class: int(hot.Class())})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRelate(t *testing.T) {
	out, err := execute(t, "relate", "0", "20", "10", "30")
	require.NoError(t, err)
	assert.Contains(t, out, "reduced:  OVERLAPS_INV")
	assert.Contains(t, out, "extended: 6")

	out, err = execute(t, "relate", "0", "10", "20", "30")
	require.NoError(t, err)
	assert.Contains(t, out, "reduced:  undefined")
	assert.Contains(t, out, "extended: 2")

	_, err = execute(t, "relate", "5", "1", "0", "3")
	assert.ErrorIs(t, err, interval.ErrInvalidInterval)

	_, err = execute(t, "relate", "a", "1", "0", "3")
	assert.Error(t, err)
}

func TestLabel(t *testing.T) {
	dir := t.TempDir()
	rec := filepath.Join(dir, "s1.json")
	writeRecord(t, rec)

	out, err := execute(t, "--config", writeConfig(t, dir), "label", rec)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.True(t, strings.HasPrefix(lines[0], "audio  ||||||||*****|"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "video  ||**"), lines[1])
	assert.Contains(t, out, "reward: (100, 120)")
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	records := filepath.Join(dir, "records")
	writeRecord(t, filepath.Join(records, "p01", "s1.json"))
	writeRecord(t, filepath.Join(records, "p01", "s1_validation.json"))
	model := filepath.Join(dir, "itbn.yaml")
	require.NoError(t, os.WriteFile(model, []byte(chainModelYAML), 0644))
	db := filepath.Join(dir, "results.sqlite")

	var audioCalls, videoCalls int64
	audio := labelServer(t, &audioCalls)
	video := labelServer(t, &videoCalls)

	out, err := execute(t,
		"--config", writeConfig(t, dir),
		"run",
		"--records", records,
		"--model", model,
		"--outputs", filepath.Join(dir, "outputs"),
		"--results-db", db,
		"--audio-url", audio.URL,
		"--video-url", video.URL,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "number of files: 1")
	assert.Contains(t, out, "AUDIO: [[")
	assert.Contains(t, out, "accuracy 1.000")
	assert.EqualValues(t, 14, atomic.LoadInt64(&audioCalls))
	assert.EqualValues(t, 4, atomic.LoadInt64(&videoCalls))
	assert.Contains(t, out, "windows classified: 18\n")
	assert.Contains(t, out, "events confirmed: 4\n")

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	runs, err := st.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)

	preds, err := st.Predictions(context.Background(), runs[0].ID, filepath.Join(records, "p01", "s1.json"))
	require.NoError(t, err)
	require.Len(t, preds, 4)
	assert.Equal(t, events.Reward, preds[3].Event)

	bundles, err := os.ReadDir(filepath.Join(dir, "outputs", runs[0].ID))
	require.NoError(t, err)
	assert.Len(t, bundles, 2)
}

func TestRun_MissingClassifiers(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--config", writeConfig(t, dir), "run", "--records", dir)
	assert.ErrorContains(t, err, "audio_classifier")
}

func TestConfig_BadLogLevel(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--config", writeConfig(t, dir), "--log-level", "loud", "run")
	assert.Error(t, err)
}

func TestDotEnv(t *testing.T) {
	dir := t.TempDir()
	conf := writeConfig(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ITBN_LOG_FORMAT=xml\n"), 0644))
	t.Chdir(dir)
	// registers the restore, then leaves the variable for .env to set
	t.Setenv("ITBN_LOG_FORMAT", "")
	require.NoError(t, os.Unsetenv("ITBN_LOG_FORMAT"))

	_, err := execute(t, "--config", conf, "run")
	assert.ErrorContains(t, err, `log format "xml"`)
}

func TestBind(t *testing.T) {
	a := &app{v: viper.New()}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("records", "", "")
	require.NoError(t, fs.Parse([]string{"--records", "/data"}))

	a.bind(fs, "records")
	assert.Equal(t, "/data", a.v.GetString("records"))

	assert.PanicsWithValue(t, `bind: no flag "recrods"`, func() { a.bind(fs, "recrods") })
}
