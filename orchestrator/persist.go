package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// ConfusionBundle is the run-level classifier summary written next to the
// per-session results.
type ConfusionBundle struct {
	RunID         string          `json:"run_id"`
	GeneratedAt   time.Time       `json:"generated_at"`
	Audio         ConfusionMatrix `json:"audio"`
	Video         ConfusionMatrix `json:"video"`
	AudioAccuracy float64         `json:"audio_accuracy"`
	VideoAccuracy float64         `json:"video_accuracy"`
}

func mkRunDir(outputsRoot, runID string) (string, error) {
	dir := filepath.Join(outputsRoot, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// persist writes sessions.json and confusion.json under outputsRoot/<run id>
// and returns that directory.
func persist(outputsRoot string, r *RunReport) (string, error) {
	dir, err := mkRunDir(outputsRoot, r.RunID)
	if err != nil {
		return "", err
	}

	sessions := r.Sessions
	if sessions == nil {
		sessions = []SessionReport{}
	}
	if err := writeJSON(filepath.Join(dir, "sessions.json"), sessions); err != nil {
		return "", err
	}

	bundle := ConfusionBundle{
		RunID:         r.RunID,
		GeneratedAt:   time.Now(),
		Audio:         r.Audio,
		Video:         r.Video,
		AudioAccuracy: r.Audio.Accuracy(),
		VideoAccuracy: r.Video.Accuracy(),
	}
	if err := writeJSON(filepath.Join(dir, "confusion.json"), bundle); err != nil {
		return "", err
	}
	return dir, nil
}
