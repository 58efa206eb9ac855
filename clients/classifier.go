package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ercarpio/SG-CNN/events"
	"github.com/ercarpio/SG-CNN/orchestrator"
)

// --- Classifier (/classify) ---
type ClassifyReq struct {
	Modality       string      `json:"modality"`
	SequenceLength int         `json:"sequence_length"`
	BatchSize      int         `json:"batch_size"`
	Window         [][]float32 `json:"window"`
	Label          []float64   `json:"label"`
}

type ClassifyResp struct {
	Class    int     `json:"class"`
	Accuracy float64 `json:"accuracy,omitempty"`
}

func (h *HTTP) Classify(ctx context.Context, url string, in ClassifyReq) (*ClassifyResp, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("classify encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/classify", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("classify %s: %s", resp.Status, string(body))
	}

	var out ClassifyResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("classify decode: %w", err)
	}
	return &out, nil
}

// RemoteClassifier serves one modality's checkpoint behind HTTP.
type RemoteClassifier struct {
	h         *HTTP
	url       string
	batchSize int
}

func NewRemoteClassifier(h *HTTP, url string, batchSize int) *RemoteClassifier {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &RemoteClassifier{h: h, url: url, batchSize: batchSize}
}

func (r *RemoteClassifier) Classify(ctx context.Context, w orchestrator.Window) (events.Class, error) {
	out, err := r.h.Classify(ctx, r.url, ClassifyReq{
		Modality:       string(w.Modality),
		SequenceLength: w.SequenceLength,
		BatchSize:      r.batchSize,
		Window:         w.Raw,
		Label:          w.Label[:],
	})
	if err != nil {
		return events.Silence, err
	}
	c := events.Class(out.Class)
	if !c.Valid() {
		return events.Silence, fmt.Errorf("classify: %s classifier returned class %d", w.Modality, out.Class)
	}
	return c, nil
}
