package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ercarpio/SG-CNN/events"
	"github.com/ercarpio/SG-CNN/itbn"
)

// --- ITBN (/predict) ---
type PredictReq struct {
	Target string         `json:"target"`
	Row    map[string]any `json:"row"`
}

type PredictResp struct {
	Predictions map[string]string `json:"predictions"`
}

func (h *HTTP) Predict(ctx context.Context, url string, in PredictReq) (*PredictResp, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("predict encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/predict", bytes.NewReader(b))
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
		return nil, fmt.Errorf("predict %s: %s", resp.Status, string(body))
	}

	var out PredictResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("predict decode: %w", err)
	}
	return &out, nil
}

// RemoteOracle queries a network served over HTTP.
type RemoteOracle struct {
	h     *HTTP
	url   string
	model *itbn.Model
}

func NewRemoteOracle(h *HTTP, url string, model *itbn.Model) *RemoteOracle {
	return &RemoteOracle{h: h, url: url, model: model}
}

func (r *RemoteOracle) Query(ctx context.Context, row itbn.Row) (itbn.Predictions, error) {
	out, err := r.h.Predict(ctx, r.url, PredictReq{
		Target: string(row.Target),
		Row:    row.Columns(r.model.TemporalMarker),
	})
	if err != nil {
		return nil, err
	}

	preds := make(itbn.Predictions, len(out.Predictions))
	for name, v := range out.Predictions {
		switch verdict := itbn.Verdict(v); verdict {
		case itbn.Occurred, itbn.NotOccurred:
			preds[events.Name(name)] = verdict
		default:
			return nil, fmt.Errorf("predict: verdict %q for %s", v, name)
		}
	}
	if _, ok := preds[row.Target]; !ok {
		return nil, fmt.Errorf("predict: no verdict for %s", row.Target)
	}
	return preds, nil
}
