// Package session reads recorded interaction sessions: raw audio and video
// feature frames plus the annotated event timing of the session.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ercarpio/SG-CNN/events"
)

// ErrNoRecords is returned by List when the directory holds no records for
// the requested split.
var ErrNoRecords = errors.New("no session records")

// ValidationMarker tags held-out records in their file name.
const ValidationMarker = "validation"

// Record is one recorded session.
type Record struct {
	Name           string      `json:"name" yaml:"name"`
	SequenceLength int         `json:"sequence_length" yaml:"sequence_length"`
	Audio          [][]float32 `json:"audio" yaml:"audio"`
	Video          [][]float32 `json:"video" yaml:"video"`
	TimingLabels   []string    `json:"timing_labels" yaml:"timing_labels"`
	TimingValues   []int       `json:"timing_values" yaml:"timing_values"`
}

// Validate checks that both streams cover the sequence.
func (r *Record) Validate() error {
	if r.SequenceLength <= 0 {
		return fmt.Errorf("record %s: sequence length %d", r.Name, r.SequenceLength)
	}
	if len(r.Audio) < r.SequenceLength {
		return fmt.Errorf("record %s: %d audio frames for sequence length %d", r.Name, len(r.Audio), r.SequenceLength)
	}
	if len(r.Video) < r.SequenceLength {
		return fmt.Errorf("record %s: %d video frames for sequence length %d", r.Name, len(r.Video), r.SequenceLength)
	}
	if len(r.TimingLabels) != len(r.TimingValues) {
		return fmt.Errorf("record %s: %d timing labels for %d values", r.Name, len(r.TimingLabels), len(r.TimingValues))
	}
	return nil
}

// Timing parses the record's ground-truth dictionary.
func (r *Record) Timing() (events.Timing, error) {
	t, err := events.ParseTiming(r.TimingLabels, r.TimingValues)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", r.Name, err)
	}
	return t, nil
}

// Load reads a record. The format is chosen by extension (.json, .yaml,
// .yml). A record without a name is named after its path.
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}

	var r Record
	switch ext := filepath.Ext(path); ext {
	case ".json":
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("parse JSON record %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("parse YAML record %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported record format: %s (supported: .json, .yaml, .yml)", ext)
	}

	if r.Name == "" {
		r.Name = path
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func supported(path string) bool {
	switch filepath.Ext(path) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// List walks dir and returns the sorted record paths of one split: held-out
// records when validation is set, training records otherwise.
func List(dir string, validation bool) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !supported(path) {
			return nil
		}
		if strings.Contains(d.Name(), ValidationMarker) == validation {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s (validation=%t)", ErrNoRecords, dir, validation)
	}
	sort.Strings(paths)
	return paths, nil
}

// Source yields records one at a time and returns io.EOF when exhausted.
type Source interface {
	Next(ctx context.Context) (*Record, error)
}

// FileSource loads records from a list of paths in order. Records are named
// after their path so they match the listing they came from.
type FileSource struct {
	paths []string
	next  int
}

// NewFileSource returns a source over paths.
func NewFileSource(paths []string) *FileSource {
	return &FileSource{paths: append([]string(nil), paths...)}
}

// Next loads the next record.
func (s *FileSource) Next(ctx context.Context) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.paths) {
		return nil, io.EOF
	}
	path := s.paths[s.next]
	s.next++
	r, err := Load(path)
	if err != nil {
		return nil, err
	}
	r.Name = path
	return r, nil
}

// SliceSource yields in-memory records.
type SliceSource struct {
	records []*Record
	next    int
}

// NewSliceSource returns a source over records.
func NewSliceSource(records ...*Record) *SliceSource {
	return &SliceSource{records: records}
}

// Next returns the next record.
func (s *SliceSource) Next(ctx context.Context) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.records) {
		return nil, io.EOF
	}
	r := s.records[s.next]
	s.next++
	return r, nil
}
