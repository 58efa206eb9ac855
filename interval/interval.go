// Package interval implements the qualitative relation between two frame
// intervals used by the evaluator: a window against a ground-truth event, or a
// confirmed event against the window being classified.
package interval

import (
	"errors"
	"fmt"
)

// ErrInvalidInterval is returned when an interval ends before it starts.
var ErrInvalidInterval = errors.New("invalid interval")

// Interval is a closed span of frame indices.
type Interval struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// New returns the interval (start, end).
func New(start, end int) Interval { return Interval{Start: start, End: end} }

// Validate reports ErrInvalidInterval when End < Start.
func (iv Interval) Validate() error {
	if iv.End < iv.Start {
		return fmt.Errorf("%w: end %d before start %d", ErrInvalidInterval, iv.End, iv.Start)
	}
	return nil
}

// Len is the number of frames covered, End - Start.
func (iv Interval) Len() int { return iv.End - iv.Start }

func (iv Interval) String() string { return fmt.Sprintf("(%d, %d)", iv.Start, iv.End) }

// Signs is the sign pattern of the four endpoint differences between a and b:
// b.Start-a.Start, b.End-a.End, b.Start-a.End, b.End-a.Start.
type Signs [4]int

// SignsOf computes the sign pattern used by both relation tables.
func SignsOf(a, b Interval) Signs {
	return Signs{
		sign(b.Start - a.Start),
		sign(b.End - a.End),
		sign(b.Start - a.End),
		sign(b.End - a.Start),
	}
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}
