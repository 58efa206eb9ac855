package orchestrator

import (
	"context"

	"github.com/ercarpio/SG-CNN/events"
	"github.com/ercarpio/SG-CNN/interval"
)

// Modality is a sensor stream with its own classifier.
type Modality string

const (
	Audio Modality = "audio"
	Video Modality = "video"
)

// Window is one fixed-size slice of a modality handed to its classifier.
type Window struct {
	Modality       Modality
	Index          int               // chunk counter within the session
	Span           interval.Interval // frames [start, end)
	Raw            [][]float32       // one row per frame
	SequenceLength int
	Label          events.OneHot // ground truth, the classifier scores against it
}

// Classifier maps a window to a predicted class. By the time Classify
// returns the window's data has been fully consumed.
type Classifier interface {
	Classify(ctx context.Context, w Window) (events.Class, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, w Window) (events.Class, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, w Window) (events.Class, error) {
	return f(ctx, w)
}

// Signal is what the classifiers saw for an event's actor.
type Signal int

const (
	SignalNone Signal = iota
	SignalRobot
	SignalHuman
)

func (s Signal) String() string {
	switch s {
	case SignalRobot:
		return "robot"
	case SignalHuman:
		return "human"
	}
	return "none"
}

// Prediction is a confirmed event with the window it was confirmed in.
type Prediction struct {
	Event events.Name       `json:"event"`
	Span  interval.Interval `json:"span"`
	Frame int               `json:"frame"` // frame index the window completed at
}

// SessionReport is the outcome of one session.
type SessionReport struct {
	Name       string             `json:"name"`
	Frames     int                `json:"frames"`
	Processed  int                `json:"processed"` // frames visited before termination
	Terminated bool               `json:"terminated"`
	RealTimes  []events.EventTime `json:"real_times"`
	Predicted  []Prediction       `json:"predicted"`
	Rounds     int                `json:"rounds"`
	Queries    int                `json:"queries"`
	AudioStrip string             `json:"audio_strip,omitempty"`
	VideoStrip string             `json:"video_strip,omitempty"`
	Audio      ConfusionMatrix    `json:"audio"`
	Video      ConfusionMatrix    `json:"video"`
}
