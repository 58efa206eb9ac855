package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ercarpio/SG-CNN/events"
	"github.com/ercarpio/SG-CNN/interval"
	"github.com/ercarpio/SG-CNN/session"
)

// ErrSessionFailed wraps classifier and oracle failures. They end the
// evaluation of the session they occur in.
var ErrSessionFailed = errors.New("session evaluation failed")

// stream is the per-session windowing state of one modality.
type stream struct {
	modality Modality
	sched    schedule
	group    events.Group
	clf      Classifier
	raw      [][]float32

	chunk     int
	predicted events.Class
	matrix    ConfusionMatrix
	strip     []byte
}

// step classifies the window completing at frame, if any.
func (s *stream) step(ctx context.Context, p *Pipeline, frame int, rec *session.Record, timing events.Timing) (interval.Interval, bool, error) {
	if !s.sched.completes(frame, s.chunk) {
		return interval.Interval{}, false, nil
	}
	span := s.sched.span(s.chunk)
	label := events.LabelWindow(capped(span, rec.SequenceLength), timing, s.group)

	predicted, err := s.clf.Classify(ctx, Window{
		Modality:       s.modality,
		Index:          s.chunk,
		Span:           span,
		Raw:            s.raw[span.Start:span.End],
		SequenceLength: rec.SequenceLength,
		Label:          label,
	})
	if err != nil {
		return span, true, fmt.Errorf("%w: %s classifier at frame %d: %w", ErrSessionFailed, s.modality, frame, err)
	}
	if !predicted.Valid() {
		return span, true, fmt.Errorf("%w: %s classifier returned %d", ErrSessionFailed, s.modality, predicted)
	}

	truth := label.Class()
	s.matrix.Add(truth, predicted)
	s.strip = append(s.strip, events.SequenceChars[predicted])
	s.predicted = predicted
	s.chunk++
	p.tel.WindowClassified(ctx, string(s.modality), int(truth), int(predicted))
	return span, true, nil
}

// evaluate runs one session frame by frame until a terminal event is
// confirmed or the sequence is exhausted.
func (p *Pipeline) evaluate(ctx context.Context, rec *session.Record) (*SessionReport, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	timing, err := rec.Timing()
	if err != nil {
		return nil, err
	}

	ctx, span := p.tel.StartSession(ctx, rec.Name, rec.SequenceLength)
	defer span.End()

	log := p.log.WithField("session", rec.Name)
	tracker, err := NewTracker(p.model, p.oracle, p.trackerOpts, log, p.tel)
	if err != nil {
		return nil, err
	}

	streams := []*stream{
		{modality: Audio, sched: p.audioSched, group: events.AudioGroup, clf: p.audio, raw: rec.Audio},
		{modality: Video, sched: p.videoSched, group: events.VideoGroup, clf: p.video, raw: rec.Video},
	}
	for _, s := range streams {
		s.strip = make([]byte, 0, s.sched.chunks(rec.SequenceLength))
	}

	report := &SessionReport{Name: rec.Name, Frames: rec.SequenceLength, RealTimes: events.RealTimes(timing)}
	for i := 0; i < rec.SequenceLength; i++ {
		report.Processed = i + 1

		var window interval.Interval
		completed := false
		for _, s := range streams {
			w, ok, err := s.step(ctx, p, i, rec, timing)
			if err != nil {
				return nil, err
			}
			if ok {
				window, completed = w, true
			}
		}
		if !completed {
			continue
		}

		robot := streams[0].predicted == events.Robot || streams[1].predicted == events.Robot
		human := streams[0].predicted == events.Human || streams[1].predicted == events.Human
		if err := tracker.Observe(ctx, i, window, robot, human); err != nil {
			return nil, err
		}
		if tracker.Terminated() {
			report.Terminated = true
			break
		}
	}

	report.Predicted = tracker.Times()
	report.Rounds = tracker.Rounds()
	report.Queries = tracker.Queries()
	report.Audio, report.Video = streams[0].matrix, streams[1].matrix
	report.AudioStrip, report.VideoStrip = string(streams[0].strip), string(streams[1].strip)

	log.WithFields(logrus.Fields{
		"processed":  report.Processed,
		"terminated": report.Terminated,
		"rounds":     report.Rounds,
		"queries":    report.Queries,
	}).Debug("session done")
	return report, nil
}
