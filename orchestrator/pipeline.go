package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	cfg "github.com/ercarpio/SG-CNN/config"
	"github.com/ercarpio/SG-CNN/events"
	"github.com/ercarpio/SG-CNN/itbn"
	"github.com/ercarpio/SG-CNN/session"
	"github.com/ercarpio/SG-CNN/telemetry"
)

// ResultStore persists evaluation results as they are produced.
type ResultStore interface {
	SaveRun(ctx context.Context, r *RunReport) error
	SaveSession(ctx context.Context, runID string, r *SessionReport) error
}

// Deps are the collaborators of a pipeline. Audio, Video, Oracle and Model
// are required.
type Deps struct {
	Audio     Classifier
	Video     Classifier
	Oracle    itbn.Oracle
	Model     *itbn.Model
	Log       logrus.FieldLogger
	Store     ResultStore
	Telemetry *telemetry.Instruments
}

type Pipeline struct {
	cfg    *cfg.Root
	audio  Classifier
	video  Classifier
	oracle itbn.Oracle
	model  *itbn.Model
	log    logrus.FieldLogger
	store  ResultStore
	tel    *telemetry.Instruments

	audioSched  schedule
	videoSched  schedule
	trackerOpts TrackerOptions
}

// RunReport is the outcome of evaluating every pending session.
type RunReport struct {
	RunID     string          `json:"run_id"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at"`
	Files     int             `json:"files"`
	Skipped   int             `json:"skipped"`
	Sessions  []SessionReport `json:"sessions"`
	Audio     ConfusionMatrix `json:"audio"`
	Video     ConfusionMatrix `json:"video"`
}

func NewPipeline(c *cfg.Root, d Deps) (*Pipeline, error) {
	if d.Audio == nil || d.Video == nil {
		return nil, errors.New("pipeline: audio and video classifiers are required")
	}
	if d.Oracle == nil || d.Model == nil {
		return nil, errors.New("pipeline: oracle and model are required")
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	if d.Telemetry == nil {
		d.Telemetry = telemetry.Noop()
	}

	opts := TrackerOptions{
		StartEvent: events.Name(c.Evaluation.StartEvent),
		FarFrame:   c.Evaluation.FarFrame,
	}
	for _, e := range c.Evaluation.TerminalEvents {
		opts.TerminalEvents = append(opts.TerminalEvents, events.Name(e))
	}
	// fail on bad event names before the first session
	if _, err := NewTracker(d.Model, d.Oracle, opts, d.Log, d.Telemetry); err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:         c,
		audio:       d.Audio,
		video:       d.Video,
		oracle:      d.Oracle,
		model:       d.Model,
		log:         d.Log,
		store:       d.Store,
		tel:         d.Telemetry,
		audioSched:  schedule{size: c.Audio.FrameSize, stride: c.Audio.Stride},
		videoSched:  schedule{size: c.Video.FrameSize, stride: c.Video.Stride},
		trackerOpts: opts,
	}, nil
}

// Run evaluates the records of src whose name is in pending, in the order
// src yields them. Records that match no pending name are skipped. Run stops
// once every pending name was evaluated or src is exhausted.
func (p *Pipeline) Run(ctx context.Context, src session.Source, pending []string) (*RunReport, error) {
	report := &RunReport{
		RunID:     ulid.Make().String(),
		StartedAt: time.Now(),
		Files:     len(pending),
	}
	log := p.log.WithField("run_id", report.RunID)
	log.WithFields(logrus.Fields{
		"files":      len(pending),
		"batch_size": p.cfg.Evaluation.BatchSize,
		"validation": p.cfg.Evaluation.Validation,
	}).Info("time start")

	left := make(map[string]bool, len(pending))
	for _, name := range pending {
		left[name] = true
	}

	for counter := 0; len(left) > 0; {
		rec, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if !left[rec.Name] {
			report.Skipped++
			log.WithField("session", rec.Name).Debug("skipping record not pending")
			continue
		}
		delete(left, rec.Name)
		counter++
		log.Infof("processing %d/%d: %s", counter, len(pending), rec.Name)

		sr, err := p.evaluate(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", rec.Name, err)
		}
		p.logTimes(log, sr)

		report.Audio.Merge(sr.Audio)
		report.Video.Merge(sr.Video)
		report.Sessions = append(report.Sessions, *sr)
		if p.store != nil {
			if err := p.store.SaveSession(ctx, report.RunID, sr); err != nil {
				return nil, fmt.Errorf("store session %s: %w", rec.Name, err)
			}
		}
	}

	report.EndedAt = time.Now()
	if p.store != nil {
		if err := p.store.SaveRun(ctx, report); err != nil {
			return nil, fmt.Errorf("store run: %w", err)
		}
	}
	if p.cfg.Paths.Outputs != "" {
		dir, err := persist(p.cfg.Paths.Outputs, report)
		if err != nil {
			return nil, fmt.Errorf("persist run: %w", err)
		}
		log.WithField("dir", dir).Info("results written")
	}

	log.WithFields(logrus.Fields{
		"audio":          report.Audio.String(),
		"video":          report.Video.String(),
		"audio_accuracy": report.Audio.Accuracy(),
		"video_accuracy": report.Video.Accuracy(),
		"skipped":        report.Skipped,
	}).Info("time end")
	return report, nil
}

func (p *Pipeline) logTimes(log logrus.FieldLogger, sr *SessionReport) {
	log = log.WithField("session", sr.Name)
	log.Info("REAL TIMES:")
	for _, rt := range sr.RealTimes {
		log.Infof("%s: %s", rt.Event, rt.Span)
	}
	log.Info("PREDICTED TIMES:")
	for _, pt := range sr.Predicted {
		log.Infof("%s: %s", pt.Event, pt.Span)
	}
	log.WithFields(logrus.Fields{"audio": sr.AudioStrip, "video": sr.VideoStrip}).Debug("classified windows")
}
