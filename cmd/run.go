package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ercarpio/SG-CNN/cache"
	"github.com/ercarpio/SG-CNN/clients"
	cfg "github.com/ercarpio/SG-CNN/config"
	"github.com/ercarpio/SG-CNN/itbn"
	"github.com/ercarpio/SG-CNN/orchestrator"
	"github.com/ercarpio/SG-CNN/session"
	"github.com/ercarpio/SG-CNN/store"
	"github.com/ercarpio/SG-CNN/telemetry"
)

func (a *app) runCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "run",
		Short: "Evaluate every record of one split and report confusion matrices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := a.config()
			if err != nil {
				return err
			}
			log, err := a.logger(conf)
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), conf, log)
		},
	}

	f := c.Flags()
	f.String("records", "", "directory of session records")
	f.String("model", "", "ITBN model description (.yaml, .json)")
	f.String("outputs", "", "directory for per-run result bundles")
	f.String("results-db", "", "SQLite database for results")
	f.String("audio-url", "", "audio classifier endpoint")
	f.String("video-url", "", "video classifier endpoint")
	f.String("oracle-url", "", "remote ITBN endpoint; empty evaluates the model's rules")
	f.String("redis-url", "", "Redis used to cache oracle verdicts")
	f.Bool("validation", false, "evaluate the held-out split")
	a.bind(f, "records", "model", "outputs", "results-db", "audio-url", "video-url", "oracle-url", "redis-url", "validation")
	return c
}

// loadModel reads the configured model, falling back to the built-in
// structure when the file does not exist.
func loadModel(path string, log logrus.FieldLogger) (*itbn.Model, error) {
	if path == "" {
		return itbn.DefaultModel(), nil
	}
	m, err := itbn.LoadModel(path)
	if errors.Is(err, os.ErrNotExist) {
		log.WithField("path", path).Warn("model description not found, using the built-in structure")
		return itbn.DefaultModel(), nil
	}
	return m, err
}

func (a *app) run(ctx context.Context, conf *cfg.Root, log *logrus.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if conf.Services.AudioClassifier.URL == "" || conf.Services.VideoClassifier.URL == "" {
		return errors.New("services.audio_classifier.url and services.video_classifier.url are required")
	}

	model, err := loadModel(conf.Paths.Model, log)
	if err != nil {
		return err
	}

	h := clients.NewHTTP()
	var oracle itbn.Oracle
	if url := conf.Services.Oracle.URL; url != "" {
		oracle = clients.NewRemoteOracle(h, url, model)
	} else {
		rules, err := itbn.NewRuleOracle(model)
		if err != nil {
			return err
		}
		oracle = rules
	}

	if url := conf.Services.Cache.RedisURL; url != "" {
		vc, err := cache.New(cache.Options{URL: url, TTL: cfg.DurSeconds(conf.Services.Cache.TTLSeconds)}, oracle, model, log)
		if err != nil {
			return err
		}
		defer func() {
			hits, misses := vc.Stats()
			log.WithFields(logrus.Fields{"hits": hits, "misses": misses}).Info("verdict cache")
			_ = vc.Close()
		}()
		oracle = vc
	}

	var results orchestrator.ResultStore
	if path := conf.Paths.ResultsDB; path != "" {
		st, err := store.Open(path)
		if err != nil {
			return err
		}
		defer st.Close()
		results = st
	}

	tp := telemetry.NewTracerProvider(log, conf.Pipeline.Name)
	defer func() { _ = tp.Shutdown(context.Background()) }()
	mp, reader := telemetry.NewMeterProvider()
	defer func() { _ = mp.Shutdown(context.Background()) }()
	tel, err := telemetry.New(tp, mp)
	if err != nil {
		return err
	}

	p, err := orchestrator.NewPipeline(conf, orchestrator.Deps{
		Audio:     clients.NewRemoteClassifier(h, conf.Services.AudioClassifier.URL, conf.Evaluation.BatchSize),
		Video:     clients.NewRemoteClassifier(h, conf.Services.VideoClassifier.URL, conf.Evaluation.BatchSize),
		Oracle:    oracle,
		Model:     model,
		Log:       log,
		Store:     results,
		Telemetry: tel,
	})
	if err != nil {
		return err
	}

	paths, err := session.List(conf.Paths.Records, conf.Evaluation.Validation)
	if err != nil {
		return err
	}

	report, err := p.Run(ctx, session.NewFileSource(paths), paths)
	if err != nil {
		return err
	}
	totals, err := telemetry.Totals(ctx, reader)
	if err != nil {
		return err
	}
	fields := logrus.Fields{}
	for name, n := range totals {
		fields[name] = n
	}
	log.WithFields(fields).Info("run counters")

	a.printReport(report, conf)
	fmt.Fprintf(a.out, "windows classified: %d\n", totals["itbn.windows"])
	fmt.Fprintf(a.out, "oracle queries: %d\n", totals["itbn.oracle.queries"])
	fmt.Fprintf(a.out, "events confirmed: %d\n", totals["itbn.events.confirmed"])
	return nil
}

func (a *app) printReport(r *orchestrator.RunReport, conf *cfg.Root) {
	fmt.Fprintf(a.out, "run %s\n", r.RunID)
	fmt.Fprintf(a.out, "time start: %s\n", r.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(a.out, "number of files: %d\n", r.Files)
	fmt.Fprintf(a.out, "batch size: %d\n", conf.Evaluation.BatchSize)
	fmt.Fprintf(a.out, "AUDIO: %s accuracy %.3f\n", r.Audio, r.Audio.Accuracy())
	fmt.Fprintf(a.out, "VIDEO: %s accuracy %.3f\n", r.Video, r.Video.Accuracy())
	fmt.Fprintf(a.out, "time end: %s\n", r.EndedAt.Format(time.RFC3339))
}
