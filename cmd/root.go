// Package cmd is the command line of the evaluator.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	cfg "github.com/ercarpio/SG-CNN/config"
)

const envPrefix = "ITBN"

// app carries what every subcommand shares.
type app struct {
	v   *viper.Viper
	out io.Writer
}

// NewRootCmd builds the command tree. Output of the inspection commands goes
// to out.
func NewRootCmd(out io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out}
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "itbn-eval",
		Short:         "Evaluate windowed event inference over recorded sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentPreRunE = func(*cobra.Command, []string) error {
		// ITBN_* settings may live in a local .env file
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default: config/$CONFIG_ENV/config.yaml, then config.yaml)")
	pf.String("log-level", "", "log level (trace, debug, info, warn, error)")
	pf.String("log-format", "", "log format (text, json)")
	a.bind(pf, "config", "log-level", "log-format")

	root.AddCommand(a.runCmd(), a.relateCmd(), a.labelCmd())
	return root
}

// bind maps flags onto viper keys of the same name. It panics on a name the
// flag set does not define.
func (a *app) bind(fs *pflag.FlagSet, names ...string) {
	for _, n := range names {
		f := fs.Lookup(n)
		if f == nil {
			panic(fmt.Sprintf("bind: no flag %q", n))
		}
		if err := a.v.BindPFlag(n, f); err != nil {
			panic(fmt.Sprintf("bind %q: %v", n, err))
		}
	}
}

// config loads the configuration file and overlays flags and ITBN_* env vars.
func (a *app) config() (*cfg.Root, error) {
	var (
		c   *cfg.Root
		err error
	)
	if path := a.v.GetString("config"); path != "" {
		c, err = cfg.LoadFile(path)
	} else {
		c, err = cfg.Load()
		if errors.Is(err, os.ErrNotExist) {
			c, err = cfg.Default(), nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	overlay := map[string]*string{
		"log-level":  &c.Pipeline.LogLvl,
		"log-format": &c.Pipeline.LogFormat,
		"records":    &c.Paths.Records,
		"model":      &c.Paths.Model,
		"outputs":    &c.Paths.Outputs,
		"results-db": &c.Paths.ResultsDB,
		"audio-url":  &c.Services.AudioClassifier.URL,
		"video-url":  &c.Services.VideoClassifier.URL,
		"oracle-url": &c.Services.Oracle.URL,
		"redis-url":  &c.Services.Cache.RedisURL,
	}
	for key, dst := range overlay {
		if a.v.IsSet(key) {
			if s := a.v.GetString(key); s != "" {
				*dst = s
			}
		}
	}
	if a.v.IsSet("validation") {
		c.Evaluation.Validation = a.v.GetBool("validation")
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

// logger builds the process logger from the pipeline section.
func (a *app) logger(c *cfg.Root) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	lvl := c.Pipeline.LogLvl
	if lvl == "" {
		lvl = "info"
	}
	level, err := logrus.ParseLevel(lvl)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)

	switch c.Pipeline.LogFormat {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("log format %q: want text or json", c.Pipeline.LogFormat)
	}
	return log, nil
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
