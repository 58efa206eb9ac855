package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Service struct {
	URL string `yaml:"url"`
}
type Cache struct {
	RedisURL   string `yaml:"redis_url"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}
type Services struct {
	AudioClassifier Service `yaml:"audio_classifier"`
	VideoClassifier Service `yaml:"video_classifier"`
	Oracle          Service `yaml:"oracle"` // empty: evaluate the model's rules locally
	Cache           Cache   `yaml:"cache"`
}

// Modality is the window geometry of one sensor stream, in frames.
type Modality struct {
	FrameSize int `yaml:"frame_size"`
	Stride    int `yaml:"stride"`
}
type Evaluation struct {
	Validation     bool     `yaml:"validation"`
	StartEvent     string   `yaml:"start_event"`
	TerminalEvents []string `yaml:"terminal_events"`
	FarFrame       int      `yaml:"far_frame"`
	BatchSize      int      `yaml:"batch_size"`
}
type Root struct {
	Pipeline struct {
		Name      string `yaml:"name"`
		Version   string `yaml:"version"`
		LogLvl    string `yaml:"log_level"`
		LogFormat string `yaml:"log_format"`
	} `yaml:"pipeline"`
	Audio      Modality   `yaml:"audio"`
	Video      Modality   `yaml:"video"`
	Evaluation Evaluation `yaml:"evaluation"`
	Services   Services   `yaml:"services"`
	Paths      struct {
		Records   string `yaml:"records"`
		Model     string `yaml:"model"`
		Outputs   string `yaml:"outputs"`
		ResultsDB string `yaml:"results_db"`
	} `yaml:"paths"`
}

// Default returns the configuration the classifiers were trained with.
func Default() *Root {
	var c Root
	c.Pipeline.Name = "itbn-eval"
	c.Pipeline.Version = "0.1.0"
	c.Pipeline.LogLvl = "info"
	c.Pipeline.LogFormat = "text"
	c.Audio = Modality{FrameSize: 20, Stride: 7}
	c.Video = Modality{FrameSize: 45, Stride: 20}
	c.Evaluation = Evaluation{
		StartEvent:     "command",
		TerminalEvents: []string{"abort", "reward"},
		FarFrame:       10000,
		BatchSize:      1,
	}
	c.Services.Cache.TTLSeconds = 24 * 60 * 60
	c.Paths.Records = "records"
	c.Paths.Model = filepath.Join("input", "itbn.yaml")
	return &c
}

// Load looks for config/<CONFIG_ENV>/config.yaml, then config.yaml.
func Load() (*Root, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	var guess []string = []string{
		filepath.Join("config", env, "config.yaml"),
		"config.yaml",
	}
	var err error
	for _, p := range guess {
		var c *Root
		c, err = LoadFile(p)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	return nil, err
}

// LoadFile decodes path over Default and validates the result.
func LoadFile(path string) (*Root, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := Default()
	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

func (c *Root) Validate() error {
	for name, m := range map[string]Modality{"audio": c.Audio, "video": c.Video} {
		if m.FrameSize <= 0 || m.Stride <= 0 {
			return fmt.Errorf("%s: frame_size and stride must be positive", name)
		}
	}
	if c.Evaluation.StartEvent == "" {
		return errors.New("evaluation.start_event is required")
	}
	if len(c.Evaluation.TerminalEvents) == 0 {
		return errors.New("evaluation.terminal_events is required")
	}
	if c.Evaluation.FarFrame <= 0 {
		return errors.New("evaluation.far_frame must be positive")
	}
	if c.Evaluation.BatchSize != 1 {
		return fmt.Errorf("evaluation.batch_size %d: only 1 is supported", c.Evaluation.BatchSize)
	}
	return nil
}

func DurSeconds(n int) time.Duration { return time.Duration(n) * time.Second }
