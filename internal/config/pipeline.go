package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvPipelinePagesPerWave   = "KLAUSEL_PIPELINE_PAGES_PER_WAVE"
	EnvPipelineReviewWaveSize = "KLAUSEL_PIPELINE_REVIEW_WAVE_SIZE"
	EnvPipelineStepTimeout    = "KLAUSEL_PIPELINE_STEP_TIMEOUT"
	EnvPipelineWaveTimeout    = "KLAUSEL_PIPELINE_WAVE_TIMEOUT"
	EnvPipelineMaxAttempts    = "KLAUSEL_PIPELINE_MAX_ATTEMPTS"
	EnvPipelineRetryDelay     = "KLAUSEL_PIPELINE_RETRY_DELAY"
)

// PipelineConfig tunes the document analysis pipeline: wave sizing for
// page parsing and clause review, plus the retry policy shared with the
// compliance pipeline.
type PipelineConfig struct {
	PagesPerWave   int    `toml:"pages_per_wave"`
	ReviewWaveSize int    `toml:"review_wave_size"`
	StepTimeout    string `toml:"step_timeout"`
	WaveTimeout    string `toml:"wave_timeout"`
	MaxAttempts    int    `toml:"max_attempts"`
	RetryDelay     string `toml:"retry_delay"`
}

func (c *PipelineConfig) Merge(overlay *PipelineConfig) {
	if overlay.PagesPerWave != 0 {
		c.PagesPerWave = overlay.PagesPerWave
	}
	if overlay.ReviewWaveSize != 0 {
		c.ReviewWaveSize = overlay.ReviewWaveSize
	}
	if overlay.StepTimeout != "" {
		c.StepTimeout = overlay.StepTimeout
	}
	if overlay.WaveTimeout != "" {
		c.WaveTimeout = overlay.WaveTimeout
	}
	if overlay.MaxAttempts != 0 {
		c.MaxAttempts = overlay.MaxAttempts
	}
	if overlay.RetryDelay != "" {
		c.RetryDelay = overlay.RetryDelay
	}
}

func (c *PipelineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

func (c *PipelineConfig) StepTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.StepTimeout)
	return d
}

func (c *PipelineConfig) WaveTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.WaveTimeout)
	return d
}

func (c *PipelineConfig) RetryDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.RetryDelay)
	return d
}

func (c *PipelineConfig) loadDefaults() {
	if c.PagesPerWave == 0 {
		c.PagesPerWave = 5
	}
	if c.ReviewWaveSize == 0 {
		c.ReviewWaveSize = 30
	}
	if c.StepTimeout == "" {
		c.StepTimeout = "1m"
	}
	if c.WaveTimeout == "" {
		c.WaveTimeout = "5m"
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.RetryDelay == "" {
		c.RetryDelay = "2s"
	}
}

func (c *PipelineConfig) loadEnv() {
	setInt := func(envVar string, target *int) {
		if v := os.Getenv(envVar); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*target = n
			}
		}
	}
	setString := func(envVar string, target *string) {
		if v := os.Getenv(envVar); v != "" {
			*target = v
		}
	}

	setInt(EnvPipelinePagesPerWave, &c.PagesPerWave)
	setInt(EnvPipelineReviewWaveSize, &c.ReviewWaveSize)
	setString(EnvPipelineStepTimeout, &c.StepTimeout)
	setString(EnvPipelineWaveTimeout, &c.WaveTimeout)
	setInt(EnvPipelineMaxAttempts, &c.MaxAttempts)
	setString(EnvPipelineRetryDelay, &c.RetryDelay)
}

func (c *PipelineConfig) validate() error {
	if c.PagesPerWave < 1 {
		return fmt.Errorf("pages_per_wave must be positive: %d", c.PagesPerWave)
	}
	if c.ReviewWaveSize < 1 {
		return fmt.Errorf("review_wave_size must be positive: %d", c.ReviewWaveSize)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be positive: %d", c.MaxAttempts)
	}
	for name, value := range map[string]string{
		"step_timeout": c.StepTimeout,
		"wave_timeout": c.WaveTimeout,
		"retry_delay":  c.RetryDelay,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}
