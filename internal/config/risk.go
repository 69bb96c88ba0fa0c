package config

import (
	"fmt"
	"net/url"
	"os"
	"time"
)

const (
	EnvRiskBaseURL = "KLAUSEL_RISK_BASE_URL"
	EnvRiskTimeout = "KLAUSEL_RISK_TIMEOUT"
)

// RiskConfig points at the hallucination risk assessment sidecar. The
// sidecar is optional: when BaseURL is empty, review results carry no
// risk metrics.
type RiskConfig struct {
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`
}

func (c *RiskConfig) Merge(overlay *RiskConfig) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

func (c *RiskConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Enabled reports whether a risk sidecar has been configured.
func (c *RiskConfig) Enabled() bool {
	return c.BaseURL != ""
}

func (c *RiskConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

func (c *RiskConfig) loadDefaults() {
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
}

func (c *RiskConfig) loadEnv() {
	if v := os.Getenv(EnvRiskBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvRiskTimeout); v != "" {
		c.Timeout = v
	}
}

func (c *RiskConfig) validate() error {
	if c.BaseURL != "" {
		if _, err := url.Parse(c.BaseURL); err != nil {
			return fmt.Errorf("invalid base_url: %w", err)
		}
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	return nil
}
