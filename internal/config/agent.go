package config

import (
	"fmt"
	"os"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

const (
	EnvAgentProviderName = "KLAUSEL_AGENT_PROVIDER_NAME"
	EnvAgentBaseURL      = "KLAUSEL_AGENT_BASE_URL"
	EnvAgentToken        = "KLAUSEL_AGENT_TOKEN"
	EnvAgentDeployment   = "KLAUSEL_AGENT_DEPLOYMENT"
	EnvAgentAPIVersion   = "KLAUSEL_AGENT_API_VERSION"
	EnvAgentAuthType     = "KLAUSEL_AGENT_AUTH_TYPE"
	EnvAgentModelName    = "KLAUSEL_AGENT_MODEL_NAME"
)

// AgentConfig wraps the go-agents agent configuration so it participates
// in the same defaults, environment override, and validation sequence as
// every other config section.
type AgentConfig struct {
	gaconfig.AgentConfig
}

func (c *AgentConfig) Merge(overlay *AgentConfig) {
	c.AgentConfig.Merge(&overlay.AgentConfig)
}

func (c *AgentConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

func (c *AgentConfig) loadDefaults() {
	defaults := gaconfig.DefaultAgentConfig()
	defaults.Merge(&c.AgentConfig)
	c.AgentConfig = defaults
}

func (c *AgentConfig) loadEnv() {
	if c.Provider == nil {
		c.Provider = &gaconfig.ProviderConfig{}
	}
	if c.Provider.Options == nil {
		c.Provider.Options = make(map[string]any)
	}
	if c.Model == nil {
		c.Model = &gaconfig.ModelConfig{}
	}
	if v := os.Getenv(EnvAgentProviderName); v != "" {
		c.Provider.Name = v
	}
	if v := os.Getenv(EnvAgentBaseURL); v != "" {
		c.Provider.BaseURL = v
	}
	if v := os.Getenv(EnvAgentModelName); v != "" {
		c.Model.Name = v
	}

	setOption := func(envVar, key string) {
		if v := os.Getenv(envVar); v != "" {
			c.Provider.Options[key] = v
		}
	}

	setOption(EnvAgentToken, "token")
	setOption(EnvAgentDeployment, "deployment")
	setOption(EnvAgentAPIVersion, "api_version")
	setOption(EnvAgentAuthType, "auth_type")
}

func (c *AgentConfig) validate() error {
	if c.Name == "" {
		return fmt.Errorf("name required")
	}
	if c.Provider == nil {
		return fmt.Errorf("provider required")
	}
	if c.Provider.Name == "" {
		return fmt.Errorf("provider name required")
	}
	if c.Model == nil {
		return fmt.Errorf("model required")
	}
	return nil
}
