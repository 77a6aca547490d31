package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	defaultConfigFile = "/etc/integration-auth/config/config.yaml"
	envConfigFile     = "INTEGRATION_AUTH_CONFIG"
)

type Config struct {
	Server       ServerConfig         `yaml:"server" json:"server"`
	Platform     PlatformConfig       `yaml:"platform" json:"platform"`
	Pairing      PairingConfig        `yaml:"pairing" json:"pairing"`
	Integrations []*IntegrationConfig `yaml:"integrations" json:"integrations"`

	integrationsByID map[string]*IntegrationConfig
}

func Load() (*Config, error) {
	fileName := defaultConfigFile
	if fn := os.Getenv(envConfigFile); fn != "" {
		fileName = fn
	}
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file '%s': %w", fileName, err)
	}
	if err := cfg.ValidateAndInitialize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) ValidateAndInitialize() error {
	if c.Integrations == nil {
		c.Integrations = []*IntegrationConfig{}
	}
	c.Server.applyDefaults()
	c.Pairing.applyDefaults()
	c.Platform.applyDefaults()

	if err := c.Platform.validate(); err != nil {
		return err
	}
	if err := c.Pairing.validate(); err != nil {
		return err
	}

	c.integrationsByID = make(map[string]*IntegrationConfig, len(c.Integrations))
	for i, in := range c.Integrations {
		if err := in.validate(i); err != nil {
			return err
		}
		if _, ok := c.integrationsByID[in.ConfigurationID]; ok {
			return fmt.Errorf("duplicate configurationId '%s' in integrations[%d]", in.ConfigurationID, i)
		}
		c.integrationsByID[in.ConfigurationID] = in
	}

	return nil
}

// Integration returns the integration registered under configurationID.
func (c *Config) Integration(configurationID string) (*IntegrationConfig, bool) {
	in, ok := c.integrationsByID[configurationID]
	return in, ok
}
