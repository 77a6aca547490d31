package config

import "fmt"

// IntegrationConfig describes one integration instance known to the service.
// Type selects the session credential used against the platform and
// ApplicationID is the id the application is registered with.
type IntegrationConfig struct {
	ConfigurationID string `yaml:"configurationId" json:"configurationId"`
	Type            string `yaml:"type" json:"type"`
	ApplicationID   string `yaml:"applicationId" json:"applicationId"`
}

func (i *IntegrationConfig) validate(idx int) error {
	if i == nil {
		return fmt.Errorf("integrations[%d] is empty", idx)
	}
	if i.ConfigurationID == "" {
		return fmt.Errorf("configurationId is empty for integrations[%d]", idx)
	}
	if i.Type == "" {
		return fmt.Errorf("type is empty for integrations[%d]", idx)
	}
	if i.ApplicationID == "" {
		i.ApplicationID = i.Type
	}
	return nil
}
