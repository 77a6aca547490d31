package config

import (
	"fmt"
	"net/url"
	"time"
)

const (
	PlatformModeRemote = "remote"
	PlatformModeDev    = "dev"

	defaultPlatformTimeout = 30 * time.Second
	defaultSessionTokenTTL = 30 * time.Minute
)

// PlatformConfig points at the platform endpoints. In dev mode the platform
// is emulated in-process and the URLs are ignored.
type PlatformConfig struct {
	Mode             string        `yaml:"mode" json:"mode"`
	PodURL           string        `yaml:"podURL" json:"podURL"`
	AuthenticatorURL string        `yaml:"authenticatorURL" json:"authenticatorURL"`
	SessionAuthURL   string        `yaml:"sessionAuthURL" json:"sessionAuthURL"`
	Timeout          time.Duration `yaml:"timeout" json:"timeout"`
	SessionTokenTTL  time.Duration `yaml:"sessionTokenTTL" json:"sessionTokenTTL"`
}

func (p *PlatformConfig) applyDefaults() {
	if p.Mode == "" {
		p.Mode = PlatformModeRemote
	}
	if p.AuthenticatorURL == "" {
		p.AuthenticatorURL = p.PodURL
	}
	if p.SessionAuthURL == "" {
		p.SessionAuthURL = p.PodURL
	}
	if p.Timeout == 0 {
		p.Timeout = defaultPlatformTimeout
	}
	if p.SessionTokenTTL == 0 {
		p.SessionTokenTTL = defaultSessionTokenTTL
	}
}

func (p *PlatformConfig) validate() error {
	switch p.Mode {
	case PlatformModeDev:
		return nil
	case PlatformModeRemote:
	default:
		return fmt.Errorf("unsupported platform.mode '%s', must be one of [%s, %s]",
			p.Mode, PlatformModeRemote, PlatformModeDev)
	}
	if p.PodURL == "" {
		return fmt.Errorf("platform.podURL must be set")
	}
	for _, u := range []struct{ name, value string }{
		{"platform.podURL", p.PodURL},
		{"platform.authenticatorURL", p.AuthenticatorURL},
		{"platform.sessionAuthURL", p.SessionAuthURL},
	} {
		parsed, err := url.Parse(u.value)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute URL: '%s'", u.name, u.value)
		}
	}
	if p.Timeout < 0 {
		return fmt.Errorf("platform.timeout must not be negative")
	}
	if p.SessionTokenTTL < 0 {
		return fmt.Errorf("platform.sessionTokenTTL must not be negative")
	}
	return nil
}
