package config

const (
	defaultServerAddr = ":8080"
)

type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

func (s *ServerConfig) applyDefaults() {
	if s.Addr == "" {
		s.Addr = defaultServerAddr
	}
}
