package config

import (
	"fmt"
	"time"
)

const (
	PairingStoreRemote = "remote"
	PairingStoreMemory = "memory"

	defaultPairingMaxRecords = 60000
	defaultPairingRecordTTL  = 24 * time.Hour
)

// PairingConfig selects where application token pairs are kept. MaxRecords
// and RecordTTL only apply to the memory store.
type PairingConfig struct {
	Store      string        `yaml:"store" json:"store"`
	MaxRecords int           `yaml:"maxRecords" json:"maxRecords"`
	RecordTTL  time.Duration `yaml:"recordTTL" json:"recordTTL"`
}

func (p *PairingConfig) applyDefaults() {
	if p.Store == "" {
		p.Store = PairingStoreRemote
	}
	if p.MaxRecords == 0 {
		p.MaxRecords = defaultPairingMaxRecords
	}
	if p.RecordTTL == 0 {
		p.RecordTTL = defaultPairingRecordTTL
	}
}

func (p *PairingConfig) validate() error {
	switch p.Store {
	case PairingStoreRemote, PairingStoreMemory:
	default:
		return fmt.Errorf("unsupported pairing.store '%s', must be one of [%s, %s]",
			p.Store, PairingStoreRemote, PairingStoreMemory)
	}
	if p.MaxRecords < 0 {
		return fmt.Errorf("pairing.maxRecords must not be negative")
	}
	if p.RecordTTL < 0 {
		return fmt.Errorf("pairing.recordTTL must not be negative")
	}
	return nil
}
