package store

import (
	"fmt"
	"time"

	"github.com/matheuscscp/integration-auth/internal/config"
	"github.com/matheuscscp/integration-auth/internal/pairing"
)

// New returns the pairing store selected by cfg. remote is used as is for
// the remote store.
func New(cfg config.PairingConfig, remote pairing.PairingStore, nowFunc func() time.Time) (pairing.PairingStore, error) {
	switch cfg.Store {
	case config.PairingStoreMemory:
		return NewMemoryStore(cfg.MaxRecords, cfg.RecordTTL, nowFunc), nil
	case config.PairingStoreRemote:
		if remote == nil {
			return nil, fmt.Errorf("remote pairing store is not available")
		}
		return remote, nil
	default:
		return nil, fmt.Errorf("unsupported pairing store '%s'", cfg.Store)
	}
}
