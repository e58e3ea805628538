package database

import (
	"fmt"

	"github.com/tombaby2015-max/family-photo-album-google/config"
)

// OpenStore builds the Store selected by cfg.StoreDriver.
func OpenStore(cfg config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverSQLite:
		return OpenGormStore(cfg.DatabasePath)
	case config.StoreDriverValkey:
		return NewValkeyStore(cfg.ValkeyAddr, cfg.ValkeyPassword)
	case config.StoreDriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver '%s'", cfg.StoreDriver)
	}
}
