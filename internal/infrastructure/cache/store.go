package cache

import (
	"fmt"

	"github.com/lucasrcosta20/IA-Cadastro/internal/domain"
)

// Store kinds
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// NewStore builds the persisted store for kind. The memory kind has no
// store and returns nil.
func NewStore(kind, path string) (domain.CacheStore, error) {
	switch kind {
	case StoreMemory:
		return nil, nil
	case "", StoreFile:
		return NewFileStore(path), nil
	case StoreSQLite:
		store, err := NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache store %q (want memory, file or sqlite)", kind)
	}
}
