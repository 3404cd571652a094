package store

import (
	"fmt"
	"strings"
)

// NewStoreFromConfig creates a store instance based on configuration
func NewStoreFromConfig(backend, postgresDSN string) (Store, error) {
	switch strings.ToLower(backend) {
	case "memory", "":
		return NewMemoryStore(), nil
	case "postgres":
		return NewPostgresStore(postgresDSN)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", backend)
	}
}
