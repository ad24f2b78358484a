package storage

import (
	"context"
	"fmt"
)

// Pinger is implemented by backends that can verify they are usable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks s when the backend supports it. Backends without a health
// check are always considered reachable.
func Ping(ctx context.Context, s Storage) error {
	if p, ok := s.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Ping verifies database connectivity with a lightweight query.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	var result int
	err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&result)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if result != 1 {
		return fmt.Errorf("database ping returned unexpected result: %d", result)
	}

	return nil
}
