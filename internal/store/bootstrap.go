package store

import (
	"context"
	"fmt"
)

// Bootstrap creates all service tables if they don't exist.
func (s *Store) Bootstrap(ctx context.Context) error {
	for _, stmt := range s.Dialect.TableStatements() {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap tables: %w", err)
		}
	}
	return nil
}
