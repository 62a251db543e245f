package health

import (
	"context"
	"errors"
	"fmt"

	"mercator-hq/beacon/pkg/audit"
)

// CategoryCounter is satisfied by *schema.Catalog.
type CategoryCounter interface {
	Count() int
}

// RecordCounter is satisfied by *suppression.Manager.
type RecordCounter interface {
	Count(ctx context.Context) (int, error)
}

// CatalogCheck fails while the catalog holds no categories. A router with an
// empty catalog never produces results, so it is not ready.
func CatalogCheck(catalog CategoryCounter) CheckFunc {
	return func(_ context.Context) error {
		if catalog.Count() == 0 {
			return errors.New("no categories loaded")
		}
		return nil
	}
}

// SuppressionCheck fails when the cooldown store cannot be read.
func SuppressionCheck(store RecordCounter) CheckFunc {
	return func(ctx context.Context) error {
		if _, err := store.Count(ctx); err != nil {
			return fmt.Errorf("suppression store: %w", err)
		}
		return nil
	}
}

// AuditCheck fails when the audit sink cannot be queried.
func AuditCheck(sink audit.Sink) CheckFunc {
	return func(ctx context.Context) error {
		if _, err := sink.Count(ctx, &audit.Query{Limit: 1}); err != nil {
			return fmt.Errorf("audit sink: %w", err)
		}
		return nil
	}
}
