package davsync

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// ChangeDetector finds the changes of a collection since a checkpoint.
type ChangeDetector interface {
	DetectChanges(ctx context.Context, previousToken string) (*Result, error)
}

// selectDetector picks the incremental detector when the collection
// supports sync-collection, and ETag reconciliation otherwise.
func selectDetector(ctx context.Context, client Transport, ab Collection, h Handler, log zerolog.Logger) (ChangeDetector, error) {
	ok, err := ab.SupportsSyncCollection(ctx)
	if err != nil {
		return nil, fmt.Errorf("davsync: failed to probe sync-collection support of %v: %w", ab.Path(), err)
	}
	if ok {
		return &incrementalDetector{client: client, ab: ab, log: log}, nil
	}
	return &etagDetector{client: client, ab: ab, handler: h, log: log}, nil
}
