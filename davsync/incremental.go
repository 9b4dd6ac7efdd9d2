package davsync

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// incrementalDetector relies on the sync-collection REPORT (RFC 6578).
type incrementalDetector struct {
	client Transport
	ab     Collection
	log    zerolog.Logger
}

func (d *incrementalDetector) DetectChanges(ctx context.Context, previousToken string) (*Result, error) {
	p := d.ab.Path()

	resp, err := d.client.SyncCollection(ctx, p, previousToken)
	if err != nil {
		return nil, fmt.Errorf("davsync: sync-collection of %v failed: %w", p, err)
	}
	if resp.SyncToken == "" {
		return nil, fmt.Errorf("%w: sync-collection response of %v has no sync-token", ErrProtocolViolation, p)
	}

	res := newResult(resp.SyncToken)
	for _, r := range resp.Responses {
		e := classify(p, r, d.client.ComparePaths)
		switch e.kind {
		case entryIgnored:
		case entryTruncated:
			res.Truncated = true
		case entryDeleted:
			res.addDeleted(e.uri)
		case entryChanged:
			res.addChanged(e.uri, e.etag)
		default:
			d.log.Warn().
				Str("uri", e.uri).
				Int("status", e.status).
				Msg("unexpected sync-collection response entry, skipping")
		}
	}

	return res, nil
}
