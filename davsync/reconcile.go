package davsync

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/rs/zerolog"

	"github.com/chucktrukk/carddavclient/carddav"
)

// etagDetector lists every member of the collection and compares their
// ETags with the locally cached ones.
type etagDetector struct {
	client  Transport
	ab      Collection
	handler Handler
	log     zerolog.Logger
}

func (d *etagDetector) DetectChanges(ctx context.Context, previousToken string) (*Result, error) {
	p := d.ab.Path()

	ctag, err := d.ab.CTag(ctx)
	if err != nil {
		return nil, fmt.Errorf("davsync: failed to fetch CTag of %v: %w", p, err)
	}
	if ctag != "" && ctag == previousToken {
		d.log.Debug().Str("ctag", ctag).Msg("collection unchanged")
		return newResult(previousToken), nil
	}

	props, err := d.client.FindProperties(ctx, p, carddav.DepthOne,
		carddav.PropGetCTag, carddav.PropGetETag, carddav.PropSyncToken)
	if err != nil {
		return nil, fmt.Errorf("davsync: failed to list members of %v: %w", p, err)
	}

	known, err := d.handler.ExistingETags(ctx)
	if err != nil {
		return nil, fmt.Errorf("davsync: failed to load local ETags: %w", err)
	}

	return diffETags(p, props, known, d.client.ComparePaths, d.log), nil
}

// diffETags compares a depth-1 listing of the collection with the known
// ETags. known is left untouched.
func diffETags(collectionPath string, props []carddav.PropResponse, known map[string]string, samePath func(a, b string) bool, log zerolog.Logger) *Result {
	unseen := maps.Clone(known)
	if unseen == nil {
		unseen = make(map[string]string)
	}

	res := newResult("")
	for _, pr := range props {
		if samePath(pr.Path, collectionPath) {
			res.Token = collectionToken(pr, log)
			continue
		}

		etag := pr.Props[carddav.PropGetETag]
		if etag == "" {
			log.Warn().
				Str("uri", pr.Path).
				Msg("member has no ETag, skipping")
			delete(unseen, pr.Path)
			continue
		}

		if localETag, ok := known[pr.Path]; !ok || localETag != etag {
			res.addChanged(pr.Path, etag)
		}
		delete(unseen, pr.Path)
	}

	for _, uri := range slices.Sorted(maps.Keys(unseen)) {
		res.addDeleted(uri)
	}
	return res
}

func collectionToken(pr carddav.PropResponse, log zerolog.Logger) string {
	if ctag := pr.Props[carddav.PropGetCTag]; ctag != "" {
		return ctag
	}
	if token := pr.Props[carddav.PropSyncToken]; token != "" {
		return token
	}
	log.Info().Msg("server provides neither a CTag nor a sync-token")
	return ""
}
