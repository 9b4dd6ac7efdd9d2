package davsync

import (
	"bytes"
	"context"
	"fmt"

	"github.com/emersion/go-vcard"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// fetcher downloads the bodies of changed objects.
type fetcher struct {
	client      Transport
	ab          Collection
	concurrency int
	log         zerolog.Logger
}

// complete fills the Body and Card of every changed object of res. Objects
// are first requested in a single addressbook-multiget REPORT if the
// collection supports it; the ones still missing are then fetched one by
// one. Parse failures are logged and leave Card nil.
func (f *fetcher) complete(ctx context.Context, res *Result, props []string) error {
	if len(res.Changed) == 0 {
		return nil
	}

	ok, err := f.ab.SupportsMultiGet(ctx)
	if err != nil {
		return fmt.Errorf("davsync: failed to probe addressbook-multiget support of %v: %w", f.ab.Path(), err)
	}
	if ok {
		if err := f.multiGet(ctx, res, props); err != nil {
			return err
		}
	}

	if err := f.getMissing(ctx, res); err != nil {
		return err
	}

	for _, obj := range res.Changed {
		obj.Card = f.parse(obj)
	}
	return nil
}

func (f *fetcher) multiGet(ctx context.Context, res *Result, props []string) error {
	p := f.ab.Path()

	resps, err := f.client.MultiGet(ctx, p, res.changedURIs(), props)
	if err != nil {
		return fmt.Errorf("davsync: addressbook-multiget on %v failed: %w", p, err)
	}

	for _, r := range resps {
		e := classify(p, r, f.client.ComparePaths)
		if e.kind != entryChanged || e.body == nil {
			f.log.Warn().
				Str("uri", e.uri).
				Int("status", e.status).
				Stringer("kind", e.kind).
				Msg("unexpected addressbook-multiget response entry, skipping")
			continue
		}

		obj := f.lookup(res, e.uri)
		if obj == nil {
			f.log.Warn().Str("uri", e.uri).Msg("addressbook-multiget returned an object that wasn't requested")
			continue
		}
		obj.Body = e.body
		if e.etag != "" {
			obj.ETag = e.etag
		}
	}
	return nil
}

func (f *fetcher) lookup(res *Result, uri string) *ChangedObject {
	if obj := res.findChanged(uri); obj != nil {
		return obj
	}
	for _, obj := range res.Changed {
		if f.client.ComparePaths(obj.URI, uri) {
			return obj
		}
	}
	return nil
}

// getMissing fetches the changed objects that have no body yet. Each
// goroutine only writes to its own object.
func (f *fetcher) getMissing(ctx context.Context, res *Result) error {
	missing := res.missingBodies()
	if len(missing) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for _, obj := range missing {
		g.Go(func() error {
			ao, err := f.client.GetAddressObject(ctx, obj.URI)
			if err != nil {
				return fmt.Errorf("davsync: failed to fetch %v: %w", obj.URI, err)
			}
			obj.Body = ao.Data
			if obj.Body == nil {
				obj.Body = []byte{}
			}
			if ao.ETag != "" {
				obj.ETag = ao.ETag
			}
			return nil
		})
	}
	return g.Wait()
}

func (f *fetcher) parse(obj *ChangedObject) vcard.Card {
	if len(obj.Body) == 0 {
		f.log.Warn().Str("uri", obj.URI).Msg("address object has an empty body")
		return nil
	}

	card, err := vcard.NewDecoder(bytes.NewReader(obj.Body)).Decode()
	if err != nil {
		f.log.Warn().Err(err).Str("uri", obj.URI).Msg("failed to parse address object")
		return nil
	}
	return card
}
