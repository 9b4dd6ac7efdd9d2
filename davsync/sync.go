// Package davsync synchronizes a local copy of a CardDAV address book with
// a server.
//
// A pass detects the changes since a checkpoint token, either through the
// sync-collection REPORT (RFC 6578) or, when the collection doesn't support
// it, by comparing the ETag of every member with the locally cached ones.
// The bodies of changed objects are then fetched and handed to a Handler.
package davsync

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

const (
	// DefaultFetchConcurrency is the number of objects fetched in parallel
	// when WithFetchConcurrency isn't used.
	DefaultFetchConcurrency = 4
	// DefaultMaxSyncRounds is the number of sync-collection requests a
	// Synchronize call issues at most when WithMaxSyncRounds isn't used.
	DefaultMaxSyncRounds = 16
)

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Syncer) {
		s.log = log
	}
}

// WithFetchConcurrency bounds the number of objects fetched in parallel
// when they can't be fetched in a batch.
func WithFetchConcurrency(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.fetchConcurrency = n
		}
	}
}

// WithMaxSyncRounds bounds the number of sync-collection requests issued by
// Synchronize when the server truncates its responses.
func WithMaxSyncRounds(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.maxSyncRounds = n
		}
	}
}

// Syncer synchronizes address books through a Transport.
type Syncer struct {
	client           Transport
	log              zerolog.Logger
	fetchConcurrency int
	maxSyncRounds    int
}

func New(client Transport, opts ...Option) *Syncer {
	s := &Syncer{
		client:           client,
		log:              zerolog.Nop(),
		fetchConcurrency: DefaultFetchConcurrency,
		maxSyncRounds:    DefaultMaxSyncRounds,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synchronize reports the changes of ab since previousToken to h and returns
// the new checkpoint token. An empty previousToken requests a full
// synchronization. props restricts the vCard properties fetched for changed
// objects; nil fetches them all.
//
// Truncated sync-collection responses are followed up to the configured
// number of rounds. If the limit is hit, the intermediate token is returned
// and calling Synchronize again with it resumes where this call stopped.
//
// On error, the returned token is empty and the caller should keep its
// previous checkpoint. Some callbacks may already have been invoked.
func (s *Syncer) Synchronize(ctx context.Context, ab Collection, h Handler, props []string, previousToken string) (string, error) {
	token := previousToken
	for round := 1; ; round++ {
		res, err := s.SynchronizeOnce(ctx, ab, h, props, token)
		if err != nil {
			return "", err
		}

		prev := token
		token = res.Token
		if !res.Truncated {
			return token, nil
		}

		log := s.log.With().Str("collection", ab.Path()).Int("round", round).Logger()
		switch {
		case token == prev:
			log.Warn().Msg("truncated response didn't advance the sync-token, stopping")
			return token, nil
		case round >= s.maxSyncRounds:
			log.Warn().Msg("too many truncated sync-collection responses, stopping")
			return token, nil
		}
		log.Debug().Msg("sync-collection response truncated, requesting more changes")
	}
}

// SynchronizeOnce runs a single synchronization round and returns its
// result. Unlike Synchronize, it doesn't follow truncated responses: callers
// check Result.Truncated and call it again with Result.Token.
func (s *Syncer) SynchronizeOnce(ctx context.Context, ab Collection, h Handler, props []string, previousToken string) (*Result, error) {
	log := s.log.With().Str("collection", ab.Path()).Logger()

	d, err := selectDetector(ctx, s.client, ab, h, log)
	if err != nil {
		return nil, err
	}

	res, err := d.DetectChanges(ctx, previousToken)
	if err != nil {
		return nil, err
	}

	for _, uri := range res.Deleted {
		if err := h.AddressObjectDeleted(ctx, uri); err != nil {
			return nil, fmt.Errorf("davsync: failed to handle deletion of %v: %w", uri, err)
		}
	}

	if len(res.Changed) > 0 {
		f := &fetcher{
			client:      s.client,
			ab:          ab,
			concurrency: s.fetchConcurrency,
			log:         log,
		}
		if err := f.complete(ctx, res, props); err != nil {
			return nil, err
		}

		for _, obj := range res.Changed {
			if err := h.AddressObjectChanged(ctx, obj.URI, obj.ETag, obj.Card); err != nil {
				return nil, fmt.Errorf("davsync: failed to handle change of %v: %w", obj.URI, err)
			}
		}
	}

	log.Debug().
		Str("token", res.Token).
		Int("changed", len(res.Changed)).
		Int("deleted", len(res.Deleted)).
		Bool("truncated", res.Truncated).
		Msg("synchronization round done")
	return res, nil
}
