package davsync

import (
	"context"

	"github.com/emersion/go-vcard"
)

//go:generate mockgen -source=handler.go -destination=../internal/mock/handler_mock.go -package=mock

// Handler receives the changes found by a synchronization pass and exposes
// the locally cached state of the address book.
//
// Deletions are always reported before changes. Returning an error aborts
// the pass.
type Handler interface {
	// AddressObjectChanged is called once per created or modified object.
	// card is nil if the object body couldn't be parsed.
	AddressObjectChanged(ctx context.Context, uri, etag string, card vcard.Card) error
	// AddressObjectDeleted is called once per object removed from the
	// server.
	AddressObjectDeleted(ctx context.Context, uri string) error
	// ExistingETags returns the ETag of every locally cached object, keyed
	// by URI. It's only called when the collection must be fully
	// reconciled. The returned map isn't modified.
	ExistingETags(ctx context.Context) (map[string]string, error)
}
