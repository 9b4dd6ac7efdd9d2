package davsync

import (
	"context"
	"encoding/xml"

	"github.com/chucktrukk/carddavclient/carddav"
)

// Transport issues the WebDAV requests needed by a synchronization pass.
// It's implemented by *carddav.Client.
type Transport interface {
	SyncCollection(ctx context.Context, path, syncToken string) (*carddav.SyncResponse, error)
	FindProperties(ctx context.Context, path string, depth carddav.Depth, names ...xml.Name) ([]carddav.PropResponse, error)
	MultiGet(ctx context.Context, path string, paths, props []string) ([]carddav.Response, error)
	GetAddressObject(ctx context.Context, path string) (*carddav.AddressObject, error)
	ComparePaths(a, b string) bool
}

// Collection is the address book being synchronized. It's implemented by
// *carddav.Collection.
type Collection interface {
	Path() string
	CTag(ctx context.Context) (string, error)
	SupportsSyncCollection(ctx context.Context) (bool, error)
	SupportsMultiGet(ctx context.Context) (bool, error)
}

var (
	_ Transport  = (*carddav.Client)(nil)
	_ Collection = (*carddav.Collection)(nil)
)
