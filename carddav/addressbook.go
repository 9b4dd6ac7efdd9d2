package carddav

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/chucktrukk/carddavclient/internal"
)

// Collection is a handle on an address book collection of a server. It
// caches the supported-report-set of the collection; other properties are
// fetched on every call.
type Collection struct {
	c    *Client
	path string

	mu      sync.Mutex
	reports *internal.SupportedReportSet
}

// Path returns the path of the collection on the server.
func (ab *Collection) Path() string {
	return ab.path
}

// Info fetches the address book metadata.
func (ab *Collection) Info(ctx context.Context) (*AddressBook, error) {
	propfind := internal.NewPropNamePropFind(
		internal.DisplayNameName,
		addressBookDescriptionName,
		maxResourceSizeName,
	)
	resp, err := ab.c.ic.PropFindFlat(ctx, ab.path, propfind)
	if err != nil {
		return nil, err
	}
	return decodeAddressBook(resp)
}

// CTag fetches the current collection tag. An empty string is returned if the
// server doesn't expose one.
func (ab *Collection) CTag(ctx context.Context) (string, error) {
	propfind := internal.NewPropNamePropFind(internal.GetCTagName)
	resp, err := ab.c.ic.PropFindFlat(ctx, ab.path, propfind)
	if err != nil {
		return "", err
	}

	raw, code, ok := resp.Prop(internal.GetCTagName)
	if !ok || code != http.StatusOK {
		return "", nil
	}
	return raw.Text(), nil
}

func (ab *Collection) supportedReports(ctx context.Context) (*internal.SupportedReportSet, error) {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	if ab.reports != nil {
		return ab.reports, nil
	}

	propfind := internal.NewPropNamePropFind(internal.SupportedReportSetName)
	resp, err := ab.c.ic.PropFindFlat(ctx, ab.path, propfind)
	if err != nil {
		return nil, fmt.Errorf("carddav: failed to fetch supported-report-set: %w", err)
	}

	var reports internal.SupportedReportSet
	if err := resp.DecodeProp(internal.SupportedReportSetName, &reports); err != nil && !internal.IsNotFound(err) {
		return nil, fmt.Errorf("carddav: failed to decode supported-report-set: %w", err)
	}
	ab.reports = &reports
	return ab.reports, nil
}

// SupportsSyncCollection reports whether the collection supports the
// sync-collection REPORT defined in RFC 6578.
func (ab *Collection) SupportsSyncCollection(ctx context.Context) (bool, error) {
	reports, err := ab.supportedReports(ctx)
	if err != nil {
		return false, err
	}
	return reports.Supports(internal.SyncCollectionName), nil
}

// SupportsMultiGet reports whether the collection supports the
// addressbook-multiget REPORT.
func (ab *Collection) SupportsMultiGet(ctx context.Context) (bool, error) {
	reports, err := ab.supportedReports(ctx)
	if err != nil {
		return false, err
	}
	return reports.Supports(addressBookMultigetName), nil
}

// Query runs an addressbook-query REPORT against the collection.
func (ab *Collection) Query(ctx context.Context, query *AddressBookQuery) ([]AddressObject, error) {
	return ab.c.QueryAddressBook(ctx, ab.path, query)
}
