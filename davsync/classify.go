package davsync

import (
	"net/http"

	"github.com/chucktrukk/carddavclient/carddav"
)

type entryKind int

const (
	// entryIgnored is the collection echoing itself without a
	// truncation status.
	entryIgnored entryKind = iota
	// entryTruncated is the collection reported with 507 Insufficient
	// Storage: the server has more changes to send.
	entryTruncated
	entryDeleted
	entryChanged
	entryUnexpected
)

func (k entryKind) String() string {
	switch k {
	case entryIgnored:
		return "ignored"
	case entryTruncated:
		return "truncated"
	case entryDeleted:
		return "deleted"
	case entryChanged:
		return "changed"
	case entryUnexpected:
		return "unexpected"
	}
	return "unknown"
}

// entry is a multistatus response entry once classified.
type entry struct {
	kind   entryKind
	uri    string
	status int
	etag   string
	body   []byte
}

// classify interprets a multistatus response entry of a sync-collection or
// addressbook-multiget REPORT issued against the collection collectionPath.
func classify(collectionPath string, resp carddav.Response, samePath func(a, b string) bool) entry {
	e := entry{kind: entryUnexpected, uri: resp.Path, status: resp.Status}
	if resp.Path == "" {
		return e
	}

	if samePath(resp.Path, collectionPath) {
		if resp.Status == http.StatusInsufficientStorage {
			e.kind = entryTruncated
		} else {
			e.kind = entryIgnored
		}
		return e
	}

	if resp.Status == http.StatusNotFound {
		e.kind = entryDeleted
		return e
	}
	if resp.Status != 0 && resp.Status/100 != 2 {
		return e
	}

	for _, ps := range resp.PropStats {
		if ps.Status != http.StatusOK {
			continue
		}
		e.kind = entryChanged
		if ps.ETag != "" {
			e.etag = ps.ETag
		}
		if ps.AddressData != nil {
			e.body = ps.AddressData
		}
	}
	return e
}
