// Package webdav provides a WebDAV client.
//
// WebDAV is defined in RFC 4918.
package webdav

import (
	"fmt"

	"github.com/chucktrukk/carddavclient/internal"
)

// HTTPError is an error carrying an HTTP status code.
type HTTPError = internal.HTTPError

// ConditionalMatch is the value of an If-Match or If-None-Match header: a
// quoted ETag or the "*" wildcard.
type ConditionalMatch string

func (val ConditionalMatch) IsSet() bool {
	return val != ""
}

// MatchIf returns an If-Match header value for the ETag.
func MatchIf(etag string) ConditionalMatch {
	return ConditionalMatch(fmt.Sprintf("%q", etag))
}
