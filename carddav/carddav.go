// Package carddav provides a CardDAV client.
//
// CardDAV is defined in RFC 6352.
package carddav

import (
	"bytes"
	"encoding/xml"
	"errors"
	"time"

	"github.com/emersion/go-vcard"

	"github.com/chucktrukk/carddavclient/internal"
)

var (
	ErrNotFound           = errors.New("carddav: not found")
	ErrPreconditionFailed = errors.New("carddav: precondition failed")
	// ErrSyncTokenInvalid is returned when the server refuses a sync-token,
	// either because it expired or because it was never issued. The caller
	// should drop its checkpoint and synchronize from scratch.
	ErrSyncTokenInvalid = errors.New("carddav: invalid sync token")
)

// Depth indicates whether a request applies to the resource's members.
type Depth = internal.Depth

const (
	DepthZero = internal.DepthZero
	DepthOne  = internal.DepthOne
)

type AddressBook struct {
	Path            string
	Name            string
	Description     string
	MaxResourceSize int64
}

type AddressDataRequest struct {
	Props   []string
	AllProp bool
}

type PropFilter struct {
	Name string
	Test FilterTest // defaults to FilterAnyOf

	// if IsNotDefined is set, TextMatches and Params need to be unset
	IsNotDefined bool
	TextMatches  []TextMatch
	Params       []ParamFilter
}

type ParamFilter struct {
	Name string

	// if IsNotDefined is set, TextMatch needs to be unset
	IsNotDefined bool
	TextMatch    *TextMatch
}

type TextMatch struct {
	Text            string
	NegateCondition bool
	MatchType       MatchType // defaults to MatchContains
}

type FilterTest string

const (
	FilterAnyOf FilterTest = "anyof"
	FilterAllOf FilterTest = "allof"
)

type MatchType string

const (
	MatchEquals     MatchType = "equals"
	MatchContains   MatchType = "contains"
	MatchStartsWith MatchType = "starts-with"
	MatchEndsWith   MatchType = "ends-with"
)

type AddressBookQuery struct {
	DataRequest AddressDataRequest

	PropFilters []PropFilter
	FilterTest  FilterTest // defaults to FilterAnyOf

	Limit int // <= 0 means unlimited
}

type AddressObject struct {
	Path          string
	ModTime       time.Time
	ContentLength int64
	ETag          string
	Data          []byte
	Card          vcard.Card
}

// Decode parses the raw vCard data of the object.
func (ao *AddressObject) Decode() (vcard.Card, error) {
	if ao.Card != nil {
		return ao.Card, nil
	}
	return vcard.NewDecoder(bytes.NewReader(ao.Data)).Decode()
}

// PropStat is a property result block of a multistatus response entry. Only
// the properties the sync engine understands are kept.
type PropStat struct {
	Status      int
	ETag        string
	AddressData []byte
}

// Response is a multistatus response entry. Status is zero when the entry
// only carries property result blocks.
type Response struct {
	Path      string
	Status    int
	PropStats []PropStat
}

// SyncResponse is the result of a sync-collection REPORT.
type SyncResponse struct {
	SyncToken string
	Responses []Response
}

// PropResponse holds the text value of every property that was returned with
// a 200 status for a resource.
type PropResponse struct {
	Path  string
	Props map[xml.Name]string
}

// Property names understood by FindProperties.
var (
	PropGetETag     = internal.GetETagName
	PropGetCTag     = internal.GetCTagName
	PropSyncToken   = internal.SyncTokenName
	PropDisplayName = internal.DisplayNameName
)
