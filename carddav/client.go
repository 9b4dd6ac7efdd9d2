package carddav

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/emersion/go-vcard"
	"github.com/google/uuid"

	"github.com/chucktrukk/carddavclient/internal"
	"github.com/chucktrukk/carddavclient/webdav"
)

// DiscoverContextURL performs a DNS-based CardDAV service discovery as
// described in RFC 6352 section 11. It returns the URL to the CardDAV server.
func DiscoverContextURL(ctx context.Context, domain string) (string, error) {
	return internal.DiscoverContextURL(ctx, "carddav", domain)
}

// Client provides access to a remote CardDAV server.
type Client struct {
	*webdav.Client

	ic *internal.Client
}

func NewClient(c webdav.HTTPClient, endpoint string) (*Client, error) {
	wc, err := webdav.NewClient(c, endpoint)
	if err != nil {
		return nil, err
	}
	ic, err := internal.NewClient(c, endpoint)
	if err != nil {
		return nil, err
	}
	return &Client{wc, ic}, nil
}

func (c *Client) FindAddressBookHomeSet(ctx context.Context, principal string) (string, error) {
	propfind := internal.NewPropNamePropFind(addressBookHomeSetName)
	resp, err := c.ic.PropFindFlat(ctx, principal, propfind)
	if err != nil {
		return "", err
	}

	var prop addressbookHomeSet
	if err := resp.DecodeProp(addressBookHomeSetName, &prop); err != nil {
		return "", err
	}

	return prop.Href.Path, nil
}

func decodeAddressBook(resp *internal.Response) (*AddressBook, error) {
	p, err := resp.Path()
	if err != nil {
		return nil, err
	}

	var desc addressbookDescription
	if err := resp.DecodeProp(addressBookDescriptionName, &desc); err != nil && !internal.IsNotFound(err) {
		return nil, err
	}

	var dispName internal.DisplayName
	if err := resp.DecodeProp(internal.DisplayNameName, &dispName); err != nil && !internal.IsNotFound(err) {
		return nil, err
	}

	var maxResSize maxResourceSize
	if err := resp.DecodeProp(maxResourceSizeName, &maxResSize); err != nil && !internal.IsNotFound(err) {
		return nil, err
	}
	if maxResSize.Size < 0 {
		return nil, fmt.Errorf("carddav: max-resource-size must be a positive integer")
	}

	return &AddressBook{
		Path:            p,
		Name:            dispName.Name,
		Description:     desc.Description,
		MaxResourceSize: maxResSize.Size,
	}, nil
}

func (c *Client) FindAddressBooks(ctx context.Context, addressBookHomeSet string) ([]AddressBook, error) {
	propfind := internal.NewPropNamePropFind(
		internal.ResourceTypeName,
		internal.DisplayNameName,
		addressBookDescriptionName,
		maxResourceSizeName,
	)
	ms, err := c.ic.PropFind(ctx, addressBookHomeSet, internal.DepthOne, propfind)
	if err != nil {
		return nil, err
	}

	l := make([]AddressBook, 0, len(ms.Responses))
	errs := make([]error, 0, len(ms.Responses))
	for i := range ms.Responses {
		resp := &ms.Responses[i]

		var resType internal.ResourceType
		if err := resp.DecodeProp(internal.ResourceTypeName, &resType); err != nil {
			errs = append(errs, err)
			continue
		}
		if !resType.Is(addressBookName) {
			continue
		}

		ab, err := decodeAddressBook(resp)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		l = append(l, *ab)
	}

	return l, errors.Join(errs...)
}

// AbsoluteURL returns the absolute URL of a path on the server.
func (c *Client) AbsoluteURL(p string) string {
	return c.ic.ResolveHref(p).String()
}

// ComparePaths reports whether two hrefs designate the same resource. Only
// the path components are compared, trailing slashes are ignored.
func (c *Client) ComparePaths(a, b string) bool {
	return c.resolvePath(a) == c.resolvePath(b)
}

func (c *Client) resolvePath(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	p := u.Path
	if !u.IsAbs() && u.Host == "" {
		p = c.ic.ResolveHref(p).Path
	}
	if p != "/" {
		p = strings.TrimRight(p, "/")
	}
	return p
}

func encodeAddressDataReq(req *AddressDataRequest) *addressDataReq {
	var addrDataReq addressDataReq
	if req == nil {
		return &addrDataReq
	}
	if req.AllProp {
		addrDataReq.Allprop = &struct{}{}
	}
	for _, name := range req.Props {
		addrDataReq.Props = append(addrDataReq.Props, prop{Name: name})
	}
	return &addrDataReq
}

func encodeAddressDataProp(req *AddressDataRequest) (*internal.Prop, error) {
	getETagReq := internal.NewRawXMLElement(internal.GetETagName, nil, nil)
	return internal.EncodeProp(getETagReq, encodeAddressDataReq(req))
}

func decodeResponse(resp *internal.Response) Response {
	r := Response{Status: resp.StatusCode()}
	if p, err := resp.Path(); err == nil {
		r.Path = p
	}

	for i := range resp.PropStats {
		ps := &resp.PropStats[i]
		decoded := PropStat{Status: ps.Status.Code}

		if raw := ps.Prop.Get(internal.GetETagName); raw != nil {
			decoded.ETag = internal.ParseETag(raw.Text())
		}
		if raw := ps.Prop.Get(addressDataName); raw != nil {
			var addrData addressDataResp
			if err := raw.Decode(&addrData); err == nil {
				decoded.AddressData = addrData.Data
			}
		}

		r.PropStats = append(r.PropStats, decoded)
	}
	return r
}

func decodeResponses(ms *internal.MultiStatus) []Response {
	l := make([]Response, 0, len(ms.Responses))
	for i := range ms.Responses {
		l = append(l, decodeResponse(&ms.Responses[i]))
	}
	return l
}

func decodeAddressList(ms *internal.MultiStatus) ([]AddressObject, error) {
	addrs := make([]AddressObject, 0, len(ms.Responses))
	errs := make([]error, 0, len(ms.Responses))
	for _, resp := range decodeResponses(ms) {
		if resp.Path == "" || resp.Status/100 > 2 {
			continue
		}
		for _, ps := range resp.PropStats {
			if ps.Status != http.StatusOK || ps.AddressData == nil {
				continue
			}

			card, err := vcard.NewDecoder(bytes.NewReader(ps.AddressData)).Decode()
			if err != nil {
				errs = append(errs, fmt.Errorf("carddav: failed to decode %v: %w", resp.Path, err))
				continue
			}

			addrs = append(addrs, AddressObject{
				Path:          resp.Path,
				ETag:          ps.ETag,
				ContentLength: int64(len(ps.AddressData)),
				Data:          ps.AddressData,
				Card:          card,
			})
		}
	}

	return addrs, errors.Join(errs...)
}

func encodePropFilter(pf *PropFilter) *propFilter {
	encoded := propFilter{Name: pf.Name, Test: pf.Test}
	if pf.IsNotDefined {
		encoded.IsNotDefined = &struct{}{}
		return &encoded
	}
	for _, tm := range pf.TextMatches {
		encoded.TextMatches = append(encoded.TextMatches, *encodeTextMatch(&tm))
	}
	for _, param := range pf.Params {
		encodedParam := paramFilter{Name: param.Name}
		if param.IsNotDefined {
			encodedParam.IsNotDefined = &struct{}{}
		} else if param.TextMatch != nil {
			encodedParam.TextMatch = encodeTextMatch(param.TextMatch)
		}
		encoded.Params = append(encoded.Params, encodedParam)
	}
	return &encoded
}

func encodeTextMatch(tm *TextMatch) *textMatch {
	return &textMatch{
		Text:            tm.Text,
		NegateCondition: negateCondition(tm.NegateCondition),
		MatchType:       tm.MatchType,
	}
}

// QueryAddressBook runs an addressbook-query REPORT. The results are filtered
// again locally, since some servers ignore parts of the filter or the limit.
func (c *Client) QueryAddressBook(ctx context.Context, addressBook string, query *AddressBookQuery) ([]AddressObject, error) {
	if query == nil {
		query = &AddressBookQuery{}
	}

	propReq, err := encodeAddressDataProp(&query.DataRequest)
	if err != nil {
		return nil, err
	}

	addressbookQuery := addressbookQuery{Prop: propReq}
	addressbookQuery.Filter.Test = query.FilterTest
	for _, pf := range query.PropFilters {
		addressbookQuery.Filter.Props = append(addressbookQuery.Filter.Props, *encodePropFilter(&pf))
	}
	if query.Limit > 0 {
		addressbookQuery.Limit = &limit{NResults: uint(query.Limit)}
	}

	req, err := c.ic.NewXMLRequest(ctx, "REPORT", addressBook, &addressbookQuery)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Depth", "1")

	ms, err := c.ic.DoMultiStatus(req)
	if err != nil {
		return nil, err
	}

	addrs, err := decodeAddressList(ms)
	if err != nil {
		return nil, err
	}
	if len(query.PropFilters) == 0 && query.Limit <= 0 {
		return addrs, nil
	}
	return Filter(query, addrs)
}

// MultiGet runs an addressbook-multiget REPORT for the given member paths.
// Each entry carries its ETag and address data, or an error status.
func (c *Client) MultiGet(ctx context.Context, addressBook string, paths []string, props []string) ([]Response, error) {
	propReq, err := encodeAddressDataProp(&AddressDataRequest{Props: props})
	if err != nil {
		return nil, err
	}

	multiget := addressbookMultiget{Prop: propReq}
	if len(paths) == 0 {
		multiget.Hrefs = []internal.Href{{Path: addressBook}}
	} else {
		multiget.Hrefs = make([]internal.Href, len(paths))
		for i, p := range paths {
			multiget.Hrefs[i] = internal.Href{Path: p}
		}
	}

	req, err := c.ic.NewXMLRequest(ctx, "REPORT", addressBook, &multiget)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Depth", "1")

	ms, err := c.ic.DoMultiStatus(req)
	if err != nil {
		return nil, err
	}

	return decodeResponses(ms), nil
}

// SyncCollection runs a sync-collection REPORT (RFC 6578) with the previous
// sync-token. An empty token requests an initial synchronization.
func (c *Client) SyncCollection(ctx context.Context, addressBook, syncToken string) (*SyncResponse, error) {
	prop := internal.NewPropNames(internal.GetETagName)

	ms, err := c.ic.SyncCollection(ctx, addressBook, syncToken, internal.DepthOne, nil, prop)
	if err != nil {
		if isInvalidSyncToken(err) {
			return nil, fmt.Errorf("%w: %w", ErrSyncTokenInvalid, err)
		}
		return nil, err
	}

	return &SyncResponse{
		SyncToken: strings.TrimSpace(ms.SyncToken),
		Responses: decodeResponses(ms),
	}, nil
}

func isInvalidSyncToken(err error) bool {
	var httpErr *internal.HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	if httpErr.Code == http.StatusGone {
		return true
	}
	var davErr *internal.Error
	return errors.As(err, &davErr) && davErr.Has(internal.ValidSyncTokenName)
}

// FindProperties runs a PROPFIND request for the given properties. ETag
// values are unquoted.
func (c *Client) FindProperties(ctx context.Context, p string, depth Depth, names ...xml.Name) ([]PropResponse, error) {
	ms, err := c.ic.PropFind(ctx, p, depth, internal.NewPropNamePropFind(names...))
	if err != nil {
		return nil, err
	}

	l := make([]PropResponse, 0, len(ms.Responses))
	for i := range ms.Responses {
		resp := &ms.Responses[i]
		pr := PropResponse{Props: make(map[xml.Name]string)}
		if p, err := resp.Path(); err == nil {
			pr.Path = p
		}
		for j := range resp.PropStats {
			ps := &resp.PropStats[j]
			if ps.Status.Code != http.StatusOK {
				continue
			}
			for k := range ps.Prop.Raw {
				raw := &ps.Prop.Raw[k]
				name, ok := raw.XMLName()
				if !ok {
					continue
				}
				v := raw.Text()
				if name == internal.GetETagName {
					v = internal.ParseETag(v)
				}
				pr.Props[name] = v
			}
		}
		l = append(l, pr)
	}
	return l, nil
}

func populateAddressObject(ao *AddressObject, h http.Header) error {
	if loc := h.Get("Location"); loc != "" {
		u, err := url.Parse(loc)
		if err != nil {
			return err
		}
		ao.Path = u.Path
	}
	if etag := h.Get("ETag"); etag != "" {
		ao.ETag = internal.ParseETag(etag)
	}
	if contentLength := h.Get("Content-Length"); contentLength != "" {
		n, err := strconv.ParseInt(contentLength, 10, 64)
		if err != nil {
			return err
		}
		ao.ContentLength = n
	}
	if lastModified := h.Get("Last-Modified"); lastModified != "" {
		t, err := http.ParseTime(lastModified)
		if err != nil {
			return err
		}
		ao.ModTime = t
	}

	return nil
}

// GetAddressObject fetches a single address object. The raw vCard is returned
// in Data; Card is left nil, see AddressObject.Decode.
func (c *Client) GetAddressObject(ctx context.Context, p string) (*AddressObject, error) {
	req, err := c.ic.NewRequest(ctx, http.MethodGet, p, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/vcard")

	resp, err := c.ic.Do(req)
	if err != nil {
		if internal.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return nil, err
		}
		if !strings.EqualFold(mediaType, vcard.MIMEType) && !strings.EqualFold(mediaType, "text/x-vcard") {
			return nil, fmt.Errorf("carddav: expected Content-Type %q, got %q", vcard.MIMEType, mediaType)
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	ao := &AddressObject{
		Path: req.URL.Path,
		Data: data,
	}
	if err := populateAddressObject(ao, resp.Header); err != nil {
		return nil, err
	}
	return ao, nil
}

func (c *Client) putAddressObject(ctx context.Context, p string, card vcard.Card, ifMatch, ifNoneMatch webdav.ConditionalMatch) (*AddressObject, error) {
	var buf bytes.Buffer
	if err := vcard.NewEncoder(&buf).Encode(card); err != nil {
		return nil, err
	}
	data := buf.Bytes()

	req, err := c.ic.NewRequest(ctx, http.MethodPut, p, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", vcard.MIMEType)
	if ifMatch.IsSet() {
		req.Header.Set("If-Match", string(ifMatch))
	}
	if ifNoneMatch.IsSet() {
		req.Header.Set("If-None-Match", string(ifNoneMatch))
	}

	resp, err := c.ic.Do(req)
	if err != nil {
		if internal.HTTPErrorCode(err) == http.StatusPreconditionFailed {
			return nil, fmt.Errorf("%w: %w", ErrPreconditionFailed, err)
		}
		return nil, err
	}
	resp.Body.Close()

	ao := &AddressObject{Path: c.ic.ResolveHref(p).Path, Data: data, Card: card}
	if err := populateAddressObject(ao, resp.Header); err != nil {
		return nil, err
	}
	ao.ContentLength = int64(len(data))
	return ao, nil
}

// CreateAddressObject stores a new card in the address book. The resource
// name is derived from the card UID; a UID is generated if the card has none.
// The request fails with ErrPreconditionFailed if the resource already exists.
func (c *Client) CreateAddressObject(ctx context.Context, addressBook string, card vcard.Card) (*AddressObject, error) {
	uid := card.Value(vcard.FieldUID)
	if uid == "" {
		uid = uuid.NewString()
		card.SetValue(vcard.FieldUID, uid)
	}
	if card.Value(vcard.FieldVersion) == "" {
		card.SetValue(vcard.FieldVersion, "3.0")
	}

	p := path.Join(c.ic.ResolveHref(addressBook).Path, uid+".vcf")
	return c.putAddressObject(ctx, p, card, "", "*")
}

// UpdateAddressObject overwrites a card. If etag is non-empty, the update is
// conditional and fails with ErrPreconditionFailed when the card changed on
// the server in the meantime.
func (c *Client) UpdateAddressObject(ctx context.Context, p string, card vcard.Card, etag string) (*AddressObject, error) {
	var ifMatch webdav.ConditionalMatch
	if etag != "" {
		ifMatch = webdav.MatchIf(etag)
	}
	return c.putAddressObject(ctx, p, card, ifMatch, "")
}

// DeleteAddressObject removes a card. Deleting a card that doesn't exist
// succeeds.
func (c *Client) DeleteAddressObject(ctx context.Context, p string, etag string) error {
	req, err := c.ic.NewRequest(ctx, http.MethodDelete, p, nil)
	if err != nil {
		return err
	}
	if etag != "" {
		req.Header.Set("If-Match", string(webdav.MatchIf(etag)))
	}

	resp, err := c.ic.Do(req)
	if err != nil {
		switch internal.HTTPErrorCode(err) {
		case http.StatusNotFound:
			return nil
		case http.StatusPreconditionFailed:
			return fmt.Errorf("%w: %w", ErrPreconditionFailed, err)
		}
		return err
	}
	resp.Body.Close()
	return nil
}

// Collection returns a handle on the address book collection at path p.
func (c *Client) Collection(p string) *Collection {
	return &Collection{c: c, path: c.ic.ResolveHref(p).Path}
}
