package internal

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const Namespace = "DAV:"

// CalendarServerNamespace hosts the non-standard getctag property.
const CalendarServerNamespace = "http://calendarserver.org/ns/"

var (
	ResourceTypeName         = xml.Name{Space: Namespace, Local: "resourcetype"}
	DisplayNameName          = xml.Name{Space: Namespace, Local: "displayname"}
	GetETagName              = xml.Name{Space: Namespace, Local: "getetag"}
	SyncTokenName            = xml.Name{Space: Namespace, Local: "sync-token"}
	SupportedReportSetName   = xml.Name{Space: Namespace, Local: "supported-report-set"}
	CurrentUserPrincipalName = xml.Name{Space: Namespace, Local: "current-user-principal"}
	GetCTagName              = xml.Name{Space: CalendarServerNamespace, Local: "getctag"}

	CollectionName     = xml.Name{Space: Namespace, Local: "collection"}
	SyncCollectionName = xml.Name{Space: Namespace, Local: "sync-collection"}
	ValidSyncTokenName = xml.Name{Space: Namespace, Local: "valid-sync-token"}
)

// https://tools.ietf.org/html/rfc4918#section-14.16
type MultiStatus struct {
	XMLName             xml.Name   `xml:"DAV: multistatus"`
	Responses           []Response `xml:"DAV: response"`
	ResponseDescription string     `xml:"DAV: responsedescription,omitempty"`
	SyncToken           string     `xml:"DAV: sync-token,omitempty"`
}

// Get returns the response whose href matches p. Trailing slashes are
// ignored.
func (ms *MultiStatus) Get(p string) (*Response, error) {
	want := strings.TrimSuffix(p, "/")
	for i := range ms.Responses {
		resp := &ms.Responses[i]
		for _, h := range resp.Hrefs {
			if strings.TrimSuffix(h.Path, "/") == want {
				return resp, resp.Err()
			}
		}
	}
	return nil, HTTPErrorf(http.StatusNotFound, "webdav: missing response for path %q", p)
}

// https://tools.ietf.org/html/rfc4918#section-14.24
type Response struct {
	XMLName             xml.Name   `xml:"DAV: response"`
	Hrefs               []Href     `xml:"DAV: href"`
	PropStats           []PropStat `xml:"DAV: propstat,omitempty"`
	ResponseDescription string     `xml:"DAV: responsedescription,omitempty"`
	Status              *Status    `xml:"DAV: status,omitempty"`
	Error               *Error     `xml:"DAV: error,omitempty"`
}

// Path returns the path of the single href carried by the response.
func (resp *Response) Path() (string, error) {
	if len(resp.Hrefs) != 1 {
		return "", fmt.Errorf("webdav: malformed response: expected exactly one href element, got %v", len(resp.Hrefs))
	}
	return resp.Hrefs[0].Path, nil
}

// Err returns an error if the response-level status is not 2xx.
func (resp *Response) Err() error {
	if resp.Status == nil || resp.Status.Code/100 == 2 {
		return nil
	}
	var err error
	if resp.Error != nil {
		err = resp.Error
	} else if resp.ResponseDescription != "" {
		err = fmt.Errorf("%v", resp.ResponseDescription)
	}
	return &HTTPError{Code: resp.Status.Code, Err: err}
}

// StatusCode returns the response-level status code, or zero if the response
// only carries propstat elements.
func (resp *Response) StatusCode() int {
	if resp.Status == nil {
		return 0
	}
	return resp.Status.Code
}

// Prop looks up a property across all propstat elements. It returns the raw
// value and the status code of the propstat it was found in.
func (resp *Response) Prop(name xml.Name) (*RawXMLValue, int, bool) {
	for i := range resp.PropStats {
		ps := &resp.PropStats[i]
		if raw := ps.Prop.Get(name); raw != nil {
			return raw, ps.Status.Code, true
		}
	}
	return nil, 0, false
}

// DecodeProp decodes the property name into v. It returns a 404 *HTTPError if
// the property is missing, or the propstat error status if it isn't 200.
func (resp *Response) DecodeProp(name xml.Name, v interface{}) error {
	raw, code, ok := resp.Prop(name)
	if !ok {
		return HTTPErrorf(http.StatusNotFound, "webdav: missing prop %v %v", name.Space, name.Local)
	}
	if code != http.StatusOK {
		return HTTPErrorf(code, "webdav: failed to fetch prop %v %v", name.Space, name.Local)
	}
	return raw.Decode(v)
}

// https://tools.ietf.org/html/rfc4918#section-14.22
type PropStat struct {
	XMLName             xml.Name `xml:"DAV: propstat"`
	Prop                Prop     `xml:"DAV: prop"`
	Status              Status   `xml:"DAV: status"`
	ResponseDescription string   `xml:"DAV: responsedescription,omitempty"`
	Error               *Error   `xml:"DAV: error,omitempty"`
}

// https://tools.ietf.org/html/rfc4918#section-14.18
type Prop struct {
	XMLName xml.Name      `xml:"DAV: prop"`
	Raw     []RawXMLValue `xml:",any"`
}

func EncodeProp(values ...interface{}) (*Prop, error) {
	l := make([]RawXMLValue, len(values))
	for i, v := range values {
		if raw, ok := v.(*RawXMLValue); ok {
			l[i] = *raw
			continue
		}
		raw, err := EncodeRawXMLElement(v)
		if err != nil {
			return nil, err
		}
		l[i] = *raw
	}
	return &Prop{Raw: l}, nil
}

// NewPropNames builds a prop element listing empty property elements, as
// used in PROPFIND and REPORT requests.
func NewPropNames(names ...xml.Name) *Prop {
	l := make([]RawXMLValue, len(names))
	for i, name := range names {
		l[i] = *NewRawXMLElement(name, nil, nil)
	}
	return &Prop{Raw: l}
}

func (p *Prop) Get(name xml.Name) *RawXMLValue {
	for i := range p.Raw {
		raw := &p.Raw[i]
		if n, ok := raw.XMLName(); ok && name == n {
			return raw
		}
	}
	return nil
}

// https://tools.ietf.org/html/rfc4918#section-14.28
type Status struct {
	Code int
	Text string
}

func (s *Status) MarshalText() ([]byte, error) {
	text := s.Text
	if text == "" {
		text = http.StatusText(s.Code)
	}
	return []byte(fmt.Sprintf("HTTP/1.1 %v %v", s.Code, text)), nil
}

// UnmarshalText parses a status line. A malformed line leaves Code zero and
// keeps the raw line in Text, so that a single bad entry doesn't fail the
// whole multistatus.
func (s *Status) UnmarshalText(b []byte) error {
	line := strings.TrimSpace(string(b))
	if line == "" {
		return nil
	}

	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		*s = Status{Text: line}
		return nil
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil {
		*s = Status{Text: line}
		return nil
	}

	s.Code = code
	if len(parts) > 2 {
		s.Text = parts[2]
	}
	return nil
}

// https://tools.ietf.org/html/rfc4918#section-14.7
type Href url.URL

func (h *Href) String() string {
	u := (*url.URL)(h)
	return u.String()
}

func (h *Href) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Href) UnmarshalText(b []byte) error {
	u, err := url.Parse(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*h = Href(*u)
	return nil
}

// https://tools.ietf.org/html/rfc4918#section-14.5
type Error struct {
	XMLName xml.Name      `xml:"DAV: error"`
	Raw     []RawXMLValue `xml:",any"`
}

func (err *Error) Error() string {
	b, _ := xml.Marshal(err)
	return string(b)
}

// Has reports whether the error carries the precondition element name.
func (err *Error) Has(name xml.Name) bool {
	for i := range err.Raw {
		if n, ok := err.Raw[i].XMLName(); ok && n == name {
			return true
		}
	}
	return false
}

// https://tools.ietf.org/html/rfc4918#section-14.20
type PropFind struct {
	XMLName  xml.Name  `xml:"DAV: propfind"`
	Prop     *Prop     `xml:"DAV: prop,omitempty"`
	AllProp  *struct{} `xml:"DAV: allprop,omitempty"`
	PropName *struct{} `xml:"DAV: propname,omitempty"`
}

func NewPropNamePropFind(names ...xml.Name) *PropFind {
	return &PropFind{Prop: NewPropNames(names...)}
}

// https://tools.ietf.org/html/rfc6578#section-6.1
type SyncCollectionQuery struct {
	XMLName   xml.Name `xml:"DAV: sync-collection"`
	SyncToken string   `xml:"DAV: sync-token"`
	SyncLevel string   `xml:"DAV: sync-level"`
	Limit     *Limit   `xml:"DAV: limit,omitempty"`
	Prop      *Prop    `xml:"DAV: prop"`
}

// https://tools.ietf.org/html/rfc5323#section-5.17
type Limit struct {
	XMLName  xml.Name `xml:"DAV: limit"`
	NResults uint     `xml:"DAV: nresults"`
}

// https://tools.ietf.org/html/rfc4918#section-15.9
type ResourceType struct {
	XMLName xml.Name      `xml:"DAV: resourcetype"`
	Raw     []RawXMLValue `xml:",any"`
}

func (t *ResourceType) Is(name xml.Name) bool {
	for i := range t.Raw {
		if n, ok := t.Raw[i].XMLName(); ok && name == n {
			return true
		}
	}
	return false
}

// https://tools.ietf.org/html/rfc4918#section-15.2
type DisplayName struct {
	XMLName xml.Name `xml:"DAV: displayname"`
	Name    string   `xml:",chardata"`
}

// https://tools.ietf.org/html/rfc5397#section-3
type CurrentUserPrincipal struct {
	XMLName         xml.Name  `xml:"DAV: current-user-principal"`
	Href            Href      `xml:"DAV: href,omitempty"`
	Unauthenticated *struct{} `xml:"DAV: unauthenticated,omitempty"`
}

// https://tools.ietf.org/html/rfc3253#section-3.1.5
type SupportedReportSet struct {
	XMLName          xml.Name          `xml:"DAV: supported-report-set"`
	SupportedReports []SupportedReport `xml:"DAV: supported-report"`
}

type SupportedReport struct {
	Report Report `xml:"DAV: report"`
}

type Report struct {
	Raw []RawXMLValue `xml:",any"`
}

// Supports reports whether the REPORT name is part of the set.
func (s *SupportedReportSet) Supports(name xml.Name) bool {
	for _, sr := range s.SupportedReports {
		for i := range sr.Report.Raw {
			if n, ok := sr.Report.Raw[i].XMLName(); ok && n == name {
				return true
			}
		}
	}
	return false
}

// ParseETag normalizes an ETag header or property value.
func ParseETag(s string) string {
	s = strings.TrimSpace(s)
	if unquoted, err := strconv.Unquote(s); err == nil {
		return unquoted
	}
	return s
}
