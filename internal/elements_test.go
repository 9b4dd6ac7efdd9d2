package internal

import (
	"encoding/xml"
	"net/http"
	"strings"
	"testing"
)

// https://tools.ietf.org/html/rfc4918#section-9.6.2
const exampleDeleteMultiStatusStr = `<?xml version="1.0" encoding="utf-8" ?>
<d:multistatus xmlns:d="DAV:">
  <d:response>
    <d:href>http://www.example.com/container/resource3</d:href>
    <d:status>HTTP/1.1 423 Locked</d:status>
    <d:error><d:lock-token-submitted/></d:error>
  </d:response>
</d:multistatus>`

func TestMultiStatus_Get_error(t *testing.T) {
	r := strings.NewReader(exampleDeleteMultiStatusStr)
	var ms MultiStatus
	if err := xml.NewDecoder(r).Decode(&ms); err != nil {
		t.Fatalf("Decode() = %v", err)
	}

	_, err := ms.Get("/container/resource3")
	if err == nil {
		t.Errorf("MultiStatus.Get() returned a nil error, expected non-nil")
	} else if httpErr, ok := err.(*HTTPError); !ok {
		t.Errorf("MultiStatus.Get() = %T, expected an *HTTPError", err)
	} else if httpErr.Code != 423 {
		t.Errorf("HTTPError.Code = %v, expected 423", httpErr.Code)
	}
}

// https://tools.ietf.org/html/rfc6578#section-3.8
const exampleSyncMultiStatusStr = `<?xml version="1.0" encoding="utf-8" ?>
<d:multistatus xmlns:d="DAV:">
  <d:response>
    <d:href>http://example.com/contacts/card1.vcf</d:href>
    <d:propstat>
      <d:prop>
        <d:getetag>"00001-abcd1"</d:getetag>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>http://example.com/contacts/card%20two.vcf</d:href>
    <d:status>HTTP/1.1 404 Not Found</d:status>
  </d:response>
  <d:sync-token>http://example.com/ns/sync/1234</d:sync-token>
</d:multistatus>`

func TestMultiStatus_syncCollection(t *testing.T) {
	var ms MultiStatus
	if err := xml.NewDecoder(strings.NewReader(exampleSyncMultiStatusStr)).Decode(&ms); err != nil {
		t.Fatalf("Decode() = %v", err)
	}

	if ms.SyncToken != "http://example.com/ns/sync/1234" {
		t.Errorf("SyncToken = %q", ms.SyncToken)
	}
	if len(ms.Responses) != 2 {
		t.Fatalf("len(Responses) = %v, want 2", len(ms.Responses))
	}

	changed := &ms.Responses[0]
	if p, err := changed.Path(); err != nil || p != "/contacts/card1.vcf" {
		t.Errorf("Path() = %q, %v", p, err)
	}
	if changed.StatusCode() != 0 {
		t.Errorf("StatusCode() = %v, want 0", changed.StatusCode())
	}
	raw, code, ok := changed.Prop(GetETagName)
	if !ok || code != http.StatusOK {
		t.Fatalf("Prop(getetag) = %v, %v, %v", raw, code, ok)
	}
	if etag := ParseETag(raw.Text()); etag != "00001-abcd1" {
		t.Errorf("ETag = %q, want %q", etag, "00001-abcd1")
	}
	if err := changed.DecodeProp(DisplayNameName, &DisplayName{}); !IsNotFound(err) {
		t.Errorf("DecodeProp(displayname) = %v, want 404", err)
	}

	deleted := &ms.Responses[1]
	if p, _ := deleted.Path(); p != "/contacts/card two.vcf" {
		t.Errorf("Path() = %q", p)
	}
	if deleted.StatusCode() != http.StatusNotFound {
		t.Errorf("StatusCode() = %v, want 404", deleted.StatusCode())
	}
	if !IsNotFound(deleted.Err()) {
		t.Errorf("Err() = %v, want 404", deleted.Err())
	}
}

func TestStatus_UnmarshalText(t *testing.T) {
	for _, tc := range []struct {
		in   string
		code int
		text string
	}{
		{in: "HTTP/1.1 200 OK", code: 200, text: "OK"},
		{in: "  HTTP/1.1 507 Insufficient Storage\n", code: 507, text: "Insufficient Storage"},
		{in: "HTTP/1.1 404", code: 404},
		{in: "garbage", text: "garbage"},
		{in: "HTTP/1.1 abc Nope", text: "HTTP/1.1 abc Nope"},
	} {
		t.Run(tc.in, func(t *testing.T) {
			var s Status
			if err := s.UnmarshalText([]byte(tc.in)); err != nil {
				t.Fatalf("UnmarshalText() = %v", err)
			}
			if s.Code != tc.code || s.Text != tc.text {
				t.Errorf("got %v %q, want %v %q", s.Code, s.Text, tc.code, tc.text)
			}
		})
	}
}

const malformedStatusMultiStatusStr = `<?xml version="1.0" encoding="utf-8" ?>
<d:multistatus xmlns:d="DAV:">
  <d:response>
    <d:href>/contacts/bad.vcf</d:href>
    <d:status>not a status line</d:status>
  </d:response>
  <d:response>
    <d:href>/contacts/gone.vcf</d:href>
    <d:status>HTTP/1.1 404 Not Found</d:status>
  </d:response>
  <d:sync-token>tok</d:sync-token>
</d:multistatus>`

func TestMultiStatus_malformedStatus(t *testing.T) {
	var ms MultiStatus
	if err := xml.NewDecoder(strings.NewReader(malformedStatusMultiStatusStr)).Decode(&ms); err != nil {
		t.Fatalf("Decode() = %v", err)
	}
	if len(ms.Responses) != 2 {
		t.Fatalf("len(Responses) = %v, want 2", len(ms.Responses))
	}
	if code := ms.Responses[0].StatusCode(); code != 0 {
		t.Errorf("StatusCode() of the malformed entry = %v, want 0", code)
	}
	if code := ms.Responses[1].StatusCode(); code != http.StatusNotFound {
		t.Errorf("StatusCode() = %v, want 404", code)
	}
	if ms.SyncToken != "tok" {
		t.Errorf("SyncToken = %q, want %q", ms.SyncToken, "tok")
	}
}

func TestParseETag(t *testing.T) {
	for in, want := range map[string]string{
		`"abc"`:    "abc",
		`abc`:      "abc",
		` "x y" `:  "x y",
		`W/"weak"`: `W/"weak"`,
	} {
		if got := ParseETag(in); got != want {
			t.Errorf("ParseETag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSupportedReportSet_Supports(t *testing.T) {
	const s = `<d:supported-report-set xmlns:d="DAV:" xmlns:card="urn:ietf:params:xml:ns:carddav">
  <d:supported-report><d:report><card:addressbook-multiget/></d:report></d:supported-report>
  <d:supported-report><d:report><d:sync-collection/></d:report></d:supported-report>
</d:supported-report-set>`

	var set SupportedReportSet
	if err := xml.Unmarshal([]byte(s), &set); err != nil {
		t.Fatalf("xml.Unmarshal() = %v", err)
	}
	if !set.Supports(SyncCollectionName) {
		t.Errorf("Supports(sync-collection) = false")
	}
	if !set.Supports(xml.Name{Space: "urn:ietf:params:xml:ns:carddav", Local: "addressbook-multiget"}) {
		t.Errorf("Supports(addressbook-multiget) = false")
	}
	if set.Supports(xml.Name{Space: "urn:ietf:params:xml:ns:carddav", Local: "addressbook-query"}) {
		t.Errorf("Supports(addressbook-query) = true")
	}
}

func TestError_Has(t *testing.T) {
	const s = `<d:error xmlns:d="DAV:"><d:valid-sync-token/></d:error>`
	var davErr Error
	if err := xml.Unmarshal([]byte(s), &davErr); err != nil {
		t.Fatalf("xml.Unmarshal() = %v", err)
	}
	if !davErr.Has(ValidSyncTokenName) {
		t.Errorf("Has(valid-sync-token) = false")
	}
}
