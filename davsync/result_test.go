package davsync

import (
	"encoding/xml"
	"maps"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chucktrukk/carddavclient/carddav"
)

func samePath(a, b string) bool {
	return strings.TrimSuffix(a, "/") == strings.TrimSuffix(b, "/")
}

func TestResult_changedAndDeletedAreDisjoint(t *testing.T) {
	res := newResult("T1")
	res.addChanged("/ab/a.vcf", "E1")
	res.addChanged("/ab/b.vcf", "E2")
	res.addChanged("/ab/a.vcf", "E3")
	res.addDeleted("/ab/b.vcf")
	res.addDeleted("/ab/b.vcf")
	res.addChanged("/ab/b.vcf", "E4")

	require.Len(t, res.Changed, 1)
	assert.Equal(t, &ChangedObject{URI: "/ab/a.vcf", ETag: "E3"}, res.Changed[0])
	assert.Equal(t, []string{"/ab/b.vcf"}, res.Deleted)
	assert.False(t, res.Empty())
	assert.True(t, newResult("T1").Empty())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		resp carddav.Response
		want entry
	}{
		{
			name: "collection truncated",
			resp: carddav.Response{Path: "/ab", Status: http.StatusInsufficientStorage},
			want: entry{kind: entryTruncated, uri: "/ab", status: http.StatusInsufficientStorage},
		},
		{
			name: "collection echo",
			resp: carddav.Response{Path: "/ab/", PropStats: []carddav.PropStat{{Status: http.StatusOK, ETag: "x"}}},
			want: entry{kind: entryIgnored, uri: "/ab/"},
		},
		{
			name: "deleted despite properties",
			resp: carddav.Response{
				Path:      "/ab/a.vcf",
				Status:    http.StatusNotFound,
				PropStats: []carddav.PropStat{{Status: http.StatusOK, ETag: "E1"}},
			},
			want: entry{kind: entryDeleted, uri: "/ab/a.vcf", status: http.StatusNotFound},
		},
		{
			name: "changed",
			resp: carddav.Response{
				Path: "/ab/a.vcf",
				PropStats: []carddav.PropStat{
					{Status: http.StatusNotFound},
					{Status: http.StatusOK, ETag: "E1", AddressData: []byte("BEGIN:VCARD")},
				},
			},
			want: entry{kind: entryChanged, uri: "/ab/a.vcf", etag: "E1", body: []byte("BEGIN:VCARD")},
		},
		{
			name: "only failed propstats",
			resp: carddav.Response{Path: "/ab/a.vcf", PropStats: []carddav.PropStat{{Status: http.StatusForbidden}}},
			want: entry{kind: entryUnexpected, uri: "/ab/a.vcf"},
		},
		{
			name: "server error",
			resp: carddav.Response{Path: "/ab/a.vcf", Status: http.StatusInternalServerError},
			want: entry{kind: entryUnexpected, uri: "/ab/a.vcf", status: http.StatusInternalServerError},
		},
		{
			name: "unparsable status",
			resp: carddav.Response{Path: "/ab/a.vcf"},
			want: entry{kind: entryUnexpected, uri: "/ab/a.vcf"},
		},
		{
			name: "no href",
			resp: carddav.Response{Status: http.StatusOK},
			want: entry{kind: entryUnexpected, status: http.StatusOK},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify("/ab/", tt.resp, samePath))
		})
	}
}

func listing(token string, etags map[string]string) []carddav.PropResponse {
	l := []carddav.PropResponse{{
		Path:  "/ab/",
		Props: map[xml.Name]string{carddav.PropGetCTag: token},
	}}
	for uri, etag := range etags {
		l = append(l, carddav.PropResponse{
			Path:  uri,
			Props: map[xml.Name]string{carddav.PropGetETag: etag},
		})
	}
	return l
}

func TestDiffETags_scenario(t *testing.T) {
	known := map[string]string{"/ab/a.vcf": "E1", "/ab/b.vcf": "E2"}
	server := listing("T2", map[string]string{"/ab/a.vcf": "E1", "/ab/c.vcf": "E3"})

	res := diffETags("/ab/", server, known, samePath, zerolog.Nop())

	assert.Equal(t, "T2", res.Token)
	assert.Equal(t, []*ChangedObject{{URI: "/ab/c.vcf", ETag: "E3"}}, res.Changed)
	assert.Equal(t, []string{"/ab/b.vcf"}, res.Deleted)
	assert.Equal(t, map[string]string{"/ab/a.vcf": "E1", "/ab/b.vcf": "E2"}, known, "known ETags must not be modified")
}

func TestDiffETags_partition(t *testing.T) {
	tests := []struct {
		name   string
		known  map[string]string
		server map[string]string
	}{
		{name: "empty"},
		{name: "initial sync", server: map[string]string{"/ab/a.vcf": "1", "/ab/b.vcf": "1"}},
		{name: "everything deleted", known: map[string]string{"/ab/a.vcf": "1", "/ab/b.vcf": "1"}},
		{
			name:   "mixed",
			known:  map[string]string{"/ab/a.vcf": "1", "/ab/b.vcf": "1", "/ab/c.vcf": "1", "/ab/d.vcf": "1"},
			server: map[string]string{"/ab/a.vcf": "1", "/ab/b.vcf": "2", "/ab/e.vcf": "1", "/ab/f.vcf": "3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := diffETags("/ab/", listing("T", tt.server), tt.known, samePath, zerolog.Nop())

			changed := make(map[string]bool)
			for _, obj := range res.Changed {
				changed[obj.URI] = true
				assert.Equal(t, tt.server[obj.URI], obj.ETag)
			}
			deleted := make(map[string]bool)
			for _, uri := range res.Deleted {
				deleted[uri] = true
				assert.False(t, changed[uri], "%v is both changed and deleted", uri)
			}

			all := maps.Clone(tt.known)
			if all == nil {
				all = make(map[string]string)
			}
			maps.Copy(all, tt.server)
			for uri := range all {
				_, onServer := tt.server[uri]
				unchanged := onServer && tt.known[uri] == tt.server[uri]
				n := 0
				for _, in := range []bool{changed[uri], deleted[uri], unchanged} {
					if in {
						n++
					}
				}
				assert.Equal(t, 1, n, "%v must be in exactly one of changed, deleted and unchanged", uri)
			}
			assert.Len(t, res.Changed, len(changed))
			assert.Len(t, res.Deleted, len(deleted))

			// Applying the result locally and reconciling again finds nothing.
			local := maps.Clone(tt.known)
			if local == nil {
				local = make(map[string]string)
			}
			for _, uri := range res.Deleted {
				delete(local, uri)
			}
			for _, obj := range res.Changed {
				local[obj.URI] = obj.ETag
			}
			again := diffETags("/ab/", listing("T", tt.server), local, samePath, zerolog.Nop())
			assert.True(t, again.Empty())
		})
	}
}

func TestDiffETags_memberWithoutETag(t *testing.T) {
	server := []carddav.PropResponse{
		{Path: "/ab/", Props: map[xml.Name]string{carddav.PropSyncToken: "sync-1"}},
		{Path: "/ab/a.vcf", Props: map[xml.Name]string{}},
	}

	res := diffETags("/ab/", server, map[string]string{"/ab/a.vcf": "E1"}, samePath, zerolog.Nop())
	assert.Equal(t, "sync-1", res.Token)
	assert.True(t, res.Empty())
}

func TestDiffETags_noVersioningSignal(t *testing.T) {
	server := []carddav.PropResponse{{Path: "/ab", Props: map[xml.Name]string{}}}

	res := diffETags("/ab/", server, nil, samePath, zerolog.Nop())
	assert.Empty(t, res.Token)
	assert.True(t, res.Empty())
}
