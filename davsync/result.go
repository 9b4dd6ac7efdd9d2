package davsync

import (
	"slices"

	"github.com/emersion/go-vcard"
)

// ChangedObject is an address object that was created or modified on the
// server since the previous synchronization. Body and Card are filled by the
// fetch step.
type ChangedObject struct {
	URI  string
	ETag string
	Body []byte
	Card vcard.Card
}

// Result is the outcome of one synchronization round. A URI never appears in
// both Changed and Deleted.
type Result struct {
	// Token is the new checkpoint: a sync-token, or a CTag when the
	// collection doesn't support incremental synchronization.
	Token   string
	Changed []*ChangedObject
	Deleted []string
	// Truncated is set when the server didn't return all changes in a
	// single sync-collection response. Another round with Token picks up
	// the remaining changes.
	Truncated bool
}

func newResult(token string) *Result {
	return &Result{Token: token}
}

// Empty reports whether the result carries no change at all.
func (r *Result) Empty() bool {
	return len(r.Changed) == 0 && len(r.Deleted) == 0
}

func (r *Result) findChanged(uri string) *ChangedObject {
	for _, obj := range r.Changed {
		if obj.URI == uri {
			return obj
		}
	}
	return nil
}

func (r *Result) addChanged(uri, etag string) {
	if slices.Contains(r.Deleted, uri) {
		return
	}
	if obj := r.findChanged(uri); obj != nil {
		obj.ETag = etag
		return
	}
	r.Changed = append(r.Changed, &ChangedObject{URI: uri, ETag: etag})
}

func (r *Result) addDeleted(uri string) {
	r.Changed = slices.DeleteFunc(r.Changed, func(obj *ChangedObject) bool {
		return obj.URI == uri
	})
	if !slices.Contains(r.Deleted, uri) {
		r.Deleted = append(r.Deleted, uri)
	}
}

// missingBodies returns the changed objects that have no body yet.
func (r *Result) missingBodies() []*ChangedObject {
	var l []*ChangedObject
	for _, obj := range r.Changed {
		if obj.Body == nil {
			l = append(l, obj)
		}
	}
	return l
}

func (r *Result) changedURIs() []string {
	l := make([]string, len(r.Changed))
	for i, obj := range r.Changed {
		l[i] = obj.URI
	}
	return l
}
