// Package bookmarks defines the bookmark/tag document model: a JSON:API 1.1
// shaped collection of bookmark and tag resources, its validation rules, and
// the tag hierarchy queries derived on demand.
package bookmarks

import "errors"

// FormatVersion is the JSON:API format version tag a document must carry.
const FormatVersion = "1.1"

// ErrKindMismatch is returned when a resource of the wrong variant is passed
// to AddBookmark or AddTag.
var ErrKindMismatch = errors.New("resource kind mismatch")

// Version is the document's format-version tag.
type Version struct {
	Version string `json:"version"`
}

// Document is the full bookmark collection as one versioned unit. Data holds
// the primary resources; Included holds auxiliary resources (tags added via
// AddTag). Every write supersedes the whole document.
type Document struct {
	JSONAPI  Version    `json:"jsonapi"`
	Data     []Resource `json:"data"`
	Included []Resource `json:"included,omitempty"`
}

// New returns an empty document at the supported format version.
func New() *Document {
	return &Document{JSONAPI: Version{Version: FormatVersion}}
}

// AddBookmark appends a bookmark resource to the primary list.
func (d *Document) AddBookmark(r Resource) error {
	if r.Kind != KindBookmark {
		return ErrKindMismatch
	}
	d.Data = append(d.Data, r)
	return nil
}

// AddTag appends a tag resource to the included (auxiliary) list.
func (d *Document) AddTag(r Resource) error {
	if r.Kind != KindTag {
		return ErrKindMismatch
	}
	d.Included = append(d.Included, r)
	return nil
}

// Bookmarks returns the bookmark resources from the primary list.
func (d *Document) Bookmarks() []Resource {
	var out []Resource
	for _, r := range d.Data {
		if r.Kind == KindBookmark {
			out = append(out, r)
		}
	}
	return out
}

// Tags returns the tag resources from both the primary and included lists,
// primary first, in encounter order.
func (d *Document) Tags() []Resource {
	var out []Resource
	for _, r := range d.Data {
		if r.Kind == KindTag {
			out = append(out, r)
		}
	}
	for _, r := range d.Included {
		if r.Kind == KindTag {
			out = append(out, r)
		}
	}
	return out
}

// TagHierarchy builds the parent id to child ids mapping in one pass over
// all tags. Children appear in the document's own encounter order.
func (d *Document) TagHierarchy() map[string][]string {
	hierarchy := make(map[string][]string)
	for _, tag := range d.Tags() {
		if tag.ParentID != "" {
			hierarchy[tag.ParentID] = append(hierarchy[tag.ParentID], tag.ID)
		}
	}
	return hierarchy
}

// TagBreadcrumb walks parent references upward from id and returns the
// root-to-leaf name path. A visited set keyed by tag id stops the walk the
// moment an id repeats, so a cyclic parent graph yields a finite partial
// path instead of looping.
func (d *Document) TagBreadcrumb(id string) []string {
	tagsByID := make(map[string]Resource)
	for _, tag := range d.Tags() {
		tagsByID[tag.ID] = tag
	}

	var breadcrumb []string
	visited := make(map[string]bool)

	current := id
	for {
		if visited[current] {
			break
		}
		visited[current] = true

		tag, ok := tagsByID[current]
		if !ok {
			break
		}
		breadcrumb = append([]string{tag.Tag.Name}, breadcrumb...)

		if tag.ParentID == "" {
			break
		}
		current = tag.ParentID
	}

	return breadcrumb
}
