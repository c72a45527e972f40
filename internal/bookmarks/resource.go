package bookmarks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the two resource variants. Every resource is exactly
// one of bookmark or tag; code switching on Kind must handle both.
type Kind string

const (
	KindBookmark Kind = "bookmark"
	KindTag      Kind = "tag"
)

// BookmarkAttributes holds the payload of a bookmark resource.
type BookmarkAttributes struct {
	URL      string     `json:"url"`
	Title    string     `json:"title"`
	Created  time.Time  `json:"created"`
	Modified *time.Time `json:"modified,omitempty"`
	Notes    string     `json:"notes,omitempty"`
}

// TagAttributes holds the payload of a tag resource.
type TagAttributes struct {
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`
}

// Resource is the closed sum of bookmark and tag. Exactly one of Bookmark
// or Tag is non-nil, matching Kind. TagIDs carries a bookmark's tag
// references; ParentID carries a tag's parent reference (empty for roots).
type Resource struct {
	Kind Kind
	ID   string

	Bookmark *BookmarkAttributes
	Tag      *TagAttributes

	TagIDs   []string
	ParentID string
}

// NewBookmark creates a bookmark resource with a fresh UUID identifier and
// a UTC creation timestamp.
func NewBookmark(url, title string, tagIDs []string) Resource {
	return Resource{
		Kind: KindBookmark,
		ID:   uuid.NewString(),
		Bookmark: &BookmarkAttributes{
			URL:     url,
			Title:   title,
			Created: time.Now().UTC(),
		},
		TagIDs: tagIDs,
	}
}

// NewTag creates a tag resource with a fresh UUID identifier. parentID may
// be empty for a root tag.
func NewTag(name, color, parentID string) Resource {
	return Resource{
		Kind: KindTag,
		ID:   uuid.NewString(),
		Tag: &TagAttributes{
			Name:  name,
			Color: color,
		},
		ParentID: parentID,
	}
}

// Wire shapes follow JSON:API 1.1: a type tag, an id, an attributes object,
// and an optional relationships object carrying {type,id} identifiers.

type resourceIdentifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type relationshipMany struct {
	Data []resourceIdentifier `json:"data"`
}

type relationshipOne struct {
	Data *resourceIdentifier `json:"data"`
}

type bookmarkRelationships struct {
	Tags *relationshipMany `json:"tags,omitempty"`
}

type tagRelationships struct {
	Parent *relationshipOne `json:"parent,omitempty"`
}

type resourceWire struct {
	Type          string          `json:"type"`
	ID            string          `json:"id"`
	Attributes    json.RawMessage `json:"attributes"`
	Relationships json.RawMessage `json:"relationships,omitempty"`
}

// MarshalJSON encodes the resource in its JSON:API wire shape.
func (r Resource) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case KindBookmark:
		out := struct {
			Type          string                 `json:"type"`
			ID            string                 `json:"id"`
			Attributes    *BookmarkAttributes    `json:"attributes"`
			Relationships *bookmarkRelationships `json:"relationships,omitempty"`
		}{
			Type:       string(KindBookmark),
			ID:         r.ID,
			Attributes: r.Bookmark,
		}
		if len(r.TagIDs) > 0 {
			rel := &bookmarkRelationships{Tags: &relationshipMany{}}
			for _, id := range r.TagIDs {
				rel.Tags.Data = append(rel.Tags.Data, resourceIdentifier{Type: string(KindTag), ID: id})
			}
			out.Relationships = rel
		}
		return json.Marshal(out)

	case KindTag:
		out := struct {
			Type          string            `json:"type"`
			ID            string            `json:"id"`
			Attributes    *TagAttributes    `json:"attributes"`
			Relationships *tagRelationships `json:"relationships,omitempty"`
		}{
			Type:       string(KindTag),
			ID:         r.ID,
			Attributes: r.Tag,
		}
		if r.ParentID != "" {
			out.Relationships = &tagRelationships{
				Parent: &relationshipOne{
					Data: &resourceIdentifier{Type: string(KindTag), ID: r.ParentID},
				},
			}
		}
		return json.Marshal(out)

	default:
		return nil, fmt.Errorf("cannot marshal resource of unknown kind %q", r.Kind)
	}
}

// UnmarshalJSON decodes a resource from its JSON:API wire shape.
func (r *Resource) UnmarshalJSON(data []byte) error {
	var wire resourceWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	switch Kind(wire.Type) {
	case KindBookmark:
		attrs := &BookmarkAttributes{}
		if err := json.Unmarshal(wire.Attributes, attrs); err != nil {
			return fmt.Errorf("invalid bookmark attributes: %w", err)
		}
		*r = Resource{Kind: KindBookmark, ID: wire.ID, Bookmark: attrs}
		if len(wire.Relationships) > 0 {
			var rels bookmarkRelationships
			if err := json.Unmarshal(wire.Relationships, &rels); err != nil {
				return fmt.Errorf("invalid bookmark relationships: %w", err)
			}
			if rels.Tags != nil {
				for _, ident := range rels.Tags.Data {
					r.TagIDs = append(r.TagIDs, ident.ID)
				}
			}
		}
		return nil

	case KindTag:
		attrs := &TagAttributes{}
		if err := json.Unmarshal(wire.Attributes, attrs); err != nil {
			return fmt.Errorf("invalid tag attributes: %w", err)
		}
		*r = Resource{Kind: KindTag, ID: wire.ID, Tag: attrs}
		if len(wire.Relationships) > 0 {
			var rels tagRelationships
			if err := json.Unmarshal(wire.Relationships, &rels); err != nil {
				return fmt.Errorf("invalid tag relationships: %w", err)
			}
			if rels.Parent != nil && rels.Parent.Data != nil {
				r.ParentID = rels.Parent.Data.ID
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown resource type %q", wire.Type)
	}
}
