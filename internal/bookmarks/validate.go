package bookmarks

import (
	"fmt"
	"net/url"
	"strings"
)

// Limits enforced by Validate.
const (
	maxURLLength   = 2048
	maxTitleLength = 500
	maxTagNameLen  = 100
)

// Validation rule names carried by ValidationError. Each violated invariant
// maps to exactly one rule so callers get a stable, distinct error per case.
const (
	RuleFormatVersion = "format-version"
	RuleURL           = "bookmark-url"
	RuleTitleLength   = "bookmark-title-length"
	RuleTagName       = "tag-name"
	RuleDuplicateID   = "duplicate-id"
)

// ValidationError names the first invariant a document violates.
type ValidationError struct {
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

// Validate checks the format version and every per-resource invariant,
// returning a ValidationError for the first violation found. It must run
// before every persist and after decoding untrusted bytes.
func (d *Document) Validate() error {
	if d.JSONAPI.Version != FormatVersion {
		return &ValidationError{
			Rule:    RuleFormatVersion,
			Message: fmt.Sprintf("unsupported format version %q (want %q)", d.JSONAPI.Version, FormatVersion),
		}
	}

	seen := make(map[string]bool)
	check := func(r Resource) error {
		switch r.Kind {
		case KindBookmark:
			if err := validateBookmarkURL(r.Bookmark.URL); err != nil {
				return err
			}
			if len(r.Bookmark.Title) > maxTitleLength {
				return &ValidationError{
					Rule:    RuleTitleLength,
					Message: fmt.Sprintf("bookmark title too long (%d characters, max %d)", len(r.Bookmark.Title), maxTitleLength),
				}
			}
		case KindTag:
			if err := validateTagName(r.Tag.Name); err != nil {
				return err
			}
		}
		if seen[r.ID] {
			return &ValidationError{
				Rule:    RuleDuplicateID,
				Message: fmt.Sprintf("duplicate resource id %q", r.ID),
			}
		}
		seen[r.ID] = true
		return nil
	}

	for _, r := range d.Data {
		if err := check(r); err != nil {
			return err
		}
	}
	for _, r := range d.Included {
		if err := check(r); err != nil {
			return err
		}
	}

	return nil
}

func validateBookmarkURL(raw string) error {
	if raw == "" {
		return &ValidationError{Rule: RuleURL, Message: "URL cannot be empty"}
	}
	if len(raw) > maxURLLength {
		return &ValidationError{
			Rule:    RuleURL,
			Message: fmt.Sprintf("URL too long (%d characters, max %d)", len(raw), maxURLLength),
		}
	}
	parsed, err := url.Parse(raw)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return &ValidationError{Rule: RuleURL, Message: fmt.Sprintf("invalid URL %q", raw)}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &ValidationError{
			Rule:    RuleURL,
			Message: fmt.Sprintf("unsafe URL scheme %q, only http and https are allowed", parsed.Scheme),
		}
	}
	return nil
}

func validateTagName(name string) error {
	if name == "" || len(name) > maxTagNameLen {
		return &ValidationError{
			Rule:    RuleTagName,
			Message: fmt.Sprintf("tag name must be between 1 and %d characters", maxTagNameLen),
		}
	}
	if strings.ContainsAny(name, "<>") {
		return &ValidationError{Rule: RuleTagName, Message: "tag name cannot contain HTML characters"}
	}
	return nil
}
