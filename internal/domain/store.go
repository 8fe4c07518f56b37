package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DocumentStore is a key-path addressed document database ("users/u1/activity/2024-01-01").
// Document paths have an even number of segments, collection paths an odd number.
type DocumentStore interface {
	// Get returns ErrNotFound when the document does not exist.
	Get(ctx context.Context, path string) (*Document, error)
	// Set writes fields. With merge only the named top-level fields are replaced.
	Set(ctx context.Context, path string, fields map[string]any, merge bool) error
	// Append stores doc under a generated id and returns that id.
	Append(ctx context.Context, collectionPath string, doc any) (string, error)
	// List returns every document of a collection ordered by id.
	List(ctx context.Context, collectionPath string) ([]*Document, error)
}

// Document is a stored document. Data holds JSON-compatible values only
// (string, float64, bool, nil, []any, map[string]any).
type Document struct {
	ID   string         `json:"id"`
	Path string         `json:"path"`
	Data map[string]any `json:"data"`
}

// DataTo decodes the document into v using its json tags.
func (d *Document) DataTo(v any) error {
	raw, err := json.Marshal(d.Data)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", d.Path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode document %s: %w", d.Path, err)
	}
	return nil
}

// Number returns a numeric field; absent and null fields report false.
func (d *Document) Number(field string) (float64, bool) {
	if d == nil {
		return 0, false
	}
	switch v := d.Data[field].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// String returns a string field, "" when absent.
func (d *Document) String(field string) string {
	if d == nil {
		return ""
	}
	s, _ := d.Data[field].(string)
	return s
}

// NormalizeFields turns any JSON-encodable value into the canonical map form stored by every driver.
func NormalizeFields(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("document must encode to an object: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// SplitPath returns the parent collection path and the document id of a document path.
func SplitPath(path string) (parent, id string, err error) {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) < 2 || len(segs)%2 != 0 {
		return "", "", fmt.Errorf("invalid document path %q: %w", path, ErrInvalidInput)
	}
	for _, s := range segs {
		if s == "" {
			return "", "", fmt.Errorf("invalid document path %q: %w", path, ErrInvalidInput)
		}
	}
	return strings.Join(segs[:len(segs)-1], "/"), segs[len(segs)-1], nil
}

// ValidateCollectionPath checks path addresses a collection.
func ValidateCollectionPath(path string) error {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs)%2 != 1 {
		return fmt.Errorf("invalid collection path %q: %w", path, ErrInvalidInput)
	}
	for _, s := range segs {
		if s == "" {
			return fmt.Errorf("invalid collection path %q: %w", path, ErrInvalidInput)
		}
	}
	return nil
}

func UserDocPath(userID string) string { return "users/" + userID }

func ActivityCollectionPath(userID string) string { return "users/" + userID + "/activity" }

func ActivityDocPath(userID string, day time.Time) string {
	return ActivityCollectionPath(userID) + "/" + DateKey(day)
}

func SessionCollectionPath(userID string) string { return "users/" + userID + "/workout_sessions" }

// DateKey is the calendar-day key of t in t's own location.
func DateKey(t time.Time) string { return t.Format(time.DateOnly) }

// Clock is injected wherever "now" matters.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock, optionally in a fixed location.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location != nil {
		return time.Now().In(c.Location)
	}
	return time.Now()
}
