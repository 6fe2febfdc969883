package response

import (
	"strings"

	"github.com/saturnines/newrelic-mcp/pkg/args"
)

// Field maps an envelope key to a dotted path in the API result
type Field struct {
	Key  string
	Path string
}

// F is shorthand for Field{key, path}
func F(key, path string) Field {
	return Field{Key: key, Path: path}
}

// FormatCreate builds {"success": true, "id": result[idField], ...fields}.
// When idField is not "id" it is also copied under its own name. Missing
// paths produce nil values.
func FormatCreate(result map[string]any, idField string, fields ...Field) Envelope {
	if idField == "" {
		idField = "id"
	}
	id, _ := Lookup(result, idField)

	env := Envelope{
		"success": true,
		"id":      id,
	}
	if idField != "id" {
		env[idField] = id
	}
	for _, f := range fields {
		v, _ := Lookup(result, f.Path)
		env[f.Key] = v
	}
	return env
}

// ListOption adjusts FormatList output
type ListOption func(*listOptions)

type listOptions struct {
	total     *int
	cursorSet bool
	cursor    any
	hasMore   bool
	extra     map[string]any
}

// WithTotal uses the API's reported total instead of the page length.
// Non-numeric values are ignored.
func WithTotal(total any) ListOption {
	return func(o *listOptions) {
		if total == nil {
			return
		}
		if n, err := args.ToInt(total); err == nil {
			o.total = &n
		}
	}
}

// WithCursor adds next_cursor. Empty cursors become null.
func WithCursor(cursor any) ListOption {
	return func(o *listOptions) {
		o.cursorSet = true
		if s, ok := cursor.(string); ok && s != "" {
			o.cursor = s
		}
	}
}

// WithHasMore adds has_more derived from cursor presence
func WithHasMore() ListOption {
	return func(o *listOptions) {
		o.hasMore = true
	}
}

// WithField adds a fixed key to the list envelope
func WithField(key string, value any) ListOption {
	return func(o *listOptions) {
		if o.extra == nil {
			o.extra = map[string]any{}
		}
		o.extra[key] = value
	}
}

// FormatList builds {key: items, "total_count": n} plus the optional cursor
// fields. Items is never null in the output.
func FormatList(key string, items []any, opts ...ListOption) Envelope {
	o := &listOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if items == nil {
		items = []any{}
	}

	env := Envelope{key: items}
	for k, v := range o.extra {
		env[k] = v
	}

	if o.total != nil {
		env["total_count"] = *o.total
	} else {
		env["total_count"] = len(items)
	}

	if o.cursorSet {
		env["next_cursor"] = o.cursor
		if o.hasMore {
			env["has_more"] = o.cursor != nil
		}
	}
	return env
}

// Items converts a decoded JSON array to []any, returning an empty slice
// for anything else.
func Items(v any) []any {
	if items, ok := v.([]any); ok && items != nil {
		return items
	}
	return []any{}
}

// Lookup reads a dotted path such as "nrql.query" from nested maps
func Lookup(data any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	return Dig(data, strings.Split(path, ".")...)
}

// Dig walks nested maps by key
func Dig(data any, keys ...string) (any, bool) {
	current := data
	for _, key := range keys {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Object returns the map at keys, or nil when absent or not an object
func Object(data any, keys ...string) map[string]any {
	v, _ := Dig(data, keys...)
	m, _ := v.(map[string]any)
	return m
}
