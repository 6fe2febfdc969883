// Package validate checks caller-supplied values before they reach a query
// and escapes the few that must be embedded in query text.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/saturnines/newrelic-mcp/pkg/errors"
)

const (
	maxNRQLLength    = 10000
	maxAppNameLength = 200
	minGUIDLength    = 10
	maxGUIDLength    = 100
	maxHours         = 8760
)

var (
	accountIDPattern = regexp.MustCompile(`^\d{6,12}$`)
	guidPattern      = regexp.MustCompile(`^[A-Za-z0-9+/=]+$`)
	nrqlStartPattern = regexp.MustCompile(`(?i)^\s*(SELECT|FROM)\s+`)

	dangerousNRQL = []*regexp.Regexp{
		regexp.MustCompile(`(?i);\s*DROP\s+`),
		regexp.MustCompile(`(?i);\s*DELETE\s+`),
		regexp.MustCompile(`(?i);\s*UPDATE\s+`),
		regexp.MustCompile(`(?i);\s*INSERT\s+`),
		regexp.MustCompile(`(?i)<script\b`),
		regexp.MustCompile(`(?i)javascript:`),
		regexp.MustCompile(`(?i)vbscript:`),
	}
)

func invalid(field, format string, a ...any) error {
	return errors.WrapError(fmt.Errorf(format, a...), errors.ErrValidation, field)
}

// AccountID checks a 6 to 12 digit account id
func AccountID(id string) (string, error) {
	id = strings.TrimSpace(id)
	switch {
	case id == "":
		return "", invalid("account id", "cannot be empty")
	case !accountIDPattern.MatchString(id):
		return "", invalid("account id", "%q must be 6 to 12 digits", id)
	}
	return id, nil
}

// NRQL checks a caller-written query and returns it trimmed
func NRQL(query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", invalid("nrql", "query cannot be empty")
	}
	if len(query) > maxNRQLLength {
		return "", invalid("nrql", "query too long (max %d characters)", maxNRQLLength)
	}
	for _, p := range dangerousNRQL {
		if p.MatchString(query) {
			return "", invalid("nrql", "query contains a disallowed pattern %q", p.String())
		}
	}
	if !nrqlStartPattern.MatchString(query) {
		return "", invalid("nrql", "query must start with SELECT or FROM")
	}
	return query, nil
}

// GUID checks an entity GUID (base64 alphabet, 10 to 100 characters)
func GUID(guid string) (string, error) {
	guid = strings.TrimSpace(guid)
	switch {
	case guid == "":
		return "", invalid("guid", "cannot be empty")
	case !guidPattern.MatchString(guid):
		return "", invalid("guid", "%q is not a valid entity GUID", guid)
	case len(guid) < minGUIDLength || len(guid) > maxGUIDLength:
		return "", invalid("guid", "length must be between %d and %d", minGUIDLength, maxGUIDLength)
	}
	return guid, nil
}

// AppName checks an application name and returns it trimmed
func AppName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", invalid("app name", "cannot be empty")
	case len(name) > maxAppNameLength:
		return "", invalid("app name", "too long (max %d characters)", maxAppNameLength)
	}
	return name, nil
}

// Hours checks a look-back window between 1 hour and 1 year
func Hours(hours int) (int, error) {
	if hours < 1 {
		return 0, invalid("hours", "must be at least 1")
	}
	if hours > maxHours {
		return 0, invalid("hours", "cannot exceed %d (one year)", maxHours)
	}
	return hours, nil
}

// Quote escapes s for a single-quoted literal in NRQL or entity search text.
// Backslashes are doubled first so an escaped quote cannot be undone.
func Quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// Sanitize replaces line breaks and tabs with spaces and drops other control
// characters from every string value.
func Sanitize(arguments map[string]any) map[string]any {
	out := make(map[string]any, len(arguments))
	for k, v := range arguments {
		if s, ok := v.(string); ok {
			v = strings.TrimSpace(stripControl(s))
		}
		out[k] = v
	}
	return out
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return ' '
		case r < 0x20 || r == 0x7f:
			return -1
		default:
			return r
		}
	}, s)
}
