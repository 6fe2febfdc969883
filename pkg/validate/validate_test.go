package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnines/newrelic-mcp/pkg/errors"
)

func TestAccountID(t *testing.T) {
	for _, ok := range []string{"123456", " 123456789012 "} {
		_, err := AccountID(ok)
		assert.NoError(t, err, ok)
	}
	for _, bad := range []string{"", "12345", "1234567890123", "123456 OR 1=1", "12a456"} {
		_, err := AccountID(bad)
		assert.True(t, errors.Is(err, errors.ErrValidation), bad)
	}
}

func TestNRQL(t *testing.T) {
	tests := []struct {
		name  string
		query string
		ok    bool
	}{
		{"select", "SELECT count(*) FROM Transaction", true},
		{"lowercase", "  select * from Log since 1 hour ago ", true},
		{"from first", "FROM Transaction SELECT count(*)", true},
		{"empty", "   ", false},
		{"chained drop", "SELECT 1 FROM T; DROP TABLE x", false},
		{"script", "SELECT '<script>' FROM T", false},
		{"javascript url", "SELECT 'javascript:alert(1)' FROM T", false},
		{"not a select", "SHOW EVENT TYPES", false},
		{"too long", "SELECT " + strings.Repeat("x", 10000), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NRQL(tt.query)
			if !tt.ok {
				assert.True(t, errors.Is(err, errors.ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.TrimSpace(tt.query), got)
		})
	}
}

func TestGUID(t *testing.T) {
	_, err := GUID("MXxWSVp8REFTSEJPQVJEfDEyMzQ1")
	assert.NoError(t, err)

	for _, bad := range []string{"", "short", "abc\" } mutation {", strings.Repeat("A", 101)} {
		_, err := GUID(bad)
		assert.Error(t, err, bad)
	}
}

func TestAppNameAndHours(t *testing.T) {
	name, err := AppName("  checkout  ")
	require.NoError(t, err)
	assert.Equal(t, "checkout", name)

	_, err = AppName("")
	assert.Error(t, err)
	_, err = AppName(strings.Repeat("a", 201))
	assert.Error(t, err)

	for _, h := range []int{1, 24, 8760} {
		_, err := Hours(h)
		assert.NoError(t, err)
	}
	for _, h := range []int{0, -5, 8761} {
		_, err := Hours(h)
		assert.Error(t, err)
	}
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `O\'Brien`, Quote("O'Brien"))
	assert.Equal(t, `a\\\' OR 1=1`, Quote(`a\' OR 1=1`))
	assert.Equal(t, "plain", Quote("plain"))
}

func TestSanitize(t *testing.T) {
	out := Sanitize(map[string]any{
		"query": "SELECT *\nFROM\tLog\x00 ",
		"hours": float64(2),
	})
	assert.Equal(t, "SELECT * FROM Log", out["query"])
	assert.Equal(t, float64(2), out["hours"])
}
