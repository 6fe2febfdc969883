package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Region selects the NerdGraph data center
type Region string

const (
	RegionUS Region = "US"
	RegionEU Region = "EU"
)

// BaseURL returns the API root for the region
func (r Region) BaseURL() string {
	if r == RegionEU {
		return "https://api.eu.newrelic.com"
	}
	return "https://api.newrelic.com"
}

// Environment variable names read by the resolver
const (
	EnvAPIKey        = "NEW_RELIC_API_KEY"
	EnvAccountID     = "NEW_RELIC_ACCOUNT_ID"
	EnvRegion        = "NEW_RELIC_REGION"
	EnvTimeout       = "NEW_RELIC_TIMEOUT"
	EnvRateLimit     = "NEW_RELIC_RATE_LIMIT"
	EnvRetryAttempts = "NEW_RELIC_RETRY_ATTEMPTS"
)

// Defaults applied when no source sets a value
const (
	DefaultTimeoutSeconds = 30
	DefaultRateLimit      = 100
	DefaultRetryAttempts  = 3
)

// Settings is one configuration layer. Nil fields are unset and never
// override a lower layer.
type Settings struct {
	APIKey        *string     `yaml:"api_key"`
	AccountID     *flexString `yaml:"account_id"`
	Region        *string     `yaml:"region"`
	Timeout       *int        `yaml:"timeout"`
	RateLimit     *int        `yaml:"rate_limit"`
	RetryAttempts *int        `yaml:"retry_attempts"`
}

// SetAccountID sets the account id from a string
func (s *Settings) SetAccountID(id string) {
	v := flexString(id)
	s.AccountID = &v
}

// overlay copies every set field of o onto s
func (s *Settings) overlay(o Settings) {
	if o.APIKey != nil {
		s.APIKey = o.APIKey
	}
	if o.AccountID != nil {
		s.AccountID = o.AccountID
	}
	if o.Region != nil {
		s.Region = o.Region
	}
	if o.Timeout != nil {
		s.Timeout = o.Timeout
	}
	if o.RateLimit != nil {
		s.RateLimit = o.RateLimit
	}
	if o.RetryAttempts != nil {
		s.RetryAttempts = o.RetryAttempts
	}
}

// flexString accepts both quoted and bare scalars, so account_id may be
// written as a JSON number or a string.
type flexString string

func (f *flexString) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar value", n.Line)
	}
	*f = flexString(n.Value)
	return nil
}

// Credentials is the validated, immutable configuration for the process.
// The raw API key is reachable only through APIKey; every display path
// (String, JSON, log fields) shows the mask.
type Credentials struct {
	apiKey        string
	maskedKey     string
	accountID     string
	region        Region
	timeout       time.Duration
	rateLimit     int
	retryAttempts int
}

func newCredentials(s Settings) *Credentials {
	c := &Credentials{
		apiKey:        strings.TrimSpace(deref(s.APIKey)),
		region:        Region(deref(s.Region)),
		timeout:       time.Duration(intOr(s.Timeout, DefaultTimeoutSeconds)) * time.Second,
		rateLimit:     intOr(s.RateLimit, DefaultRateLimit),
		retryAttempts: intOr(s.RetryAttempts, DefaultRetryAttempts),
	}
	if s.AccountID != nil {
		c.accountID = strings.TrimSpace(string(*s.AccountID))
	}
	c.maskedKey = Mask(c.apiKey)
	return c
}

// APIKey returns the raw secret. Only the transport auth handler calls it.
func (c *Credentials) APIKey() string { return c.apiKey }

// MaskedAPIKey returns the display form of the key
func (c *Credentials) MaskedAPIKey() string { return c.maskedKey }

// AccountID returns the default account id, possibly empty
func (c *Credentials) AccountID() string { return c.accountID }

func (c *Credentials) Region() Region { return c.region }

func (c *Credentials) Timeout() time.Duration { return c.timeout }

// RateLimit is the request budget per minute
func (c *Credentials) RateLimit() int { return c.rateLimit }

func (c *Credentials) RetryAttempts() int { return c.retryAttempts }

// String returns a masked representation of the credentials
func (c *Credentials) String() string {
	return fmt.Sprintf("Credentials(api_key=%s, account_id=%s, region=%s, timeout=%s, rate_limit=%d, retry_attempts=%d)",
		c.maskedKey, c.accountID, c.region, c.timeout, c.rateLimit, c.retryAttempts)
}

// MarshalJSON emits the masked key only
func (c *Credentials) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"api_key":         c.maskedKey,
		"account_id":      c.accountID,
		"region":          c.region,
		"timeout_seconds": int(c.timeout / time.Second),
		"rate_limit":      c.rateLimit,
		"retry_attempts":  c.retryAttempts,
	})
}

// MarshalLogObject lets credentials be logged with zap.Object
func (c *Credentials) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("api_key", c.maskedKey)
	enc.AddString("account_id", c.accountID)
	enc.AddString("region", string(c.region))
	enc.AddDuration("timeout", c.timeout)
	enc.AddInt("rate_limit", c.rateLimit)
	enc.AddInt("retry_attempts", c.retryAttempts)
	return nil
}

// Mask keeps the first 8 and last 4 characters of a key. Keys of 12
// characters or fewer are fully starred.
func Mask(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 12 {
		return strings.Repeat("*", len(key))
	}
	return key[:8] + "..." + key[len(key)-4:]
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// String returns a pointer to v for building Settings literals
func String(v string) *string { return &v }

// Int returns a pointer to v for building Settings literals
func Int(v int) *int { return &v }
