package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/saturnines/newrelic-mcp/pkg/errors"
)

// ValidationError is re-exported so validators in this package read naturally
type ValidationError = errors.ValidationError

// Validator checks one concern of the merged settings
type Validator interface {
	Validate(s *Settings) []ValidationError
}

// DefaultValueSetter fills fields no source provided
type DefaultValueSetter interface {
	SetDefaults(s *Settings)
}

// VariableExpander expands ${VAR} references in a config file
type VariableExpander interface {
	Expand(data []byte, env map[string]string) []byte
}

// EnvExpander implements VariableExpander over the resolver's environment mapping
type EnvExpander struct{}

// Expand expands variables with values from env. Unknown names expand to "".
func (e *EnvExpander) Expand(data []byte, env map[string]string) []byte {
	expanded := os.Expand(string(data), func(name string) string {
		return env[name]
	})
	return []byte(expanded)
}

// Resolver merges environment, file and explicit settings, then validates.
type Resolver struct {
	expander      VariableExpander
	validators    []Validator
	defaultSetter DefaultValueSetter
}

// NewResolver creates a Resolver with the given components
func NewResolver(
	expander VariableExpander,
	defaultSetter DefaultValueSetter,
	validators ...Validator,
) *Resolver {
	return &Resolver{
		expander:      expander,
		validators:    validators,
		defaultSetter: defaultSetter,
	}
}

// DefaultResolver returns a Resolver with env expansion, standard defaults
// and every field validator.
func DefaultResolver() *Resolver {
	return NewResolver(
		&EnvExpander{},
		&CredentialDefaults{},
		&APIKeyValidator{},
		&AccountIDValidator{},
		&RegionValidator{},
		&LimitsValidator{},
	)
}

// Resolve builds Credentials using DefaultResolver
func Resolve(env map[string]string, path string, overrides Settings) (*Credentials, error) {
	return DefaultResolver().Resolve(env, path, overrides)
}

// Resolve merges the layers with precedence overrides > file > env. A file
// path that does not exist is skipped. Any violation fails the whole
// resolution with a *errors.ConfigurationError.
func (r *Resolver) Resolve(env map[string]string, path string, overrides Settings) (*Credentials, error) {
	merged, violations := settingsFromEnv(env)

	if path != "" {
		fileSettings, err := r.Load(path, env)
		if err != nil {
			violations = append(violations, ValidationError{Field: "config_file", Message: err.Error()})
		} else if fileSettings != nil {
			merged.overlay(*fileSettings)
		}
	}

	merged.overlay(overrides)

	if r.defaultSetter != nil {
		r.defaultSetter.SetDefaults(&merged)
	}

	for _, v := range r.validators {
		violations = append(violations, v.Validate(&merged)...)
	}

	if len(violations) > 0 {
		return nil, &errors.ConfigurationError{Violations: violations}
	}

	return newCredentials(merged), nil
}

// Load reads a config file. It returns nil settings when the file does not exist.
func (r *Resolver) Load(path string, env map[string]string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return r.Parse(data, env)
}

// Parse decodes a JSON (or YAML) config document. Unknown keys are rejected.
func (r *Resolver) Parse(data []byte, env map[string]string) (*Settings, error) {
	if r.expander != nil {
		data = r.expander.Expand(data, env)
	}

	var s Settings
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &s, nil
}

func settingsFromEnv(env map[string]string) (Settings, []ValidationError) {
	var s Settings
	var violations []ValidationError

	lookup := func(name string) (string, bool) {
		v, ok := env[name]
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := lookup(EnvAPIKey); ok {
		s.APIKey = &v
	}
	if v, ok := lookup(EnvAccountID); ok {
		s.SetAccountID(v)
	}
	if v, ok := lookup(EnvRegion); ok {
		s.Region = &v
	}

	ints := []struct {
		name  string
		field string
		dst   **int
	}{
		{EnvTimeout, "timeout", &s.Timeout},
		{EnvRateLimit, "rate_limit", &s.RateLimit},
		{EnvRetryAttempts, "retry_attempts", &s.RetryAttempts},
	}
	for _, item := range ints {
		v, ok := lookup(item.name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			violations = append(violations, ValidationError{
				Field:   item.field,
				Message: fmt.Sprintf("%s must be an integer, got %q", item.name, v),
			})
			continue
		}
		*item.dst = &n
	}

	return s, violations
}

// CredentialDefaults implements DefaultValueSetter
type CredentialDefaults struct{}

// SetDefaults sets region, timeout, rate limit and retry attempts when unset
func (d *CredentialDefaults) SetDefaults(s *Settings) {
	if s.Region == nil {
		region := string(RegionUS)
		s.Region = &region
	}
	if s.Timeout == nil {
		v := DefaultTimeoutSeconds
		s.Timeout = &v
	}
	if s.RateLimit == nil {
		v := DefaultRateLimit
		s.RateLimit = &v
	}
	if s.RetryAttempts == nil {
		v := DefaultRetryAttempts
		s.RetryAttempts = &v
	}
}

// APIKeyValidator checks presence, length and prefix of the key
type APIKeyValidator struct{}

const (
	minAPIKeyLength = 40
	maxAPIKeyLength = 50
)

var apiKeyPrefixes = []string{"NRAK-", "NRAA-"}

// Validate checks the API key
func (v *APIKeyValidator) Validate(s *Settings) []ValidationError {
	key := strings.TrimSpace(deref(s.APIKey))
	if key == "" {
		return []ValidationError{{Field: "api_key", Message: "is required"}}
	}

	var errs []ValidationError
	if len(key) < minAPIKeyLength || len(key) > maxAPIKeyLength {
		errs = append(errs, ValidationError{
			Field:   "api_key",
			Message: fmt.Sprintf("length must be between %d and %d characters", minAPIKeyLength, maxAPIKeyLength),
		})
	}

	hasPrefix := false
	for _, p := range apiKeyPrefixes {
		if strings.HasPrefix(key, p) {
			hasPrefix = true
			break
		}
	}
	if !hasPrefix {
		errs = append(errs, ValidationError{
			Field:   "api_key",
			Message: "must start with " + strings.Join(apiKeyPrefixes, " or "),
		})
	}

	return errs
}

// AccountIDValidator checks the optional default account id
type AccountIDValidator struct{}

var accountIDPattern = regexp.MustCompile(`^\d{6,12}$`)

// Validate checks the account id when one is set
func (v *AccountIDValidator) Validate(s *Settings) []ValidationError {
	if s.AccountID == nil {
		return nil
	}
	id := strings.TrimSpace(string(*s.AccountID))
	if !accountIDPattern.MatchString(id) {
		return []ValidationError{{Field: "account_id", Message: "must be 6 to 12 digits"}}
	}
	return nil
}

// RegionValidator checks the data center region
type RegionValidator struct{}

// Validate checks the region is US or EU
func (v *RegionValidator) Validate(s *Settings) []ValidationError {
	switch Region(deref(s.Region)) {
	case RegionUS, RegionEU:
		return nil
	default:
		return []ValidationError{{Field: "region", Message: fmt.Sprintf("must be US or EU, got %q", deref(s.Region))}}
	}
}

// LimitsValidator checks timeout, rate limit and retry bounds
type LimitsValidator struct{}

// Validate checks numeric ranges
func (v *LimitsValidator) Validate(s *Settings) []ValidationError {
	var errs []ValidationError

	check := func(field string, val *int, lo, hi int) {
		if val == nil {
			return
		}
		if *val < lo || *val > hi {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("must be between %d and %d, got %d", lo, hi, *val),
			})
		}
	}

	check("timeout", s.Timeout, 5, 300)
	check("rate_limit", s.RateLimit, 1, 1000)
	check("retry_attempts", s.RetryAttempts, 0, 10)

	return errs
}
