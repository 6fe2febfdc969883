// Package response builds the result envelopes returned by every operation.
package response

import (
	"encoding/json"
	"fmt"

	"github.com/saturnines/newrelic-mcp/pkg/errors"
)

// Envelope is either a success payload or {"error": message}, never both.
type Envelope map[string]any

// Error builds an error envelope
func Error(message string) Envelope {
	return Envelope{"error": message}
}

// Errorf builds an error envelope from a format string
func Errorf(format string, a ...any) Envelope {
	return Error(fmt.Sprintf(format, a...))
}

// FromError converts err into an error envelope. Domain errors already read
// "<Operation> failed: <description>" and are used verbatim; anything else
// is prefixed with action, e.g. "creating alert policy 'P1': HTTP 401".
func FromError(action string, err error) Envelope {
	if errors.Is(err, errors.ErrDomain) || action == "" {
		return Error(err.Error())
	}
	return Error(action + ": " + err.Error())
}

// Success builds {"success": true, ...fields}
func Success(fields map[string]any) Envelope {
	env := Envelope{"success": true}
	for k, v := range fields {
		if k == "error" {
			continue
		}
		env[k] = v
	}
	return env
}

// IsError reports whether the envelope carries an error
func (e Envelope) IsError() bool {
	_, ok := e["error"]
	return ok
}

// ErrorMessage returns the error text, or "" for success envelopes
func (e Envelope) ErrorMessage() string {
	msg, _ := e["error"].(string)
	return msg
}

// JSON renders the envelope as indented JSON
func (e Envelope) JSON() (string, error) {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", errors.WrapError(err, errors.ErrExtraction, "encode envelope")
	}
	return string(data), nil
}
