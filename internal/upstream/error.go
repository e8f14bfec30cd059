package upstream

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind classifies an upstream failure.
type Kind int

const (
	// KindUnreachable means no HTTP response was received: the connection
	// failed, timed out or was cancelled.
	KindUnreachable Kind = iota + 1
	// KindHTTP means the provider answered with a non-2xx status.
	KindHTTP
)

func (k Kind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindHTTP:
		return "http"
	default:
		return "unknown"
	}
}

// Error is returned by Client.Get for every failed call.
type Error struct {
	Provider string
	Kind     Kind
	Status   int    // KindHTTP only
	Body     []byte // raw upstream body, KindHTTP only
	Err      error  // transport cause, KindUnreachable only
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("%s: upstream returned status %d", e.Provider, e.Status)
	default:
		return fmt.Sprintf("%s: upstream unreachable: %v", e.Provider, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Details returns the upstream body for inclusion in an error response:
// decoded JSON when the body parses, the trimmed text otherwise, and nil
// when there is no body.
func (e *Error) Details() any {
	if len(e.Body) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(e.Body, &v); err == nil {
		return v
	}
	return strings.TrimSpace(string(e.Body))
}
