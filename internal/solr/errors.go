package solr

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an upstream call failed.
type ErrorKind string

const (
	// KindUnreachable covers dial failures, resets and timeouts.
	KindUnreachable ErrorKind = "unreachable"
	// KindBadStatus means the node answered with a non-2xx status.
	KindBadStatus ErrorKind = "bad_status"
	// KindDecode means the node answered 2xx with a body we could not decode.
	KindDecode ErrorKind = "decode"
)

// UpstreamError is returned by every Client call that did not produce a
// usable response.
type UpstreamError struct {
	URL        string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	switch e.Kind {
	case KindBadStatus:
		return fmt.Sprintf("%s returned HTTP %d", e.URL, e.StatusCode)
	case KindDecode:
		return fmt.Sprintf("%s returned an unreadable response: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("%s unreachable: %v", e.URL, e.Err)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of an upstream failure; unknown errors count as
// unreachable.
func KindOf(err error) ErrorKind {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return KindUnreachable
}
