package clients

import "fmt"

// FailureKind classifies why a fetch against the remote service failed.
type FailureKind string

const (
	FailNetwork      FailureKind = "network"
	FailTimeout      FailureKind = "timeout"
	FailHTTPStatus   FailureKind = "http_status"
	FailRemoteStatus FailureKind = "remote_status"
	FailDecode       FailureKind = "decode"
)

// FetchError is the normalized failure returned by every client fetch.
// Callers branch on Kind; the wrapped error keeps the transport detail.
type FetchError struct {
	Kind       FailureKind
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FailHTTPStatus:
		return fmt.Sprintf("%s: status %d", e.Endpoint, e.StatusCode)
	case FailRemoteStatus:
		return fmt.Sprintf("%s: service reported failure", e.Endpoint)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Endpoint, e.Kind, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }
