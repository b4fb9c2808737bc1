package integration

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// Kind categorizes an integration fault by its root cause. Every failure of
// an outbound call maps to exactly one kind.
type Kind string

const (
	KindAuthentication     Kind = "authentication"
	KindTimeout            Kind = "timeout"
	KindInvalidResponse    Kind = "invalid_response"
	KindConfiguration      Kind = "configuration"
	KindServiceUnavailable Kind = "service_unavailable"
	KindUnknown            Kind = "unknown"
)

// Retryable reports whether retrying the same call can plausibly succeed
// without operator intervention. Authentication, configuration and malformed
// response faults need a human; transient transport faults do not.
func (k Kind) Retryable() bool {
	switch k {
	case KindTimeout, KindServiceUnavailable:
		return true
	default:
		return false
	}
}

// ErrConfiguration marks a call that failed before it left the process, such
// as a missing endpoint URL or credential. Wrap it so Classify can recognize
// misconfiguration distinctly from remote failures.
var ErrConfiguration = errors.New("integration misconfigured")

// ErrMalformedResponse marks a response body that could not be decoded.
var ErrMalformedResponse = errors.New("malformed response")

// maxRawResponse caps how much of a response body a Fault retains. Enough to
// diagnose, small enough to log and store.
const maxRawResponse = 4096

// Fault is a classified integration failure. It implements error and carries
// the context needed to decide whether and how to retry.
type Fault struct {
	Kind        Kind
	Message     string
	StatusCode  int
	RawResponse string
	Endpoint    string
	Attempt     int
}

func (f *Fault) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("%s fault calling %s (status %d): %s", f.Kind, f.Endpoint, f.StatusCode, f.Message)
	}
	return fmt.Sprintf("%s fault calling %s: %s", f.Kind, f.Endpoint, f.Message)
}

// Retryable reports whether the fault's kind is retryable.
func (f *Fault) Retryable() bool { return f.Kind.Retryable() }

// CallContext carries the call metadata Classify attaches to the fault.
type CallContext struct {
	Endpoint    string
	Attempt     int
	StatusCode  int
	RawResponse []byte
}

// Classify maps an error from an outbound call to a Fault. It is total: any
// error yields a fault, with unrecognized causes landing in KindUnknown. The
// same error and context always classify the same way.
func Classify(err error, cc CallContext) *Fault {
	fault := &Fault{
		Kind:        classifyKind(err, cc.StatusCode),
		Message:     err.Error(),
		StatusCode:  cc.StatusCode,
		RawResponse: truncate(string(cc.RawResponse), maxRawResponse),
		Endpoint:    cc.Endpoint,
		Attempt:     cc.Attempt,
	}
	return fault
}

// ClassifyStatus maps a non-success HTTP response directly, for callers that
// check status codes themselves instead of going through Client.
func ClassifyStatus(statusCode int, body []byte, cc CallContext) *Fault {
	cc.StatusCode = statusCode
	cc.RawResponse = body
	return Classify(fmt.Errorf("unexpected status %d", statusCode), cc)
}

func classifyKind(err error, statusCode int) Kind {
	// An already-classified fault keeps its kind.
	var existing *Fault
	if errors.As(err, &existing) {
		return existing.Kind
	}

	if errors.Is(err, ErrConfiguration) {
		return KindConfiguration
	}
	if errors.Is(err, ErrMalformedResponse) {
		return KindInvalidResponse
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return KindServiceUnavailable
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return KindAuthentication
	case statusCode == http.StatusBadRequest || statusCode == http.StatusNotFound || statusCode == http.StatusUnprocessableEntity:
		return KindInvalidResponse
	case statusCode >= 500:
		return KindServiceUnavailable
	}
	return KindUnknown
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return strings.ToValidUTF8(s[:limit], "")
}
