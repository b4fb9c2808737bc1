package integration

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassifyKinds(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		want       Kind
	}{
		{"deadline exceeded", context.DeadlineExceeded, 0, KindTimeout},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), 0, KindTimeout},
		{"net timeout", timeoutError{}, 0, KindTimeout},
		{"unauthorized", errors.New("unexpected status 401"), http.StatusUnauthorized, KindAuthentication},
		{"forbidden", errors.New("unexpected status 403"), http.StatusForbidden, KindAuthentication},
		{"bad request", errors.New("unexpected status 400"), http.StatusBadRequest, KindInvalidResponse},
		{"not found", errors.New("unexpected status 404"), http.StatusNotFound, KindInvalidResponse},
		{"unprocessable", errors.New("unexpected status 422"), http.StatusUnprocessableEntity, KindInvalidResponse},
		{"malformed body", fmt.Errorf("%w: unexpected end of JSON input", ErrMalformedResponse), http.StatusOK, KindInvalidResponse},
		{"server error", errors.New("unexpected status 500"), http.StatusInternalServerError, KindServiceUnavailable},
		{"bad gateway", errors.New("unexpected status 502"), http.StatusBadGateway, KindServiceUnavailable},
		{"connection refused", syscall.ECONNREFUSED, 0, KindServiceUnavailable},
		{"misconfiguration", fmt.Errorf("%w: base URL missing", ErrConfiguration), 0, KindConfiguration},
		{"anything else", errors.New("weird driver state"), 0, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fault := Classify(tt.err, CallContext{Endpoint: "/sync", Attempt: 1, StatusCode: tt.statusCode})
			assert.Equal(t, tt.want, fault.Kind)
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	fault := ClassifyStatus(http.StatusBadGateway, []byte("upstream down"), CallContext{Endpoint: "/sync", Attempt: 1})
	assert.Equal(t, KindServiceUnavailable, fault.Kind)
	assert.Equal(t, http.StatusBadGateway, fault.StatusCode)
	assert.Equal(t, "upstream down", fault.RawResponse)
}

func TestClassifyIsDeterministic(t *testing.T) {
	err := errors.New("unexpected status 503")
	cc := CallContext{Endpoint: "/sync", Attempt: 2, StatusCode: 503}

	first := Classify(err, cc)
	second := Classify(err, cc)
	assert.Equal(t, first.Kind, second.Kind)
	assert.Equal(t, first.Message, second.Message)
}

func TestClassifyPreservesExistingFaultKind(t *testing.T) {
	inner := Classify(context.DeadlineExceeded, CallContext{Endpoint: "/sync", Attempt: 1})
	outer := Classify(fmt.Errorf("retrying: %w", inner), CallContext{Endpoint: "/sync", Attempt: 2, StatusCode: 500})
	assert.Equal(t, KindTimeout, outer.Kind)
}

func TestClassifyCapsRawResponse(t *testing.T) {
	raw := []byte(strings.Repeat("x", maxRawResponse*2))
	fault := Classify(errors.New("unexpected status 500"), CallContext{StatusCode: 500, RawResponse: raw})
	assert.LessOrEqual(t, len(fault.RawResponse), maxRawResponse)
}

func TestRetryable(t *testing.T) {
	assert.True(t, KindTimeout.Retryable())
	assert.True(t, KindServiceUnavailable.Retryable())
	assert.False(t, KindAuthentication.Retryable())
	assert.False(t, KindInvalidResponse.Retryable())
	assert.False(t, KindConfiguration.Retryable())
	assert.False(t, KindUnknown.Retryable(), "unclassified failures must not loop")
}

func TestFaultErrorMessage(t *testing.T) {
	fault := &Fault{Kind: KindAuthentication, Message: "unexpected status 403", StatusCode: 403, Endpoint: "https://dfr.example/api/sync"}
	assert.Contains(t, fault.Error(), "authentication")
	assert.Contains(t, fault.Error(), "403")
	assert.Contains(t, fault.Error(), "https://dfr.example/api/sync")
}
