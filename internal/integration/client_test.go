package integration

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// =============================================================================
// Integration Client Test Suite
// =============================================================================
// Client tests run against httptest servers so classification and retry are
// exercised over real HTTP round trips.

type ClientSuite struct {
	suite.Suite
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) newClient(baseURL string, opts ...ClientOption) *Client {
	opts = append(opts, WithBackoff(Backoff{Base: time.Millisecond, Max: 2 * time.Millisecond, MaxAttempts: 3}))
	client, err := NewClient("dfr-core", baseURL, opts...)
	s.Require().NoError(err)
	return client
}

func (s *ClientSuite) TestNewClientRequiresBaseURL() {
	_, err := NewClient("dfr-core", "")
	s.Require().Error(err)
	s.ErrorIs(err, ErrConfiguration)
}

func (s *ClientSuite) TestGetDecodesJSON() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Equal(http.MethodGet, r.Method)
		s.Equal("application/json", r.Header.Get("Accept"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	var out struct {
		Status string `json:"status"`
	}
	err := s.newClient(server.URL).Get(context.Background(), "/health", &out)
	s.Require().NoError(err)
	s.Equal("ok", out.Status)
}

func (s *ClientSuite) TestPostSendsTokenAndBody() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Equal("Bearer secret-token", r.Header.Get("Authorization"))
		s.Equal("application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	err := s.newClient(server.URL, WithToken("secret-token")).
		Post(context.Background(), "/sync", map[string]string{"farmer_uid": "F-1"}, nil)
	s.Require().NoError(err)
}

func (s *ClientSuite) TestServerErrorsAreRetried() {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	err := s.newClient(server.URL).Get(context.Background(), "/sync", nil)
	s.Require().NoError(err)
	s.Equal(int32(3), calls.Load())
}

func (s *ClientSuite) TestAuthenticationFailuresAreNotRetried() {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer server.Close()

	err := s.newClient(server.URL).Get(context.Background(), "/sync", nil)
	s.Require().Error(err)
	s.Equal(int32(1), calls.Load())

	fault, ok := AsFault(err)
	s.Require().True(ok)
	s.Equal(KindAuthentication, fault.Kind)
	s.Equal(http.StatusForbidden, fault.StatusCode)
	s.Contains(fault.RawResponse, "invalid api key")
}

func (s *ClientSuite) TestMalformedResponseIsInvalidResponse() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"truncated":`))
	}))
	defer server.Close()

	var out map[string]any
	err := s.newClient(server.URL).Get(context.Background(), "/sync", &out)
	s.Require().Error(err)

	fault, ok := AsFault(err)
	s.Require().True(ok)
	s.Equal(KindInvalidResponse, fault.Kind)
}

func (s *ClientSuite) TestTimeoutClassifiesAsTimeout() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := s.newClient(server.URL, WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))

	err := client.Get(context.Background(), "/sync", nil)
	s.Require().Error(err)

	fault, ok := AsFault(err)
	s.Require().True(ok)
	s.Equal(KindTimeout, fault.Kind)
	s.True(fault.Retryable())
}

func (s *ClientSuite) TestConnectionRefusedIsServiceUnavailable() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing is listening anymore

	err := s.newClient(server.URL).Get(context.Background(), "/sync", nil)
	s.Require().Error(err)

	fault, ok := AsFault(err)
	s.Require().True(ok)
	s.Equal(KindServiceUnavailable, fault.Kind)
}

func TestAsFaultOnPlainError(t *testing.T) {
	_, ok := AsFault(errors.New("plain"))
	assert.False(t, ok)
}
