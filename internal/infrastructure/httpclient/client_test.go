package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/resilience"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(path string) func(*resty.Request) (*resty.Response, error) {
	return func(r *resty.Request) (*resty.Response, error) {
		return r.Get(path)
	}
}

func TestDoSendsHeaders(t *testing.T) {
	var gotID, gotAuth, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get(RequestIDHeader)
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(Options{Name: "test", BaseURL: srv.URL, Token: "secret"})
	resp, err := c.Do(context.Background(), get("/ping"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	_, parseErr := uuid.Parse(gotID)
	assert.NoError(t, parseErr, "request id should be a uuid")
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "CodePilot-Server/1.0", gotUA)
}

func TestDoReportsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL})
	resp, err := c.Do(context.Background(), get("/"))

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Status)
	assert.Contains(t, statusErr.Error(), "exploded")
	require.NotNil(t, resp)
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL})
	for i := 0; i < 10; i++ {
		resp, err := c.Do(context.Background(), get("/missing"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode())
	}
	assert.Equal(t, resilience.StateClosed, c.BreakerState())
}

func TestBreakerOpensOnRepeatedFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var transitions []resilience.State
	c := New(Options{
		BaseURL: srv.URL,
		OnStateChange: func(_ string, _, to resilience.State) {
			transitions = append(transitions, to)
		},
	})

	for i := 0; i < 5; i++ {
		_, _ = c.Do(context.Background(), get("/"))
	}
	assert.Equal(t, resilience.StateOpen, c.BreakerState())
	assert.Equal(t, []resilience.State{resilience.StateOpen}, transitions)

	before := hits.Load()
	_, err := c.Do(context.Background(), get("/"))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, before, hits.Load(), "open breaker must not reach the server")
}

func TestRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Options{
		BaseURL:      srv.URL,
		RetryMax:     3,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	})
	resp, err := c.Do(context.Background(), get("/"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, int32(3), hits.Load())
}

func TestRequestHonorsCancelledContext(t *testing.T) {
	c := New(Options{RPS: 1})
	ctx, cancel := context.WithCancel(context.Background())

	// Drain the single token so the next Wait has to block.
	_, err := c.Request(ctx)
	require.NoError(t, err)

	cancel()
	_, err = c.Request(ctx)
	assert.Error(t, err)
}
