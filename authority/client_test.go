package authority

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goalert "github.com/MrEthical07/goAlert"
)

func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "svc-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer svc-key", r.Header.Get("Authorization"))
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, ServiceKey: "svc-key"}, nil)
	require.NoError(t, err)
	return c
}

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := New(Config{ServiceKey: "k"}, nil)
	require.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, err, goalert.ErrNotConfigured)
}

func TestCheckRateLimitSendsArgs(t *testing.T) {
	c := newTestServer(t, map[string]http.HandlerFunc{
		rpcCheckRateLimit: func(w http.ResponseWriter, r *http.Request) {
			var args rateLimitArgs
			require.NoError(t, json.NewDecoder(r.Body).Decode(&args))
			assert.Equal(t, "u1", args.UserID)
			assert.Equal(t, goalert.OperationCrisisAlert, args.Operation)
			assert.Equal(t, 3, args.MaxOperations)
			assert.Equal(t, 5, args.WindowMinutes)
			_, _ = w.Write([]byte(`true`))
		},
	})

	allowed, err := c.CheckRateLimit(context.Background(), "u1", goalert.OperationCrisisAlert, 3, 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCheckRateLimitDenied(t *testing.T) {
	c := newTestServer(t, map[string]http.HandlerFunc{
		rpcCheckRateLimit: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`false`))
		},
	})

	allowed, err := c.CheckRateLimit(context.Background(), "u1", "x", 1, 90*time.Second)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestCheckRateLimitRequiresUser(t *testing.T) {
	c := newTestServer(t, nil)
	_, err := c.CheckRateLimit(context.Background(), "", "x", 1, time.Minute)
	require.ErrorIs(t, err, goalert.ErrUnauthorized)
}

func TestValidateInputDecodesVerdict(t *testing.T) {
	c := newTestServer(t, map[string]http.HandlerFunc{
		rpcValidateInput: func(w http.ResponseWriter, r *http.Request) {
			var args validateArgs
			require.NoError(t, json.NewDecoder(r.Body).Decode(&args))
			assert.Equal(t, "<b>help</b>", args.Message)
			_, _ = w.Write([]byte(`{"isValid":true,"suspicious":true,"sanitizedMessage":"help","errors":["html_tag"]}`))
		},
	})

	res, err := c.ValidateInput(context.Background(), "u1", "", "<b>help</b>")
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	assert.True(t, res.Suspicious)
	assert.Equal(t, "help", res.SanitizedMessage)
	assert.Equal(t, []string{"html_tag"}, res.Errors)
}

func TestVerifyOwnership(t *testing.T) {
	c := newTestServer(t, map[string]http.HandlerFunc{
		rpcVerifyOwnership: func(w http.ResponseWriter, r *http.Request) {
			var args ownershipArgs
			require.NoError(t, json.NewDecoder(r.Body).Decode(&args))
			if args.Phone == "+15550100001" {
				_, _ = w.Write([]byte(`true`))
				return
			}
			_, _ = w.Write([]byte(`false`))
		},
	})

	owned, err := c.VerifyContactOwnership(context.Background(), "u1", "+15550100001")
	require.NoError(t, err)
	assert.True(t, owned)

	owned, err = c.VerifyContactOwnership(context.Background(), "u1", "+15550100009")
	require.NoError(t, err)
	assert.False(t, owned)
}

func TestServerErrorIsUnavailable(t *testing.T) {
	c := newTestServer(t, map[string]http.HandlerFunc{
		rpcCheckRateLimit: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"code":"XX000","message":"boom"}`))
		},
	})

	_, err := c.CheckRateLimit(context.Background(), "u1", "x", 1, time.Minute)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, errors.Is(err, goalert.ErrAuthorityUnavailable))
}

func TestForbiddenIsUnauthorized(t *testing.T) {
	c := newTestServer(t, map[string]http.HandlerFunc{
		rpcVerifyOwnership: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		},
	})

	_, err := c.VerifyContactOwnership(context.Background(), "u1", "+15550100001")
	require.ErrorIs(t, err, goalert.ErrUnauthorized)
}

func TestUnreachableBackend(t *testing.T) {
	c, err := New(Config{BaseURL: "http://127.0.0.1:1", ServiceKey: "k", Timeout: 200 * time.Millisecond}, nil)
	require.NoError(t, err)

	_, err = c.ValidateInput(context.Background(), "u1", "", "hi")
	require.ErrorIs(t, err, ErrUnavailable)
}
