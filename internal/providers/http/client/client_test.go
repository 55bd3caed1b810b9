package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedirectsReturnedWhenNotFollowing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/final", http.StatusFound)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(Options{UserAgent: "test-agent"})
	req, err := c.Request(context.Background())
	require.NoError(t, err)

	resp, err := req.Get(srv.URL + "/start")
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode())
	assert.Equal(t, "/final", resp.Header().Get("Location"))
}

func TestRedirectsFollowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/final", http.StatusMovedPermanently)
			return
		}
		w.Write([]byte(r.Header.Get("User-Agent")))
	}))
	defer srv.Close()

	c := New(Options{UserAgent: "test-agent", FollowRedirects: true})
	req, err := c.Request(context.Background())
	require.NoError(t, err)

	resp, err := req.Get(srv.URL + "/start")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "test-agent", resp.String())
}

func TestHeaderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(Options{HeaderTimeout: 50 * time.Millisecond})
	req, err := c.Request(context.Background())
	require.NoError(t, err)

	_, err = req.Get(srv.URL)
	assert.Error(t, err)
}

func TestRequestHonoursCancelledContext(t *testing.T) {
	c := New(Options{RequestsPerSecond: 1})

	// Spend the single token
	_, err := c.Request(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Request(ctx)
	assert.Error(t, err)
}
