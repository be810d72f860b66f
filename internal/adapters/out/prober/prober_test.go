package prober

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProber_Probe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Octopus-Health/1.0", r.UserAgent())
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	status, elapsed, err := New(time.Second).Probe(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, status)
	assert.Greater(t, elapsed, time.Duration(0))
}

func TestProber_DoesNotFollowRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	}))
	defer srv.Close()

	status, _, err := New(time.Second).Probe(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, status)
}

func TestProber_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, _, err := New(time.Second).Probe(context.Background(), url)

	assert.Error(t, err)
}
