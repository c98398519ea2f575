package joke_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jazzcheema/websocket-groupchat/internal/joke"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"abc","joke":"Why did the scarecrow win an award?","status":200}`))
	}))
	defer srv.Close()

	client := joke.NewClient(srv.URL, time.Second)
	got, err := client.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Why did the scarecrow win an award?", got)
}

func TestFetchFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "undecodable body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>not json</html>"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			client := joke.NewClient(srv.URL, time.Second)
			_, err := client.Fetch(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, joke.ErrNetwork)
		})
	}
}

func TestFetchUnreachableService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing is listening anymore

	client := joke.NewClient(srv.URL, time.Second)
	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, joke.ErrNetwork)
}

func TestFetchTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer func() {
		close(release)
		srv.Close()
	}()

	client := joke.NewClient(srv.URL, 50*time.Millisecond)
	start := time.Now()
	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, joke.ErrNetwork)
	assert.Less(t, time.Since(start), time.Second, "expiry must be bounded by the configured timeout")
}
