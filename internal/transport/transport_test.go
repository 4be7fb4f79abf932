package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/lorem/ipsum":
			_, _ = w.Write([]byte("dolor\n"))
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	tr := New(time.Second)
	ctx := context.Background()

	resp, err := tr.Fetch(ctx, server.URL+"/lorem/ipsum")
	require.NoError(t, err)
	require.Equal(t, Response{Found: true, Body: "dolor\n"}, resp)
	require.Equal(t, "zebr0/", gotUserAgent[:6])

	resp, err = tr.Fetch(ctx, server.URL+"/missing")
	require.NoError(t, err)
	require.False(t, resp.Found)

	resp, err = tr.Fetch(ctx, server.URL+"/broken")
	require.NoError(t, err)
	require.False(t, resp.Found)
}

func TestFetchUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := New(time.Second).Fetch(context.Background(), url+"/key")

	require.ErrorIs(t, err, ErrTransport)
}

func TestFetchMalformedURL(t *testing.T) {
	_, err := New(0).Fetch(context.Background(), "http://[::1/key")

	require.ErrorIs(t, err, ErrTransport)
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	_, err := New(50*time.Millisecond).Fetch(context.Background(), server.URL+"/slow")

	require.ErrorIs(t, err, ErrTransport)
}
