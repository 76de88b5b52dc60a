package gibs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTileAvailable(t *testing.T) {
	for status, want := range map[int]bool{
		http.StatusOK:                  true,
		http.StatusNoContent:           false,
		http.StatusNotFound:            false,
		http.StatusInternalServerError: false,
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		ok, err := NewClient(srv.URL+"/tile.png", time.Second).TileAvailable(context.Background())
		srv.Close()

		require.NoError(t, err)
		require.Equal(t, want, ok, "status %d", status)
	}
}

func TestTileAvailableTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	ok, err := NewClient(url, time.Second).TileAvailable(context.Background())
	require.Error(t, err)
	require.False(t, ok)
}
