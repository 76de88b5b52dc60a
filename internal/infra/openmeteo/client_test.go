package openmeteo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElevation(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    int
		wantErr string
	}{
		{name: "first value truncated", status: http.StatusOK, body: `{"elevation":[38.9]}`, want: 38},
		{name: "below sea level", status: http.StatusOK, body: `{"elevation":[-27.6]}`, want: -27},
		{name: "missing field", status: http.StatusOK, body: `{}`, want: 0},
		{name: "empty values", status: http.StatusOK, body: `{"elevation":[]}`, wantErr: "no values"},
		{name: "bad gateway", status: http.StatusBadGateway, body: "down", wantErr: "status=502"},
		{name: "malformed", status: http.StatusOK, body: `[`, wantErr: "decode elevation response"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "6.5", r.URL.Query().Get("latitude"))
				assert.Equal(t, "3.25", r.URL.Query().Get("longitude"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := NewClient(srv.URL, time.Second).Elevation(context.Background(), 6.5, 3.25)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
