package geocoding

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/asase/envreport/internal/infra/lookupcache"
)

func TestResolveExtractsCountry(t *testing.T) {
	searcher := &stubSearcher{
		place: Place{Lat: 5.6037, Lon: -0.187, DisplayName: "Accra, Accra Metropolitan, Greater Accra Region,  Ghana "},
		found: true,
	}
	svc := newTestService(searcher)

	coords := svc.Resolve(context.Background(), "Accra, Ghana")
	require.Equal(t, Coordinates{Lat: 5.6037, Lon: -0.187, Country: "Ghana"}, coords)
	require.False(t, coords.IsUnresolved())
	require.Equal(t, "Accra, Ghana", searcher.lastQuery)
}

func TestResolveFallsBackToSentinel(t *testing.T) {
	tests := []struct {
		name     string
		searcher *stubSearcher
	}{
		{name: "transport error", searcher: &stubSearcher{err: errors.New("dial tcp: timeout")}},
		{name: "no match", searcher: &stubSearcher{found: false}},
		{name: "invalid coordinates", searcher: &stubSearcher{found: true, place: Place{Lat: 123, Lon: 9, DisplayName: "Nowhere"}}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			coords := newTestService(tt.searcher).Resolve(context.Background(), "Xyzzyplace, Atlantis")
			require.Equal(t, Coordinates{Lat: 6.5244, Lon: 3.3792, Country: "Nigeria (Sample Data)"}, coords)
			require.True(t, coords.IsUnresolved())
		})
	}
}

func TestResolveCachesResultsIncludingSentinel(t *testing.T) {
	searcher := &stubSearcher{found: false}
	svc := newTestService(searcher)

	first := svc.Resolve(context.Background(), "Unknown")
	second := svc.Resolve(context.Background(), "Unknown")

	require.True(t, first.IsUnresolved())
	require.Equal(t, first, second)
	require.Equal(t, 1, searcher.calls)
}

func TestResolveDoesNotCacheAbandonedLookups(t *testing.T) {
	searcher := &stubSearcher{
		place: Place{Lat: 6.4550, Lon: 3.3941, DisplayName: "Lagos, Lagos State, Nigeria"},
		found: true,
	}
	svc := newTestService(searcher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	first := svc.Resolve(ctx, "Lagos, Nigeria")
	require.True(t, first.IsUnresolved())

	second := svc.Resolve(context.Background(), "Lagos, Nigeria")
	require.Equal(t, Coordinates{Lat: 6.4550, Lon: 3.3941, Country: "Nigeria"}, second)
	require.Equal(t, 2, searcher.calls)

	third := svc.Resolve(context.Background(), "Lagos, Nigeria")
	require.Equal(t, second, third)
	require.Equal(t, 2, searcher.calls)
}

func TestCountryFromDisplayName(t *testing.T) {
	cases := map[string]string{
		"Lagos, Lagos State, Nigeria": "Nigeria",
		"Nairobi":                     "Nairobi",
		"":                            "",
		"Trailing, ":                  "",
	}
	for in, want := range cases {
		require.Equal(t, want, countryFromDisplayName(in), "display name %q", in)
	}
}

func newTestService(searcher PlaceSearcher) Service {
	return NewService(Config{}, searcher, lookupcache.NewLRU[Coordinates](10), nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type stubSearcher struct {
	place     Place
	found     bool
	err       error
	calls     int
	lastQuery string
}

func (s *stubSearcher) Search(ctx context.Context, query string) (Place, bool, error) {
	s.calls++
	s.lastQuery = query
	if err := ctx.Err(); err != nil {
		return Place{}, false, err
	}
	if s.err != nil {
		return Place{}, false, s.err
	}
	return s.place, s.found, nil
}
