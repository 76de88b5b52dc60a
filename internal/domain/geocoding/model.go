package geocoding

import "time"

// The fixed coordinates returned when a query cannot be resolved. Callers
// treat them as "not found" rather than as a real place.
const (
	UnresolvedLat     = 6.5244
	UnresolvedLon     = 3.3792
	UnresolvedCountry = "Nigeria (Sample Data)"
)

// Coordinates is a resolved location.
type Coordinates struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
}

// Unresolved returns the sentinel coordinates.
func Unresolved() Coordinates {
	return Coordinates{Lat: UnresolvedLat, Lon: UnresolvedLon, Country: UnresolvedCountry}
}

// IsUnresolved reports whether c is the sentinel. Only the latitude is compared.
func (c Coordinates) IsUnresolved() bool {
	return c.Lat == UnresolvedLat
}

// Place is the best match returned by a place-search provider.
type Place struct {
	Lat         float64
	Lon         float64
	DisplayName string
}

// Config wires runtime knobs for the geocoder.
type Config struct {
	Timeout time.Duration
}
