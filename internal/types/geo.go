package types

import "fmt"

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// Region is the administrative region the point was resolved in, if known.
	Region string `json:"region,omitempty"`
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Latitude, p.Longitude)
}

// GeoCandidate is a single geocoding match returned by a provider.
type GeoCandidate struct {
	Latitude    float64
	Longitude   float64
	AdminRegion []string // e.g. {"NY", "New York"}
	Label       string
}

// Point converts the candidate to a GeoPoint.
func (c GeoCandidate) Point() GeoPoint {
	p := GeoPoint{Latitude: c.Latitude, Longitude: c.Longitude}
	if len(c.AdminRegion) > 0 {
		p.Region = c.AdminRegion[0]
	}
	return p
}
