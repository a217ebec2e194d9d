package domain

// Location is a user position in degrees.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Query is a recommendation request.
type Query struct {
	Query     string   `json:"query"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Radius    *float64 `json:"radius,omitempty"` // km
	Rerank    bool     `json:"rerank,omitempty"`
}

// Location returns the user location, or nil unless both coordinates are set.
func (q *Query) Location() *Location {
	if q.Latitude == nil || q.Longitude == nil {
		return nil
	}
	return &Location{Latitude: *q.Latitude, Longitude: *q.Longitude}
}

// RadiusKm returns the search radius, or 0 unless a location and radius are
// both present. Radius filtering is meaningless without a location.
func (q *Query) RadiusKm() float64 {
	if q.Radius == nil || q.Location() == nil {
		return 0
	}
	return *q.Radius
}
