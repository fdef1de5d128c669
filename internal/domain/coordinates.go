package domain

// Coordinates is a resolved geographic point for a free-text location.
type Coordinates struct {
	Lon float64
	Lat float64
}

// LonLat returns the point as [lon, lat], the order routing APIs expect.
func (c Coordinates) LonLat() []float64 { return []float64{c.Lon, c.Lat} }
