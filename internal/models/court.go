package models

// Court is a registered playing location. Coordinates gate staff
// check-in/check-out through the geofence.
type Court struct {
	ID        int64    `db:"id" json:"id"`
	Name      string   `db:"court_name" json:"court_name"`
	Address   *string  `db:"address" json:"address,omitempty"`
	Latitude  *float64 `db:"latitude" json:"latitude,omitempty"`
	Longitude *float64 `db:"longitude" json:"longitude,omitempty"`
}

// HasCoordinates reports whether the court can anchor a geofence check.
func (c *Court) HasCoordinates() bool {
	return c != nil && c.Latitude != nil && c.Longitude != nil
}
