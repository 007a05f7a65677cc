package domain

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64
	Lng float64
}

// Place is the structured result of resolving a free-text address.
type Place struct {
	Coordinates *Coordinates
	Locality    string
	AdminRegion string
	Country     string
}
