// Package matcher decides whether a ride's recorded location matches a
// rider's search query.
//
// The tests run in order and stop at the first success:
//
//  1. empty query with no resolved place matches everything
//  2. normalized substring
//  3. token overlap against the query's token set
//  4. locality, admin region or country of the resolved query place
//  5. haversine distance between coordinates
package matcher

import (
	"math"
	"strings"

	"carpool/internal/domain"
)

const (
	// EarthRadiusKm is the mean Earth radius used by HaversineKm.
	EarthRadiusKm = 6371.0

	// TokenOverlapThreshold is the minimum share of query tokens a
	// location must contain.
	TokenOverlapThreshold = 0.5

	// ProximityRadiusKm is the largest distance still considered a match.
	ProximityRadiusKm = 10.0
)

// Reason names the test that produced a match.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonWildcard     Reason = "wildcard"
	ReasonSubstring    Reason = "substring"
	ReasonTokenOverlap Reason = "token_overlap"
	ReasonPlace        Reason = "place"
	ReasonProximity    Reason = "proximity"
)

// Candidate is one side (origin or destination) of a stored ride.
type Candidate struct {
	Location string
	Coords   *domain.Coordinates
}

// Query is one side of a search request. Place is nil when the query
// could not be resolved.
type Query struct {
	Text  string
	Place *domain.Place
}

func (q Query) coords() *domain.Coordinates {
	if q.Place == nil {
		return nil
	}
	return q.Place.Coordinates
}

// Match reports whether candidate matches query.
func Match(candidate Candidate, query Query) bool {
	return Evaluate(candidate, query) != ReasonNone
}

// Evaluate runs the matching cascade and returns the first rule that
// matched, or ReasonNone.
func Evaluate(candidate Candidate, query Query) Reason {
	q := Normalize(query.Text)
	if q == "" && query.Place == nil {
		return ReasonWildcard
	}

	loc := Normalize(candidate.Location)

	if q != "" {
		if strings.Contains(loc, q) {
			return ReasonSubstring
		}
		if TokenOverlap(loc, q) >= TokenOverlapThreshold {
			return ReasonTokenOverlap
		}
	}

	if query.Place != nil && placeMatches(loc, query.Place) {
		return ReasonPlace
	}

	if a, b := candidate.Coords, query.coords(); a != nil && b != nil {
		if HaversineKm(*a, *b) <= ProximityRadiusKm {
			return ReasonProximity
		}
	}

	return ReasonNone
}

func placeMatches(loc string, place *domain.Place) bool {
	for _, name := range []string{place.Locality, place.AdminRegion, place.Country} {
		n := Normalize(name)
		if n != "" && strings.Contains(loc, n) {
			return true
		}
	}
	return false
}

// Normalize lowercases s, turns commas into spaces, collapses runs of
// whitespace and trims the result.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, ",", " ")
	return strings.Join(strings.Fields(s), " ")
}

// Tokens returns the set of whitespace-delimited tokens of a normalized string.
func Tokens(normalized string) map[string]struct{} {
	fields := strings.Fields(normalized)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// TokenOverlap returns |tokens(location) ∩ tokens(query)| / |tokens(query)|.
// The score is 0 when the query has no tokens.
func TokenOverlap(location, query string) float64 {
	qt := Tokens(query)
	if len(qt) == 0 {
		return 0
	}
	lt := Tokens(location)

	shared := 0
	for t := range qt {
		if _, ok := lt[t]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(qt))
}

// HaversineKm returns the great-circle distance between a and b in kilometres.
func HaversineKm(a, b domain.Coordinates) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
