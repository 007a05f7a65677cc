package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"carpool/internal/domain"
	"carpool/internal/geocode"
	"carpool/internal/matcher"
	"carpool/internal/observability"
	"carpool/internal/repository"
)

// searchPageSize is the number of candidate rides read per storage round trip.
const searchPageSize = 500

// SearchService finds bookable rides for a rider.
type SearchService struct {
	rides    repository.RideRepository
	resolver geocode.Resolver // optional
	log      *zap.Logger
}

// NewSearchService creates a new SearchService.
func NewSearchService(rides repository.RideRepository, resolver geocode.Resolver, log *zap.Logger) *SearchService {
	return &SearchService{rides: rides, resolver: resolver, log: serviceLogger(log, "search")}
}

// SearchRequest contains the parameters for a ride search.
type SearchRequest struct {
	CallerID    string
	Origin      string
	Destination string

	// From and To bound the departure time, inclusive. Zero leaves the
	// bound open.
	From time.Time
	To   time.Time
}

// Search returns rides the caller could book whose origin and destination
// both match the query, earliest departure first. The caller's own rides,
// cancelled rides and full rides are never returned.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) ([]*domain.Ride, error) {
	if req.CallerID == "" {
		return nil, ErrUnauthenticated
	}
	if !req.From.IsZero() && !req.To.IsZero() && req.To.Before(req.From) {
		return nil, ErrInvalidDateRange
	}

	originQuery := matcher.Query{Text: req.Origin, Place: s.resolve(ctx, req.Origin)}
	destQuery := matcher.Query{Text: req.Destination, Place: s.resolve(ctx, req.Destination)}

	// Candidates are read page by page so every open ride in the window is
	// evaluated, however many there are.
	filter := repository.RideFilter{
		ExcludeOrganizer: req.CallerID,
		DepartFrom:       req.From,
		DepartTo:         req.To,
		Limit:            searchPageSize,
	}
	var results []*domain.Ride
	candidates := 0
	for {
		page, err := s.rides.ListOpen(ctx, filter)
		if err != nil {
			return nil, err
		}
		candidates += len(page)

		for _, ride := range page {
			if s.matches(ride, req, originQuery, destQuery) {
				results = append(results, ride)
			}
		}

		if len(page) < searchPageSize {
			break
		}
		last := page[len(page)-1]
		filter.After = &repository.RideCursor{DepartureAt: last.DepartureAt, ID: last.ID}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DepartureAt.Before(results[j].DepartureAt)
	})

	observability.SearchesTotal.Inc()
	observability.SearchResults.Observe(float64(len(results)))
	s.log.Debug("search",
		zap.String("origin", req.Origin),
		zap.String("destination", req.Destination),
		zap.Int("candidates", candidates),
		zap.Int("results", len(results)))

	return results, nil
}

func (s *SearchService) matches(ride *domain.Ride, req SearchRequest, originQuery, destQuery matcher.Query) bool {
	if ride.IsOrganizer(req.CallerID) || !ride.Bookable() || !inRange(ride.DepartureAt, req.From, req.To) {
		return false
	}

	originReason := matcher.Evaluate(matcher.Candidate{Location: ride.Origin, Coords: ride.OriginCoords}, originQuery)
	if originReason == matcher.ReasonNone {
		return false
	}
	destReason := matcher.Evaluate(matcher.Candidate{Location: ride.Destination, Coords: ride.DestinationCoords}, destQuery)
	if destReason == matcher.ReasonNone {
		return false
	}

	observability.MatchReasonsTotal.WithLabelValues("origin", string(originReason)).Inc()
	observability.MatchReasonsTotal.WithLabelValues("destination", string(destReason)).Inc()
	return true
}

// resolve looks up a query's structured place. An unresolvable query
// still matches by text.
func (s *SearchService) resolve(ctx context.Context, text string) *domain.Place {
	if s.resolver == nil || strings.TrimSpace(text) == "" {
		return nil
	}
	place, err := s.resolver.Resolve(ctx, text)
	if err != nil {
		s.log.Debug("query not resolved", zap.String("query", text), zap.Error(err))
		return nil
	}
	return place
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}
