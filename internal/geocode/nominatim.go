package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"carpool/internal/domain"
)

// NominatimClient resolves addresses against a Nominatim-compatible
// /search endpoint.
type NominatimClient struct {
	endpoint  string
	userAgent string
	client    *http.Client
}

// NewNominatimClient creates a new NominatimClient.
func NewNominatimClient(endpoint, userAgent string, timeout time.Duration) *NominatimClient {
	return &NominatimClient{
		endpoint:  strings.TrimRight(endpoint, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

type nominatimResult struct {
	Lat     string `json:"lat"`
	Lon     string `json:"lon"`
	Address struct {
		City     string `json:"city"`
		Town     string `json:"town"`
		Village  string `json:"village"`
		Suburb   string `json:"suburb"`
		County   string `json:"county"`
		StateDis string `json:"state_district"`
		State    string `json:"state"`
		Country  string `json:"country"`
	} `json:"address"`
}

// Resolve returns the best match for address.
func (c *NominatimClient) Resolve(ctx context.Context, address string) (*domain.Place, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "jsonv2")
	q.Set("addressdetails", "1")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nominatim search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: nominatim %d", ErrProviderStatus, resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode nominatim response: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNoResult
	}

	return results[0].toPlace(), nil
}

func (r nominatimResult) toPlace() *domain.Place {
	a := r.Address
	place := &domain.Place{
		Locality:    firstNonEmpty(a.City, a.Town, a.Village, a.Suburb),
		AdminRegion: firstNonEmpty(a.State, a.StateDis, a.County),
		Country:     a.Country,
	}

	lat, latErr := strconv.ParseFloat(r.Lat, 64)
	lng, lngErr := strconv.ParseFloat(r.Lon, 64)
	if latErr == nil && lngErr == nil {
		place.Coordinates = &domain.Coordinates{Lat: lat, Lng: lng}
	}
	return place
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
