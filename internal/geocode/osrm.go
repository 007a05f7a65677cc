package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"carpool/internal/domain"
)

// OSRMRouter estimates driving time against an OSRM-compatible /route
// endpoint. OSRM has no traffic model, so departure is ignored.
type OSRMRouter struct {
	endpoint string
	client   *http.Client
}

// NewOSRMRouter creates a new OSRMRouter.
func NewOSRMRouter(endpoint string, timeout time.Duration) *OSRMRouter {
	return &OSRMRouter{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

// Route returns the duration of the fastest driving route.
func (o *OSRMRouter) Route(ctx context.Context, origin, destination domain.Coordinates, _ time.Time) (time.Duration, error) {
	// OSRM takes lng,lat pairs.
	u := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=false",
		o.endpoint, origin.Lng, origin.Lat, destination.Lng, destination.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("osrm route: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		Code   string `json:"code"`
		Routes []struct {
			Duration float64 `json:"duration"`
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return 0, fmt.Errorf("%w: osrm %d", ErrProviderStatus, resp.StatusCode)
		}
		return 0, fmt.Errorf("decode osrm response: %w", err)
	}
	if out.Code != "Ok" || len(out.Routes) == 0 {
		return 0, fmt.Errorf("%w: osrm code %q", ErrNoResult, out.Code)
	}

	return time.Duration(out.Routes[0].Duration * float64(time.Second)), nil
}
