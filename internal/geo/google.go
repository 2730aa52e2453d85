package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// GoogleProvider calls the Google Maps Geocoding API.
type GoogleProvider struct {
	endpoint string
	apiKey   string
	interval time.Duration
	client   *http.Client
}

func NewGoogleProvider(endpoint, apiKey string, interval time.Duration, client *http.Client) *GoogleProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &GoogleProvider{endpoint: endpoint, apiKey: apiKey, interval: interval, client: client}
}

func (g *GoogleProvider) Name() string               { return "google" }
func (g *GoogleProvider) MinInterval() time.Duration { return g.interval }

type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		AddressComponents []struct {
			LongName  string   `json:"long_name"`
			ShortName string   `json:"short_name"`
			Types     []string `json:"types"`
		} `json:"address_components"`
	} `json:"results"`
}

// Geocode returns every result Google reports for query.
func (g *GoogleProvider) Geocode(ctx context.Context, query string) ([]types.GeoCandidate, error) {
	resp, err := g.call(ctx, "geocode", url.Values{"address": {query}})
	if err != nil {
		return nil, err
	}

	out := make([]types.GeoCandidate, 0, len(resp.Results))
	for _, r := range resp.Results {
		c := types.GeoCandidate{
			Latitude:  r.Geometry.Location.Lat,
			Longitude: r.Geometry.Location.Lng,
			Label:     r.FormattedAddress,
		}
		for _, comp := range r.AddressComponents {
			for _, t := range comp.Types {
				if t == "administrative_area_level_1" {
					c.AdminRegion = append(c.AdminRegion, comp.ShortName, comp.LongName)
				}
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// Reverse returns the formatted address of the first result.
func (g *GoogleProvider) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	latlng := strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
	resp, err := g.call(ctx, "reverse", url.Values{"latlng": {latlng}})
	if err != nil {
		return "", err
	}
	return resp.Results[0].FormattedAddress, nil
}

func (g *GoogleProvider) call(ctx context.Context, op string, params url.Values) (*googleResponse, error) {
	params.Set("key", g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &types.ProviderError{Provider: g.Name(), Op: op, Err: err}
	}
	httpResp, err := g.client.Do(req)
	if err != nil {
		return nil, &types.ProviderError{Provider: g.Name(), Op: op, Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, &types.ProviderError{Provider: g.Name(), Op: op, Err: fmt.Errorf("HTTP %d", httpResp.StatusCode)}
	}
	var body googleResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&body); err != nil {
		return nil, &types.ProviderError{Provider: g.Name(), Op: op, Err: fmt.Errorf("decode: %w", err)}
	}
	if body.Status != "OK" || len(body.Results) == 0 {
		return nil, &types.ProviderError{Provider: g.Name(), Op: op, Err: fmt.Errorf("status %s %s", body.Status, body.ErrorMessage)}
	}
	return &body, nil
}
