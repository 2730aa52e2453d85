package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// NominatimProvider calls an OpenStreetMap Nominatim instance. The public
// instance requires an identifying User-Agent and at most one request per second.
type NominatimProvider struct {
	endpoint  string
	userAgent string
	interval  time.Duration
	client    *http.Client
}

func NewNominatimProvider(endpoint, userAgent string, interval time.Duration, client *http.Client) *NominatimProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &NominatimProvider{
		endpoint:  strings.TrimRight(endpoint, "/"),
		userAgent: userAgent,
		interval:  interval,
		client:    client,
	}
}

func (n *NominatimProvider) Name() string               { return "nominatim" }
func (n *NominatimProvider) MinInterval() time.Duration { return n.interval }

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Address     struct {
		State   string `json:"state"`
		ISOLvl4 string `json:"ISO3166-2-lvl4"`
	} `json:"address"`
	Error string `json:"error"`
}

// Geocode runs a free-form search and returns up to five places.
func (n *NominatimProvider) Geocode(ctx context.Context, query string) ([]types.GeoCandidate, error) {
	params := url.Values{
		"q":              {query},
		"format":         {"json"},
		"limit":          {"5"},
		"addressdetails": {"1"},
	}
	var places []nominatimPlace
	if err := n.get(ctx, "geocode", "/search", params, &places); err != nil {
		return nil, err
	}

	out := make([]types.GeoCandidate, 0, len(places))
	for _, p := range places {
		lat, err1 := strconv.ParseFloat(p.Lat, 64)
		lon, err2 := strconv.ParseFloat(p.Lon, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		c := types.GeoCandidate{Latitude: lat, Longitude: lon, Label: p.DisplayName}
		if p.Address.State != "" {
			c.AdminRegion = append(c.AdminRegion, p.Address.State)
		}
		if _, code, ok := strings.Cut(p.Address.ISOLvl4, "-"); ok {
			c.AdminRegion = append(c.AdminRegion, code)
		}
		out = append(out, c)
	}
	return out, nil
}

// Reverse returns the display name of the place at lat, lng.
func (n *NominatimProvider) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	params := url.Values{
		"lat":            {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":            {strconv.FormatFloat(lng, 'f', -1, 64)},
		"format":         {"json"},
		"addressdetails": {"1"},
	}
	var place nominatimPlace
	if err := n.get(ctx, "reverse", "/reverse", params, &place); err != nil {
		return "", err
	}
	if place.DisplayName == "" {
		return "", &types.ProviderError{Provider: n.Name(), Op: "reverse", Err: fmt.Errorf("no result: %s", place.Error)}
	}
	return place.DisplayName, nil
}

func (n *NominatimProvider) get(ctx context.Context, op, path string, params url.Values, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.endpoint+path+"?"+params.Encode(), nil)
	if err != nil {
		return &types.ProviderError{Provider: n.Name(), Op: op, Err: err}
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return &types.ProviderError{Provider: n.Name(), Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &types.ProviderError{Provider: n.Name(), Op: op, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return &types.ProviderError{Provider: n.Name(), Op: op, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}
