package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var ErrPlaceNotFound = errors.New("place not found")

const maxGeocoderResponseBytes = 1 << 20

type Place struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

type Geocoder interface {
	Geocode(ctx context.Context, query string) (Place, error)
}

type GeocoderConfig struct {
	URL       string        `envconfig:"URL"`
	UserAgent string        `split_words:"true" default:"busan-civil-complaint-agent"`
	Timeout   time.Duration `split_words:"true" default:"5s"`
}

// NominatimGeocoder queries a Nominatim-compatible search endpoint restricted
// to the service area.
type NominatimGeocoder struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

type nominatimPlace struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

func NewNominatimGeocoder(cfg GeocoderConfig, client *http.Client) (*NominatimGeocoder, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("geocoder url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid geocoder url: %w", err)
	}
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &NominatimGeocoder{
		baseURL:    baseURL,
		userAgent:  strings.TrimSpace(cfg.UserAgent),
		httpClient: client,
	}, nil
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, query string) (Place, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")
	q.Set("countrycodes", "kr")
	q.Set("bounded", "1")
	q.Set("viewbox", fmt.Sprintf("%.2f,%.2f,%.2f,%.2f", MinLng, MaxLat, MaxLng, MinLat))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return Place{}, fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Place{}, fmt.Errorf("execute geocode request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxGeocoderResponseBytes))
	if err != nil {
		return Place{}, fmt.Errorf("read geocode response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Place{}, fmt.Errorf("geocode http status=%d", resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.Unmarshal(raw, &places); err != nil {
		return Place{}, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(places) == 0 {
		return Place{}, ErrPlaceNotFound
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return Place{}, fmt.Errorf("parse lat: %w", err)
	}
	lng, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return Place{}, fmt.Errorf("parse lon: %w", err)
	}
	return Place{Address: places[0].DisplayName, Lat: lat, Lng: lng}, nil
}
