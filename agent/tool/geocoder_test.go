package tool

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNominatimGeocoderParsesFirstHit(t *testing.T) {
	t.Parallel()

	var gotQuery, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("q")
		gotAgent = r.Header.Get("User-Agent")
		fmt.Fprint(w, `[{"display_name":"해운대해수욕장, 해운대구","lat":"35.1587","lon":"129.1604"}]`)
	}))
	t.Cleanup(server.Close)

	geo, err := NewNominatimGeocoder(GeocoderConfig{URL: server.URL, UserAgent: "test-agent"}, server.Client())
	if err != nil {
		t.Fatalf("NewNominatimGeocoder() error = %v", err)
	}

	place, err := geo.Geocode(context.Background(), "해운대")
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}
	if gotQuery != "해운대" || gotAgent != "test-agent" {
		t.Fatalf("unexpected request q=%q ua=%q", gotQuery, gotAgent)
	}
	if place.Lat != 35.1587 || place.Lng != 129.1604 {
		t.Fatalf("unexpected coordinates: %#v", place)
	}
}

func TestNominatimGeocoderEmptyResult(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	t.Cleanup(server.Close)

	geo, err := NewNominatimGeocoder(GeocoderConfig{URL: server.URL}, server.Client())
	if err != nil {
		t.Fatalf("NewNominatimGeocoder() error = %v", err)
	}
	if _, err := geo.Geocode(context.Background(), "없는곳"); !errors.Is(err, ErrPlaceNotFound) {
		t.Fatalf("Geocode() error = %v, want ErrPlaceNotFound", err)
	}
}

func TestNominatimGeocoderHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	geo, err := NewNominatimGeocoder(GeocoderConfig{URL: server.URL}, server.Client())
	if err != nil {
		t.Fatalf("NewNominatimGeocoder() error = %v", err)
	}
	if _, err := geo.Geocode(context.Background(), "서면"); err == nil {
		t.Fatal("expected error for 429 response")
	}
}

func TestNewNominatimGeocoderRequiresURL(t *testing.T) {
	t.Parallel()

	if _, err := NewNominatimGeocoder(GeocoderConfig{}, nil); err == nil {
		t.Fatal("expected error for empty url")
	}
}
