// Package routing supplies road distance and duration estimates from the
// Google Maps Directions API
package routing

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"

	"github.com/tippyhq/tracking/internal/pkg/models"
	"github.com/tippyhq/tracking/internal/utils"
)

// ErrNoRoute is returned when the API yields no usable route
var ErrNoRoute = errors.New("no route found")

// GoogleRoutePlanner asks the Directions API for driving estimates. Callers
// treat any error as non-fatal and keep their straight-line figures.
type GoogleRoutePlanner struct {
	client *maps.Client
}

// NewGoogleRoutePlanner creates a planner with the given API key
func NewGoogleRoutePlanner(apiKey string) (*GoogleRoutePlanner, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleRoutePlanner{client: client}, nil
}

// Route fetches the driving estimate for the first returned route leg
func (p *GoogleRoutePlanner) Route(ctx context.Context, origin, destination utils.GeoPoint) (*models.RouteEstimate, error) {
	req := &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", origin.Latitude, origin.Longitude),
		Destination: fmt.Sprintf("%f,%f", destination.Latitude, destination.Longitude),
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := p.client.Directions(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("directions request failed: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return nil, ErrNoRoute
	}

	leg := routes[0].Legs[0]
	return &models.RouteEstimate{
		DistanceMeters:  float64(leg.Distance.Meters),
		DurationSeconds: leg.Duration.Seconds(),
	}, nil
}
