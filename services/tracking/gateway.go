package tracking

import (
	"context"

	"github.com/tippyhq/tracking/internal/pkg/models"
	"github.com/tippyhq/tracking/internal/utils"
)

// TrackingGW publishes tracking events to external consumers (the
// notification sink). The core emits one arrival event per session and does
// not know how it is rendered.
type TrackingGW interface {
	PublishArrived(ctx context.Context, event *models.ArrivedEvent) error
}

// RoutePlanner is an optional routing collaborator supplying road
// distance/duration estimates. Any error from it is a silent, non-fatal
// condition; callers fall back to the straight-line estimate.
type RoutePlanner interface {
	Route(ctx context.Context, origin, destination utils.GeoPoint) (*models.RouteEstimate, error)
}
