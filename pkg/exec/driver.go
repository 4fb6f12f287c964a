package exec

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vaultcraft/execd/pkg/models"
)

// Driver is the per-venue execution capability set. Implementations must
// return an error for unrecoverable failures; recoverable venue-side
// failures come back as "error"-labeled fields inside the ack payload.
type Driver interface {
	Open(ctx context.Context, order models.Order) (map[string]interface{}, error)
	Close(ctx context.Context, symbol string, size *float64) (map[string]interface{}, error)
}

// DriverFactory constructs a driver on first use for its venue.
type DriverFactory func() (Driver, error)

// UnsupportedVenueError marks a dispatch to a venue with no registered
// driver. This is a configuration error, surfaced immediately.
type UnsupportedVenueError struct {
	Venue string
}

func (e *UnsupportedVenueError) Error() string {
	return fmt.Sprintf("no driver registered for venue %q", e.Venue)
}

// Registry maps venue names to driver factories. Drivers are constructed
// lazily and cached.
type Registry struct {
	mu        sync.Mutex
	factories map[string]DriverFactory
	drivers   map[string]Driver
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]DriverFactory),
		drivers:   make(map[string]Driver),
	}
}

func (r *Registry) Register(venue string, factory DriverFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(venue)] = factory
}

func (r *Registry) Resolve(venue string) (Driver, error) {
	venue = strings.ToLower(venue)
	if venue == "" {
		venue = models.DefaultVenue
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if driver, ok := r.drivers[venue]; ok {
		return driver, nil
	}
	factory, ok := r.factories[venue]
	if !ok {
		return nil, &UnsupportedVenueError{Venue: venue}
	}
	driver, err := factory()
	if err != nil {
		return nil, fmt.Errorf("failed to construct %s driver: %w", venue, err)
	}
	r.drivers[venue] = driver
	return driver, nil
}
