package wizard

import (
	"context"
	"errors"
	"image"

	"geoponto/internal/model"
)

type Facing string

const (
	FacingUser        Facing = "user"
	FacingEnvironment Facing = "environment"
)

// ErrGeolocationUnsupported is returned by a Geolocator when the device has
// no positioning capability at all, as opposed to a denied request.
var ErrGeolocationUnsupported = errors.New("geolocation not supported")

// Geolocator answers a single position query.
type Geolocator interface {
	Locate(ctx context.Context, highAccuracy bool) (model.Location, error)
}

// Camera opens a video stream for the requested facing mode.
type Camera interface {
	Open(ctx context.Context, facing Facing) (Stream, error)
}

// Stream is an open camera. Close stops all of its tracks.
type Stream interface {
	Frame() (image.Image, error)
	Close() error
}

// Sink receives each finished record exactly once.
type Sink interface {
	Append(ctx context.Context, record model.PointRecord) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, record model.PointRecord) error

func (f SinkFunc) Append(ctx context.Context, record model.PointRecord) error {
	return f(ctx, record)
}
