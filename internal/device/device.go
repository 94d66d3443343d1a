// Package device provides the kiosk's position and camera sources.
package device

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sync"

	"geoponto/internal/model"
	"geoponto/internal/wizard"
)

var ErrStreamClosed = errors.New("camera stream closed")

// FixedGeolocator reports the surveyed position of a fixed station.
type FixedGeolocator struct {
	Location model.Location
}

func (g FixedGeolocator) Locate(ctx context.Context, highAccuracy bool) (model.Location, error) {
	if err := ctx.Err(); err != nil {
		return model.Location{}, err
	}
	return g.Location, nil
}

// NoGeolocator is used on stations without a configured position.
type NoGeolocator struct{}

func (NoGeolocator) Locate(ctx context.Context, highAccuracy bool) (model.Location, error) {
	return model.Location{}, wizard.ErrGeolocationUnsupported
}

// Geolocator picks the source for optional station coordinates.
func Geolocator(lat, lng *float64) wizard.Geolocator {
	if lat == nil || lng == nil {
		return NoGeolocator{}
	}
	return FixedGeolocator{Location: model.Location{Lat: *lat, Lng: *lng}}
}

// FileCamera serves still images from a directory: front.jpg (or .png) for
// the user-facing camera and rear.jpg for the environment camera.
type FileCamera struct {
	Dir string
}

func (c FileCamera) Open(ctx context.Context, facing wizard.Facing) (wizard.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := "front"
	if facing == wizard.FacingEnvironment {
		name = "rear"
	}
	for _, ext := range []string{".jpg", ".jpeg", ".png"} {
		path := filepath.Join(c.Dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return &fileStream{path: path}, nil
		}
	}
	return nil, fmt.Errorf("no %s camera image in %s", name, c.Dir)
}

type fileStream struct {
	path   string
	mu     sync.Mutex
	closed bool
}

// Frame decodes the current image from disk, so replacing the file changes
// what the next capture sees.
func (s *fileStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStreamClosed
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

func (s *fileStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
