package pipeline

import (
	"fmt"
	"sort"

	"github.com/ironsheep/edge-map-service/internal/imaging"
)

// Backend implements the three stages. Implementations must be stateless
// across calls and report failures as *imaging.Error values.
type Backend interface {
	Name() string
	Decode(buf []byte) (*imaging.PixelGrid, error)
	Detect(grid *imaging.PixelGrid, t imaging.Thresholds) (*imaging.PixelGrid, error)
	Encode(edges *imaging.PixelGrid) ([]byte, error)
}

// BackendOptions are the codec settings shared by every backend.
type BackendOptions struct {
	Luminance   imaging.Luminance
	JPEGQuality int

	// MaxPixels caps the declared size of decoded images; 0 means no cap.
	MaxPixels int64
}

type backendFactory func(BackendOptions) (Backend, error)

var backends = map[string]backendFactory{
	"native": newNativeBackend,
}

// register makes a backend selectable by name. Called from init functions
// of optional backends.
func register(name string, f backendFactory) {
	backends[name] = f
}

// NewBackend builds the named backend. Backends compiled out of the binary
// are reported as unknown.
func NewBackend(name string, opts BackendOptions) (Backend, error) {
	f, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (available: %v)", name, Backends())
	}
	return f(opts)
}

// Backends lists the backend names compiled into this binary.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// nativeBackend is the pure-Go implementation in package imaging.
type nativeBackend struct {
	decodeOpts []imaging.DecodeOption
	encodeOpts []imaging.EncodeOption
}

func newNativeBackend(opts BackendOptions) (Backend, error) {
	lum, err := imaging.ParseLuminance(string(opts.Luminance))
	if err != nil {
		return nil, err
	}
	b := &nativeBackend{
		decodeOpts: []imaging.DecodeOption{
			imaging.WithLuminance(lum),
			imaging.WithMaxPixels(opts.MaxPixels),
		},
	}
	if opts.JPEGQuality != 0 {
		b.encodeOpts = append(b.encodeOpts, imaging.WithQuality(opts.JPEGQuality))
	}
	return b, nil
}

func (b *nativeBackend) Name() string { return "native" }

func (b *nativeBackend) Decode(buf []byte) (*imaging.PixelGrid, error) {
	return imaging.Decode(buf, b.decodeOpts...)
}

func (b *nativeBackend) Detect(grid *imaging.PixelGrid, t imaging.Thresholds) (*imaging.PixelGrid, error) {
	return imaging.Detect(grid, t)
}

func (b *nativeBackend) Encode(edges *imaging.PixelGrid) ([]byte, error) {
	return imaging.Encode(edges, b.encodeOpts...)
}
