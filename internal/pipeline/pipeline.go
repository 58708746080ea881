// Package pipeline composes the decode, detect and encode stages into the
// single request operation served over HTTP.
//
// A Pipeline is immutable after construction and safe for concurrent use.
// Each Process call owns its buffers; grids move from stage to stage and are
// dropped when the call returns.
package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ironsheep/edge-map-service/internal/imaging"
)

// DefaultThresholds are the hysteresis bounds applied to every request.
var DefaultThresholds = imaging.Thresholds{Low: 20, High: 60}

// Stage names, used for timings, logs and metrics labels.
const (
	StageDecode = "decode"
	StageDetect = "detect"
	StageEncode = "encode"
)

// Observer receives measurements of completed stages. Implementations must
// be safe for concurrent use.
type Observer interface {
	ObserveStage(stage string, d time.Duration)
	ObserveEdges(count int)
}

type nopObserver struct{}

func (nopObserver) ObserveStage(string, time.Duration) {}
func (nopObserver) ObserveEdges(int)                   {}

// Timings records how long each stage of one request took.
type Timings struct {
	Decode time.Duration
	Detect time.Duration
	Encode time.Duration
	Total  time.Duration
}

// Result is the outcome of a successful Process call.
type Result struct {
	// JPEG is the encoded edge map.
	JPEG []byte

	Width      int
	Height     int
	EdgePixels int

	// Backend names the implementation that produced the map.
	Backend string
	Timings Timings
}

// Pipeline runs decode → detect → encode on a Backend.
type Pipeline struct {
	backend    Backend
	thresholds imaging.Thresholds
	observer   Observer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver reports stage durations and edge counts to o.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observer = o
		}
	}
}

// New creates a pipeline over backend using DefaultThresholds.
func New(backend Backend, opts ...Option) *Pipeline {
	p := &Pipeline{
		backend:    backend,
		thresholds: DefaultThresholds,
		observer:   nopObserver{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Backend returns the name of the backend in use.
func (p *Pipeline) Backend() string {
	return p.backend.Name()
}

// Process turns an encoded image into a JPEG edge map.
//
// log is the caller's request-scoped logger; stage timings are written to
// it at debug level. ctx is checked before every stage: once it is done the
// remaining stages are skipped and ctx.Err() is returned wrapped. Stage
// failures are returned wrapped with the stage name and keep their
// imaging.Kind, so errors.Is(err, imaging.ErrDecode) and friends still work.
func (p *Pipeline) Process(ctx context.Context, log *zap.Logger, body []byte) (*Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("backend", p.backend.Name()))
	start := time.Now()

	var (
		timings Timings
		grid    *imaging.PixelGrid
		edges   *imaging.PixelGrid
		encoded []byte
	)

	err := p.run(ctx, log, StageDecode, &timings.Decode, func() (err error) {
		grid, err = p.backend.Decode(body)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = p.run(ctx, log, StageDetect, &timings.Detect, func() (err error) {
		edges, err = p.backend.Detect(grid, p.thresholds)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = p.run(ctx, log, StageEncode, &timings.Encode, func() (err error) {
		encoded, err = p.backend.Encode(edges)
		return err
	})
	if err != nil {
		return nil, err
	}

	timings.Total = time.Since(start)
	count := edges.Count(imaging.EdgeValue)
	p.observer.ObserveEdges(count)

	log.Debug("edge map produced",
		zap.Int("width", edges.Width),
		zap.Int("height", edges.Height),
		zap.Int("edge_pixels", count),
		zap.Int("input_bytes", len(body)),
		zap.Int("output_bytes", len(encoded)),
		zap.Duration("decode", timings.Decode),
		zap.Duration("detect", timings.Detect),
		zap.Duration("encode", timings.Encode),
		zap.Duration("total", timings.Total),
	)

	return &Result{
		JPEG:       encoded,
		Width:      edges.Width,
		Height:     edges.Height,
		EdgePixels: count,
		Backend:    p.backend.Name(),
		Timings:    timings,
	}, nil
}

// run executes one stage after checking ctx, storing its duration in *took.
func (p *Pipeline) run(ctx context.Context, log *zap.Logger, stage string, took *time.Duration, fn func() error) error {
	if err := ctx.Err(); err != nil {
		log.Debug("request abandoned", zap.String("before_stage", stage), zap.Error(err))
		return errors.Wrapf(err, "pipeline aborted before %s", stage)
	}

	begin := time.Now()
	err := fn()
	*took = time.Since(begin)

	if err != nil {
		log.Debug("stage failed", zap.String("stage", stage), zap.Duration("took", *took), zap.Error(err))
		return errors.Wrapf(err, "%s stage", stage)
	}
	p.observer.ObserveStage(stage, *took)
	return nil
}
