package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ironsheep/edge-map-service/internal/imaging"
)

func stepPNG(t *testing.T, width, height, boundary int) []byte {
	t.Helper()
	grid := imaging.NewPixelGrid(width, height)
	for y := 0; y < height; y++ {
		for x := boundary; x < width; x++ {
			grid.Set(x, y, 255)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, grid.Gray()))
	return buf.Bytes()
}

func newNative(t *testing.T) Backend {
	t.Helper()
	b, err := NewBackend("native", BackendOptions{Luminance: imaging.LuminanceBT601, JPEGQuality: 90})
	require.NoError(t, err)
	return b
}

type recordingObserver struct {
	mu     sync.Mutex
	stages []string
	edges  []int
}

func (o *recordingObserver) ObserveStage(stage string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages = append(o.stages, stage)
}

func (o *recordingObserver) ObserveEdges(count int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.edges = append(o.edges, count)
}

// fakeBackend delegates to the native stages and records what it was asked.
type fakeBackend struct {
	Backend
	calls      []string
	thresholds imaging.Thresholds
	onDecode   func()
	detectErr  error
}

func (f *fakeBackend) Decode(buf []byte) (*imaging.PixelGrid, error) {
	f.calls = append(f.calls, StageDecode)
	if f.onDecode != nil {
		f.onDecode()
	}
	return f.Backend.Decode(buf)
}

func (f *fakeBackend) Detect(grid *imaging.PixelGrid, t imaging.Thresholds) (*imaging.PixelGrid, error) {
	f.calls = append(f.calls, StageDetect)
	f.thresholds = t
	if f.detectErr != nil {
		return nil, f.detectErr
	}
	return f.Backend.Detect(grid, t)
}

func (f *fakeBackend) Encode(edges *imaging.PixelGrid) ([]byte, error) {
	f.calls = append(f.calls, StageEncode)
	return f.Backend.Encode(edges)
}

func TestProcessStepImage(t *testing.T) {
	obs := &recordingObserver{}
	p := New(newNative(t), WithObserver(obs))

	res, err := p.Process(context.Background(), zap.NewNop(), stepPNG(t, 100, 100, 50))
	require.NoError(t, err)

	assert.Equal(t, 100, res.Width)
	assert.Equal(t, 100, res.Height)
	assert.Equal(t, 100, res.EdgePixels)
	assert.Equal(t, "native", res.Backend)
	assert.Equal(t, []byte{0xFF, 0xD8}, res.JPEG[:2])
	assert.True(t, res.Timings.Total >= res.Timings.Detect)

	assert.Equal(t, []string{StageDecode, StageDetect, StageEncode}, obs.stages)
	assert.Equal(t, []int{100}, obs.edges)
}

func TestProcessUsesDefaultThresholds(t *testing.T) {
	fb := &fakeBackend{Backend: newNative(t)}

	_, err := New(fb).Process(context.Background(), nil, stepPNG(t, 20, 20, 10))
	require.NoError(t, err)

	assert.Equal(t, imaging.Thresholds{Low: 20, High: 60}, fb.thresholds)
}

func TestProcessDecodeErrors(t *testing.T) {
	p := New(newNative(t))

	for name, body := range map[string][]byte{
		"empty":   {},
		"garbage": []byte("definitely not an image"),
	} {
		t.Run(name, func(t *testing.T) {
			res, err := p.Process(context.Background(), zap.NewNop(), body)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, imaging.ErrDecode))
			assert.True(t, imaging.IsKind(err, imaging.KindDecode))
			assert.Contains(t, err.Error(), "decode stage")
		})
	}
}

func TestProcessStageErrorStopsPipeline(t *testing.T) {
	fb := &fakeBackend{
		Backend:   newNative(t),
		detectErr: &imaging.Error{Op: "detect", Kind: imaging.KindEmptyGrid},
	}

	_, err := New(fb).Process(context.Background(), zap.NewNop(), stepPNG(t, 10, 10, 5))
	require.Error(t, err)

	assert.True(t, errors.Is(err, imaging.ErrEmptyGrid))
	assert.Contains(t, err.Error(), "detect stage")
	assert.Equal(t, []string{StageDecode, StageDetect}, fb.calls)
}

func TestProcessCanceledBeforeStart(t *testing.T) {
	fb := &fakeBackend{Backend: newNative(t)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(fb).Process(ctx, zap.NewNop(), stepPNG(t, 10, 10, 5))
	require.Error(t, err)

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, fb.calls)
}

func TestProcessCanceledBetweenStages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fb := &fakeBackend{Backend: newNative(t), onDecode: cancel}

	_, err := New(fb).Process(ctx, zap.NewNop(), stepPNG(t, 10, 10, 5))
	require.Error(t, err)

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Contains(t, err.Error(), "before detect")
	assert.Equal(t, []string{StageDecode}, fb.calls)
}

func TestProcessLogsTimingsAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	_, err := New(newNative(t)).Process(context.Background(), zap.New(core), stepPNG(t, 30, 30, 15))
	require.NoError(t, err)

	entries := logs.FilterMessage("edge map produced").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "native", fields["backend"])
	assert.EqualValues(t, 30, fields["width"])
	assert.Contains(t, fields, "detect")
}

func TestProcessConcurrent(t *testing.T) {
	p := New(newNative(t))
	body := stepPNG(t, 64, 64, 32)

	var wg sync.WaitGroup
	results := make([]*Result, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = p.Process(context.Background(), zap.NewNop(), body)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].JPEG, results[i].JPEG)
	}
}

func TestNewBackend(t *testing.T) {
	assert.Contains(t, Backends(), "native")

	_, err := NewBackend("quantum", BackendOptions{})
	assert.Error(t, err)

	_, err = NewBackend("native", BackendOptions{Luminance: "sepia"})
	assert.Error(t, err)

	b, err := NewBackend("native", BackendOptions{})
	require.NoError(t, err)
	assert.Equal(t, "native", b.Name())
}
