package generate

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openxe/oxe/internal/video"
)

type fakeProber struct {
	probe *video.Probe
	err   error
}

func (f fakeProber) Probe(context.Context, string) (*video.Probe, error) {
	return f.probe, f.err
}

type fakeRunner struct {
	model  string
	input  map[string]any
	output any
	err    error
}

func (f *fakeRunner) Run(_ context.Context, model string, input map[string]any) (any, error) {
	f.model = model
	f.input = input
	return f.output, f.err
}

type fakeFetcher struct {
	url  string
	dest string
	err  error
}

func (f *fakeFetcher) Download(_ context.Context, url, dest string) (int64, error) {
	f.url = url
	f.dest = dest
	if f.err != nil {
		return 0, f.err
	}
	return int64(len("result")), os.WriteFile(dest, []byte("result"), 0o644)
}

func goodProbe() *video.Probe {
	return &video.Probe{
		Width:        1280,
		Height:       720,
		AvgFrameRate: video.Rational{Num: 24, Den: 1},
		Duration:     4.2,
	}
}

func defaultOptions() Options {
	return Options{
		Prompt:        "make it rain",
		Model:         "runwayml/gen4-aleph",
		FPS:           24,
		MaxDuration:   5 * time.Second,
		MaxUploadSize: 1 << 20,
		Output:        &bytes.Buffer{},
	}
}

// writeClip drops a small fake MP4 under <videoDir>/<dataset>/.
func writeClip(t *testing.T, videoDir, dataset, name string) {
	t.Helper()
	dir := filepath.Join(videoDir, dataset)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("mp4 bytes"), 0o644))
}

func TestGenerate(t *testing.T) {
	videoDir := t.TempDir()
	writeClip(t, videoDir, "fractal", "ep00001.mp4")

	runner := &fakeRunner{output: "https://example.com/out.mp4"}
	fetcher := &fakeFetcher{}

	outPath, err := Generate(context.Background(), fakeProber{probe: goodProbe()}, runner, fetcher,
		videoDir, "fractal", "ep00001.mp4", defaultOptions())
	require.NoError(t, err)

	want := filepath.Join(videoDir, "fractal", "generated", "ep00001_generated-001.mp4")
	assert.Equal(t, want, outPath)
	assert.Equal(t, "https://example.com/out.mp4", fetcher.url)
	assert.Equal(t, want, fetcher.dest)

	assert.Equal(t, "runwayml/gen4-aleph", runner.model)
	assert.Equal(t, "make it rain", runner.input["prompt"])
	assert.Equal(t, "16:9", runner.input["aspect_ratio"])
	assert.Contains(t, runner.input["video"], "data:video/mp4;base64,")
	assert.NotContains(t, runner.input, "seed")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "result", string(data))
}

func TestGenerateSeedForwarded(t *testing.T) {
	videoDir := t.TempDir()
	writeClip(t, videoDir, "fractal", "ep00001.mp4")

	runner := &fakeRunner{output: "https://example.com/out.mp4"}
	opts := defaultOptions()
	seed := 42
	opts.Seed = &seed

	_, err := Generate(context.Background(), fakeProber{probe: goodProbe()}, runner, &fakeFetcher{},
		videoDir, "fractal", "ep00001.mp4", opts)
	require.NoError(t, err)
	assert.Equal(t, 42, runner.input["seed"])
}

func TestGenerateListOutput(t *testing.T) {
	videoDir := t.TempDir()
	writeClip(t, videoDir, "fractal", "ep00001.mp4")

	runner := &fakeRunner{output: []any{"https://example.com/first.mp4", "https://example.com/second.mp4"}}
	fetcher := &fakeFetcher{}

	_, err := Generate(context.Background(), fakeProber{probe: goodProbe()}, runner, fetcher,
		videoDir, "fractal", "ep00001.mp4", defaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/first.mp4", fetcher.url)
}

func TestGenerateVideoNotFound(t *testing.T) {
	_, err := Generate(context.Background(), fakeProber{}, &fakeRunner{}, &fakeFetcher{},
		t.TempDir(), "fractal", "missing.mp4", defaultOptions())
	assert.ErrorIs(t, err, ErrVideoNotFound)
}

func TestGenerateRejectsWrongFPS(t *testing.T) {
	videoDir := t.TempDir()
	writeClip(t, videoDir, "fractal", "ep00001.mp4")

	probe := goodProbe()
	probe.AvgFrameRate = video.Rational{Num: 24000, Den: 1001}
	_, err := Generate(context.Background(), fakeProber{probe: probe}, &fakeRunner{}, &fakeFetcher{},
		videoDir, "fractal", "ep00001.mp4", defaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "24fps exactly")
}

func TestGenerateRejectsLongVideo(t *testing.T) {
	videoDir := t.TempDir()
	writeClip(t, videoDir, "fractal", "ep00001.mp4")

	probe := goodProbe()
	probe.Duration = 5.5
	_, err := Generate(context.Background(), fakeProber{probe: probe}, &fakeRunner{}, &fakeFetcher{},
		videoDir, "fractal", "ep00001.mp4", defaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be <=")
}

func TestGenerateRejectsOversizedFile(t *testing.T) {
	videoDir := t.TempDir()
	writeClip(t, videoDir, "fractal", "ep00001.mp4")

	opts := defaultOptions()
	opts.MaxUploadSize = 4
	_, err := Generate(context.Background(), fakeProber{probe: goodProbe()}, &fakeRunner{}, &fakeFetcher{},
		videoDir, "fractal", "ep00001.mp4", opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data URI")
}

func TestGenerateRunnerFailure(t *testing.T) {
	videoDir := t.TempDir()
	writeClip(t, videoDir, "fractal", "ep00001.mp4")

	runner := &fakeRunner{err: errors.New("model exploded")}
	_, err := Generate(context.Background(), fakeProber{probe: goodProbe()}, runner, &fakeFetcher{},
		videoDir, "fractal", "ep00001.mp4", defaultOptions())
	assert.ErrorContains(t, err, "model exploded")
}

func TestSelectAspectRatio(t *testing.T) {
	tests := []struct {
		name    string
		w, h    int
		want    string
		wantErr bool
	}{
		{name: "16:9", w: 1280, h: 720, want: "16:9"},
		{name: "9:16", w: 720, h: 1280, want: "9:16"},
		{name: "4:3", w: 640, h: 480, want: "4:3"},
		{name: "square", w: 512, h: 512, want: "1:1"},
		{name: "ultrawide", w: 2520, h: 1080, want: "21:9"},
		{name: "near 16:9 within tolerance", w: 1278, h: 720, want: "16:9"},
		{name: "odd ratio", w: 1000, h: 300, wantErr: true},
		{name: "zero width", w: 0, h: 480, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectAspectRatio(tt.w, tt.h)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextOutputPath(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"ep00001_generated-001.mp4",
		"ep00001_generated-007.mp4",
		"ep00001_generated-xyz.mp4", // malformed, ignored
		"ep00002_generated-099.mp4", // different base
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	got, err := nextOutputPath(dir, "ep00001.mp4")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ep00001_generated-008.mp4"), got)

	got, err = nextOutputPath(dir, "ep00003.mp4")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ep00003_generated-001.mp4"), got)
}

func TestOutputURL(t *testing.T) {
	url, err := outputURL("https://example.com/a.mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.mp4", url)

	url, err = outputURL([]any{"https://example.com/b.mp4"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/b.mp4", url)

	_, err = outputURL(nil)
	assert.Error(t, err)
	_, err = outputURL([]any{})
	assert.Error(t, err)
	_, err = outputURL(42)
	assert.Error(t, err)
}

func TestDataURI(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	uri, err := dataURI(path)
	require.NoError(t, err)
	assert.Equal(t, "data:video/mp4;base64,YWJj", uri)
}
