package generate

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/openxe/oxe/internal/video"
)

// supportedRatios are the aspect ratios the model accepts, checked in
// order against the probed dimensions.
var supportedRatios = []struct {
	Name  string
	Value float64
}{
	{"16:9", 16.0 / 9.0},
	{"9:16", 9.0 / 16.0},
	{"4:3", 4.0 / 3.0},
	{"3:4", 3.0 / 4.0},
	{"1:1", 1.0},
	{"21:9", 21.0 / 9.0},
}

// ratioTolerance is how far the probed ratio may deviate from a
// supported one.
const ratioTolerance = 0.01

// ErrVideoNotFound is returned when the named clip does not exist under
// the video directory.
var ErrVideoNotFound = errors.New("generate: video not found")

// Prober inspects a video file's stream properties.
type Prober interface {
	Probe(ctx context.Context, path string) (*video.Probe, error)
}

// Runner submits a prediction to the hosted model and returns its raw
// output.
type Runner interface {
	Run(ctx context.Context, model string, input map[string]any) (any, error)
}

// Fetcher downloads a result URL to a local file.
type Fetcher interface {
	Download(ctx context.Context, url, dest string) (int64, error)
}

// Options control a generation run.
type Options struct {
	// Prompt is the text instruction sent alongside the video.
	Prompt string

	// Model is the hosted model reference as "owner/name".
	Model string

	// FPS is the frame rate the model requires, exactly.
	FPS int

	// MaxDuration caps the input clip length.
	MaxDuration time.Duration

	// MaxUploadSize caps the input file size in bytes. The clip travels
	// inline as a base64 data URI, so the limit is tight.
	MaxUploadSize int64

	// Seed, when non-nil, pins the model's sampling.
	Seed *int

	// Output receives status lines. Defaults to os.Stderr.
	Output io.Writer
}

func (o Options) output() io.Writer {
	if o.Output != nil {
		return o.Output
	}
	return os.Stderr
}

// Generate validates <videoDir>/<dataset>/<videoName>, submits it with the
// prompt, and writes the model's output under the dataset's generated/
// directory. It returns the path of the stored result.
func Generate(ctx context.Context, prober Prober, runner Runner, fetcher Fetcher, videoDir, dataset, videoName string, opts Options) (string, error) {
	videoPath := filepath.Join(videoDir, dataset, videoName)
	if fi, err := os.Stat(videoPath); err != nil || fi.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrVideoNotFound, videoPath)
	}

	outDir := filepath.Join(videoDir, dataset, "generated")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	outPath, err := nextOutputPath(outDir, videoName)
	if err != nil {
		return "", err
	}

	probe, err := prober.Probe(ctx, videoPath)
	if err != nil {
		return "", err
	}
	if err := requireExactFPS(probe.AvgFrameRate, opts.FPS); err != nil {
		return "", err
	}
	ratio, err := selectAspectRatio(probe.Width, probe.Height)
	if err != nil {
		return "", err
	}
	if err := requireMaxDuration(probe.Duration, opts.MaxDuration); err != nil {
		return "", err
	}
	if err := requireMaxSize(videoPath, opts.MaxUploadSize); err != nil {
		return "", err
	}
	fmt.Fprintf(opts.output(), "[oxe] %s: aspect ratio %s (%dx%d)\n", videoName, ratio, probe.Width, probe.Height)

	uri, err := dataURI(videoPath)
	if err != nil {
		return "", err
	}

	input := map[string]any{
		"video":        uri,
		"prompt":       opts.Prompt,
		"aspect_ratio": ratio,
	}
	if opts.Seed != nil {
		input["seed"] = *opts.Seed
	}

	fmt.Fprintf(opts.output(), "[oxe] submitting %s to %s\n", videoName, opts.Model)
	out, err := runner.Run(ctx, opts.Model, input)
	if err != nil {
		return "", err
	}
	url, err := outputURL(out)
	if err != nil {
		return "", err
	}

	if _, err := fetcher.Download(ctx, url, outPath); err != nil {
		return "", fmt.Errorf("generate: fetch result: %w", err)
	}
	fmt.Fprintf(opts.output(), "[oxe] wrote generated video to %s\n", outPath)
	return outPath, nil
}

// nextOutputPath picks <base>_generated-NNN<ext> with NNN one past the
// highest existing number in dir. Malformed names are ignored.
func nextOutputPath(dir, videoName string) (string, error) {
	ext := filepath.Ext(videoName)
	if ext == "" {
		ext = ".mp4"
	}
	base := strings.TrimSuffix(videoName, filepath.Ext(videoName))
	prefix := base + "_generated-"

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	highest := 0
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
			continue
		}
		n, err := strconv.Atoi(name[len(prefix) : len(name)-len(ext)])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}

	return filepath.Join(dir, fmt.Sprintf("%s%03d%s", prefix, highest+1, ext)), nil
}

// requireExactFPS rejects any frame rate that does not reduce to fps/1.
// 24000/1001 is close to 24 but not close enough for the model.
func requireExactFPS(rate video.Rational, fps int) error {
	if !rate.IsExactly(fps) {
		return fmt.Errorf("generate: video must be %dfps exactly, found %s fps", fps, rate)
	}
	return nil
}

// selectAspectRatio maps probed dimensions to the nearest supported
// ratio, requiring a close match.
func selectAspectRatio(width, height int) (string, error) {
	if width <= 0 || height <= 0 {
		return "", fmt.Errorf("generate: invalid video dimensions %dx%d", width, height)
	}
	ratio := float64(width) / float64(height)

	best := ""
	minDelta := math.Inf(1)
	for _, r := range supportedRatios {
		if delta := math.Abs(ratio - r.Value); delta < minDelta {
			minDelta = delta
			best = r.Name
		}
	}
	if minDelta > ratioTolerance {
		names := make([]string, len(supportedRatios))
		for i, r := range supportedRatios {
			names[i] = r.Name
		}
		return "", fmt.Errorf("generate: unsupported aspect ratio %d:%d (~%.3f), supported: %s",
			width, height, ratio, strings.Join(names, ", "))
	}
	return best, nil
}

func requireMaxDuration(seconds float64, max time.Duration) error {
	if seconds > max.Seconds()+1e-6 {
		return fmt.Errorf("generate: video must be <= %s, found %.3fs", max, seconds)
	}
	return nil
}

func requireMaxSize(path string, maxBytes int64) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	if fi.Size() > maxBytes {
		return fmt.Errorf("generate: video file must be <= %d bytes for the data URI, found %d", maxBytes, fi.Size())
	}
	return nil
}

// dataURI reads the clip and encodes it inline. The MIME type comes from
// the file extension, defaulting to video/mp4.
func dataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "video/mp4"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// outputURL normalizes the model output, which arrives either as a bare
// URL or as a list of URLs.
func outputURL(out any) (string, error) {
	switch v := out.(type) {
	case string:
		return v, nil
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s, nil
			}
		}
	}
	return "", fmt.Errorf("generate: unexpected model output %T", out)
}
