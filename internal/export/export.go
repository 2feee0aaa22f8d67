package export

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/mattn/go-isatty"

	"github.com/openxe/oxe/internal/progress"
	"github.com/openxe/oxe/pkg/rlds"
)

// ErrDatasetMissing is returned when a dataset has not been downloaded
// into the data directory.
var ErrDatasetMissing = errors.New("export: dataset not downloaded")

// ErrNoImageKey is returned when a dataset carries no image-bearing
// observation keys. Callers skip the dataset and move on.
var ErrNoImageKey = errors.New("export: no image observation key")

// Encoder turns a sequence of encoded image frames into a video file.
type Encoder interface {
	EncodeFrames(ctx context.Context, frames [][]byte, outPath string, fps int) error
}

// Options control an export run.
type Options struct {
	// Split selects the dataset split to export.
	Split string

	// MaxEpisodes bounds how many episodes are rendered per dataset.
	// Zero or negative exports every episode.
	MaxEpisodes int64

	// FPS is the frame rate of the exported clips.
	FPS int

	// DisplayKey is the preferred observation key. It is used when the
	// dataset carries it; otherwise a key is picked from the image
	// candidates.
	DisplayKey string

	// KeyChoice picks a candidate key by 1-based position, bypassing the
	// interactive prompt. Zero means unset.
	KeyChoice int

	// Info additionally prints the dataset's frame geometry before
	// exporting.
	Info bool

	// Progress enables the per-dataset progress bar.
	Progress bool

	// Stdin and Stdout serve the interactive key prompt.
	Stdin  io.Reader
	Stdout io.Writer

	// Output receives status lines. Defaults to os.Stderr.
	Output io.Writer
}

func (o Options) output() io.Writer {
	if o.Output != nil {
		return o.Output
	}
	return os.Stderr
}

// Export renders up to opts.MaxEpisodes episodes of one dataset into
// <videoDir>/<dataset>/ep00000.mp4 and onward.
func Export(ctx context.Context, enc Encoder, dataset, dataDir, videoDir string, opts Options) error {
	versionDir := filepath.Join(dataDir, dataset, rlds.Version(dataset))
	if _, err := os.Stat(versionDir); err != nil {
		return fmt.Errorf("%w: %s", ErrDatasetMissing, versionDir)
	}

	info, err := rlds.LoadInfo(filepath.Join(versionDir, rlds.InfoFile))
	if err != nil {
		return err
	}
	split, err := info.Split(opts.Split)
	if err != nil {
		return err
	}

	key, err := resolveKey(ctx, versionDir, info, dataset, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(opts.output(), "[oxe] %s: exporting observation key %q\n", dataset, key)

	if opts.Info {
		printShape(ctx, versionDir, info, dataset, key, opts)
	}

	reader, err := rlds.OpenSplit(versionDir, info, dataset, opts.Split)
	if err != nil {
		return err
	}
	defer reader.Close()

	total := split.Episodes()
	if opts.MaxEpisodes > 0 && opts.MaxEpisodes < total {
		total = opts.MaxEpisodes
	}

	outDir := filepath.Join(videoDir, dataset)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	bar := progress.NewReporter(int(total), fmt.Sprintf("[oxe] %s ", dataset), opts.output(), opts.Progress)
	bar.Start()
	defer bar.Finish()

	var written int64
	for i := int64(0); i < total; i++ {
		ep, err := reader.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		frames, err := ep.Frames(key)
		if err != nil {
			return err
		}
		outPath := filepath.Join(outDir, fmt.Sprintf("ep%05d.mp4", i))
		if err := enc.EncodeFrames(ctx, frames, outPath, opts.FPS); err != nil {
			return fmt.Errorf("export: episode %d: %w", i, err)
		}
		written++
		bar.Increment()
	}

	fmt.Fprintf(opts.output(), "[oxe] %s: wrote %d episode(s) to %s\n", dataset, written, outDir)
	return nil
}

// printShape reports the first frame's geometry for the dataset. Best
// effort; the export proceeds either way.
func printShape(ctx context.Context, versionDir string, info *rlds.Info, dataset, key string, opts Options) {
	shape := "unknown"
	if cfg, ok := firstFrameConfig(ctx, versionDir, info, dataset, key, opts.Split); ok {
		shape = fmt.Sprintf("%dx%dx%d", cfg.Height, cfg.Width, channels(cfg))
	}
	fmt.Fprintf(opts.output(), "[oxe] %s: rgb_shape=%s fps=%d\n", dataset, shape, opts.FPS)
}

func firstFrameConfig(ctx context.Context, versionDir string, info *rlds.Info, dataset, key, split string) (image.Config, bool) {
	reader, err := rlds.OpenSplit(versionDir, info, dataset, split)
	if err != nil {
		return image.Config{}, false
	}
	defer reader.Close()

	ep, err := reader.Next(ctx)
	if err != nil {
		return image.Config{}, false
	}
	frames, err := ep.Frames(key)
	if err != nil || len(frames) == 0 {
		return image.Config{}, false
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(frames[0]))
	if err != nil {
		return image.Config{}, false
	}
	return cfg, true
}

func channels(cfg image.Config) int {
	switch cfg.ColorModel {
	case color.GrayModel, color.Gray16Model:
		return 1
	}
	return 3
}

// resolveKey determines which observation key to export. The requested
// key wins whenever the dataset carries it, image-named or not;
// otherwise a key is chosen among the image-bearing candidates, and a
// dataset with none is skipped.
func resolveKey(ctx context.Context, versionDir string, info *rlds.Info, dataset string, opts Options) (string, error) {
	keys, err := rlds.LoadObservationKeys(filepath.Join(versionDir, rlds.FeaturesFile))
	if err != nil {
		keys, err = firstEpisodeKeys(ctx, versionDir, info, dataset, opts.Split)
		if err != nil {
			return "", err
		}
	}

	for _, k := range keys {
		if k == opts.DisplayKey {
			return k, nil
		}
	}

	candidates := rlds.ImageKeys(keys)
	if len(candidates) == 0 {
		fmt.Fprintf(opts.output(), "[oxe] %s: no image-like keys, available: %s\n", dataset, strings.Join(keys, ", "))
		return "", fmt.Errorf("%w: %s", ErrNoImageKey, dataset)
	}

	key := chooseKey(candidates, dataset, opts)
	if opts.DisplayKey != "" && key != opts.DisplayKey {
		fmt.Fprintf(opts.output(), "[oxe] %s: using %q instead of %q\n", dataset, key, opts.DisplayKey)
	}
	return key, nil
}

// firstEpisodeKeys reads one episode off the split to discover which
// observation keys the dataset carries.
func firstEpisodeKeys(ctx context.Context, versionDir string, info *rlds.Info, dataset, split string) ([]string, error) {
	reader, err := rlds.OpenSplit(versionDir, info, dataset, split)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	ep, err := reader.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: %s: read first episode: %w", dataset, err)
	}
	return ep.ObservationKeys(), nil
}

// chooseKey selects one image candidate. A lone candidate wins, then a
// valid -key-choice; after that a terminal prompt decides, and outside a
// terminal the first candidate is used.
func chooseKey(candidates []string, dataset string, opts Options) string {
	if len(candidates) == 1 {
		fmt.Fprintf(opts.output(), "[oxe] %s: only one image key available: %s\n", dataset, candidates[0])
		return candidates[0]
	}

	fmt.Fprintf(opts.output(), "[oxe] %s: multiple image keys:\n", dataset)
	for i, k := range candidates {
		fmt.Fprintf(opts.output(), "  %d) %s\n", i+1, k)
	}

	if opts.KeyChoice != 0 {
		if opts.KeyChoice >= 1 && opts.KeyChoice <= len(candidates) {
			return candidates[opts.KeyChoice-1]
		}
		fmt.Fprintf(opts.output(), "[oxe] %s: key choice %d out of range 1-%d, falling back to selection\n",
			dataset, opts.KeyChoice, len(candidates))
	}

	if interactive(opts.Stdin) {
		return promptKey(candidates, opts)
	}
	fmt.Fprintf(opts.output(), "[oxe] %s: not a terminal, using %q\n", dataset, candidates[0])
	return candidates[0]
}

func interactive(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// promptKey asks the user to pick a candidate. Empty, non-numeric, or
// exhausted input picks the first; an out-of-range number re-prompts.
func promptKey(candidates []string, opts Options) string {
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}

	scanner := bufio.NewScanner(opts.Stdin)
	for {
		fmt.Fprintf(out, "Enter choice (1-%d) [default: 1]: ", len(candidates))
		if !scanner.Scan() {
			return candidates[0]
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			return candidates[0]
		}
		n, err := strconv.Atoi(text)
		if err != nil {
			return candidates[0]
		}
		if n < 1 || n > len(candidates) {
			fmt.Fprintf(out, "Please enter a number between 1 and %d\n", len(candidates))
			continue
		}
		return candidates[n-1]
	}
}
