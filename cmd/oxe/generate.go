package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/openxe/oxe/internal/config"
	"github.com/openxe/oxe/internal/generate"
	oxehttp "github.com/openxe/oxe/internal/http"
	"github.com/openxe/oxe/internal/video"
)

func runGenerate(args []string) int {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)

	dataset := fs.String("dataset", "", "Dataset the clip belongs to (required)")
	videoName := fs.String("video", "", "Clip filename under <video-dir>/<dataset>/ (required)")
	prompt := fs.String("prompt", "", "Text prompt for the model (required)")
	configPath := fs.String("config", "", "Path to YAML config file")
	videoDir := fs.String("video-dir", "", "Video directory")
	model := fs.String("model", "", "Hosted model as owner/name (default runwayml/gen4-aleph)")
	seed := fs.Int("seed", -1, "Sampling seed; negative leaves it to the model")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: oxe generate [options]

Send an exported clip and a prompt to the hosted video model and store
the result as <clip>_generated-NNN.mp4 under the dataset's generated/
directory. The clip must be exactly 24fps, at most 5 seconds, at most
1MB, and in a supported aspect ratio. REPLICATE_API_TOKEN must be set.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	if *dataset == "" || *videoName == "" || *prompt == "" {
		fmt.Fprintln(os.Stderr, "Error: -dataset, -video, and -prompt are required")
		fs.Usage()
		return ExitInvalidArgs
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	cfg = cfg.Merge(config.Config{
		VideoDir: *videoDir,
		Model:    *model,
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	ctx, cancel := signalContext()
	defer cancel()

	runner, err := generate.NewReplicateRunner()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInferenceError
	}
	fetcher := oxehttp.NewClient(oxehttp.Options{
		RetryAttempts:   cfg.Retry.Attempts,
		RetryBackoff:    cfg.Retry.Backoff,
		RetryMaxBackoff: cfg.Retry.MaxBackoff,
	})

	opts := generate.Options{
		Prompt:        *prompt,
		Model:         cfg.Model,
		FPS:           cfg.FPS,
		MaxDuration:   cfg.MaxDuration,
		MaxUploadSize: cfg.MaxUploadSize,
	}
	if *seed >= 0 {
		opts.Seed = seed
	}

	outPath, err := generate.Generate(ctx, video.New(), runner, fetcher, cfg.VideoDir, *dataset, *videoName, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, generate.ErrVideoNotFound) {
			return ExitInvalidArgs
		}
		return ExitInferenceError
	}

	fmt.Fprintf(os.Stderr, "[oxe] done: %s\n", outPath)
	return ExitSuccess
}
