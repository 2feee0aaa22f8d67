package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/openxe/oxe/internal/config"
	"github.com/openxe/oxe/internal/export"
	"github.com/openxe/oxe/internal/video"
)

func runExport(args []string) int {
	fs := flag.NewFlagSet("export", flag.ExitOnError)

	var datasets stringList
	fs.Var(&datasets, "dataset", "Dataset name (repeatable)")
	datasetList := fs.String("datasets", "", "Comma- or space-separated dataset names")
	episodes := fs.Int64("episodes", 5, "Max episodes per dataset; 0 exports everything")
	configPath := fs.String("config", "", "Path to YAML config file")
	dataDir := fs.String("data-dir", "", "Local dataset directory")
	videoDir := fs.String("video-dir", "", "Output video directory")
	split := fs.String("split", "", "Split to export (default train)")
	fps := fs.Int("fps", 0, "Frame rate of the exported clips (default 24)")
	key := fs.String("key", "", "Preferred observation image key (default image)")
	keyChoice := fs.Int("key-choice", 0, "Pick the Nth candidate key instead of prompting")
	info := fs.Bool("info", false, "Print frame geometry instead of encoding")
	noProgress := fs.Bool("no-progress", false, "Disable the progress bar")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: oxe export [options]

Render downloaded episodes as MP4 clips under <video-dir>/<dataset>/.
Each episode's camera frames are piped through ffmpeg; the observation
key comes from the dataset's feature sidecar, a flag, or a prompt when
several cameras are available.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	cfg = cfg.Merge(config.Config{
		DataDir:    *dataDir,
		VideoDir:   *videoDir,
		Split:      *split,
		FPS:        *fps,
		DisplayKey: *key,
	})
	if *noProgress {
		cfg.Progress = false
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	ctx, cancel := signalContext()
	defer cancel()

	enc := video.New()
	opts := export.Options{
		Split:       cfg.Split,
		MaxEpisodes: *episodes,
		FPS:         cfg.FPS,
		DisplayKey:  cfg.DisplayKey,
		KeyChoice:   *keyChoice,
		Info:        *info,
		Progress:    cfg.Progress,
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
	}

	for _, dataset := range resolveDatasets(datasets, *datasetList) {
		err := export.Export(ctx, enc, dataset, cfg.DataDir, cfg.VideoDir, opts)
		if errors.Is(err, export.ErrDatasetMissing) {
			fmt.Fprintf(os.Stderr, "[oxe] skipping %s: not downloaded\n", dataset)
			continue
		}
		if errors.Is(err, export.ErrNoImageKey) {
			fmt.Fprintf(os.Stderr, "[oxe] skipping %s: no image key selected\n", dataset)
			continue
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitEncodeError
		}
	}

	return ExitSuccess
}
