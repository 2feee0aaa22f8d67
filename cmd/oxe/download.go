package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/openxe/oxe/internal/config"
	"github.com/openxe/oxe/internal/downloader"
	"github.com/openxe/oxe/internal/storage"
)

func runDownload(args []string) int {
	fs := flag.NewFlagSet("download", flag.ExitOnError)

	var datasets stringList
	fs.Var(&datasets, "dataset", "Dataset name (repeatable)")
	datasetList := fs.String("datasets", "", "Comma- or space-separated dataset names")
	episodes := fs.Int64("episodes", 0, "Max episodes per dataset; 0 downloads everything")
	configPath := fs.String("config", "", "Path to YAML config file")
	mirror := fs.String("mirror", "", "Mirror bucket URL (default gs://gresearch/robotics)")
	dataDir := fs.String("data-dir", "", "Local dataset directory")
	split := fs.String("split", "", "Split used for episode budgeting (default train)")
	workers := fs.Int("workers", 0, "Number of parallel object fetches")
	noProgress := fs.Bool("no-progress", false, "Disable the progress bar")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: oxe download [options]

Fetch one or more episode datasets from the public mirror. With
-episodes the download is trimmed to the fewest leading shards covering
the budget, shard files are renumbered contiguously, and the dataset
sidecar is rewritten to match.

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
		Mirror:  *mirror,
		DataDir: *dataDir,
		Split:   *split,
		Workers: *workers,
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

	bucket, err := storage.OpenMirror(ctx, cfg.Mirror)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitMirrorError
	}
	defer bucket.Close()

	opts := downloader.Options{
		Split:       cfg.Split,
		MaxEpisodes: *episodes,
		Workers:     cfg.Workers,
		Progress:    cfg.Progress,
	}

	for _, dataset := range resolveDatasets(datasets, *datasetList) {
		fmt.Fprintf(os.Stderr, "[oxe] downloading %s\n", dataset)
		if err := downloader.Download(ctx, bucket, dataset, cfg.DataDir, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if errors.Is(err, downloader.ErrDatasetNotFound) {
				return ExitDatasetNotFound
			}
			return ExitMirrorError
		}
	}

	return ExitSuccess
}
