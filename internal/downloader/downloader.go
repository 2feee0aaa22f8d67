package downloader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"gocloud.dev/blob"
	"golang.org/x/sync/errgroup"

	"github.com/openxe/oxe/internal/progress"
	"github.com/openxe/oxe/internal/storage"
	"github.com/openxe/oxe/pkg/rlds"
)

// Options configures a dataset download.
type Options struct {
	// Split is the split used for selective shard planning.
	// Default: "train".
	Split string

	// MaxEpisodes caps the episode count per dataset. Zero or less
	// downloads the entire dataset.
	MaxEpisodes int64

	// Workers is the number of parallel object fetches.
	// Default: 4.
	Workers int

	// Progress enables a terminal progress bar.
	Progress bool

	// Output receives status lines. Default: os.Stderr.
	Output io.Writer
}

// ErrDatasetNotFound is returned when the mirror has no objects under the
// dataset's version prefix.
var ErrDatasetNotFound = fmt.Errorf("downloader: dataset not found on mirror")

// Download fetches one dataset from the mirror into dataDir, laying files
// out as <dataDir>/<dataset>/<version>/.
func Download(ctx context.Context, mirror *blob.Bucket, dataset, dataDir string, opts Options) error {
	if opts.Split == "" {
		opts.Split = "train"
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Output == nil {
		opts.Output = os.Stderr
	}

	if opts.MaxEpisodes > 0 {
		return downloadSelective(ctx, mirror, dataset, dataDir, opts)
	}
	return downloadFull(ctx, mirror, dataset, dataDir, opts)
}

// downloadFull mirrors every object under the dataset's version prefix.
func downloadFull(ctx context.Context, mirror *blob.Bucket, dataset, dataDir string, opts Options) error {
	prefix := rlds.Path(dataset) + "/"

	keys, err := storage.List(ctx, mirror, prefix)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, prefix)
	}

	fmt.Fprintf(opts.Output, "[oxe] %s: downloading %d objects\n", dataset, len(keys))

	bar := progress.NewReporter(len(keys), dataset+" ", opts.Output, opts.Progress)
	bar.Start()
	defer bar.Finish()

	var bytes atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			n, err := storage.Fetch(gctx, mirror, key, filepath.Join(dataDir, filepath.FromSlash(key)))
			if err != nil {
				return err
			}
			bytes.Add(n)
			bar.Increment()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(opts.Output, "[oxe] %s: downloaded %s\n", dataset, progress.FormatBytes(bytes.Load()))
	return nil
}

// downloadSelective fetches the sidecars, plans the shard prefix covering
// the episode budget, fetches those shards under renumbered filenames and
// rewrites dataset_info.json to match.
func downloadSelective(ctx context.Context, mirror *blob.Bucket, dataset, dataDir string, opts Options) error {
	prefix := rlds.Path(dataset) + "/"
	versionDir := filepath.Join(dataDir, dataset, rlds.Version(dataset))

	for _, sidecar := range []string{rlds.InfoFile, rlds.FeaturesFile} {
		if _, err := storage.Fetch(ctx, mirror, prefix+sidecar, filepath.Join(versionDir, sidecar)); err != nil {
			if storage.IsNotExist(err) {
				return fmt.Errorf("%w: %s", ErrDatasetNotFound, prefix+sidecar)
			}
			return err
		}
	}

	infoPath := filepath.Join(versionDir, rlds.InfoFile)
	info, err := rlds.LoadInfo(infoPath)
	if err != nil {
		return err
	}
	split, err := info.Split(opts.Split)
	if err != nil {
		return err
	}

	plan, err := rlds.PlanShards(split.ShardLengths, opts.MaxEpisodes)
	if err != nil {
		return err
	}

	fmt.Fprintf(opts.Output, "[oxe] %s: %d shard(s) cover %d episodes (budget %d)\n",
		dataset, len(plan.Shards), plan.Episodes, opts.MaxEpisodes)

	origTotal := len(split.ShardLengths)
	newTotal := len(plan.Shards)

	bar := progress.NewReporter(newTotal, dataset+" ", opts.Output, opts.Progress)
	bar.Start()
	defer bar.Finish()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for newIdx, origIdx := range plan.Shards {
		newIdx, origIdx := newIdx, origIdx
		g.Go(func() error {
			src := prefix + split.ShardFilename(dataset, origIdx, origTotal)
			dest := filepath.Join(versionDir, split.ShardFilename(dataset, newIdx, newTotal))
			if _, err := storage.Fetch(gctx, mirror, src, dest); err != nil {
				return err
			}
			bar.Increment()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// The sidecar must only reference shards that exist locally, otherwise
	// readers go looking for the rest of the original shard set.
	split.Truncate(plan)
	if err := info.Save(infoPath); err != nil {
		return err
	}

	fmt.Fprintf(opts.Output, "[oxe] %s: sidecar rewritten for %d shard(s)\n", dataset, newTotal)
	return nil
}
