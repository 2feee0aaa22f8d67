package downloader

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"

	"github.com/openxe/oxe/pkg/rlds"
)

const testDataset = "dlr_sara_grid_clamp_converted_externally_to_rlds"

// seedDataset populates a bucket with a dataset in mirror layout:
// sidecars plus one object per shard length.
func seedDataset(t *testing.T, bucket *blob.Bucket, dataset string, lengths []int) {
	t.Helper()
	ctx := context.Background()
	prefix := rlds.Path(dataset) + "/"

	shardJSON := ""
	for i, n := range lengths {
		if i > 0 {
			shardJSON += ","
		}
		shardJSON += fmt.Sprintf("%q", fmt.Sprint(n))
	}
	info := fmt.Sprintf(`{
  "name": %q,
  "moduleName": "tensorflow_datasets.robotics.rtx",
  "splits": [
    {
      "filepathTemplate": "{DATASET}-{SPLIT}.{FILEFORMAT}-{SHARD_X_OF_Y}",
      "name": "train",
      "numBytes": "12345",
      "shardLengths": [%s]
    }
  ],
  "version": "0.1.0"
}`, dataset, shardJSON)

	if err := bucket.WriteAll(ctx, prefix+rlds.InfoFile, []byte(info), nil); err != nil {
		t.Fatalf("seed info: %v", err)
	}
	if err := bucket.WriteAll(ctx, prefix+rlds.FeaturesFile, []byte(`{"content":{"features":{}}}`), nil); err != nil {
		t.Fatalf("seed features: %v", err)
	}

	split := &rlds.SplitInfo{Name: "train"}
	for i := range lengths {
		name := split.ShardFilename(dataset, i, len(lengths))
		content := fmt.Sprintf("shard-%d-content", i)
		if err := bucket.WriteAll(ctx, prefix+name, []byte(content), nil); err != nil {
			t.Fatalf("seed shard %d: %v", i, err)
		}
	}
}

func quietOptions() Options {
	return Options{Output: &bytes.Buffer{}}
}

func TestDownloadSelective(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()
	seedDataset(t, bucket, testDataset, []int{10, 10, 10})

	dataDir := t.TempDir()
	opts := quietOptions()
	opts.MaxEpisodes = 15

	if err := Download(context.Background(), bucket, testDataset, dataDir, opts); err != nil {
		t.Fatalf("Download: %v", err)
	}

	versionDir := filepath.Join(dataDir, testDataset, "0.1.0")

	// Two shards cover 15 episodes; they are renumbered to a 2-shard set.
	split := &rlds.SplitInfo{Name: "train"}
	for i := 0; i < 2; i++ {
		path := filepath.Join(versionDir, split.ShardFilename(testDataset, i, 2))
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read shard %d: %v", i, err)
		}
		want := fmt.Sprintf("shard-%d-content", i)
		if string(data) != want {
			t.Errorf("shard %d content: got %q, want %q", i, data, want)
		}
	}

	// No shard file under the original 3-shard numbering remains.
	stale := filepath.Join(versionDir, split.ShardFilename(testDataset, 0, 3))
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("expected no file under original numbering, stat err: %v", err)
	}

	// Sidecar references only the downloaded shards; other fields survive.
	info, err := rlds.LoadInfo(filepath.Join(versionDir, rlds.InfoFile))
	if err != nil {
		t.Fatalf("LoadInfo: %v", err)
	}
	got, err := info.Split("train")
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if !reflect.DeepEqual(got.ShardLengths, []int64{10, 10}) {
		t.Errorf("rewritten shard lengths: got %v", got.ShardLengths)
	}

	if _, err := os.Stat(filepath.Join(versionDir, rlds.FeaturesFile)); err != nil {
		t.Errorf("features sidecar missing: %v", err)
	}
}

func TestDownloadSelectiveBudgetBeyondDataset(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()
	seedDataset(t, bucket, testDataset, []int{5, 5})

	dataDir := t.TempDir()
	opts := quietOptions()
	opts.MaxEpisodes = 100

	if err := Download(context.Background(), bucket, testDataset, dataDir, opts); err != nil {
		t.Fatalf("Download: %v", err)
	}

	info, err := rlds.LoadInfo(filepath.Join(dataDir, testDataset, "0.1.0", rlds.InfoFile))
	if err != nil {
		t.Fatalf("LoadInfo: %v", err)
	}
	split, _ := info.Split("train")
	if !reflect.DeepEqual(split.ShardLengths, []int64{5, 5}) {
		t.Errorf("shard lengths: got %v", split.ShardLengths)
	}
}

func TestDownloadFull(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()
	seedDataset(t, bucket, testDataset, []int{3, 4})

	dataDir := t.TempDir()
	if err := Download(context.Background(), bucket, testDataset, dataDir, quietOptions()); err != nil {
		t.Fatalf("Download: %v", err)
	}

	versionDir := filepath.Join(dataDir, testDataset, "0.1.0")
	split := &rlds.SplitInfo{Name: "train"}

	wantFiles := []string{
		rlds.InfoFile,
		rlds.FeaturesFile,
		split.ShardFilename(testDataset, 0, 2),
		split.ShardFilename(testDataset, 1, 2),
	}
	for _, name := range wantFiles {
		if _, err := os.Stat(filepath.Join(versionDir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	// Full downloads keep the sidecar as published.
	info, err := rlds.LoadInfo(filepath.Join(versionDir, rlds.InfoFile))
	if err != nil {
		t.Fatalf("LoadInfo: %v", err)
	}
	sp, _ := info.Split("train")
	if !reflect.DeepEqual(sp.ShardLengths, []int64{3, 4}) {
		t.Errorf("shard lengths: got %v", sp.ShardLengths)
	}
}

func TestDownloadDatasetNotFound(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	err := Download(context.Background(), bucket, "no_such_dataset", t.TempDir(), quietOptions())
	if err == nil {
		t.Fatal("expected error for empty mirror")
	}
}

func TestDownloadSelectiveMissingSplit(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()
	seedDataset(t, bucket, testDataset, []int{5})

	opts := quietOptions()
	opts.MaxEpisodes = 1
	opts.Split = "validation"

	err := Download(context.Background(), bucket, testDataset, t.TempDir(), opts)
	if err == nil {
		t.Fatal("expected error for missing split")
	}
}

func TestDownloadSelectiveMissingShardFails(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()
	seedDataset(t, bucket, testDataset, []int{5, 5})

	// Remove the second shard from the mirror.
	split := &rlds.SplitInfo{Name: "train"}
	key := rlds.Path(testDataset) + "/" + split.ShardFilename(testDataset, 1, 2)
	if err := bucket.Delete(ctx, key); err != nil {
		t.Fatalf("delete shard: %v", err)
	}

	opts := quietOptions()
	opts.MaxEpisodes = 10

	if err := Download(ctx, bucket, testDataset, t.TempDir(), opts); err == nil {
		t.Fatal("expected error when a planned shard is missing")
	}
}
