package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"
	"gocloud.dev/gcp"
)

// OpenMirror opens the mirror at a gocloud bucket URL. Any path component
// of the URL becomes a key prefix, so gs://gresearch/robotics addresses
// the robotics/ subtree of the gresearch bucket.
func OpenMirror(ctx context.Context, urlstr string) (*blob.Bucket, error) {
	u, err := url.Parse(urlstr)
	if err != nil {
		return nil, fmt.Errorf("storage: parse mirror URL: %w", err)
	}

	var bucket *blob.Bucket
	if u.Scheme == "gs" {
		// The public mirror allows unauthenticated reads.
		client := gcp.NewAnonymousHTTPClient(gcp.DefaultTransport())
		bucket, err = gcsblob.OpenBucket(ctx, client, u.Host, nil)
		if err != nil {
			return nil, fmt.Errorf("storage: open gs bucket %s: %w", u.Host, err)
		}
		if prefix := strings.Trim(u.Path, "/"); prefix != "" {
			bucket = blob.PrefixedBucket(bucket, prefix+"/")
		}
		return bucket, nil
	}

	bucket, err = blob.OpenBucket(ctx, urlstr)
	if err != nil {
		return nil, fmt.Errorf("storage: open bucket %s: %w", urlstr, err)
	}
	return bucket, nil
}

// List returns the keys under prefix, in lexical order.
func List(ctx context.Context, bucket *blob.Bucket, prefix string) ([]string, error) {
	var keys []string
	iter := bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("storage: list %s: %w", prefix, err)
		}
		if obj.IsDir {
			continue
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Fetch downloads one object to a local file, creating parent directories
// as needed. A partial file is removed on failure.
func Fetch(ctx context.Context, bucket *blob.Bucket, key, dest string) (int64, error) {
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return 0, fmt.Errorf("storage: open object %s: %w", key, err)
	}
	defer r.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, fmt.Errorf("storage: create dir for %s: %w", dest, err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("storage: create %s: %w", dest, err)
	}

	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(dest)
		return n, fmt.Errorf("storage: fetch %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return n, fmt.Errorf("storage: close %s: %w", dest, err)
	}

	return n, nil
}

// IsNotExist reports whether the error indicates a missing object.
func IsNotExist(err error) bool {
	return gcerrors.Code(err) == gcerrors.NotFound
}
