package rlds

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	proto1 "github.com/golang/protobuf/proto"
	"github.com/ryszard/tfutils/go/tfrecord"
	tf "github.com/ryszard/tfutils/proto/tensorflow/core/example"
	"google.golang.org/protobuf/proto"
)

// stepPrefix is the TFDS flattening prefix for per-step observation
// features inside an episode's tf.Example.
const stepPrefix = "steps/observation/"

// Reader iterates the episodes of one split, shard by shard.
type Reader struct {
	paths   []string
	current *os.File
	index   int
	closed  bool
}

// OpenSplit opens the named split of a dataset stored under dir (the
// version directory holding the shards and sidecars). Shard filenames are
// derived from the split's template; every shard must be present.
func OpenSplit(dir string, info *Info, dataset, split string) (*Reader, error) {
	s, err := info.Split(split)
	if err != nil {
		return nil, err
	}
	if len(s.ShardLengths) == 0 {
		return nil, ErrNoShards
	}

	total := len(s.ShardLengths)
	paths := make([]string, total)
	for i := 0; i < total; i++ {
		path := filepath.Join(dir, s.ShardFilename(dataset, i, total))
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("rlds: missing shard: %w", err)
		}
		paths[i] = path
	}

	return &Reader{paths: paths}, nil
}

// Next returns the next episode, or io.EOF after the last shard is
// exhausted.
func (r *Reader) Next(ctx context.Context) (*Episode, error) {
	if r.closed {
		return nil, fmt.Errorf("rlds: reader is closed")
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if r.current == nil {
			if r.index >= len(r.paths) {
				return nil, io.EOF
			}
			f, err := os.Open(r.paths[r.index])
			if err != nil {
				return nil, fmt.Errorf("rlds: open shard: %w", err)
			}
			r.current = f
			r.index++
		}

		record, err := tfrecord.Read(r.current)
		if err == io.EOF {
			r.current.Close()
			r.current = nil
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("rlds: read record from %s: %w", filepath.Base(r.current.Name()), err)
		}

		ex := &tf.Example{}
		if err := proto.Unmarshal(record, proto1.MessageV2(ex)); err != nil {
			return nil, fmt.Errorf("rlds: unmarshal example: %w", err)
		}
		return &Episode{ex: ex}, nil
	}
}

// Close releases the currently open shard, if any.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.current != nil {
		err := r.current.Close()
		r.current = nil
		return err
	}
	return nil
}

// Episode wraps one decoded tf.Example.
type Episode struct {
	ex *tf.Example
}

// Frames returns the encoded image bytes for an observation key, one entry
// per step.
func (e *Episode) Frames(key string) ([][]byte, error) {
	feature := e.feature(stepPrefix + key)
	if feature == nil {
		return nil, fmt.Errorf("rlds: observation key %q not in episode", key)
	}
	list := feature.GetBytesList()
	if list == nil {
		return nil, fmt.Errorf("rlds: observation key %q is not an image feature", key)
	}
	return list.Value, nil
}

// Steps returns the number of steps recorded for an observation key.
func (e *Episode) Steps(key string) int {
	feature := e.feature(stepPrefix + key)
	if feature == nil {
		return 0
	}
	if list := feature.GetBytesList(); list != nil {
		return len(list.Value)
	}
	return 0
}

// ObservationKeys lists the observation keys present in this episode,
// sorted. Useful when the features.json sidecar is missing or stale.
func (e *Episode) ObservationKeys() []string {
	features := e.ex.GetFeatures().GetFeature()
	var keys []string
	for name := range features {
		if strings.HasPrefix(name, stepPrefix) {
			keys = append(keys, strings.TrimPrefix(name, stepPrefix))
		}
	}
	sort.Strings(keys)
	return keys
}

func (e *Episode) feature(name string) *tf.Feature {
	features := e.ex.GetFeatures().GetFeature()
	if features == nil {
		return nil
	}
	return features[name]
}
