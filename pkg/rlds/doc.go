// Package rlds provides types for working with RLDS episode datasets as
// published on the Open X-Embodiment object-storage mirror.
//
// An RLDS dataset on disk is a directory of TFRecord shards plus two JSON
// sidecars written by TFDS: dataset_info.json (splits, per-shard episode
// counts, shard filename template) and features.json (the feature schema,
// including the observation image keys).
//
// # Metadata
//
// Use [LoadInfo] to read dataset_info.json. The sidecar is parsed
// field-preserving: fields this package does not model survive a
// load/modify/[Info.Save] round trip unchanged, so a rewritten sidecar
// stays loadable by TFDS.
//
// # Shard planning
//
// [PlanShards] computes the minimal shard prefix covering an episode
// budget: a single pass over a split's shard lengths, accumulating counts
// until the budget is met. [SplitInfo.ShardFilename] expands the TFDS
// filename template for a shard index, including the renumbering applied
// after a selective download.
//
// # Reading episodes
//
// [OpenSplit] returns a [Reader] that iterates the split's shards in
// order. Each TFRecord record is one episode, serialized as a tf.Example
// whose flattened feature keys follow the TFDS convention
// "steps/observation/<key>" with one encoded image per step.
//
//	r, err := rlds.OpenSplit(dir, info, "dataset_name", "train")
//	for {
//		ep, err := r.Next(ctx)
//		if err == io.EOF {
//			break
//		}
//		frames, err := ep.Frames("image")
//		// encode frames...
//	}
//
// See example_test.go for usage examples.
package rlds
