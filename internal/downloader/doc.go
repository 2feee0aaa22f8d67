// Package downloader orchestrates dataset downloads from the mirror.
//
// Two modes exist. A full download lists every object under the dataset's
// version prefix and fetches all of them. A selective download, used when
// the caller caps the episode count, fetches only the JSON sidecars,
// plans the shard prefix covering the budget, fetches those shards under
// renumbered contiguous filenames, and rewrites dataset_info.json so the
// local dataset only references shards that exist.
//
// Objects are fetched by a bounded worker pool; the first failure cancels
// the remaining fetches and the dataset download fails as a whole.
package downloader
