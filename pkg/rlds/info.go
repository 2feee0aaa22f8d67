package rlds

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// InfoFile and FeaturesFile are the sidecar filenames written by TFDS next
// to the TFRecord shards.
const (
	InfoFile     = "dataset_info.json"
	FeaturesFile = "features.json"
)

// DefaultTemplate is the shard filename template TFDS uses when the sidecar
// does not carry one.
const DefaultTemplate = "{DATASET}-{SPLIT}.{FILEFORMAT}-{SHARD_X_OF_Y}"

// ErrSplitNotFound is returned when a requested split is not present in the
// dataset sidecar.
var ErrSplitNotFound = errors.New("rlds: split not found")

// Version returns the published version directory for a dataset on the
// mirror. A handful of datasets were published under non-default versions.
func Version(dataset string) string {
	switch dataset {
	case "droid":
		return "1.0.1"
	case "robo_net", "cmu_playing_with_food":
		return "1.0.0"
	case "language_table":
		return "0.0.1"
	}
	return "0.1.0"
}

// FilePrefix returns the prefix used in a dataset's shard filenames. Most
// datasets use the dataset name itself; droid was published with the
// builder name "droid_101".
func FilePrefix(dataset string) string {
	if dataset == "droid" {
		return "droid_101"
	}
	return dataset
}

// Path returns the dataset's directory relative to a mirror or data root,
// e.g. "droid/1.0.1".
func Path(dataset string) string {
	return dataset + "/" + Version(dataset)
}

// Info models dataset_info.json. Only the splits are interpreted; every
// other top-level field is carried through raw so a rewrite does not drop
// sidecar content TFDS depends on.
type Info struct {
	Splits []*SplitInfo

	rest map[string]json.RawMessage
}

// SplitInfo describes one split within the sidecar. Unknown split fields
// are preserved across load/save the same way Info preserves top-level
// fields.
type SplitInfo struct {
	Name             string
	ShardLengths     []int64
	FilepathTemplate string

	rest map[string]json.RawMessage
}

// UnmarshalJSON implements field-preserving decoding for a split entry.
func (s *SplitInfo) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	if raw, ok := m["name"]; ok {
		if err := json.Unmarshal(raw, &s.Name); err != nil {
			return fmt.Errorf("split name: %w", err)
		}
		delete(m, "name")
	}
	if raw, ok := m["shardLengths"]; ok {
		lengths, err := parseShardLengths(raw)
		if err != nil {
			return fmt.Errorf("split %q: %w", s.Name, err)
		}
		s.ShardLengths = lengths
		delete(m, "shardLengths")
	}
	if raw, ok := m["filepathTemplate"]; ok {
		if err := json.Unmarshal(raw, &s.FilepathTemplate); err != nil {
			return fmt.Errorf("split %q: filepathTemplate: %w", s.Name, err)
		}
		delete(m, "filepathTemplate")
	}

	s.rest = m
	return nil
}

// MarshalJSON re-encodes the split, writing shard lengths back as decimal
// strings the way TFDS does.
func (s *SplitInfo) MarshalJSON() ([]byte, error) {
	m := make(map[string]json.RawMessage, len(s.rest)+3)
	for k, v := range s.rest {
		m[k] = v
	}

	name, err := json.Marshal(s.Name)
	if err != nil {
		return nil, err
	}
	m["name"] = name

	lengths := make([]string, len(s.ShardLengths))
	for i, n := range s.ShardLengths {
		lengths[i] = strconv.FormatInt(n, 10)
	}
	raw, err := json.Marshal(lengths)
	if err != nil {
		return nil, err
	}
	m["shardLengths"] = raw

	if s.FilepathTemplate != "" {
		tmpl, err := json.Marshal(s.FilepathTemplate)
		if err != nil {
			return nil, err
		}
		m["filepathTemplate"] = tmpl
	}

	return json.Marshal(m)
}

// parseShardLengths accepts both string-encoded counts (what TFDS writes)
// and bare numbers.
func parseShardLengths(raw json.RawMessage) ([]int64, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("shardLengths: %w", err)
	}

	lengths := make([]int64, len(entries))
	for i, entry := range entries {
		text := strings.Trim(strings.TrimSpace(string(entry)), `"`)
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("shardLengths[%d]: %w", i, err)
		}
		lengths[i] = n
	}
	return lengths, nil
}

// Episodes returns the total episode count across all shards.
func (s *SplitInfo) Episodes() int64 {
	var total int64
	for _, n := range s.ShardLengths {
		total += n
	}
	return total
}

// ShardFilename expands the split's filename template for a shard.
// dataset is the raw dataset name (the droid prefix quirk is applied here),
// index is the shard number and total the shard count the filename should
// advertise.
func (s *SplitInfo) ShardFilename(dataset string, index, total int) string {
	tmpl := s.FilepathTemplate
	if tmpl == "" {
		tmpl = DefaultTemplate
	}
	return strings.NewReplacer(
		"{DATASET}", FilePrefix(dataset),
		"{SPLIT}", s.Name,
		"{FILEFORMAT}", "tfrecord",
		"{SHARD_X_OF_Y}", fmt.Sprintf("%05d-of-%05d", index, total),
	).Replace(tmpl)
}

// ParseInfo decodes dataset_info.json content.
func ParseInfo(data []byte) (*Info, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("rlds: parse %s: %w", InfoFile, err)
	}

	info := &Info{rest: m}
	if raw, ok := m["splits"]; ok {
		if err := json.Unmarshal(raw, &info.Splits); err != nil {
			return nil, fmt.Errorf("rlds: parse splits: %w", err)
		}
		delete(m, "splits")
	}
	return info, nil
}

// LoadInfo reads and decodes dataset_info.json from path.
func LoadInfo(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rlds: read %s: %w", InfoFile, err)
	}
	return ParseInfo(data)
}

// Split returns the named split.
func (in *Info) Split(name string) (*SplitInfo, error) {
	for _, s := range in.Splits {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrSplitNotFound, name)
}

// Marshal encodes the sidecar back to JSON, restoring preserved fields.
func (in *Info) Marshal() ([]byte, error) {
	m := make(map[string]json.RawMessage, len(in.rest)+1)
	for k, v := range in.rest {
		m[k] = v
	}
	splits, err := json.Marshal(in.Splits)
	if err != nil {
		return nil, err
	}
	m["splits"] = splits

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the sidecar to path.
func (in *Info) Save(path string) error {
	data, err := in.Marshal()
	if err != nil {
		return fmt.Errorf("rlds: marshal %s: %w", InfoFile, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("rlds: write %s: %w", InfoFile, err)
	}
	return nil
}
