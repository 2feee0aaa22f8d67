package main

import (
	"os"
	"strings"
)

// defaultDataset is used when no dataset is named anywhere.
const defaultDataset = "dlr_sara_grid_clamp_converted_externally_to_rlds"

// stringList collects repeated -dataset flags.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// resolveDatasets merges repeated -dataset flags, a -datasets list, and
// the DATASETS environment variable. Lists split on commas and
// whitespace. Order is preserved and duplicates are dropped; with no
// input anywhere the default dataset is returned.
func resolveDatasets(single []string, list string) []string {
	var names []string
	names = append(names, single...)
	names = append(names, splitList(list)...)
	names = append(names, splitList(os.Getenv("DATASETS"))...)

	seen := make(map[string]bool, len(names))
	var out []string
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}

	if len(out) == 0 {
		return []string{defaultDataset}
	}
	return out
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}
