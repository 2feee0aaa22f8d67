package rlds

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ObservationKeys extracts the per-step observation feature names declared
// in features.json. The schema layout varies between TFDS versions, so the
// document is walked generically: the first object found under an
// "observation" key that carries a feature dictionary wins.
func ObservationKeys(data []byte) ([]string, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("rlds: parse %s: %w", FeaturesFile, err)
	}

	obs := findKey(doc, "observation")
	if obs == nil {
		return nil, fmt.Errorf("rlds: no observation features in %s", FeaturesFile)
	}

	features := findKey(obs, "features")
	if features == nil {
		features = findKey(obs, "feature")
	}
	dict, ok := features.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("rlds: no observation feature dict in %s", FeaturesFile)
	}

	keys := make([]string, 0, len(dict))
	for k := range dict {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// LoadObservationKeys reads features.json from path and extracts the
// observation feature names.
func LoadObservationKeys(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rlds: read %s: %w", FeaturesFile, err)
	}
	return ObservationKeys(data)
}

// ImageKeys filters observation keys down to image-bearing candidates:
// names containing "image" or "rgb", matching how the OXE datasets name
// their camera streams.
func ImageKeys(keys []string) []string {
	var out []string
	for _, k := range keys {
		lower := strings.ToLower(k)
		if strings.Contains(lower, "image") || strings.Contains(lower, "rgb") {
			out = append(out, k)
		}
	}
	return out
}

// findKey walks a decoded JSON document depth-first and returns the value
// of the first object entry with the given key.
func findKey(node any, key string) any {
	switch v := node.(type) {
	case map[string]any:
		if val, ok := v[key]; ok {
			return val
		}
		// Deterministic traversal order.
		names := make([]string, 0, len(v))
		for k := range v {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			if found := findKey(v[k], key); found != nil {
				return found
			}
		}
	case []any:
		for _, item := range v {
			if found := findKey(item, key); found != nil {
				return found
			}
		}
	}
	return nil
}
