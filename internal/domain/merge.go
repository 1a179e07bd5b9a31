package domain

import (
	"dario.cat/mergo"
	json "github.com/goccy/go-json"
)

// MergeInto deep-merges src into dst, src winning on conflicts. Slices are
// replaced, not appended: node outputs and context overrides are
// authoritative for the keys they name.
func MergeInto(dst map[string]interface{}, src map[string]interface{}) error {
	if len(src) == 0 {
		return nil
	}
	return mergo.Merge(&dst, src, mergo.WithOverride)
}

// CloneMap deep-copies a plain data map through a JSON round-trip.
func CloneMap(src map[string]interface{}) (map[string]interface{}, error) {
	if src == nil {
		return make(map[string]interface{}), nil
	}
	raw, err := json.Marshal(src)
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(src))
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
