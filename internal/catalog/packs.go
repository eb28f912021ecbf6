package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// PackTitles maps an upper-cased pack id to its set title.
type PackTitles map[string]string

// LoadPackTitles reads pack metadata from path. An empty path yields an
// empty mapping.
func LoadPackTitles(path string) (PackTitles, error) {
	if path == "" {
		return PackTitles{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read packs file: %w", err)
	}
	titles, err := ParsePackTitles(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse packs file %s: %w", path, err)
	}
	return titles, nil
}

// ParsePackTitles accepts an array of packs, an object with a "packs" or
// "items" array, or a map of id to pack object.
func ParsePackTitles(data []byte) (PackTitles, error) {
	var top any
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, err
	}

	var packs []any
	switch x := top.(type) {
	case []any:
		packs = x
	case map[string]any:
		if arr, ok := x["packs"].([]any); ok {
			packs = arr
		} else if arr, ok := x["items"].([]any); ok {
			packs = arr
		} else {
			_, values, err := orderedValues(data)
			if err != nil {
				return nil, err
			}
			for _, raw := range values {
				var v any
				if err := json.Unmarshal(raw, &v); err == nil {
					packs = append(packs, v)
				}
			}
		}
	}

	titles := make(PackTitles, len(packs))
	for _, p := range packs {
		pack, ok := p.(map[string]any)
		if !ok {
			continue
		}
		id := strings.ToUpper(safeStr(pack["id"]))
		if id == "" {
			continue
		}
		titles[id] = packTitle(pack, id)
	}
	return titles, nil
}

// packTitle picks title_parts.title, title_parts.label, raw_title, title,
// name, then the id itself.
func packTitle(pack map[string]any, id string) string {
	if parts, ok := pack["title_parts"].(map[string]any); ok {
		for _, key := range []string{"title", "label"} {
			if s := safeStr(parts[key]); s != "" {
				return s
			}
		}
	}
	for _, key := range []string{"raw_title", "title", "name"} {
		if s := safeStr(pack[key]); s != "" {
			return s
		}
	}
	return id
}

// Lookup returns the title for a pack id, case-insensitively.
func (p PackTitles) Lookup(packID string) (string, bool) {
	if packID == "" {
		return "", false
	}
	title, ok := p[strings.ToUpper(packID)]
	return title, ok
}
