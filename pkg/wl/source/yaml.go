package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/komsit37/thematic-wl/pkg/wl/types"
)

// groupThemeHeader carries the names of enclosing YAML groups. It matches
// the theme-column pattern, so group names become themes.
const groupThemeHeader = "Theme (group)"

// YAMLSource loads rows from a YAML file or a directory of YAML files.
//
// Items are maps keyed like CSV headers ("Ticker", "Theme(s)", ...). Groups
// nest with "name" and "watchlist"; the group path is added as a theme.
type YAMLSource struct{}

// Load expects spec to be a string filepath.
func (YAMLSource) Load(ctx context.Context, spec any) ([]types.WatchItem, error) { //nolint:revive // ctx reserved for future use
	path, ok := spec.(string)
	if !ok {
		return nil, fmt.Errorf("yaml source expects filepath string spec")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	files := []string{path}
	if info.IsDir() {
		files = files[:0]
		err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(d.Name()))
			if ext == ".yaml" || ext == ".yml" {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(files)
	}

	var (
		all  []types.WatchItem
		seen = map[string]struct{}{}
	)
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		rows, err := parseYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		// Items may spell headers differently, so each row resolves its own mapping.
		for _, row := range rows {
			it, ok := Normalize(row)
			if !ok {
				continue
			}
			if _, dup := seen[it.Ticker]; dup {
				continue
			}
			seen[it.Ticker] = struct{}{}
			all = append(all, it)
		}
	}
	return all, nil
}

// parseYAML flattens the YAML watchlist tree into header-keyed rows.
func parseYAML(data []byte) ([]map[string]string, error) {
	var root any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	root = norm(root)

	m, ok := root.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid yaml: expected map with 'watchlist'")
	}
	wlNode, ok := m["watchlist"]
	if !ok || wlNode == nil {
		return nil, fmt.Errorf("invalid yaml: missing 'watchlist'")
	}

	var rows []map[string]string
	var walk func(node any, path []string)
	walk = func(node any, path []string) {
		switch n := node.(type) {
		case []any:
			for _, e := range n {
				walk(e, path)
			}
		case map[string]any:
			if child, ok := n["watchlist"]; ok {
				next := append([]string(nil), path...)
				if name, ok := n["name"].(string); ok && strings.TrimSpace(name) != "" {
					next = append(next, strings.TrimSpace(name))
				}
				walk(child, next)
				return
			}
			row := toRow(n)
			if len(path) > 0 {
				row[groupThemeHeader] = strings.Join(path, types.ThemeJoiner)
			}
			rows = append(rows, row)
		}
	}
	walk(wlNode, nil)
	return rows, nil
}

// norm turns maps with non-string keys into map[string]any.
func norm(v any) any {
	switch m := v.(type) {
	case map[any]any:
		mm := make(map[string]any, len(m))
		for k, val := range m {
			mm[fmt.Sprint(k)] = norm(val)
		}
		return mm
	case map[string]any:
		for k, val := range m {
			m[k] = norm(val)
		}
		return m
	case []any:
		out := make([]any, 0, len(m))
		for _, e := range m {
			out = append(out, norm(e))
		}
		return out
	default:
		return v
	}
}

func toRow(m map[string]any) map[string]string {
	row := make(map[string]string, len(m))
	for k, v := range m {
		if v == nil {
			continue
		}
		if list, ok := v.([]any); ok {
			parts := make([]string, 0, len(list))
			for _, e := range list {
				if e != nil {
					parts = append(parts, fmt.Sprint(e))
				}
			}
			row[k] = strings.Join(parts, types.ThemeJoiner)
			continue
		}
		row[k] = fmt.Sprint(v)
	}
	return row
}
