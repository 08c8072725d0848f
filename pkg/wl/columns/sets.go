package columns

import "strings"

// Sets defines named column groups that expand into lists of columns.
var Sets = map[string][]string{
	"core":   {"ticker", "company", "themes", "date", "initial", "current", "total%"},
	"prices": {"initial", "current"},
	"perf":   {"total%", "1d%", "1w%", "ytd%"},
	"notes":  {"thesis", "catalysts", "triggers", "catalyst_path", "notes"},
	"all": {
		"ticker", "company", "themes", "date",
		"initial", "current", "total%", "1d%", "1w%", "ytd%",
		"thesis", "catalysts", "triggers", "catalyst_path", "notes",
	},
}

// ExpandSets returns the union of columns for the given set names.
// It preserves the order of the sets and the order of columns within each set,
// and de-duplicates columns while keeping the first occurrence.
func ExpandSets(setNames []string) ([]string, error) {
	out := make([]string, 0, 16)
	seen := map[string]struct{}{}
	for _, name := range setNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		cols, ok := Sets[name]
		if !ok {
			return nil, &UnknownSetError{Name: name, Available: keysSorted(Sets)}
		}
		for _, c := range cols {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out, nil
}

// UnknownSetError reports an unknown column set name.
type UnknownSetError struct {
	Name      string
	Available []string
}

func (e *UnknownSetError) Error() string {
	return "unknown column set: " + e.Name + "; available: " + strings.Join(e.Available, ", ")
}
