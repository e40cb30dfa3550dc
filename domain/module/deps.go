package module

import (
	"sort"
	"strings"
)

// Normalize deduplicates dependency names case-insensitively and maps each to
// its canonical casing. The canonical map is keyed by lowercased module name;
// names with no canonical entry keep their trimmed spelling.
func Normalize(names []string, canonical map[string]string) []string {
	seen := make(map[string]bool, len(names))
	result := make([]string, 0, len(names))

	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)
		if seen[lower] {
			continue
		}
		seen[lower] = true

		if canon, ok := canonical[lower]; ok {
			result = append(result, canon)
		} else {
			result = append(result, trimmed)
		}
	}

	return result
}

// CanonicalNames builds the lowercase-to-canonical name map from a set of
// discovered descriptors.
func CanonicalNames(descriptors []Descriptor) map[string]string {
	m := make(map[string]string, len(descriptors))
	for _, d := range descriptors {
		m[strings.ToLower(d.Name)] = d.Name
	}
	return m
}

// DependsOn reports whether the descriptor declares dep (case-insensitive).
func (d Descriptor) DependsOn(dep string) bool {
	for _, req := range d.Requires {
		if strings.EqualFold(strings.TrimSpace(req), dep) {
			return true
		}
	}
	return false
}

// SortForInstall orders descriptors so that a module never precedes one of
// its own dependencies: a module required by another sorts first, ties broken
// by fewer declared dependencies, then by name for stable output.
func SortForInstall(descriptors []Descriptor) []Descriptor {
	sorted := make([]Descriptor, len(descriptors))
	copy(sorted, descriptors)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		aNeedsB := a.DependsOn(b.Name)
		bNeedsA := b.DependsOn(a.Name)
		if aNeedsB != bNeedsA {
			// The required module comes first.
			return bNeedsA
		}
		if len(a.Requires) != len(b.Requires) {
			return len(a.Requires) < len(b.Requires)
		}
		return a.Name < b.Name
	})

	return sorted
}
