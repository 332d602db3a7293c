package storage

import (
	"sort"
	"strings"
)

// NormalizeTags lowercases, trims and deduplicates tags, dropping empty ones
// and a leading '#'. The result is sorted.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		t = strings.TrimSpace(strings.TrimLeft(t, "#"))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// normalizeSort maps user input onto one of the supported sort orders.
func normalizeSort(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "oldest":
		return SortOldest
	case "title":
		return SortTitle
	case "readingtime", "reading_time", "reading-time":
		return SortReadingTime
	default:
		return SortNewest
	}
}

func orderClause(sortBy string) string {
	switch normalizeSort(sortBy) {
	case SortOldest:
		return " ORDER BY created_at ASC, id"
	case SortTitle:
		return " ORDER BY COALESCE(title, '') COLLATE NOCASE ASC, created_at DESC"
	case SortReadingTime:
		return " ORDER BY COALESCE(reading_time, 0) ASC, created_at DESC"
	default:
		return " ORDER BY created_at DESC, id"
	}
}
