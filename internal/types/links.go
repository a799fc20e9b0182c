package types

import (
	"regexp"
	"sort"
	"strings"
)

var hasScheme = regexp.MustCompile(`(?i)^https?://`)

// FormatURL normalizes a user-entered URL. Protocol-relative URLs get an
// https scheme, and URLs without an http(s) scheme are prefixed with https://.
func FormatURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "//") {
		return "https:" + trimmed
	}
	if !hasScheme.MatchString(trimmed) {
		return "https://" + trimmed
	}
	return trimmed
}

// FilterLinks returns the links in categoryID (AllCategoryID matches all)
// whose name, url or description contains query, case-insensitively, newest
// first. The input slice is not modified.
func FilterLinks(links []LinkItem, categoryID, query string) []LinkItem {
	q := strings.ToLower(query)
	out := make([]LinkItem, 0, len(links))
	for _, l := range links {
		if categoryID != "" && categoryID != AllCategoryID && l.CategoryID != categoryID {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(l.Name), q) &&
			!strings.Contains(strings.ToLower(l.URL), q) &&
			!strings.Contains(strings.ToLower(l.Description), q) {
			continue
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out
}

// ActiveTodos counts todos that are not completed.
func ActiveTodos(todos []TodoItem) int {
	n := 0
	for _, t := range todos {
		if !t.Completed {
			n++
		}
	}
	return n
}
