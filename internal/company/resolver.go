// Package company maps free-text company mentions onto tracked companies.
package company

import (
	"sort"
	"strings"

	"github.com/vmud/newshub/internal/news"
)

// Map is the per-run lookup table from lowercased names and aliases to
// company IDs. It is read-only after construction.
type Map struct {
	ids map[string]int64
	// keys ordered longest first, then lexically, for substring matching.
	keys []string
}

func NewMap(companies []news.Company) *Map {
	ids := map[string]int64{}
	claim := func(key string, id int64) {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return
		}
		if existing, ok := ids[key]; ok && existing <= id {
			return
		}
		ids[key] = id
	}

	for _, c := range companies {
		claim(c.CanonicalName, c.ID)
		for _, alias := range c.Aliases {
			claim(alias, c.ID)
		}
	}

	keys := make([]string, 0, len(ids))
	for key := range ids {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	return &Map{ids: ids, keys: keys}
}

// Resolve returns the company ID for mention. An exact case-insensitive match
// wins; otherwise the first key, longest first, that contains or is contained
// by the mention.
func (m *Map) Resolve(mention string) (int64, bool) {
	if m == nil {
		return 0, false
	}
	needle := strings.ToLower(strings.TrimSpace(mention))
	if needle == "" {
		return 0, false
	}
	if id, ok := m.ids[needle]; ok {
		return id, true
	}
	for _, key := range m.keys {
		if strings.Contains(needle, key) || strings.Contains(key, needle) {
			return m.ids[key], true
		}
	}
	return 0, false
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.ids)
}
