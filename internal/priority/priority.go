// Package priority assigns a static trust weight to a source domain.
package priority

import (
	"strings"

	"github.com/vmud/newshub/internal/normalize"
)

const DefaultWeight = 70

// Weights for official company sites and the outlets we trust most.
var defaultTable = map[string]int{
	"qualcomm.com":  100,
	"android.com":   100,
	"samsung.com":   100,
	"whirlpool.com": 100,
	"bestbuy.com":   100,
	"sec.gov":       100,

	"techcrunch.com": 95,
	"theverge.com":   95,
	"reuters.com":    95,
	"bloomberg.com":  95,
	"wsj.com":        95,

	"engadget.com":       90,
	"androidcentral.com": 90,
	"cnbc.com":           90,
}

type Scorer struct {
	table         map[string]int
	defaultWeight int
}

// NewScorer builds a scorer from the built-in table with overrides applied.
// Override keys are cleaned the same way lookups are.
func NewScorer(defaultWeight int, overrides map[string]int) *Scorer {
	table := make(map[string]int, len(defaultTable)+len(overrides))
	for domain, weight := range defaultTable {
		table[domain] = weight
	}
	for domain, weight := range overrides {
		cleaned := normalize.CleanDomain(domain)
		if cleaned == "" {
			continue
		}
		table[cleaned] = weight
	}
	return &Scorer{table: table, defaultWeight: defaultWeight}
}

// Score returns the weight for domain. Subdomains inherit the weight of the
// closest listed parent, so news.samsung.com scores like samsung.com.
func (s *Scorer) Score(domain string) int {
	if s == nil {
		return DefaultWeight
	}
	d := normalize.CleanDomain(domain)
	for d != "" {
		if weight, ok := s.table[d]; ok {
			return weight
		}
		dot := strings.IndexByte(d, '.')
		if dot < 0 {
			break
		}
		d = d[dot+1:]
	}
	return s.defaultWeight
}

func (s *Scorer) DefaultWeight() int {
	if s == nil {
		return DefaultWeight
	}
	return s.defaultWeight
}
