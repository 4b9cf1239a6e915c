package snapshot

import (
	"sort"
	"strings"

	"github.com/ministry-roster-api/internal/config"
	"github.com/ministry-roster-api/internal/textnorm"
)

type unitKeyword struct {
	folded string
	code   string
}

// UnitResolver maps free-text unit labels to configured unit codes
type UnitResolver struct {
	codes    map[string]string // folded code -> code
	keywords []unitKeyword
}

// NewUnitResolver builds a resolver from the configured vocabulary
func NewUnitResolver(units []config.UnitKeywords) *UnitResolver {
	r := &UnitResolver{codes: make(map[string]string, len(units))}
	for _, u := range units {
		r.codes[textnorm.Fold(u.Code)] = u.Code
		for _, kw := range u.Keywords {
			if folded := textnorm.Fold(kw); folded != "" {
				r.keywords = append(r.keywords, unitKeyword{folded: folded, code: u.Code})
			}
		}
	}
	// Longer keywords first so "haba" wins over its prefix "hab".
	sort.SliceStable(r.keywords, func(i, j int) bool {
		return len(r.keywords[i].folded) > len(r.keywords[j].folded)
	})
	return r
}

// Resolve returns the unit code named by raw. Matching is case and accent
// insensitive; a keyword matches when it is a substring of raw.
func (r *UnitResolver) Resolve(raw string) (string, bool) {
	folded := textnorm.Fold(raw)
	if folded == "" {
		return "", false
	}
	if code, ok := r.codes[folded]; ok {
		return code, true
	}
	for _, kw := range r.keywords {
		if strings.Contains(folded, kw.folded) {
			return kw.code, true
		}
	}
	return "", false
}

// Known reports whether code is a configured unit code
func (r *UnitResolver) Known(code string) bool {
	c, ok := r.codes[textnorm.Fold(code)]
	return ok && c == code
}
