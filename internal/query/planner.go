package query

import (
	"fmt"
	"strings"
)

// Param bounds. Limit caps the total candidates a discovery run may collect;
// PerQuery is the result count requested from the search provider per query.
const (
	MinLimit    = 1
	MaxLimit    = 500
	MinPerQuery = 5
	MaxPerQuery = 50

	DefaultLimit    = 100
	DefaultPerQuery = 20
)

// defaultIntents gently biases discovery toward commercially active profiles
// when the caller supplies no intent facet. The empty entry keeps a bare
// niche+location query in the mix.
var defaultIntents = []string{
	"",
	"coach",
	"agency",
	"studio",
	"clinic",
	"consultant",
	"founder",
	"book",
	"dm",
	"whatsapp",
}

// pathExclusions suppress non-profile Instagram results (posts, reels,
// stories and the like) in every generated query.
var pathExclusions = []string{
	"-inurl:/p/",
	"-inurl:/reel/",
	"-inurl:/tv/",
	"-inurl:/explore/",
	"-inurl:/tags/",
	"-inurl:/stories/",
}

// ValidationError reports malformed planner parameters. It is fatal to the
// run and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Params is the facet bundle a discovery run starts from.
type Params struct {
	Niches    []string
	Locations []string
	Intent    []string
	Exclude   []string
	Limit     int
	PerQuery  int
}

// Normalize fills defaults and validates bounds. It must be called before
// Plan; Plan also calls it defensively.
func (p *Params) Normalize() error {
	p.Niches = normalizeFacet(p.Niches)
	p.Locations = normalizeFacet(p.Locations)
	p.Intent = normalizeFacet(p.Intent)
	p.Exclude = normalizeFacet(p.Exclude)

	if len(p.Niches) == 0 {
		return &ValidationError{Field: "niches", Reason: "at least one niche is required"}
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit < MinLimit || p.Limit > MaxLimit {
		return &ValidationError{Field: "limit", Reason: fmt.Sprintf("must be in [%d,%d]", MinLimit, MaxLimit)}
	}
	if p.PerQuery == 0 {
		p.PerQuery = DefaultPerQuery
	}
	if p.PerQuery < MinPerQuery || p.PerQuery > MaxPerQuery {
		return &ValidationError{Field: "perQuery", Reason: fmt.Sprintf("must be in [%d,%d]", MinPerQuery, MaxPerQuery)}
	}
	return nil
}

// normalizeFacet trims, collapses internal whitespace, and drops empties
// while keeping order.
func normalizeFacet(values []string) []string {
	out := values[:0]
	for _, v := range values {
		v = strings.Join(strings.Fields(v), " ")
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// template renders one phrasing of a facet combination.
type template func(parts []string) string

func quoted(parts []string) []string {
	q := make([]string, len(parts))
	for i, p := range parts {
		q[i] = `"` + p + `"`
	}
	return q
}

// templates are the phrasings tried per facet combination. Strict quoting
// maximizes precision, the relaxed form recovers results the quotes lose,
// and the third biases toward contactable profiles.
var templates = []template{
	func(parts []string) string {
		return "site:instagram.com " + strings.Join(quoted(parts), " ")
	},
	func(parts []string) string {
		return "site:instagram.com " + strings.Join(parts, " ")
	},
	func(parts []string) string {
		return "site:instagram.com " + strings.Join(quoted(parts), " ") +
			` ("book" OR "dm" OR "whatsapp" OR "contact")`
	},
}

// Plan expands the facet cross-product into a deduplicated, deterministic
// list of search queries. Dedup is case-insensitive, first-seen order.
func Plan(p Params) ([]string, error) {
	if err := p.Normalize(); err != nil {
		return nil, err
	}

	intents := p.Intent
	if len(intents) == 0 {
		intents = defaultIntents
	}
	locations := p.Locations
	if len(locations) == 0 {
		locations = []string{""}
	}

	exclusions := make([]string, 0, len(pathExclusions)+len(p.Exclude))
	exclusions = append(exclusions, pathExclusions...)
	for _, e := range p.Exclude {
		exclusions = append(exclusions, `-"`+e+`"`)
	}
	suffix := " " + strings.Join(exclusions, " ")

	seen := make(map[string]struct{})
	var queries []string

	for _, niche := range p.Niches {
		for _, loc := range locations {
			for _, intent := range intents {
				var parts []string
				for _, s := range []string{niche, loc, intent} {
					if s != "" {
						parts = append(parts, s)
					}
				}
				if len(parts) == 0 {
					continue
				}
				for _, t := range templates {
					q := strings.TrimSpace(t(parts) + suffix)
					key := strings.ToLower(q)
					if _, dup := seen[key]; dup {
						continue
					}
					seen[key] = struct{}{}
					queries = append(queries, q)
				}
			}
		}
	}

	return queries, nil
}
