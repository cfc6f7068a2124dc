package query

import (
	"errors"
	"strings"
	"testing"
)

func TestPlan_RequiresNiches(t *testing.T) {
	_, err := Plan(Params{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "niches" {
		t.Errorf("expected niches field, got %s", verr.Field)
	}
}

func TestPlan_BoundsChecked(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		field  string
	}{
		{"limit too high", Params{Niches: []string{"dentist"}, Limit: 501}, "limit"},
		{"limit negative", Params{Niches: []string{"dentist"}, Limit: -1}, "limit"},
		{"perQuery too low", Params{Niches: []string{"dentist"}, PerQuery: 2}, "perQuery"},
		{"perQuery too high", Params{Niches: []string{"dentist"}, PerQuery: 60}, "perQuery"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Plan(tt.params)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, verr.Field)
			}
		})
	}
}

func TestPlan_DefaultsApplied(t *testing.T) {
	p := Params{Niches: []string{"dentist"}}
	if err := p.Normalize(); err != nil {
		t.Fatal(err)
	}
	if p.Limit != DefaultLimit || p.PerQuery != DefaultPerQuery {
		t.Errorf("defaults not applied: limit=%d perQuery=%d", p.Limit, p.PerQuery)
	}
}

func TestPlan_NonEmptyAndDeduplicated(t *testing.T) {
	queries, err := Plan(Params{Niches: []string{"dentist", "Dentist"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(queries) == 0 {
		t.Fatal("expected at least one query")
	}

	seen := make(map[string]struct{})
	for _, q := range queries {
		key := strings.ToLower(q)
		if _, dup := seen[key]; dup {
			t.Fatalf("duplicate query emitted: %q", q)
		}
		seen[key] = struct{}{}
	}
}

func TestPlan_EveryQueryContainsFacets(t *testing.T) {
	queries, err := Plan(Params{
		Niches:    []string{"yoga teacher"},
		Locations: []string{"Berlin"},
		Intent:    []string{"booking"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(queries) == 0 {
		t.Fatal("expected queries")
	}

	for _, q := range queries {
		lq := strings.ToLower(q)
		for _, facet := range []string{"yoga teacher", "berlin", "booking"} {
			if !strings.Contains(lq, facet) {
				t.Errorf("query %q missing facet %q", q, facet)
			}
		}
	}
}

func TestPlan_TemplateAndExclusionShape(t *testing.T) {
	queries, err := Plan(Params{
		Niches:  []string{"barber"},
		Intent:  []string{"appointments"},
		Exclude: []string{"free"},
	})
	if err != nil {
		t.Fatal(err)
	}

	// One strict (quoted) and one relaxed phrasing per combination.
	var strict, relaxed bool
	for _, q := range queries {
		if !strings.HasPrefix(q, "site:instagram.com ") {
			t.Errorf("query missing site scope: %q", q)
		}
		if !strings.Contains(q, "-inurl:/reel/") || !strings.Contains(q, "-inurl:/stories/") {
			t.Errorf("query missing path exclusions: %q", q)
		}
		if !strings.Contains(q, `-"free"`) {
			t.Errorf("query missing caller exclusion: %q", q)
		}
		if strings.Contains(q, `"barber"`) {
			strict = true
		}
		if strings.Contains(q, " barber ") {
			relaxed = true
		}
	}
	if !strict || !relaxed {
		t.Errorf("expected both strict and relaxed templates, strict=%v relaxed=%v", strict, relaxed)
	}
}

func TestPlan_EmptyOptionalFacetsStillYieldQueries(t *testing.T) {
	queries, err := Plan(Params{Niches: []string{"florist"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(queries) == 0 {
		t.Fatal("expected queries with only a niche facet")
	}
	for _, q := range queries {
		if !strings.Contains(strings.ToLower(q), "florist") {
			t.Errorf("query missing niche: %q", q)
		}
	}
}

func TestPlan_Deterministic(t *testing.T) {
	p := Params{Niches: []string{"dentist", "barber"}, Locations: []string{"Austin", "Dallas"}}
	first, err := Plan(p)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Plan(p)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("order differs at %d: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestNormalizeFacet_WhitespaceCollapsed(t *testing.T) {
	p := Params{Niches: []string{"  yoga   teacher  ", "", "   "}}
	if err := p.Normalize(); err != nil {
		t.Fatal(err)
	}
	if len(p.Niches) != 1 || p.Niches[0] != "yoga teacher" {
		t.Errorf("unexpected normalization: %#v", p.Niches)
	}
}
