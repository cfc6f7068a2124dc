package lead

import (
	"math"
	"math/rand"
	"testing"
)

func TestScore_Buckets(t *testing.T) {
	tests := []struct {
		name string
		in   Signals
		want int
	}{
		{"zero value", Signals{}, 0},
		{"first follower threshold", Signals{Followers: 501}, 1},
		{"threshold not crossed at exact value", Signals{Followers: 500}, 0},
		{"all follower thresholds", Signals{Followers: 60_000}, 4},
		{"website only", Signals{HasWebsite: true}, 2},
		{"single contact type", Signals{HasEmail: true}, 1},
		{"two contact types saturate at two points", Signals{HasEmail: true, HasPhone: true}, 2},
		{"three contact types still two points", Signals{HasEmail: true, HasPhone: true, HasWhatsApp: true}, 2},
		{"booking and checkout independent", Signals{HasBooking: true, HasCheckout: true}, 2},
		{"keyword thresholds", Signals{OfferKeywords: 6}, 2},
		{"keywords below first threshold", Signals{OfferKeywords: 2}, 0},
		{
			// Everything on sums to 12 and must clamp.
			"maximal bundle clamps to ten",
			Signals{
				Followers:     60_000,
				HasWebsite:    true,
				HasBooking:    true,
				HasCheckout:   true,
				OfferKeywords: 10,
				HasEmail:      true,
				HasPhone:      true,
				HasWhatsApp:   true,
			},
			10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.in); got != tt.want {
				t.Errorf("Score(%+v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestScore_Bounds_Fuzzed(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 10_000; i++ {
		s := Signals{
			Followers:     rng.Intn(200_000) - 100, // occasionally negative
			HasWebsite:    rng.Intn(2) == 0,
			HasBooking:    rng.Intn(2) == 0,
			HasCheckout:   rng.Intn(2) == 0,
			OfferKeywords: rng.Intn(30),
			HasEmail:      rng.Intn(2) == 0,
			HasPhone:      rng.Intn(2) == 0,
			HasWhatsApp:   rng.Intn(2) == 0,
		}
		got := Score(s)
		if got < 0 || got > MaxScore {
			t.Fatalf("Score(%+v) = %d, out of [0,%d]", s, got, MaxScore)
		}
	}

	// Extreme follower counts stay in range.
	for _, f := range []int{math.MinInt32, -1, 0, math.MaxInt32} {
		got := Score(Signals{Followers: f})
		if got < 0 || got > MaxScore {
			t.Fatalf("Score(followers=%d) = %d, out of range", f, got)
		}
	}
}

func TestScore_FollowerMonotonicity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 1_000; i++ {
		base := Signals{
			HasWebsite:    rng.Intn(2) == 0,
			HasBooking:    rng.Intn(2) == 0,
			HasCheckout:   rng.Intn(2) == 0,
			OfferKeywords: rng.Intn(10),
			HasEmail:      rng.Intn(2) == 0,
			HasPhone:      rng.Intn(2) == 0,
			HasWhatsApp:   rng.Intn(2) == 0,
		}

		lo, hi := base, base
		lo.Followers = rng.Intn(100_000)
		hi.Followers = lo.Followers + rng.Intn(100_000)

		if Score(hi) < Score(lo) {
			t.Fatalf("score decreased when followers grew: %+v=%d vs %+v=%d",
				lo, Score(lo), hi, Score(hi))
		}
	}
}

func TestScore_Idempotent(t *testing.T) {
	s := Signals{Followers: 2_500, HasWebsite: true, HasEmail: true, OfferKeywords: 4}
	if Score(s) != Score(s) {
		t.Fatal("scoring the same bundle twice gave different values")
	}
}

func TestLead_Signals(t *testing.T) {
	email := "a@b.co"
	booked := true
	l := Lead{
		Followers:     3_000,
		Website:       "https://example.net",
		ContactEmail:  &email,
		HasBooking:    &booked,
		OfferKeywords: []string{"coach", "agency"},
	}

	s := l.Signals()
	if !s.HasWebsite || !s.HasEmail || !s.HasBooking {
		t.Errorf("signals missing flags: %+v", s)
	}
	if s.OfferKeywords != 2 {
		t.Errorf("expected 2 offer keywords, got %d", s.OfferKeywords)
	}
	if s.HasPhone || s.HasWhatsApp || s.HasCheckout {
		t.Errorf("unexpected flags set: %+v", s)
	}
}

func TestLead_ApplyEnrichment_LastKnownGoodWins(t *testing.T) {
	oldEmail := "old@shop.io"
	oldTitle := "Old Title"
	l := Lead{
		ContactEmail: &oldEmail,
		WebsiteTitle: &oldTitle,
	}

	l.ApplyEnrichment(&Enrichment{
		WebsitePlatform: "shopify",
		HasBooking:      true,
	})

	if l.ContactEmail == nil || *l.ContactEmail != oldEmail {
		t.Errorf("empty enrichment email clobbered existing value: %v", l.ContactEmail)
	}
	if l.WebsiteTitle == nil || *l.WebsiteTitle != oldTitle {
		t.Errorf("empty enrichment title clobbered existing value: %v", l.WebsiteTitle)
	}
	if l.WebsitePlatform == nil || *l.WebsitePlatform != "shopify" {
		t.Errorf("platform not applied: %v", l.WebsitePlatform)
	}
	if l.HasBooking == nil || !*l.HasBooking {
		t.Error("booking flag not applied")
	}

	// nil enrichment is a no-op
	l.ApplyEnrichment(nil)
	if *l.ContactEmail != oldEmail {
		t.Error("nil enrichment mutated the lead")
	}
}

func TestParseStatus(t *testing.T) {
	if _, err := ParseStatus("loom_sent"); err != nil {
		t.Errorf("expected loom_sent to parse: %v", err)
	}
	if _, err := ParseStatus("archived"); err == nil {
		t.Error("expected error for unknown status")
	}
}
