package lead

// Signals is the input bundle for Score. Every field defaults to its zero
// value when unknown; Score never reads anything else.
type Signals struct {
	Followers     int
	HasWebsite    bool
	HasBooking    bool
	HasCheckout   bool
	OfferKeywords int
	HasEmail      bool
	HasPhone      bool
	HasWhatsApp   bool
}

// Score point table. Buckets are additive and can sum past MaxScore; the
// final value is clamped into [0, MaxScore].
const (
	MaxScore = 10

	websitePoints  = 2
	bookingPoints  = 1
	checkoutPoints = 1
)

// followerThresholds each award one point when crossed. They are cumulative:
// a lead above the top threshold collects a point for all four.
var followerThresholds = [...]int{500, 2_000, 10_000, 50_000}

// keywordThresholds each award one point when the distinct offer-keyword
// count reaches them.
var keywordThresholds = [...]int{3, 6}

// contactPoints maps the number of distinct contact-signal types (email,
// phone, whatsapp) to its saturating bonus.
func contactPoints(n int) int {
	switch {
	case n >= 2:
		return 2
	case n == 1:
		return 1
	default:
		return 0
	}
}

// Score maps a signal bundle to a quality score in [0, MaxScore]. It is pure
// and deterministic; the whole point table lives in this file.
func Score(s Signals) int {
	score := 0

	for _, t := range followerThresholds {
		if s.Followers > t {
			score++
		}
	}

	if s.HasWebsite {
		score += websitePoints
	}

	contacts := 0
	if s.HasEmail {
		contacts++
	}
	if s.HasPhone {
		contacts++
	}
	if s.HasWhatsApp {
		contacts++
	}
	score += contactPoints(contacts)

	if s.HasBooking {
		score += bookingPoints
	}
	if s.HasCheckout {
		score += checkoutPoints
	}

	for _, t := range keywordThresholds {
		if s.OfferKeywords >= t {
			score++
		}
	}

	if score > MaxScore {
		return MaxScore
	}
	if score < 0 {
		return 0
	}
	return score
}
