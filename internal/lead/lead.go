package lead

import (
	"fmt"
	"time"
)

// Status is the operator-managed lifecycle tag of a lead. The pipeline only
// ever assigns StatusNew at creation; every other transition is an explicit
// operator action.
type Status string

const (
	StatusNew        Status = "new"
	StatusQueued     Status = "queued"
	StatusContacted  Status = "contacted"
	StatusLoomSent   Status = "loom_sent"
	StatusInterested Status = "interested"
	StatusClosed     Status = "closed"
	StatusDead       Status = "dead"
)

// Statuses lists every valid status value.
var Statuses = []Status{
	StatusNew,
	StatusQueued,
	StatusContacted,
	StatusLoomSent,
	StatusInterested,
	StatusClosed,
	StatusDead,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseStatus converts a raw string into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown lead status %q", raw)
	}
	return s, nil
}

// Lead is a discovered profile and everything learned about it so far.
// Enrichment fields are pointers so that "unknown" and "known empty" stay
// distinguishable; merge rules depend on that.
type Lead struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Followers     int    `json:"followers"`
	Website       string `json:"website,omitempty"`
	InferredNiche string `json:"inferred_niche,omitempty"`
	SourceQuery   string `json:"source_query,omitempty"`
	Status        Status `json:"status"`

	WebsiteTitle    *string  `json:"website_title,omitempty"`
	WebsitePlatform *string  `json:"website_platform,omitempty"`
	HasBooking      *bool    `json:"has_booking,omitempty"`
	HasCheckout     *bool    `json:"has_checkout,omitempty"`
	OfferKeywords   []string `json:"offer_keywords,omitempty"`

	ContactEmail    *string `json:"contact_email,omitempty"`
	ContactPhone    *string `json:"contact_phone,omitempty"`
	ContactWhatsApp *string `json:"contact_whatsapp,omitempty"`

	QualityScore int        `json:"quality_score"`
	EnrichedAt   *time.Time `json:"enriched_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Signals assembles the scoring input from the lead's current state.
func (l *Lead) Signals() Signals {
	return Signals{
		Followers:     l.Followers,
		HasWebsite:    l.Website != "",
		HasBooking:    l.HasBooking != nil && *l.HasBooking,
		HasCheckout:   l.HasCheckout != nil && *l.HasCheckout,
		OfferKeywords: len(l.OfferKeywords),
		HasEmail:      l.ContactEmail != nil && *l.ContactEmail != "",
		HasPhone:      l.ContactPhone != nil && *l.ContactPhone != "",
		HasWhatsApp:   l.ContactWhatsApp != nil && *l.ContactWhatsApp != "",
	}
}

// Enrichment is what a single website analysis pass produced.
type Enrichment struct {
	WebsiteTitle    string
	WebsitePlatform string
	HasBooking      bool
	HasCheckout     bool
	OfferKeywords   []string
	ContactEmail    string
	ContactPhone    string
	ContactWhatsApp string
}

// ApplyEnrichment merges a fresh enrichment into the lead. Last-known-good
// wins: a field that came back empty never clears a value learned earlier.
// Booking/checkout flags are always refreshed since the analyzer computed
// them from a live page.
func (l *Lead) ApplyEnrichment(e *Enrichment) {
	if e == nil {
		return
	}
	if e.WebsiteTitle != "" {
		l.WebsiteTitle = ptr(e.WebsiteTitle)
	}
	if e.WebsitePlatform != "" {
		l.WebsitePlatform = ptr(e.WebsitePlatform)
	}
	l.HasBooking = ptr(e.HasBooking)
	l.HasCheckout = ptr(e.HasCheckout)
	if len(e.OfferKeywords) > 0 {
		l.OfferKeywords = e.OfferKeywords
	}
	if e.ContactEmail != "" {
		l.ContactEmail = ptr(e.ContactEmail)
	}
	if e.ContactPhone != "" {
		l.ContactPhone = ptr(e.ContactPhone)
	}
	if e.ContactWhatsApp != "" {
		l.ContactWhatsApp = ptr(e.ContactWhatsApp)
	}
}

func ptr[T any](v T) *T { return &v }
