// Package enrich fetches a lead's website and derives structured commercial
// signals from its markup: platform fingerprint, booking/checkout language,
// offer keywords, and contact details.
package enrich

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	"github.com/FranksOps/leadscout/internal/extract"
	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/metrics"
	"github.com/PuerkitoBio/goquery"
)

// platformFingerprints are scanned against raw HTML in order; first match
// wins. Values are the canonical platform names stored on the lead.
var platformFingerprints = []struct {
	needle   string
	platform string
}{
	{"shopify", "shopify"},
	{"woocommerce", "woocommerce"},
	{"wp-content", "wordpress"},
	{"wordpress", "wordpress"},
	{"wix.com", "wix"},
	{"squarespace", "squarespace"},
	{"webflow", "webflow"},
}

// bookingWords and checkoutWords are matched against the lower-cased body
// text. Textual heuristics over vendor APIs: we hold no credentials to any
// commerce platform, so markup is the only available signal source.
var bookingWords = []string{"book", "appointment", "schedule", "reserve"}

var checkoutWords = []string{"checkout", "buy", "add to cart", "order now", "shop"}

const maxOfferKeywords = 20

// Analyzer turns a website URL into a lead.Enrichment.
type Analyzer struct {
	fetcher *Fetcher
	logger  *slog.Logger
}

// NewAnalyzer builds an Analyzer over the given fetcher.
func NewAnalyzer(fetcher *Fetcher, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{fetcher: fetcher, logger: logger}
}

// Analyze fetches and inspects the website. A nil return means "no
// enrichment available this attempt" (unreachable site, empty body,
// challenge page, unparsable markup) and is not an error; the same URL may
// enrich fine on a later run.
func (a *Analyzer) Analyze(ctx context.Context, websiteURL string) *lead.Enrichment {
	result, err := a.fetcher.Fetch(ctx, websiteURL)
	if err != nil {
		a.logger.Debug("enrichment fetch rejected", "url", websiteURL, "err", err)
		return nil
	}
	if !result.OK() {
		a.logger.Debug("enrichment fetch unusable",
			"url", websiteURL, "status", result.StatusCode,
			"challenged", result.Challenged, "err", result.Error)
		return nil
	}

	enrichment := AnalyzeHTML(result.Body)
	if enrichment == nil {
		return nil
	}

	metrics.LeadsEnrichedTotal.WithLabelValues("ok").Inc()
	return enrichment
}

// AnalyzeHTML derives an enrichment record from raw page HTML. Exported
// separately so the heuristics stay testable without network I/O.
func AnalyzeHTML(html []byte) *lead.Enrichment {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil
	}

	bodyText := strings.ToLower(doc.Find("body").Text())
	title := strings.TrimSpace(doc.Find("title").First().Text())
	metaDesc, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	h1 := strings.TrimSpace(doc.Find("h1").First().Text())

	e := &lead.Enrichment{
		WebsiteTitle:    title,
		WebsitePlatform: detectPlatform(html),
		HasBooking:      containsAny(bodyText, bookingWords),
		HasCheckout:     containsAny(bodyText, checkoutWords),
		OfferKeywords:   offerKeywords(h1, title, metaDesc),
	}

	contacts := extract.ContactsFromText(string(html))
	e.ContactEmail = contacts.Email
	e.ContactPhone = contacts.Phone
	e.ContactWhatsApp = contacts.WhatsApp

	return e
}

// detectPlatform scans raw HTML case-insensitively for vendor signatures.
func detectPlatform(html []byte) string {
	lower := bytes.ToLower(html)
	for _, fp := range platformFingerprints {
		if bytes.Contains(lower, []byte(fp.needle)) {
			return fp.platform
		}
	}
	return ""
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// offerKeywords tokenizes the page's headline surfaces (H1, title, meta
// description) into lower-case tokens of 3+ characters, deduplicated and
// capped.
func offerKeywords(sources ...string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, src := range sources {
		for _, tok := range tokenize(src) {
			if len(tok) < 3 {
				continue
			}
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			out = append(out, tok)
			if len(out) == maxOfferKeywords {
				return out
			}
		}
	}
	return out
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
}
