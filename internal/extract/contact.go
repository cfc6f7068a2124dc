package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Contacts is the best-effort signal bundle pulled from arbitrary text.
// Every field is independently empty when nothing matched; absence is never
// an error.
type Contacts struct {
	Email    string
	Phone    string
	WhatsApp string
	BioLink  string
}

// Empty reports whether no signal at all was found.
func (c Contacts) Empty() bool {
	return c.Email == "" && c.Phone == "" && c.WhatsApp == "" && c.BioLink == ""
}

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	// Permissive on purpose; candidates are normalized and length-filtered
	// afterwards.
	phoneRe      = regexp.MustCompile(`\+?\d[\d\s().\-]{6,}\d`)
	phoneSepRe   = regexp.MustCompile(`[\s().\-]`)
	whatsAppRe   = regexp.MustCompile(`(?i)https?://(wa\.me|api\.whatsapp\.com)/[^\s)\]]+`)
	bioLinkRe    = regexp.MustCompile(`(?i)https?://(linktr\.ee|beacons\.ai|lnk\.bio|bio\.site|taplink\.cc)/[^\s)\]]+`)
	absoluteRe   = regexp.MustCompile(`(?i)https?://[^\s)\]]+`)
	bareDomainRe = regexp.MustCompile(`\b([a-zA-Z0-9\-]+\.)+[a-zA-Z]{2,}\b`)
)

// placeholderEmailDomains are never real contact addresses; they show up in
// markup, examples, and error-reporting snippets.
var placeholderEmailDomains = map[string]struct{}{
	"example.com":    {},
	"example.org":    {},
	"domain.com":     {},
	"email.com":      {},
	"sentry.io":      {},
	"yourdomain.com": {},
}

// ContactsFromText applies every signal heuristic to the text and returns
// the first qualifying match per field.
func ContactsFromText(text string) Contacts {
	c := Contacts{
		BioLink: BioLinkFromText(text),
	}

	if emails := Emails(text); len(emails) > 0 {
		c.Email = emails[0]
	}

	phones := Phones(text)
	if len(phones) > 0 {
		c.Phone = phones[0]
	}

	c.WhatsApp = WhatsAppLink(text)
	if c.WhatsApp == "" {
		// A "+"-prefixed number is a usable WhatsApp target.
		for _, p := range phones {
			if strings.HasPrefix(p, "+") {
				c.WhatsApp = p
				break
			}
		}
	}

	return c
}

// Emails returns deduplicated, lower-cased addresses found in the text,
// with obvious placeholders filtered out.
func Emails(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range emailRe.FindAllString(text, -1) {
		addr := strings.ToLower(m)
		if _, dup := seen[addr]; dup {
			continue
		}
		at := strings.LastIndexByte(addr, '@')
		if _, placeholder := placeholderEmailDomains[addr[at+1:]]; placeholder {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// Phones returns normalized phone-number candidates: separators stripped,
// a leading "00" international prefix rewritten to "+", and a digit-length
// filter of 8-20 applied. Candidates that parse as real numbers are
// rendered in E.164.
func Phones(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range phoneRe.FindAllString(text, -1) {
		n := phoneSepRe.ReplaceAllString(m, "")
		if strings.HasPrefix(n, "00") {
			n = "+" + n[2:]
		}
		digits := len(strings.TrimPrefix(n, "+"))
		if digits < 8 || digits > 20 {
			continue
		}
		if strings.HasPrefix(n, "+") {
			if parsed, err := phonenumbers.Parse(n, ""); err == nil && phonenumbers.IsValidNumber(parsed) {
				n = phonenumbers.Format(parsed, phonenumbers.E164)
			}
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// WhatsAppLink returns a canonical wa.me / api.whatsapp.com link verbatim,
// or "".
func WhatsAppLink(text string) string {
	return whatsAppRe.FindString(text)
}

// BioLinkFromText finds a bio-style external link: a known link-in-bio
// aggregator first, then any non-platform absolute URL, then a bare domain
// token. The platform's own domain never qualifies.
func BioLinkFromText(text string) string {
	if text == "" {
		return ""
	}

	if m := bioLinkRe.FindString(text); m != "" {
		return m
	}

	for _, m := range absoluteRe.FindAllString(text, -1) {
		u, err := url.Parse(m)
		if err != nil {
			continue
		}
		host := strings.ToLower(u.Hostname())
		if !strings.Contains(host, platformDomain) {
			return u.String()
		}
	}

	if m := bareDomainRe.FindString(text); m != "" {
		if !strings.Contains(strings.ToLower(m), platformDomain) {
			return "https://" + m
		}
	}

	return ""
}

// WebsiteFromText is the discovery-phase website hint: any non-platform
// absolute URL first, then a bare domain, then an aggregator link. It feeds
// Identity.WebsiteHint.
func WebsiteFromText(text string) string {
	if text == "" {
		return ""
	}

	for _, m := range absoluteRe.FindAllString(text, -1) {
		u, err := url.Parse(m)
		if err != nil {
			continue
		}
		if !strings.Contains(strings.ToLower(u.Hostname()), platformDomain) {
			return u.String()
		}
	}

	if m := bareDomainRe.FindString(text); m != "" {
		if !strings.Contains(strings.ToLower(m), platformDomain) {
			return "https://" + m
		}
	}

	return ""
}
