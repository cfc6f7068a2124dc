// Package extract holds the pure text/HTML heuristics of the pipeline:
// recovering platform identities and contact signals from noisy search
// results and fetched pages. Every heuristic is a named function so
// patterns can be tuned without touching orchestration.
package extract

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	platformDomain = "instagram.com"

	// maxHandleLen is Instagram's username length ceiling.
	maxHandleLen = 30
)

// nonProfileSegments are first path segments that never identify a profile.
var nonProfileSegments = map[string]struct{}{
	"":          {},
	"p":         {},
	"reel":      {},
	"tv":        {},
	"explore":   {},
	"tags":      {},
	"stories":   {},
	"accounts":  {},
	"about":     {},
	"developer": {},
	"directory": {},
	"web":       {},
	"graphql":   {},
}

var (
	handleCharsRe   = regexp.MustCompile(`[^a-zA-Z0-9._]`)
	profileInTextRe = regexp.MustCompile(`(?i)instagram\.com/([a-zA-Z0-9._]{1,30})`)
	mentionRe       = regexp.MustCompile(`\B@([a-zA-Z0-9._]{1,30})\b`)
	followersRe     = regexp.MustCompile(`(?i)(\d[\d.,]*)\s*([km])?\s*followers`)
)

// Identity is a candidate profile pulled out of one search result.
type Identity struct {
	Username string
	// WebsiteHint is an external URL spotted alongside the handle; it seeds
	// the lead's website when present.
	WebsiteHint string
	// Followers is the count parsed from the result text, 0 when absent.
	Followers int
}

// IdentityFromResult recovers a candidate identity from a search hit,
// preferring the link and falling back to snippet then title text. A zero
// return with ok=false is the expected outcome for non-profile hits.
func IdentityFromResult(title, link, snippet string) (Identity, bool) {
	username := ""
	if link != "" {
		username = UsernameFromURL(link)
	}
	if username == "" {
		username = UsernameFromText(snippet)
	}
	if username == "" {
		username = UsernameFromText(title)
	}
	if username == "" {
		return Identity{}, false
	}

	hint := WebsiteFromText(snippet)
	if hint == "" {
		hint = WebsiteFromText(title)
	}

	followers := FollowersFromText(snippet)
	if followers == 0 {
		followers = FollowersFromText(title)
	}

	return Identity{Username: username, WebsiteHint: hint, Followers: followers}, true
}

// UsernameFromURL extracts a profile handle from a platform URL. Returns ""
// for non-platform hosts, reserved path segments, and invalid handles.
func UsernameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	// m.instagram.com and www.instagram.com count too.
	if host != platformDomain && !strings.HasSuffix(host, "."+platformDomain) {
		return ""
	}

	var first string
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			first = seg
			break
		}
	}
	if !likelyProfileSegment(strings.ToLower(first)) {
		return ""
	}
	return SanitizeUsername(first)
}

// UsernameFromText scans free text for an explicit profile URL substring or
// an @handle mention.
func UsernameFromText(text string) string {
	if text == "" {
		return ""
	}

	if m := profileInTextRe.FindStringSubmatch(text); m != nil {
		seg := strings.ToLower(m[1])
		if likelyProfileSegment(seg) {
			return SanitizeUsername(m[1])
		}
	}

	if m := mentionRe.FindStringSubmatch(text); m != nil {
		return SanitizeUsername(m[1])
	}

	return ""
}

// SanitizeUsername strips characters outside the platform alphabet, rejects
// empty and over-length candidates, and lower-cases the survivor.
func SanitizeUsername(candidate string) string {
	username := handleCharsRe.ReplaceAllString(candidate, "")
	if username == "" || len(username) > maxHandleLen {
		return ""
	}
	return strings.ToLower(username)
}

// FollowersFromText parses a follower count out of result text like
// "12.3K Followers, 108 Following" or "1,234 followers". Returns 0 when no
// count is present or the number does not parse.
func FollowersFromText(text string) int {
	m := followersRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	num := strings.ReplaceAll(m[1], ",", "")
	num = strings.TrimRight(num, ".")
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	switch strings.ToLower(m[2]) {
	case "k":
		v *= 1_000
	case "m":
		v *= 1_000_000
	}
	return int(v)
}

func likelyProfileSegment(seg string) bool {
	_, blocked := nonProfileSegments[seg]
	return !blocked
}
