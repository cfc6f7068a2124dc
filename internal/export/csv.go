package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/FranksOps/leadscout/internal/lead"
)

// headers defines the CSV column order
var headers = []string{
	"id",
	"username",
	"followers",
	"website",
	"inferred_niche",
	"status",
	"website_title",
	"website_platform",
	"has_booking",
	"has_checkout",
	"offer_keywords",
	"contact_email",
	"contact_phone",
	"contact_whatsapp",
	"quality_score",
	"enriched_at",
	"created_at",
}

// WriteCSV renders leads as CSV with a header row. Offer keywords are
// joined with "|"; absent optional fields render as empty cells.
func WriteCSV(w io.Writer, leads []*lead.Lead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, l := range leads {
		record := []string{
			l.ID,
			l.Username,
			strconv.Itoa(l.Followers),
			l.Website,
			l.InferredNiche,
			string(l.Status),
			strValue(l.WebsiteTitle),
			strValue(l.WebsitePlatform),
			boolValue(l.HasBooking),
			boolValue(l.HasCheckout),
			strings.Join(l.OfferKeywords, "|"),
			strValue(l.ContactEmail),
			strValue(l.ContactPhone),
			strValue(l.ContactWhatsApp),
			strconv.Itoa(l.QualityScore),
			timeValue(l.EnrichedAt),
			l.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", l.Username, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func strValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func boolValue(p *bool) string {
	if p == nil {
		return ""
	}
	return strconv.FormatBool(*p)
}

func timeValue(p *time.Time) string {
	if p == nil {
		return ""
	}
	return p.UTC().Format(time.RFC3339)
}
