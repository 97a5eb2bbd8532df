package reconcile

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sevabrata/campaignsync/internal/types"
)

// ParseAmount reads a whole-number amount, ignoring thousands separators.
// Blank text is zero; anything else that is not a non-negative integer is an AmountError.
func ParseAmount(text string) (int64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}
	digits := strings.TrimSpace(strings.ReplaceAll(text, ",", ""))
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 {
		return 0, &AmountError{Value: text}
	}
	return n, nil
}

// NormalizeUrgency maps free text onto an urgency level, defaulting to medium.
func NormalizeUrgency(text string) types.Urgency {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "high", "urgent":
		return types.UrgencyHigh
	case "low":
		return types.UrgencyLow
	default:
		return types.UrgencyMedium
	}
}

var (
	slugStrip    = regexp.MustCompile(`[^\p{L}\p{N}_\s\p{Zs}-]`)
	slugCollapse = regexp.MustCompile(`[\s\p{Zs}-]+`)
)

// Slugify derives a URL-friendly campaign id from a title.
// Case, punctuation and whitespace differences that normalise the same yield the same id.
// Only letters, numbers, underscores and separators survive, so combining marks
// (Devanagari vowel signs, decomposed accents) are dropped.
func Slugify(title string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(title), "")
	slug = slugCollapse.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
