package reconcile

import (
	"strings"

	"github.com/sevabrata/campaignsync/internal/types"
)

// Classify decides the bucket for a campaign.
//
// An explicit status is mapped by keyword. When the status cell is empty a
// previously stored status wins, so the bucket always matches the status
// written into the record. Otherwise a blank status falls back to the
// amounts: ended once the raised amount meets the target, active before.
// A cell holding only spaces counts as blank but does not pick up the
// stored status.
func Classify(explicit string, raised, target int64, existing types.Status) types.Status {
	if explicit == "" && existing != "" {
		if existing.Valid() {
			return existing
		}
		return ParseStatus(string(existing))
	}
	if strings.TrimSpace(explicit) != "" {
		return ParseStatus(explicit)
	}
	if raised >= target {
		return types.StatusEnded
	}
	return types.StatusActive
}

// ParseStatus maps status text onto a bucket. Unrecognised text is active.
func ParseStatus(text string) types.Status {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "ended", "completed", "finished":
		return types.StatusEnded
	case "archived", "paused":
		return types.StatusArchived
	default:
		// "active", "in progress", "ongoing" and anything unknown
		return types.StatusActive
	}
}
