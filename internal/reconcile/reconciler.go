// Package reconcile merges freshly grouped source rows with previously published
// campaign records, deciding field by field which value wins.
package reconcile

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sevabrata/campaignsync/internal/ingest"
	"github.com/sevabrata/campaignsync/internal/types"
)

const (
	// DefaultCurrency is assigned to campaigns on first publication.
	DefaultCurrency = "INR"
	// DefaultCategory is used when neither the source nor the stored record has one.
	DefaultCategory = "medical"

	dateLayout = "2006-01-02"
)

// Snapshot is the set of previously published records keyed by campaign id.
// It is read-only for the lifetime of a run.
type Snapshot map[string]types.Campaign

// Reconciler produces merged campaign records against a fixed snapshot.
type Reconciler struct {
	existing Snapshot
	currency string
	category string
	now      func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithDefaults overrides the currency and category assigned to new campaigns.
// Empty values keep the built-in defaults.
func WithDefaults(currency, category string) Option {
	return func(r *Reconciler) {
		if currency != "" {
			r.currency = currency
		}
		if category != "" {
			r.category = strings.ToLower(category)
		}
	}
}

// WithClock sets the time source used for createdDate and lastUpdated.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// NewReconciler creates a Reconciler over existing. A nil snapshot means no prior records.
func NewReconciler(existing Snapshot, opts ...Option) *Reconciler {
	r := &Reconciler{
		existing: existing,
		currency: DefaultCurrency,
		category: DefaultCategory,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile merges one row group with its stored record.
// Returns an AmountError when either amount cannot be parsed and ErrEmptyID
// when the title has no usable characters; the snapshot is never modified.
func (r *Reconciler) Reconcile(g ingest.Group) (types.Campaign, error) {
	id := Slugify(g.Title)
	if id == "" {
		return types.Campaign{}, fmt.Errorf("%w: %q", ErrEmptyID, g.Title)
	}

	var prev *types.Campaign
	if c, ok := r.existing[id]; ok {
		prev = &c
	}
	return r.merge(id, g.Fields, g.Timeline, prev)
}

// textFields are the free-text columns where a non-empty source value
// replaces the stored one.
var textFields = []struct {
	source func(*ingest.Fields) string
	record func(*types.Campaign) *string
}{
	{
		source: func(f *ingest.Fields) string { return f.ShortDescription },
		record: func(c *types.Campaign) *string { return &c.ShortDescription },
	},
	{
		source: func(f *ingest.Fields) string { return f.FullDescription },
		record: func(c *types.Campaign) *string { return &c.FullDescription },
	},
	{
		source: func(f *ingest.Fields) string { return f.Image },
		record: func(c *types.Campaign) *string { return &c.Image },
	},
}

func (r *Reconciler) merge(id string, f ingest.Fields, timeline []types.TimelineEntry, existing *types.Campaign) (types.Campaign, error) {
	target, err := parseAmountField(ingest.ColumnTargetAmount, f.TargetAmount)
	if err != nil {
		return types.Campaign{}, err
	}
	raised, err := parseAmountField(ingest.ColumnRaisedAmount, f.RaisedAmount)
	if err != nil {
		return types.Campaign{}, err
	}

	var prev types.Campaign
	if existing != nil {
		prev = *existing
	}
	today := r.now().Format(dateLayout)

	out := types.Campaign{
		ID:           id,
		Title:        f.Title,
		TargetAmount: target,
		RaisedAmount: raised,
		Currency:     coalesce(prev.Currency, r.currency),
		Status:       Classify(f.Status, raised, target, prev.Status),
		Urgency:      coalesce(NormalizeUrgency(f.Urgency), prev.Urgency, types.UrgencyMedium),
		Category:     coalesce(strings.ToLower(strings.TrimSpace(f.Category)), prev.Category, r.category),
		Timeline:     mergeTimeline(prev.Timeline, timeline),
		// lastUpdated keeps the stored value, so it only records first publication.
		CreatedDate: coalesce(prev.CreatedDate, today),
		LastUpdated: coalesce(prev.LastUpdated, today),
	}
	for _, field := range textFields {
		*field.record(&out) = coalesce(field.source(&f), *field.record(&prev))
	}

	patient := mergePatient(prev.PatientDetails, f.Patient)
	if patient.Name != "" {
		out.PatientDetails = &patient
	}

	derived := DeriveTags(f.Patient.Condition, f.Category, string(patient.Age))
	out.Tags = MergeTags(prev.Tags, derived)

	return out, nil
}

func parseAmountField(field, text string) (int64, error) {
	n, err := ParseAmount(text)
	if err != nil {
		var amountErr *AmountError
		if errors.As(err, &amountErr) {
			amountErr.Field = field
		}
		return 0, err
	}
	return n, nil
}

// mergePatient overlays incoming patient details onto the stored ones.
// Incoming details only apply when they name the patient.
func mergePatient(existing *types.PatientDetails, incoming types.PatientDetails) types.PatientDetails {
	var p types.PatientDetails
	if existing != nil {
		p = *existing
	}
	if incoming.Name == "" {
		return p
	}
	overlay(&p.Name, incoming.Name)
	overlay(&p.Age, incoming.Age)
	overlay(&p.Location, incoming.Location)
	overlay(&p.Condition, incoming.Condition)
	overlay(&p.Hospital, incoming.Hospital)
	overlay(&p.Doctor, incoming.Doctor)
	return p
}

// mergeTimeline appends incoming entries whose (date, event) pair is not yet
// present and returns the combined history ordered by date.
func mergeTimeline(existing, incoming []types.TimelineEntry) []types.TimelineEntry {
	if len(existing)+len(incoming) == 0 {
		return nil
	}

	merged := make([]types.TimelineEntry, len(existing), len(existing)+len(incoming))
	copy(merged, existing)

	seen := make(map[[2]string]struct{}, cap(merged))
	for _, e := range merged {
		seen[e.Key()] = struct{}{}
	}
	for _, e := range incoming {
		if _, ok := seen[e.Key()]; ok {
			continue
		}
		seen[e.Key()] = struct{}{}
		merged = append(merged, e)
	}

	ingest.SortTimeline(merged)
	return merged
}

// coalesce returns the first non-zero value.
func coalesce[V comparable](values ...V) V {
	var zero V
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// overlay replaces *dst with v when v is non-zero.
func overlay[V comparable](dst *V, v V) {
	var zero V
	if v != zero {
		*dst = v
	}
}
