package ingest

import (
	"sort"
	"strings"

	"github.com/sevabrata/campaignsync/internal/types"
)

// Source table column names.
const (
	ColumnTitle            = "title"
	ColumnShortDescription = "shortDescription"
	ColumnFullDescription  = "fullDescription"
	ColumnImage            = "image"
	ColumnTargetAmount     = "targetAmount"
	ColumnRaisedAmount     = "raisedAmount"
	ColumnStatus           = "status"
	ColumnUrgency          = "urgency"
	ColumnCategory         = "category"
	ColumnName             = "name"
	ColumnAge              = "age"
	ColumnLocation         = "location"
	ColumnCondition        = "condition"
	ColumnHospital         = "hospital"
	ColumnDoctor           = "doctor"
	ColumnDate             = "date"
	ColumnEvent            = "event"
	ColumnDescription      = "description"

	// DefaultImageColumn is the header the campaign sheet uses for image links.
	DefaultImageColumn = "image (link to images if any)"
	// DefaultCategory is the input category assumed when the sheet has no category column.
	DefaultCategory = "medical"
)

// Fields holds the scalar values a group contributes, taken from its first row.
// Amounts stay as text; parsing them is part of reconciliation.
type Fields struct {
	Title            string
	ShortDescription string
	FullDescription  string
	Image            string
	TargetAmount     string
	RaisedAmount     string
	Status           string
	Urgency          string
	Category         string
	Patient          types.PatientDetails
}

// Group is every row sharing one campaign title.
type Group struct {
	Title    string
	Rows     []Row
	Fields   Fields
	Timeline []types.TimelineEntry
}

// Grouper collapses source rows into per-campaign groups.
type Grouper struct {
	// ImageColumn names the column holding the image link.
	ImageColumn string
}

// NewGrouper returns a Grouper reading images from imageColumn,
// or DefaultImageColumn when imageColumn is empty.
func NewGrouper(imageColumn string) *Grouper {
	if imageColumn == "" {
		imageColumn = DefaultImageColumn
	}
	return &Grouper{ImageColumn: imageColumn}
}

// Group buckets rows by trimmed title, keeping first-seen title order.
// Rows with a blank title are dropped.
func (g *Grouper) Group(rows []Row) []Group {
	index := make(map[string]int)
	var groups []Group

	for _, row := range rows {
		title := strings.TrimSpace(row.Get(ColumnTitle))
		if title == "" {
			continue
		}
		i, ok := index[title]
		if !ok {
			i = len(groups)
			index[title] = i
			groups = append(groups, Group{Title: title})
		}
		groups[i].Rows = append(groups[i].Rows, row)
	}

	for i := range groups {
		groups[i].Fields = g.fields(groups[i].Title, groups[i].Rows[0])
		groups[i].Timeline = ParseTimeline(groups[i].Rows)
	}

	return groups
}

// fields extracts the scalar values of a group from its primary row.
func (g *Grouper) fields(title string, main Row) Fields {
	image, ok := main.Lookup(g.ImageColumn)
	if !ok {
		image = main.Get(ColumnImage)
	}
	category, ok := main.Lookup(ColumnCategory)
	if !ok {
		category = DefaultCategory
	}
	targetAmount, ok := main.Lookup(ColumnTargetAmount)
	if !ok {
		targetAmount = "0"
	}
	raisedAmount, ok := main.Lookup(ColumnRaisedAmount)
	if !ok {
		raisedAmount = "0"
	}

	return Fields{
		Title:            title,
		ShortDescription: main.Get(ColumnShortDescription),
		FullDescription:  main.Get(ColumnFullDescription),
		Image:            image,
		TargetAmount:     targetAmount,
		RaisedAmount:     raisedAmount,
		Status:           main.Get(ColumnStatus),
		Urgency:          main.Get(ColumnUrgency),
		Category:         category,
		Patient: types.PatientDetails{
			Name:      main.Get(ColumnName),
			Age:       types.Text(main.Get(ColumnAge)),
			Location:  main.Get(ColumnLocation),
			Condition: main.Get(ColumnCondition),
			Hospital:  main.Get(ColumnHospital),
			Doctor:    main.Get(ColumnDoctor),
		},
	}
}

// ParseTimeline emits one entry per row carrying both a date and an event,
// ordered by date string. Dates are compared as opaque text.
func ParseTimeline(rows []Row) []types.TimelineEntry {
	var timeline []types.TimelineEntry
	for _, row := range rows {
		date, event := row.Get(ColumnDate), row.Get(ColumnEvent)
		if date == "" || event == "" {
			continue
		}
		timeline = append(timeline, types.TimelineEntry{
			Date:        date,
			Event:       event,
			Description: row.Get(ColumnDescription),
		})
	}
	SortTimeline(timeline)
	return timeline
}

// SortTimeline orders entries ascending by date, keeping input order for equal dates.
func SortTimeline(timeline []types.TimelineEntry) {
	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].Date < timeline[j].Date
	})
}
