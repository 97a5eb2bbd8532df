// Package validation checks reconciled campaign records before they are written.
package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sevabrata/campaignsync/internal/types"
)

// ErrInvalidRecord is matched by every *RecordError.
var ErrInvalidRecord = errors.New("invalid campaign record")

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Collector accumulates validation errors without failing on first.
type Collector struct {
	errors []ValidationError
}

// Add appends a validation error to the collector if non-nil.
func (c *Collector) Add(err *ValidationError) {
	if err != nil {
		c.errors = append(c.errors, *err)
	}
}

// HasErrors returns true if the collector has accumulated any errors.
func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

// Errors returns all accumulated validation errors.
func (c *Collector) Errors() []ValidationError {
	return c.errors
}

// RecordError lists every problem found in one record.
type RecordError struct {
	ID     string
	Fields []ValidationError
}

func (e *RecordError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " " + f.Message
	}
	return fmt.Sprintf("campaign %q: %s", e.ID, strings.Join(parts, "; "))
}

func (e *RecordError) Is(target error) bool {
	return target == ErrInvalidRecord
}

// ValidateUTF8 returns an error if the value is not valid UTF-8.
func ValidateUTF8(field, value string) *ValidationError {
	if !utf8.ValidString(value) {
		return &ValidationError{
			Field:   field,
			Message: "must be valid UTF-8",
		}
	}
	return nil
}

// ValidateNoNullBytes returns an error if the value contains null bytes.
func ValidateNoNullBytes(field, value string) *ValidationError {
	if strings.Contains(value, "\x00") {
		return &ValidationError{
			Field:   field,
			Message: "must not contain null bytes",
		}
	}
	return nil
}

// Campaign checks that every text field of a record can be published: valid
// UTF-8 with no NUL bytes. The structural fields (id, status, urgency,
// amounts, dates) are guaranteed by reconciliation and are not rechecked.
// It returns a *RecordError listing every failed field, or nil.
func Campaign(c types.Campaign) error {
	var v Collector

	text := map[string]string{
		"title":            c.Title,
		"shortDescription": c.ShortDescription,
		"fullDescription":  c.FullDescription,
		"image":            c.Image,
		"category":         c.Category,
	}
	if p := c.PatientDetails; p != nil {
		text["patientDetails.name"] = p.Name
		text["patientDetails.age"] = string(p.Age)
		text["patientDetails.location"] = p.Location
		text["patientDetails.condition"] = p.Condition
		text["patientDetails.hospital"] = p.Hospital
		text["patientDetails.doctor"] = p.Doctor
	}
	for i, e := range c.Timeline {
		text[fmt.Sprintf("timeline[%d].event", i)] = e.Event
		text[fmt.Sprintf("timeline[%d].description", i)] = e.Description
	}
	for _, field := range sortedFields(text) {
		v.Add(ValidateUTF8(field, text[field]))
		v.Add(ValidateNoNullBytes(field, text[field]))
	}

	if !v.HasErrors() {
		return nil
	}
	return &RecordError{ID: c.ID, Fields: v.Errors()}
}

func sortedFields(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
