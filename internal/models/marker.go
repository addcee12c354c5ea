// Package models defines the domain records for Laguz.
package models

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Marker is a catalog definition of a lab biomarker.
// The catalog is shared and read-only from the engine's point of view.
type Marker struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	ShortName   string  `json:"short_name,omitempty" yaml:"short_name"`
	Unit        string  `json:"unit" yaml:"unit"`
	MinRef      float64 `json:"min_ref" yaml:"min_ref"`
	MaxRef      float64 `json:"max_ref" yaml:"max_ref"`
	DisplayMin  float64 `json:"display_min,omitempty" yaml:"display_min"`
	DisplayMax  float64 `json:"display_max,omitempty" yaml:"display_max"`
	Category    string  `json:"category,omitempty" yaml:"category"`
	Description string  `json:"description,omitempty" yaml:"description"`
}

// Validate checks a catalog entry. Equal bounds are allowed.
func (m *Marker) Validate() error {
	err := validation.ValidateStruct(m,
		validation.Field(&m.ID, validation.Required, validation.Length(1, 100)),
		validation.Field(&m.Name, validation.Required),
		validation.Field(&m.MinRef, validation.By(finite)),
		validation.Field(&m.MaxRef, validation.By(finite)),
	)
	if err != nil {
		return err
	}
	if m.MinRef > m.MaxRef {
		return errors.New("max_ref: must not be below min_ref")
	}
	return nil
}

// Measurement is a single logged lab value for one marker.
type Measurement struct {
	ID        string    `json:"id"`
	MarkerID  string    `json:"marker_id"`
	Value     float64   `json:"value"`
	Date      time.Time `json:"date"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Day returns the calendar day of the measurement in UTC.
// Time of day is not significant when ordering measurements.
func (m Measurement) Day() time.Time {
	return TruncateDay(m.Date)
}

// Validate checks a measurement before it is stored.
func (m *Measurement) Validate() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.MarkerID, validation.Required),
		validation.Field(&m.Value, validation.By(finite)),
		validation.Field(&m.Date, validation.Required),
		validation.Field(&m.Note, validation.Length(0, 2000)),
	)
}

// MarkerNote is a free-text annotation attached to a marker.
type MarkerNote struct {
	ID        string    `json:"id"`
	MarkerID  string    `json:"marker_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks a note before it is stored.
func (n *MarkerNote) Validate() error {
	return validation.ValidateStruct(n,
		validation.Field(&n.MarkerID, validation.Required),
		validation.Field(&n.Body, validation.Required, validation.Length(1, 5000)),
	)
}

// CalendarDay returns the calendar date t names in its own location, as
// midnight UTC. 2024-03-01T00:30+02:00 stays 2024-03-01.
func CalendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// TruncateDay returns midnight UTC of t's calendar day.
func TruncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
