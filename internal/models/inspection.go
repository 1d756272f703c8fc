package models

import (
	"time"
)

// InspectionStatus tracks whether a report has been produced for an inspection
type InspectionStatus string

const (
	InspectionStatusPending   InspectionStatus = "pending"
	InspectionStatusCompleted InspectionStatus = "completed"
)

// Inspection is one property-condition assessment event.
// ReportURL, Status and ReportGeneratedAt are the only fields written by report generation.
type Inspection struct {
	ID         string    `json:"id" yaml:"id" validate:"required"`
	OwnerName  string    `json:"owner_name" yaml:"owner_name"`
	OwnerEmail string    `json:"owner_email" yaml:"owner_email" validate:"omitempty,email"`
	PropertyID string    `json:"property_id" yaml:"property_id" badgerhold:"index"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`

	// Report state
	ReportURL         string           `json:"report_url,omitempty" yaml:"report_url,omitempty"`
	Status            InspectionStatus `json:"status" yaml:"status" badgerhold:"index"`
	ReportGeneratedAt *time.Time       `json:"report_generated_at,omitempty" yaml:"report_generated_at,omitempty"`
}

// Property is the house an inspection belongs to. Read-only for report generation.
type Property struct {
	ID      string `json:"id" yaml:"id" validate:"required"`
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address" yaml:"address"`
}

// ComparisonEvent is one timestamped narrative entry contributing to a room's comparison
type ComparisonEvent struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Result    string    `json:"result" yaml:"result"`
}

// RoomComparison is the before/after assessment of one named room
type RoomComparison struct {
	ID               string            `json:"id" yaml:"id" validate:"required"`
	InspectionID     string            `json:"inspection_id" yaml:"inspection_id" badgerhold:"index"`
	RoomName         string            `json:"room_name" yaml:"room_name" validate:"required"`
	ComparisonResult string            `json:"comparison_result" yaml:"comparison_result"`
	Events           []ComparisonEvent `json:"events,omitempty" yaml:"events,omitempty"`
	ImageURLs        []string          `json:"image_urls,omitempty" yaml:"image_urls,omitempty"`
}

// ReportState is the set of inspection fields written back after publishing
type ReportState struct {
	ReportURL   string
	Status      InspectionStatus
	GeneratedAt time.Time
}

// InspectionBundle is everything read for one report: the inspection,
// its property (zero value when missing) and its rooms in presentation order
type InspectionBundle struct {
	Inspection Inspection
	Property   Property
	Rooms      []RoomComparison
}
