package models

import "time"

// PendingNotification is a report email that failed to send and is waiting for retry
type PendingNotification struct {
	ID           string    `json:"id"`
	InspectionID string    `json:"inspection_id" badgerhold:"index"`
	Recipients   []string  `json:"recipients"`
	OwnerName    string    `json:"owner_name"`
	LocalPath    string    `json:"local_path"`
	ReportURL    string    `json:"report_url"`
	Attempts     int       `json:"attempts"`
	LastError    string    `json:"last_error"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" badgerhold:"index"`
}
