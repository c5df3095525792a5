// Package dto defines the review API request and response payloads.
package dto

import "github.com/seacliff-digital/reportpilot/internal/models"

// TransitionRequest is the reviewer decision payload.
type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// EntrySummary is the list-view projection of a ledger entry. Bodies are
// omitted; fetch a single entry for the full rendered notification.
type EntrySummary struct {
	EntryID          string                `json:"entry_id"`
	ClientID         string                `json:"client_id"`
	BusinessName     string                `json:"business_name"`
	Period           string                `json:"period"`
	ReportKind       models.ReportKind     `json:"report_kind"`
	ContactEmail     string                `json:"contact_email"`
	EmailSubject     string                `json:"email_subject"`
	Status           models.ApprovalStatus `json:"status"`
	Notes            string                `json:"notes,omitempty"`
	ExtractionErrors []string              `json:"extraction_errors,omitempty"`
}

// NewEntrySummary projects a ledger entry for listing.
func NewEntrySummary(e models.ApprovalEntry) EntrySummary {
	return EntrySummary{
		EntryID:          e.EntryID,
		ClientID:         e.ClientID,
		BusinessName:     e.BusinessName,
		Period:           e.Period,
		ReportKind:       e.ReportKind,
		ContactEmail:     e.ContactEmail,
		EmailSubject:     e.EmailSubject,
		Status:           e.Status,
		Notes:            e.Notes,
		ExtractionErrors: e.ExtractionErrors,
	}
}
