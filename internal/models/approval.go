package models

import (
	"time"

	"github.com/lib/pq"
)

// ApprovalStatus is the review state of one ledger entry.
type ApprovalStatus string

const (
	StatusPending       ApprovalStatus = "Pending"
	StatusApproved      ApprovalStatus = "Approved"
	StatusNeedsRevision ApprovalStatus = "Needs Revision"
	StatusSent          ApprovalStatus = "Sent"
)

// AllStatuses lists every valid status in review order.
var AllStatuses = []ApprovalStatus{StatusPending, StatusApproved, StatusNeedsRevision, StatusSent}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (ApprovalStatus, bool) {
	for _, s := range AllStatuses {
		if string(s) == raw {
			return s, true
		}
	}
	return "", false
}

// CanTransition reports whether the ledger state machine allows from → to.
// Sent is terminal: no transition leaves it, which guards against double
// dispatch of the same notification.
func CanTransition(from, to ApprovalStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusApproved || to == StatusNeedsRevision
	case StatusNeedsRevision:
		return to == StatusPending || to == StatusApproved
	case StatusApproved:
		return to == StatusSent
	case StatusSent:
		return false
	}
	return false
}

// ApprovalEntry is one row of the approval ledger: the per-(client, period)
// audit record. Entries are only ever created and transitioned, never deleted.
type ApprovalEntry struct {
	EntryID          string         `db:"entry_id" json:"entry_id"`
	ClientID         string         `db:"client_id" json:"client_id"`
	BusinessName     string         `db:"business_name" json:"business_name"`
	Period           string         `db:"period" json:"period"`
	ReportKind       ReportKind     `db:"report_kind" json:"report_kind"`
	ContactEmail     string         `db:"contact_email" json:"contact_email"`
	EmailSubject     string         `db:"email_subject" json:"email_subject"`
	HTMLBody         string         `db:"html_body" json:"html_body,omitempty"`
	TextBody         string         `db:"text_body" json:"text_body,omitempty"`
	PDFPath          string         `db:"pdf_path" json:"pdf_path,omitempty"`
	Status           ApprovalStatus `db:"status" json:"status"`
	Notes            string         `db:"notes" json:"notes"`
	ExtractionErrors pq.StringArray `db:"extraction_errors" json:"extraction_errors"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// EntryID derives the stable ledger key for a client and reporting period.
func EntryID(clientID, period string) string {
	return clientID + ":" + period
}
