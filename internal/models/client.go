package models

// ClientRecord is one row of the client registry. The registry is owned
// externally; this system only loads it and never mutates it mid-run.
type ClientRecord struct {
	ClientID     string     `db:"client_id" json:"client_id"`
	BusinessName string     `db:"business_name" json:"business_name"`
	ContactName  string     `db:"contact_name" json:"contact_name"`
	ContactEmail string     `db:"contact_email" json:"contact_email"`
	ServiceType  ReportKind `db:"service_type" json:"service_type"`
	Active       bool       `db:"active" json:"active"`
}

// MatchOutcome enumerates the matcher verdicts.
type MatchOutcome string

const (
	MatchMatched   MatchOutcome = "matched"
	MatchAmbiguous MatchOutcome = "ambiguous"
	MatchNotFound  MatchOutcome = "not_found"
)

// MatchCandidate is one scored registry candidate.
type MatchCandidate struct {
	ClientID string `json:"client_id"`
	Score    int    `json:"score"`
}

// MatchResult is the matcher output. Matched carries exactly one candidate;
// Ambiguous carries all qualifying candidates sorted by descending score.
type MatchResult struct {
	Outcome    MatchOutcome     `json:"outcome"`
	ClientID   string           `json:"client_id,omitempty"`
	Score      int              `json:"score,omitempty"`
	Candidates []MatchCandidate `json:"candidates,omitempty"`
}

// Matched builds a single-winner result.
func Matched(clientID string, score int) MatchResult {
	return MatchResult{Outcome: MatchMatched, ClientID: clientID, Score: score}
}

// Ambiguous builds a multiple-candidate result.
func Ambiguous(candidates []MatchCandidate) MatchResult {
	return MatchResult{Outcome: MatchAmbiguous, Candidates: candidates}
}

// NotFound builds the no-match result.
func NotFound() MatchResult {
	return MatchResult{Outcome: MatchNotFound}
}
