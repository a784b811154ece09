package models

import "time"

// MatchResponse is the JSON view of a match.
type MatchResponse struct {
	ID                 string    `json:"id"`
	MissingPersonID    string    `json:"missingPersonId"`
	FoundPersonID      string    `json:"foundPersonId"`
	ConfidenceScore    int       `json:"confidenceScore"`
	VerificationStatus string    `json:"verificationStatus"`
	Notified           bool      `json:"notified"`
	CreatedAt          time.Time `json:"createdAt"`
}

// ListResponse wraps a list of matches.
type ListResponse struct {
	Matches []MatchResponse `json:"matches"`
}

func ToResponse(m *Match) MatchResponse {
	return MatchResponse{
		ID:                 m.ID.String(),
		MissingPersonID:    m.MissingPersonID.String(),
		FoundPersonID:      m.FoundPersonID.String(),
		ConfidenceScore:    m.ConfidenceScore,
		VerificationStatus: m.VerificationStatus.String(),
		Notified:           m.Notified,
		CreatedAt:          m.CreatedAt,
	}
}

func ToListResponse(matches []*Match) ListResponse {
	out := ListResponse{Matches: make([]MatchResponse, 0, len(matches))}
	for _, m := range matches {
		out.Matches = append(out.Matches, ToResponse(m))
	}
	return out
}
