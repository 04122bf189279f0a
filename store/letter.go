package store

import "time"

// LetterType identifies the kind of formal letter being requested.
// It determines which FormData fields are required.
type LetterType string

// Known letter types.
const (
	LetterLeave           LetterType = "leave"
	LetterBonafide        LetterType = "bonafide"
	LetterInternship      LetterType = "internship"
	LetterIndustrialVisit LetterType = "industrial-visit"
)

// FormData is the per-type form record embedded in a letter. Only the subset
// relevant to the letter type is populated; everything else stays zero.
// Dates are carried as the free-form strings the requester typed - they are
// form-fill data, not values the system computes with.
type FormData struct {
	RecipientID      string
	StartDate        string
	EndDate          string
	Reason           string
	CompanyName      string
	CompanyLocation  string
	CollegeName      string
	CollegeLocation  string
	Date             string
	NumberOfStudents string
	Location         string
	EditedContent    string
}

// Signature is the attestation embedded in a signed letter. It is either
// entirely present or entirely absent; there is no partial signature state.
type Signature struct {
	// Image is the rendered signature image (data URI or base64 text).
	Image string
	// SignedBy is a snapshot of the signer's display name at signing time.
	SignedBy   string
	SignedByID string
	SignedAt   time.Time
}

// Letter is a formal-document request. It is created unsigned, mutated at
// most once by SetSignature, and immutable thereafter.
type Letter struct {
	ID        string
	OwnerID   string
	Name      string
	Type      LetterType
	Form      FormData
	Signature *Signature
	CreatedAt time.Time
}

// Signed reports whether the letter carries a signature.
func (l *Letter) Signed() bool {
	return l.Signature != nil
}

// LetterData carries the fields for creating a letter.
type LetterData struct {
	OwnerID string
	Name    string
	Type    LetterType
	Form    FormData
}
