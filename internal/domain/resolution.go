package domain

import "time"

// ResolutionKind enumerates the outcome records that close a treatment.
type ResolutionKind string

const (
	ResolutionComplaint    ResolutionKind = "complaint"
	ResolutionDenunciation ResolutionKind = "denunciation"
	ResolutionConsultation ResolutionKind = "consultation"
)

// Valid reports whether the kind is known.
func (k ResolutionKind) Valid() bool {
	switch k {
	case ResolutionComplaint, ResolutionDenunciation, ResolutionConsultation:
		return true
	}
	return false
}

// Resolution is the outcome record of a finished treatment.
type Resolution struct {
	ID                string
	TreatmentID       string
	Kind              ResolutionKind
	CaseNumber        string
	AuthorizationFile *string
	CreatedAt         time.Time
}
