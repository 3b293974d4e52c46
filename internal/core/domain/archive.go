package domain

type MemberStatus string

const (
	MemberProcessed MemberStatus = "processed"
	MemberSkipped   MemberStatus = "skipped"
	MemberFailed    MemberStatus = "failed"
)

// MemberOutcome reports what happened to one archive entry.
type MemberOutcome struct {
	Path             string       `json:"path"`
	Status           MemberStatus `json:"status"`
	Category         Category     `json:"category,omitempty"`
	ClassificationID string       `json:"classification_id,omitempty"`
	Reason           string       `json:"reason,omitempty"`
}

type ArchiveResult struct {
	Job       ArchiveJob      `json:"job"`
	Processed int             `json:"processed"`
	Outcomes  []MemberOutcome `json:"outcomes"`
	Archive   []byte          `json:"-"`
}

// Count returns the number of outcomes with the given status.
func (r *ArchiveResult) Count(status MemberStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}
