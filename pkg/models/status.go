package models

// VisitStatus is the two-phase visitation state of a domain_path
type VisitStatus string

const (
	VisitStatusUnseen   VisitStatus = ""         // Zero value = never encountered
	VisitStatusObserved VisitStatus = "observed" // Encountered or dequeued, fetch not confirmed
	VisitStatusFetched  VisitStatus = "fetched"  // Content retrieved with a non-error status
)

// String implements fmt.Stringer for logging
func (s VisitStatus) String() string {
	if s == "" {
		return "unseen"
	}
	return string(s)
}

// IsValid returns true if the status is a known operational value
func (s VisitStatus) IsValid() bool {
	switch s {
	case VisitStatusObserved, VisitStatusFetched:
		return true
	}
	return false
}

// Promote returns the stronger of two statuses; fetched never regresses to observed
func (s VisitStatus) Promote(next VisitStatus) VisitStatus {
	if s == VisitStatusFetched || next == VisitStatusUnseen {
		return s
	}
	return next
}
