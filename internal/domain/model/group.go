package model

// ExpansionStatus records what happened when a team reviewer was expanded to members.
type ExpansionStatus int

const (
	// ExpansionUnresolved means no expansion was attempted.
	ExpansionUnresolved ExpansionStatus = iota
	// ExpansionExpanded means Members holds the team's members (possibly none).
	ExpansionExpanded
	// ExpansionSkipped means the team exceeded the size cap.
	ExpansionSkipped
	// ExpansionFailed means the member list could not be fetched.
	ExpansionFailed
)

// String returns a human-readable name for the expansion status.
func (s ExpansionStatus) String() string {
	switch s {
	case ExpansionUnresolved:
		return "unresolved"
	case ExpansionExpanded:
		return "expanded"
	case ExpansionSkipped:
		return "skipped"
	case ExpansionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// GroupExpansion is the outcome of expanding a team reviewer.
type GroupExpansion struct {
	Status  ExpansionStatus
	Members []string
}

// Expanded builds a successful expansion.
func Expanded(members []string) GroupExpansion {
	if members == nil {
		members = []string{}
	}
	return GroupExpansion{Status: ExpansionExpanded, Members: members}
}

// FailSafe reports whether the expansion is uncertain and must count as a match.
func (e GroupExpansion) FailSafe() bool {
	return e.Status == ExpansionSkipped || e.Status == ExpansionFailed
}

// GroupReviewRequest is a pending review request addressed to a team.
type GroupReviewRequest struct {
	Org       string
	Name      string
	Slug      string
	Expansion GroupExpansion
}
