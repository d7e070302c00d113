package constants

import "strings"

// Project is a cost-center label expenses and trips are charged against.
type Project string

const (
	Overhead    Project = "Overhead"
	Acme        Project = "Acme"
	BidProposal Project = "Bid & Proposal"
	InternalRD  Project = "Internal R&D"
	GAndA       Project = "G&A"
)

// DefaultProject is the project assigned to new blank rows.
const DefaultProject = Overhead

var allProjects = []Project{
	Overhead,
	Acme,
	BidProposal,
	InternalRD,
	GAndA,
}

// Projects returns the fixed project list in display order.
func Projects() []Project {
	out := make([]Project, len(allProjects))
	copy(out, allProjects)
	return out
}

// IsProject reports whether input is a member of the fixed project list.
func IsProject(input string) bool {
	for _, p := range allProjects {
		if input == string(p) {
			return true
		}
	}
	return false
}

// CoerceProject maps free-form input onto the fixed project list, falling
// back to DefaultProject when it does not match.
func CoerceProject(input string) (Project, bool) {
	trimmed := strings.TrimSpace(input)
	for _, p := range allProjects {
		if strings.EqualFold(trimmed, string(p)) {
			return p, true
		}
	}
	return DefaultProject, false
}
