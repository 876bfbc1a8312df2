package course

import (
	"sort"
	"strings"
)

// Student is one enrolled student as the tool sees them: the platform's
// opaque internal id, the human-readable external id used everywhere else
// (survey respondents, CSV files, mailing lists), and a display name.
type Student struct {
	InternalID  int64
	ExternalID  string
	DisplayName string
}

// NameParts splits a "Last, First" display name into its components. A name
// without a comma is treated as a bare last name.
func (s Student) NameParts() (first, last string) {
	last, first, found := strings.Cut(s.DisplayName, ",")
	if !found {
		return "", strings.TrimSpace(s.DisplayName)
	}
	return strings.TrimSpace(first), strings.TrimSpace(last)
}

// Email builds the student's address under the given mail domain.
func (s Student) Email(domain string) string {
	return strings.ToLower(s.ExternalID) + "@" + domain
}

// Roster is the enrolled-student list of one course, rebuilt wholesale on
// each fetch and owned by a single session.
type Roster []Student

// ByExternalID indexes the roster by external id.
func (r Roster) ByExternalID() map[string]Student {
	m := make(map[string]Student, len(r))
	for _, s := range r {
		m[strings.ToLower(s.ExternalID)] = s
	}
	return m
}

// ByEmail indexes the roster by address under the given domain.
func (r Roster) ByEmail(domain string) map[string]Student {
	m := make(map[string]Student, len(r))
	for _, s := range r {
		m[s.Email(domain)] = s
	}
	return m
}

func sortRoster(r Roster) {
	sort.Slice(r, func(i, j int) bool { return r[i].DisplayName < r[j].DisplayName })
}
