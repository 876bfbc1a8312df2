package course

import "fmt"

// RosterFetchError means the course could not be located or its enrollment
// came back empty where a non-empty one was expected.
type RosterFetchError struct {
	CourseID int64
	Reason   string
	Err      error
}

func (e *RosterFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch roster for course %d: %s: %v", e.CourseID, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch roster for course %d: %s", e.CourseID, e.Reason)
}

func (e *RosterFetchError) Unwrap() error { return e.Err }

// LookupError means a named remote resource was missing or ambiguous. It is
// fatal: callers abort rather than guess which resource was meant.
type LookupError struct {
	Resource string
	Name     string
	Matches  int
}

func (e *LookupError) Error() string {
	if e.Matches == 0 {
		return fmt.Sprintf("%s %q not found", e.Resource, e.Name)
	}
	return fmt.Sprintf("%s %q is ambiguous: %d matches", e.Resource, e.Name, e.Matches)
}
