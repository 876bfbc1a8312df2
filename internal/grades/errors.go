package grades

import (
	"fmt"
	"strings"
)

// UnresolvedIdentityError aggregates the respondents of a run that could not
// be matched to a roster student. It is collected across the whole batch and
// surfaced at the end; unresolved respondents never abort the run and never
// affect other students' results.
type UnresolvedIdentityError struct {
	Respondents []string
}

func (e *UnresolvedIdentityError) Error() string {
	return fmt.Sprintf("could not resolve %d respondent(s): %s", len(e.Respondents), strings.Join(e.Respondents, ", "))
}
