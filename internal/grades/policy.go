// Package grades reconciles survey responses with the course roster and
// gradebook: it resolves respondents to students, computes final scores
// under the configured points and late policies, and pushes the results
// back with an audit trail.
package grades

import (
	"fmt"
	"math"
	"time"

	"github.com/campus-tools/gradewire/internal/survey"
)

// Options control score computation and the late policy.
type Options struct {
	// CheckLate enables the late policy; when false, submission times are
	// never consulted.
	CheckLate bool
	// MaxDaysLate is the last day a penalized submission still scores;
	// anything later scores zero.
	MaxDaysLate int
	// LatePenalty is the fraction of the assignment's points deducted from
	// a late submission.
	LatePenalty float64
	// ECScoreCap caps the summed extra-credit points.
	ECScoreCap float64
	// SingleQuestion marks single-overall-grade surveys: the reported value
	// is the final score, with no scaling to assignment points.
	SingleQuestion bool
}

// DefaultOptions are the standard self-grading settings.
func DefaultOptions() Options {
	return Options{
		CheckLate:   true,
		MaxDaysLate: 3,
		LatePenalty: 0.25,
		ECScoreCap:  3,
	}
}

// SubScore is one question's raw value in a response.
type SubScore struct {
	Tag   string
	Value float64
	EC    bool
}

// Computation is the outcome of the pure score math for one response,
// before any submission-time handling.
type Computation struct {
	RawTotal    float64
	ExtraCredit float64
	Final       float64
}

// Compute turns raw sub-scores into a final score. In single-question mode
// the reported value passes through unscaled. Otherwise the non-extra-credit
// total is scaled from the survey's maximum possible points to the
// assignment's points, and capped extra credit is added on top. The survey
// maximum is the scale maximum summed over non-extra-credit questions; a
// zero maximum cannot be scaled and is a ConfigurationError.
func Compute(subs []SubScore, scale survey.Scale, pointsPossible float64, opts Options) (Computation, error) {
	var c Computation
	if opts.SingleQuestion {
		for _, s := range subs {
			c.RawTotal += s.Value
		}
		c.Final = c.RawTotal
		return c, nil
	}

	nonEC := 0
	for _, s := range subs {
		if s.EC {
			c.ExtraCredit += s.Value
		} else {
			c.RawTotal += s.Value
			nonEC++
		}
	}
	if c.ExtraCredit > opts.ECScoreCap {
		c.ExtraCredit = opts.ECScoreCap
	}
	max := float64(scale.Max() * nonEC)
	if max == 0 {
		return c, &survey.ConfigurationError{Reason: fmt.Sprintf("survey maximum is zero (%d scored questions, scale max %d)", nonEC, scale.Max())}
	}
	c.Final = c.RawTotal*(pointsPossible/max) + c.ExtraCredit
	return c, nil
}

// LateDays is how many days late a submission is, counted in started
// 24-hour days: one second past the deadline is 1, 25 hours past is 2.
func LateDays(submitted, due time.Time) int {
	delta := submitted.Sub(due)
	if delta <= 0 {
		return 0
	}
	return int(math.Ceil(delta.Hours() / 24))
}

// ApplyLatePolicy adjusts a final score for lateness and reports the amount
// deducted. Submissions later than MaxDaysLate score zero regardless of the
// platform's late flag. Within the window the penalty applies only when the
// platform still flags the submission late, so instructors can forgive
// individual students by clearing the flag.
func ApplyLatePolicy(final, pointsPossible float64, daysLate int, flaggedLate bool, opts Options) (adjusted, penalty float64, late bool) {
	if !opts.CheckLate || daysLate <= 0 {
		return final, 0, false
	}
	if daysLate > opts.MaxDaysLate {
		return 0, final, true
	}
	if !flaggedLate {
		return final, 0, true
	}
	adjusted = final - opts.LatePenalty*pointsPossible
	if adjusted < 0 {
		adjusted = 0
	}
	return adjusted, final - adjusted, true
}
