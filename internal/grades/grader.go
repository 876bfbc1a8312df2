package grades

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/campus-tools/gradewire/internal/canvas"
	"github.com/campus-tools/gradewire/internal/course"
	"github.com/campus-tools/gradewire/internal/survey"
)

// GraderRow is one line of an autograder report: a student's standing run on
// one problem.
type GraderRow struct {
	Email       string  `csv:"Student Email"`
	Problem     string  `csv:"Problem Title"`
	TestsPassed float64 `csv:"Tests Passed"`
	TotalTests  float64 `csv:"Total Tests"`
	Submitted   string  `csv:"Submitted Time"`
	LateFlag    string  `csv:"Late Submission?"`
}

// ReadGraderReport reads an autograder report CSV. The file may start with a
// UTF-8 byte order mark.
func ReadGraderReport(path string) ([]GraderRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read grader report: %w", err)
	}
	defer f.Close()
	var rows []GraderRow
	if err := gocsv.Unmarshal(transform.NewReader(f, unicode.UTF8BOM.NewDecoder()), &rows); err != nil {
		return nil, fmt.Errorf("read grader report: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("grader report %s has no rows", path)
	}
	return rows, nil
}

// GraderParams ties a grader import run to its course objects and deadline.
type GraderParams struct {
	CourseName string
	Roster     course.Roster
	Assignment *canvas.Assignment
	// Due is the deadline submission times are judged against. Timestamps in
	// the report are read in its location.
	Due time.Time
	// Source names the report in the run journal.
	Source string
}

// ImportGrader scores an autograder report against the roster. Each problem
// is normalized to the fraction of its tests passed, the late policy is
// applied per problem from the report's own timestamps and late flags, and
// the normalized sum is scaled to the assignment's points across every
// problem in the report, so a problem a student never submitted counts as
// zero. Nothing is pushed; see Upload.
func (imp *Importer) ImportGrader(rows []GraderRow, p GraderParams, opts Options) (*Report, error) {
	if opts.CheckLate && p.Due.IsZero() {
		return nil, &survey.ConfigurationError{Reason: "grader import has no due date; cannot apply the late policy"}
	}

	// Canonical test totals: the largest total seen for a problem across the
	// whole report, so a partial run with fewer executed tests cannot inflate
	// a student's fraction.
	totals := map[string]float64{}
	for _, row := range rows {
		name := strings.TrimSpace(row.Problem)
		if name == "" {
			continue
		}
		if row.TotalTests > totals[name] {
			totals[name] = row.TotalTests
		}
	}
	if len(totals) == 0 {
		return nil, fmt.Errorf("grader report names no problems")
	}
	problems := make([]string, 0, len(totals))
	for name := range totals {
		problems = append(problems, name)
	}
	sort.Strings(problems)

	report := &Report{RunID: uuid.NewString(), Assignment: p.Assignment.Name}
	if err := imp.recorder().ImportStarted(report.RunID, p.CourseName, p.Assignment.Name, p.Source); err != nil {
		return nil, fmt.Errorf("journal import run: %w", err)
	}

	// Later rows win per student and problem, matching how grader exports
	// list re-runs.
	standing := map[string]map[string]GraderRow{}
	for i, row := range rows {
		email := localPart(row.Email)
		if email == "" {
			report.Unresolved = append(report.Unresolved, fmt.Sprintf("row %d (no student email)", i+2))
			continue
		}
		if standing[email] == nil {
			standing[email] = map[string]GraderRow{}
		}
		standing[email][strings.TrimSpace(row.Problem)] = row
	}

	students := make([]string, 0, len(standing))
	for email := range standing {
		students = append(students, email)
	}
	sort.Strings(students)

	perProblem := p.Assignment.PointsPossible / float64(len(problems))
	var results []Result
	for _, email := range students {
		r := Result{ExternalID: email}
		var penalty float64
		for _, problem := range problems {
			row, ok := standing[email][problem]
			if !ok {
				r.SubScores = append(r.SubScores, SubScore{Tag: problem})
				continue
			}
			var frac float64
			if totals[problem] > 0 {
				frac = row.TestsPassed / totals[problem]
			}
			sub := SubScore{Tag: problem, Value: frac}
			if opts.CheckLate {
				submitted, err := parseSubmitted(row.Submitted, p.Due.Location())
				if err != nil {
					return nil, fmt.Errorf("row for %s, problem %q: %w", email, problem, err)
				}
				days := LateDays(submitted, p.Due)
				adjusted, deducted, late := ApplyLatePolicy(frac, 1, days, graderLate(row.LateFlag), opts)
				sub.Value = adjusted
				penalty += deducted
				if late {
					r.Late = true
				}
				if days > r.DaysLate {
					r.DaysLate = days
				}
			}
			r.RawTotal += sub.Value
			r.SubScores = append(r.SubScores, sub)
		}
		r.FinalScore = r.RawTotal * perProblem
		r.Penalty = penalty * perProblem
		results = append(results, r)
	}

	resolved, unresolved := Resolve(results, p.Roster)
	report.Results = resolved
	report.Unresolved = append(report.Unresolved, unresolved...)

	if err := imp.recorder().ImportFinished(report.RunID, len(report.Results), len(report.Unresolved)); err != nil {
		slog.Warn("import run not journaled", "run", report.RunID, "error", err)
	}
	slog.Info("grader report scored", "run", report.RunID, "assignment", p.Assignment.Name,
		"problems", len(problems), "scored", len(report.Results), "unresolved", len(report.Unresolved))
	return report, nil
}

// submittedPattern matches grader timestamps like "2024-02-05 17:33:12 EST".
// The trailing zone name is ignored; the time is read in the deadline's
// location.
var submittedPattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}) (\d{2}:\d{2}:\d{2})`)

func parseSubmitted(s string, loc *time.Location) (time.Time, error) {
	m := submittedPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, fmt.Errorf("unrecognized submitted time %q", s)
	}
	return time.ParseInLocation("2006-01-02 15:04:05", m[1]+" "+m[2], loc)
}

func graderLate(flag string) bool {
	return strings.EqualFold(strings.TrimSpace(flag), "Y")
}
