package grades

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/campus-tools/gradewire/internal/canvas"
	"github.com/campus-tools/gradewire/internal/course"
	"github.com/campus-tools/gradewire/internal/qualtrics"
	"github.com/campus-tools/gradewire/internal/survey"
)

// Exporter pulls a survey's responses.
type Exporter interface {
	ExportResponses(ctx context.Context, surveyID string) (*qualtrics.ResponseExport, error)
}

// Gradebook is the slice of the course platform the importer reads
// submissions from and pushes grades to.
type Gradebook interface {
	Submissions(ctx context.Context, courseID, assignmentID int64) ([]canvas.Submission, error)
	GradeSubmissions(ctx context.Context, courseID, assignmentID int64, grades map[int64]canvas.Grade) (*canvas.Progress, error)
	AwaitProgress(ctx context.Context, progressID int64) error
}

// Recorder journals import runs. Optional.
type Recorder interface {
	ImportStarted(id, courseName, assignment, source string) error
	ImportFinished(id string, scored, unresolved int) error
}

type nopRecorder struct{}

func (nopRecorder) ImportStarted(string, string, string, string) error { return nil }
func (nopRecorder) ImportFinished(string, int, int) error              { return nil }

// Importer reconciles survey responses with the roster and the gradebook.
type Importer struct {
	Survey   Exporter
	Course   Gradebook
	Recorder Recorder
}

func (imp *Importer) recorder() Recorder {
	if imp.Recorder == nil {
		return nopRecorder{}
	}
	return imp.Recorder
}

// Result is one student's computed score with everything the audit trail
// reports.
type Result struct {
	ExternalID  string
	InternalID  int64
	DisplayName string
	SubScores   []SubScore
	RawTotal    float64
	ExtraCredit float64
	FinalScore  float64
	DaysLate    int
	Late        bool
	// NoSubmission means the course platform has no submission on record for
	// the student; with the late policy on, such a self-grade scores zero.
	NoSubmission bool
	// Penalty is the number of points the late policy removed.
	Penalty float64
}

// Report is the outcome of one import run. Unresolved respondents are
// reported here rather than merged into Results.
type Report struct {
	RunID      string
	Assignment string
	Results    []Result
	Unresolved []string
}

// UnresolvedError returns the run's identity failures as a single error, or
// nil when every respondent resolved.
func (r *Report) UnresolvedError() error {
	if len(r.Unresolved) == 0 {
		return nil
	}
	return &UnresolvedIdentityError{Respondents: r.Unresolved}
}

// CacheRows converts the results to roster cache rows for the audit CSV.
func (r *Report) CacheRows() []course.CacheRow {
	rows := make([]course.CacheRow, 0, len(r.Results))
	for _, res := range r.Results {
		rows = append(rows, course.CacheRow{
			ExternalID:    res.ExternalID,
			DisplayName:   res.DisplayName,
			RawScore:      res.RawTotal,
			ComputedScore: res.FinalScore,
			LateFlag:      res.Late,
		})
	}
	return rows
}

// ImportParams ties one import run to its course-side and survey-side
// objects.
type ImportParams struct {
	CourseID   int64
	CourseName string
	Roster     course.Roster
	Assignment *canvas.Assignment
	SurveyID   string
	SurveyName string
	// Scale is the score domain the survey's questions were built with.
	Scale survey.Scale
}

// Import runs the reconciliation for one assignment: export the survey's
// responses, resolve each respondent to a roster student, compute final
// scores under the points and late policies, and return the report. Nothing
// is pushed; see Upload. Respondents that cannot be resolved end up in the
// report's Unresolved list and never affect other students' results.
func (imp *Importer) Import(ctx context.Context, p ImportParams, opts Options) (*Report, error) {
	if !opts.SingleQuestion {
		if err := p.Scale.Validate(); err != nil {
			return nil, err
		}
	}
	if opts.CheckLate && p.Assignment.DueAt == nil {
		return nil, &survey.ConfigurationError{Reason: fmt.Sprintf("assignment %q has no due date; cannot apply the late policy", p.Assignment.Name)}
	}

	report := &Report{RunID: uuid.NewString(), Assignment: p.Assignment.Name}
	if err := imp.recorder().ImportStarted(report.RunID, p.CourseName, p.Assignment.Name, p.SurveyName); err != nil {
		return nil, fmt.Errorf("journal import run: %w", err)
	}

	export, err := imp.Survey.ExportResponses(ctx, p.SurveyID)
	if err != nil {
		return nil, err
	}
	tags := scoreTags(export)
	if len(tags) == 0 {
		return nil, &survey.ConfigurationError{Reason: fmt.Sprintf("survey %s export has no scored question columns", p.SurveyID)}
	}

	byExternal := p.Roster.ByExternalID()
	for i, row := range export.Rows {
		email := strings.TrimSpace(row[qualtrics.ColRecipientEmail])
		if email == "" {
			report.Unresolved = append(report.Unresolved, fmt.Sprintf("response %d (no recipient email)", i+1))
			continue
		}
		respondent := localPart(email)
		student, ok := byExternal[respondent]
		if !ok {
			report.Unresolved = append(report.Unresolved, respondent)
			continue
		}

		subs, err := subScores(export, tags, row)
		if err != nil {
			return nil, fmt.Errorf("response from %s: %w", respondent, err)
		}
		c, err := Compute(subs, p.Scale, p.Assignment.PointsPossible, opts)
		if err != nil {
			return nil, err
		}
		report.Results = append(report.Results, Result{
			ExternalID:  student.ExternalID,
			InternalID:  student.InternalID,
			DisplayName: student.DisplayName,
			SubScores:   subs,
			RawTotal:    c.RawTotal,
			ExtraCredit: c.ExtraCredit,
			FinalScore:  c.Final,
		})
	}

	if opts.CheckLate {
		if err := imp.applyLateness(ctx, p, opts, report.Results); err != nil {
			return nil, err
		}
	}

	if err := imp.recorder().ImportFinished(report.RunID, len(report.Results), len(report.Unresolved)); err != nil {
		slog.Warn("import run not journaled", "run", report.RunID, "error", err)
	}
	slog.Info("scores imported", "run", report.RunID, "assignment", p.Assignment.Name,
		"scored", len(report.Results), "unresolved", len(report.Unresolved))
	return report, nil
}

// applyLateness adjusts every result against the course platform's own
// submission records, which are authoritative for timing; the survey's
// recorded date is audit-only. A student with no submission on record scores
// zero: a self-grade without anything submitted is vacuous.
func (imp *Importer) applyLateness(ctx context.Context, p ImportParams, opts Options, results []Result) error {
	subs, err := imp.Course.Submissions(ctx, p.CourseID, p.Assignment.ID)
	if err != nil {
		return err
	}
	byUser := make(map[int64]canvas.Submission, len(subs))
	for _, s := range subs {
		byUser[s.UserID] = s
	}

	for i := range results {
		r := &results[i]
		sub, ok := byUser[r.InternalID]
		if !ok || sub.SubmittedAt == nil {
			r.Penalty = r.FinalScore
			r.FinalScore = 0
			r.Late = true
			r.NoSubmission = true
			continue
		}
		r.DaysLate = LateDays(*sub.SubmittedAt, *p.Assignment.DueAt)
		r.FinalScore, r.Penalty, r.Late = ApplyLatePolicy(r.FinalScore, p.Assignment.PointsPossible, r.DaysLate, sub.Late, opts)
	}
	return nil
}

// Resolve fills in roster identities for results that only carry an external
// id (grader imports). Results that match no student are dropped from the
// returned slice and reported in the second value.
func Resolve(results []Result, roster course.Roster) ([]Result, []string) {
	byExternal := roster.ByExternalID()
	var resolved []Result
	var unresolved []string
	for _, r := range results {
		student, ok := byExternal[strings.ToLower(r.ExternalID)]
		if !ok {
			unresolved = append(unresolved, r.ExternalID)
			continue
		}
		r.ExternalID = student.ExternalID
		r.InternalID = student.InternalID
		r.DisplayName = student.DisplayName
		resolved = append(resolved, r)
	}
	return resolved, unresolved
}

// Upload pushes the results to the gradebook as one bulk grade update with a
// per-student audit comment, then waits for the platform's asynchronous job
// to finish. Results without a resolved internal id are skipped and returned,
// never uploaded.
func (imp *Importer) Upload(ctx context.Context, courseID, assignmentID int64, results []Result) ([]string, error) {
	grades := make(map[int64]canvas.Grade, len(results))
	var unmatched []string
	for _, r := range results {
		if r.InternalID == 0 {
			unmatched = append(unmatched, r.ExternalID)
			continue
		}
		grades[r.InternalID] = canvas.Grade{
			PostedGrade: formatScore(r.FinalScore),
			TextComment: auditComment(r),
		}
	}
	if len(grades) == 0 {
		return unmatched, fmt.Errorf("upload scores: no resolvable results")
	}

	slog.Info("uploading grades", "assignment", assignmentID, "students", len(grades))
	progress, err := imp.Course.GradeSubmissions(ctx, courseID, assignmentID, grades)
	if err != nil {
		return unmatched, err
	}
	if err := imp.Course.AwaitProgress(ctx, progress.ID); err != nil {
		return unmatched, err
	}
	slog.Info("grades uploaded", "assignment", assignmentID, "students", len(grades))
	return unmatched, nil
}

// tagPattern matches the stable per-problem export tags the survey builder
// assigns. The digits are the problem number.
var tagPattern = regexp.MustCompile(`^Q(\d+)$`)

// scoreTags returns the export columns holding question scores, in problem
// order.
func scoreTags(export *qualtrics.ResponseExport) []string {
	type tagged struct {
		n   int
		tag string
	}
	var found []tagged
	for _, f := range export.Fields {
		m := tagPattern.FindStringSubmatch(f)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		found = append(found, tagged{n: n, tag: f})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })
	tags := make([]string, len(found))
	for i, f := range found {
		tags[i] = f.tag
	}
	return tags
}

// subScores reads one response row's per-question values. Extra-credit
// questions are recognized by the marker in their label. An empty cell
// counts as zero; a non-numeric cell is a fatal data error.
func subScores(export *qualtrics.ResponseExport, tags []string, row map[string]string) ([]SubScore, error) {
	subs := make([]SubScore, 0, len(tags))
	for _, tag := range tags {
		raw := strings.TrimSpace(row[tag])
		var v float64
		if raw != "" {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("column %s has non-numeric value %q", tag, raw)
			}
			v = parsed
		}
		subs = append(subs, SubScore{
			Tag:   tag,
			Value: v,
			EC:    strings.Contains(export.Label(tag), survey.ECMarker),
		})
	}
	return subs, nil
}

// localPart lowercases the part of an address before the @, which for
// private distributions is the respondent's external id.
func localPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return strings.ToLower(strings.TrimSpace(local))
}

// formatScore renders a score exactly, with no rounding; display rounding is
// the platform's job.
func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// auditComment summarizes a result's raw sub-scores and any late handling,
// attached to the submission alongside the grade.
func auditComment(r Result) string {
	var b strings.Builder
	b.WriteString("Score audit: ")
	if len(r.SubScores) == 0 {
		b.WriteString("no sub-scores")
	}
	for i, s := range r.SubScores {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(s.Tag)
		b.WriteString("=")
		b.WriteString(formatScore(s.Value))
		if s.EC {
			b.WriteString(" (EC)")
		}
	}
	fmt.Fprintf(&b, "; raw total %s", formatScore(r.RawTotal))
	if r.ExtraCredit > 0 {
		fmt.Fprintf(&b, ", extra credit %s", formatScore(r.ExtraCredit))
	}
	fmt.Fprintf(&b, ", final %s", formatScore(r.FinalScore))
	switch {
	case r.NoSubmission:
		b.WriteString(" (no submission on record, scored 0)")
	case r.Late:
		fmt.Fprintf(&b, " (late %d day(s), penalty %s)", r.DaysLate, formatScore(r.Penalty))
	}
	return b.String()
}
