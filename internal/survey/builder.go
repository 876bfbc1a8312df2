// Package survey assembles self-grade surveys and quota-limited choice
// surveys on the survey platform. Both builders run a sequence of dependent
// remote creations; any failure after the shell exists surfaces as a
// PartialBuildError carrying the survey id, and every created object is
// journaled so partial builds can be found again.
package survey

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/campus-tools/gradewire/internal/course"
	"github.com/campus-tools/gradewire/internal/qualtrics"
)

// ECMarker is the label substring that flags a question as extra credit.
// Scoring keys off this marker, so it must match the label format below.
const ECMarker = "(Extra Credit)"

// Platform is the slice of the survey platform the builders drive.
type Platform interface {
	Surveys(ctx context.Context) ([]qualtrics.Survey, error)
	CreateSurvey(ctx context.Context, name string) (string, error)
	CreateQuestion(ctx context.Context, surveyID string, q qualtrics.Question) (string, error)
	UpdateQuestion(ctx context.Context, surveyID, questionID string, q qualtrics.Question) error
	CreateQuotaGroup(ctx context.Context, surveyID, name string) (string, error)
	CreateQuota(ctx context.Context, surveyID string, q qualtrics.Quota) (string, error)
	PublishSurvey(ctx context.Context, surveyID, description string) error
	ActivateSurvey(ctx context.Context, surveyID string) error
	MakePrivate(ctx context.Context, surveyID string) error
	ShareSurvey(ctx context.Context, surveyID, userID string) error
}

// Build journal statuses.
const (
	BuildInProgress = "in_progress"
	BuildComplete   = "complete"
	BuildFailed     = "failed"
)

// Remote object kinds recorded in the journal.
const (
	ObjectSurvey       = "survey"
	ObjectQuestion     = "question"
	ObjectQuotaGroup   = "quota_group"
	ObjectQuota        = "quota"
	ObjectDistribution = "distribution"
)

// Journal records the remote objects a build creates, so an interrupted
// build can be inspected and cleaned up by hand later.
type Journal interface {
	BuildStarted(surveyName, courseName string) (int64, error)
	ObjectCreated(buildID int64, kind, remoteID string) error
	BuildFinished(buildID int64, status string) error
}

type nopJournal struct{}

func (nopJournal) BuildStarted(string, string) (int64, error) { return 0, nil }
func (nopJournal) ObjectCreated(int64, string, string) error { return nil }
func (nopJournal) BuildFinished(int64, string) error { return nil }

// Builder creates surveys. Journal is optional.
type Builder struct {
	Platform Platform
	Journal  Journal
}

func (b *Builder) journal() Journal {
	if b.Journal == nil {
		return nopJournal{}
	}
	return b.Journal
}

// Name derives the canonical self-grade survey title for an assignment.
// Imports locate the survey by this exact name, so the derivation must stay
// stable.
func Name(courseName, assignmentName string) string {
	return fmt.Sprintf("%s %s Self-Grade", courseName, assignmentName)
}

// FindByName resolves a survey id by exact name. Zero or multiple matches
// is a LookupError.
func FindByName(ctx context.Context, p Platform, name string) (string, error) {
	surveys, err := p.Surveys(ctx)
	if err != nil {
		return "", err
	}
	var matches []qualtrics.Survey
	for _, s := range surveys {
		if s.Name == name {
			matches = append(matches, s)
		}
	}
	if len(matches) != 1 {
		return "", &course.LookupError{Resource: "survey", Name: name, Matches: len(matches)}
	}
	return matches[0].ID, nil
}

// ScoredParams describes a self-grade survey.
type ScoredParams struct {
	CourseName     string
	AssignmentName string
	// QuestionCount is the number of graded problems; 0 builds the single
	// overall grade question instead.
	QuestionCount int
	// Scale is the score domain; nil picks the default for the mode.
	Scale Scale
	// ECProblems lists 1-based problem numbers that are extra credit.
	ECProblems []int
	// ShareWith optionally grants a collaborator full access after the build.
	ShareWith string
}

// Handle identifies a built (or found) self-grade survey plus what the
// importer needs to interpret its responses.
type Handle struct {
	SurveyID      string
	Name          string
	Scale         Scale
	QuestionCount int
	ECProblems    []int
	QuestionIDs   map[int]string
	BuildID       int64
}

// SingleQuestion reports whether the survey is in single-overall-grade mode.
func (h *Handle) SingleQuestion() bool { return h.QuestionCount == 0 }

// BuildScored creates a complete self-grade survey: shell, one scored-choice
// question per problem (or the single overall question), then publish,
// activate and restrict to invited respondents. The title is derived with
// Name and must not collide with an existing survey.
func (b *Builder) BuildScored(ctx context.Context, p ScoredParams) (*Handle, error) {
	scale := p.Scale
	if scale == nil {
		if p.QuestionCount == 0 {
			scale = DefaultSingleScale()
		} else {
			scale = DefaultScale()
		}
	}
	if err := scale.Validate(); err != nil {
		return nil, err
	}
	for _, n := range p.ECProblems {
		if n < 1 || n > p.QuestionCount {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("extra credit problem %d out of range 1..%d", n, p.QuestionCount)}
		}
	}
	title := Name(p.CourseName, p.AssignmentName)
	if err := b.ensureUnusedName(ctx, title); err != nil {
		return nil, err
	}

	jnl := b.journal()
	buildID, err := jnl.BuildStarted(title, p.CourseName)
	if err != nil {
		return nil, fmt.Errorf("journal build: %w", err)
	}

	sid, err := b.Platform.CreateSurvey(ctx, title)
	if err != nil {
		jnl.BuildFinished(buildID, BuildFailed)
		return nil, fmt.Errorf("create survey %q: %w", title, err)
	}
	jnl.ObjectCreated(buildID, ObjectSurvey, sid)
	slog.Info("survey shell created", "survey", sid, "name", title)

	h := &Handle{
		SurveyID:      sid,
		Name:          title,
		Scale:         scale,
		QuestionCount: p.QuestionCount,
		ECProblems:    slices.Clone(p.ECProblems),
		QuestionIDs:   make(map[int]string),
		BuildID:       buildID,
	}

	if p.QuestionCount == 0 {
		q := scoredQuestion(fmt.Sprintf("%s Score", p.AssignmentName), "Q1", scale)
		qid, err := b.Platform.CreateQuestion(ctx, sid, q)
		if err != nil {
			return nil, b.fail(buildID, sid, "create score question", err)
		}
		jnl.ObjectCreated(buildID, ObjectQuestion, qid)
		h.QuestionIDs[1] = qid
	} else {
		for n := 1; n <= p.QuestionCount; n++ {
			label := fmt.Sprintf("Question %d Score", n)
			if slices.Contains(p.ECProblems, n) {
				label = fmt.Sprintf("Question %d %s Score", n, ECMarker)
			}
			q := scoredQuestion(label, fmt.Sprintf("Q%d", n), scale)
			qid, err := b.Platform.CreateQuestion(ctx, sid, q)
			if err != nil {
				return nil, b.fail(buildID, sid, fmt.Sprintf("create question %d", n), err)
			}
			jnl.ObjectCreated(buildID, ObjectQuestion, qid)
			h.QuestionIDs[n] = qid
		}
	}

	if err := b.Platform.PublishSurvey(ctx, sid, title); err != nil {
		return nil, b.fail(buildID, sid, "publish survey", err)
	}
	if err := b.Platform.ActivateSurvey(ctx, sid); err != nil {
		return nil, b.fail(buildID, sid, "activate survey", err)
	}
	if err := b.Platform.MakePrivate(ctx, sid); err != nil {
		return nil, b.fail(buildID, sid, "restrict survey access", err)
	}
	if p.ShareWith != "" {
		if err := b.Platform.ShareSurvey(ctx, sid, p.ShareWith); err != nil {
			return nil, b.fail(buildID, sid, "share survey", err)
		}
		slog.Info("survey shared", "survey", sid, "with", p.ShareWith)
	}

	jnl.BuildFinished(buildID, BuildComplete)
	slog.Info("self-grade survey built", "survey", sid, "questions", len(h.QuestionIDs))
	return h, nil
}

// fail closes the journal entry and wraps the step failure with the
// partially built survey's id.
func (b *Builder) fail(buildID int64, surveyID, step string, err error) error {
	b.journal().BuildFinished(buildID, BuildFailed)
	return &PartialBuildError{SurveyID: surveyID, Step: step, Err: err}
}

// ensureUnusedName enforces client-side title uniqueness; the platform
// happily creates same-named surveys, which would break lookup-by-name.
func (b *Builder) ensureUnusedName(ctx context.Context, title string) error {
	surveys, err := b.Platform.Surveys(ctx)
	if err != nil {
		return fmt.Errorf("check survey names: %w", err)
	}
	for _, s := range surveys {
		if s.Name == title {
			return fmt.Errorf("survey %q already exists (id %s)", title, s.ID)
		}
	}
	return nil
}

// scoredQuestion builds a forced-response scored-choice question whose
// choices display the scale values in order.
func scoredQuestion(label, exportTag string, scale Scale) qualtrics.Question {
	q := qualtrics.Question{
		QuestionText:  label,
		DataExportTag: exportTag,
		QuestionType:  qualtrics.TypeMultipleChoice,
		Selector:      qualtrics.SelectorSingleAnswerVertical,
		SubSelector:   qualtrics.SubSelectorText,
		Configuration: qualtrics.QuestionConfiguration{QuestionDescriptionOption: "UseText"},
		Choices:       make(map[string]qualtrics.Choice, len(scale)),
		ChoiceOrder:   make([]string, 0, len(scale)),
	}
	for i, v := range scale {
		key := strconv.Itoa(i + 1)
		q.Choices[key] = qualtrics.Choice{Display: strconv.Itoa(v)}
		q.ChoiceOrder = append(q.ChoiceOrder, key)
	}
	q.ForceResponse()
	return q
}
