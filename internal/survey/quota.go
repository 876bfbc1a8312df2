package survey

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/campus-tools/gradewire/internal/qualtrics"
)

// QuotaParams describes a choice survey whose options close as they fill,
// e.g. a sign-up where each slot takes a fixed number of students.
type QuotaParams struct {
	Title      string
	CourseName string
	// Prompt is the selector question text shown to respondents.
	Prompt string
	// Choices are the selectable options, in display order.
	Choices []string
	// Capacity is how many respondents may pick each choice before it
	// disappears.
	Capacity int
}

// QuotaHandle identifies a built quota survey and its remote objects.
type QuotaHandle struct {
	SurveyID     string
	Name         string
	SelectorID   string
	QuotaGroupID string
	// QuotaIDs maps 1-based choice ordinals to quota ids.
	QuotaIDs map[int]string
	BuildID  int64
}

// quotaPlan is the first phase of a quota build: everything that can be
// decided locally, with choice ordinals standing in for the remote ids that
// do not exist yet.
type quotaPlan struct {
	selector qualtrics.Question
	quotas   []plannedQuota
}

// plannedQuota is a quota before creation, keyed by the choice ordinal it
// will count.
type plannedQuota struct {
	choice int
	name   string
}

// planQuotaSurvey validates the parameters and lays out the selector
// question and one quota per choice. No remote calls happen here.
func planQuotaSurvey(p QuotaParams) (*quotaPlan, error) {
	if len(p.Choices) == 0 {
		return nil, &ConfigurationError{Reason: "quota survey has no choices"}
	}
	if p.Capacity < 1 {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("quota capacity %d is not positive", p.Capacity)}
	}
	prompt := p.Prompt
	if prompt == "" {
		prompt = "Pick one of the available options."
	}

	sel := qualtrics.Question{
		QuestionText:  prompt,
		DataExportTag: "Q1",
		QuestionType:  qualtrics.TypeMultipleChoice,
		Selector:      qualtrics.SelectorSingleAnswerVertical,
		SubSelector:   qualtrics.SubSelectorText,
		Configuration: qualtrics.QuestionConfiguration{QuestionDescriptionOption: "UseText"},
		Choices:       make(map[string]qualtrics.Choice, len(p.Choices)),
		ChoiceOrder:   make([]string, 0, len(p.Choices)),
	}
	plan := &quotaPlan{selector: sel}
	for i, label := range p.Choices {
		key := strconv.Itoa(i + 1)
		plan.selector.Choices[key] = qualtrics.Choice{Display: label}
		plan.selector.ChoiceOrder = append(plan.selector.ChoiceOrder, key)
		plan.quotas = append(plan.quotas, plannedQuota{choice: i + 1, name: label})
	}
	plan.selector.ForceResponse()
	return plan, nil
}

// BuildQuotaSurvey creates a quota-limited choice survey in two phases:
// plan locally, then create the survey, selector question, quota group and
// quotas, and finally re-issue the selector question with per-choice display
// logic referencing the now-known quota ids. A choice therefore stays
// visible exactly while its quota has room.
func (b *Builder) BuildQuotaSurvey(ctx context.Context, p QuotaParams) (*QuotaHandle, error) {
	plan, err := planQuotaSurvey(p)
	if err != nil {
		return nil, err
	}
	if err := b.ensureUnusedName(ctx, p.Title); err != nil {
		return nil, err
	}

	jnl := b.journal()
	buildID, err := jnl.BuildStarted(p.Title, p.CourseName)
	if err != nil {
		return nil, fmt.Errorf("journal build: %w", err)
	}

	sid, err := b.Platform.CreateSurvey(ctx, p.Title)
	if err != nil {
		jnl.BuildFinished(buildID, BuildFailed)
		return nil, fmt.Errorf("create survey %q: %w", p.Title, err)
	}
	jnl.ObjectCreated(buildID, ObjectSurvey, sid)

	selID, err := b.Platform.CreateQuestion(ctx, sid, plan.selector)
	if err != nil {
		return nil, b.fail(buildID, sid, "create selector question", err)
	}
	jnl.ObjectCreated(buildID, ObjectQuestion, selID)

	gid, err := b.Platform.CreateQuotaGroup(ctx, sid, p.Title+" quotas")
	if err != nil {
		return nil, b.fail(buildID, sid, "create quota group", err)
	}
	jnl.ObjectCreated(buildID, ObjectQuotaGroup, gid)

	h := &QuotaHandle{
		SurveyID:     sid,
		Name:         p.Title,
		SelectorID:   selID,
		QuotaGroupID: gid,
		QuotaIDs:     make(map[int]string, len(plan.quotas)),
		BuildID:      buildID,
	}
	for _, pq := range plan.quotas {
		quota := qualtrics.Quota{
			Name:         pq.name,
			Occurrences:  p.Capacity,
			Logic:        qualtrics.ChoiceSelectedLogic(selID, pq.choice),
			QuotaAction:  "ForBranching",
			QuotaRealm:   "Survey",
			QuotaGroupID: gid,
		}
		qid, err := b.Platform.CreateQuota(ctx, sid, quota)
		if err != nil {
			return nil, b.fail(buildID, sid, fmt.Sprintf("create quota for choice %d", pq.choice), err)
		}
		jnl.ObjectCreated(buildID, ObjectQuota, qid)
		h.QuotaIDs[pq.choice] = qid
	}

	// Second pass: substitute the real quota ids into the selector's
	// display logic and re-issue the question.
	patched := plan.selector
	patched.Choices = make(map[string]qualtrics.Choice, len(plan.selector.Choices))
	for key, c := range plan.selector.Choices {
		ordinal, err := strconv.Atoi(key)
		if err != nil {
			return nil, b.fail(buildID, sid, "patch selector question", fmt.Errorf("bad choice key %q", key))
		}
		c.DisplayLogic = qualtrics.QuotaNotMetLogic(h.QuotaIDs[ordinal])
		patched.Choices[key] = c
	}
	if err := b.Platform.UpdateQuestion(ctx, sid, selID, patched); err != nil {
		return nil, b.fail(buildID, sid, "patch selector question", err)
	}

	if err := b.Platform.PublishSurvey(ctx, sid, p.Title); err != nil {
		return nil, b.fail(buildID, sid, "publish survey", err)
	}
	if err := b.Platform.ActivateSurvey(ctx, sid); err != nil {
		return nil, b.fail(buildID, sid, "activate survey", err)
	}

	jnl.BuildFinished(buildID, BuildComplete)
	slog.Info("quota survey built", "survey", sid, "choices", len(p.Choices), "capacity", p.Capacity)
	return h, nil
}
