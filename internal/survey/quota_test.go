package survey

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/campus-tools/gradewire/internal/qualtrics"
)

func TestPlanQuotaSurvey(t *testing.T) {
	plan, err := planQuotaSurvey(QuotaParams{
		Title:    "Observation Slots",
		Choices:  []string{"Monday", "Tuesday"},
		Capacity: 4,
	})
	if err != nil {
		t.Fatalf("planQuotaSurvey: %v", err)
	}
	if plan.selector.QuestionText != "Pick one of the available options." {
		t.Errorf("default prompt = %q", plan.selector.QuestionText)
	}
	if plan.selector.DataExportTag != "Q1" {
		t.Errorf("export tag = %q", plan.selector.DataExportTag)
	}
	if plan.selector.Choices["1"].Display != "Monday" || plan.selector.Choices["2"].Display != "Tuesday" {
		t.Errorf("choices = %v", plan.selector.Choices)
	}
	if plan.selector.Validation == nil {
		t.Error("selector does not force a response")
	}
	if len(plan.quotas) != 2 || plan.quotas[0].choice != 1 || plan.quotas[1].name != "Tuesday" {
		t.Errorf("planned quotas = %+v", plan.quotas)
	}
}

func TestPlanQuotaSurveyBadParams(t *testing.T) {
	var confErr *ConfigurationError

	_, err := planQuotaSurvey(QuotaParams{Title: "x", Capacity: 1})
	if !errors.As(err, &confErr) {
		t.Errorf("no choices: got %v", err)
	}

	_, err = planQuotaSurvey(QuotaParams{Title: "x", Choices: []string{"a"}, Capacity: 0})
	if !errors.As(err, &confErr) {
		t.Errorf("zero capacity: got %v", err)
	}
}

func TestBuildQuotaSurvey(t *testing.T) {
	f := newFakePlatform()
	jnl := newFakeJournal()
	b := &Builder{Platform: f, Journal: jnl}

	h, err := b.BuildQuotaSurvey(context.Background(), QuotaParams{
		Title:      "Observation Slots",
		CourseName: "ASTRO 1101",
		Prompt:     "Pick a night.",
		Choices:    []string{"Monday", "Tuesday", "Wednesday"},
		Capacity:   2,
	})
	if err != nil {
		t.Fatalf("BuildQuotaSurvey: %v", err)
	}

	if h.SurveyID != "SV_test1" || h.SelectorID != "QID1" || h.QuotaGroupID != "QG_1" {
		t.Errorf("handle = %+v", h)
	}
	if len(h.QuotaIDs) != 3 || h.QuotaIDs[1] != "QO_1" || h.QuotaIDs[3] != "QO_3" {
		t.Errorf("quota ids = %v", h.QuotaIDs)
	}

	want := "Surveys CreateSurvey CreateQuestion CreateQuotaGroup CreateQuota CreateQuota CreateQuota UpdateQuestion PublishSurvey ActivateSurvey"
	if got := strings.Join(f.steps, " "); got != want {
		t.Errorf("steps = %q, want %q", got, want)
	}

	// Each quota counts selections of its own choice and lives in the group.
	mon := f.quotas["QO_1"]
	if mon.Name != "Monday" || mon.Occurrences != 2 || mon.QuotaGroupID != "QG_1" {
		t.Errorf("quota = %+v", mon)
	}
	if !reflect.DeepEqual(mon.Logic, qualtrics.ChoiceSelectedLogic("QID1", 1)) {
		t.Errorf("quota logic = %v", mon.Logic)
	}

	// The re-issued selector gates each choice on its quota having room.
	patched, ok := f.updates["QID1"]
	if !ok {
		t.Fatal("selector question was not re-issued")
	}
	if patched.QuestionText != "Pick a night." {
		t.Errorf("patched prompt = %q", patched.QuestionText)
	}
	for ordinal, quotaID := range map[string]string{"1": "QO_1", "2": "QO_2", "3": "QO_3"} {
		c := patched.Choices[ordinal]
		if !reflect.DeepEqual(c.DisplayLogic, qualtrics.QuotaNotMetLogic(quotaID)) {
			t.Errorf("choice %s display logic = %v", ordinal, c.DisplayLogic)
		}
	}
	if patched.Choices["2"].Display != "Tuesday" {
		t.Errorf("patched choice label = %q", patched.Choices["2"].Display)
	}

	if jnl.finished[h.BuildID] != BuildComplete {
		t.Errorf("build status = %q", jnl.finished[h.BuildID])
	}
	objs := jnl.objects[h.BuildID]
	if len(objs) != 6 {
		t.Fatalf("expected 6 journaled objects, got %d (%v)", len(objs), objs)
	}
	kinds := make([]string, len(objs))
	for i, o := range objs {
		kinds[i] = o[0]
	}
	if strings.Join(kinds, " ") != "survey question quota_group quota quota quota" {
		t.Errorf("journaled kinds = %v", kinds)
	}
}

func TestBuildQuotaSurveyStepFailure(t *testing.T) {
	f := newFakePlatform()
	f.failStep = "CreateQuota"
	jnl := newFakeJournal()
	b := &Builder{Platform: f, Journal: jnl}

	_, err := b.BuildQuotaSurvey(context.Background(), QuotaParams{
		Title:      "Observation Slots",
		CourseName: "ASTRO 1101",
		Choices:    []string{"Monday", "Tuesday"},
		Capacity:   1,
	})
	var partial *PartialBuildError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialBuildError, got %v", err)
	}
	if partial.SurveyID != "SV_test1" || partial.Step != "create quota for choice 1" {
		t.Errorf("partial = %q at %q", partial.SurveyID, partial.Step)
	}
	if jnl.finished[1] != BuildFailed {
		t.Errorf("build status = %q, want failed", jnl.finished[1])
	}
}

func TestBuildQuotaSurveyBadParamsTouchNothing(t *testing.T) {
	f := newFakePlatform()
	b := &Builder{Platform: f}

	_, err := b.BuildQuotaSurvey(context.Background(), QuotaParams{Title: "x", Capacity: 1})
	var confErr *ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if len(f.steps) != 0 {
		t.Errorf("platform touched on bad params: %v", f.steps)
	}
}
