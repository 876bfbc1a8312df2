package qualtrics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

const testToken = "test-token"

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func checkToken(t *testing.T, r *http.Request) {
	t.Helper()
	if got := r.Header.Get("X-API-TOKEN"); got != testToken {
		t.Errorf("token header = %q", got)
	}
}

// envelope wraps v the way the platform wraps every result.
func envelope(v any) map[string]any {
	return map[string]any{"result": v}
}

func TestBaseURL(t *testing.T) {
	got := BaseURL("uni.ca1")
	if got != "https://uni.ca1.qualtrics.com/API/v3" {
		t.Errorf("BaseURL = %q", got)
	}
}

func TestSurveysPagination(t *testing.T) {
	var base string
	r := chi.NewRouter()
	r.Get("/surveys", func(w http.ResponseWriter, req *http.Request) {
		checkToken(t, req)
		if req.URL.Query().Get("skipToken") == "tok2" {
			writeJSON(t, w, envelope(map[string]any{
				"elements": []Survey{{ID: "SV_2", Name: "Second"}},
				"nextPage": "",
			}))
			return
		}
		writeJSON(t, w, envelope(map[string]any{
			"elements": []Survey{{ID: "SV_1", Name: "First", IsActive: true}},
			"nextPage": base + "/surveys?skipToken=tok2",
		}))
	})
	srv := httptest.NewServer(r)
	defer srv.Close()
	base = srv.URL

	c := New(srv.URL, testToken)
	surveys, err := c.Surveys(context.Background())
	if err != nil {
		t.Fatalf("Surveys: %v", err)
	}
	if len(surveys) != 2 || surveys[0].ID != "SV_1" || surveys[1].ID != "SV_2" {
		t.Errorf("surveys = %+v", surveys)
	}
	if !surveys[0].IsActive {
		t.Error("active flag lost in transit")
	}
}

func TestCreateSurvey(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/survey-definitions", func(w http.ResponseWriter, req *http.Request) {
		checkToken(t, req)
		var body map[string]string
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["SurveyName"] != "ASTRO 1101 HW3 Self-Grade" || body["Language"] != "EN" {
			t.Errorf("payload = %v", body)
		}
		writeJSON(t, w, envelope(map[string]string{"SurveyID": "SV_new"}))
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := New(srv.URL, testToken)
	id, err := c.CreateSurvey(context.Background(), "ASTRO 1101 HW3 Self-Grade")
	if err != nil {
		t.Fatalf("CreateSurvey: %v", err)
	}
	if id != "SV_new" {
		t.Errorf("survey id = %q", id)
	}
}

func TestQuestionLifecycle(t *testing.T) {
	var updated Question
	r := chi.NewRouter()
	r.Post("/survey-definitions/{surveyID}/questions", func(w http.ResponseWriter, req *http.Request) {
		var q Question
		if err := json.NewDecoder(req.Body).Decode(&q); err != nil {
			t.Errorf("decode question: %v", err)
		}
		if q.QuestionText != "Question 1 Score" || q.DataExportTag != "Q1" {
			t.Errorf("question = %+v", q)
		}
		if q.Validation == nil || q.Validation.Settings.ForceResponse != "ON" {
			t.Error("validation settings missing")
		}
		if q.QuestionID != "" {
			t.Errorf("create carried a question id %q", q.QuestionID)
		}
		writeJSON(t, w, envelope(map[string]string{"QuestionID": "QID1"}))
	})
	r.Put("/survey-definitions/{surveyID}/questions/{questionID}", func(w http.ResponseWriter, req *http.Request) {
		if err := json.NewDecoder(req.Body).Decode(&updated); err != nil {
			t.Errorf("decode update: %v", err)
		}
		writeJSON(t, w, envelope(map[string]any{}))
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := New(srv.URL, testToken)
	q := Question{
		QuestionText:  "Question 1 Score",
		DataExportTag: "Q1",
		QuestionType:  TypeMultipleChoice,
		Selector:      SelectorSingleAnswerVertical,
	}
	q.ForceResponse()
	id, err := c.CreateQuestion(context.Background(), "SV_1", q)
	if err != nil {
		t.Fatalf("CreateQuestion: %v", err)
	}
	if id != "QID1" {
		t.Errorf("question id = %q", id)
	}

	q.Choices = map[string]Choice{"1": {Display: "0", DisplayLogic: QuotaNotMetLogic("QO_1")}}
	if err := c.UpdateQuestion(context.Background(), "SV_1", "QID1", q); err != nil {
		t.Fatalf("UpdateQuestion: %v", err)
	}
	// The update carries the id inside the definition as well.
	if updated.QuestionID != "QID1" {
		t.Errorf("updated question id = %q", updated.QuestionID)
	}
	if updated.Choices["1"].DisplayLogic == nil {
		t.Error("display logic dropped on update")
	}
}

func TestMakePrivate(t *testing.T) {
	var putOpts map[string]any
	r := chi.NewRouter()
	r.Get("/survey-definitions/{surveyID}/options", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(t, w, envelope(map[string]any{
			"SurveyProtection": "PublicSurvey",
			"BackButton":       true,
		}))
	})
	r.Put("/survey-definitions/{surveyID}/options", func(w http.ResponseWriter, req *http.Request) {
		if err := json.NewDecoder(req.Body).Decode(&putOpts); err != nil {
			t.Errorf("decode options: %v", err)
		}
		writeJSON(t, w, envelope(map[string]any{}))
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := New(srv.URL, testToken)
	if err := c.MakePrivate(context.Background(), "SV_1"); err != nil {
		t.Fatalf("MakePrivate: %v", err)
	}
	if putOpts["SurveyProtection"] != "ByInvitation" {
		t.Errorf("protection = %v", putOpts["SurveyProtection"])
	}
	// Unrelated options survive the round trip.
	if putOpts["BackButton"] != true {
		t.Errorf("options = %v", putOpts)
	}
}

func TestQuotaCreation(t *testing.T) {
	var gotQuota map[string]any
	r := chi.NewRouter()
	r.Post("/survey-definitions/{surveyID}/quotagroups", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Errorf("decode group: %v", err)
		}
		if body["Name"] != "Observation Slots quotas" {
			t.Errorf("group payload = %v", body)
		}
		writeJSON(t, w, envelope(map[string]string{"QuotaGroupID": "QG_1"}))
	})
	r.Post("/survey-definitions/{surveyID}/quotas", func(w http.ResponseWriter, req *http.Request) {
		if err := json.NewDecoder(req.Body).Decode(&gotQuota); err != nil {
			t.Errorf("decode quota: %v", err)
		}
		writeJSON(t, w, envelope(map[string]string{"QuotaID": "QO_1"}))
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := New(srv.URL, testToken)
	gid, err := c.CreateQuotaGroup(context.Background(), "SV_1", "Observation Slots quotas")
	if err != nil {
		t.Fatalf("CreateQuotaGroup: %v", err)
	}
	if gid != "QG_1" {
		t.Errorf("group id = %q", gid)
	}

	qid, err := c.CreateQuota(context.Background(), "SV_1", Quota{
		Name:         "Monday",
		Occurrences:  2,
		Logic:        ChoiceSelectedLogic("QID1", 1),
		QuotaAction:  "ForBranching",
		QuotaRealm:   "Survey",
		QuotaGroupID: "QG_1",
	})
	if err != nil {
		t.Fatalf("CreateQuota: %v", err)
	}
	if qid != "QO_1" {
		t.Errorf("quota id = %q", qid)
	}
	if gotQuota["Name"] != "Monday" || gotQuota["Occurrences"] != float64(2) {
		t.Errorf("quota payload = %v", gotQuota)
	}
	if gotQuota["Logic"] == nil {
		t.Error("quota payload lost its logic tree")
	}
}

func TestDefinitionListing(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/survey-definitions/{surveyID}/questions", func(w http.ResponseWriter, req *http.Request) {
		checkToken(t, req)
		writeJSON(t, w, envelope(map[string]any{"elements": []Question{
			{QuestionID: "QID1", DataExportTag: "Q1", QuestionType: "MC"},
			{QuestionID: "QID2", DataExportTag: "Q2", QuestionType: "MC"},
		}}))
	})
	r.Get("/survey-definitions/{surveyID}/quotagroups", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(t, w, envelope(map[string]any{"elements": []QuotaGroup{
			{ID: "QG_1", Name: "Observation Slots quotas", Quotas: []string{"QO_1", "QO_2"}},
		}}))
	})
	r.Get("/survey-definitions/{surveyID}/quotas", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(t, w, envelope(map[string]any{"elements": []Quota{
			{QuotaID: "QO_1", Name: "Monday", Occurrences: 2, Count: 1},
			{QuotaID: "QO_2", Name: "Tuesday", Occurrences: 2, Count: 2},
		}}))
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := New(srv.URL, testToken)
	questions, err := c.Questions(context.Background(), "SV_1")
	if err != nil {
		t.Fatalf("Questions: %v", err)
	}
	if len(questions) != 2 || questions[0].DataExportTag != "Q1" {
		t.Errorf("questions = %+v", questions)
	}

	groups, err := c.QuotaGroups(context.Background(), "SV_1")
	if err != nil {
		t.Fatalf("QuotaGroups: %v", err)
	}
	if len(groups) != 1 || groups[0].ID != "QG_1" {
		t.Errorf("groups = %+v", groups)
	}

	quotas, err := c.Quotas(context.Background(), "SV_1")
	if err != nil {
		t.Fatalf("Quotas: %v", err)
	}
	if len(quotas) != 2 || quotas[1].Count != 2 {
		t.Errorf("quotas = %+v", quotas)
	}
}

func TestLibraryID(t *testing.T) {
	libs := []Library{
		{ID: "GR_group", Name: "Shared Library"},
		{ID: "UR_self", Name: "My Library"},
	}
	r := chi.NewRouter()
	r.Get("/libraries", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(t, w, envelope(map[string]any{"elements": libs, "nextPage": ""}))
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := New(srv.URL, testToken)
	id, err := c.LibraryID(context.Background())
	if err != nil {
		t.Fatalf("LibraryID: %v", err)
	}
	if id != "UR_self" {
		t.Errorf("library id = %q", id)
	}

	libs = []Library{{ID: "GR_group", Name: "Shared Library"}}
	if _, err := c.LibraryID(context.Background()); err == nil {
		t.Error("expected error without a user library")
	}
}

func TestDistributionFlow(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/distributions", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Errorf("decode distribution: %v", err)
		}
		if body["surveyId"] != "SV_1" || body["mailingListId"] != "CG_1" {
			t.Errorf("payload = %v", body)
		}
		if body["linkType"] != "Individual" || body["action"] != "CreateDistribution" {
			t.Errorf("payload = %v", body)
		}
		writeJSON(t, w, envelope(map[string]string{"id": "EMD_1"}))
	})
	r.Get("/distributions/{distributionID}/links", func(w http.ResponseWriter, req *http.Request) {
		if got := req.URL.Query().Get("surveyId"); got != "SV_1" {
			t.Errorf("surveyId = %q", got)
		}
		writeJSON(t, w, envelope(map[string]any{
			"elements": []DistributionLink{
				{ContactID: "MLRP_1", Email: "asmith@example.edu", Link: "https://s.example/1"},
			},
			"nextPage": "",
		}))
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := New(srv.URL, testToken)
	id, err := c.CreateDistribution(context.Background(), "SV_1", "CG_1")
	if err != nil {
		t.Fatalf("CreateDistribution: %v", err)
	}
	if id != "EMD_1" {
		t.Errorf("distribution id = %q", id)
	}

	links, err := c.DistributionLinks(context.Background(), id, "SV_1")
	if err != nil {
		t.Fatalf("DistributionLinks: %v", err)
	}
	if len(links) != 1 || links[0].Link != "https://s.example/1" {
		t.Errorf("links = %+v", links)
	}
}

func TestAPIErrorCarriesStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/surveys", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"meta":{"error":{"errorMessage":"insufficient permissions"}}}`))
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := New(srv.URL, testToken)
	_, err := c.Surveys(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "insufficient permissions") {
		t.Errorf("error = %v", err)
	}
}
