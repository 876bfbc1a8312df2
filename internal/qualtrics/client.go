// Package qualtrics is a minimal REST client for the survey platform,
// covering survey definitions, questions, quotas, mailing lists,
// distributions and response exports. Like the course client it wraps the
// documented HTTP operations one-to-one and leaves sequencing to callers.
package qualtrics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to one survey platform data center on behalf of one token.
type Client struct {
	baseURL string
	token   string
	hc      *http.Client

	// PollInterval is the wait between export progress polls.
	PollInterval time.Duration
}

// BaseURL builds the API base URL for a named data center, e.g.
// "uni.ca1" -> "https://uni.ca1.qualtrics.com/API/v3".
func BaseURL(dataCenter string) string {
	return fmt.Sprintf("https://%s.qualtrics.com/API/v3", dataCenter)
}

// New creates a client for the API at baseURL (including the /API/v3 prefix;
// see BaseURL).
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		token:        token,
		hc:           &http.Client{Timeout: 60 * time.Second},
		PollInterval: 500 * time.Millisecond,
	}
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, body any) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-TOKEN", c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do performs one API call and decodes the response envelope into out
// (skipped when out is nil).
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return apiError(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func apiError(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	msg := strings.TrimSpace(string(b))
	if msg == "" {
		return fmt.Errorf("%s: platform returned %s", op, resp.Status)
	}
	return fmt.Errorf("%s: platform returned %s: %s", op, resp.Status, msg)
}

// listAll walks an elements collection across pages, following nextPage
// until the platform stops handing one back.
func listAll[T any](ctx context.Context, c *Client, op, path string, query url.Values) ([]T, error) {
	next := c.baseURL + path
	if len(query) > 0 {
		next += "?" + query.Encode()
	}
	var all []T
	for next != "" {
		req, err := c.newRequest(ctx, http.MethodGet, next, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		resp, err := c.hc.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if resp.StatusCode/100 != 2 {
			err := apiError(op, resp)
			resp.Body.Close()
			return nil, err
		}
		var out result[page[T]]
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("%s: decode response: %w", op, err)
		}
		resp.Body.Close()
		all = append(all, out.Result.Elements...)
		next = out.Result.NextPage
	}
	slog.Debug("survey platform list", "op", op, "items", len(all))
	return all, nil
}

// Surveys lists every survey visible to the token.
func (c *Client) Surveys(ctx context.Context) ([]Survey, error) {
	return listAll[Survey](ctx, c, "list surveys", "/surveys", nil)
}

// CreateSurvey creates an empty survey definition and returns its id.
func (c *Client) CreateSurvey(ctx context.Context, name string) (string, error) {
	body := map[string]string{
		"SurveyName":      name,
		"Language":        "EN",
		"ProjectCategory": "CORE",
	}
	var out result[struct {
		SurveyID string `json:"SurveyID"`
	}]
	if err := c.do(ctx, "create survey", http.MethodPost, "/survey-definitions", body, &out); err != nil {
		return "", err
	}
	return out.Result.SurveyID, nil
}

// CreateQuestion adds a question to a survey and returns the platform's
// question id.
func (c *Client) CreateQuestion(ctx context.Context, surveyID string, q Question) (string, error) {
	var out result[struct {
		QuestionID string `json:"QuestionID"`
	}]
	path := fmt.Sprintf("/survey-definitions/%s/questions", surveyID)
	if err := c.do(ctx, "create question", http.MethodPost, path, q, &out); err != nil {
		return "", err
	}
	return out.Result.QuestionID, nil
}

// UpdateQuestion re-issues a full question definition, which is how display
// logic gets attached after the referenced quotas exist.
func (c *Client) UpdateQuestion(ctx context.Context, surveyID, questionID string, q Question) error {
	q.QuestionID = questionID
	path := fmt.Sprintf("/survey-definitions/%s/questions/%s", surveyID, questionID)
	return c.do(ctx, "update question", http.MethodPut, path, q, nil)
}

// Questions lists a survey's current question definitions.
func (c *Client) Questions(ctx context.Context, surveyID string) ([]Question, error) {
	path := fmt.Sprintf("/survey-definitions/%s/questions", surveyID)
	return listAll[Question](ctx, c, "list questions", path, nil)
}

// PublishSurvey publishes the current survey definition as a new version.
func (c *Client) PublishSurvey(ctx context.Context, surveyID, description string) error {
	body := map[string]any{"Description": description, "Published": true}
	path := fmt.Sprintf("/survey-definitions/%s/versions", surveyID)
	return c.do(ctx, "publish survey", http.MethodPost, path, body, nil)
}

// ActivateSurvey opens a survey for responses.
func (c *Client) ActivateSurvey(ctx context.Context, surveyID string) error {
	body := map[string]bool{"isActive": true}
	return c.do(ctx, "activate survey", http.MethodPut, "/surveys/"+surveyID, body, nil)
}

// SurveyOptions fetches a survey's option block.
func (c *Client) SurveyOptions(ctx context.Context, surveyID string) (map[string]any, error) {
	var out result[map[string]any]
	path := fmt.Sprintf("/survey-definitions/%s/options", surveyID)
	if err := c.do(ctx, "get survey options", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

// UpdateSurveyOptions replaces a survey's option block.
func (c *Client) UpdateSurveyOptions(ctx context.Context, surveyID string, opts map[string]any) error {
	path := fmt.Sprintf("/survey-definitions/%s/options", surveyID)
	return c.do(ctx, "update survey options", http.MethodPut, path, opts, nil)
}

// MakePrivate restricts a survey to invited respondents only, which is what
// ties responses to known recipients.
func (c *Client) MakePrivate(ctx context.Context, surveyID string) error {
	opts, err := c.SurveyOptions(ctx, surveyID)
	if err != nil {
		return err
	}
	opts["SurveyProtection"] = "ByInvitation"
	return c.UpdateSurveyOptions(ctx, surveyID, opts)
}

// ShareSurvey grants another platform user full collaborator access.
func (c *Client) ShareSurvey(ctx context.Context, surveyID, userID string) error {
	body := map[string]any{
		"userId":      userID,
		"permissions": CollaboratorPermissions(),
	}
	path := fmt.Sprintf("/surveys/%s/permissions/collaborations", surveyID)
	return c.do(ctx, "share survey", http.MethodPost, path, body, nil)
}

// CollaboratorPermissions is the full-access permission set used when
// sharing a survey with a co-instructor.
func CollaboratorPermissions() map[string]map[string]bool {
	return map[string]map[string]bool{
		"surveyDefinitionManipulation": {
			"copySurveyQuestions":   true,
			"editSurveyFlow":        true,
			"useBlocks":             true,
			"useSkipLogic":          true,
			"useConjoint":           true,
			"useTriggers":           true,
			"editQuestions":         true,
			"deleteSurveyQuestions": true,
		},
		"surveyManagement": {
			"editSurveys":       true,
			"activateSurveys":   true,
			"deactivateSurveys": true,
			"copySurveys":       true,
			"distributeSurveys": true,
			"deleteSurveys":     true,
			"translateSurveys":  true,
		},
		"response": {
			"editSurveyResponses": true,
			"createResponseSets":  true,
			"viewResponseId":      true,
			"useCrossTabs":        true,
		},
		"result": {
			"downloadSurveyResults": true,
			"viewSurveyResults":     true,
			"filterSurveyResults":   true,
			"viewPersonalData":      true,
		},
	}
}

// CreateQuotaGroup creates a quota group on a survey and returns its id.
func (c *Client) CreateQuotaGroup(ctx context.Context, surveyID, name string) (string, error) {
	body := map[string]any{
		"Name":          name,
		"Public":        false,
		"MultipleMatch": "PlaceInAll",
	}
	var out result[struct {
		QuotaGroupID string `json:"QuotaGroupID"`
	}]
	path := fmt.Sprintf("/survey-definitions/%s/quotagroups", surveyID)
	if err := c.do(ctx, "create quota group", http.MethodPost, path, body, &out); err != nil {
		return "", err
	}
	return out.Result.QuotaGroupID, nil
}

// CreateQuota creates a quota on a survey and returns its id.
func (c *Client) CreateQuota(ctx context.Context, surveyID string, q Quota) (string, error) {
	var out result[struct {
		QuotaID string `json:"QuotaID"`
	}]
	path := fmt.Sprintf("/survey-definitions/%s/quotas", surveyID)
	if err := c.do(ctx, "create quota", http.MethodPost, path, q, &out); err != nil {
		return "", err
	}
	return out.Result.QuotaID, nil
}

// QuotaGroups lists the quota groups of a survey.
func (c *Client) QuotaGroups(ctx context.Context, surveyID string) ([]QuotaGroup, error) {
	path := fmt.Sprintf("/survey-definitions/%s/quotagroups", surveyID)
	return listAll[QuotaGroup](ctx, c, "list quota groups", path, nil)
}

// Quotas lists the quotas of a survey with their current counts.
func (c *Client) Quotas(ctx context.Context, surveyID string) ([]Quota, error) {
	path := fmt.Sprintf("/survey-definitions/%s/quotas", surveyID)
	return listAll[Quota](ctx, c, "list quotas", path, nil)
}

// Libraries lists the libraries the token can create resources in.
func (c *Client) Libraries(ctx context.Context) ([]Library, error) {
	return listAll[Library](ctx, c, "list libraries", "/libraries", nil)
}

// LibraryID returns the token owner's user library, the default home for
// mailing lists.
func (c *Client) LibraryID(ctx context.Context) (string, error) {
	libs, err := c.Libraries(ctx)
	if err != nil {
		return "", err
	}
	for _, l := range libs {
		if strings.HasPrefix(l.ID, "UR") {
			return l.ID, nil
		}
	}
	return "", fmt.Errorf("find library: no user library among %d libraries", len(libs))
}

// MailingLists lists every mailing list visible to the token.
func (c *Client) MailingLists(ctx context.Context) ([]MailingList, error) {
	return listAll[MailingList](ctx, c, "list mailing lists", "/mailinglists", nil)
}

// CreateMailingList creates a mailing list in a library and returns its id.
func (c *Client) CreateMailingList(ctx context.Context, libraryID, name string) (string, error) {
	body := map[string]string{"libraryId": libraryID, "name": name}
	var out result[struct {
		ID string `json:"id"`
	}]
	if err := c.do(ctx, "create mailing list", http.MethodPost, "/mailinglists", body, &out); err != nil {
		return "", err
	}
	return out.Result.ID, nil
}

// Contacts lists the members of a mailing list.
func (c *Client) Contacts(ctx context.Context, mailingListID string) ([]Contact, error) {
	path := fmt.Sprintf("/mailinglists/%s/contacts", mailingListID)
	return listAll[Contact](ctx, c, "list contacts", path, nil)
}

// AddContact adds a contact to a mailing list and returns the contact id.
func (c *Client) AddContact(ctx context.Context, mailingListID string, contact Contact) (string, error) {
	var out result[struct {
		ID string `json:"id"`
	}]
	path := fmt.Sprintf("/mailinglists/%s/contacts", mailingListID)
	if err := c.do(ctx, "add contact", http.MethodPost, path, contact, &out); err != nil {
		return "", err
	}
	return out.Result.ID, nil
}

// DeleteContact removes a contact from a mailing list.
func (c *Client) DeleteContact(ctx context.Context, mailingListID, contactID string) error {
	path := fmt.Sprintf("/mailinglists/%s/contacts/%s", mailingListID, contactID)
	return c.do(ctx, "delete contact", http.MethodDelete, path, nil, nil)
}

// CreateDistribution creates an individual-link distribution of a survey to
// a mailing list and returns the distribution id. No mail is sent; the links
// are fetched afterwards with DistributionLinks.
func (c *Client) CreateDistribution(ctx context.Context, surveyID, mailingListID string) (string, error) {
	body := map[string]string{
		"surveyId":      surveyID,
		"linkType":      "Individual",
		"description":   "distribution " + time.Now().UTC().Format("2006-01-02 15:04:05"),
		"action":        "CreateDistribution",
		"mailingListId": mailingListID,
	}
	var out result[struct {
		ID string `json:"id"`
	}]
	if err := c.do(ctx, "create distribution", http.MethodPost, "/distributions", body, &out); err != nil {
		return "", err
	}
	return out.Result.ID, nil
}

// DistributionLinks lists the per-recipient links of a distribution.
func (c *Client) DistributionLinks(ctx context.Context, distributionID, surveyID string) ([]DistributionLink, error) {
	q := url.Values{}
	q.Set("surveyId", surveyID)
	path := fmt.Sprintf("/distributions/%s/links", distributionID)
	return listAll[DistributionLink](ctx, c, "list distribution links", path, q)
}
