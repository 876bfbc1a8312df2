// Package canvas is a minimal REST client for the course platform, covering
// the resource operations gradewire drives: courses, enrollments, assignments,
// submissions and grades, sections and overrides, files, pages, quizzes and
// modules. It wraps each documented HTTP operation thinly and leaves all
// workflow decisions to the callers.
package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const perPage = "100"

// Client talks to one course platform instance on behalf of one token.
type Client struct {
	baseURL string
	token   string
	hc      *http.Client

	// PollInterval is the wait between progress polls for asynchronous
	// jobs (bulk grade uploads). Shortened in tests.
	PollInterval time.Duration
}

// New creates a client for the platform at baseURL (scheme and host, no
// trailing /api/v1).
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
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do performs one API call and decodes the JSON response into out (skipped
// when out is nil). op names the operation for error messages.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + "/api/v1" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := c.newRequest(ctx, method, u, body)
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

// apiError turns a non-2xx response into an error carrying the status and a
// snippet of the body, which is where the platform puts its explanation.
func apiError(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	msg := strings.TrimSpace(string(b))
	if msg == "" {
		return fmt.Errorf("%s: platform returned %s", op, resp.Status)
	}
	return fmt.Errorf("%s: platform returned %s: %s", op, resp.Status, msg)
}

// listPages fetches every page of a collection endpoint, following the
// rel="next" Link header until it runs out.
func listPages[T any](ctx context.Context, c *Client, op, path string, query url.Values) ([]T, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("per_page", perPage)
	next := c.baseURL + "/api/v1" + path + "?" + query.Encode()

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
		var page []T
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("%s: decode response: %w", op, err)
		}
		resp.Body.Close()
		all = append(all, page...)
		next = nextLink(resp.Header.Get("Link"))
	}
	slog.Debug("course platform list", "op", op, "items", len(all))
	return all, nil
}

// nextLink extracts the rel="next" URL from a Link header, or "".
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		fields := strings.Split(part, ";")
		if len(fields) < 2 {
			continue
		}
		u := strings.Trim(strings.TrimSpace(fields[0]), "<>")
		for _, f := range fields[1:] {
			if strings.TrimSpace(f) == `rel="next"` {
				return u
			}
		}
	}
	return ""
}

// Courses lists every course visible to the token.
func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	return listPages[Course](ctx, c, "list courses", "/courses", nil)
}

// Course fetches a single course by its numeric id.
func (c *Client) Course(ctx context.Context, courseID int64) (*Course, error) {
	var out Course
	if err := c.do(ctx, "get course", http.MethodGet, fmt.Sprintf("/courses/%d", courseID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Users lists the members of a course with their enrollments included.
// The platform's synthetic test student is included so callers can filter
// deliberately.
func (c *Client) Users(ctx context.Context, courseID int64) ([]User, error) {
	q := url.Values{}
	q.Add("include[]", "enrollments")
	q.Add("include[]", "test_student")
	q.Add("include[]", "email")
	return listPages[User](ctx, c, "list course users", fmt.Sprintf("/courses/%d/users", courseID), q)
}

// Assignments lists a course's assignments, optionally narrowed by a search
// term. The search is a substring match on the platform side, so callers that
// need an exact name must filter the result.
func (c *Client) Assignments(ctx context.Context, courseID int64, searchTerm string) ([]Assignment, error) {
	q := url.Values{}
	if searchTerm != "" {
		q.Set("search_term", searchTerm)
	}
	return listPages[Assignment](ctx, c, "list assignments", fmt.Sprintf("/courses/%d/assignments", courseID), q)
}

// Assignment fetches a single assignment.
func (c *Client) Assignment(ctx context.Context, courseID, assignmentID int64) (*Assignment, error) {
	var out Assignment
	path := fmt.Sprintf("/courses/%d/assignments/%d", courseID, assignmentID)
	if err := c.do(ctx, "get assignment", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateAssignment creates an assignment in a course.
func (c *Client) CreateAssignment(ctx context.Context, courseID int64, a NewAssignment) (*Assignment, error) {
	var out Assignment
	body := map[string]any{"assignment": a}
	path := fmt.Sprintf("/courses/%d/assignments", courseID)
	if err := c.do(ctx, "create assignment", http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AssignmentGroups lists the assignment groups of a course.
func (c *Client) AssignmentGroups(ctx context.Context, courseID int64) ([]AssignmentGroup, error) {
	return listPages[AssignmentGroup](ctx, c, "list assignment groups", fmt.Sprintf("/courses/%d/assignment_groups", courseID), nil)
}

// CreateAssignmentGroup creates a named assignment group.
func (c *Client) CreateAssignmentGroup(ctx context.Context, courseID int64, name string) (*AssignmentGroup, error) {
	var out AssignmentGroup
	body := map[string]string{"name": name}
	path := fmt.Sprintf("/courses/%d/assignment_groups", courseID)
	if err := c.do(ctx, "create assignment group", http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Submissions lists all submission records for an assignment.
func (c *Client) Submissions(ctx context.Context, courseID, assignmentID int64) ([]Submission, error) {
	path := fmt.Sprintf("/courses/%d/assignments/%d/submissions", courseID, assignmentID)
	return listPages[Submission](ctx, c, "list submissions", path, nil)
}

// GradeSubmissions starts a bulk grade upload for an assignment, keyed by
// user id. The returned Progress tracks the asynchronous job; callers should
// AwaitProgress before trusting the grades.
func (c *Client) GradeSubmissions(ctx context.Context, courseID, assignmentID int64, grades map[int64]Grade) (*Progress, error) {
	data := make(map[string]Grade, len(grades))
	for uid, g := range grades {
		data[strconv.FormatInt(uid, 10)] = g
	}
	var out Progress
	body := map[string]any{"grade_data": data}
	path := fmt.Sprintf("/courses/%d/assignments/%d/submissions/update_grades", courseID, assignmentID)
	if err := c.do(ctx, "bulk grade update", http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Progress fetches the current state of an asynchronous job.
func (c *Client) Progress(ctx context.Context, progressID int64) (*Progress, error) {
	var out Progress
	if err := c.do(ctx, "get progress", http.MethodGet, fmt.Sprintf("/progress/%d", progressID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AwaitProgress polls a job until it completes, the job fails, or ctx is
// cancelled.
func (c *Client) AwaitProgress(ctx context.Context, progressID int64) error {
	for {
		p, err := c.Progress(ctx, progressID)
		if err != nil {
			return err
		}
		switch p.WorkflowState {
		case ProgressCompleted:
			return nil
		case ProgressFailed:
			return fmt.Errorf("await progress: job %d failed: %s", progressID, p.Message)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.PollInterval):
		}
	}
}

// CommentOnSubmission attaches a text comment to one student's submission
// without touching the grade.
func (c *Client) CommentOnSubmission(ctx context.Context, courseID, assignmentID, userID int64, text string) error {
	body := map[string]any{"comment": map[string]string{"text_comment": text}}
	path := fmt.Sprintf("/courses/%d/assignments/%d/submissions/%d", courseID, assignmentID, userID)
	return c.do(ctx, "comment on submission", http.MethodPut, path, nil, body, nil)
}

// Sections lists the sections of a course.
func (c *Client) Sections(ctx context.Context, courseID int64) ([]Section, error) {
	return listPages[Section](ctx, c, "list sections", fmt.Sprintf("/courses/%d/sections", courseID), nil)
}

// Overrides lists the date overrides of an assignment.
func (c *Client) Overrides(ctx context.Context, courseID, assignmentID int64) ([]Override, error) {
	path := fmt.Sprintf("/courses/%d/assignments/%d/overrides", courseID, assignmentID)
	return listPages[Override](ctx, c, "list overrides", path, nil)
}

// CreateOverride creates a per-section date override on an assignment.
func (c *Client) CreateOverride(ctx context.Context, courseID, assignmentID int64, o Override) (*Override, error) {
	var out Override
	body := map[string]any{"assignment_override": o}
	path := fmt.Sprintf("/courses/%d/assignments/%d/overrides", courseID, assignmentID)
	if err := c.do(ctx, "create override", http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteOverride removes a date override from an assignment.
func (c *Client) DeleteOverride(ctx context.Context, courseID, assignmentID, overrideID int64) error {
	path := fmt.Sprintf("/courses/%d/assignments/%d/overrides/%d", courseID, assignmentID, overrideID)
	return c.do(ctx, "delete override", http.MethodDelete, path, nil, nil, nil)
}

// Folders lists the full folder tree of a course.
func (c *Client) Folders(ctx context.Context, courseID int64) ([]Folder, error) {
	return listPages[Folder](ctx, c, "list folders", fmt.Sprintf("/courses/%d/folders", courseID), nil)
}

// CreateFolder creates a folder under an existing parent folder.
func (c *Client) CreateFolder(ctx context.Context, courseID int64, name string, parentID int64) (*Folder, error) {
	var out Folder
	body := map[string]any{"name": name, "parent_folder_id": parentID}
	path := fmt.Sprintf("/courses/%d/folders", courseID)
	if err := c.do(ctx, "create folder", http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePage creates a wiki page in a course.
func (c *Client) CreatePage(ctx context.Context, courseID int64, p NewPage) (*Page, error) {
	var out Page
	body := map[string]any{"wiki_page": p}
	path := fmt.Sprintf("/courses/%d/pages", courseID)
	if err := c.do(ctx, "create page", http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateQuiz creates a quiz in a course.
func (c *Client) CreateQuiz(ctx context.Context, courseID int64, q NewQuiz) (*Quiz, error) {
	var out Quiz
	body := map[string]any{"quiz": q}
	path := fmt.Sprintf("/courses/%d/quizzes", courseID)
	if err := c.do(ctx, "create quiz", http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateQuizQuestion adds a question to a quiz.
func (c *Client) CreateQuizQuestion(ctx context.Context, courseID, quizID int64, q NewQuizQuestion) (*QuizQuestion, error) {
	var out QuizQuestion
	body := map[string]any{"question": q}
	path := fmt.Sprintf("/courses/%d/quizzes/%d/questions", courseID, quizID)
	if err := c.do(ctx, "create quiz question", http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Modules lists the modules of a course.
func (c *Client) Modules(ctx context.Context, courseID int64) ([]Module, error) {
	return listPages[Module](ctx, c, "list modules", fmt.Sprintf("/courses/%d/modules", courseID), nil)
}

// CreateModuleItem adds an item to a module.
func (c *Client) CreateModuleItem(ctx context.Context, courseID, moduleID int64, item NewModuleItem) (*ModuleItem, error) {
	var out ModuleItem
	body := map[string]any{"module_item": item}
	path := fmt.Sprintf("/courses/%d/modules/%d/items", courseID, moduleID)
	if err := c.do(ctx, "create module item", http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
