// Package course holds the per-course working state: the Session that every
// workflow operates through (course record, roster, naming conventions,
// local time zone) and the reconciliation between the course platform's
// identifiers and the human-readable external ids used everywhere else.
package course

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/campus-tools/gradewire/internal/canvas"
)

// API is the slice of the course platform a session drives.
type API interface {
	Course(ctx context.Context, courseID int64) (*canvas.Course, error)
	Users(ctx context.Context, courseID int64) ([]canvas.User, error)
	Assignments(ctx context.Context, courseID int64, searchTerm string) ([]canvas.Assignment, error)
	CreateAssignment(ctx context.Context, courseID int64, a canvas.NewAssignment) (*canvas.Assignment, error)
	AssignmentGroups(ctx context.Context, courseID int64) ([]canvas.AssignmentGroup, error)
	CreateAssignmentGroup(ctx context.Context, courseID int64, name string) (*canvas.AssignmentGroup, error)
	Sections(ctx context.Context, courseID int64) ([]canvas.Section, error)
	Overrides(ctx context.Context, courseID, assignmentID int64) ([]canvas.Override, error)
	CreateOverride(ctx context.Context, courseID, assignmentID int64, o canvas.Override) (*canvas.Override, error)
	DeleteOverride(ctx context.Context, courseID, assignmentID, overrideID int64) error
	Folders(ctx context.Context, courseID int64) ([]canvas.Folder, error)
	CreateFolder(ctx context.Context, courseID int64, name string, parentID int64) (*canvas.Folder, error)
	UploadFile(ctx context.Context, folderID int64, name string, r io.Reader, size int64) (*canvas.File, error)
	CreatePage(ctx context.Context, courseID int64, p canvas.NewPage) (*canvas.Page, error)
	CreateQuiz(ctx context.Context, courseID int64, q canvas.NewQuiz) (*canvas.Quiz, error)
	CreateQuizQuestion(ctx context.Context, courseID, quizID int64, q canvas.NewQuizQuestion) (*canvas.QuizQuestion, error)
	Modules(ctx context.Context, courseID int64) ([]canvas.Module, error)
	CreateModuleItem(ctx context.Context, courseID, moduleID int64, item canvas.NewModuleItem) (*canvas.ModuleItem, error)
}

// Session binds one course to the state the workflows need. There is no
// process-wide current course: every operation goes through a Session value.
type Session struct {
	api      API
	course   *canvas.Course
	roster   Roster
	preamble string
	loc      *time.Location
	dueTime  string
}

// Option adjusts a Session at construction time.
type Option func(*Session)

// WithPreamble sets the assignment naming prefix ("HW" by default).
func WithPreamble(p string) Option {
	return func(s *Session) { s.preamble = p }
}

// WithLocation sets the time zone course due dates are written in.
func WithLocation(loc *time.Location) Option {
	return func(s *Session) { s.loc = loc }
}

// WithDueTime sets the default due time of day (HH:MM:SS) applied when a
// date arrives without one.
func WithDueTime(clock string) Option {
	return func(s *Session) { s.dueTime = clock }
}

// NewSession locates the course and returns a session bound to it.
func NewSession(ctx context.Context, a API, courseID int64, opts ...Option) (*Session, error) {
	s := &Session{
		api:      a,
		preamble: "HW",
		dueTime:  "17:00:00",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.loc == nil {
		loc, err := time.LoadLocation("America/New_York")
		if err != nil {
			return nil, fmt.Errorf("load default time zone: %w", err)
		}
		s.loc = loc
	}
	c, err := a.Course(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("locate course %d: %w", courseID, err)
	}
	s.course = c
	slog.Debug("session opened", "course", c.ID, "name", c.Name)
	return s, nil
}

// Course returns the course record the session is bound to.
func (s *Session) Course() *canvas.Course { return s.course }

// Roster returns the roster from the last FetchRoster, or nil.
func (s *Session) Roster() Roster { return s.roster }

// Preamble returns the assignment naming prefix.
func (s *Session) Preamble() string { return s.preamble }

// FetchRoster rebuilds the roster from current enrollment. Only student
// enrollments are kept; users without an external id (the platform's test
// student, unclaimed seats) are skipped with a warning. An empty result is a
// RosterFetchError, since every workflow downstream needs students.
func (s *Session) FetchRoster(ctx context.Context) (Roster, error) {
	users, err := s.api.Users(ctx, s.course.ID)
	if err != nil {
		return nil, &RosterFetchError{CourseID: s.course.ID, Reason: "list enrollment", Err: err}
	}
	var roster Roster
	for _, u := range users {
		if !u.IsStudent() {
			continue
		}
		if u.LoginID == "" {
			slog.Warn("skipping student without external id", "user", u.ID, "name", u.SortableName)
			continue
		}
		roster = append(roster, Student{
			InternalID:  u.ID,
			ExternalID:  strings.ToLower(u.LoginID),
			DisplayName: u.SortableName,
		})
	}
	if len(roster) == 0 {
		return nil, &RosterFetchError{CourseID: s.course.ID, Reason: "enrollment has no students"}
	}
	sortRoster(roster)
	s.roster = roster
	slog.Info("roster fetched", "course", s.course.ID, "students", len(roster))
	return roster, nil
}

// AssignmentName builds the conventional name for assignment number n.
func (s *Session) AssignmentName(n int) string {
	return fmt.Sprintf("%s%d", s.preamble, n)
}

// AssignmentByNumber resolves assignment number n by the naming convention.
// The platform search matches substrings ("HW1" also finds "HW10"), so the
// result is narrowed to exact name matches; anything but exactly one is a
// LookupError.
func (s *Session) AssignmentByNumber(ctx context.Context, n int) (*canvas.Assignment, error) {
	return s.AssignmentByName(ctx, s.AssignmentName(n))
}

// AssignmentByName resolves an assignment by exact name.
func (s *Session) AssignmentByName(ctx context.Context, name string) (*canvas.Assignment, error) {
	found, err := s.api.Assignments(ctx, s.course.ID, name)
	if err != nil {
		return nil, err
	}
	var matches []canvas.Assignment
	for _, a := range found {
		if a.Name == name {
			matches = append(matches, a)
		}
	}
	if len(matches) != 1 {
		return nil, &LookupError{Resource: "assignment", Name: name, Matches: len(matches)}
	}
	a := matches[0]
	return &a, nil
}

// SectionByName resolves a section by exact name.
func (s *Session) SectionByName(ctx context.Context, name string) (*canvas.Section, error) {
	sections, err := s.api.Sections(ctx, s.course.ID)
	if err != nil {
		return nil, err
	}
	var matches []canvas.Section
	for _, sec := range sections {
		if sec.Name == name {
			matches = append(matches, sec)
		}
	}
	if len(matches) != 1 {
		return nil, &LookupError{Resource: "section", Name: name, Matches: len(matches)}
	}
	sec := matches[0]
	return &sec, nil
}

// EnsureAssignmentGroup finds an assignment group by name, creating it when
// missing. Duplicate names are a LookupError rather than a guess.
func (s *Session) EnsureAssignmentGroup(ctx context.Context, name string) (*canvas.AssignmentGroup, error) {
	groups, err := s.api.AssignmentGroups(ctx, s.course.ID)
	if err != nil {
		return nil, err
	}
	var matches []canvas.AssignmentGroup
	for _, g := range groups {
		if g.Name == name {
			matches = append(matches, g)
		}
	}
	switch len(matches) {
	case 0:
		g, err := s.api.CreateAssignmentGroup(ctx, s.course.ID, name)
		if err != nil {
			return nil, err
		}
		slog.Info("assignment group created", "course", s.course.ID, "group", name)
		return g, nil
	case 1:
		g := matches[0]
		return &g, nil
	default:
		return nil, &LookupError{Resource: "assignment group", Name: name, Matches: len(matches)}
	}
}

// AssignmentParams describes an assignment to create.
type AssignmentParams struct {
	Name              string
	PointsPossible    float64
	Due               *time.Time
	Unlock            *time.Time
	Lock              *time.Time
	Description       string
	GroupName         string // defaults to "Assignments"
	SubmissionTypes   []string
	AllowedExtensions []string
	Published         bool
}

// CreateAssignment creates an assignment in its (ensured) group. Zero-point
// assignments are created ungraded so they never enter grade calculations.
func (s *Session) CreateAssignment(ctx context.Context, p AssignmentParams) (*canvas.Assignment, error) {
	groupName := p.GroupName
	if groupName == "" {
		groupName = "Assignments"
	}
	group, err := s.EnsureAssignmentGroup(ctx, groupName)
	if err != nil {
		return nil, err
	}
	a := canvas.NewAssignment{
		Name:              p.Name,
		SubmissionTypes:   p.SubmissionTypes,
		PointsPossible:    p.PointsPossible,
		AssignmentGroupID: group.ID,
		Description:       p.Description,
		DueAt:             p.Due,
		UnlockAt:          p.Unlock,
		LockAt:            p.Lock,
		AllowedExtensions: p.AllowedExtensions,
		Published:         p.Published,
	}
	if len(a.SubmissionTypes) == 0 {
		a.SubmissionTypes = []string{"online_upload"}
	}
	if p.PointsPossible == 0 {
		a.GradingType = "not_graded"
	}
	created, err := s.api.CreateAssignment(ctx, s.course.ID, a)
	if err != nil {
		return nil, err
	}
	slog.Info("assignment created", "course", s.course.ID, "assignment", created.Name, "id", created.ID)
	return created, nil
}

// LocalizeDue converts a course-local date (2006-01-02) and optional time of
// day (15:04:05, session default when empty) to UTC.
func (s *Session) LocalizeDue(date, clock string) (time.Time, error) {
	if clock == "" {
		clock = s.dueTime
	}
	t, err := time.ParseInLocation("2006-01-02 15:04:05", date+" "+clock, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse due date %q %q: %w", date, clock, err)
	}
	return t.UTC(), nil
}

// rootFolderName is the platform's name for a course's file tree root.
const rootFolderName = "course files"

// EnsureFolder resolves a slash-separated folder path under the course file
// root, creating missing components on the way down.
func (s *Session) EnsureFolder(ctx context.Context, path string) (*canvas.Folder, error) {
	folders, err := s.api.Folders(ctx, s.course.ID)
	if err != nil {
		return nil, err
	}
	byFullName := make(map[string]canvas.Folder, len(folders))
	for _, f := range folders {
		byFullName[f.FullName] = f
	}
	root, ok := byFullName[rootFolderName]
	if !ok {
		return nil, &LookupError{Resource: "folder", Name: rootFolderName, Matches: 0}
	}

	current := root
	full := rootFolderName
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if part == "" {
			continue
		}
		full = full + "/" + part
		if f, ok := byFullName[full]; ok {
			current = f
			continue
		}
		created, err := s.api.CreateFolder(ctx, s.course.ID, part, current.ID)
		if err != nil {
			return nil, err
		}
		slog.Info("folder created", "course", s.course.ID, "folder", full)
		byFullName[full] = *created
		current = *created
	}
	return &current, nil
}

// UploadTo uploads a file into the folder at path (created as needed) and
// returns the stored file.
func (s *Session) UploadTo(ctx context.Context, path, name string, r io.Reader, size int64) (*canvas.File, error) {
	folder, err := s.EnsureFolder(ctx, path)
	if err != nil {
		return nil, err
	}
	f, err := s.api.UploadFile(ctx, folder.ID, name, r, size)
	if err != nil {
		return nil, err
	}
	slog.Info("file uploaded", "course", s.course.ID, "file", f.DisplayName, "id", f.ID)
	return f, nil
}

// FileLink builds the course-relative download link for an uploaded file,
// usable inside assignment and page descriptions.
func (s *Session) FileLink(f *canvas.File) string {
	return fmt.Sprintf("/courses/%d/files/%d/download?verifier=%s", s.course.ID, f.ID, f.UUID)
}

// CreatePage creates a wiki page in the course.
func (s *Session) CreatePage(ctx context.Context, p canvas.NewPage) (*canvas.Page, error) {
	page, err := s.api.CreatePage(ctx, s.course.ID, p)
	if err != nil {
		return nil, err
	}
	slog.Info("page created", "course", s.course.ID, "page", page.Title)
	return page, nil
}

// ModuleByName resolves a module by exact name.
func (s *Session) ModuleByName(ctx context.Context, name string) (*canvas.Module, error) {
	mods, err := s.api.Modules(ctx, s.course.ID)
	if err != nil {
		return nil, err
	}
	var matches []canvas.Module
	for _, m := range mods {
		if m.Name == name {
			matches = append(matches, m)
		}
	}
	if len(matches) != 1 {
		return nil, &LookupError{Resource: "module", Name: name, Matches: len(matches)}
	}
	m := matches[0]
	return &m, nil
}

// AddToModule adds an item to the named module.
func (s *Session) AddToModule(ctx context.Context, moduleName string, item canvas.NewModuleItem) (*canvas.ModuleItem, error) {
	m, err := s.ModuleByName(ctx, moduleName)
	if err != nil {
		return nil, err
	}
	return s.api.CreateModuleItem(ctx, s.course.ID, m.ID, item)
}

// CourseID is a convenience for callers that need the raw id.
func (s *Session) CourseID() int64 { return s.course.ID }

// Location returns the course time zone.
func (s *Session) Location() *time.Location { return s.loc }

// ParseCourseID parses a course id given on the command line.
func ParseCourseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid course id %q", arg)
	}
	return id, nil
}
