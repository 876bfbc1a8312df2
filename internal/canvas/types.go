package canvas

import "time"

// Course is a course as returned by the course platform.
type Course struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CourseCode string `json:"course_code"`
	Term       string `json:"term,omitempty"`
}

// Enrollment is a single enrollment attached to a user record.
type Enrollment struct {
	Type string `json:"type"`
	Role string `json:"role"`
}

// RoleStudent is the enrollment role that marks a regular student.
const RoleStudent = "StudentEnrollment"

// User is a course member, including enrollments when requested.
type User struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	SortableName string       `json:"sortable_name"`
	LoginID      string       `json:"login_id"`
	Email        string       `json:"email,omitempty"`
	Enrollments  []Enrollment `json:"enrollments,omitempty"`
}

// IsStudent reports whether any of the user's enrollments is a student role.
func (u User) IsStudent() bool {
	for _, e := range u.Enrollments {
		if e.Role == RoleStudent {
			return true
		}
	}
	return false
}

// AssignmentGroup is a grouping bucket for assignments.
type AssignmentGroup struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Assignment is an assignment as returned by the course platform.
type Assignment struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	PointsPossible    float64    `json:"points_possible"`
	DueAt             *time.Time `json:"due_at"`
	UnlockAt          *time.Time `json:"unlock_at"`
	LockAt            *time.Time `json:"lock_at"`
	Published         bool       `json:"published"`
	AssignmentGroupID int64      `json:"assignment_group_id"`
	SubmissionTypes   []string   `json:"submission_types"`
	HTMLURL           string     `json:"html_url,omitempty"`
}

// NewAssignment is the payload for creating an assignment.
type NewAssignment struct {
	Name              string     `json:"name"`
	SubmissionTypes   []string   `json:"submission_types,omitempty"`
	PointsPossible    float64    `json:"points_possible"`
	GradingType       string     `json:"grading_type,omitempty"`
	AssignmentGroupID int64      `json:"assignment_group_id,omitempty"`
	Description       string     `json:"description,omitempty"`
	DueAt             *time.Time `json:"due_at,omitempty"`
	UnlockAt          *time.Time `json:"unlock_at,omitempty"`
	LockAt            *time.Time `json:"lock_at,omitempty"`
	AllowedExtensions []string   `json:"allowed_extensions,omitempty"`
	Published         bool       `json:"published"`
}

// Submission is a student's submission record for one assignment.
type Submission struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	SubmittedAt *time.Time `json:"submitted_at"`
	Late        bool       `json:"late"`
	Missing     bool       `json:"missing"`
	Score       *float64   `json:"score"`
	GradedAt    *time.Time `json:"graded_at"`
}

// Grade is one entry of a bulk grade upload: the grade as the platform
// expects it (a string, so "7.5" and "B+" both work) plus an optional
// comment attached to the submission.
type Grade struct {
	PostedGrade string `json:"posted_grade,omitempty"`
	TextComment string `json:"text_comment,omitempty"`
}

// Progress tracks an asynchronous job on the course platform.
type Progress struct {
	ID            int64  `json:"id"`
	WorkflowState string `json:"workflow_state"`
	Message       string `json:"message,omitempty"`
	Completion    int    `json:"completion,omitempty"`
}

// Progress workflow states.
const (
	ProgressQueued    = "queued"
	ProgressRunning   = "running"
	ProgressCompleted = "completed"
	ProgressFailed    = "failed"
)

// Section is a course section.
type Section struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Override is a per-section assignment date override.
type Override struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title,omitempty"`
	CourseSectionID int64      `json:"course_section_id"`
	DueAt           *time.Time `json:"due_at,omitempty"`
	UnlockAt        *time.Time `json:"unlock_at,omitempty"`
	LockAt          *time.Time `json:"lock_at,omitempty"`
}

// Folder is a node in the course file tree.
type Folder struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	FullName       string `json:"full_name"`
	ParentFolderID int64  `json:"parent_folder_id"`
}

// File is an uploaded course file.
type File struct {
	ID          int64  `json:"id"`
	UUID        string `json:"uuid"`
	DisplayName string `json:"display_name"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
}

// Page is a wiki page in a course.
type Page struct {
	PageID int64  `json:"page_id"`
	URL    string `json:"url"`
	Title  string `json:"title"`
}

// NewPage is the payload for creating a wiki page.
type NewPage struct {
	Title        string `json:"title"`
	Body         string `json:"body"`
	EditingRoles string `json:"editing_roles,omitempty"`
	Published    bool   `json:"published"`
}

// Quiz is a course quiz.
type Quiz struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// NewQuiz is the payload for creating a quiz.
type NewQuiz struct {
	Title     string `json:"title"`
	QuizType  string `json:"quiz_type,omitempty"`
	Published bool   `json:"published"`
}

// QuizAnswer is one answer of a multiple-choice quiz question.
type QuizAnswer struct {
	HTML        string `json:"answer_html"`
	Weight      int    `json:"answer_weight"`
	CommentHTML string `json:"answer_comment_html,omitempty"`
}

// NewQuizQuestion is the payload for adding a question to a quiz.
type NewQuizQuestion struct {
	Name           string       `json:"question_name"`
	TextHTML       string       `json:"question_text"`
	Type           string       `json:"question_type"`
	PointsPossible float64      `json:"points_possible"`
	Answers        []QuizAnswer `json:"answers"`
}

// QuizQuestion is a question that exists on a quiz.
type QuizQuestion struct {
	ID       int64  `json:"id"`
	Name     string `json:"question_name"`
	Type     string `json:"question_type"`
	Position int    `json:"position,omitempty"`
}

// Module is a course module.
type Module struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// NewModuleItem is the payload for adding an item to a module.
// For page items set PageURL; for everything else set ContentID.
type NewModuleItem struct {
	Title     string `json:"title"`
	Type      string `json:"type"`
	ContentID int64  `json:"content_id,omitempty"`
	PageURL   string `json:"page_url,omitempty"`
}

// ModuleItem is an item inside a course module.
type ModuleItem struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Type      string `json:"type"`
	ContentID int64  `json:"content_id,omitempty"`
	PageURL   string `json:"page_url,omitempty"`
}
