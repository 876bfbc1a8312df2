// Package store keeps the local journal of remote work: every object a
// survey build creates and every score import run. Nothing on the remote
// platforms is rolled back after a failure, so the journal is what makes a
// partially built survey findable again.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		survey_name TEXT NOT NULL,
		course_name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'in_progress',
		started_at DATETIME NOT NULL,
		finished_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS build_objects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		remote_id TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (build_id) REFERENCES builds(id)
	);

	CREATE TABLE IF NOT EXISTS import_runs (
		id TEXT PRIMARY KEY,
		course_name TEXT NOT NULL,
		assignment TEXT NOT NULL,
		source TEXT NOT NULL,
		scored INTEGER NOT NULL DEFAULT 0,
		unresolved INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		finished_at DATETIME
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Build is one multi-step remote construction, open until finished.
type Build struct {
	ID         int64
	SurveyName string
	CourseName string
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// BuildObject is one remote object a build created, recorded immediately
// after the creating call returned its id.
type BuildObject struct {
	ID        int64
	BuildID   int64
	Kind      string
	RemoteID  string
	CreatedAt time.Time
}

// ImportRun is one score-import invocation.
type ImportRun struct {
	ID         string
	CourseName string
	Assignment string
	Source     string
	Scored     int
	Unresolved int
	StartedAt  time.Time
	FinishedAt *time.Time
}

// BuildStarted opens a journal entry for a new remote construction.
func (s *Store) BuildStarted(surveyName, courseName string) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO builds (survey_name, course_name, status, started_at) VALUES (?, ?, 'in_progress', ?)`,
		surveyName, courseName, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ObjectCreated records one remote object the build created.
func (s *Store) ObjectCreated(buildID int64, kind, remoteID string) error {
	_, err := s.db.Exec(
		`INSERT INTO build_objects (build_id, kind, remote_id, created_at) VALUES (?, ?, ?, ?)`,
		buildID, kind, remoteID, time.Now(),
	)
	return err
}

// BuildFinished closes a build with its final status.
func (s *Store) BuildFinished(buildID int64, status string) error {
	_, err := s.db.Exec(
		`UPDATE builds SET status = ?, finished_at = ? WHERE id = ?`,
		status, time.Now(), buildID,
	)
	return err
}

// Build returns one build by id.
func (s *Store) Build(id int64) (Build, error) {
	var b Build
	err := s.db.QueryRow(
		`SELECT id, survey_name, course_name, status, started_at, finished_at FROM builds WHERE id = ?`, id,
	).Scan(&b.ID, &b.SurveyName, &b.CourseName, &b.Status, &b.StartedAt, &b.FinishedAt)
	return b, err
}

// Builds returns all builds, newest first.
func (s *Store) Builds() ([]Build, error) {
	rows, err := s.db.Query(`SELECT id, survey_name, course_name, status, started_at, finished_at FROM builds ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var builds []Build
	for rows.Next() {
		var b Build
		if err := rows.Scan(&b.ID, &b.SurveyName, &b.CourseName, &b.Status, &b.StartedAt, &b.FinishedAt); err != nil {
			return nil, err
		}
		builds = append(builds, b)
	}
	return builds, rows.Err()
}

// BuildObjects returns the objects a build created, in creation order.
func (s *Store) BuildObjects(buildID int64) ([]BuildObject, error) {
	rows, err := s.db.Query(
		`SELECT id, build_id, kind, remote_id, created_at FROM build_objects WHERE build_id = ? ORDER BY id`, buildID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var objects []BuildObject
	for rows.Next() {
		var o BuildObject
		if err := rows.Scan(&o.ID, &o.BuildID, &o.Kind, &o.RemoteID, &o.CreatedAt); err != nil {
			return nil, err
		}
		objects = append(objects, o)
	}
	return objects, rows.Err()
}

// ImportStarted opens a journal entry for a score import run.
func (s *Store) ImportStarted(id, courseName, assignment, source string) error {
	_, err := s.db.Exec(
		`INSERT INTO import_runs (id, course_name, assignment, source, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, courseName, assignment, source, time.Now(),
	)
	return err
}

// ImportFinished closes an import run with its outcome counts.
func (s *Store) ImportFinished(id string, scored, unresolved int) error {
	_, err := s.db.Exec(
		`UPDATE import_runs SET scored = ?, unresolved = ?, finished_at = ? WHERE id = ?`,
		scored, unresolved, time.Now(), id,
	)
	return err
}

// ImportRuns returns all import runs, newest first.
func (s *Store) ImportRuns() ([]ImportRun, error) {
	rows, err := s.db.Query(
		`SELECT id, course_name, assignment, source, scored, unresolved, started_at, finished_at FROM import_runs ORDER BY started_at DESC, id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var runs []ImportRun
	for rows.Next() {
		var r ImportRun
		if err := rows.Scan(&r.ID, &r.CourseName, &r.Assignment, &r.Source, &r.Scored, &r.Unresolved, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
