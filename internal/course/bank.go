package course

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/campus-tools/gradewire/internal/canvas"
)

// feedbackSep splits an answer cell into answer text and optional
// per-answer feedback inside a question bank file.
const feedbackSep = "||"

// ParseQuestionBank reads a tab-separated question bank: one question per
// line, first cell the question text (HTML allowed), second cell the correct
// answer, remaining cells distractors. Any answer cell may carry feedback
// after "||". Rows have a variable number of answers, which is why this is
// parsed positionally rather than into a tagged struct.
func ParseQuestionBank(r io.Reader) ([]canvas.NewQuizQuestion, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var questions []canvas.NewQuizQuestion
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse question bank: %w", err)
		}
		line++
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) < 3 {
			return nil, fmt.Errorf("parse question bank: line %d has %d cells, want question plus at least two answers", line, len(rec))
		}
		q := canvas.NewQuizQuestion{
			Name:           fmt.Sprintf("Question %d", len(questions)+1),
			TextHTML:       rec[0],
			Type:           "multiple_choice_question",
			PointsPossible: 1,
		}
		for i, cell := range rec[1:] {
			text, feedback, _ := strings.Cut(cell, feedbackSep)
			a := canvas.QuizAnswer{HTML: text, CommentHTML: feedback}
			if i == 0 {
				a.Weight = 100
			}
			q.Answers = append(q.Answers, a)
		}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("parse question bank: no questions found")
	}
	return questions, nil
}

// UploadQuestionBank creates a quiz and adds every bank question to it.
func (s *Session) UploadQuestionBank(ctx context.Context, title string, questions []canvas.NewQuizQuestion) (*canvas.Quiz, error) {
	quiz, err := s.api.CreateQuiz(ctx, s.course.ID, canvas.NewQuiz{Title: title, QuizType: "assignment"})
	if err != nil {
		return nil, err
	}
	for i, q := range questions {
		if _, err := s.api.CreateQuizQuestion(ctx, s.course.ID, quiz.ID, q); err != nil {
			return nil, fmt.Errorf("quiz %d created but question %d of %d failed: %w", quiz.ID, i+1, len(questions), err)
		}
	}
	slog.Info("question bank uploaded", "course", s.course.ID, "quiz", quiz.ID, "questions", len(questions))
	return quiz, nil
}
