package quiz

import "context"

// QuestionInput is a question definition together with its answer key.
// The two are persisted as one transactional unit: a question must never
// exist without its key, or scoring becomes impossible.
type QuestionInput struct {
	Text           string   `json:"question_text"`
	Type           string   `json:"question_type"`
	Options        []string `json:"options"`
	CorrectAnswers []string `json:"correct_answers"`
	Points         int      `json:"points"`
	Order          int      `json:"question_order"`
}

type Store interface {
	CreateTest(ctx context.Context, t Test) (int64, error)
	GetTest(ctx context.Context, id int64) (Test, error)
	ListTeacherTests(ctx context.Context, teacher string) ([]Test, error)
	DeactivateTest(ctx context.Context, id int64, teacher string) error

	CreateQuestion(ctx context.Context, testID int64, in QuestionInput) (int64, error)
	ListQuestions(ctx context.Context, testID int64) ([]Question, error)

	// AvailableTests returns the active tests the student may still
	// start, each carrying the attempt number a new submission would get.
	AvailableTests(ctx context.Context, student string) ([]AvailableTest, error)

	// Submit scores a submission against the stored digests, appends one
	// immutable result row and returns it. Timer-driven submissions go
	// through the same path with whatever answers were collected.
	Submit(ctx context.Context, testID int64, student string, answers map[string]any, timeSpentSec int) (Result, error)

	// ListResults returns the student's results, newest first. testID 0
	// means all tests.
	ListResults(ctx context.Context, student string, testID int64) ([]Result, error)
}
