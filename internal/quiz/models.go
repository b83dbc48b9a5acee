package quiz

const (
	TypeSingleChoice   = "single_choice"
	TypeMultipleChoice = "multiple_choice"
	TypeText           = "text"
)

type Test struct {
	ID               int64  `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	TimeLimitMin     int    `json:"time_limit"`
	MaxAttempts      int    `json:"max_attempts"` // 0 = unlimited
	ShuffleQuestions bool   `json:"shuffle_questions"`
	ShowResults      bool   `json:"show_results"`
	CreatedBy        string `json:"created_by"`
	CreatedAt        int64  `json:"created_at,omitempty"`
	Active           bool   `json:"is_active"`
}

type Question struct {
	ID      int64    `json:"id"`
	TestID  int64    `json:"test_id"`
	Text    string   `json:"question_text"`
	Type    string   `json:"question_type"`
	Options []string `json:"options,omitempty"` // empty for free-text
	Points  int      `json:"points"`
	Order   int      `json:"question_order"`
}

// AvailableTest is a test a student may still start, with the attempt
// number the next submission would get.
type AvailableTest struct {
	Test
	CurrentAttempt int `json:"current_attempt"`
}

type Result struct {
	ID            int64          `json:"id"`
	TestID        int64          `json:"test_id"`
	TestTitle     string         `json:"test_title,omitempty"`
	Student       string         `json:"student_username"`
	Answers       map[string]any `json:"answers,omitempty"` // questionID -> submitted value
	Score         int            `json:"score"`
	MaxScore      int            `json:"max_score"`
	TimeSpentSec  int            `json:"time_spent"`
	CompletedAt   int64          `json:"completed_at"`
	AttemptNumber int            `json:"attempt_number"`
}
