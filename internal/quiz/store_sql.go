package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

type SQLStore struct {
	db     *sql.DB
	hasher *Hasher
}

func NewSQLStore(db *sql.DB, h *Hasher) *SQLStore {
	return &SQLStore{db: db, hasher: h}
}

func (s *SQLStore) CreateTest(ctx context.Context, t Test) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO tests (title,description,time_limit,max_attempts,shuffle_questions,show_results,created_by,created_at,is_active)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		t.Title, t.Description, t.TimeLimitMin, t.MaxAttempts, t.ShuffleQuestions, t.ShowResults,
		t.CreatedBy, time.Now().Unix(), true).Scan(&id)
	return id, err
}

func (s *SQLStore) GetTest(ctx context.Context, id int64) (Test, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,title,description,time_limit,max_attempts,shuffle_questions,show_results,created_by,created_at,is_active
		 FROM tests WHERE id=$1`, id)
	return scanTest(row)
}

func (s *SQLStore) ListTeacherTests(ctx context.Context, teacher string) ([]Test, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,title,description,time_limit,max_attempts,shuffle_questions,show_results,created_by,created_at,is_active
		 FROM tests WHERE created_by=$1 ORDER BY created_at DESC`, teacher)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Test{}
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeactivateTest(ctx context.Context, id int64, teacher string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tests SET is_active=FALSE WHERE id=$1 AND created_by=$2`, id, teacher)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTestNotFound
	}
	return nil
}

// CreateQuestion stores a question and its answer key in one
// transaction. The key row holds both the plaintext correct answers and
// their digest; only the digest is ever consulted for scoring.
func (s *SQLStore) CreateQuestion(ctx context.Context, testID int64, in QuestionInput) (qid int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var one int
	if err = tx.QueryRowContext(ctx, `SELECT 1 FROM tests WHERE id=$1`, testID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrTestNotFound
		}
		return 0, err
	}

	opts := in.Options
	if opts == nil {
		opts = []string{}
	}
	optJSON, err := json.Marshal(opts)
	if err != nil {
		return 0, err
	}
	if err = tx.QueryRowContext(ctx,
		`INSERT INTO test_questions (test_id,question_text,question_type,options,points,question_order)
		 VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		testID, in.Text, in.Type, string(optJSON), in.Points, in.Order).Scan(&qid); err != nil {
		return 0, err
	}

	keyJSON, err := json.Marshal(in.CorrectAnswers)
	if err != nil {
		return 0, err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO test_answers (question_id,correct_answers,answer_hash) VALUES ($1,$2,$3)`,
		qid, string(keyJSON), s.hasher.KeyDigest(in.Type, in.CorrectAnswers))
	return qid, err
}

func (s *SQLStore) ListQuestions(ctx context.Context, testID int64) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,test_id,question_text,question_type,options,points,question_order
		 FROM test_questions WHERE test_id=$1 ORDER BY question_order`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		var q Question
		var optJSON string
		if err := rows.Scan(&q.ID, &q.TestID, &q.Text, &q.Type, &optJSON, &q.Points, &q.Order); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(optJSON), &q.Options); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) AvailableTests(ctx context.Context, student string) ([]AvailableTest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id,t.title,t.description,t.time_limit,t.max_attempts,t.shuffle_questions,t.show_results,
		        t.created_by,t.created_at,t.is_active,COUNT(r.id) AS completed
		 FROM tests t
		 LEFT JOIN test_results r ON r.test_id = t.id AND r.student_username = $1
		 WHERE t.is_active
		 GROUP BY t.id
		 HAVING COUNT(r.id) < t.max_attempts OR t.max_attempts = 0
		 ORDER BY t.id`, student)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []AvailableTest{}
	for rows.Next() {
		var at AvailableTest
		var completed int
		if err := rows.Scan(&at.ID, &at.Title, &at.Description, &at.TimeLimitMin, &at.MaxAttempts,
			&at.ShuffleQuestions, &at.ShowResults, &at.CreatedBy, &at.CreatedAt, &at.Active, &completed); err != nil {
			return nil, err
		}
		at.CurrentAttempt = completed + 1
		out = append(out, at)
	}
	return out, rows.Err()
}

func (s *SQLStore) Submit(ctx context.Context, testID int64, student string, answers map[string]any, timeSpentSec int) (Result, error) {
	t, err := s.GetTest(ctx, testID)
	if err != nil {
		return Result{}, err
	}

	// Authoritative points and digests at this instant. Later edits to
	// the test never alter stored results.
	rows, err := s.db.QueryContext(ctx,
		`SELECT q.id, q.points, a.answer_hash
		 FROM test_questions q JOIN test_answers a ON a.question_id = q.id
		 WHERE q.test_id = $1`, testID)
	if err != nil {
		return Result{}, err
	}
	defer rows.Close()

	score, maxScore := 0, 0
	for rows.Next() {
		var qid int64
		var points int
		var digest string
		if err := rows.Scan(&qid, &points, &digest); err != nil {
			return Result{}, err
		}
		maxScore += points
		v, ok := answers[strconv.FormatInt(qid, 10)]
		if ok && !emptyAnswer(v) && s.hasher.Digest(v) == digest {
			score += points
		}
	}
	if err := rows.Err(); err != nil {
		return Result{}, err
	}

	if answers == nil {
		answers = map[string]any{}
	}
	ansJSON, err := json.Marshal(answers)
	if err != nil {
		return Result{}, err
	}

	// Attempt number is 1 + prior result count. Two concurrent
	// submissions can compute the same number; the unique constraint on
	// (test_id, student_username, attempt_number) rejects the loser and
	// we recount.
	for tries := 0; tries < 5; tries++ {
		var prior int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM test_results WHERE test_id=$1 AND student_username=$2`,
			testID, student).Scan(&prior); err != nil {
			return Result{}, err
		}
		attempt := prior + 1
		if t.MaxAttempts > 0 && attempt > t.MaxAttempts {
			return Result{}, ErrAttemptsSpent
		}

		res := Result{
			TestID:        testID,
			Student:       student,
			Answers:       answers,
			Score:         score,
			MaxScore:      maxScore,
			TimeSpentSec:  timeSpentSec,
			CompletedAt:   time.Now().Unix(),
			AttemptNumber: attempt,
		}
		err = s.db.QueryRowContext(ctx,
			`INSERT INTO test_results (test_id,student_username,answers,score,max_score,time_spent,completed_at,attempt_number)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
			testID, student, string(ansJSON), score, maxScore, timeSpentSec, res.CompletedAt, attempt).Scan(&res.ID)
		if err == nil {
			return res, nil
		}
		if !isUniqueViolation(err) {
			return Result{}, err
		}
	}
	return Result{}, err
}

func (s *SQLStore) ListResults(ctx context.Context, student string, testID int64) ([]Result, error) {
	q := `SELECT r.id,r.test_id,t.title,r.student_username,r.score,r.max_score,r.time_spent,r.completed_at,r.attempt_number
	      FROM test_results r JOIN tests t ON t.id = r.test_id
	      WHERE r.student_username = $1`
	args := []any{student}
	if testID != 0 {
		q += ` AND r.test_id = $2`
		args = append(args, testID)
	}
	q += ` ORDER BY r.completed_at DESC, r.id DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Result{}
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.TestID, &r.TestTitle, &r.Student, &r.Score, &r.MaxScore,
			&r.TimeSpentSec, &r.CompletedAt, &r.AttemptNumber); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanTest(row interface{ Scan(...any) error }) (Test, error) {
	var t Test
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.TimeLimitMin, &t.MaxAttempts,
		&t.ShuffleQuestions, &t.ShowResults, &t.CreatedBy, &t.CreatedAt, &t.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Test{}, ErrTestNotFound
		}
		return Test{}, err
	}
	return t, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || // sqlite
		strings.Contains(msg, "duplicate key value violates unique constraint") || // postgres
		strings.Contains(msg, "sqlstate 23505")
}
