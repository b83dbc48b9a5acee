// Package analytics computes derived statistics over the results table.
// Everything here is read-side: no caching, recomputed on every call.
package analytics

import (
	"context"
	"database/sql"
	"errors"
	"math"
)

var ErrNoStudents = errors.New("no students in group")

// gradeCase buckets a result's success rate into five fixed ranges.
// Half-open except the top bucket, which is closed. Every query using
// it must filter max_score > 0: a result submitted before the test had
// any questions carries max_score = 0 and has no defined rate (the
// division is NULL on sqlite and an error on postgres).
const gradeCase = `CASE
	WHEN score * 100.0 / max_score >= 90 THEN '90-100%'
	WHEN score * 100.0 / max_score >= 80 THEN '80-89%'
	WHEN score * 100.0 / max_score >= 70 THEN '70-79%'
	WHEN score * 100.0 / max_score >= 60 THEN '60-69%'
	ELSE '0-59%'
END`

var gradeBuckets = []string{"0-59%", "60-69%", "70-79%", "80-89%", "90-100%"}

type Aggregator struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewAggregator(db *sql.DB, driver string) *Aggregator {
	return &Aggregator{db: db, driver: driver}
}

type GroupStats struct {
	Group             string         `json:"group_name"`
	StudentCount      int            `json:"student_count"`
	TotalTests        int            `json:"total_tests"`
	TotalAttempts     int            `json:"total_attempts"`
	AvgSuccessRate    float64        `json:"avg_success_rate"`
	MaxSuccessRate    float64        `json:"max_success_rate"`
	MinSuccessRate    float64        `json:"min_success_rate"`
	GradeDistribution map[string]int `json:"grade_distribution"`
}

type TestStats struct {
	TestID            int64          `json:"test_id"`
	Title             string         `json:"title"`
	QuestionCount     int            `json:"question_count"`
	TotalAttempts     int            `json:"total_attempts"`
	AvgScore          float64        `json:"avg_score"`
	MaxScoreAchieved  int            `json:"max_score_achieved"`
	MinScoreAchieved  int            `json:"min_score_achieved"`
	AvgTimeSpent      float64        `json:"avg_time_spent"`
	AvgSuccessRate    float64        `json:"avg_success_rate"`
	GradeDistribution map[string]int `json:"grade_distribution"`
}

type ProgressPoint struct {
	Date       string  `json:"date"`
	DailyAvg   float64 `json:"daily_avg"`
	TestsTaken int     `json:"tests_taken"`
}

type RankingEntry struct {
	Rank           int     `json:"rank"`
	Username       string  `json:"username"`
	FullName       string  `json:"full_name,omitempty"`
	Group          string  `json:"group,omitempty"`
	TestsCompleted int     `json:"tests_completed"`
	AvgSuccessRate float64 `json:"avg_success_rate"`
	TotalPoints    int     `json:"total_points"`
}

type DashboardStats struct {
	TotalTests    int `json:"total_tests"`
	TotalStudents int `json:"total_students"`
	TotalGroups   int `json:"total_groups"`
}

func (a *Aggregator) GroupStatistics(ctx context.Context, group string) (GroupStats, error) {
	gs := GroupStats{Group: group, GradeDistribution: emptyDistribution()}

	err := a.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role='student' AND group_name=$1`, group).Scan(&gs.StudentCount)
	if err != nil {
		return GroupStats{}, err
	}
	if gs.StudentCount == 0 {
		return GroupStats{}, ErrNoStudents
	}

	var avg, max, min sql.NullFloat64
	err = a.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT r.test_id), COUNT(r.id),
		        AVG(r.score * 100.0 / r.max_score),
		        MAX(r.score * 100.0 / r.max_score),
		        MIN(r.score * 100.0 / r.max_score)
		 FROM test_results r
		 JOIN users u ON u.username = r.student_username
		 WHERE u.role='student' AND u.group_name=$1 AND r.max_score > 0`, group).
		Scan(&gs.TotalTests, &gs.TotalAttempts, &avg, &max, &min)
	if err != nil {
		return GroupStats{}, err
	}
	gs.AvgSuccessRate = round1(avg.Float64)
	gs.MaxSuccessRate = round1(max.Float64)
	gs.MinSuccessRate = round1(min.Float64)

	rows, err := a.db.QueryContext(ctx,
		`SELECT `+gradeCase+` AS grade_range, COUNT(*)
		 FROM test_results
		 WHERE student_username IN (SELECT username FROM users WHERE role='student' AND group_name=$1)
		   AND max_score > 0
		 GROUP BY grade_range`, group)
	if err != nil {
		return GroupStats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var bucket string
		var n int
		if err := rows.Scan(&bucket, &n); err != nil {
			return GroupStats{}, err
		}
		gs.GradeDistribution[bucket] = n
	}
	return gs, rows.Err()
}

func (a *Aggregator) TestAnalytics(ctx context.Context, testID int64) (TestStats, error) {
	ts := TestStats{TestID: testID, GradeDistribution: emptyDistribution()}

	err := a.db.QueryRowContext(ctx, `SELECT title FROM tests WHERE id=$1`, testID).Scan(&ts.Title)
	if err != nil {
		return TestStats{}, err
	}
	if err := a.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM test_questions WHERE test_id=$1`, testID).Scan(&ts.QuestionCount); err != nil {
		return TestStats{}, err
	}

	var avgScore, avgTime, avgRate sql.NullFloat64
	var maxScore, minScore sql.NullInt64
	err = a.db.QueryRowContext(ctx,
		`SELECT COUNT(*), AVG(score), MAX(score), MIN(score), AVG(time_spent),
		        AVG(score * 100.0 / max_score)
		 FROM test_results WHERE test_id=$1 AND max_score > 0`, testID).
		Scan(&ts.TotalAttempts, &avgScore, &maxScore, &minScore, &avgTime, &avgRate)
	if err != nil {
		return TestStats{}, err
	}
	ts.AvgScore = round1(avgScore.Float64)
	ts.MaxScoreAchieved = int(maxScore.Int64)
	ts.MinScoreAchieved = int(minScore.Int64)
	ts.AvgTimeSpent = round1(avgTime.Float64)
	ts.AvgSuccessRate = round1(avgRate.Float64)

	rows, err := a.db.QueryContext(ctx,
		`SELECT `+gradeCase+` AS grade_range, COUNT(*)
		 FROM test_results WHERE test_id=$1 AND max_score > 0
		 GROUP BY grade_range`, testID)
	if err != nil {
		return TestStats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var bucket string
		var n int
		if err := rows.Scan(&bucket, &n); err != nil {
			return TestStats{}, err
		}
		ts.GradeDistribution[bucket] = n
	}
	return ts, rows.Err()
}

// StudentProgress returns one point per calendar date with completed
// attempts, ordered by date ascending.
func (a *Aggregator) StudentProgress(ctx context.Context, student string) ([]ProgressPoint, error) {
	dateExpr := `DATE(completed_at, 'unixepoch')`
	if a.driver == "postgres" {
		dateExpr = `to_char(to_timestamp(completed_at), 'YYYY-MM-DD')`
	}
	rows, err := a.db.QueryContext(ctx,
		`SELECT `+dateExpr+` AS day, AVG(score * 100.0 / max_score), COUNT(*)
		 FROM test_results
		 WHERE student_username = $1 AND max_score > 0
		 GROUP BY day
		 ORDER BY day`, student)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ProgressPoint{}
	for rows.Next() {
		var p ProgressPoint
		var avg float64
		if err := rows.Scan(&p.Date, &avg, &p.TestsTaken); err != nil {
			return nil, err
		}
		p.DailyAvg = round1(avg)
		out = append(out, p)
	}
	return out, rows.Err()
}

// StudentRanking returns the top 20 students by average success rate.
// Students with no gradeable results are excluded entirely.
func (a *Aggregator) StudentRanking(ctx context.Context) ([]RankingEntry, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT u.username, u.full_name, u.group_name,
		        COUNT(r.id), AVG(r.score * 100.0 / r.max_score), SUM(r.score)
		 FROM users u
		 JOIN test_results r ON r.student_username = u.username
		 WHERE u.role = 'student' AND r.max_score > 0
		 GROUP BY u.username, u.full_name, u.group_name
		 ORDER BY AVG(r.score * 100.0 / r.max_score) DESC
		 LIMIT 20`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []RankingEntry{}
	for rows.Next() {
		var e RankingEntry
		var fullName, group sql.NullString
		var avg float64
		if err := rows.Scan(&e.Username, &fullName, &group, &e.TestsCompleted, &avg, &e.TotalPoints); err != nil {
			return nil, err
		}
		e.FullName = fullName.String
		e.Group = group.String
		e.AvgSuccessRate = round1(avg)
		e.Rank = len(out) + 1
		out = append(out, e)
	}
	return out, rows.Err()
}

func (a *Aggregator) TeacherDashboard(ctx context.Context, teacher string) (DashboardStats, error) {
	var ds DashboardStats
	if err := a.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tests WHERE created_by=$1`, teacher).Scan(&ds.TotalTests); err != nil {
		return DashboardStats{}, err
	}
	if err := a.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT username) FROM users WHERE role='student'`).Scan(&ds.TotalStudents); err != nil {
		return DashboardStats{}, err
	}
	err := a.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT group_name) FROM users WHERE role='student' AND group_name IS NOT NULL`).Scan(&ds.TotalGroups)
	return ds, err
}

func emptyDistribution() map[string]int {
	m := make(map[string]int, len(gradeBuckets))
	for _, b := range gradeBuckets {
		m[b] = 0
	}
	return m
}

// round1 is display rounding only; stored values stay unrounded.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
