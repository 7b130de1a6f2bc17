package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a progress store on pool.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) SaveProgress(ctx context.Context, u Update) error {
	if err := u.validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_progress (user_id, subtopic_id, completed, db_quiz_score, ai_quiz_score, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (user_id, subtopic_id) DO UPDATE SET
		   completed = user_progress.completed OR EXCLUDED.completed,
		   db_quiz_score = COALESCE(EXCLUDED.db_quiz_score, user_progress.db_quiz_score),
		   ai_quiz_score = COALESCE(EXCLUDED.ai_quiz_score, user_progress.ai_quiz_score),
		   updated_at = NOW()`,
		u.UserID,
		u.SubtopicID,
		u.Completed,
		u.DBQuizScore,
		u.AIQuizScore,
	)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveQuizResult(ctx context.Context, r QuizResult) error {
	if r.UserID == "" || r.SubtopicID == "" {
		return ErrInvalidUpdate
	}
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	questions, err := json.Marshal(r.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO quiz_results (user_id, subtopic_id, score, quiz_type, answers, questions, created_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7)`,
		r.UserID,
		r.SubtopicID,
		r.Score,
		r.QuizType,
		string(answers),
		string(questions),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert quiz result: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveFinalTestResult(ctx context.Context, r FinalTestResult) error {
	if r.UserID == "" || r.LessonID == "" {
		return ErrInvalidUpdate
	}
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO final_test_results (user_id, lesson_id, score, created_at)
		 VALUES ($1, $2, $3, $4)`,
		r.UserID,
		r.LessonID,
		r.Score,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert final test result: %w", err)
	}
	return nil
}

func (s *PostgresStore) Progress(ctx context.Context, userID string) (map[string]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT subtopic_id, completed, db_quiz_score, ai_quiz_score, updated_at
		 FROM user_progress
		 WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Record)
	for rows.Next() {
		rec := Record{UserID: userID}
		if err := rows.Scan(&rec.SubtopicID, &rec.Completed, &rec.DBQuizScore, &rec.AIQuizScore, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out[rec.SubtopicID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) FinalTestResults(ctx context.Context, userID, lessonID string) ([]FinalTestResult, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT score, created_at
		 FROM final_test_results
		 WHERE user_id = $1 AND lesson_id = $2
		 ORDER BY created_at ASC`,
		userID,
		lessonID,
	)
	if err != nil {
		return nil, fmt.Errorf("query final test results: %w", err)
	}
	defer rows.Close()

	var out []FinalTestResult
	for rows.Next() {
		r := FinalTestResult{UserID: userID, LessonID: lessonID}
		if err := rows.Scan(&r.Score, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan final test result: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate final test results: %w", err)
	}
	return out, nil
}
