package progress

import (
	"context"
	"sync"
	"time"
)

type recordKey struct {
	userID     string
	subtopicID string
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu          sync.RWMutex
	records     map[recordKey]Record
	quizResults []QuizResult
	finalTests  []FinalTestResult
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[recordKey]Record)}
}

func (s *MemoryStore) SaveProgress(_ context.Context, u Update) error {
	if err := u.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{u.UserID, u.SubtopicID}
	s.records[key] = merge(s.records[key], u, time.Now())
	return nil
}

func (s *MemoryStore) SaveQuizResult(_ context.Context, r QuizResult) error {
	if r.UserID == "" || r.SubtopicID == "" {
		return ErrInvalidUpdate
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	s.mu.Lock()
	s.quizResults = append(s.quizResults, r)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) SaveFinalTestResult(_ context.Context, r FinalTestResult) error {
	if r.UserID == "" || r.LessonID == "" {
		return ErrInvalidUpdate
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	s.mu.Lock()
	s.finalTests = append(s.finalTests, r)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Progress(_ context.Context, userID string) (map[string]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Record)
	for k, r := range s.records {
		if k.userID == userID {
			out[k.subtopicID] = r
		}
	}
	return out, nil
}

func (s *MemoryStore) FinalTestResults(_ context.Context, userID, lessonID string) ([]FinalTestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []FinalTestResult
	for _, r := range s.finalTests {
		if r.UserID == userID && r.LessonID == lessonID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Len returns the number of progress records, across all users.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// QuizResults returns a copy of the stored quiz attempts.
func (s *MemoryStore) QuizResults() []QuizResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]QuizResult{}, s.quizResults...)
}
