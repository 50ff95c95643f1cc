package repo

import (
	"errors"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/LeventeLantos/weekly-quiz-bot/internal/model"
)

var ErrQuestionNotFound = errors.New("question not found")

type QuestionStore interface {
	RandomQuestion() (model.Question, bool)
	QuestionByID(id int64) (model.Question, error)
}

// MemoryQuestionStore serves a question bank held in memory. Replace swaps
// the whole bank atomically, so a reload never exposes a partial set.
type MemoryQuestionStore struct {
	mu    sync.RWMutex
	byID  map[int64]model.Question
	order []int64
	pick  func(n int) int
}

func NewMemoryQuestionStore(qs []model.Question) *MemoryQuestionStore {
	s := &MemoryQuestionStore{pick: rand.IntN}
	s.Replace(qs)
	return s
}

func (s *MemoryQuestionStore) Replace(qs []model.Question) {
	byID := make(map[int64]model.Question, len(qs))
	order := make([]int64, 0, len(qs))
	for _, q := range qs {
		if _, dup := byID[q.ID]; !dup {
			order = append(order, q.ID)
		}
		byID[q.ID] = q
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	s.mu.Lock()
	s.byID = byID
	s.order = order
	s.mu.Unlock()
}

func (s *MemoryQuestionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *MemoryQuestionStore) RandomQuestion() (model.Question, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.order) == 0 {
		return model.Question{}, false
	}
	return s.byID[s.order[s.pick(len(s.order))]], true
}

func (s *MemoryQuestionStore) QuestionByID(id int64) (model.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.byID[id]
	if !ok {
		return model.Question{}, ErrQuestionNotFound
	}
	return q, nil
}
