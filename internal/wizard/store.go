package wizard

import (
	"fmt"
	"sync"

	apperrors "github.com/yourusername/academy-bot/internal/pkg/errors"
)

// Store хранит состояния сценариев в памяти, по одному на пользователя
type Store struct {
	mu     sync.Mutex
	states map[int64]State
}

// NewStore создает пустое хранилище
func NewStore() *Store {
	return &Store{states: make(map[int64]State)}
}

// Get возвращает копию состояния пользователя
func (s *Store) Get(userID int64) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[userID]
	if !ok {
		return State{}, false
	}
	return st.clone(), true
}

// Set заменяет состояние пользователя
func (s *Store) Set(userID int64, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[userID] = st.clone()
}

// Clear удаляет состояние и сообщает, было ли оно
func (s *Store) Clear(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.states[userID]
	delete(s.states, userID)
	return ok
}

// Update применяет переход к состоянию пользователя атомарно.
// При ошибке перехода сохранённое состояние не меняется.
func (s *Store) Update(userID int64, fn func(st *State) error) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.states[userID]
	if !ok {
		return State{}, fmt.Errorf("%w: no active wizard", apperrors.ErrNotFound)
	}
	next := current.clone()
	if err := fn(&next); err != nil {
		return current.clone(), err
	}
	s.states[userID] = next
	return next.clone(), nil
}
