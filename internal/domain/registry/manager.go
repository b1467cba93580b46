package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/utils"
)

var (
	ErrExerciseNotFound  = errors.New("exercise not found")
	ErrUnknownFramework  = errors.New("unknown framework")
	ErrDuplicateExercise = errors.New("duplicate exercise")
	ErrInvalidExercise   = errors.New("invalid exercise")
)

// Manager holds immutable exercise content keyed by framework and pattern
type Manager struct {
	mu        sync.RWMutex
	exercises map[types.ExerciseKey]*types.Exercise
	loadedAt  *time.Time
}

// NewManager creates an empty registry
func NewManager() *Manager {
	return &Manager{
		exercises: make(map[types.ExerciseKey]*types.Exercise),
	}
}

// Register validates and adds exercises. Nothing is added if any of them
// is invalid or collides with an existing key.
func (m *Manager) Register(exercises ...*types.Exercise) error {
	prepared := make([]*types.Exercise, 0, len(exercises))
	seen := make(map[types.ExerciseKey]bool, len(exercises))
	for _, e := range exercises {
		p, err := prepare(e)
		if err != nil {
			return err
		}
		if seen[p.Key()] {
			return fmt.Errorf("%w: %s", ErrDuplicateExercise, p.Key())
		}
		seen[p.Key()] = true
		prepared = append(prepared, p)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range prepared {
		if _, exists := m.exercises[p.Key()]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateExercise, p.Key())
		}
	}
	for _, p := range prepared {
		m.exercises[p.Key()] = p
	}
	now := time.Now()
	m.loadedAt = &now
	return nil
}

// Replace swaps the whole registry for exercises, validated the same way
// as Register
func (m *Manager) Replace(exercises []*types.Exercise) error {
	next := NewManager()
	if err := next.Register(exercises...); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.exercises = next.exercises
	m.loadedAt = next.loadedAt
	return nil
}

// prepare validates e and returns a private copy with assertion indices
// assigned in declaration order
func prepare(e *types.Exercise) (*types.Exercise, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil exercise", ErrInvalidExercise)
	}
	if !e.Framework.Valid() {
		return nil, fmt.Errorf("%w %q", ErrUnknownFramework, e.Framework)
	}
	if err := utils.ValidateExerciseKey(string(e.Framework), e.Pattern); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExercise, err)
	}

	c := *e
	c.Assertions = make([]types.Assertion, len(e.Assertions))
	for i, a := range e.Assertions {
		if a.PredicateSource == "" {
			return nil, fmt.Errorf("%w: %s assertion %d has no predicate", ErrInvalidExercise, e.Key(), i)
		}
		if a.Name == "" {
			a.Name = fmt.Sprintf("assertion %d", i+1)
		}
		a.Index = i
		c.Assertions[i] = a
	}
	return &c, nil
}

// Get returns an exercise
func (m *Manager) Get(framework types.FrameworkID, pattern string) (*types.Exercise, error) {
	if !framework.Valid() {
		return nil, fmt.Errorf("%w %q", ErrUnknownFramework, framework)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.exercises[types.ExerciseKey{Framework: framework, Pattern: pattern}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrExerciseNotFound, framework, pattern)
	}
	return e, nil
}

// Exists checks if an exercise is registered
func (m *Manager) Exists(framework types.FrameworkID, pattern string) bool {
	_, err := m.Get(framework, pattern)
	return err == nil
}

// All returns every exercise sorted by key
func (m *Manager) All() []*types.Exercise {
	m.mu.RLock()
	out := make([]*types.Exercise, 0, len(m.exercises))
	for _, e := range m.exercises {
		out = append(out, e)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Framework != out[j].Framework {
			return out[i].Framework < out[j].Framework
		}
		return out[i].Pattern < out[j].Pattern
	})
	return out
}

// List returns summaries, optionally filtered by framework
func (m *Manager) List(framework *types.FrameworkID) []types.ExerciseSummary {
	all := m.All()
	out := make([]types.ExerciseSummary, 0, len(all))
	for _, e := range all {
		if framework != nil && e.Framework != *framework {
			continue
		}
		out = append(out, e.Summary())
	}
	return out
}

// Len returns the number of registered exercises
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.exercises)
}

// Stats returns registry statistics
func (m *Manager) Stats() types.RegistryStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := types.RegistryStats{
		Total:       len(m.exercises),
		ByFramework: make(map[types.FrameworkID]int),
		LoadedAt:    m.loadedAt,
	}
	for key := range m.exercises {
		stats.ByFramework[key.Framework]++
	}
	return stats
}
