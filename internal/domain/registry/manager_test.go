package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
)

func exercise(framework types.FrameworkID, pattern string, predicates ...string) *types.Exercise {
	e := &types.Exercise{Framework: framework, Pattern: pattern, Title: pattern}
	for _, p := range predicates {
		e.Assertions = append(e.Assertions, types.Assertion{Index: 99, Name: "a " + p, PredicateSource: p})
	}
	return e
}

func TestManagerRegisterAndGet(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(exercise(types.FrameworkVanilla, "todo", "true", "false")))

	got, err := m.Get(types.FrameworkVanilla, "todo")
	require.NoError(t, err)
	require.Len(t, got.Assertions, 2)
	assert.Equal(t, 0, got.Assertions[0].Index)
	assert.Equal(t, 1, got.Assertions[1].Index)
	assert.Equal(t, "false", got.Assertions[1].PredicateSource)
	assert.True(t, m.Exists(types.FrameworkVanilla, "todo"))
	assert.Equal(t, 1, m.Len())
}

func TestManagerRegisterCopiesInput(t *testing.T) {
	m := NewManager()
	e := exercise(types.FrameworkReact, "counter", "true")
	require.NoError(t, m.Register(e))

	e.Assertions[0].PredicateSource = "false"
	got, err := m.Get(types.FrameworkReact, "counter")
	require.NoError(t, err)
	assert.Equal(t, "true", got.Assertions[0].PredicateSource)
}

func TestManagerDefaultsAssertionNames(t *testing.T) {
	m := NewManager()
	e := &types.Exercise{
		Framework:  types.FrameworkVue,
		Pattern:    "list",
		Assertions: []types.Assertion{{PredicateSource: "true"}},
	}
	require.NoError(t, m.Register(e))

	got, err := m.Get(types.FrameworkVue, "list")
	require.NoError(t, err)
	assert.Equal(t, "assertion 1", got.Assertions[0].Name)
}

func TestManagerRejects(t *testing.T) {
	tests := []struct {
		name     string
		existing []*types.Exercise
		add      []*types.Exercise
		want     error
	}{
		{
			name: "unknown framework",
			add:  []*types.Exercise{exercise("svelte", "todo")},
			want: ErrUnknownFramework,
		},
		{
			name:     "duplicate of registered",
			existing: []*types.Exercise{exercise(types.FrameworkVanilla, "todo")},
			add:      []*types.Exercise{exercise(types.FrameworkVanilla, "todo")},
			want:     ErrDuplicateExercise,
		},
		{
			name: "duplicate within batch",
			add: []*types.Exercise{
				exercise(types.FrameworkVanilla, "todo"),
				exercise(types.FrameworkVanilla, "todo"),
			},
			want: ErrDuplicateExercise,
		},
		{
			name: "bad pattern",
			add:  []*types.Exercise{exercise(types.FrameworkVanilla, "Has Spaces")},
			want: ErrInvalidExercise,
		},
		{
			name: "empty predicate",
			add:  []*types.Exercise{exercise(types.FrameworkVanilla, "todo", "")},
			want: ErrInvalidExercise,
		},
		{
			name: "nil",
			add:  []*types.Exercise{nil},
			want: ErrInvalidExercise,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager()
			require.NoError(t, m.Register(tt.existing...))
			before := m.Len()

			err := m.Register(tt.add...)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, m.Len())
		})
	}
}

func TestManagerGetErrors(t *testing.T) {
	m := NewManager()

	_, err := m.Get(types.FrameworkVanilla, "missing")
	assert.ErrorIs(t, err, ErrExerciseNotFound)

	_, err = m.Get("angular", "todo")
	assert.ErrorIs(t, err, ErrUnknownFramework)
}

func TestManagerListAndStats(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(
		exercise(types.FrameworkVue, "b", "true"),
		exercise(types.FrameworkVanilla, "z"),
		exercise(types.FrameworkVanilla, "a", "true", "true"),
	))

	list := m.List(nil)
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].Pattern)
	assert.Equal(t, "z", list[1].Pattern)
	assert.Equal(t, "b", list[2].Pattern)

	vanilla := types.FrameworkVanilla
	filtered := m.List(&vanilla)
	require.Len(t, filtered, 2)
	assert.Equal(t, "a", filtered[0].Pattern)
	assert.Equal(t, 2, filtered[0].Assertions)
	assert.Equal(t, "z", filtered[1].Pattern)

	stats := m.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByFramework[types.FrameworkVanilla])
	assert.Equal(t, 1, stats.ByFramework[types.FrameworkVue])
	assert.NotNil(t, stats.LoadedAt)
}

func TestManagerReplace(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(exercise(types.FrameworkVanilla, "old")))

	require.NoError(t, m.Replace([]*types.Exercise{exercise(types.FrameworkReact, "new")}))
	assert.False(t, m.Exists(types.FrameworkVanilla, "old"))
	assert.True(t, m.Exists(types.FrameworkReact, "new"))

	err := m.Replace([]*types.Exercise{exercise("nope", "x")})
	assert.ErrorIs(t, err, ErrUnknownFramework)
	assert.True(t, m.Exists(types.FrameworkReact, "new"), "failed replace keeps contents")
}
