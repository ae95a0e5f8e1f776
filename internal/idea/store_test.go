package idea

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_Create(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, &Idea{
		Title:       "Self-serve onboarding",
		Description: "Let teams sign up without a sales call",
		Value:       8,
		Effort:      3,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Self-serve onboarding", created.Title)
	assert.NotZero(t, created.CreatedAt)
}

func TestInMemoryStore_Create_Invalid(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_, err := store.Create(ctx, &Idea{Value: 5, Effort: 5})
	assert.ErrorIs(t, err, ErrInvalidIdea)

	_, err = store.Create(ctx, &Idea{Title: "Scores out of range", Value: 0, Effort: 5})
	assert.ErrorIs(t, err, ErrInvalidIdea)

	_, err = store.Create(ctx, &Idea{Title: "Scores out of range", Value: 5, Effort: 11})
	assert.ErrorIs(t, err, ErrInvalidIdea)
}

func TestInMemoryStore_GetByID(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, &Idea{Title: "Dark mode", Value: 4, Effort: 2})
	require.NoError(t, err)

	got, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, got.Title)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrIdeaNotFound)
}

func TestInMemoryStore_Update(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, &Idea{Title: "Dark mode", Value: 4, Effort: 2})
	require.NoError(t, err)

	created.Value = 7
	updated, err := store.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Value)

	_, err = store.Update(ctx, &Idea{ID: "missing", Title: "Nope", Value: 1, Effort: 1})
	assert.ErrorIs(t, err, ErrIdeaNotFound)
}

func TestInMemoryStore_Delete(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, &Idea{Title: "Dark mode", Value: 4, Effort: 2})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, created.ID))
	assert.ErrorIs(t, store.Delete(ctx, created.ID), ErrIdeaNotFound)
}

func TestInMemoryStore_Exists(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, &Idea{Title: "Dark mode", Value: 4, Effort: 2})
	require.NoError(t, err)

	exists, err := store.Exists(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestInMemoryStore_List(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_, err := store.Create(ctx, &Idea{Title: "First", Value: 5, Effort: 5})
	require.NoError(t, err)
	_, err = store.Create(ctx, &Idea{Title: "Second", Value: 6, Effort: 6})
	require.NoError(t, err)

	ideas, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, ideas, 2)
}

func TestIdea_Quadrant(t *testing.T) {
	tests := []struct {
		name   string
		value  int
		effort int
		want   Quadrant
	}{
		{"high value low effort", 8, 3, QuadrantQuickWin},
		{"high value high effort", 9, 8, QuadrantBigBet},
		{"low value low effort", 3, 2, QuadrantFillIn},
		{"low value high effort", 2, 9, QuadrantMoneyPit},
		{"boundary scores are low", 5, 5, QuadrantFillIn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := &Idea{Title: "x", Value: tt.value, Effort: tt.effort}
			assert.Equal(t, tt.want, i.Quadrant())
		})
	}
}
