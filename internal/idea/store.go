// Package idea provides the idea registry: the resources users place on
// the value/effort matrix and lock while editing.
package idea

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrIdeaNotFound is returned when an idea cannot be found.
	ErrIdeaNotFound = errors.New("idea not found")
	// ErrInvalidIdea is returned when an idea is invalid.
	ErrInvalidIdea = errors.New("invalid idea")
)

// Quadrant names the region of the value/effort matrix an idea falls in.
type Quadrant string

const (
	QuadrantQuickWin Quadrant = "quick-win"
	QuadrantBigBet   Quadrant = "big-bet"
	QuadrantFillIn   Quadrant = "fill-in"
	QuadrantMoneyPit Quadrant = "money-pit"
)

// Idea is a prioritization candidate on the value/effort matrix.
type Idea struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Value       int       `json:"value"`  // 1..10
	Effort      int       `json:"effort"` // 1..10
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Quadrant derives the matrix quadrant from value and effort scores.
func (i *Idea) Quadrant() Quadrant {
	highValue := i.Value > 5
	highEffort := i.Effort > 5

	switch {
	case highValue && !highEffort:
		return QuadrantQuickWin
	case highValue && highEffort:
		return QuadrantBigBet
	case !highValue && !highEffort:
		return QuadrantFillIn
	default:
		return QuadrantMoneyPit
	}
}

// Validate checks the idea's fields.
func (i *Idea) Validate() error {
	if i == nil || i.Title == "" {
		return ErrInvalidIdea
	}
	if i.Value < 1 || i.Value > 10 || i.Effort < 1 || i.Effort > 10 {
		return ErrInvalidIdea
	}
	return nil
}

// Store defines the interface for idea persistence. Exists makes the
// store usable as the lock manager's resource checker.
type Store interface {
	// Create creates a new idea.
	Create(ctx context.Context, idea *Idea) (*Idea, error)

	// GetByID retrieves an idea by ID.
	GetByID(ctx context.Context, id string) (*Idea, error)

	// List retrieves all ideas.
	List(ctx context.Context) ([]*Idea, error)

	// Update updates an existing idea.
	Update(ctx context.Context, idea *Idea) (*Idea, error)

	// Delete deletes an idea by ID.
	Delete(ctx context.Context, id string) error

	// Exists reports whether an idea with the given ID exists.
	Exists(ctx context.Context, id string) (bool, error)
}

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create creates a new idea in the database.
func (s *PostgresStore) Create(ctx context.Context, idea *Idea) (*Idea, error) {
	if err := idea.Validate(); err != nil {
		return nil, err
	}

	if idea.ID == "" {
		idea.ID = uuid.New().String()
	}

	now := time.Now()
	idea.CreatedAt = now
	idea.UpdatedAt = now

	_, err := s.db.Exec(ctx, `
		INSERT INTO ideas (id, title, description, value, effort, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, idea.ID, idea.Title, idea.Description, idea.Value, idea.Effort, idea.CreatedAt, idea.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert idea: %w", err)
	}

	return idea, nil
}

// GetByID retrieves an idea by ID.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Idea, error) {
	idea := &Idea{}
	err := s.db.QueryRow(ctx, `
		SELECT id, title, description, value, effort, created_at, updated_at
		FROM ideas WHERE id = $1
	`, id).Scan(&idea.ID, &idea.Title, &idea.Description, &idea.Value, &idea.Effort,
		&idea.CreatedAt, &idea.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIdeaNotFound
		}
		return nil, fmt.Errorf("select idea: %w", err)
	}
	return idea, nil
}

// List retrieves all ideas ordered by creation time.
func (s *PostgresStore) List(ctx context.Context) ([]*Idea, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, title, description, value, effort, created_at, updated_at
		FROM ideas ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list ideas: %w", err)
	}
	defer rows.Close()

	var ideas []*Idea
	for rows.Next() {
		idea := &Idea{}
		if err := rows.Scan(&idea.ID, &idea.Title, &idea.Description, &idea.Value,
			&idea.Effort, &idea.CreatedAt, &idea.UpdatedAt); err != nil {
			return nil, err
		}
		ideas = append(ideas, idea)
	}
	return ideas, rows.Err()
}

// Update updates an existing idea.
func (s *PostgresStore) Update(ctx context.Context, idea *Idea) (*Idea, error) {
	if err := idea.Validate(); err != nil {
		return nil, err
	}

	idea.UpdatedAt = time.Now()

	tag, err := s.db.Exec(ctx, `
		UPDATE ideas SET title = $2, description = $3, value = $4, effort = $5, updated_at = $6
		WHERE id = $1
	`, idea.ID, idea.Title, idea.Description, idea.Value, idea.Effort, idea.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update idea: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrIdeaNotFound
	}
	return idea, nil
}

// Delete deletes an idea by ID.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM ideas WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete idea: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrIdeaNotFound
	}
	return nil
}

// Exists reports whether an idea with the given ID exists.
func (s *PostgresStore) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM ideas WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check idea exists: %w", err)
	}
	return exists, nil
}
