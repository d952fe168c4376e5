package repository

import (
	"database/sql"
	"fmt"

	"github.com/sshwebca/sshwebca/internal/models"
)

// UserRepository handles user data access
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByUsername retrieves a user by exact username match
func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	query := `
		SELECT id, username, created_at
		FROM users
		WHERE username = ?
	`

	user := &models.User{}

	err := r.db.QueryRow(query, username).Scan(
		&user.ID,
		&user.Username,
		&user.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(id int64) (*models.User, error) {
	query := `
		SELECT id, username, created_at
		FROM users
		WHERE id = ?
	`

	user := &models.User{}

	err := r.db.QueryRow(query, id).Scan(
		&user.ID,
		&user.Username,
		&user.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user id %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetOrCreate returns the user with the given username, creating the row on
// first sight. The insert relies on the UNIQUE constraint on username, so two
// concurrent first logins for the same username converge on a single row: the
// loser of the race falls through to the re-read.
func (r *UserRepository) GetOrCreate(username string) (*models.User, error) {
	query := `
		INSERT INTO users (username)
		VALUES (?)
		ON CONFLICT(username) DO NOTHING
	`

	if _, err := r.db.Exec(query, username); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return r.GetByUsername(username)
}

// List lists all users
func (r *UserRepository) List() ([]*models.User, error) {
	query := `
		SELECT id, username, created_at
		FROM users
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User

	for rows.Next() {
		user := &models.User{}

		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}

		users = append(users, user)
	}

	return users, nil
}

// Delete deletes a user and, via the foreign key cascade, its certificate
func (r *UserRepository) Delete(id int64) error {
	query := `DELETE FROM users WHERE id = ?`

	_, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return nil
}
