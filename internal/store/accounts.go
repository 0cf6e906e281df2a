package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/models"

	"github.com/lib/pq"
)

// ErrUsernameTaken is returned when an insert hits the unique username index
var ErrUsernameTaken = errors.New("username already taken")

// CreateUserWithProfile inserts the user and its customer profile row in one
// transaction, so an account can never exist without a profile record.
func (s *Store) CreateUserWithProfile(ctx context.Context, user *models.User) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO users (username, first_name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	if err := tx.GetContext(ctx, user, query,
		user.Username, user.FirstName, user.PasswordHash); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO customers (user_id) VALUES ($1)", user.ID); err != nil {
		return fmt.Errorf("failed to create customer profile: %w", err)
	}

	return tx.Commit()
}

// GetUserByUsername retrieves a user by username
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE username = $1", username)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureCustomer fetches the customer profile for a user, creating an empty
// one if missing. The second return value reports whether a row was created;
// only accounts predating the profile table should ever hit that path.
func (s *Store) EnsureCustomer(ctx context.Context, userID int64) (*models.Customer, bool, error) {
	var row struct {
		models.Customer
		Created bool `db:"created"`
	}

	err := s.db.GetContext(ctx, &row, `
		INSERT INTO customers (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING user_id, phone, address, profile_completed, joined_at, (xmax = 0) AS created`,
		userID)
	if err != nil {
		return nil, false, err
	}
	return &row.Customer, row.Created, nil
}

// GetCustomer retrieves the customer profile for a user
func (s *Store) GetCustomer(ctx context.Context, userID int64) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.GetContext(ctx, &customer,
		"SELECT * FROM customers WHERE user_id = $1", userID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("customer profile not found: %d", userID)
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// CompleteProfile saves the required profile fields and flips the one-way
// completion flag. Returns false if the profile was already completed.
func (s *Store) CompleteProfile(ctx context.Context, userID int64, phone, address string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET phone = $1, address = $2, profile_completed = TRUE
		WHERE user_id = $3 AND NOT profile_completed`,
		phone, address, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
