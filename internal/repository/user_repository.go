package repository

import (
	"context"
	"database/sql"
	"errors"

	"feira-smart/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound      = domain.NewError(domain.ErrNotFound, "user not found")
	ErrUserAlreadyExists = domain.NewError(domain.ErrConflict, "user with this email already exists")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type userRepository struct {
	conn
}

// NewUserRepository creates a new instance of UserRepository
func NewUserRepository(db *sql.DB, opts ...Option) UserRepository {
	return &userRepository{conn: newConn(db, opts)}
}

const userColumns = `id, email, password_hash, name, phone, role, created_at, updated_at`

// Create inserts a new user into the database using parameterized queries
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	query := `
		INSERT INTO profiles (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.Phone,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err, "profiles_email_key") {
			return ErrUserAlreadyExists
		}
		return wrap("failed to create user", err)
	}

	return nil
}

// FindByEmail retrieves a user by email using parameterized queries
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM profiles WHERE email = $1`, email)
}

// FindByID retrieves a user by ID using parameterized queries
func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM profiles WHERE id = $1`, id)
}

func (r *userRepository) findOne(ctx context.Context, query string, arg interface{}) (*domain.User, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	user := &domain.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Phone,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, wrap("failed to find user", err)
	}

	return user, nil
}
