package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tutorhub/classbooking/internal/model"
	"github.com/tutorhub/classbooking/internal/repository/base"
)

type UserRepository struct {
	pool base.Querier
}

func NewUserRepository(pool base.Querier) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID получает профиль пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `
		SELECT id, name, role, telegram_id, created_at
		FROM users
		WHERE id = $1
	`

	var user model.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Role,
		&user.TelegramID,
		&user.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return &user, nil
}
