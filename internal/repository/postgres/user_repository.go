package postgres

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slotswap/internal/model"
)

// UserRepository читает пользователей; записью занимается сервис авторизации
type UserRepository struct {
	q Querier
}

func NewUserRepository(q Querier) *UserRepository {
	return &UserRepository{q: q}
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := `
		SELECT id, name, email, telegram_chat_id, created_at
		FROM users
		WHERE id = $1
	`

	var user model.User
	err := r.q.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.TelegramChatID,
		&user.CreatedAt,
	)

	if err != nil {
		if IsNotFound(err) {
			return nil, nil // Пользователь не найден
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return &user, nil
}

// GetByIDs получает пользователей по списку ID
func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]*model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, name, email, telegram_chat_id, created_at
		FROM users
		WHERE id = ANY($1::text[]::uuid[])
		ORDER BY name
	`

	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get users by ids: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		var user model.User
		err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.Email,
			&user.TelegramChatID,
			&user.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get users by ids: %w", err)
	}

	return users, nil
}
