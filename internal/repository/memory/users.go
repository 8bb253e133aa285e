package memory

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/hashicorp/go-memdb"
)

type userRepository struct {
	unit
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user *model.User
	err := r.read(func(txn *memdb.Txn) error {
		raw, err := txn.First(tableUsers, "id", id)
		if err != nil {
			return fmt.Errorf("get user by id: %w", err)
		}
		if raw != nil {
			u := *raw.(*model.User)
			user = &u
		}
		return nil
	})
	return user, err
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []string) ([]*model.User, error) {
	var users []*model.User
	for _, id := range ids {
		user, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get users by ids: %w", err)
		}
		if user != nil {
			users = append(users, user)
		}
	}
	return users, nil
}
