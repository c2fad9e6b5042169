package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kishor006-dev/Smart-Canteen-Assitant/internal/crypto"
	"github.com/kishor006-dev/Smart-Canteen-Assitant/internal/model"
)

var seedUsers = []struct {
	username string
	password string
	role     string
}{
	{"student1", "123", model.RoleStudent},
	{"staff1", "admin", model.RoleStaff},
}

var seedMenu = []struct {
	name  string
	price int
}{
	{"idly", 20},
	{"dosa", 30},
	{"poori", 35},
	{"fried rice", 70},
	{"noodles", 65},
	{"paneer masala", 80},
}

// Seed populates demo users and the default menu when the store is empty.
func Seed(ctx context.Context, s Store) error {
	count, err := s.CountUsers(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if count == 0 {
		for _, u := range seedUsers {
			hash, err := crypto.HashPassword(u.password)
			if err != nil {
				return err
			}
			err = s.CreateUser(ctx, model.User{
				ID:           uuid.NewString(),
				Username:     u.username,
				PasswordHash: hash,
				Role:         u.role,
				CreatedAt:    now,
			})
			if err != nil && !errors.Is(err, ErrExists) {
				return err
			}
		}
	}

	items, err := s.ListMenuItems(ctx, false)
	if err != nil {
		return err
	}
	if len(items) > 0 {
		return nil
	}
	for _, entry := range seedMenu {
		err := s.CreateMenuItem(ctx, model.MenuItem{
			ID:        uuid.NewString(),
			Name:      entry.name,
			Price:     entry.price,
			Available: true,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil && !errors.Is(err, ErrExists) {
			return err
		}
	}
	return nil
}
