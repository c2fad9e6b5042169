package store

import (
	"context"
	"errors"

	"github.com/kishor006-dev/Smart-Canteen-Assitant/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a conditional status update matched no
	// document, i.e. the order moved under a concurrent transition.
	ErrConflict = errors.New("conflict")
	ErrExists   = errors.New("already exists")
)

type Store interface {
	CreateUser(ctx context.Context, user model.User) error
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	CountUsers(ctx context.Context) (int64, error)

	CreateMenuItem(ctx context.Context, item model.MenuItem) error
	UpdateMenuItem(ctx context.Context, id string, update MenuItemUpdate) (model.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id string) error
	GetMenuItem(ctx context.Context, id string) (model.MenuItem, error)
	GetMenuItemByName(ctx context.Context, name string) (model.MenuItem, error)
	ListMenuItems(ctx context.Context, specialsOnly bool) ([]model.MenuItem, error)
	SetDailySpecial(ctx context.Context, id string) (model.MenuItem, error)

	CreateOrder(ctx context.Context, order model.Order) error
	GetOrder(ctx context.Context, id string) (model.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]model.Order, error)
	ListOrdersByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error)
	// UpdateOrderStatus flips the status only when the order is still in
	// the from status, returning ErrConflict otherwise.
	UpdateOrderStatus(ctx context.Context, id string, from, to model.OrderStatus) (model.Order, error)

	AppendChatMessage(ctx context.Context, msg model.ChatMessage) error
	ListChatHistory(ctx context.Context, userID string, limit int) ([]model.ChatMessage, error)
}

type MenuItemUpdate struct {
	Name      *string
	Price     *int
	Available *bool
}
