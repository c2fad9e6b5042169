package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kishor006-dev/Smart-Canteen-Assitant/internal/model"
)

// Memory is a mutex-guarded in-memory Store used by tests and local
// development without a running MongoDB.
type Memory struct {
	mu     sync.RWMutex
	users  map[string]model.User
	menu   map[string]model.MenuItem
	orders map[string]model.Order
	chat   []model.ChatMessage
}

func NewMemory() *Memory {
	return &Memory{
		users:  make(map[string]model.User),
		menu:   make(map[string]model.MenuItem),
		orders: make(map[string]model.Order),
	}
}

func (m *Memory) CreateUser(_ context.Context, user model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == user.Username {
			return ErrExists
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *Memory) GetUserByUsername(_ context.Context, username string) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return model.User{}, ErrNotFound
}

func (m *Memory) CountUsers(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.users)), nil
}

func (m *Memory) CreateMenuItem(_ context.Context, item model.MenuItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.menu {
		if existing.Name == item.Name {
			return ErrExists
		}
	}
	m.menu[item.ID] = item
	return nil
}

func (m *Memory) UpdateMenuItem(_ context.Context, id string, update MenuItemUpdate) (model.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.menu[id]
	if !ok {
		return model.MenuItem{}, ErrNotFound
	}
	if update.Name != nil {
		for _, existing := range m.menu {
			if existing.ID != id && existing.Name == *update.Name {
				return model.MenuItem{}, ErrExists
			}
		}
		item.Name = *update.Name
	}
	if update.Price != nil {
		item.Price = *update.Price
	}
	if update.Available != nil {
		item.Available = *update.Available
	}
	item.UpdatedAt = time.Now().UTC()
	m.menu[id] = item
	return item, nil
}

func (m *Memory) DeleteMenuItem(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.menu[id]; !ok {
		return ErrNotFound
	}
	delete(m.menu, id)
	return nil
}

func (m *Memory) GetMenuItem(_ context.Context, id string) (model.MenuItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.menu[id]
	if !ok {
		return model.MenuItem{}, ErrNotFound
	}
	return item, nil
}

func (m *Memory) GetMenuItemByName(_ context.Context, name string) (model.MenuItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, item := range m.menu {
		if item.Name == name {
			return item, nil
		}
	}
	return model.MenuItem{}, ErrNotFound
}

func (m *Memory) ListMenuItems(_ context.Context, specialsOnly bool) ([]model.MenuItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := []model.MenuItem{}
	for _, item := range m.menu {
		if specialsOnly && !item.Special {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (m *Memory) SetDailySpecial(_ context.Context, id string) (model.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.menu[id]
	if !ok {
		return model.MenuItem{}, ErrNotFound
	}
	for key, other := range m.menu {
		if other.Special {
			other.Special = false
			m.menu[key] = other
		}
	}
	item.Special = true
	item.UpdatedAt = time.Now().UTC()
	m.menu[id] = item
	return item, nil
}

func (m *Memory) CreateOrder(_ context.Context, order model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
	return nil
}

func (m *Memory) GetOrder(_ context.Context, id string) (model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	if !ok {
		return model.Order{}, ErrNotFound
	}
	return order, nil
}

func (m *Memory) ListOrdersByUser(_ context.Context, userID string) ([]model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	orders := []model.Order{}
	for _, order := range m.orders {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func (m *Memory) ListOrdersByStatus(_ context.Context, status model.OrderStatus) ([]model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	orders := []model.Order{}
	for _, order := range m.orders {
		if status != "" && order.Status != status {
			continue
		}
		orders = append(orders, order)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func (m *Memory) UpdateOrderStatus(_ context.Context, id string, from, to model.OrderStatus) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return model.Order{}, ErrNotFound
	}
	if order.Status != from {
		return model.Order{}, ErrConflict
	}
	order.Status = to
	order.UpdatedAt = time.Now().UTC()
	m.orders[id] = order
	return order, nil
}

func (m *Memory) AppendChatMessage(_ context.Context, msg model.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chat = append(m.chat, msg)
	return nil
}

func (m *Memory) ListChatHistory(_ context.Context, userID string, limit int) ([]model.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := []model.ChatMessage{}
	for _, msg := range m.chat {
		if msg.UserID == userID {
			msgs = append(msgs, msg)
		}
	}
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}
