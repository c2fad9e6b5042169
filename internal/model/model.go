package model

import "time"

const (
	RoleStudent = "student"
	RoleStaff   = "staff"
)

func ValidRole(role string) bool {
	return role == RoleStudent || role == RoleStaff
}

type User struct {
	ID           string    `bson:"_id" json:"id"`
	Username     string    `bson:"username" json:"username"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	Role         string    `bson:"role" json:"role"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
}

type MenuItem struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Price     int       `bson:"price" json:"price"`
	Available bool      `bson:"available" json:"available"`
	Special   bool      `bson:"special" json:"special"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// OrderLine snapshots the item name and price at placement time so that
// later menu edits do not rewrite order history.
type OrderLine struct {
	ItemID   string `bson:"item_id" json:"itemId"`
	Name     string `bson:"name" json:"name"`
	Price    int    `bson:"price" json:"price"`
	Quantity int    `bson:"quantity" json:"quantity"`
}

type Order struct {
	ID        string      `bson:"_id" json:"id"`
	UserID    string      `bson:"user_id" json:"userId"`
	Lines     []OrderLine `bson:"lines" json:"lines"`
	Status    OrderStatus `bson:"status" json:"status"`
	CreatedAt time.Time   `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time   `bson:"updated_at" json:"updatedAt"`
}

func (o Order) Total() int {
	total := 0
	for _, line := range o.Lines {
		total += line.Price * line.Quantity
	}
	return total
}

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

type ChatMessage struct {
	UserID    string    `bson:"user_id" json:"userId"`
	Role      string    `bson:"role" json:"role"`
	Content   string    `bson:"content" json:"content"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}
