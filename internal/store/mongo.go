package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kishor006-dev/Smart-Canteen-Assitant/internal/model"
)

type Mongo struct {
	client *mongo.Client
	users  *mongo.Collection
	menu   *mongo.Collection
	orders *mongo.Collection
	chat   *mongo.Collection
}

func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	db := client.Database(database)
	m := &Mongo{
		client: client,
		users:  db.Collection("users"),
		menu:   db.Collection("menu_items"),
		orders: db.Collection("orders"),
		chat:   db.Collection("chat_history"),
	}

	_, err = m.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	_, err = m.menu.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	_, err = m.orders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return m, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) CreateUser(ctx context.Context, user model.User) error {
	_, err := m.users.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrExists
	}
	return err
}

func (m *Mongo) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	var user model.User
	err := m.users.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.User{}, ErrNotFound
	}
	return user, err
}

func (m *Mongo) CountUsers(ctx context.Context) (int64, error) {
	return m.users.CountDocuments(ctx, bson.M{})
}

func (m *Mongo) CreateMenuItem(ctx context.Context, item model.MenuItem) error {
	_, err := m.menu.InsertOne(ctx, item)
	if mongo.IsDuplicateKeyError(err) {
		return ErrExists
	}
	return err
}

func (m *Mongo) UpdateMenuItem(ctx context.Context, id string, update MenuItemUpdate) (model.MenuItem, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Price != nil {
		set["price"] = *update.Price
	}
	if update.Available != nil {
		set["available"] = *update.Available
	}

	var item model.MenuItem
	err := m.menu.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.MenuItem{}, ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return model.MenuItem{}, ErrExists
	}
	return item, err
}

func (m *Mongo) DeleteMenuItem(ctx context.Context, id string) error {
	res, err := m.menu.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) GetMenuItem(ctx context.Context, id string) (model.MenuItem, error) {
	var item model.MenuItem
	err := m.menu.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.MenuItem{}, ErrNotFound
	}
	return item, err
}

func (m *Mongo) GetMenuItemByName(ctx context.Context, name string) (model.MenuItem, error) {
	var item model.MenuItem
	err := m.menu.FindOne(ctx, bson.M{"name": name}).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.MenuItem{}, ErrNotFound
	}
	return item, err
}

func (m *Mongo) ListMenuItems(ctx context.Context, specialsOnly bool) ([]model.MenuItem, error) {
	filter := bson.M{}
	if specialsOnly {
		filter["special"] = true
	}
	cursor, err := m.menu.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	items := []model.MenuItem{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (m *Mongo) SetDailySpecial(ctx context.Context, id string) (model.MenuItem, error) {
	if _, err := m.menu.UpdateMany(ctx, bson.M{"special": true}, bson.M{"$set": bson.M{"special": false}}); err != nil {
		return model.MenuItem{}, err
	}

	var item model.MenuItem
	err := m.menu.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"special": true, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.MenuItem{}, ErrNotFound
	}
	return item, err
}

func (m *Mongo) CreateOrder(ctx context.Context, order model.Order) error {
	_, err := m.orders.InsertOne(ctx, order)
	return err
}

func (m *Mongo) GetOrder(ctx context.Context, id string) (model.Order, error) {
	var order model.Order
	err := m.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Order{}, ErrNotFound
	}
	return order, err
}

func (m *Mongo) ListOrdersByUser(ctx context.Context, userID string) ([]model.Order, error) {
	cursor, err := m.orders.Find(ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	orders := []model.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (m *Mongo) ListOrdersByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	cursor, err := m.orders.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	orders := []model.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (m *Mongo) UpdateOrderStatus(ctx context.Context, id string, from, to model.OrderStatus) (model.Order, error) {
	var order model.Order
	err := m.orders.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, getErr := m.GetOrder(ctx, id); errors.Is(getErr, ErrNotFound) {
			return model.Order{}, ErrNotFound
		}
		return model.Order{}, ErrConflict
	}
	return order, err
}

func (m *Mongo) AppendChatMessage(ctx context.Context, msg model.ChatMessage) error {
	_, err := m.chat.InsertOne(ctx, msg)
	return err
}

func (m *Mongo) ListChatHistory(ctx context.Context, userID string, limit int) ([]model.ChatMessage, error) {
	cursor, err := m.chat.Find(ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, err
	}
	msgs := []model.ChatMessage{}
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	// Oldest first for prompt assembly.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
