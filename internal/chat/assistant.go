// Package chat implements the canteen assistant: a small intent machine
// over the menu and order store, with the Groq model as fallback for
// open-ended turns.
package chat

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kishor006-dev/Smart-Canteen-Assitant/internal/llm"
	"github.com/kishor006-dev/Smart-Canteen-Assitant/internal/model"
	"github.com/kishor006-dev/Smart-Canteen-Assitant/internal/store"
)

// ErrUpstream marks a completion-service failure so callers can report it
// separately from their own faults.
var ErrUpstream = errors.New("assistant upstream failure")

type Completer interface {
	Complete(ctx context.Context, system string, history []model.ChatMessage, message string) (string, error)
}

type Assistant struct {
	store        store.Store
	memory       MemoryStore
	llm          Completer
	historyTurns int
}

func NewAssistant(s store.Store, memory MemoryStore, llm Completer, historyTurns int) *Assistant {
	if historyTurns <= 0 {
		historyTurns = 10
	}
	return &Assistant{store: s, memory: memory, llm: llm, historyTurns: historyTurns}
}

// Result carries the reply plus any order side effects of the turn so the
// caller can fan out notifications.
type Result struct {
	Reply     string
	Placed    []model.Order
	Cancelled *model.Order
}

var (
	cancelRe    = regexp.MustCompile(`\b(cancel|remove|forget|wrong item)\b`)
	orderVerbRe = regexp.MustCompile(`\b(order|want|add|get|have|i'd like)\b\s*(.*)`)
	splitRe     = regexp.MustCompile(`\band\b|,`)
)

var recommendWords = []string{"recommend", "special", "suggest", "best", "tasty", "combo"}

func isYes(msg string) bool {
	switch msg {
	case "yes", "yep", "ok", "okay", "sure", "confirm", "ha", "haa":
		return true
	}
	return false
}

func isNo(msg string) bool {
	switch msg {
	case "no", "nope", "not now", "cancel":
		return true
	}
	return false
}

// Reply handles one conversational turn. LLM failures propagate to the
// caller untouched; order and menu state is never affected by them.
func (a *Assistant) Reply(ctx context.Context, user model.User, message string) (Result, error) {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" {
		return Result{Reply: "Say something and I'll help you order."}, nil
	}

	memory, err := a.memory.Get(ctx, user.ID)
	if err != nil {
		return Result{}, err
	}
	menu, err := a.store.ListMenuItems(ctx, false)
	if err != nil {
		return Result{}, err
	}

	result, memory, err := a.reply(ctx, user, msg, message, memory, menu)
	if err != nil {
		return Result{}, err
	}
	if err := a.memory.Put(ctx, user.ID, memory); err != nil {
		return Result{}, err
	}
	if err := a.recordTurn(ctx, user.ID, message, result.Reply); err != nil {
		return Result{}, err
	}
	return result, nil
}

func (a *Assistant) reply(ctx context.Context, user model.User, msg, original string, memory Memory, menu []model.MenuItem) (Result, Memory, error) {
	if !memory.Greeted {
		memory.Greeted = true
		return Result{Reply: "Welcome to our canteen! What can I get for you today? " +
			"Would you like a recommendation, or a look at our menu?"}, memory, nil
	}

	// Cancel the remembered order before anything else.
	if cancelRe.MatchString(msg) && memory.LastItem != "" && memory.LastAction == "order" {
		result, err := a.cancelLastOrder(ctx, user, memory.LastItem)
		if err != nil {
			return Result{}, memory, err
		}
		memory.LastItem = ""
		memory.LastAction = ""
		memory.AwaitingOK = false
		return result, memory, nil
	}

	if memory.AwaitingOK {
		memory.AwaitingOK = false
		if isYes(msg) {
			result, err := a.placeOrders(ctx, user, []string{memory.LastItem}, menu)
			if err != nil {
				return Result{}, memory, err
			}
			memory.LastAction = "order"
			return result, memory, nil
		}
		if isNo(msg) {
			return Result{Reply: "Okay, cancelled! Let me know if you need anything else."}, memory, nil
		}
	}

	if strings.Contains(msg, "menu") {
		return Result{Reply: renderMenu(menu)}, memory, nil
	}

	for _, word := range recommendWords {
		if strings.Contains(msg, word) {
			result, err := a.recommend(ctx, user, original, menu)
			if err != nil {
				return Result{}, memory, err
			}
			return result, memory, nil
		}
	}

	mentioned := mentionedItems(msg, menu)
	verb := orderVerbRe.FindStringSubmatch(msg)

	switch {
	case len(mentioned) > 0 && verb != nil:
		result, err := a.placeOrders(ctx, user, mentioned, menu)
		if err != nil {
			return Result{}, memory, err
		}
		memory.LastItem = mentioned[0]
		memory.LastAction = "order"
		return result, memory, nil

	case len(mentioned) > 0:
		memory.LastItem = mentioned[0]
		memory.LastAction = "recommend"
		memory.AwaitingOK = true
		return Result{Reply: fmt.Sprintf("You selected %s. Should I place the order?", title(mentioned[0]))}, memory, nil

	case verb != nil && strings.TrimSpace(verb[2]) != "":
		requested := strings.TrimSpace(verb[2])
		return Result{Reply: fmt.Sprintf("Sorry, %s is not on the menu.", title(requested))}, memory, nil
	}

	reply, err := a.fallback(ctx, user, original, menu)
	if err != nil {
		return Result{}, memory, err
	}
	return Result{Reply: reply}, memory, nil
}

func (a *Assistant) cancelLastOrder(ctx context.Context, user model.User, itemName string) (Result, error) {
	orders, err := a.store.ListOrdersByUser(ctx, user.ID)
	if err != nil {
		return Result{}, err
	}
	for _, order := range orders {
		if order.Status != model.StatusPlaced {
			continue
		}
		if !orderContains(order, itemName) {
			continue
		}
		cancelled, err := a.store.UpdateOrderStatus(ctx, order.ID, model.StatusPlaced, model.StatusCancelled)
		if errors.Is(err, store.ErrConflict) {
			continue // raced with the kitchen, try an older one
		}
		if err != nil {
			return Result{}, err
		}
		return Result{
			Reply:     fmt.Sprintf("Your order for %s has been cancelled.", title(itemName)),
			Cancelled: &cancelled,
		}, nil
	}
	return Result{Reply: fmt.Sprintf("No pending order found for %s to cancel.", title(itemName))}, nil
}

func (a *Assistant) placeOrders(ctx context.Context, user model.User, names []string, menu []model.MenuItem) (Result, error) {
	// Validate the whole request before inserting anything, so a bad
	// item late in the list cannot leave earlier orders behind.
	items := make([]model.MenuItem, 0, len(names))
	for _, name := range names {
		item, ok := findItem(menu, name)
		if !ok {
			return Result{Reply: fmt.Sprintf("Sorry, %s is not on the menu.", title(name))}, nil
		}
		if !item.Available {
			return Result{Reply: fmt.Sprintf("Sorry, %s is currently unavailable.", title(name))}, nil
		}
		items = append(items, item)
	}

	now := time.Now().UTC()
	placed := []model.Order{}
	okNames := []string{}
	for _, item := range items {
		order := model.Order{
			ID:     uuid.NewString(),
			UserID: user.ID,
			Lines: []model.OrderLine{{
				ItemID:   item.ID,
				Name:     item.Name,
				Price:    item.Price,
				Quantity: 1,
			}},
			Status:    model.StatusPlaced,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := a.store.CreateOrder(ctx, order); err != nil {
			return Result{}, err
		}
		placed = append(placed, order)
		okNames = append(okNames, title(item.Name))
	}
	return Result{
		Reply:  fmt.Sprintf("Order placed successfully for: %s!", strings.Join(okNames, ", ")),
		Placed: placed,
	}, nil
}

func (a *Assistant) recommend(ctx context.Context, user model.User, original string, menu []model.MenuItem) (Result, error) {
	for _, item := range menu {
		if item.Special && item.Available {
			reply := fmt.Sprintf("Today's special is %s at %d. Highly recommended!", title(item.Name), item.Price)
			if combo, ok := comboPartner(menu, item); ok {
				reply += fmt.Sprintf(" Combo suggestion: %s + %s for a perfect meal!", title(item.Name), title(combo.Name))
			}
			return Result{Reply: reply}, nil
		}
	}
	reply, err := a.fallback(ctx, user, original, menu)
	if err != nil {
		return Result{}, err
	}
	return Result{Reply: reply}, nil
}

func (a *Assistant) fallback(ctx context.Context, user model.User, original string, menu []model.MenuItem) (string, error) {
	orders, err := a.store.ListOrdersByUser(ctx, user.ID)
	if err != nil {
		return "", err
	}
	past := []string{}
	for _, order := range orders {
		for _, line := range order.Lines {
			past = append(past, line.Name)
		}
	}
	pastText := "None"
	if len(past) > 0 {
		pastText = strings.Join(past, ", ")
	}

	system := fmt.Sprintf(
		"You are a polite and friendly canteen assistant.\nCurrent menu:\n%s\nStudent previously ordered: %s\nSuggest combos or menu items, or chat casually. Keep replies short.",
		renderMenu(menu), pastText,
	)

	history, err := a.store.ListChatHistory(ctx, user.ID, a.historyTurns)
	if err != nil {
		return "", err
	}
	reply, err := a.llm.Complete(ctx, system, history, original)
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return reply, nil
}

func (a *Assistant) recordTurn(ctx context.Context, userID, userMsg, reply string) error {
	now := time.Now().UTC()
	err := a.store.AppendChatMessage(ctx, model.ChatMessage{
		UserID: userID, Role: model.ChatRoleUser, Content: userMsg, CreatedAt: now,
	})
	if err != nil {
		return err
	}
	return a.store.AppendChatMessage(ctx, model.ChatMessage{
		UserID: userID, Role: model.ChatRoleAssistant, Content: reply, CreatedAt: now,
	})
}

func mentionedItems(msg string, menu []model.MenuItem) []string {
	found := []string{}
	seen := map[string]bool{}
	for _, part := range splitRe.Split(msg, -1) {
		part = strings.TrimSpace(part)
		for _, item := range menu {
			if strings.Contains(part, item.Name) && !seen[item.Name] {
				seen[item.Name] = true
				found = append(found, item.Name)
			}
		}
	}
	return found
}

func findItem(menu []model.MenuItem, name string) (model.MenuItem, bool) {
	for _, item := range menu {
		if item.Name == name {
			return item, true
		}
	}
	return model.MenuItem{}, false
}

func comboPartner(menu []model.MenuItem, special model.MenuItem) (model.MenuItem, bool) {
	for _, item := range menu {
		if item.ID != special.ID && item.Available {
			return item, true
		}
	}
	return model.MenuItem{}, false
}

func orderContains(order model.Order, itemName string) bool {
	for _, line := range order.Lines {
		if line.Name == itemName {
			return true
		}
	}
	return false
}

func renderMenu(menu []model.MenuItem) string {
	var b strings.Builder
	b.WriteString("Here's our current menu:\n")
	n := 0
	for _, item := range menu {
		if !item.Available {
			continue
		}
		n++
		fmt.Fprintf(&b, "%d. %s - %d\n", n, title(item.Name), item.Price)
	}
	if n == 0 {
		return "The menu is empty right now, please check back later."
	}
	b.WriteString("\nWould you like to order something?")
	return b.String()
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
