package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kishor006-dev/Smart-Canteen-Assitant/internal/model"
	"github.com/kishor006-dev/Smart-Canteen-Assitant/internal/store"
)

type stubLLM struct {
	reply string
	err   error
	calls int
}

func (s *stubLLM) Complete(_ context.Context, _ string, _ []model.ChatMessage, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func testAssistant(t *testing.T, llm Completer) (*Assistant, *store.Memory, model.User) {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	if err := store.Seed(ctx, mem); err != nil {
		t.Fatalf("seed error: %v", err)
	}
	user, err := mem.GetUserByUsername(ctx, "student1")
	if err != nil {
		t.Fatalf("seeded user missing: %v", err)
	}
	return NewAssistant(mem, NewLocalMemory(), llm, 10), mem, user
}

func greet(t *testing.T, a *Assistant, user model.User) {
	t.Helper()
	if _, err := a.Reply(context.Background(), user, "hi"); err != nil {
		t.Fatalf("greeting error: %v", err)
	}
}

func TestAssistantGreetsFirstContact(t *testing.T) {
	a, _, user := testAssistant(t, &stubLLM{})
	result, err := a.Reply(context.Background(), user, "hello")
	if err != nil {
		t.Fatalf("reply error: %v", err)
	}
	if !strings.Contains(result.Reply, "Welcome") {
		t.Fatalf("expected greeting, got %q", result.Reply)
	}
}

func TestAssistantMenuInquiry(t *testing.T) {
	a, _, user := testAssistant(t, &stubLLM{})
	greet(t, a, user)

	result, err := a.Reply(context.Background(), user, "show me the menu")
	if err != nil {
		t.Fatalf("reply error: %v", err)
	}
	if !strings.Contains(result.Reply, "Dosa") || !strings.Contains(result.Reply, "30") {
		t.Fatalf("expected menu listing, got %q", result.Reply)
	}
}

func TestAssistantOrderAndConfirmFlow(t *testing.T) {
	a, mem, user := testAssistant(t, &stubLLM{})
	greet(t, a, user)
	ctx := context.Background()

	// Plain mention asks for confirmation.
	result, err := a.Reply(ctx, user, "dosa sounds nice")
	if err != nil {
		t.Fatalf("reply error: %v", err)
	}
	if !strings.Contains(result.Reply, "Should I place the order?") {
		t.Fatalf("expected confirmation prompt, got %q", result.Reply)
	}
	if len(result.Placed) != 0 {
		t.Fatalf("mention must not place an order")
	}

	result, err = a.Reply(ctx, user, "yes")
	if err != nil {
		t.Fatalf("confirm error: %v", err)
	}
	if len(result.Placed) != 1 || result.Placed[0].Lines[0].Name != "dosa" {
		t.Fatalf("expected dosa order, got %+v", result.Placed)
	}

	orders, _ := mem.ListOrdersByUser(ctx, user.ID)
	if len(orders) != 1 || orders[0].Status != model.StatusPlaced {
		t.Fatalf("expected one placed order, got %+v", orders)
	}
}

func TestAssistantDeclineConfirmation(t *testing.T) {
	a, mem, user := testAssistant(t, &stubLLM{})
	greet(t, a, user)
	ctx := context.Background()

	if _, err := a.Reply(ctx, user, "noodles"); err != nil {
		t.Fatalf("mention error: %v", err)
	}
	result, err := a.Reply(ctx, user, "no")
	if err != nil {
		t.Fatalf("decline error: %v", err)
	}
	if !strings.Contains(result.Reply, "cancelled") {
		t.Fatalf("expected decline ack, got %q", result.Reply)
	}
	orders, _ := mem.ListOrdersByUser(ctx, user.ID)
	if len(orders) != 0 {
		t.Fatalf("decline must not place orders, got %+v", orders)
	}
}

func TestAssistantMultiItemOrder(t *testing.T) {
	a, mem, user := testAssistant(t, &stubLLM{})
	greet(t, a, user)
	ctx := context.Background()

	result, err := a.Reply(ctx, user, "i want dosa and noodles")
	if err != nil {
		t.Fatalf("order error: %v", err)
	}
	if len(result.Placed) != 2 {
		t.Fatalf("expected two orders, got %+v", result.Placed)
	}
	orders, _ := mem.ListOrdersByUser(ctx, user.ID)
	if len(orders) != 2 {
		t.Fatalf("expected two persisted orders, got %d", len(orders))
	}
}

func TestAssistantMultiItemOrderRejectedWhole(t *testing.T) {
	a, mem, user := testAssistant(t, &stubLLM{})
	greet(t, a, user)
	ctx := context.Background()

	item, err := mem.GetMenuItemByName(ctx, "idly")
	if err != nil {
		t.Fatalf("seeded item missing: %v", err)
	}
	available := false
	if _, err := mem.UpdateMenuItem(ctx, item.ID, store.MenuItemUpdate{Available: &available}); err != nil {
		t.Fatalf("update error: %v", err)
	}

	// The first item is orderable, the second is not; nothing may be placed.
	result, err := a.Reply(ctx, user, "i want dosa and idly")
	if err != nil {
		t.Fatalf("order error: %v", err)
	}
	if !strings.Contains(result.Reply, "unavailable") {
		t.Fatalf("expected unavailable reply, got %q", result.Reply)
	}
	if len(result.Placed) != 0 {
		t.Fatalf("rejected turn must not report placed orders, got %+v", result.Placed)
	}
	orders, _ := mem.ListOrdersByUser(ctx, user.ID)
	if len(orders) != 0 {
		t.Fatalf("rejected turn must not persist orders, got %d", len(orders))
	}
}

func TestAssistantUnknownItem(t *testing.T) {
	a, mem, user := testAssistant(t, &stubLLM{})
	greet(t, a, user)

	result, err := a.Reply(context.Background(), user, "i want pizza")
	if err != nil {
		t.Fatalf("reply error: %v", err)
	}
	if !strings.Contains(result.Reply, "not on the menu") {
		t.Fatalf("expected unknown item reply, got %q", result.Reply)
	}
	orders, _ := mem.ListOrdersByUser(context.Background(), user.ID)
	if len(orders) != 0 {
		t.Fatalf("unknown item must not create orders")
	}
}

func TestAssistantCancelLastOrder(t *testing.T) {
	a, mem, user := testAssistant(t, &stubLLM{})
	greet(t, a, user)
	ctx := context.Background()

	if _, err := a.Reply(ctx, user, "order dosa"); err != nil {
		t.Fatalf("order error: %v", err)
	}
	result, err := a.Reply(ctx, user, "cancel my order")
	if err != nil {
		t.Fatalf("cancel error: %v", err)
	}
	if result.Cancelled == nil || result.Cancelled.Status != model.StatusCancelled {
		t.Fatalf("expected cancelled order, got %+v", result.Cancelled)
	}
	orders, _ := mem.ListOrdersByUser(ctx, user.ID)
	if orders[0].Status != model.StatusCancelled {
		t.Fatalf("expected order cancelled in store, got %s", orders[0].Status)
	}
}

func TestAssistantRecommendSpecial(t *testing.T) {
	llm := &stubLLM{reply: "should not be used"}
	a, mem, user := testAssistant(t, llm)
	greet(t, a, user)
	ctx := context.Background()

	item, err := mem.GetMenuItemByName(ctx, "paneer masala")
	if err != nil {
		t.Fatalf("seeded item missing: %v", err)
	}
	if _, err := mem.SetDailySpecial(ctx, item.ID); err != nil {
		t.Fatalf("set special error: %v", err)
	}

	result, err := a.Reply(ctx, user, "recommend something")
	if err != nil {
		t.Fatalf("recommend error: %v", err)
	}
	if !strings.Contains(result.Reply, "Paneer masala") {
		t.Fatalf("expected special recommendation, got %q", result.Reply)
	}
	if llm.calls != 0 {
		t.Fatalf("special recommendation should not call the llm")
	}
}

func TestAssistantLLMFallback(t *testing.T) {
	llm := &stubLLM{reply: "try the fried rice"}
	a, mem, user := testAssistant(t, llm)
	greet(t, a, user)

	result, err := a.Reply(context.Background(), user, "what do you think about breakfast?")
	if err != nil {
		t.Fatalf("fallback error: %v", err)
	}
	if result.Reply != "try the fried rice" {
		t.Fatalf("expected llm reply, got %q", result.Reply)
	}
	if llm.calls != 1 {
		t.Fatalf("expected one llm call, got %d", llm.calls)
	}

	history, _ := mem.ListChatHistory(context.Background(), user.ID, 10)
	if len(history) < 2 {
		t.Fatalf("expected chat history to be recorded")
	}
}

func TestAssistantLLMFailureLeavesStateAlone(t *testing.T) {
	a, mem, user := testAssistant(t, &stubLLM{err: errors.New("upstream down")})
	greet(t, a, user)
	ctx := context.Background()

	before, _ := mem.ListOrdersByUser(ctx, user.ID)
	_, err := a.Reply(ctx, user, "tell me a joke")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	after, _ := mem.ListOrdersByUser(ctx, user.ID)
	if len(before) != len(after) {
		t.Fatalf("llm failure must not touch orders")
	}
}

func TestAssistantUnavailableItem(t *testing.T) {
	a, mem, user := testAssistant(t, &stubLLM{})
	greet(t, a, user)
	ctx := context.Background()

	item, err := mem.GetMenuItemByName(ctx, "idly")
	if err != nil {
		t.Fatalf("seeded item missing: %v", err)
	}
	available := false
	if _, err := mem.UpdateMenuItem(ctx, item.ID, store.MenuItemUpdate{Available: &available}); err != nil {
		t.Fatalf("update error: %v", err)
	}

	result, err := a.Reply(ctx, user, "order idly")
	if err != nil {
		t.Fatalf("reply error: %v", err)
	}
	if !strings.Contains(result.Reply, "unavailable") {
		t.Fatalf("expected unavailable reply, got %q", result.Reply)
	}
	orders, _ := mem.ListOrdersByUser(ctx, user.ID)
	if len(orders) != 0 {
		t.Fatalf("unavailable item must not create orders")
	}
}

func TestLocalMemoryRoundTrip(t *testing.T) {
	mem := NewLocalMemory()
	ctx := context.Background()

	m, err := mem.Get(ctx, "u-1")
	if err != nil || m.Greeted {
		t.Fatalf("expected zero memory, got %+v %v", m, err)
	}
	m.Greeted = true
	m.LastItem = "dosa"
	if err := mem.Put(ctx, "u-1", m); err != nil {
		t.Fatalf("put error: %v", err)
	}
	got, err := mem.Get(ctx, "u-1")
	if err != nil || !got.Greeted || got.LastItem != "dosa" {
		t.Fatalf("unexpected memory %+v %v", got, err)
	}
}
