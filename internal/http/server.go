package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kishor006-dev/Smart-Canteen-Assitant/internal/auth"
	"github.com/kishor006-dev/Smart-Canteen-Assitant/internal/chat"
	"github.com/kishor006-dev/Smart-Canteen-Assitant/internal/config"
	"github.com/kishor006-dev/Smart-Canteen-Assitant/internal/crypto"
	"github.com/kishor006-dev/Smart-Canteen-Assitant/internal/llm"
	"github.com/kishor006-dev/Smart-Canteen-Assitant/internal/model"
	"github.com/kishor006-dev/Smart-Canteen-Assitant/internal/store"
	"github.com/kishor006-dev/Smart-Canteen-Assitant/internal/ws"
)

type Server struct {
	cfg       config.Config
	store     store.Store
	assistant *chat.Assistant
	hub       *ws.Hub
}

func NewServer(cfg config.Config, s store.Store, assistant *chat.Assistant, hub *ws.Hub) *Server {
	return &Server{cfg: cfg, store: s, assistant: assistant, hub: hub}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/signup", s.handleSignup)
	r.With(s.authMiddleware).Get("/auth/me", s.handleGetMe)

	r.With(s.authMiddleware).Get("/menu", s.handleListMenu)
	r.With(s.authMiddleware).Get("/menu/special", s.handleGetSpecial)
	r.With(s.authMiddleware, s.requireStaff).Post("/menu/items", s.handleCreateMenuItem)
	r.With(s.authMiddleware, s.requireStaff).Patch("/menu/items/{itemID}", s.handleUpdateMenuItem)
	r.With(s.authMiddleware, s.requireStaff).Delete("/menu/items/{itemID}", s.handleDeleteMenuItem)
	r.With(s.authMiddleware, s.requireStaff).Post("/menu/special", s.handleSetSpecial)

	r.With(s.authMiddleware, s.requireStudent).Post("/orders", s.handlePlaceOrder)
	r.With(s.authMiddleware).Get("/orders", s.handleListOrders)
	r.With(s.authMiddleware).Get("/orders/{orderID}", s.handleGetOrder)
	r.With(s.authMiddleware, s.requireStaff).Post("/orders/{orderID}/status", s.handleOrderStatus)
	r.With(s.authMiddleware).Post("/orders/{orderID}/cancel", s.handleCancelOrder)

	r.With(s.authMiddleware, s.requireStudent).Post("/chat", s.handleChat)
	r.Get("/ws", s.handleWS)

	return r
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  userSummary `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Username = strings.TrimSpace(strings.ToLower(req.Username))
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if err := crypto.CheckPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	token, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.AccessTokenTTL, auth.Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Token: token,
		User:  userSummary{ID: user.ID, Username: user.Username, Role: user.Role},
	})
}

type signupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Username = strings.TrimSpace(strings.ToLower(req.Username))
	req.Role = strings.TrimSpace(strings.ToLower(req.Role))
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	if !model.ValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "invalid_role")
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "password_hash_failed")
		return
	}

	user := model.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: hash,
		Role:         req.Role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrExists) {
			writeError(w, http.StatusBadRequest, "username_taken")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusCreated, userSummary{ID: user.ID, Username: user.Username, Role: user.Role})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	writeJSON(w, http.StatusOK, userSummary{ID: claims.UserID, Username: claims.Username, Role: claims.Role})
}

func (s *Server) handleListMenu(w http.ResponseWriter, r *http.Request) {
	specialsOnly := r.URL.Query().Get("special") == "true"
	items, err := s.store.ListMenuItems(r.Context(), specialsOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type specialResponse struct {
	Item        model.MenuItem `json:"item"`
	Recommended bool           `json:"recommended"`
}

// The daily special falls back to the first available item so the student
// page always has something to promote.
func (s *Server) handleGetSpecial(w http.ResponseWriter, r *http.Request) {
	specials, err := s.store.ListMenuItems(r.Context(), true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if len(specials) > 0 {
		writeJSON(w, http.StatusOK, specialResponse{Item: specials[0]})
		return
	}

	items, err := s.store.ListMenuItems(r.Context(), false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	for _, item := range items {
		if item.Available {
			writeJSON(w, http.StatusOK, specialResponse{Item: item, Recommended: true})
			return
		}
	}
	writeError(w, http.StatusNotFound, "menu_empty")
}

type createMenuItemRequest struct {
	Name      string `json:"name"`
	Price     int    `json:"price"`
	Available *bool  `json:"available,omitempty"`
}

func (s *Server) handleCreateMenuItem(w http.ResponseWriter, r *http.Request) {
	var req createMenuItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Name = strings.TrimSpace(strings.ToLower(req.Name))
	if req.Name == "" || req.Price <= 0 {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	now := time.Now().UTC()
	item := model.MenuItem{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Price:     req.Price,
		Available: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Available != nil {
		item.Available = *req.Available
	}

	if err := s.store.CreateMenuItem(r.Context(), item); err != nil {
		if errors.Is(err, store.ErrExists) {
			writeError(w, http.StatusBadRequest, "item_exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

type updateMenuItemRequest struct {
	Name      *string `json:"name,omitempty"`
	Price     *int    `json:"price,omitempty"`
	Available *bool   `json:"available,omitempty"`
}

func (s *Server) handleUpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	if itemID == "" {
		writeError(w, http.StatusBadRequest, "missing_item_id")
		return
	}

	var req updateMenuItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	update := store.MenuItemUpdate{Available: req.Available}
	if req.Name != nil {
		name := strings.TrimSpace(strings.ToLower(*req.Name))
		if name == "" {
			writeError(w, http.StatusBadRequest, "invalid_name")
			return
		}
		update.Name = &name
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_price")
			return
		}
		update.Price = req.Price
	}

	item, err := s.store.UpdateMenuItem(r.Context(), itemID, update)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "item_not_found")
			return
		}
		if errors.Is(err, store.ErrExists) {
			writeError(w, http.StatusBadRequest, "item_exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	if itemID == "" {
		writeError(w, http.StatusBadRequest, "missing_item_id")
		return
	}
	if err := s.store.DeleteMenuItem(r.Context(), itemID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "item_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type setSpecialRequest struct {
	ItemID string `json:"itemId"`
}

func (s *Server) handleSetSpecial(w http.ResponseWriter, r *http.Request) {
	var req setSpecialRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.ItemID == "" {
		writeError(w, http.StatusBadRequest, "missing_item_id")
		return
	}

	item, err := s.store.SetDailySpecial(r.Context(), req.ItemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "item_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type orderLineRequest struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

type placeOrderRequest struct {
	Lines []orderLineRequest `json:"lines"`
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if len(req.Lines) == 0 {
		writeError(w, http.StatusBadRequest, "empty_order")
		return
	}

	lines := make([]model.OrderLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_quantity")
			return
		}
		item, err := s.store.GetMenuItem(r.Context(), line.ItemID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusBadRequest, "unknown_item")
				return
			}
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		if !item.Available {
			writeError(w, http.StatusBadRequest, "item_unavailable")
			return
		}
		lines = append(lines, model.OrderLine{
			ItemID:   item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: line.Quantity,
		})
	}

	now := time.Now().UTC()
	order := model.Order{
		ID:        uuid.NewString(),
		UserID:    claims.UserID,
		Lines:     lines,
		Status:    model.StatusPlaced,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateOrder(r.Context(), order); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	s.hub.PushStaff(ws.Event{Type: ws.EventOrderUpdate, Message: "new order placed", Order: &order})
	writeJSON(w, http.StatusCreated, order)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	if claims.Role == model.RoleStaff {
		status := model.OrderStatus(r.URL.Query().Get("status"))
		if status != "" && !model.ValidStatus(status) {
			writeError(w, http.StatusBadRequest, "invalid_status")
			return
		}
		orders, err := s.store.ListOrdersByStatus(r.Context(), status)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		writeJSON(w, http.StatusOK, orders)
		return
	}

	orders, err := s.store.ListOrdersByUser(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "missing_order_id")
		return
	}

	order, err := s.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if claims.Role != model.RoleStaff && order.UserID != claims.UserID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type orderStatusRequest struct {
	Status model.OrderStatus `json:"status"`
}

func (s *Server) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "missing_order_id")
		return
	}

	var req orderStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if !model.ValidStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "invalid_status")
		return
	}

	order, err := s.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !order.Status.CanTransition(req.Status) {
		writeError(w, http.StatusConflict, "invalid_transition")
		return
	}

	updated, err := s.store.UpdateOrderStatus(r.Context(), orderID, order.Status, req.Status)
	if err != nil {
		if errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusConflict, "invalid_transition")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	s.notifyOrderUpdate(updated)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "missing_order_id")
		return
	}

	order, err := s.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	staff := claims.Role == model.RoleStaff
	if !staff && order.UserID != claims.UserID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	if !order.Status.Cancellable(staff) {
		writeError(w, http.StatusConflict, "invalid_transition")
		return
	}

	updated, err := s.store.UpdateOrderStatus(r.Context(), orderID, order.Status, model.StatusCancelled)
	if err != nil {
		if errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusConflict, "invalid_transition")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	s.notifyOrderUpdate(updated)
	writeJSON(w, http.StatusOK, updated)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "missing_message")
		return
	}

	user := model.User{ID: claims.UserID, Username: claims.Username, Role: claims.Role}
	result, err := s.assistant.Reply(r.Context(), user, req.Message)
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "upstream_not_configured")
			return
		}
		if errors.Is(err, chat.ErrUpstream) {
			writeError(w, http.StatusBadGateway, "upstream_error")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	for i := range result.Placed {
		s.hub.PushStaff(ws.Event{Type: ws.EventOrderUpdate, Message: "new order placed", Order: &result.Placed[i]})
	}
	if result.Cancelled != nil {
		s.notifyOrderUpdate(*result.Cancelled)
	}
	s.hub.PushUser(claims.UserID, ws.Event{Type: ws.EventChatReply, Message: result.Reply})

	writeJSON(w, http.StatusOK, chatResponse{Reply: result.Reply})
}

// handleWS authenticates via a token query parameter because browsers
// cannot set headers on WebSocket upgrades.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = bearerToken(r.Header.Get("Authorization"))
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	claims, err := auth.ParseToken(s.cfg.JWTSecret, token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_token")
		return
	}
	s.hub.Serve(w, r, claims.UserID, claims.Role == model.RoleStaff)
}

func (s *Server) notifyOrderUpdate(order model.Order) {
	s.hub.PushUser(order.UserID, ws.Event{
		Type:    ws.EventOrderUpdate,
		Message: ownerStatusMessage(order),
		Order:   &order,
	})
	s.hub.PushStaff(ws.Event{
		Type:    ws.EventOrderUpdate,
		Message: fmt.Sprintf("Order for %s is now %s.", orderItems(order), order.Status),
		Order:   &order,
	})
}

func orderItems(order model.Order) string {
	names := make([]string, 0, len(order.Lines))
	for _, line := range order.Lines {
		names = append(names, line.Name)
	}
	return strings.Join(names, ", ")
}

func ownerStatusMessage(order model.Order) string {
	items := orderItems(order)
	switch order.Status {
	case model.StatusInPreparation:
		return fmt.Sprintf("Your order for %s is being prepared.", items)
	case model.StatusReady:
		return fmt.Sprintf("Your order for %s is ready!", items)
	case model.StatusCompleted:
		return fmt.Sprintf("Your order for %s is completed.", items)
	case model.StatusCancelled:
		return fmt.Sprintf("Your order for %s was cancelled.", items)
	default:
		return fmt.Sprintf("Your order for %s was placed.", items)
	}
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		claims, err := auth.ParseToken(s.cfg.JWTSecret, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		if claims == nil || claims.Role != model.RoleStaff {
			writeError(w, http.StatusForbidden, "staff_only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireStudent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		if claims == nil || claims.Role != model.RoleStudent {
			writeError(w, http.StatusForbidden, "student_only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type claimsKey struct{}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
