package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"bookstore/internal/config"
	"bookstore/internal/domain"
	"bookstore/internal/integrations/telegram"
	"bookstore/internal/integrations/webhook"
	"bookstore/internal/metrics"
	"bookstore/internal/notice"
	"bookstore/internal/service/cart"
	"bookstore/internal/service/catalog"
	"bookstore/internal/service/stock"
	storepkg "bookstore/internal/store"
)

type contextKey string

const contextKeyUserID contextKey = "user_id"

type Server struct {
	cfg     config.Config
	store   storepkg.Store
	carts   *cart.Manager
	catalog *catalog.Service
	advisor *stock.Advisor
	metrics *metrics.Metrics
	events  *webhook.Client
	alerts  *telegram.Notifier
	log     logrus.FieldLogger
}

func NewServer(
	cfg config.Config,
	store storepkg.Store,
	carts *cart.Manager,
	events *webhook.Client,
	alerts *telegram.Notifier,
	m *metrics.Metrics,
	log logrus.FieldLogger,
) *Server {
	return &Server{
		cfg:     cfg,
		store:   store,
		carts:   carts,
		catalog: catalog.NewService(store),
		advisor: stock.NewAdvisor(),
		metrics: m,
		events:  events,
		alerts:  alerts,
		log:     log,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.logRequests, middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/login", s.handleLogin)

	r.Get("/catalog/books", s.handleListBooks)
	r.Get("/catalog/books/{bookID}", s.handleGetBook)

	r.Group(func(protected chi.Router) {
		protected.Use(s.requireUser)
		protected.Post("/auth/logout", s.handleLogout)
		protected.Get("/cart", s.handleGetCart)
		protected.Get("/cart/summary", s.handleCartSummary)
		protected.Post("/cart/items", s.handleAddItem)
		protected.Put("/cart/items/{bookID}", s.handleUpdateItem)
		protected.Delete("/cart/items/{bookID}", s.handleRemoveItem)
		protected.Delete("/cart", s.handleClearCart)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}
	user, err := s.store.CreateUser(r.Context(), req.Email, req.FullName, string(hash))
	if err != nil {
		if errors.Is(err, storepkg.ErrDuplicate) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		s.log.WithError(err).Error("create user")
		writeError(w, http.StatusServiceUnavailable, "signup temporarily unavailable")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":        user.ID,
		"email":     user.Email,
		"full_name": user.FullName,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.store.UserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storepkg.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.log.WithError(err).Error("look up user")
		writeError(w, http.StatusServiceUnavailable, "login temporarily unavailable")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, expiresAt, err := s.signToken(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session token")
		return
	}

	// The cart follows the identity: load it now so the first page
	// render sees the user's items. A failed load is logged and the
	// cart stays empty until the next operation retries.
	if err := s.carts.Attach(r.Context(), user.ID); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("cart load on login")
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
		"type":       "Bearer",
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	s.carts.Detach(userID)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	f := catalog.Filter{
		Query:       r.URL.Query().Get("q"),
		Language:    r.URL.Query().Get("language"),
		Bestsellers: parseBool(r.URL.Query().Get("bestsellers")),
		New:         parseBool(r.URL.Query().Get("new")),
	}
	books, err := s.catalog.Books(r.Context(), f)
	if err != nil {
		s.log.WithError(err).Error("list books")
		writeError(w, http.StatusServiceUnavailable, "catalog temporarily unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"books": books})
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")
	book, err := s.catalog.Book(r.Context(), bookID)
	if err != nil {
		if errors.Is(err, storepkg.ErrNotFound) {
			writeError(w, http.StatusNotFound, "book not found")
			return
		}
		s.log.WithError(err).Error("get book")
		writeError(w, http.StatusServiceUnavailable, "catalog temporarily unavailable")
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	s.carts.Hydrate(r.Context(), userID)
	items := s.carts.Items(userID)
	if items == nil {
		items = []domain.CartItem{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":       items,
		"loading":     s.carts.Loading(userID),
		"total_items": s.carts.TotalItems(userID),
		"total_price": s.carts.TotalPrice(userID),
	})
}

func (s *Server) handleCartSummary(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	s.carts.Hydrate(r.Context(), userID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_items": s.carts.TotalItems(userID),
		"total_price": s.carts.TotalPrice(userID),
	})
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	var req struct {
		BookID   string `json:"book_id"`
		Quantity int    `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.BookID == "" {
		writeError(w, http.StatusBadRequest, "book_id is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	outcome := s.carts.AddToCart(r.Context(), userID, req.BookID, req.Quantity)
	s.metrics.ObserveCartOp("add", outcome.OK())
	s.finishMutation(w, r, domain.EventItemAdded, outcome)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	bookID := chi.URLParam(r, "bookID")
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome := s.carts.UpdateQuantity(r.Context(), userID, bookID, req.Quantity)
	s.metrics.ObserveCartOp("update", outcome.OK())
	s.finishMutation(w, r, domain.EventItemUpdated, outcome)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	bookID := chi.URLParam(r, "bookID")

	outcome := s.carts.RemoveFromCart(r.Context(), userID, bookID)
	s.metrics.ObserveCartOp("remove", outcome.OK())
	s.finishMutation(w, r, domain.EventItemRemoved, outcome)
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	outcome := s.carts.ClearCart(r.Context(), userID)
	s.metrics.ObserveCartOp("clear", outcome.OK())
	s.finishMutation(w, r, domain.EventCartCleared, outcome)
}

// finishMutation turns a cart outcome into the HTTP response: status
// code, user notice, fresh aggregates, and the advisory stock verdict
// for the touched line. Successful mutations are also published to the
// cart webhook.
func (s *Server) finishMutation(w http.ResponseWriter, r *http.Request, eventType domain.EventType, outcome cart.Outcome) {
	userID := userIDFromContext(r.Context())
	n := notice.FromOutcome(outcome)

	if !outcome.OK() {
		if errors.Is(outcome.Err, storepkg.ErrUnavailable) {
			// Ops want to hear about the durable store being down.
			_ = s.alerts.Alert(r.Context(), "cart store unavailable for user %s: %v", userID, outcome.Err)
		}
		writeJSON(w, failureStatus(outcome), map[string]interface{}{
			"outcome": outcome,
			"notice":  n,
		})
		return
	}

	s.publishEvent(userID, eventType, outcome)

	resp := map[string]interface{}{
		"outcome":     outcome,
		"notice":      n,
		"total_items": s.carts.TotalItems(userID),
		"total_price": s.carts.TotalPrice(userID),
	}
	if outcome.BookID != "" {
		for _, item := range s.carts.Items(userID) {
			if item.BookID == outcome.BookID {
				resp["stock"] = s.advisor.Check(item.Book, item.Quantity)
				break
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) publishEvent(userID string, eventType domain.EventType, outcome cart.Outcome) {
	event := domain.Event{
		ID:     uuid.NewString(),
		UserID: userID,
		Type:   eventType,
		Payload: map[string]interface{}{
			"book_id":  outcome.BookID,
			"quantity": outcome.Quantity,
			"kind":     string(outcome.Kind),
		},
		CreatedAt: time.Now().UTC(),
	}
	// Delivery retries with backoff; keep it off the request path.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.events.Publish(ctx, event); err != nil {
			s.log.WithError(err).WithField("event_id", event.ID).Warn("publish cart event")
		}
	}()
}

func failureStatus(outcome cart.Outcome) int {
	switch {
	case outcome.Kind == cart.OutcomeUnauthenticated:
		return http.StatusUnauthorized
	case errors.Is(outcome.Err, cart.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(outcome.Err, storepkg.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(outcome.Err, storepkg.ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}

func (s *Server) signToken(userID string) (string, time.Time, error) {
	expiresAt := time.Now().UTC().Add(s.cfg.SessionTTL)
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": expiresAt.Unix(),
		"iat": time.Now().UTC().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
			return []byte(s.cfg.JWTSecret), nil
		})
		if err != nil || !parsed.Valid {
			writeError(w, http.StatusUnauthorized, "invalid session token")
			return
		}
		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid session claims")
			return
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			writeError(w, http.StatusUnauthorized, "invalid session subject")
			return
		}
		ctx := context.WithValue(r.Context(), contextKeyUserID, sub)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}).Info("request")
		s.metrics.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(ww.Status()/100*100)).Inc()
	})
}

func userIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(contextKeyUserID).(string)
	return v
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func parseBool(raw string) bool {
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return v
}

func decodeJSON(r *http.Request, target interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
