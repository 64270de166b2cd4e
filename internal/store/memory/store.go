package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bookstore/internal/domain"
	"bookstore/internal/store"
)

// Store is the in-memory implementation of store.Store. It backs local
// development when postgres is not configured and doubles as the test
// fake. It enforces the same constraints the postgres schema does:
// unique (user, book) cart rows and quantity >= 1.
type Store struct {
	mu sync.RWMutex

	books     map[string]domain.Book
	bookOrder []string

	usersByEmail map[string]domain.User

	// carts[userID][bookID] -> row; cartOrder preserves insertion order
	// per user so listings are stable.
	carts     map[string]map[string]domain.CartItem
	cartOrder map[string][]string

	// failNext, when set, makes the next cart operation fail with the
	// given error. Used by tests to simulate an unreachable store.
	failNext error
}

func NewStore() *Store {
	return &Store{
		books:        make(map[string]domain.Book),
		usersByEmail: make(map[string]domain.User),
		carts:        make(map[string]map[string]domain.CartItem),
		cartOrder:    make(map[string][]string),
	}
}

// FailNext makes the next cart read or write return err. Test hook.
func (s *Store) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

func (s *Store) takeFailure() error {
	if s.failNext == nil {
		return nil
	}
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *Store) ListCartItems(_ context.Context, userID string) ([]domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}

	order := s.cartOrder[userID]
	out := make([]domain.CartItem, 0, len(order))
	for _, bookID := range order {
		item, ok := s.carts[userID][bookID]
		if !ok {
			continue
		}
		// Re-join the current book snapshot, like the SQL join does.
		if book, ok := s.books[item.BookID]; ok {
			item.Book = book
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *Store) InsertCartItem(_ context.Context, userID, bookID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}

	book, ok := s.books[bookID]
	if !ok {
		return store.ErrNotFound
	}
	if _, exists := s.carts[userID][bookID]; exists {
		return store.ErrDuplicate
	}
	if s.carts[userID] == nil {
		s.carts[userID] = make(map[string]domain.CartItem)
	}
	s.carts[userID][bookID] = domain.CartItem{
		ID:       uuid.NewString(),
		BookID:   bookID,
		Quantity: quantity,
		Book:     book,
	}
	s.cartOrder[userID] = append(s.cartOrder[userID], bookID)
	return nil
}

func (s *Store) UpdateCartItemQuantity(_ context.Context, userID, bookID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}

	item, ok := s.carts[userID][bookID]
	if !ok {
		return store.ErrNotFound
	}
	item.Quantity = quantity
	s.carts[userID][bookID] = item
	return nil
}

func (s *Store) DeleteCartItem(_ context.Context, userID, bookID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}

	if _, ok := s.carts[userID][bookID]; !ok {
		return nil
	}
	delete(s.carts[userID], bookID)
	order := s.cartOrder[userID]
	for i, id := range order {
		if id == bookID {
			s.cartOrder[userID] = append(order[:i], order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) DeleteAllCartItems(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}

	delete(s.carts, userID)
	delete(s.cartOrder, userID)
	return nil
}

func (s *Store) ListBooks(_ context.Context) ([]domain.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Book, 0, len(s.bookOrder))
	for _, id := range s.bookOrder {
		out = append(out, s.books[id])
	}
	// Newest first, matching the postgres ordering.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetBook(_ context.Context, bookID string) (domain.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	book, ok := s.books[bookID]
	if !ok {
		return domain.Book{}, store.ErrNotFound
	}
	return book, nil
}

func (s *Store) CreateBook(_ context.Context, book domain.Book) (domain.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if book.ID == "" {
		book.ID = uuid.NewString()
	}
	if book.CreatedAt.IsZero() {
		book.CreatedAt = time.Now().UTC()
	}
	if _, exists := s.books[book.ID]; exists {
		return domain.Book{}, store.ErrDuplicate
	}
	s.books[book.ID] = book
	s.bookOrder = append(s.bookOrder, book.ID)
	return book, nil
}

func (s *Store) CreateUser(_ context.Context, email, fullName, passwordHash string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(email)
	if _, exists := s.usersByEmail[key]; exists {
		return domain.User{}, store.ErrDuplicate
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.usersByEmail[key] = user
	return user, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return user, nil
}
