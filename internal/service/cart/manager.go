package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"bookstore/internal/domain"
	"bookstore/internal/store"
)

var (
	// ErrUnauthenticated is returned when a mutation is attempted with
	// no signed-in user. The call performs no I/O.
	ErrUnauthenticated = errors.New("no authenticated user")
	// ErrInvalidQuantity rejects add requests below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

type OutcomeKind string

const (
	OutcomeItemAdded       OutcomeKind = "item_added"
	OutcomeQuantityUpdated OutcomeKind = "quantity_updated"
	OutcomeItemRemoved     OutcomeKind = "item_removed"
	OutcomeCartCleared     OutcomeKind = "cart_cleared"
	OutcomeFailed          OutcomeKind = "failed"
	OutcomeUnauthenticated OutcomeKind = "unauthenticated"
)

// Outcome is the structured result of a cart mutation. The manager
// never renders user-facing text; the notice package maps outcomes to
// messages and the HTTP layer decides status codes.
type Outcome struct {
	Kind     OutcomeKind `json:"kind"`
	BookID   string      `json:"book_id,omitempty"`
	Quantity int         `json:"quantity,omitempty"`
	Err      error       `json:"-"`
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

// Manager owns the in-memory view of each signed-in user's cart and
// mediates every read and write against the durable store. The cached
// items always mirror the store: a successful write triggers a full
// reload rather than a local patch, and the cache is never mutated
// optimistically before a write succeeds.
//
// Mutations for the same user are serialized, so two rapid add calls in
// this process cannot both compute a merge target from the same stale
// quantity. Writes racing from another process are outside the lock;
// the store's unique (user, book) constraint keeps the row set
// consistent and the losing insert is retried as an update, but the
// last reload to complete still decides the visible items.
type Manager struct {
	store store.Store
	log   logrus.FieldLogger

	mu    sync.Mutex
	carts map[string]*cartState
}

type cartState struct {
	// opMu serializes mutations and their reloads for one user.
	opMu sync.Mutex
	// mu guards snapshot reads of items and loading.
	mu      sync.RWMutex
	items   []domain.CartItem
	loading bool
	loaded  bool
}

func NewManager(st store.Store, log logrus.FieldLogger) *Manager {
	return &Manager{
		store: st,
		log:   log,
		carts: make(map[string]*cartState),
	}
}

// Attach loads the user's cart from the store, replacing any cached
// view. Called when an identity becomes available (login). A load
// failure leaves the cached items at their prior value; on a first
// load that means an empty cart.
func (m *Manager) Attach(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	st := m.state(userID)
	st.opMu.Lock()
	defer st.opMu.Unlock()
	return m.reload(ctx, userID, st)
}

// Detach drops the user's cached cart immediately and unconditionally.
// Called on sign-out; performs no network I/O.
func (m *Manager) Detach(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
}

// AddToCart puts quantity copies of a book into the user's cart. If
// the book is already present the quantities merge into the existing
// line item; a duplicate row is never created.
func (m *Manager) AddToCart(ctx context.Context, userID, bookID string, quantity int) Outcome {
	if userID == "" {
		return Outcome{Kind: OutcomeUnauthenticated, BookID: bookID, Err: ErrUnauthenticated}
	}
	if quantity < 1 {
		return Outcome{Kind: OutcomeFailed, BookID: bookID, Quantity: quantity, Err: ErrInvalidQuantity}
	}

	st := m.state(userID)
	st.opMu.Lock()
	defer st.opMu.Unlock()
	m.ensureLoaded(ctx, userID, st)

	if existing, ok := findItem(st, bookID); ok {
		return m.writeQuantity(ctx, userID, st, bookID, existing.Quantity+quantity, OutcomeItemAdded, quantity)
	}

	err := m.store.InsertCartItem(ctx, userID, bookID, quantity)
	if errors.Is(err, store.ErrDuplicate) {
		// Lost an insert race against another writer. Fold the request
		// into the row that won.
		if rerr := m.reload(ctx, userID, st); rerr != nil {
			m.log.WithError(rerr).WithField("user_id", userID).Warn("reload after duplicate insert")
		}
		target := quantity
		if existing, ok := findItem(st, bookID); ok {
			target = existing.Quantity + quantity
		}
		err = m.store.UpdateCartItemQuantity(ctx, userID, bookID, target)
	}
	if err != nil {
		m.log.WithError(err).WithFields(logrus.Fields{"user_id": userID, "book_id": bookID}).Error("add to cart")
		return Outcome{Kind: OutcomeFailed, BookID: bookID, Quantity: quantity, Err: err}
	}

	if err := m.reload(ctx, userID, st); err != nil {
		m.log.WithError(err).WithField("user_id", userID).Warn("reload after add")
	}
	return Outcome{Kind: OutcomeItemAdded, BookID: bookID, Quantity: quantity}
}

// UpdateQuantity sets the line item's quantity. A target of zero or
// below deletes the line item; that is the only deletion path a
// quantity edit can reach.
func (m *Manager) UpdateQuantity(ctx context.Context, userID, bookID string, quantity int) Outcome {
	if userID == "" {
		return Outcome{Kind: OutcomeUnauthenticated, BookID: bookID, Err: ErrUnauthenticated}
	}

	st := m.state(userID)
	st.opMu.Lock()
	defer st.opMu.Unlock()
	m.ensureLoaded(ctx, userID, st)

	if quantity <= 0 {
		return m.remove(ctx, userID, st, bookID)
	}
	return m.writeQuantity(ctx, userID, st, bookID, quantity, OutcomeQuantityUpdated, quantity)
}

// RemoveFromCart deletes the line item for the book. Removing a book
// that is not in the cart is a successful no-op.
func (m *Manager) RemoveFromCart(ctx context.Context, userID, bookID string) Outcome {
	if userID == "" {
		return Outcome{Kind: OutcomeUnauthenticated, BookID: bookID, Err: ErrUnauthenticated}
	}

	st := m.state(userID)
	st.opMu.Lock()
	defer st.opMu.Unlock()
	return m.remove(ctx, userID, st, bookID)
}

// ClearCart deletes every line item for the user. On success the cache
// is emptied directly; the result is known, so no reload is issued.
func (m *Manager) ClearCart(ctx context.Context, userID string) Outcome {
	if userID == "" {
		return Outcome{Kind: OutcomeUnauthenticated, Err: ErrUnauthenticated}
	}

	st := m.state(userID)
	st.opMu.Lock()
	defer st.opMu.Unlock()

	if err := m.store.DeleteAllCartItems(ctx, userID); err != nil {
		m.log.WithError(err).WithField("user_id", userID).Error("clear cart")
		return Outcome{Kind: OutcomeFailed, Err: err}
	}

	st.mu.Lock()
	st.items = nil
	st.loaded = true
	st.mu.Unlock()
	return Outcome{Kind: OutcomeCartCleared}
}

// Hydrate performs the initial load for a user whose cart has not been
// fetched in this process (e.g. a request arriving with a still-valid
// token after a restart). Already-loaded carts are left as-is.
func (m *Manager) Hydrate(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	st := m.state(userID)
	st.opMu.Lock()
	defer st.opMu.Unlock()
	m.ensureLoaded(ctx, userID, st)
}

// Items returns a snapshot copy of the cached line items.
func (m *Manager) Items(userID string) []domain.CartItem {
	st := m.peek(userID)
	if st == nil {
		return nil
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]domain.CartItem, len(st.items))
	copy(out, st.items)
	return out
}

func (m *Manager) Loading(userID string) bool {
	st := m.peek(userID)
	if st == nil {
		return false
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.loading
}

// TotalPrice sums unit price times quantity over the cached items, in
// minor currency units. Pure; never touches the store.
func (m *Manager) TotalPrice(userID string) int64 {
	st := m.peek(userID)
	if st == nil {
		return 0
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	var total int64
	for _, item := range st.items {
		total += item.Book.Price * int64(item.Quantity)
	}
	return total
}

// TotalItems sums quantities over the cached items. Pure.
func (m *Manager) TotalItems(userID string) int {
	st := m.peek(userID)
	if st == nil {
		return 0
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	total := 0
	for _, item := range st.items {
		total += item.Quantity
	}
	return total
}

func (m *Manager) writeQuantity(ctx context.Context, userID string, st *cartState, bookID string, target int, kind OutcomeKind, reportQty int) Outcome {
	if err := m.store.UpdateCartItemQuantity(ctx, userID, bookID, target); err != nil {
		m.log.WithError(err).WithFields(logrus.Fields{"user_id": userID, "book_id": bookID}).Error("update quantity")
		return Outcome{Kind: OutcomeFailed, BookID: bookID, Quantity: reportQty, Err: err}
	}
	if err := m.reload(ctx, userID, st); err != nil {
		m.log.WithError(err).WithField("user_id", userID).Warn("reload after update")
	}
	return Outcome{Kind: kind, BookID: bookID, Quantity: reportQty}
}

func (m *Manager) remove(ctx context.Context, userID string, st *cartState, bookID string) Outcome {
	if err := m.store.DeleteCartItem(ctx, userID, bookID); err != nil {
		m.log.WithError(err).WithFields(logrus.Fields{"user_id": userID, "book_id": bookID}).Error("remove from cart")
		return Outcome{Kind: OutcomeFailed, BookID: bookID, Err: err}
	}
	if err := m.reload(ctx, userID, st); err != nil {
		m.log.WithError(err).WithField("user_id", userID).Warn("reload after remove")
	}
	return Outcome{Kind: OutcomeItemRemoved, BookID: bookID}
}

// reload replaces the cached items wholesale from the store. On
// failure the cache keeps its last-known-good value.
func (m *Manager) reload(ctx context.Context, userID string, st *cartState) error {
	st.mu.Lock()
	st.loading = true
	st.mu.Unlock()

	items, err := m.store.ListCartItems(ctx, userID)

	st.mu.Lock()
	st.loading = false
	if err == nil {
		st.items = items
		st.loaded = true
	}
	st.mu.Unlock()

	if err != nil {
		m.log.WithError(err).WithField("user_id", userID).Error("load cart items")
		return err
	}
	return nil
}

// ensureLoaded performs the initial fetch for users whose cart was
// never attached (e.g. a request on a fresh process with a still-valid
// token). Failure is tolerated; the mutation proceeds against the
// store, which remains the source of truth.
func (m *Manager) ensureLoaded(ctx context.Context, userID string, st *cartState) {
	st.mu.RLock()
	loaded := st.loaded
	st.mu.RUnlock()
	if loaded {
		return
	}
	_ = m.reload(ctx, userID, st)
}

func (m *Manager) state(userID string) *cartState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.carts[userID]
	if !ok {
		st = &cartState{}
		m.carts[userID] = st
	}
	return st
}

func (m *Manager) peek(userID string) *cartState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.carts[userID]
}

func findItem(st *cartState, bookID string) (domain.CartItem, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	for _, item := range st.items {
		if item.BookID == bookID {
			return item, true
		}
	}
	return domain.CartItem{}, false
}
