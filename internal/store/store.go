package store

import (
	"context"
	"errors"

	"bookstore/internal/domain"
)

// Error taxonomy shared by every Store implementation. The cart manager
// branches on these with errors.Is, so implementations must wrap them
// rather than invent their own sentinels.
var (
	// ErrUnavailable covers transport and query failures: the caller
	// cannot tell whether the write happened.
	ErrUnavailable = errors.New("store unavailable")
	// ErrNotFound is returned when an update targets a row (or a book)
	// that no longer exists.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert loses the race against a
	// concurrent insert for the same (user, book) pair. The uniqueness
	// constraint lives in the store, not in client-side checks.
	ErrDuplicate = errors.New("duplicate cart item")
)

// Store is the durable persistence contract consumed by the cart
// manager and the catalog/auth layers. Cart rows are logically
// partitioned by (userID, bookID); implementations never expose one
// user's rows to another.
type Store interface {
	// ListCartItems returns every cart row for the user, each joined
	// with its book snapshot, oldest row first.
	ListCartItems(ctx context.Context, userID string) ([]domain.CartItem, error)
	// InsertCartItem creates a new row. Fails with ErrDuplicate if a
	// row for (userID, bookID) already exists and ErrNotFound if the
	// book does not.
	InsertCartItem(ctx context.Context, userID, bookID string, quantity int) error
	// UpdateCartItemQuantity sets the row's quantity. Fails with
	// ErrNotFound if the row was deleted concurrently.
	UpdateCartItemQuantity(ctx context.Context, userID, bookID string, quantity int) error
	// DeleteCartItem removes the row if present. Absence is not an
	// error; the delete is idempotent.
	DeleteCartItem(ctx context.Context, userID, bookID string) error
	// DeleteAllCartItems removes every row for the user.
	DeleteAllCartItems(ctx context.Context, userID string) error

	ListBooks(ctx context.Context) ([]domain.Book, error)
	GetBook(ctx context.Context, bookID string) (domain.Book, error)
	CreateBook(ctx context.Context, book domain.Book) (domain.Book, error)

	CreateUser(ctx context.Context, email, fullName, passwordHash string) (domain.User, error)
	UserByEmail(ctx context.Context, email string) (domain.User, error)
}
