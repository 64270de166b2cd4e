package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"bookstore/internal/domain"
	"bookstore/internal/store"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

type Store struct {
	db *sql.DB
}

func NewStore(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListCartItems(ctx context.Context, userID string) ([]domain.CartItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`select ci.id, ci.book_id, ci.quantity,
		        b.id, b.title, b.title_en, b.description, b.price, b.currency,
		        b.language, b.difficulty_level, b.stock_quantity, b.image_url,
		        b.is_bestseller, b.is_new, b.created_at
		 from cart_items ci
		 join books b on b.id = ci.book_id
		 where ci.user_id = $1
		 order by ci.created_at asc`,
		userID,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := make([]domain.CartItem, 0, 8)
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.ID,
			&item.BookID,
			&item.Quantity,
			&item.Book.ID,
			&item.Book.Title,
			&item.Book.TitleEN,
			&item.Book.Description,
			&item.Book.Price,
			&item.Book.Currency,
			&item.Book.Language,
			&item.Book.DifficultyLevel,
			&item.Book.StockQuantity,
			&item.Book.ImageURL,
			&item.Book.IsBestseller,
			&item.Book.IsNew,
			&item.Book.CreatedAt,
		); err != nil {
			return nil, mapError(err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (s *Store) InsertCartItem(ctx context.Context, userID, bookID string, quantity int) error {
	_, err := s.db.ExecContext(ctx,
		`insert into cart_items(id, user_id, book_id, quantity, created_at, updated_at)
		 values ($1, $2, $3, $4, now(), now())`,
		uuid.NewString(), userID, bookID, quantity,
	)
	return mapError(err)
}

func (s *Store) UpdateCartItemQuantity(ctx context.Context, userID, bookID string, quantity int) error {
	res, err := s.db.ExecContext(ctx,
		`update cart_items set quantity = $3, updated_at = now()
		 where user_id = $1 and book_id = $2`,
		userID, bookID, quantity,
	)
	if err != nil {
		return mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteCartItem(ctx context.Context, userID, bookID string) error {
	// Idempotent: zero rows affected is fine.
	_, err := s.db.ExecContext(ctx,
		`delete from cart_items where user_id = $1 and book_id = $2`,
		userID, bookID,
	)
	return mapError(err)
}

func (s *Store) DeleteAllCartItems(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`delete from cart_items where user_id = $1`,
		userID,
	)
	return mapError(err)
}

func (s *Store) ListBooks(ctx context.Context) ([]domain.Book, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, title, title_en, description, price, currency, language,
		        difficulty_level, stock_quantity, image_url, is_bestseller, is_new, created_at
		 from books
		 order by created_at desc`,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := make([]domain.Book, 0, 32)
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, mapError(err)
		}
		out = append(out, book)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (s *Store) GetBook(ctx context.Context, bookID string) (domain.Book, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, title, title_en, description, price, currency, language,
		        difficulty_level, stock_quantity, image_url, is_bestseller, is_new, created_at
		 from books
		 where id = $1`,
		bookID,
	)
	book, err := scanBook(row)
	if err != nil {
		return domain.Book{}, mapError(err)
	}
	return book, nil
}

func (s *Store) CreateBook(ctx context.Context, book domain.Book) (domain.Book, error) {
	if book.ID == "" {
		book.ID = uuid.NewString()
	}
	if book.CreatedAt.IsZero() {
		book.CreatedAt = time.Now().UTC()
	}
	if book.Currency == "" {
		book.Currency = "THB"
	}
	_, err := s.db.ExecContext(ctx,
		`insert into books(id, title, title_en, description, price, currency, language,
		                   difficulty_level, stock_quantity, image_url, is_bestseller, is_new, created_at, updated_at)
		 values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now())`,
		book.ID, book.Title, book.TitleEN, book.Description, book.Price, book.Currency,
		book.Language, book.DifficultyLevel, book.StockQuantity, book.ImageURL,
		book.IsBestseller, book.IsNew, book.CreatedAt,
	)
	if err != nil {
		return domain.Book{}, mapError(err)
	}
	return book, nil
}

func (s *Store) CreateUser(ctx context.Context, email, fullName, passwordHash string) (domain.User, error) {
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		FullName:     fullName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, email, full_name, password_hash, created_at)
		 values ($1, $2, $3, $4, $5)`,
		user.ID, user.Email, user.FullName, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		return domain.User{}, mapError(err)
	}
	return user, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	var user domain.User
	err := s.db.QueryRowContext(ctx,
		`select id, email, full_name, password_hash, created_at
		 from users
		 where email = $1`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&user.ID, &user.Email, &user.FullName, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return domain.User{}, mapError(err)
	}
	return user, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBook(row scanner) (domain.Book, error) {
	var b domain.Book
	err := row.Scan(
		&b.ID, &b.Title, &b.TitleEN, &b.Description, &b.Price, &b.Currency,
		&b.Language, &b.DifficultyLevel, &b.StockQuantity, &b.ImageURL,
		&b.IsBestseller, &b.IsNew, &b.CreatedAt,
	)
	return b, err
}

// mapError folds driver errors into the store taxonomy: unique-index
// violations become ErrDuplicate, foreign-key violations (cart row for
// a book that vanished) and empty result sets become ErrNotFound, and
// everything else is treated as the store being unreachable.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return store.ErrDuplicate
		case pqForeignKeyViolation:
			return store.ErrNotFound
		}
	}
	return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
}
