package memory

import (
	"context"
	"errors"
	"testing"

	"bookstore/internal/domain"
	"bookstore/internal/store"
)

func seedBook(t *testing.T, s *Store, title string, price int64) domain.Book {
	t.Helper()
	book, err := s.CreateBook(context.Background(), domain.Book{
		Title:         title,
		Price:         price,
		Currency:      "THB",
		StockQuantity: 10,
	})
	if err != nil {
		t.Fatalf("seed book %q: %v", title, err)
	}
	return book
}

func TestInsertCartItem_RejectsDuplicate(t *testing.T) {
	s := NewStore()
	book := seedBook(t, s, "Thai for Beginners", 45000)
	ctx := context.Background()

	if err := s.InsertCartItem(ctx, "user-1", book.ID, 1); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := s.InsertCartItem(ctx, "user-1", book.ID, 2)
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("second insert = %v, want ErrDuplicate", err)
	}

	items, err := s.ListCartItems(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 1 {
		t.Fatalf("expected single row with quantity 1, got %+v", items)
	}
}

func TestInsertCartItem_UnknownBook(t *testing.T) {
	s := NewStore()
	err := s.InsertCartItem(context.Background(), "user-1", "missing", 1)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("insert unknown book = %v, want ErrNotFound", err)
	}
}

func TestDeleteCartItem_IsIdempotent(t *testing.T) {
	s := NewStore()
	book := seedBook(t, s, "Japanese Grammar", 52000)
	ctx := context.Background()

	if err := s.InsertCartItem(ctx, "user-1", book.ID, 3); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.DeleteCartItem(ctx, "user-1", book.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := s.DeleteCartItem(ctx, "user-1", book.ID); err != nil {
		t.Fatalf("second delete should be a no-op, got %v", err)
	}
}

func TestListCartItems_ScopedToUser(t *testing.T) {
	s := NewStore()
	book := seedBook(t, s, "Korean Reader", 39000)
	ctx := context.Background()

	if err := s.InsertCartItem(ctx, "user-1", book.ID, 1); err != nil {
		t.Fatalf("insert: %v", err)
	}
	items, err := s.ListCartItems(ctx, "user-2")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("user-2 should see an empty cart, got %+v", items)
	}
}

func TestListCartItems_JoinsCurrentBookSnapshot(t *testing.T) {
	s := NewStore()
	book := seedBook(t, s, "Mandarin Tones", 61000)
	ctx := context.Background()

	if err := s.InsertCartItem(ctx, "user-1", book.ID, 2); err != nil {
		t.Fatalf("insert: %v", err)
	}
	items, err := s.ListCartItems(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if items[0].Book.Title != "Mandarin Tones" || items[0].Book.Price != 61000 {
		t.Fatalf("expected joined book snapshot, got %+v", items[0].Book)
	}
}

func TestFailNext_FailsExactlyOnce(t *testing.T) {
	s := NewStore()
	book := seedBook(t, s, "Vietnamese Phrasebook", 28000)
	ctx := context.Background()

	s.FailNext(store.ErrUnavailable)
	if err := s.InsertCartItem(ctx, "user-1", book.ID, 1); !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	if err := s.InsertCartItem(ctx, "user-1", book.ID, 1); err != nil {
		t.Fatalf("failure should not persist past one call: %v", err)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, "a@example.com", "A", "hash"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateUser(ctx, "A@example.com", "A again", "hash"); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("duplicate email = %v, want ErrDuplicate", err)
	}
}
