package catalog

import (
	"context"
	"strings"

	"bookstore/internal/domain"
	"bookstore/internal/store"
)

// Filter narrows a catalog listing. Zero value means "everything,
// newest first".
type Filter struct {
	Query       string
	Language    string
	Bestsellers bool
	New         bool
}

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Books lists catalog books newest-first, applying the filter.
func (s *Service) Books(ctx context.Context, f Filter) ([]domain.Book, error) {
	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	return filterBooks(books, f), nil
}

func (s *Service) Book(ctx context.Context, bookID string) (domain.Book, error) {
	return s.store.GetBook(ctx, bookID)
}

func filterBooks(books []domain.Book, f Filter) []domain.Book {
	out := make([]domain.Book, 0, len(books))
	for _, book := range books {
		if matches(book, f) {
			out = append(out, book)
		}
	}
	return out
}

func matches(book domain.Book, f Filter) bool {
	if f.Language != "" && !strings.EqualFold(book.Language, f.Language) {
		return false
	}
	if f.Bestsellers && !book.IsBestseller {
		return false
	}
	if f.New && !book.IsNew {
		return false
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		q = strings.ToLower(q)
		haystack := strings.ToLower(book.Title + " " + book.TitleEN + " " + book.Description)
		if !strings.Contains(haystack, q) {
			return false
		}
	}
	return true
}
