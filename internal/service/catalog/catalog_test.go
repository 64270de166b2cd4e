package catalog

import (
	"context"
	"testing"
	"time"

	"bookstore/internal/domain"
	"bookstore/internal/store/memory"
)

func seedCatalog(t *testing.T) *Service {
	t.Helper()
	st := memory.NewStore()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	books := []domain.Book{
		{Title: "Thai for Beginners", Language: "thai", IsBestseller: true, CreatedAt: base},
		{Title: "Japanese Grammar", TitleEN: "Japanese Grammar Guide", Language: "japanese", IsNew: true, CreatedAt: base.Add(time.Hour)},
		{Title: "Advanced Thai Reading", Language: "thai", CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, b := range books {
		if _, err := st.CreateBook(context.Background(), b); err != nil {
			t.Fatalf("seed %q: %v", b.Title, err)
		}
	}
	return NewService(st)
}

func TestBooks_NewestFirst(t *testing.T) {
	svc := seedCatalog(t)
	books, err := svc.Books(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("books: %v", err)
	}
	if len(books) != 3 {
		t.Fatalf("got %d books, want 3", len(books))
	}
	if books[0].Title != "Advanced Thai Reading" {
		t.Fatalf("first book = %q, want newest", books[0].Title)
	}
}

func TestBooks_FilterByLanguage(t *testing.T) {
	svc := seedCatalog(t)
	books, err := svc.Books(context.Background(), Filter{Language: "Thai"})
	if err != nil {
		t.Fatalf("books: %v", err)
	}
	if len(books) != 2 {
		t.Fatalf("got %d thai books, want 2", len(books))
	}
}

func TestBooks_FilterBestsellersAndNew(t *testing.T) {
	svc := seedCatalog(t)

	best, err := svc.Books(context.Background(), Filter{Bestsellers: true})
	if err != nil {
		t.Fatalf("bestsellers: %v", err)
	}
	if len(best) != 1 || best[0].Title != "Thai for Beginners" {
		t.Fatalf("bestsellers = %+v", best)
	}

	fresh, err := svc.Books(context.Background(), Filter{New: true})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if len(fresh) != 1 || fresh[0].Title != "Japanese Grammar" {
		t.Fatalf("new books = %+v", fresh)
	}
}

func TestBooks_SearchMatchesTitleAndDescription(t *testing.T) {
	svc := seedCatalog(t)
	books, err := svc.Books(context.Background(), Filter{Query: "grammar"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(books) != 1 || books[0].Title != "Japanese Grammar" {
		t.Fatalf("search result = %+v", books)
	}

	none, err := svc.Books(context.Background(), Filter{Query: "cooking"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no matches, got %+v", none)
	}
}
