package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"bookstore/internal/config"
	"bookstore/internal/domain"
	"bookstore/internal/integrations/telegram"
	"bookstore/internal/integrations/webhook"
	"bookstore/internal/metrics"
	"bookstore/internal/service/cart"
	"bookstore/internal/store/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store, []domain.Book) {
	t.Helper()

	st := memory.NewStore()
	var books []domain.Book
	seed := []domain.Book{
		{Title: "Thai for Beginners", Price: 45000, Currency: "THB", Language: "thai", StockQuantity: 10, IsBestseller: true},
		{Title: "Japanese Grammar", Price: 52000, Currency: "THB", Language: "japanese", StockQuantity: 2, IsNew: true},
	}
	for _, b := range seed {
		created, err := st.CreateBook(context.Background(), b)
		if err != nil {
			t.Fatalf("seed book: %v", err)
		}
		books = append(books, created)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := config.Config{
		JWTSecret:  "test-secret",
		SessionTTL: time.Hour,
		BcryptCost: 4,
	}
	srv := NewServer(
		cfg,
		st,
		cart.NewManager(st, log),
		webhook.NewClient("", time.Second, 0, time.Millisecond, time.Millisecond),
		telegram.NewNotifier("", ""),
		metrics.New(),
		log,
	)
	api := httptest.NewServer(srv.Router())
	t.Cleanup(api.Close)
	return api, st, books
}

func TestE2E_BrowseAndManageCart(t *testing.T) {
	api, _, books := newTestServer(t)
	client := &http.Client{Timeout: 5 * time.Second}

	// Signup + login
	signupResp := postJSON(t, client, api.URL+"/auth/signup", map[string]string{
		"email":     "reader@example.com",
		"password":  "secret-pass",
		"full_name": "Reader",
	}, "")
	if signupResp["email"] != "reader@example.com" {
		t.Fatalf("signup response = %v", signupResp)
	}
	loginResp := postJSON(t, client, api.URL+"/auth/login", map[string]string{
		"email":    "reader@example.com",
		"password": "secret-pass",
	}, "")
	token := strField(t, loginResp, "token")
	if token == "" {
		t.Fatalf("expected session token")
	}

	// Catalog browse with language filter
	catalogResp := getJSON(t, client, api.URL+"/catalog/books?language=thai", "")
	listed, _ := catalogResp["books"].([]interface{})
	if len(listed) != 1 {
		t.Fatalf("thai filter returned %d books, want 1", len(listed))
	}

	// Add the same book twice: quantities merge, no duplicate line
	thai := books[0]
	_ = postJSON(t, client, api.URL+"/cart/items", map[string]interface{}{"book_id": thai.ID, "quantity": 1}, token)
	addResp := postJSON(t, client, api.URL+"/cart/items", map[string]interface{}{"book_id": thai.ID, "quantity": 2}, token)
	if got := numField(t, addResp, "total_items"); got != 3 {
		t.Fatalf("total_items after merge = %v, want 3", got)
	}

	cartResp := getJSON(t, client, api.URL+"/cart", token)
	items, _ := cartResp["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected one merged line item, got %v", cartResp)
	}
	if got := numField(t, cartResp, "total_price"); got != 3*45000 {
		t.Fatalf("total_price = %v, want %d", got, 3*45000)
	}

	// Update to zero deletes the line
	updateResp := putJSON(t, client, fmt.Sprintf("%s/cart/items/%s", api.URL, thai.ID), map[string]int{"quantity": 0}, token)
	outcome, _ := updateResp["outcome"].(map[string]interface{})
	if outcome["kind"] != "item_removed" {
		t.Fatalf("update-to-zero outcome = %v, want item_removed", updateResp)
	}
	summary := getJSON(t, client, api.URL+"/cart/summary", token)
	if got := numField(t, summary, "total_items"); got != 0 {
		t.Fatalf("summary after removal = %v", summary)
	}

	// Clear an again-filled cart
	_ = postJSON(t, client, api.URL+"/cart/items", map[string]interface{}{"book_id": books[1].ID, "quantity": 1}, token)
	clearResp := doJSON(t, client, http.MethodDelete, api.URL+"/cart", nil, token)
	outcome, _ = clearResp["outcome"].(map[string]interface{})
	if outcome["kind"] != "cart_cleared" {
		t.Fatalf("clear outcome = %v", clearResp)
	}
}

func TestE2E_StockAdviceOnAdd(t *testing.T) {
	api, _, books := newTestServer(t)
	client := &http.Client{Timeout: 5 * time.Second}
	token := signupAndLogin(t, client, api.URL, "stock@example.com")

	// Japanese Grammar has stock 2; asking for 3 still succeeds but
	// carries an advisory warning.
	resp := postJSON(t, client, api.URL+"/cart/items", map[string]interface{}{"book_id": books[1].ID, "quantity": 3}, token)
	stockAdvice, _ := resp["stock"].(map[string]interface{})
	if stockAdvice["warning"] != "exceeds_stock" {
		t.Fatalf("expected exceeds_stock advice, got %v", resp)
	}
	if got := numField(t, resp, "total_items"); got != 3 {
		t.Fatalf("advisory warning must not block the add, got %v", resp)
	}
}

func TestE2E_CartRequiresAuth(t *testing.T) {
	api, _, books := newTestServer(t)
	client := &http.Client{Timeout: 5 * time.Second}

	body, _ := json.Marshal(map[string]interface{}{"book_id": books[0].ID, "quantity": 1})
	req, _ := http.NewRequest(http.MethodPost, api.URL+"/cart/items", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestE2E_DuplicateSignupConflicts(t *testing.T) {
	api, _, _ := newTestServer(t)
	client := &http.Client{Timeout: 5 * time.Second}

	payload := map[string]string{"email": "dup@example.com", "password": "secret-pass"}
	_ = postJSON(t, client, api.URL+"/auth/signup", payload, "")

	body, _ := json.Marshal(payload)
	req, _ := http.NewRequest(http.MethodPost, api.URL+"/auth/signup", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}

func signupAndLogin(t *testing.T, client *http.Client, baseURL, email string) string {
	t.Helper()
	_ = postJSON(t, client, baseURL+"/auth/signup", map[string]string{
		"email":    email,
		"password": "secret-pass",
	}, "")
	loginResp := postJSON(t, client, baseURL+"/auth/login", map[string]string{
		"email":    email,
		"password": "secret-pass",
	}, "")
	token := strField(t, loginResp, "token")
	if token == "" {
		t.Fatalf("expected session token")
	}
	return token
}

func postJSON(t *testing.T, client *http.Client, url string, payload interface{}, token string) map[string]interface{} {
	t.Helper()
	return doJSON(t, client, http.MethodPost, url, payload, token)
}

func putJSON(t *testing.T, client *http.Client, url string, payload interface{}, token string) map[string]interface{} {
	t.Helper()
	return doJSON(t, client, http.MethodPut, url, payload, token)
}

func getJSON(t *testing.T, client *http.Client, url, token string) map[string]interface{} {
	t.Helper()
	return doJSON(t, client, http.MethodGet, url, nil, token)
}

func doJSON(t *testing.T, client *http.Client, method, url string, payload interface{}, token string) map[string]interface{} {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s %s response: %v", method, url, err)
	}
	return out
}

func strField(t *testing.T, m map[string]interface{}, key string) string {
	t.Helper()
	v, _ := m[key].(string)
	return v
}

func numField(t *testing.T, m map[string]interface{}, key string) float64 {
	t.Helper()
	v, ok := m[key].(float64)
	if !ok {
		t.Fatalf("field %q missing or not numeric in %v", key, m)
	}
	return v
}
