package domain

import "time"

// Book is a read-only catalog snapshot. Prices are stored in minor
// currency units (satang for THB), never floats.
type Book struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	TitleEN         string    `json:"title_en,omitempty"`
	Description     string    `json:"description,omitempty"`
	Price           int64     `json:"price"`
	Currency        string    `json:"currency"`
	Language        string    `json:"language"`
	DifficultyLevel string    `json:"difficulty_level,omitempty"`
	StockQuantity   int       `json:"stock_quantity"`
	ImageURL        string    `json:"image_url,omitempty"`
	IsBestseller    bool      `json:"is_bestseller"`
	IsNew           bool      `json:"is_new"`
	CreatedAt       time.Time `json:"created_at"`
}

// CartItem is one line of a user's cart. Quantity is always >= 1 while
// the row exists; a quantity edit to 0 deletes the row instead of
// leaving a zero-quantity line behind.
type CartItem struct {
	ID       string `json:"id"`
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
	Book     Book   `json:"book"`
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type EventType string

const (
	EventItemAdded   EventType = "CartItemAdded"
	EventItemUpdated EventType = "CartItemUpdated"
	EventItemRemoved EventType = "CartItemRemoved"
	EventCartCleared EventType = "CartCleared"
)

// Event is the out-of-band record of a completed cart mutation,
// published to the configured webhook for downstream consumers.
type Event struct {
	ID        string                 `json:"event_id"`
	UserID    string                 `json:"user_id"`
	Type      EventType              `json:"event_type"`
	Payload   map[string]interface{} `json:"payload"`
	CreatedAt time.Time              `json:"created_at"`
}
