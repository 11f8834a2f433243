package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// OrderPlacedEvent is emitted in the checkout transaction once the order and
// its items are written.
type OrderPlacedEvent struct {
	OrderID     uuid.UUID       `json:"orderId"`
	UserID      uuid.UUID       `json:"userId"`
	Email       string          `json:"email"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	ItemCount   int             `json:"itemCount"`
	ProductIDs  pq.StringArray  `json:"productIds"`
	PlacedAt    time.Time       `json:"placedAt"`
}

// UserRegisteredEvent is emitted when a new account is created.
type UserRegisteredEvent struct {
	UserID       uuid.UUID `json:"userId"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registeredAt"`
}
