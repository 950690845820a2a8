package models

import "time"

// Deposit statuses. A deposit starts pending and only moves forward through
// verified webhook events, never backward automatically.
const (
	DepositStatusPending  = "pending"
	DepositStatusPaid     = "paid"
	DepositStatusFailed   = "failed"
	DepositStatusRefunded = "refunded"
)

// Deposit is the payment-intent ledger row. Identity is PaymentIntentID,
// generated once per unique (provider, idempotency key) scope.
type Deposit struct {
	ID              uint      `gorm:"primaryKey" json:"-"`
	PaymentIntentID string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"payment_intent_id"`
	Provider        string    `gorm:"type:varchar(50);not null;index" json:"provider"`
	Status          string    `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Amount          float64   `gorm:"not null" json:"amount"`
	Currency        string    `gorm:"type:varchar(3);not null" json:"currency"`
	CreatorID       string    `gorm:"type:varchar(191);not null;index" json:"creator_id"`
	IdempotencyKey  string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"idempotency_key"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ProcessedWebhookEvent records provider event ids the ledger has already
// consumed, independently of the transport-level replay guard.
type ProcessedWebhookEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"event_id"`
	EventType string    `gorm:"type:varchar(100);not null" json:"event_type"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
