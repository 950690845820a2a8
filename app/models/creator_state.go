package models

import "time"

// Composite per-creator provider states for the envelope webhook flow.
const (
	VerificationStateVerified   = "verified"
	VerificationStateUnverified = "unverified"
	PaymentStateSettled         = "settled"
	PaymentStateUnsettled       = "unsettled"
)

// CreatorState converges verification and payment provider state per creator
// under out-of-order delivery. The *UpdatedAt columns hold the provider's
// occurred-at timestamp in epoch milliseconds, not the arrival time; writes
// carrying an older timestamp for a field are ignored.
type CreatorState struct {
	ID                    uint      `gorm:"primaryKey" json:"-"`
	CreatorID             string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"creator_id"`
	VerificationState     string    `gorm:"type:varchar(20);not null;default:'unverified'" json:"verificationState"`
	PaymentState          string    `gorm:"type:varchar(20);not null;default:'unsettled'" json:"paymentState"`
	VerificationUpdatedAt int64     `gorm:"not null;default:0" json:"verificationUpdatedAt"`
	PaymentUpdatedAt      int64     `gorm:"not null;default:0" json:"paymentUpdatedAt"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime" json:"-"`
}
