package models

import "time"

// CreatorOnboarding tracks a creator's position in the fixed activation
// progression together with its append-only transition trail.
type CreatorOnboarding struct {
	ID          uint                   `gorm:"primaryKey" json:"-"`
	CreatorID   string                 `gorm:"type:varchar(191);not null;uniqueIndex" json:"creator_id"`
	Status      string                 `gorm:"type:varchar(30);not null;default:'created'" json:"status"`
	Transitions []OnboardingTransition `gorm:"foreignKey:CreatorOnboardingID" json:"transitions"`
	CreatedAt   time.Time              `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time              `gorm:"autoUpdateTime" json:"updated_at"`
}

// OnboardingTransition is one edge taken through the onboarding graph.
// FromStatus is empty for the synthetic transition written at record creation.
type OnboardingTransition struct {
	ID                  uint      `gorm:"primaryKey" json:"-"`
	CreatorOnboardingID uint      `gorm:"not null;index" json:"-"`
	FromStatus          string    `gorm:"type:varchar(30)" json:"from"`
	ToStatus            string    `gorm:"type:varchar(30);not null" json:"to"`
	OccurredAt          time.Time `gorm:"not null" json:"occurred_at"`
	Actor               string    `gorm:"type:varchar(20);not null" json:"actor"`
	Source              string    `gorm:"type:varchar(20);not null" json:"source"`
}
