package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification periods a subscription may use, in hours.
var ValidPeriods = []int{1, 3, 6, 12}

func IsValidPeriod(hours int) bool {
	for _, p := range ValidPeriods {
		if p == hours {
			return true
		}
	}
	return false
}

// Subscription is one per user. CreatedAt is set once and never updated.
type Subscription struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID              uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	PeriodNotifications int       `gorm:"not null" json:"period_notifications"`
	CreatedAt           time.Time `gorm:"<-:create" json:"created_at"`
	User                User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Cities              []City    `gorm:"foreignKey:SubscriptionID" json:"cities"`
}
