package models

import (
	"time"

	"github.com/google/uuid"
)

// City is a city name attached to a subscription. Name uniqueness within one
// subscription is enforced by the service layer, not the schema.
type City struct {
	ID             uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	SubscriptionID uuid.UUID    `gorm:"type:uuid;not null;index" json:"subscription_id"`
	Name           string       `gorm:"size:64;not null" json:"name"`
	CreatedAt      time.Time    `json:"created_at"`
	Subscription   Subscription `gorm:"foreignKey:SubscriptionID;constraint:OnDelete:CASCADE" json:"-"`
}
