package dto

import "github.com/google/uuid"

type SubscriptionRequest struct {
	PeriodNotifications int `json:"period_notifications"`
}

// SubscriptionResponse mirrors the subscription with its owner's email and
// cities in the order they were added. A user without a subscription gets the
// zero value of this struct.
type SubscriptionResponse struct {
	UserEmail           string         `json:"user_email"`
	PeriodNotifications int            `json:"period_notifications"`
	Cities              []CityResponse `json:"cities"`
}

type AddCityRequest struct {
	Name string `json:"name"`
}

type CityResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
