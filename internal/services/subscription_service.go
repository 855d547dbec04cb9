package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mhorbach/weather-reminder/internal/dto"
	"github.com/mhorbach/weather-reminder/internal/models"
	"github.com/mhorbach/weather-reminder/internal/weather"
	"gorm.io/gorm"
)

var (
	ErrInvalidPeriod     = errors.New("period must be one of 1, 3, 6 or 12 hours")
	ErrAlreadySubscribed = errors.New("subscription already exists")
	ErrNoSubscription    = errors.New("no subscription found")
	ErrCityNameRequired  = errors.New("city name is required")
	ErrCityNameTooLong   = errors.New("city name must be at most 64 characters")
	ErrCityAlreadyAdded  = errors.New("city already added in your subscription")
	ErrCityNotFound      = errors.New("city doesn't exist")
	ErrCityNotOwned      = errors.New("city not found")
)

// TaskManager is the slice of the scheduler the service drives.
type TaskManager interface {
	Create(sub models.Subscription)
	Update(sub models.Subscription)
	Remove(subscriptionID uuid.UUID)
}

// CityChecker validates a city name against the weather provider.
type CityChecker interface {
	Exists(ctx context.Context, cityName string) (bool, error)
	Current(ctx context.Context, cityName string) (weather.Report, error)
}

type SubscriptionService struct {
	db      *gorm.DB
	tasks   TaskManager
	weather CityChecker
}

func NewSubscriptionService(db *gorm.DB, tasks TaskManager, weatherClient CityChecker) *SubscriptionService {
	return &SubscriptionService{db: db, tasks: tasks, weather: weatherClient}
}

// Get returns the caller's subscription, or the zero representation when no
// subscription exists.
func (s *SubscriptionService) Get(userID uuid.UUID) (*dto.SubscriptionResponse, error) {
	var sub models.Subscription
	err := s.db.Preload("User").First(&sub, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &dto.SubscriptionResponse{Cities: []dto.CityResponse{}}, nil
	}
	if err != nil {
		return nil, err
	}

	cities, err := s.listCities(sub.ID)
	if err != nil {
		return nil, err
	}

	return &dto.SubscriptionResponse{
		UserEmail:           sub.User.Email,
		PeriodNotifications: sub.PeriodNotifications,
		Cities:              cities,
	}, nil
}

// Create makes the caller's subscription and registers its recurring task.
func (s *SubscriptionService) Create(userID uuid.UUID, period int) (*dto.SubscriptionResponse, error) {
	if !models.IsValidPeriod(period) {
		return nil, ErrInvalidPeriod
	}

	var existing models.Subscription
	err := s.db.First(&existing, "user_id = ?", userID).Error
	if err == nil {
		return nil, ErrAlreadySubscribed
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check subscription: %w", err)
	}

	sub := models.Subscription{
		ID:                  uuid.New(),
		UserID:              userID,
		PeriodNotifications: period,
	}
	if err := s.db.Create(&sub).Error; err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	s.tasks.Create(sub)

	return s.Get(userID)
}

// UpdatePeriod changes the caller's notification period and re-registers the
// task with the new interval.
func (s *SubscriptionService) UpdatePeriod(userID uuid.UUID, period int) (*dto.SubscriptionResponse, error) {
	if !models.IsValidPeriod(period) {
		return nil, ErrInvalidPeriod
	}

	var sub models.Subscription
	if err := s.db.First(&sub, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSubscription
		}
		return nil, err
	}

	if err := s.db.Model(&sub).Update("period_notifications", period).Error; err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}
	sub.PeriodNotifications = period

	s.tasks.Update(sub)

	return s.Get(userID)
}

// Delete removes the caller's subscription, its cities and its task. The task
// goes first so a crash mid-way cannot orphan it.
func (s *SubscriptionService) Delete(userID uuid.UUID) error {
	var sub models.Subscription
	if err := s.db.First(&sub, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoSubscription
		}
		return err
	}

	s.tasks.Remove(sub.ID)

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("subscription_id = ?", sub.ID).Delete(&models.City{}).Error; err != nil {
			return err
		}
		return tx.Delete(&sub).Error
	})
}

// ListCities returns the caller's cities in the order they were added.
func (s *SubscriptionService) ListCities(userID uuid.UUID) ([]dto.CityResponse, error) {
	sub, err := s.ownSubscription(userID)
	if err != nil {
		return nil, err
	}
	return s.listCities(sub.ID)
}

// AddCity attaches a city to the caller's subscription after checking it is
// not already present and the weather provider recognizes it.
func (s *SubscriptionService) AddCity(ctx context.Context, userID uuid.UUID, name string) (*dto.CityResponse, error) {
	if name == "" {
		return nil, ErrCityNameRequired
	}
	if len(name) > 64 {
		return nil, ErrCityNameTooLong
	}

	sub, err := s.ownSubscription(userID)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.Model(&models.City{}).
		Where("subscription_id = ? AND name = ?", sub.ID, name).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrCityAlreadyAdded
	}

	exists, err := s.weather.Exists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("city check: %w", err)
	}
	if !exists {
		return nil, ErrCityNotFound
	}

	city := models.City{
		ID:             uuid.New(),
		SubscriptionID: sub.ID,
		Name:           name,
	}
	if err := s.db.Create(&city).Error; err != nil {
		return nil, fmt.Errorf("create city: %w", err)
	}

	return &dto.CityResponse{ID: city.ID, Name: city.Name}, nil
}

// GetCity returns one of the caller's cities. A city belonging to someone else
// is reported as not found, never as forbidden.
func (s *SubscriptionService) GetCity(userID, cityID uuid.UUID) (*dto.CityResponse, error) {
	city, err := s.ownCity(userID, cityID)
	if err != nil {
		return nil, err
	}
	return &dto.CityResponse{ID: city.ID, Name: city.Name}, nil
}

// DeleteCity removes one of the caller's cities.
func (s *SubscriptionService) DeleteCity(userID, cityID uuid.UUID) error {
	city, err := s.ownCity(userID, cityID)
	if err != nil {
		return err
	}
	return s.db.Delete(city).Error
}

// WeatherNow fetches current weather for every city in the caller's
// subscription, in city order.
func (s *SubscriptionService) WeatherNow(ctx context.Context, userID uuid.UUID) ([]weather.Report, error) {
	sub, err := s.ownSubscription(userID)
	if err != nil {
		return nil, err
	}

	var cities []models.City
	if err := s.db.Where("subscription_id = ?", sub.ID).
		Order("created_at ASC").
		Find(&cities).Error; err != nil {
		return nil, err
	}

	reports := make([]weather.Report, 0, len(cities))
	for _, city := range cities {
		report, err := s.weather.Current(ctx, city.Name)
		if err != nil {
			return nil, fmt.Errorf("weather for %q: %w", city.Name, err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (s *SubscriptionService) ownSubscription(userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.First(&sub, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSubscription
		}
		return nil, err
	}
	return &sub, nil
}

func (s *SubscriptionService) ownCity(userID, cityID uuid.UUID) (*models.City, error) {
	var city models.City
	err := s.db.
		Joins("JOIN subscriptions ON subscriptions.id = cities.subscription_id").
		Where("cities.id = ? AND subscriptions.user_id = ?", cityID, userID).
		First(&city).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCityNotOwned
	}
	if err != nil {
		return nil, err
	}
	return &city, nil
}

func (s *SubscriptionService) listCities(subscriptionID uuid.UUID) ([]dto.CityResponse, error) {
	var cities []models.City
	if err := s.db.Where("subscription_id = ?", subscriptionID).
		Order("created_at ASC").
		Find(&cities).Error; err != nil {
		return nil, err
	}

	out := make([]dto.CityResponse, 0, len(cities))
	for _, c := range cities {
		out = append(out, dto.CityResponse{ID: c.ID, Name: c.Name})
	}
	return out, nil
}
