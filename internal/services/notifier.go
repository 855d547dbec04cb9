package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/mhorbach/weather-reminder/internal/models"
	"github.com/mhorbach/weather-reminder/internal/weather"
	"gorm.io/gorm"
)

const emailSubject = "Weather notification"

// WeatherProvider is the slice of the weather client the notifier needs.
type WeatherProvider interface {
	Current(ctx context.Context, cityName string) (weather.Report, error)
}

// MailSender dispatches one HTML email.
type MailSender interface {
	Send(ctx context.Context, toEmail, subject, htmlBody string) error
}

// Notifier assembles and sends the periodic weather email for one
// subscription. The scheduler fires it with a subscription ID only; all state
// is re-read from the database so a firing always sees live data.
type Notifier struct {
	db      *gorm.DB
	weather WeatherProvider
	mailer  MailSender
	logger  *slog.Logger
}

func NewNotifier(db *gorm.DB, weatherProvider WeatherProvider, mailer MailSender, logger *slog.Logger) *Notifier {
	return &Notifier{
		db:      db,
		weather: weatherProvider,
		mailer:  mailer,
		logger:  logger,
	}
}

func (n *Notifier) Notify(ctx context.Context, subscriptionID uuid.UUID) error {
	var sub models.Subscription
	err := n.db.WithContext(ctx).Preload("User").First(&sub, "id = ?", subscriptionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Deleted between scheduling and firing. The task itself is removed
		// with the subscription, so this is only a race window.
		n.logger.Debug("subscription gone, skipping firing", "subscription_id", subscriptionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load subscription: %w", err)
	}

	var cities []models.City
	if err := n.db.WithContext(ctx).
		Where("subscription_id = ?", sub.ID).
		Order("created_at ASC").
		Find(&cities).Error; err != nil {
		return fmt.Errorf("load cities: %w", err)
	}

	if len(cities) == 0 {
		return nil
	}

	var body strings.Builder
	var fetched int
	for _, city := range cities {
		report, err := n.weather.Current(ctx, city.Name)
		if err != nil {
			// One failed city must not cost the rest their update.
			n.logger.Error("weather fetch failed, skipping city",
				"action", "notify",
				"subscription_id", subscriptionID,
				"city", city.Name,
				"error", err)
			continue
		}
		body.WriteString(renderCity(report))
		fetched++
	}

	if fetched == 0 {
		return fmt.Errorf("no weather data for any of %d cities", len(cities))
	}

	if err := n.mailer.Send(ctx, sub.User.Email, emailSubject, body.String()); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("notification sent", "subscription_id", subscriptionID, "cities", fetched)
	return nil
}

func renderCity(r weather.Report) string {
	return fmt.Sprintf(`<p>
    <strong>%s</strong><br>
    Temperature %.1f°C<br>
    Feels like %.1f°C<br>
    %s<br>
    Wind speed %.1f m/s<br>
</p>`, r.City, r.Temperature, r.FeelsLike, r.Description, r.WindSpeed)
}
