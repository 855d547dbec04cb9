package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mhorbach/weather-reminder/internal/models"
	"github.com/mhorbach/weather-reminder/internal/testutil"
	"github.com/mhorbach/weather-reminder/internal/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sentMail struct {
	to      string
	subject string
	body    string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

type cityWeather struct {
	reports map[string]weather.Report
	failing map[string]bool
}

func (c *cityWeather) Current(_ context.Context, city string) (weather.Report, error) {
	if c.failing[city] {
		return weather.Report{}, errors.New("upstream failure")
	}
	r, ok := c.reports[city]
	if !ok {
		return weather.Report{}, weather.ErrCityNotFound
	}
	return r, nil
}

func seedSubscription(t *testing.T, db *gorm.DB, cities ...string) models.Subscription {
	t.Helper()
	user := models.User{ID: uuid.New(), Email: "test@test.com", Password: "hash"}
	require.NoError(t, db.Create(&user).Error)

	sub := models.Subscription{ID: uuid.New(), UserID: user.ID, PeriodNotifications: 3}
	require.NoError(t, db.Create(&sub).Error)

	base := time.Now().UTC()
	for i, name := range cities {
		city := models.City{
			ID:             uuid.New(),
			SubscriptionID: sub.ID,
			Name:           name,
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, db.Create(&city).Error)
	}
	return sub
}

func testWeather() *cityWeather {
	return &cityWeather{
		reports: map[string]weather.Report{
			"London": {City: "London", Temperature: 15.3, FeelsLike: 14.1, Description: "light rain", WindSpeed: 4.2},
			"Berlin": {City: "Berlin", Temperature: 21.0, FeelsLike: 20.4, Description: "clear sky", WindSpeed: 2.8},
		},
		failing: map[string]bool{},
	}
}

func newTestNotifier(db *gorm.DB, wc *cityWeather, m *fakeMailer) *Notifier {
	return NewNotifier(db, wc, m, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNotify_ZeroCitiesSendsNothing(t *testing.T) {
	db := testutil.SetupDB(t)
	mailer := &fakeMailer{}
	sub := seedSubscription(t, db)

	n := newTestNotifier(db, testWeather(), mailer)
	require.NoError(t, n.Notify(context.Background(), sub.ID))
	assert.Empty(t, mailer.sent)
}

func TestNotify_OneEmailWithCitiesInOrder(t *testing.T) {
	db := testutil.SetupDB(t)
	mailer := &fakeMailer{}
	sub := seedSubscription(t, db, "London", "Berlin")

	n := newTestNotifier(db, testWeather(), mailer)
	require.NoError(t, n.Notify(context.Background(), sub.ID))

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "test@test.com", msg.to)
	assert.Equal(t, "Weather notification", msg.subject)
	assert.Contains(t, msg.body, "London")
	assert.Contains(t, msg.body, "Berlin")
	assert.Contains(t, msg.body, "light rain")
	assert.Contains(t, msg.body, "clear sky")
	assert.Less(t, strings.Index(msg.body, "London"), strings.Index(msg.body, "Berlin"))
}

func TestNotify_MissingSubscriptionIsSilentSkip(t *testing.T) {
	db := testutil.SetupDB(t)
	mailer := &fakeMailer{}

	n := newTestNotifier(db, testWeather(), mailer)
	require.NoError(t, n.Notify(context.Background(), uuid.New()))
	assert.Empty(t, mailer.sent)
}

func TestNotify_FailedCityIsSkipped(t *testing.T) {
	db := testutil.SetupDB(t)
	mailer := &fakeMailer{}
	sub := seedSubscription(t, db, "London", "Berlin")

	wc := testWeather()
	wc.failing["London"] = true

	n := newTestNotifier(db, wc, mailer)
	require.NoError(t, n.Notify(context.Background(), sub.ID))

	require.Len(t, mailer.sent, 1)
	assert.NotContains(t, mailer.sent[0].body, "London")
	assert.Contains(t, mailer.sent[0].body, "Berlin")
}

func TestNotify_AllCitiesFailedSendsNothing(t *testing.T) {
	db := testutil.SetupDB(t)
	mailer := &fakeMailer{}
	sub := seedSubscription(t, db, "London", "Berlin")

	wc := testWeather()
	wc.failing["London"] = true
	wc.failing["Berlin"] = true

	n := newTestNotifier(db, wc, mailer)
	require.Error(t, n.Notify(context.Background(), sub.ID))
	assert.Empty(t, mailer.sent)
}

func TestNotify_MailerFailurePropagates(t *testing.T) {
	db := testutil.SetupDB(t)
	mailer := &fakeMailer{err: errors.New("sendgrid down")}
	sub := seedSubscription(t, db, "London")

	n := newTestNotifier(db, testWeather(), mailer)
	require.Error(t, n.Notify(context.Background(), sub.ID))
}
