package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mhorbach/weather-reminder/internal/models"
	"github.com/mhorbach/weather-reminder/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingRunner struct {
	calls chan uuid.UUID
}

func newRecordingRunner() *recordingRunner {
	return &recordingRunner{calls: make(chan uuid.UUID, 16)}
}

func (r *recordingRunner) Notify(_ context.Context, subscriptionID uuid.UUID) error {
	r.calls <- subscriptionID
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSubscription(t *testing.T, db *gorm.DB, period int) models.Subscription {
	t.Helper()
	user := models.User{ID: uuid.New(), Email: uuid.NewString() + "@test.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)

	sub := models.Subscription{ID: uuid.New(), UserID: user.ID, PeriodNotifications: period}
	require.NoError(t, db.Create(&sub).Error)
	return sub
}

func TestCreate_OneTaskPerPeriod(t *testing.T) {
	db := testutil.SetupDB(t)
	s := New(db, newRecordingRunner(), clockwork.NewFakeClock(), time.Hour, discardLogger())
	defer s.Stop()

	for _, period := range models.ValidPeriods {
		sub := newSubscription(t, db, period)
		s.Create(sub)

		interval, ok := s.Interval(sub.ID)
		require.True(t, ok)
		assert.Equal(t, time.Duration(period)*time.Hour, interval)
	}

	assert.Equal(t, len(models.ValidPeriods), s.TaskCount())
}

func TestCreate_Upserts(t *testing.T) {
	db := testutil.SetupDB(t)
	s := New(db, newRecordingRunner(), clockwork.NewFakeClock(), time.Hour, discardLogger())
	defer s.Stop()

	sub := newSubscription(t, db, 3)
	s.Create(sub)
	s.Create(sub)

	assert.Equal(t, 1, s.TaskCount())
}

func TestUpdate_ChangesIntervalWithoutSecondTask(t *testing.T) {
	db := testutil.SetupDB(t)
	s := New(db, newRecordingRunner(), clockwork.NewFakeClock(), time.Hour, discardLogger())
	defer s.Stop()

	sub := newSubscription(t, db, 3)
	s.Create(sub)

	sub.PeriodNotifications = 12
	s.Update(sub)

	assert.Equal(t, 1, s.TaskCount())
	interval, ok := s.Interval(sub.ID)
	require.True(t, ok)
	assert.Equal(t, 12*time.Hour, interval)
}

func TestRemove_DropsTask(t *testing.T) {
	db := testutil.SetupDB(t)
	s := New(db, newRecordingRunner(), clockwork.NewFakeClock(), time.Hour, discardLogger())
	defer s.Stop()

	sub := newSubscription(t, db, 6)
	s.Create(sub)
	s.Remove(sub.ID)

	assert.Equal(t, 0, s.TaskCount())
	_, ok := s.Interval(sub.ID)
	assert.False(t, ok)
}

func TestRemove_NoopWhenAbsent(t *testing.T) {
	db := testutil.SetupDB(t)
	s := New(db, newRecordingRunner(), clockwork.NewFakeClock(), time.Hour, discardLogger())
	defer s.Stop()

	s.Remove(uuid.New())
	assert.Equal(t, 0, s.TaskCount())
}

func TestStart_LoadsStoredSubscriptions(t *testing.T) {
	db := testutil.SetupDB(t)
	first := newSubscription(t, db, 1)
	second := newSubscription(t, db, 6)

	s := New(db, newRecordingRunner(), clockwork.NewFakeClock(), time.Hour, discardLogger())
	defer s.Stop()

	require.NoError(t, s.Start())
	assert.Equal(t, 2, s.TaskCount())

	interval, ok := s.Interval(first.ID)
	require.True(t, ok)
	assert.Equal(t, 1*time.Hour, interval)

	interval, ok = s.Interval(second.ID)
	require.True(t, ok)
	assert.Equal(t, 6*time.Hour, interval)
}

func TestFiring_InvokesRunnerWithSubscriptionID(t *testing.T) {
	db := testutil.SetupDB(t)
	runner := newRecordingRunner()
	clock := clockwork.NewFakeClock()

	s := New(db, runner, clock, time.Hour, discardLogger())
	defer s.Stop()

	sub := newSubscription(t, db, 1)
	s.Create(sub)

	clock.BlockUntil(1)
	clock.Advance(time.Hour)

	select {
	case id := <-runner.calls:
		assert.Equal(t, sub.ID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("runner was not invoked after the interval elapsed")
	}
}

func TestStop_CancelsTasks(t *testing.T) {
	db := testutil.SetupDB(t)
	runner := newRecordingRunner()
	clock := clockwork.NewFakeClock()

	s := New(db, runner, clock, time.Hour, discardLogger())
	sub := newSubscription(t, db, 1)
	s.Create(sub)

	clock.BlockUntil(1)
	s.Stop()
	assert.Equal(t, 0, s.TaskCount())
}
