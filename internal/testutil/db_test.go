package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/mhorbach/weather-reminder/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupDB_HandlesAreIsolated(t *testing.T) {
	first := SetupDB(t)
	second := SetupDB(t)

	user := models.User{ID: uuid.New(), Email: "test@test.com", Password: "hash"}
	require.NoError(t, first.Create(&user).Error)

	var count int64
	require.NoError(t, second.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	// The same email must be insertable on a fresh handle.
	other := models.User{ID: uuid.New(), Email: "test@test.com", Password: "hash"}
	require.NoError(t, second.Create(&other).Error)
}
