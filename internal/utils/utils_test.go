package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateID(t *testing.T) {
	id := GenerateID("tfr")
	assert.True(t, strings.HasPrefix(id, "tfr-"))
	assert.Len(t, id, len("tfr-")+10)
	assert.NotEqual(t, id, GenerateID("tfr"))
}

func TestGenerateAccountNumber(t *testing.T) {
	for i := 0; i < 50; i++ {
		n := GenerateAccountNumber()
		assert.True(t, ValidateAccountNumber(n), n)
		assert.NotEqual(t, byte('0'), n[0])
	}
}

func TestValidateAccountNumber(t *testing.T) {
	assert.True(t, ValidateAccountNumber("402918738118"))
	assert.False(t, ValidateAccountNumber("8118"))
	assert.False(t, ValidateAccountNumber("40291873811a"))
}

func TestNewSessionID(t *testing.T) {
	_, err := uuid.Parse(NewSessionID())
	require.NoError(t, err)
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("password123")
	require.NoError(t, err)
	assert.True(t, CheckPassword("password123", hash))
	assert.False(t, CheckPassword("wrong", hash))
}

func TestParseDateBound(t *testing.T) {
	from, err := ParseDateBound("2025-03-01", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), from)

	to, err := ParseDateBound("2025-03-31", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 31, 23, 59, 59, 999999999, time.UTC), to)

	exact, err := ParseDateBound("2025-03-31T10:00:00+02:00", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 31, 8, 0, 0, 0, time.UTC), exact)

	_, err = ParseDateBound("last week", false)
	assert.Error(t, err)
}
