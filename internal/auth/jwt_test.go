package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamline/beamline/internal/models"
)

func testUser() *models.User {
	return &models.User{
		ID:        uuid.New(),
		CompanyID: uuid.New(),
		Email:     "pm@example.com",
		Role:      models.RoleManager,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	user := testUser()

	token, err := svc.Generate(user)
	require.NoError(t, err)

	id, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id.UserID)
	assert.Equal(t, user.CompanyID, id.CompanyID)
	assert.Equal(t, user.Email, id.Email)
	assert.Equal(t, models.RoleManager, id.Role)
	assert.False(t, id.ServiceKey)
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a", time.Hour).Generate(testUser())
	require.NoError(t, err)

	_, err = NewTokenService("secret-b", time.Hour).Validate(token)
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	svc := NewTokenService("test-secret", -time.Minute)
	token, err := svc.Generate(testUser())
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.Error(t, err)
}

func TestTokenGarbage(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	_, err := svc.Validate("not.a.jwt")
	assert.Error(t, err)
}
