package helpers_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collabhub/collabhub/pkg/helpers"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := helpers.NewJWTManager("access", "refresh", time.Minute, time.Hour)

	access, aexp, err := m.GenerateAccessToken("gh_1", "sid-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), aexp, 5*time.Second)

	claims, err := m.ParseAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, "gh_1", claims.UserID)
	assert.Equal(t, "sid-1", claims.SessionID)

	_, err = m.ParseRefreshToken(access)
	assert.Error(t, err, "access tokens are not valid refresh tokens")
}

func TestJWTManager_Expired(t *testing.T) {
	m := helpers.NewJWTManager("access", "refresh", -time.Minute, time.Hour)

	access, _, err := m.GenerateAccessToken("gh_1", "sid-1")
	require.NoError(t, err)

	_, err = m.ParseAccessToken(access)
	assert.Error(t, err)
}
