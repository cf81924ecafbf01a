package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/school-transit/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func driverUser() *models.User {
	return &models.User{
		ID:       primitive.NewObjectID(),
		Username: "driver.kamau",
		Role:     models.RoleDriver,
	}
}

func TestNewService(t *testing.T) {
	service, err := NewService()
	assert.NoError(t, err)
	assert.NotNil(t, service)
	assert.NotEmpty(t, service.jwtSecret)
	assert.Equal(t, 24*time.Hour, service.tokenExp)
}

func TestService_HashAndCheckPassword(t *testing.T) {
	service, _ := NewService()

	hash, err := service.HashPassword("route-14-rain-or-shine")
	require.NoError(t, err)
	assert.NotEqual(t, "route-14-rain-or-shine", hash)

	assert.True(t, service.CheckPassword("route-14-rain-or-shine", hash))
	assert.False(t, service.CheckPassword("wrong-password", hash))
}

func TestService_TokenRoundTrip(t *testing.T) {
	service, _ := NewService()
	user := driverUser()

	token, err := service.GenerateToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, user.Username, claims.Username)
	assert.Equal(t, models.RoleDriver, claims.Role)
	assert.Greater(t, claims.Exp, time.Now().Unix())
}

func TestService_ValidateToken_AcceptsBearerPrefix(t *testing.T) {
	service, _ := NewService()
	token, _ := service.GenerateToken(driverUser())

	claims, err := service.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "driver.kamau", claims.Username)
}

func TestService_ValidateToken_RejectsGarbage(t *testing.T) {
	service, _ := NewService()

	_, err := service.ValidateToken("not-a-token")
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_ValidateToken_RejectsExpired(t *testing.T) {
	service, _ := NewService()
	service.tokenExp = -time.Minute

	token, err := service.GenerateToken(driverUser())
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.Equal(t, ErrExpiredToken, err)
}

func TestService_ValidateToken_RejectsForeignIssuer(t *testing.T) {
	service, _ := NewService()

	claims := jwt.MapClaims{
		"iss":      "some-other-deployment",
		"user_id":  primitive.NewObjectID().Hex(),
		"username": "driver.kamau",
		"role":     string(models.RoleDriver),
		"exp":      time.Now().Add(time.Hour).Unix(),
		"iat":      time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(service.jwtSecret)
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_ValidateToken_RejectsWrongSecret(t *testing.T) {
	service, _ := NewService()
	other := &Service{jwtSecret: []byte("a-different-secret"), tokenExp: time.Hour}

	token, err := other.GenerateToken(driverUser())
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_ValidatePassword(t *testing.T) {
	service, _ := NewService()

	assert.NoError(t, service.ValidatePassword("longenough"))
	assert.Error(t, service.ValidatePassword("short"))
}

func TestService_ValidateEmail(t *testing.T) {
	service, _ := NewService()

	assert.NoError(t, service.ValidateEmail("parent@school.ac.ke"))
	assert.Error(t, service.ValidateEmail("not-an-email"))
	assert.Error(t, service.ValidateEmail("missing@tld"))
}

func TestService_ValidateUsername(t *testing.T) {
	service, _ := NewService()

	assert.NoError(t, service.ValidateUsername("driver.kamau"))
	assert.Error(t, service.ValidateUsername("ab"))
}
