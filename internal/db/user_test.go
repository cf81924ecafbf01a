package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/school-transit/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func userTestCollection(t *testing.T) *MongoUserCollection {
	t.Helper()
	client, err := ConnectMongo()
	if err != nil {
		t.Skipf("failed to create client: %v, skipping integration test", err)
	}
	t.Cleanup(func() { client.Disconnect(context.Background()) })

	collection := client.Database("test_school_transit").Collection("users")
	collection.Drop(context.Background())
	return &MongoUserCollection{Collection: collection}
}

func seedParent(t *testing.T, users *MongoUserCollection) models.User {
	t.Helper()
	user := models.User{
		Username:     "parent.wanjiru",
		Email:        "wanjiru@example.com",
		PasswordHash: "bcrypt-hash",
		Role:         models.RoleParent,
		FirstName:    "Grace",
		LastName:     "Wanjiru",
	}
	require.NoError(t, users.InsertUser(context.Background(), user))

	stored, err := users.FindUserByUsername(context.Background(), user.Username)
	require.NoError(t, err)
	return *stored
}

func TestMongoUserCollection_InsertAndFindByUsername(t *testing.T) {
	users := userTestCollection(t)
	stored := seedParent(t, users)

	assert.Equal(t, "parent.wanjiru", stored.Username)
	assert.Equal(t, models.RoleParent, stored.Role)
	assert.True(t, stored.IsActive)
	assert.NotZero(t, stored.CreatedAt)
	assert.NotZero(t, stored.UpdatedAt)
}

func TestMongoUserCollection_FindUserByUsername_Unknown(t *testing.T) {
	users := userTestCollection(t)

	_, err := users.FindUserByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMongoUserCollection_FindUserByID(t *testing.T) {
	users := userTestCollection(t)
	stored := seedParent(t, users)

	found, err := users.FindUserByID(context.Background(), stored.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, stored.Username, found.Username)

	_, err = users.FindUserByID(context.Background(), primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = users.FindUserByID(context.Background(), "not-a-hex-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMongoUserCollection_FindUserByEmail(t *testing.T) {
	users := userTestCollection(t)
	seedParent(t, users)

	found, err := users.FindUserByEmail(context.Background(), "wanjiru@example.com")
	require.NoError(t, err)
	assert.Equal(t, "parent.wanjiru", found.Username)

	_, err = users.FindUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMongoUserCollection_UpdatePassword(t *testing.T) {
	users := userTestCollection(t)
	stored := seedParent(t, users)

	require.NoError(t, users.UpdatePassword(context.Background(), stored.ID.Hex(), "new-bcrypt-hash"))

	found, err := users.FindUserByID(context.Background(), stored.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "new-bcrypt-hash", found.PasswordHash)

	err = users.UpdatePassword(context.Background(), primitive.NewObjectID().Hex(), "hash")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMongoUserCollection_UpdateLastLogin(t *testing.T) {
	users := userTestCollection(t)
	stored := seedParent(t, users)

	require.NoError(t, users.UpdateLastLogin(context.Background(), stored.ID.Hex()))

	var raw bson.M
	err := users.Collection.FindOne(context.Background(), bson.M{"_id": stored.ID}).Decode(&raw)
	require.NoError(t, err)
	assert.Contains(t, raw, "last_login")
}
