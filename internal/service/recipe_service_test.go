package service

import (
	"context"
	"encoding/base64"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/foodgram-project/backend/internal/models"
)

func seedRecipe(t *testing.T, db *gorm.DB) (models.User, models.Recipe) {
	t.Helper()
	user := models.User{
		Email:        "author@example.com",
		Username:     "author",
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(&user).Error)

	recipe := models.Recipe{
		AuthorID:    user.ID,
		Name:        "Toast",
		Image:       "/media/recipes/images/toast.png",
		Text:        "Toast the bread.",
		CookingTime: 2,
	}
	require.NoError(t, db.Create(&recipe).Error)
	return user, recipe
}

func TestCreateRejectedInputStoresNoImage(t *testing.T) {
	db := setupTestDB(t)
	mediaRoot := t.TempDir()
	recipes := NewRecipeService(db, NewImageService(nil, mediaRoot, "/media/"))

	tag := models.Tag{Name: "Breakfast", Color: "#E26C2D", Slug: "breakfast"}
	require.NoError(t, db.Create(&tag).Error)
	user, _ := seedRecipe(t, db)

	_, err := recipes.Create(context.Background(), user.ID, RecipeInput{
		Name:        "Burnt toast",
		Text:        "Forget it in the toaster.",
		Image:       "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("img")),
		CookingTime: 0,
		TagIDs:      []uuid.UUID{tag.ID},
		Ingredients: []IngredientAmount{{ID: uuid.New(), Amount: 1}},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	entries, err := os.ReadDir(mediaRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAddFavoriteStoreFailure(t *testing.T) {
	db := setupTestDB(t)
	recipes := NewRecipeService(db, NewImageService(nil, t.TempDir(), "/media/"))
	user, recipe := seedRecipe(t, db)

	require.NoError(t, db.Exec(
		"CREATE TRIGGER favorites_block BEFORE INSERT ON favorites BEGIN SELECT RAISE(ABORT, 'store failure'); END",
	).Error)

	// An insert failure with no existing edge is not a duplicate
	_, err := recipes.AddFavorite(context.Background(), user.ID, recipe.ID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyExists)
	assert.Contains(t, err.Error(), "store failure")
}

func TestSubscribeStoreFailure(t *testing.T) {
	db := setupTestDB(t)
	subs := NewSubscriptionService(db)
	author, _ := seedRecipe(t, db)

	follower := models.User{
		Email:        "follower@example.com",
		Username:     "follower",
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(&follower).Error)

	require.NoError(t, db.Exec(
		"CREATE TRIGGER subscriptions_block BEFORE INSERT ON subscriptions BEGIN SELECT RAISE(ABORT, 'store failure'); END",
	).Error)

	_, err := subs.Subscribe(context.Background(), follower.ID, author.ID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyExists)
	assert.Contains(t, err.Error(), "store failure")
}
