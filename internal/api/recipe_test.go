package api

import (
	"fmt"
	"io/fs"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodgram-project/backend/internal/models"
)

func recipePayload(name string, tags []models.Tag, ingredients []map[string]interface{}) map[string]interface{} {
	tagIDs := make([]string, len(tags))
	for i, tag := range tags {
		tagIDs[i] = tag.ID.String()
	}
	return map[string]interface{}{
		"name":         name,
		"text":         "Mix everything and cook.",
		"image":        testImageDataURI(),
		"cooking_time": 10,
		"tags":         tagIDs,
		"ingredients":  ingredients,
	}
}

func ingredientPair(ing models.Ingredient, amount int) map[string]interface{} {
	return map[string]interface{}{"id": ing.ID.String(), "amount": amount}
}

func TestCreateRecipeRoundTrip(t *testing.T) {
	router, db, authService := setupTestRouter(t)
	_, token := createTestUser(t, db, authService, "author@example.com")
	tags, ingredients := seedCatalog(t, db)

	payload := recipePayload("Porridge", tags[:1], []map[string]interface{}{
		ingredientPair(ingredients[0], 5),
	})

	w := doJSON(t, router, "POST", "/api/v1/recipes", token, payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Equal(t, "Porridge", body["name"])
	assert.Equal(t, false, body["is_favorited"])
	assert.Equal(t, false, body["is_in_shopping_cart"])

	// The created recipe echoes back the exact submitted sets
	gotTags := body["tags"].([]interface{})
	require.Len(t, gotTags, 1)
	assert.Equal(t, "breakfast", gotTags[0].(map[string]interface{})["slug"])

	gotIngredients := body["ingredients"].([]interface{})
	require.Len(t, gotIngredients, 1)
	row := gotIngredients[0].(map[string]interface{})
	assert.Equal(t, "Salt", row["name"])
	assert.Equal(t, "g", row["measurement_unit"])
	assert.Equal(t, float64(5), row["amount"])

	// The image comes back as a stored URL, not a data URI
	assert.Contains(t, body["image"], "/media/recipes/images/")

	// Anonymous detail read works and computes booleans as false
	w = doJSON(t, router, "GET", "/api/v1/recipes/"+body["id"].(string), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["is_favorited"])
}

func TestCreateRecipeValidation(t *testing.T) {
	router, db, authService := setupTestRouter(t)
	_, token := createTestUser(t, db, authService, "author@example.com")
	tags, ingredients := seedCatalog(t, db)

	valid := func() map[string]interface{} {
		return recipePayload("Soup", tags[:1], []map[string]interface{}{
			ingredientPair(ingredients[0], 5),
		})
	}

	cases := []struct {
		name   string
		mutate func(p map[string]interface{})
		field  string
	}{
		{"zero cooking time", func(p map[string]interface{}) { p["cooking_time"] = 0 }, "cooking_time"},
		{"no tags", func(p map[string]interface{}) { p["tags"] = []string{} }, "tags"},
		{"no ingredients", func(p map[string]interface{}) { p["ingredients"] = []map[string]interface{}{} }, "ingredients"},
		{"duplicate tags", func(p map[string]interface{}) {
			p["tags"] = []string{tags[0].ID.String(), tags[0].ID.String()}
		}, "tags"},
		{"duplicate ingredients", func(p map[string]interface{}) {
			p["ingredients"] = []map[string]interface{}{
				ingredientPair(ingredients[0], 5),
				ingredientPair(ingredients[0], 7),
			}
		}, "ingredients"},
		{"zero amount", func(p map[string]interface{}) {
			p["ingredients"] = []map[string]interface{}{ingredientPair(ingredients[0], 0)}
		}, "ingredients"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := valid()
			tc.mutate(payload)
			w := doJSON(t, router, "POST", "/api/v1/recipes", token, payload)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decodeBody(t, w), tc.field)
		})
	}

	// No partial write happened along the way
	var count int64
	require.NoError(t, db.Model(&models.Recipe{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	// cooking_time = 1 is the accepted minimum
	payload := valid()
	payload["cooking_time"] = 1
	w := doJSON(t, router, "POST", "/api/v1/recipes", token, payload)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Anonymous writes are rejected outright
	w = doJSON(t, router, "POST", "/api/v1/recipes", "", valid())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func countMediaFiles(t *testing.T, root string) int {
	t.Helper()
	count := 0
	require.NoError(t, filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			count++
		}
		return nil
	}))
	return count
}

func TestRejectedWriteStoresNoImage(t *testing.T) {
	router, db, authService, mediaRoot := setupTestRouterWithMedia(t)
	_, authorToken := createTestUser(t, db, authService, "author@example.com")
	_, otherToken := createTestUser(t, db, authService, "other@example.com")
	tags, ingredients := seedCatalog(t, db)

	// A create that fails validation must leave the media root untouched
	payload := recipePayload("Burnt toast", tags[:1], []map[string]interface{}{
		ingredientPair(ingredients[0], 1),
	})
	payload["cooking_time"] = 0

	w := doJSON(t, router, "POST", "/api/v1/recipes", authorToken, payload)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, countMediaFiles(t, mediaRoot))

	// The accepted write stores exactly one file
	payload["cooking_time"] = 2
	w = doJSON(t, router, "POST", "/api/v1/recipes", authorToken, payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Equal(t, 1, countMediaFiles(t, mediaRoot))
	recipeID := decodeBody(t, w)["id"].(string)

	// A forbidden update must not store the resubmitted image either
	update := recipePayload("Stolen toast", tags[:1], []map[string]interface{}{
		ingredientPair(ingredients[0], 1),
	})
	w = doJSON(t, router, "PATCH", "/api/v1/recipes/"+recipeID, otherToken, update)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 1, countMediaFiles(t, mediaRoot))
}

func TestUpdateRecipeReplacesSets(t *testing.T) {
	router, db, authService := setupTestRouter(t)
	_, token := createTestUser(t, db, authService, "author@example.com")
	tags, ingredients := seedCatalog(t, db)

	w := doJSON(t, router, "POST", "/api/v1/recipes", token, recipePayload("Bread", tags[:1], []map[string]interface{}{
		ingredientPair(ingredients[0], 5),
	}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	recipeID := decodeBody(t, w)["id"].(string)

	update := recipePayload("Bread v2", tags[1:2], []map[string]interface{}{
		ingredientPair(ingredients[1], 2),
		ingredientPair(ingredients[2], 300),
	})
	delete(update, "image") // keep the stored image

	w = doJSON(t, router, "PATCH", "/api/v1/recipes/"+recipeID, token, update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Equal(t, "Bread v2", body["name"])

	gotTags := body["tags"].([]interface{})
	require.Len(t, gotTags, 1)
	assert.Equal(t, "dinner", gotTags[0].(map[string]interface{})["slug"])

	names := map[string]bool{}
	for _, raw := range body["ingredients"].([]interface{}) {
		names[raw.(map[string]interface{})["name"].(string)] = true
	}
	assert.Equal(t, map[string]bool{"Sugar": true, "Flour": true}, names)

	// No leftover prior ingredient rows remain in the store
	var rows int64
	require.NoError(t, db.Model(&models.RecipeIngredient{}).Where("recipe_id = ?", recipeID).Count(&rows).Error)
	assert.Equal(t, int64(2), rows)
}

func TestUpdateRecipeForbiddenForNonAuthor(t *testing.T) {
	router, db, authService := setupTestRouter(t)
	_, authorToken := createTestUser(t, db, authService, "author@example.com")
	_, otherToken := createTestUser(t, db, authService, "other@example.com")
	tags, ingredients := seedCatalog(t, db)

	w := doJSON(t, router, "POST", "/api/v1/recipes", authorToken, recipePayload("Pie", tags[:1], []map[string]interface{}{
		ingredientPair(ingredients[0], 5),
	}))
	require.Equal(t, http.StatusCreated, w.Code)
	recipeID := decodeBody(t, w)["id"].(string)

	update := recipePayload("Stolen pie", tags[:1], []map[string]interface{}{
		ingredientPair(ingredients[0], 5),
	})
	w = doJSON(t, router, "PATCH", "/api/v1/recipes/"+recipeID, otherToken, update)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, router, "DELETE", "/api/v1/recipes/"+recipeID, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Read access stays open to everyone
	w = doJSON(t, router, "GET", "/api/v1/recipes/"+recipeID, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFavoriteLifecycle(t *testing.T) {
	router, db, authService := setupTestRouter(t)
	_, authorToken := createTestUser(t, db, authService, "author@example.com")
	_, viewerToken := createTestUser(t, db, authService, "viewer@example.com")
	tags, ingredients := seedCatalog(t, db)

	w := doJSON(t, router, "POST", "/api/v1/recipes", authorToken, recipePayload("Cake", tags[:1], []map[string]interface{}{
		ingredientPair(ingredients[1], 200),
	}))
	require.Equal(t, http.StatusCreated, w.Code)
	recipeID := decodeBody(t, w)["id"].(string)

	w = doJSON(t, router, "POST", "/api/v1/recipes/"+recipeID+"/favorite", viewerToken, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	// The action returns the truncated representation
	body := decodeBody(t, w)
	assert.Equal(t, "Cake", body["name"])
	assert.NotContains(t, body, "ingredients")

	// Duplicate creation fails and leaves exactly one edge
	w = doJSON(t, router, "POST", "/api/v1/recipes/"+recipeID+"/favorite", viewerToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var edges int64
	require.NoError(t, db.Model(&models.Favorite{}).Count(&edges).Error)
	assert.Equal(t, int64(1), edges)

	// The viewer sees is_favorited true, anonymous sees false
	w = doJSON(t, router, "GET", "/api/v1/recipes/"+recipeID, viewerToken, nil)
	assert.Equal(t, true, decodeBody(t, w)["is_favorited"])
	w = doJSON(t, router, "GET", "/api/v1/recipes/"+recipeID, "", nil)
	assert.Equal(t, false, decodeBody(t, w)["is_favorited"])

	w = doJSON(t, router, "DELETE", "/api/v1/recipes/"+recipeID+"/favorite", viewerToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// Deleting the missing edge is a client error, not a silent success
	w = doJSON(t, router, "DELETE", "/api/v1/recipes/"+recipeID+"/favorite", viewerToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Favoriting an unknown recipe is a 404
	w = doJSON(t, router, "POST", "/api/v1/recipes/11111111-1111-1111-1111-111111111111/favorite", viewerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestShoppingCartLifecycle(t *testing.T) {
	router, db, authService := setupTestRouter(t)
	_, token := createTestUser(t, db, authService, "cook@example.com")
	tags, ingredients := seedCatalog(t, db)

	w := doJSON(t, router, "POST", "/api/v1/recipes", token, recipePayload("Stew", tags[:1], []map[string]interface{}{
		ingredientPair(ingredients[0], 3),
	}))
	require.Equal(t, http.StatusCreated, w.Code)
	recipeID := decodeBody(t, w)["id"].(string)

	w = doJSON(t, router, "POST", "/api/v1/recipes/"+recipeID+"/shopping_cart", token, nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, "POST", "/api/v1/recipes/"+recipeID+"/shopping_cart", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "DELETE", "/api/v1/recipes/"+recipeID+"/shopping_cart", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, "DELETE", "/api/v1/recipes/"+recipeID+"/shopping_cart", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDownloadShoppingCart(t *testing.T) {
	router, db, authService := setupTestRouter(t)
	_, token := createTestUser(t, db, authService, "cook@example.com")
	tags, ingredients := seedCatalog(t, db)

	// Two recipes sharing Salt: 5 + 10 must aggregate into one line
	first := recipePayload("Soup", tags[:1], []map[string]interface{}{
		ingredientPair(ingredients[0], 5),
		ingredientPair(ingredients[2], 300),
	})
	second := recipePayload("Marinade", tags[1:2], []map[string]interface{}{
		ingredientPair(ingredients[0], 10),
	})

	for _, payload := range []map[string]interface{}{first, second} {
		w := doJSON(t, router, "POST", "/api/v1/recipes", token, payload)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		recipeID := decodeBody(t, w)["id"].(string)
		w = doJSON(t, router, "POST", "/api/v1/recipes/"+recipeID+"/shopping_cart", token, nil)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, router, "GET", "/api/v1/recipes/download_shopping_cart", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	// Alphabetical: Flour before Salt, summed amounts
	expected := "Flour (g) - 300\nSalt (g) - 15\n"
	assert.Equal(t, expected, w.Body.String())

	// Anonymous download is an authorization error
	w = doJSON(t, router, "GET", "/api/v1/recipes/download_shopping_cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListRecipesFilters(t *testing.T) {
	router, db, authService := setupTestRouter(t)
	authorA, tokenA := createTestUser(t, db, authService, "a@example.com")
	_, tokenB := createTestUser(t, db, authService, "b@example.com")
	tags, ingredients := seedCatalog(t, db)

	w := doJSON(t, router, "POST", "/api/v1/recipes", tokenA, recipePayload("Omelette", tags[:1], []map[string]interface{}{
		ingredientPair(ingredients[0], 1),
	}))
	require.Equal(t, http.StatusCreated, w.Code)
	omeletteID := decodeBody(t, w)["id"].(string)

	w = doJSON(t, router, "POST", "/api/v1/recipes", tokenB, recipePayload("Roast", tags[1:2], []map[string]interface{}{
		ingredientPair(ingredients[0], 2),
	}))
	require.Equal(t, http.StatusCreated, w.Code)

	list := func(path, token string) []interface{} {
		w := doJSON(t, router, "GET", path, token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		return decodeBody(t, w)["results"].([]interface{})
	}

	// Tag filter, OR across repeatable slugs
	assert.Len(t, list("/api/v1/recipes?tags=breakfast", ""), 1)
	assert.Len(t, list("/api/v1/recipes?tags=breakfast&tags=dinner", ""), 2)
	assert.Len(t, list("/api/v1/recipes?tags=nosuch", ""), 0)

	// Author filter
	assert.Len(t, list(fmt.Sprintf("/api/v1/recipes?author=%s", authorA.ID), ""), 1)

	// Membership filters are inert for anonymous viewers
	assert.Len(t, list("/api/v1/recipes?is_favorited=1", ""), 2)
	assert.Len(t, list("/api/v1/recipes?is_in_shopping_cart=1", ""), 2)

	// ...and bind for authenticated ones
	w = doJSON(t, router, "POST", "/api/v1/recipes/"+omeletteID+"/favorite", tokenB, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	favorites := list("/api/v1/recipes?is_favorited=1", tokenB)
	require.Len(t, favorites, 1)
	assert.Equal(t, "Omelette", favorites[0].(map[string]interface{})["name"])

	w = doJSON(t, router, "POST", "/api/v1/recipes/"+omeletteID+"/shopping_cart", tokenB, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	carted := list("/api/v1/recipes?is_in_shopping_cart=1", tokenB)
	require.Len(t, carted, 1)
	assert.Equal(t, "Omelette", carted[0].(map[string]interface{})["name"])

	// A viewer with an empty cart filters down to nothing
	assert.Len(t, list("/api/v1/recipes?is_in_shopping_cart=1", tokenA), 0)
}

func TestListRecipesPagination(t *testing.T) {
	router, db, authService := setupTestRouter(t)
	_, token := createTestUser(t, db, authService, "author@example.com")
	tags, ingredients := seedCatalog(t, db)

	for i := 0; i < 3; i++ {
		w := doJSON(t, router, "POST", "/api/v1/recipes", token, recipePayload(fmt.Sprintf("Dish %d", i), tags[:1], []map[string]interface{}{
			ingredientPair(ingredients[0], 1),
		}))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, router, "GET", "/api/v1/recipes?limit=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(3), body["count"])
	assert.Len(t, body["results"].([]interface{}), 2)

	w = doJSON(t, router, "GET", "/api/v1/recipes?limit=2&page=2", "", nil)
	body = decodeBody(t, w)
	assert.Len(t, body["results"].([]interface{}), 1)
}
