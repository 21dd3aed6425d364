package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/foodgram-project/backend/internal/database"
	"github.com/foodgram-project/backend/internal/middleware"
	"github.com/foodgram-project/backend/internal/models"
	"github.com/foodgram-project/backend/internal/service"
)

// setupTestDB creates an isolated in-memory database per test
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.RunMigrations(db))
	return db
}

// setupTestRouter wires the handlers the way cmd/api does, minus Redis
// and S3, storing images under a temp dir
func setupTestRouter(t *testing.T) (*gin.Engine, *gorm.DB, *service.AuthService) {
	t.Helper()
	router, db, authService, _ := setupTestRouterWithMedia(t)
	return router, db, authService
}

// setupTestRouterWithMedia additionally exposes the media root, for
// tests that inspect what image files the handlers leave behind
func setupTestRouterWithMedia(t *testing.T) (*gin.Engine, *gorm.DB, *service.AuthService, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := setupTestDB(t)
	mediaRoot := t.TempDir()
	authService := service.NewAuthService(db, "test-secret")
	imageService := service.NewImageService(nil, mediaRoot, "/media/")
	recipeService := service.NewRecipeService(db, imageService)
	subscriptionService := service.NewSubscriptionService(db)

	authHandler := NewAuthHandler(authService)
	userHandler := NewUserHandler(db, subscriptionService, recipeService)
	tagHandler := NewTagHandler(db)
	ingredientHandler := NewIngredientHandler(db)
	recipeHandler := NewRecipeHandler(recipeService, subscriptionService)

	requireAuth := middleware.AuthMiddleware(authService)
	optionalAuth := middleware.OptionalAuthMiddleware(authService)

	router := gin.New()
	v1 := router.Group("/api/v1")

	v1.POST("/auth/register", authHandler.Register)
	v1.POST("/auth/login", authHandler.Login)

	v1.GET("/users", optionalAuth, userHandler.ListUsers)
	v1.GET("/users/me", requireAuth, userHandler.Me)
	v1.GET("/users/subscriptions", requireAuth, userHandler.Subscriptions)
	v1.GET("/users/:id", optionalAuth, userHandler.GetUser)
	v1.POST("/users/:id/subscribe", requireAuth, userHandler.Subscribe)
	v1.DELETE("/users/:id/subscribe", requireAuth, userHandler.Unsubscribe)

	v1.GET("/tags", tagHandler.ListTags)
	v1.GET("/tags/:id", tagHandler.GetTag)
	v1.GET("/ingredients", ingredientHandler.ListIngredients)
	v1.GET("/ingredients/:id", ingredientHandler.GetIngredient)

	v1.GET("/recipes", optionalAuth, recipeHandler.ListRecipes)
	v1.GET("/recipes/download_shopping_cart", requireAuth, recipeHandler.DownloadShoppingCart)
	v1.GET("/recipes/:id", optionalAuth, recipeHandler.GetRecipe)
	v1.POST("/recipes", requireAuth, recipeHandler.CreateRecipe)
	v1.PATCH("/recipes/:id", requireAuth, recipeHandler.UpdateRecipe)
	v1.DELETE("/recipes/:id", requireAuth, recipeHandler.DeleteRecipe)
	v1.POST("/recipes/:id/favorite", requireAuth, recipeHandler.FavoriteRecipe)
	v1.DELETE("/recipes/:id/favorite", requireAuth, recipeHandler.UnfavoriteRecipe)
	v1.POST("/recipes/:id/shopping_cart", requireAuth, recipeHandler.AddToShoppingCart)
	v1.DELETE("/recipes/:id/shopping_cart", requireAuth, recipeHandler.RemoveFromShoppingCart)

	return router, db, authService, mediaRoot
}

// createTestUser registers a user and returns the record plus a token
func createTestUser(t *testing.T, db *gorm.DB, authService *service.AuthService, email string) (models.User, string) {
	t.Helper()

	username := strings.SplitN(email, "@", 2)[0]
	token, err := authService.Register(email, username, "Test", "User", "testpassword123")
	require.NoError(t, err)

	var user models.User
	require.NoError(t, db.First(&user, "email = ?", email).Error)
	return user, token
}

// seedCatalog creates the reference data the recipe tests build on
func seedCatalog(t *testing.T, db *gorm.DB) (tags []models.Tag, ingredients []models.Ingredient) {
	t.Helper()

	tags = []models.Tag{
		{Name: "Breakfast", Color: "#E26C2D", Slug: "breakfast"},
		{Name: "Dinner", Color: "#49B64E", Slug: "dinner"},
	}
	require.NoError(t, db.Create(&tags).Error)

	ingredients = []models.Ingredient{
		{Name: "Salt", MeasurementUnit: "g"},
		{Name: "Sugar", MeasurementUnit: "g"},
		{Name: "Flour", MeasurementUnit: "g"},
	}
	require.NoError(t, db.Create(&ingredients).Error)
	return tags, ingredients
}

func testImageDataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("not a real png"))
}

// doJSON sends a JSON request through the router
func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
