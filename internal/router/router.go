package router

import (
	"github.com/gin-gonic/gin"

	"github.com/foodgram-project/backend/config"
	"github.com/foodgram-project/backend/internal/api"
	"github.com/foodgram-project/backend/internal/middleware"
)

// Handlers groups everything the router wires up
type Handlers struct {
	Auth        *api.AuthHandler
	Users       *api.UserHandler
	Tags        *api.TagHandler
	Ingredients *api.IngredientHandler
	Recipes     *api.RecipeHandler
	Health      *api.HealthHandler
}

// SetupRouter configures the application routes. rateLimit may be nil
// when Redis is not configured; serveMedia switches on the local media
// file server used without S3.
func SetupRouter(h Handlers, validator middleware.TokenValidator, rateLimit *middleware.RateLimiter, cfg *config.Config, serveMedia bool) *gin.Engine {
	router := gin.Default()
	router.Use(middleware.CORS())

	router.GET("/health", h.Health.Check)
	if serveMedia {
		router.Static(cfg.MediaURL, cfg.MediaRoot)
	}

	requireAuth := middleware.AuthMiddleware(validator)
	optionalAuth := middleware.OptionalAuthMiddleware(validator)

	writeGuard := []gin.HandlerFunc{requireAuth}
	if rateLimit != nil {
		writeGuard = append(writeGuard, rateLimit.Middleware())
	}
	guarded := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		chain := make([]gin.HandlerFunc, 0, len(writeGuard)+1)
		chain = append(chain, writeGuard...)
		return append(chain, handler)
	}

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
	}

	users := v1.Group("/users")
	{
		users.GET("", optionalAuth, h.Users.ListUsers)
		users.GET("/me", requireAuth, h.Users.Me)
		users.GET("/subscriptions", requireAuth, h.Users.Subscriptions)
		users.GET("/:id", optionalAuth, h.Users.GetUser)
		users.POST("/:id/subscribe", requireAuth, h.Users.Subscribe)
		users.DELETE("/:id/subscribe", requireAuth, h.Users.Unsubscribe)
	}

	tags := v1.Group("/tags")
	{
		tags.GET("", h.Tags.ListTags)
		tags.GET("/:id", h.Tags.GetTag)
	}

	ingredients := v1.Group("/ingredients")
	{
		ingredients.GET("", h.Ingredients.ListIngredients)
		ingredients.GET("/:id", h.Ingredients.GetIngredient)
	}

	recipes := v1.Group("/recipes")
	{
		recipes.GET("", optionalAuth, h.Recipes.ListRecipes)
		recipes.GET("/download_shopping_cart", requireAuth, h.Recipes.DownloadShoppingCart)
		recipes.GET("/:id", optionalAuth, h.Recipes.GetRecipe)
		recipes.POST("", guarded(h.Recipes.CreateRecipe)...)
		recipes.PATCH("/:id", guarded(h.Recipes.UpdateRecipe)...)
		recipes.PUT("/:id", guarded(h.Recipes.UpdateRecipe)...)
		recipes.DELETE("/:id", requireAuth, h.Recipes.DeleteRecipe)
		recipes.POST("/:id/favorite", requireAuth, h.Recipes.FavoriteRecipe)
		recipes.DELETE("/:id/favorite", requireAuth, h.Recipes.UnfavoriteRecipe)
		recipes.POST("/:id/shopping_cart", requireAuth, h.Recipes.AddToShoppingCart)
		recipes.DELETE("/:id/shopping_cart", requireAuth, h.Recipes.RemoveFromShoppingCart)
	}

	return router
}
