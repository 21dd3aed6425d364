package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/foodgram-project/backend/internal/middleware"
	"github.com/foodgram-project/backend/internal/models"
	"github.com/foodgram-project/backend/internal/service"
)

type RecipeHandler struct {
	recipes       *service.RecipeService
	subscriptions *service.SubscriptionService
}

func NewRecipeHandler(recipes *service.RecipeService, subscriptions *service.SubscriptionService) *RecipeHandler {
	return &RecipeHandler{
		recipes:       recipes,
		subscriptions: subscriptions,
	}
}

func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	page, limit := parsePagination(c)
	filter := service.RecipeFilter{
		Favorited:      boolParam(c, "is_favorited"),
		InShoppingCart: boolParam(c, "is_in_shopping_cart"),
		Page:           page,
		Limit:          limit,
	}

	if author := c.Query("author"); author != "" {
		id, err := uuid.Parse(author)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid author id"})
			return
		}
		filter.Author = &id
	}

	// tags is repeatable, tag accepted as a legacy spelling
	slugs := append(c.QueryArray("tags"), c.QueryArray("tag")...)
	for _, slug := range slugs {
		if slug = strings.TrimSpace(slug); slug != "" {
			filter.TagSlugs = append(filter.TagSlugs, slug)
		}
	}

	// Membership filters only bind for authenticated viewers; for
	// anonymous requests they pass through as no-ops.
	if viewer, ok := middleware.ViewerID(c); ok {
		filter.Viewer = &viewer
	}

	recipes, total, err := h.recipes.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	results, err := h.buildRecipeResponses(c, recipes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pageResponse{Count: total, Results: results})
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return
	}

	recipe, err := h.recipes.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	results, err := h.buildRecipeResponses(c, []models.Recipe{*recipe})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results[0])
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	viewer, ok := middleware.ViewerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req recipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Image == "" {
		c.JSON(http.StatusBadRequest, gin.H{"image": "this field is required"})
		return
	}

	recipe, err := h.recipes.Create(c.Request.Context(), viewer, toRecipeInput(req))
	if err != nil {
		respondError(c, err)
		return
	}

	// Writes are re-rendered through the read representation
	results, err := h.buildRecipeResponses(c, []models.Recipe{*recipe})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, results[0])
}

func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return
	}

	viewer, ok := middleware.ViewerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req recipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	isAdmin, err := h.viewerIsAdmin(c, viewer)
	if err != nil {
		respondError(c, err)
		return
	}

	recipe, err := h.recipes.Update(c.Request.Context(), id, viewer, isAdmin, toRecipeInput(req))
	if err != nil {
		respondError(c, err)
		return
	}

	results, err := h.buildRecipeResponses(c, []models.Recipe{*recipe})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results[0])
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return
	}

	viewer, ok := middleware.ViewerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	isAdmin, err := h.viewerIsAdmin(c, viewer)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.recipes.Delete(c.Request.Context(), id, viewer, isAdmin); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) FavoriteRecipe(c *gin.Context) {
	h.addMembership(c, h.recipes.AddFavorite)
}

func (h *RecipeHandler) UnfavoriteRecipe(c *gin.Context) {
	h.removeMembership(c, h.recipes.RemoveFavorite)
}

func (h *RecipeHandler) AddToShoppingCart(c *gin.Context) {
	h.addMembership(c, h.recipes.AddToShoppingCart)
}

func (h *RecipeHandler) RemoveFromShoppingCart(c *gin.Context) {
	h.removeMembership(c, h.recipes.RemoveFromShoppingCart)
}

func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	viewer, ok := middleware.ViewerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	items, err := h.recipes.ShoppingList(c.Request.Context(), viewer)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="shopping_list.txt"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(service.FormatShoppingList(items)))
}

func (h *RecipeHandler) addMembership(c *gin.Context, add func(ctx context.Context, userID, recipeID uuid.UUID) (*models.Recipe, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return
	}

	viewer, ok := middleware.ViewerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	recipe, err := add(c.Request.Context(), viewer, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newRecipeShortResponse(recipe))
}

func (h *RecipeHandler) removeMembership(c *gin.Context, remove func(ctx context.Context, userID, recipeID uuid.UUID) error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return
	}

	viewer, ok := middleware.ViewerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	if err := remove(c.Request.Context(), viewer, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func toRecipeInput(req recipeRequest) service.RecipeInput {
	ingredients := make([]service.IngredientAmount, len(req.Ingredients))
	for i, ing := range req.Ingredients {
		ingredients[i] = service.IngredientAmount{ID: ing.ID, Amount: ing.Amount}
	}

	return service.RecipeInput{
		Name:        req.Name,
		Text:        req.Text,
		Image:       req.Image,
		CookingTime: req.CookingTime,
		TagIDs:      req.Tags,
		Ingredients: ingredients,
	}
}

func (h *RecipeHandler) viewerIsAdmin(c *gin.Context, viewer uuid.UUID) (bool, error) {
	user, err := h.subscriptions.GetUser(c.Request.Context(), viewer)
	if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

// buildRecipeResponses renders recipes through the read representation,
// resolving the viewer-dependent booleans in two batched queries
func (h *RecipeHandler) buildRecipeResponses(c *gin.Context, recipes []models.Recipe) ([]recipeResponse, error) {
	viewer, authenticated := middleware.ViewerID(c)

	ids := make([]uuid.UUID, len(recipes))
	authorIDs := make([]uuid.UUID, len(recipes))
	for i := range recipes {
		ids[i] = recipes[i].ID
		authorIDs[i] = recipes[i].AuthorID
	}

	favorited := map[uuid.UUID]bool{}
	inCart := map[uuid.UUID]bool{}
	subscribed := map[uuid.UUID]bool{}
	if authenticated {
		var err error
		favorited, inCart, err = h.recipes.MembershipSets(c.Request.Context(), viewer, ids)
		if err != nil {
			return nil, err
		}
		subscribed, err = h.subscriptions.SubscribedSet(c.Request.Context(), viewer, authorIDs)
		if err != nil {
			return nil, err
		}
	}

	results := make([]recipeResponse, len(recipes))
	for i := range recipes {
		recipe := &recipes[i]

		tags := make([]tagResponse, len(recipe.Tags))
		for j, tag := range recipe.Tags {
			tags[j] = newTagResponse(tag)
		}

		ingredients := make([]recipeIngredientResponse, len(recipe.Ingredients))
		for j, row := range recipe.Ingredients {
			ingredients[j] = recipeIngredientResponse{
				ID:              row.IngredientID,
				Name:            row.Ingredient.Name,
				MeasurementUnit: row.Ingredient.MeasurementUnit,
				Amount:          row.Amount,
			}
		}

		results[i] = recipeResponse{
			ID:               recipe.ID,
			Tags:             tags,
			Author:           newUserResponse(&recipe.Author, subscribed[recipe.AuthorID]),
			Ingredients:      ingredients,
			IsFavorited:      favorited[recipe.ID],
			IsInShoppingCart: inCart[recipe.ID],
			Name:             recipe.Name,
			Image:            recipe.Image,
			Text:             recipe.Text,
			CookingTime:      recipe.CookingTime,
		}
	}
	return results, nil
}
