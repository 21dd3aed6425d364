package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/foodgram-project/backend/internal/middleware"
	"github.com/foodgram-project/backend/internal/models"
	"github.com/foodgram-project/backend/internal/service"
)

type UserHandler struct {
	db            *gorm.DB
	subscriptions *service.SubscriptionService
	recipes       *service.RecipeService
}

func NewUserHandler(db *gorm.DB, subscriptions *service.SubscriptionService, recipes *service.RecipeService) *UserHandler {
	return &UserHandler{
		db:            db,
		subscriptions: subscriptions,
		recipes:       recipes,
	}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	page, limit := parsePagination(c)

	var total int64
	if err := h.db.Model(&models.User{}).Count(&total).Error; err != nil {
		respondError(c, err)
		return
	}

	var users []models.User
	if err := h.db.Order("created_at").Limit(limit).Offset((page - 1) * limit).Find(&users).Error; err != nil {
		respondError(c, err)
		return
	}

	viewer, _ := middleware.ViewerID(c)
	ids := make([]uuid.UUID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	subscribed, err := h.subscriptions.SubscribedSet(c.Request.Context(), viewer, ids)
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]userResponse, len(users))
	for i := range users {
		results[i] = newUserResponse(&users[i], subscribed[users[i].ID])
	}

	c.JSON(http.StatusOK, pageResponse{Count: total, Results: results})
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	user, err := h.subscriptions.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	viewer, _ := middleware.ViewerID(c)
	isSubscribed, err := h.subscriptions.IsSubscribed(c.Request.Context(), viewer, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user, isSubscribed))
}

func (h *UserHandler) Me(c *gin.Context) {
	viewer, ok := middleware.ViewerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	user, err := h.subscriptions.GetUser(c.Request.Context(), viewer)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user, false))
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	authorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	viewer, ok := middleware.ViewerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	author, err := h.subscriptions.Subscribe(c.Request.Context(), viewer, authorID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.buildAuthorResponse(c, author, true)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	authorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	viewer, ok := middleware.ViewerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	if err := h.subscriptions.Unsubscribe(c.Request.Context(), viewer, authorID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Subscriptions(c *gin.Context) {
	viewer, ok := middleware.ViewerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	page, limit := parsePagination(c)
	authors, total, err := h.subscriptions.ListSubscribed(c.Request.Context(), viewer, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]authorResponse, len(authors))
	for i := range authors {
		resp, err := h.buildAuthorResponse(c, &authors[i], true)
		if err != nil {
			respondError(c, err)
			return
		}
		results[i] = resp
	}

	c.JSON(http.StatusOK, pageResponse{Count: total, Results: results})
}

// buildAuthorResponse renders a followed author with their recipes,
// honoring the recipes_limit cap
func (h *UserHandler) buildAuthorResponse(c *gin.Context, author *models.User, isSubscribed bool) (authorResponse, error) {
	recipesLimit := 0
	if v := c.Query("recipes_limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			recipesLimit = n
		}
	}

	recipes, err := h.recipes.ListByAuthor(c.Request.Context(), author.ID, recipesLimit)
	if err != nil {
		return authorResponse{}, err
	}
	count, err := h.recipes.CountByAuthor(c.Request.Context(), author.ID)
	if err != nil {
		return authorResponse{}, err
	}

	short := make([]recipeShortResponse, len(recipes))
	for i := range recipes {
		short[i] = newRecipeShortResponse(&recipes[i])
	}

	return authorResponse{
		userResponse: newUserResponse(author, isSubscribed),
		Recipes:      short,
		RecipesCount: count,
	}, nil
}
