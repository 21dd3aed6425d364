package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegister(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	payload := map[string]interface{}{
		"email":      "vasya@example.com",
		"username":   "vasya",
		"first_name": "Vasya",
		"last_name":  "Pupkin",
		"password":   "supersecret1",
	}

	w := doJSON(t, router, "POST", "/api/v1/auth/register", "", payload)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, decodeBody(t, w)["token"])

	// Registering the same email again is a client error
	w = doJSON(t, router, "POST", "/api/v1/auth/register", "", payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	router, db, authService := setupTestRouter(t)
	createTestUser(t, db, authService, "masha@example.com")

	w := doJSON(t, router, "POST", "/api/v1/auth/login", "", map[string]interface{}{
		"email":    "masha@example.com",
		"password": "testpassword123",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decodeBody(t, w)["token"])

	w = doJSON(t, router, "POST", "/api/v1/auth/login", "", map[string]interface{}{
		"email":    "masha@example.com",
		"password": "wrongpassword",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeRequiresAuth(t *testing.T) {
	router, db, authService := setupTestRouter(t)
	user, token := createTestUser(t, db, authService, "petya@example.com")

	w := doJSON(t, router, "GET", "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, "GET", "/api/v1/users/me", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, user.ID.String(), decodeBody(t, w)["id"])
}
