package handlers_test

import (
	"net/http"
	"testing"

	"ambulance-service-server/internal/models"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username":    "jdoe",
		"firstName":   "Jane",
		"lastName":    "Doe",
		"email":       "jdoe@example.com",
		"password":    "supersecret1",
		"phoneNumber": "555-0101",
	})
	requireStatus(t, rec, http.StatusCreated)

	var created models.UserSanitized
	decodeData(t, rec, &created)
	if created.Role != models.RoleUser {
		t.Errorf("self-registered account should get the USER role, got %s", created.Role)
	}

	rec = env.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "jdoe",
		"password": "supersecret1",
	})
	requireStatus(t, rec, http.StatusOK)

	var login struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
		Username     string `json:"username"`
		Role         string `json:"role"`
	}
	decodeData(t, rec, &login)
	if login.Token == "" || login.RefreshToken == "" {
		t.Error("login should return both tokens")
	}
	if login.Username != "jdoe" || login.Role != "USER" {
		t.Errorf("unexpected login identity: %s/%s", login.Username, login.Role)
	}

	// The issued token must work against a private route.
	rec = env.do(http.MethodGet, "/api/users/me", login.Token, nil)
	requireStatus(t, rec, http.StatusOK)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	env := newTestEnv(t)
	env.createUser("jdoe", models.RoleUser)

	rec := env.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "jdoe",
		"password": "wrong-password",
	})
	requireStatus(t, rec, http.StatusUnauthorized)
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.createUser("jdoe", models.RoleUser)
	if err := env.db.Model(user).Update("enabled", false).Error; err != nil {
		t.Fatalf("failed to disable account: %v", err)
	}

	rec := env.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "jdoe",
		"password": "password123",
	})
	requireStatus(t, rec, http.StatusForbidden)
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	env.createUser("jdoe", models.RoleUser)

	rec := env.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username":    "jdoe",
		"firstName":   "Jane",
		"lastName":    "Doe",
		"email":       "other@example.com",
		"password":    "supersecret1",
		"phoneNumber": "555-0101",
	})
	requireStatus(t, rec, http.StatusBadRequest)
}

func TestRefreshTokenRotation(t *testing.T) {
	env := newTestEnv(t)
	env.createUser("jdoe", models.RoleUser)

	rec := env.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "jdoe",
		"password": "password123",
	})
	requireStatus(t, rec, http.StatusOK)

	var login struct {
		RefreshToken string `json:"refreshToken"`
	}
	decodeData(t, rec, &login)

	rec = env.do(http.MethodPost, "/api/auth/refresh-token", "", map[string]string{
		"refreshToken": login.RefreshToken,
	})
	requireStatus(t, rec, http.StatusOK)

	var refreshed struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
	}
	decodeData(t, rec, &refreshed)
	if refreshed.Token == "" || refreshed.RefreshToken == "" {
		t.Fatal("refresh should return a new token pair")
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Error("refresh token should be rotated, not reissued")
	}

	// The presented token was revoked during rotation.
	rec = env.do(http.MethodPost, "/api/auth/refresh-token", "", map[string]string{
		"refreshToken": login.RefreshToken,
	})
	requireStatus(t, rec, http.StatusUnauthorized)
}

func TestLogoutRevokesRefreshTokens(t *testing.T) {
	env := newTestEnv(t)
	env.createUser("jdoe", models.RoleUser)

	rec := env.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "jdoe",
		"password": "password123",
	})
	requireStatus(t, rec, http.StatusOK)

	var login struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
	}
	decodeData(t, rec, &login)

	rec = env.do(http.MethodPost, "/api/auth/logout", login.Token, nil)
	requireStatus(t, rec, http.StatusOK)

	rec = env.do(http.MethodPost, "/api/auth/refresh-token", "", map[string]string{
		"refreshToken": login.RefreshToken,
	})
	requireStatus(t, rec, http.StatusUnauthorized)
}
