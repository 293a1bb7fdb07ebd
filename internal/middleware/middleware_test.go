package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-oauth2/oauth2/v4"
	"github.com/go-oauth2/oauth2/v4/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-jwt-secret-key-32-characters")

// fakeLoader accepts every token except the revoked ones
type fakeLoader struct {
	revoked map[string]bool
}

func (f fakeLoader) LoadAccessToken(ctx context.Context, access string) (oauth2.TokenInfo, error) {
	if f.revoked[access] {
		return nil, errors.New("invalid access token")
	}
	return &models.Token{Access: access}, nil
}

func signToken(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

func validClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"uid":  "7",
		"role": "user",
		"aud":  "foodgram-web",
		"iat":  now.Unix(),
		"exp":  now.Add(time.Hour).Unix(),
	}
}

func setupAuthRouter(loader TokenLoader, optional bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/whoami", OAuth2Auth(testSecret, loader, optional), func(c *gin.Context) {
		role, _ := c.Get(UserRoleKey)
		c.JSON(http.StatusOK, gin.H{"user_id": CurrentUserID(c), "role": role})
	})
	return router
}

func request(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestOAuth2Auth(t *testing.T) {
	valid := signToken(t, validClaims(), jwt.SigningMethodHS256)
	revoked := signToken(t, jwt.MapClaims{"uid": "8", "role": "user", "exp": time.Now().Add(time.Hour).Unix()}, jwt.SigningMethodHS256)
	loader := fakeLoader{revoked: map[string]bool{revoked: true}}

	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	noUID := validClaims()
	delete(noUID, "uid")
	badRole := validClaims()
	badRole["role"] = "root"

	tests := []struct {
		name     string
		header   string
		optional bool
		status   int
		body     string
	}{
		{"bearer scheme", "Bearer " + valid, false, http.StatusOK, `"user_id":7`},
		{"token scheme", "Token " + valid, false, http.StatusOK, `"user_id":7`},
		{"missing header", "", false, http.StatusUnauthorized, "invalid_request"},
		{"missing header optional", "", true, http.StatusOK, `"user_id":0`},
		{"unknown scheme", "Basic abc", false, http.StatusUnauthorized, "invalid_request"},
		{"empty token", "Bearer ", false, http.StatusUnauthorized, "invalid_request"},
		{"garbage token optional", "Bearer garbage", true, http.StatusUnauthorized, "invalid_token"},
		{"revoked", "Bearer " + revoked, false, http.StatusUnauthorized, "revoked"},
		{"expired", "Bearer " + signToken(t, expired, jwt.SigningMethodHS256), false, http.StatusUnauthorized, "invalid_token"},
		{"missing uid", "Bearer " + signToken(t, noUID, jwt.SigningMethodHS256), false, http.StatusUnauthorized, "uid"},
		{"unknown role", "Bearer " + signToken(t, badRole, jwt.SigningMethodHS256), false, http.StatusUnauthorized, "role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(setupAuthRouter(loader, tt.optional), tt.header)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestOAuth2AuthRejectsWrongSecret(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims()).SignedString([]byte("another-secret"))
	require.NoError(t, err)

	w := request(setupAuthRouter(fakeLoader{}, false), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/admin", OAuth2Auth(testSecret, fakeLoader{}, true), RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	admin := validClaims()
	admin["role"] = "admin"

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"user", "Bearer " + signToken(t, validClaims(), jwt.SigningMethodHS256), http.StatusForbidden},
		{"admin", "Bearer " + signToken(t, admin, jwt.SigningMethodHS256), http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
