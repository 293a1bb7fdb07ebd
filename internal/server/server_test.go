package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/auth"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/config"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/database"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	_ "github.com/franciscosanchezn/gin-foodgram-api/docs"
)

var testImage = "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))

type memBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return "http://media.test/" + key, nil
}

func (m *memBlobStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

type memCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (m *memCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

type testServer struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
}

func newTestServer(t *testing.T, recipeLimit int) *testServer {
	gin.SetMode(gin.TestMode)

	db, err := database.InitDatabase(database.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		JWTSecret:         "test-jwt-secret-key-32-characters",
		TokenTTL:          time.Hour,
		WebClientID:       "foodgram-web",
		PageSize:          6,
		StorageDriver:     "memory",
		RecipeCreateLimit: recipeLimit,
	}
	oauth := auth.NewOAuthService(db, cfg.JWTSecret, cfg.TokenTTL, cfg.WebClientID)
	require.NoError(t, oauth.EnsureWebClient(context.Background()))

	deps := Deps{
		Config: cfg,
		DB:     db,
		Blobs:  &memBlobStore{objects: map[string][]byte{}},
		OAuth:  oauth,
	}
	if recipeLimit > 0 {
		deps.RateCounter = &memCounter{counts: map[string]int64{}}
	}
	return &testServer{t: t, db: db, router: NewRouter(deps)}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// register creates a user and returns its id and a login token
func (s *testServer) register(username string) (uint, string) {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/users/", "", map[string]string{
		"email":      username + "@example.com",
		"username":   username,
		"first_name": "First",
		"last_name":  "Last",
		"password":   "s3cret-pass",
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	id := uint(decode(s.t, w)["id"].(float64))
	return id, s.login(username)
}

func (s *testServer) login(username string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/auth/token/login/", "", map[string]string{
		"email":    username + "@example.com",
		"password": "s3cret-pass",
	})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	return decode(s.t, w)["auth_token"].(string)
}

// admin registers a user with the admin role
func (s *testServer) admin(username string) string {
	s.t.Helper()
	id, _ := s.register(username)
	require.NoError(s.t, s.db.Model(&models.User{}).Where("id = ?", id).Update("role", models.RoleAdmin).Error)
	return s.login(username)
}

// seed creates a tag and two ingredients through the admin endpoints
func (s *testServer) seed() (tagID, saltID, eggsID float64) {
	s.t.Helper()
	token := s.admin("admin")

	w := s.do(http.MethodPost, "/api/tags/", token, map[string]string{"name": "Breakfast", "color": "#E26C2D", "slug": "breakfast"})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	tagID = decode(s.t, w)["id"].(float64)

	w = s.do(http.MethodPost, "/api/ingredients/", token, map[string]string{"name": "Salt", "measurement_unit": "g"})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	saltID = decode(s.t, w)["id"].(float64)

	w = s.do(http.MethodPost, "/api/ingredients/", token, map[string]string{"name": "Eggs", "measurement_unit": "pcs"})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	eggsID = decode(s.t, w)["id"].(float64)
	return
}

func recipeBody(name string, tagID, ingredientID float64, amount int) map[string]interface{} {
	return map[string]interface{}{
		"name":         name,
		"text":         "Mix and cook.",
		"cooking_time": 15,
		"image":        testImage,
		"tags":         []float64{tagID},
		"ingredients":  []map[string]interface{}{{"id": ingredientID, "amount": amount}},
	}
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, 0)
	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestSwaggerDocumentListsRoutes(t *testing.T) {
	s := newTestServer(t, 0)
	w := s.do(http.MethodGet, "/swagger/doc.json", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		Paths map[string]map[string]interface{} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	for path, method := range map[string]string{
		"/api/recipes/":                "post",
		"/api/recipes/{id}/":           "put",
		"/api/recipes/{id}/favorite/":  "delete",
		"/api/download_shopping_cart/": "get",
		"/api/users/{id}/subscribe/":   "post",
		"/api/auth/oauth/token":        "post",
		"/api/ingredients/":            "get",
	} {
		assert.Contains(t, doc.Paths[path], method, path)
	}
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, 0)
	_, token := s.register("cook")

	w := s.do(http.MethodGet, "/api/users/me/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode(t, w)
	assert.Equal(t, "cook", me["username"])
	assert.Equal(t, false, me["is_subscribed"])
	assert.NotContains(t, me, "password")

	w = s.do(http.MethodPost, "/api/auth/token/login/", "", map[string]string{"email": "cook@example.com", "password": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/users/set_password/", token, map[string]string{"new_password": "brand-new-pass", "current_password": "s3cret-pass"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodPost, "/api/auth/token/logout/", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/api/users/me/", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/users/me/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterReportsAllErrors(t *testing.T) {
	s := newTestServer(t, 0)

	w := s.do(http.MethodPost, "/api/users/", "", map[string]string{"email": "bad"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, models.ErrValidationFailed, body["code"])
	details := body["details"].(map[string]interface{})
	for _, field := range []string{"email", "username", "first_name", "last_name", "password"} {
		assert.Contains(t, details, field)
	}
}

func TestRecipeLifecycle(t *testing.T) {
	s := newTestServer(t, 0)
	tagID, saltID, _ := s.seed()
	authorID, author := s.register("chef")
	_, fan := s.register("fan")

	w := s.do(http.MethodPost, "/api/recipes/", author, recipeBody("Omelette", tagID, saltID, 5))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	recipeID := created["id"].(float64)
	assert.Equal(t, "Omelette", created["name"])
	assert.Equal(t, float64(authorID), created["author"].(map[string]interface{})["id"])
	ingredients := created["ingredients"].([]interface{})
	require.Len(t, ingredients, 1)
	assert.Equal(t, map[string]interface{}{"id": saltID, "name": "Salt", "measurement_unit": "g", "amount": float64(5)}, ingredients[0])
	assert.Equal(t, "breakfast", created["tags"].([]interface{})[0].(map[string]interface{})["slug"])
	assert.True(t, strings.HasPrefix(created["image"].(string), "http://media.test/recipes/"))

	path := fmt.Sprintf("/api/recipes/%d/", int(recipeID))

	w = s.do(http.MethodPost, path+"favorite/", fan, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"cooking_time", "id", "image", "name"}, keys(decode(t, w)))

	w = s.do(http.MethodPost, path+"favorite/", fan, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, path, fan, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["is_favorited"])

	w = s.do(http.MethodGet, path, "", nil)
	assert.Equal(t, false, decode(t, w)["is_favorited"])

	w = s.do(http.MethodGet, "/api/recipes/?is_favorited=1", fan, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = s.do(http.MethodPatch, path, fan, recipeBody("Stolen", tagID, saltID, 1))
	assert.Equal(t, http.StatusForbidden, w.Code)

	update := recipeBody("Better omelette", tagID, saltID, 7)
	delete(update, "image")
	w = s.do(http.MethodPatch, path, author, update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Better omelette", decode(t, w)["name"])

	w = s.do(http.MethodDelete, path+"favorite/", fan, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodDelete, path+"favorite/", fan, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodDelete, path, fan, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(http.MethodDelete, path, author, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodGet, path, author, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func keys(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestCreateRecipeValidation(t *testing.T) {
	s := newTestServer(t, 0)
	_, token := s.register("chef")

	w := s.do(http.MethodPost, "/api/recipes/", "", recipeBody("x", 1, 1, 1))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/recipes/", token, map[string]interface{}{
		"cooking_time": 0,
		"ingredients":  []map[string]interface{}{{"id": 1, "amount": 1}, {"id": 1, "amount": 2}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	details := decode(t, w)["details"].(map[string]interface{})
	for _, field := range []string{"name", "text", "cooking_time", "image", "ingredients"} {
		assert.Contains(t, details, field)
	}

	w = s.do(http.MethodPost, "/api/recipes/", token, "not an object")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestShoppingCartDownload(t *testing.T) {
	s := newTestServer(t, 0)
	tagID, saltID, eggsID := s.seed()
	_, token := s.register("chef")

	var ids []float64
	for _, body := range []map[string]interface{}{
		recipeBody("Soup", tagID, saltID, 5),
		recipeBody("Bread", tagID, saltID, 10),
		recipeBody("Omelette", tagID, eggsID, 3),
	} {
		w := s.do(http.MethodPost, "/api/recipes/", token, body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		ids = append(ids, decode(t, w)["id"].(float64))
	}
	for _, id := range ids {
		w := s.do(http.MethodPost, fmt.Sprintf("/api/recipes/%d/shopping_cart/", int(id)), token, nil)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := s.do(http.MethodGet, "/api/download_shopping_cart/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=my-file.txt", w.Header().Get("Content-Disposition"))
	lines := strings.Split(strings.TrimSuffix(w.Body.String(), "\n"), "\n")
	assert.ElementsMatch(t, []string{"Salt  g  15", "Eggs  pcs  3"}, lines)

	_, other := s.register("other")
	w = s.do(http.MethodGet, "/api/download_shopping_cart/", other, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestSubscriptions(t *testing.T) {
	s := newTestServer(t, 0)
	tagID, saltID, _ := s.seed()
	authorID, author := s.register("chef")
	_, fan := s.register("fan")
	for _, name := range []string{"One", "Two", "Three"} {
		w := s.do(http.MethodPost, "/api/recipes/", author, recipeBody(name, tagID, saltID, 1))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	subscribe := fmt.Sprintf("/api/users/%d/subscribe/", authorID)
	w := s.do(http.MethodPost, subscribe+"?recipes_limit=2", fan, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sub := decode(t, w)
	assert.Equal(t, true, sub["is_subscribed"])
	assert.Equal(t, float64(3), sub["recipes_count"])
	assert.Len(t, sub["recipes"], 2)

	w = s.do(http.MethodPost, subscribe, fan, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, subscribe, author, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "cannot follow yourself")

	w = s.do(http.MethodGet, fmt.Sprintf("/api/users/%d/", authorID), fan, nil)
	assert.Equal(t, true, decode(t, w)["is_subscribed"])

	w = s.do(http.MethodGet, "/api/users/subscriptions/", fan, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)
	assert.Equal(t, float64(1), list["count"])
	assert.Len(t, list["results"].([]interface{})[0].(map[string]interface{})["recipes"], 3)

	w = s.do(http.MethodDelete, subscribe, fan, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodDelete, subscribe, fan, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/api/users/999/subscribe/", fan, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecipeListPagination(t *testing.T) {
	s := newTestServer(t, 0)
	tagID, saltID, _ := s.seed()
	_, token := s.register("chef")
	for i := 0; i < 3; i++ {
		w := s.do(http.MethodPost, "/api/recipes/", token, recipeBody(fmt.Sprintf("Recipe %d", i), tagID, saltID, 1))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := s.do(http.MethodGet, "/api/recipes/?limit=2&tags=breakfast", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)
	assert.Equal(t, float64(3), page["count"])
	assert.Len(t, page["results"], 2)
	assert.Nil(t, page["previous"])
	require.NotNil(t, page["next"])
	assert.Contains(t, page["next"], "page=2")

	w = s.do(http.MethodGet, "/api/recipes/?limit=2&page=2", "", nil)
	page = decode(t, w)
	assert.Len(t, page["results"], 1)
	assert.Nil(t, page["next"])
	assert.NotNil(t, page["previous"])

	w = s.do(http.MethodGet, "/api/recipes/?tags=lunch", "", nil)
	assert.Equal(t, float64(0), decode(t, w)["count"])
}

func TestReferenceData(t *testing.T) {
	s := newTestServer(t, 0)
	s.seed()
	_, user := s.register("cook")

	w := s.do(http.MethodGet, "/api/ingredients/?name=sa", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ingredients []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ingredients))
	require.Len(t, ingredients, 1)
	assert.Equal(t, "Salt", ingredients[0]["name"])

	w = s.do(http.MethodGet, "/api/tags/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/tags/999/", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/api/tags/", user, map[string]string{"name": "Lunch", "color": "#49B64E", "slug": "lunch"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRecipeCreationRateLimit(t *testing.T) {
	s := newTestServer(t, 1)
	tagID, saltID, _ := s.seed()
	_, token := s.register("chef")

	w := s.do(http.MethodPost, "/api/recipes/", token, recipeBody("First", tagID, saltID, 1))
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, "/api/recipes/", token, recipeBody("Second", tagID, saltID, 1))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestClientCredentialsActAsOwner(t *testing.T) {
	s := newTestServer(t, 0)
	_, token := s.register("owner")

	w := s.do(http.MethodPost, "/api/users/me/clients/", token, map[string]string{"name": "Importer"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	client := decode(t, w)

	form := fmt.Sprintf("grant_type=client_credentials&client_id=%s&client_secret=%s", client["client_id"], client["client_secret"])
	req := httptest.NewRequest(http.MethodPost, "/api/auth/oauth/token", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	access := decode(t, rec)["access_token"].(string)

	w = s.do(http.MethodGet, "/api/users/me/", access, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "owner", decode(t, w)["username"])

	w = s.do(http.MethodGet, "/api/users/me/clients/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")

	w = s.do(http.MethodDelete, fmt.Sprintf("/api/users/me/clients/%s/", client["client_id"]), token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/api/users/me/", access, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "tokens of a deleted client are revoked")

	w = s.do(http.MethodGet, "/api/users/me/", token, nil)
	assert.Equal(t, http.StatusOK, w.Code, "the owner's own session is untouched")
}
