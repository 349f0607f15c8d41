package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roshanmishra15/site-builder/internal/auth"
	"github.com/roshanmishra15/site-builder/internal/auth/service"
	"github.com/roshanmishra15/site-builder/internal/projects/domain"
	"github.com/roshanmishra15/site-builder/internal/projects/memory"
)

func newRouter(store *memory.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api/user", auth.HeaderIdentity(), auth.WithUser(store.Users(), nil))
	New(service.NewProfileService(store.Users()), nil).Register(g)
	return r
}

func call(r *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeUser(t *testing.T, w *httptest.ResponseRecorder) domain.User {
	t.Helper()
	var resp struct {
		User domain.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.User
}

func TestGetProfile(t *testing.T) {
	store := memory.NewStore(20)
	r := newRouter(store)

	w := call(r, http.MethodGet, "/api/user/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(r, http.MethodGet, "/api/user/profile", "", map[string]string{
		"X-User-Id":    "fb-ada",
		"X-User-Email": "ada@example.com",
		"X-User-Name":  "Ada",
	})
	require.Equal(t, http.StatusOK, w.Code)
	user := decodeUser(t, w)
	assert.Equal(t, "fb-ada", user.FirebaseUID)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "Ada", user.DisplayName)
	assert.Equal(t, 20, user.Credits)
}

func TestSyncUser(t *testing.T) {
	store := memory.NewStore(20)
	r := newRouter(store)
	headers := map[string]string{"X-User-Id": "fb-ada", "X-User-Name": "Ada"}

	t.Run("without body keeps identity fields", func(t *testing.T) {
		w := call(r, http.MethodPost, "/api/user/sync", "", headers)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Ada", decodeUser(t, w).DisplayName)
	})

	t.Run("body overrides display name and photo", func(t *testing.T) {
		w := call(r, http.MethodPost, "/api/user/sync", `{"display_name":"Ada L","photo_url":"https://img.example/a.png"}`, headers)
		require.Equal(t, http.StatusOK, w.Code)
		user := decodeUser(t, w)
		assert.Equal(t, "Ada L", user.DisplayName)
		assert.Equal(t, "https://img.example/a.png", user.PhotoURL)
		assert.Equal(t, 20, user.Credits)
	})

	t.Run("sync never regrants credits", func(t *testing.T) {
		id := store.Users().Seed("fb-spent", "Spent", 0)
		w := call(r, http.MethodPost, "/api/user/sync", "", map[string]string{"X-User-Id": "fb-spent"})
		require.Equal(t, http.StatusOK, w.Code)
		user := decodeUser(t, w)
		assert.Equal(t, id, user.ID)
		assert.Equal(t, 0, user.Credits)
	})

	t.Run("invalid body", func(t *testing.T) {
		w := call(r, http.MethodPost, "/api/user/sync", `{"display_name":`, headers)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUpdateProfile(t *testing.T) {
	store := memory.NewStore(20)
	r := newRouter(store)
	headers := map[string]string{"X-User-Id": "fb-ada", "X-User-Name": "Ada"}

	w := call(r, http.MethodPut, "/api/user/profile", `{"display_name":"  Countess  "}`, headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Countess", decodeUser(t, w).DisplayName)

	w = call(r, http.MethodPut, "/api/user/profile", `{}`, headers)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"Invalid request"}`, w.Body.String())

	w = call(r, http.MethodPut, "/api/user/profile", `not json`, headers)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
