package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ideaboard-hq/locking-system/internal/clock"
	"github.com/ideaboard-hq/locking-system/internal/idea"
	"github.com/ideaboard-hq/locking-system/internal/lock"
)

type testEnv struct {
	router *gin.Engine
	ideas  *idea.InMemoryStore
	clk    *clock.Fake
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ideas := idea.NewInMemoryStore()
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := lock.NewMemoryStore(lock.DefaultTTL)
	manager := lock.NewManager(store, ideas, clk, zerolog.Nop())
	sweeper := lock.NewSweeper(store, clk, zerolog.Nop())

	handler := NewHandler(ideas, manager, sweeper, zerolog.Nop())
	router := gin.New()
	handler.RegisterRoutes(router.Group("/api/v1"))

	return &testEnv{router: router, ideas: ideas, clk: clk}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createIdea(t *testing.T) *idea.Idea {
	t.Helper()
	created, err := e.ideas.Create(context.Background(), &idea.Idea{
		Title:  "Realtime cursors",
		Value:  7,
		Effort: 4,
	})
	require.NoError(t, err)
	return created
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAcquireLock(t *testing.T) {
	env := newTestEnv(t)
	i := env.createIdea(t)

	w := env.do(t, http.MethodPut, "/api/v1/ideas/"+i.ID+"/lock", gin.H{"ownerId": "alice"})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["acquired"])
}

func TestAcquireLock_Conflict(t *testing.T) {
	env := newTestEnv(t)
	i := env.createIdea(t)

	w := env.do(t, http.MethodPut, "/api/v1/ideas/"+i.ID+"/lock", gin.H{"ownerId": "alice"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPut, "/api/v1/ideas/"+i.ID+"/lock", gin.H{"ownerId": "bob"})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, false, body["acquired"])

	holder, ok := body["lock"].(map[string]any)
	require.True(t, ok, "conflict response should name the current holder")
	assert.Equal(t, "alice", holder["ownerId"])
}

func TestAcquireLock_RenewalSucceeds(t *testing.T) {
	env := newTestEnv(t)
	i := env.createIdea(t)

	for attempt := 0; attempt < 2; attempt++ {
		w := env.do(t, http.MethodPut, "/api/v1/ideas/"+i.ID+"/lock", gin.H{"ownerId": "alice"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decodeBody(t, w)["acquired"])
	}
}

func TestAcquireLock_UnknownIdea(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPut, "/api/v1/ideas/missing/lock", gin.H{"ownerId": "alice"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAcquireLock_MissingOwner(t *testing.T) {
	env := newTestEnv(t)
	i := env.createIdea(t)

	w := env.do(t, http.MethodPut, "/api/v1/ideas/"+i.ID+"/lock", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueryLock(t *testing.T) {
	env := newTestEnv(t)
	i := env.createIdea(t)

	// Unlocked idea reports a null lock.
	w := env.do(t, http.MethodGet, "/api/v1/ideas/"+i.ID+"/lock", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decodeBody(t, w)["lock"])

	env.do(t, http.MethodPut, "/api/v1/ideas/"+i.ID+"/lock", gin.H{"ownerId": "alice"})

	w = env.do(t, http.MethodGet, "/api/v1/ideas/"+i.ID+"/lock", nil)
	require.Equal(t, http.StatusOK, w.Code)

	holder, ok := decodeBody(t, w)["lock"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice", holder["ownerId"])
	assert.Equal(t, i.ID, holder["resourceId"])
	assert.NotEmpty(t, holder["expiresAt"])
}

func TestQueryLock_ExpiredReportsUnlocked(t *testing.T) {
	env := newTestEnv(t)
	i := env.createIdea(t)

	env.do(t, http.MethodPut, "/api/v1/ideas/"+i.ID+"/lock", gin.H{"ownerId": "alice"})
	env.clk.Advance(lock.DefaultTTL + time.Second)

	w := env.do(t, http.MethodGet, "/api/v1/ideas/"+i.ID+"/lock", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decodeBody(t, w)["lock"])
}

func TestReleaseLock(t *testing.T) {
	env := newTestEnv(t)
	i := env.createIdea(t)

	env.do(t, http.MethodPut, "/api/v1/ideas/"+i.ID+"/lock", gin.H{"ownerId": "alice"})

	w := env.do(t, http.MethodDelete, "/api/v1/ideas/"+i.ID+"/lock", gin.H{"ownerId": "alice"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["released"])

	w = env.do(t, http.MethodGet, "/api/v1/ideas/"+i.ID+"/lock", nil)
	assert.Nil(t, decodeBody(t, w)["lock"])
}

func TestReleaseLock_ForeignOwnerKeepsLock(t *testing.T) {
	env := newTestEnv(t)
	i := env.createIdea(t)

	env.do(t, http.MethodPut, "/api/v1/ideas/"+i.ID+"/lock", gin.H{"ownerId": "alice"})

	w := env.do(t, http.MethodDelete, "/api/v1/ideas/"+i.ID+"/lock", gin.H{"ownerId": "bob"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["released"])

	// Alice still holds the lock.
	w = env.do(t, http.MethodGet, "/api/v1/ideas/"+i.ID+"/lock", nil)
	holder, ok := decodeBody(t, w)["lock"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice", holder["ownerId"])
}

func TestCleanupLocks(t *testing.T) {
	env := newTestEnv(t)
	stale := env.createIdea(t)
	fresh := env.createIdea(t)

	env.do(t, http.MethodPut, "/api/v1/ideas/"+stale.ID+"/lock", gin.H{"ownerId": "alice"})
	env.clk.Advance(lock.DefaultTTL - time.Minute)
	env.do(t, http.MethodPut, "/api/v1/ideas/"+fresh.ID+"/lock", gin.H{"ownerId": "bob"})
	env.clk.Advance(2 * time.Minute)

	w := env.do(t, http.MethodPost, "/api/v1/locks/cleanup", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["removed"])
}

func TestCreateIdea(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/ideas", gin.H{
		"title":  "Offline mode",
		"value":  8,
		"effort": 3,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, "quick-win", body["quadrant"])
}

func TestCreateIdea_Invalid(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/ideas", gin.H{"value": 8, "effort": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListIdeas(t *testing.T) {
	env := newTestEnv(t)
	env.createIdea(t)
	env.createIdea(t)

	w := env.do(t, http.MethodGet, "/api/v1/ideas", nil)
	require.Equal(t, http.StatusOK, w.Code)

	ideas, ok := decodeBody(t, w)["ideas"].([]any)
	require.True(t, ok)
	assert.Len(t, ideas, 2)
}

func TestGetIdea_NotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/ideas/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateIdea_BlockedByForeignLock(t *testing.T) {
	env := newTestEnv(t)
	i := env.createIdea(t)

	env.do(t, http.MethodPut, "/api/v1/ideas/"+i.ID+"/lock", gin.H{"ownerId": "alice"})

	w := env.do(t, http.MethodPut, "/api/v1/ideas/"+i.ID, gin.H{
		"title":   "Hijacked",
		"value":   1,
		"effort":  1,
		"ownerId": "bob",
	})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "locked", decodeBody(t, w)["error"])
}

func TestUpdateIdea_AllowedForLockHolder(t *testing.T) {
	env := newTestEnv(t)
	i := env.createIdea(t)

	env.do(t, http.MethodPut, "/api/v1/ideas/"+i.ID+"/lock", gin.H{"ownerId": "alice"})

	w := env.do(t, http.MethodPut, "/api/v1/ideas/"+i.ID, gin.H{
		"title":   "Realtime cursors v2",
		"value":   9,
		"effort":  4,
		"ownerId": "alice",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Realtime cursors v2", decodeBody(t, w)["title"])
}

func TestUpdateIdea_AllowedAfterExpiry(t *testing.T) {
	env := newTestEnv(t)
	i := env.createIdea(t)

	env.do(t, http.MethodPut, "/api/v1/ideas/"+i.ID+"/lock", gin.H{"ownerId": "alice"})
	env.clk.Advance(lock.DefaultTTL + time.Second)

	w := env.do(t, http.MethodPut, "/api/v1/ideas/"+i.ID, gin.H{
		"title":   "Reclaimed",
		"value":   5,
		"effort":  5,
		"ownerId": "bob",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteIdea_BlockedByForeignLock(t *testing.T) {
	env := newTestEnv(t)
	i := env.createIdea(t)

	env.do(t, http.MethodPut, "/api/v1/ideas/"+i.ID+"/lock", gin.H{"ownerId": "alice"})

	w := env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/ideas/%s?ownerId=bob", i.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeleteIdea_AllowedForLockHolder(t *testing.T) {
	env := newTestEnv(t)
	i := env.createIdea(t)

	env.do(t, http.MethodPut, "/api/v1/ideas/"+i.ID+"/lock", gin.H{"ownerId": "alice"})

	w := env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/ideas/%s?ownerId=alice", i.ID), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/ideas/"+i.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
