package egress

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Post(t *testing.T) {
	var got postPayload
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/message", r.URL.Path)
		assert.Equal(t, "app-token", r.URL.Query().Get("token"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := New(Config{BaseURL: ts.URL, AppToken: "app-token"})
	err := c.Post(context.Background(), "Alert", "disk full", 8)
	require.NoError(t, err)

	assert.Equal(t, "Alert", got.Title)
	assert.Equal(t, "disk full", got.Message)
	assert.Equal(t, 8, got.Priority)
}

func TestClient_PostGatewayError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := New(Config{BaseURL: ts.URL, AppToken: "wrong"})
	err := c.Post(context.Background(), "t", "m", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestClient_Delete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/message/42", r.URL.Path)
		assert.Equal(t, "admin-token", r.Header.Get("X-Gotify-Key"))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := New(Config{BaseURL: ts.URL, AppToken: "app", AdminToken: "admin-token"})
	assert.True(t, c.CanDelete())
	require.NoError(t, c.Delete(context.Background(), 42))
}

func TestClient_DeleteWithoutAdminToken(t *testing.T) {
	c := New(Config{BaseURL: "http://localhost", AppToken: "app"})
	assert.False(t, c.CanDelete())

	err := c.Delete(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin token")
}
