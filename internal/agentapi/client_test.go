// ABOUTME: Tests for the gateway HTTP client
// ABOUTME: Uses httptest servers to verify headers, methods and error mapping

package agentapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ListChats_SendsBearerAndAccept(t *testing.T) {
	var gotAuth, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		assert.Equal(t, "/api/chats/list", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "chats": [{"id": "c1", "title": "hey"}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "secret-token", nil, nil)
	chats, err := client.ListChats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "application/json", gotAccept)
	require.Len(t, chats, 1)
	assert.Equal(t, "c1", chats[0].ID)
}

func TestClient_NoTokenMeansNoAuthHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Authorization"]; ok {
			t.Error("Authorization header should be absent when no token is configured")
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := New(server.URL, "", nil, nil)
	_, err := client.ListChats(context.Background())
	require.NoError(t, err)
}

func TestClient_RenameChat_PatchesTitle(t *testing.T) {
	var gotMethod, gotPath, gotContentType string
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"success": true}`))
	}))
	defer server.Close()

	client := New(server.URL, "", nil, nil)
	err := client.RenameChat(context.Background(), "c7", "New title")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/api/chats/c7", gotPath)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "New title", gotBody["title"])
}

func TestClient_DeleteChat_UsesDeleteVerbAndPath(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(server.URL, "", nil, nil)
	err := client.DeleteChat(context.Background(), "c7")
	require.NoError(t, err)

	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/api/chat/c7/delete", gotPath)
}

func TestClient_NonOKBecomesStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "chat not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, "", nil, nil)
	_, err := client.ChatMessages(context.Background(), "missing")
	require.Error(t, err)

	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.Contains(t, err.Error(), "chat not found")
}

func TestClient_SendFeedback(t *testing.T) {
	var gotPath string
	var gotBody Feedback
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"success": true}`))
	}))
	defer server.Close()

	client := New(server.URL, "", nil, nil)
	err := client.SendFeedback(context.Background(), "m3", Feedback{Liked: true})
	require.NoError(t, err)

	assert.Equal(t, "/api/chat/messages/m3/feedback", gotPath)
	assert.True(t, gotBody.Liked)
	assert.False(t, gotBody.Disliked)
}

func TestClient_BaseURLTrailingSlashTrimmed(t *testing.T) {
	client := New("http://localhost:8080/", "", nil, nil)
	assert.Equal(t, "http://localhost:8080", client.BaseURL())
}
