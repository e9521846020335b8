package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/main4/cmms/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sendResponse{ID: "msg-123"})
	}))
	defer srv.Close()

	m := New(&config.MailConfig{APIKey: "test-key", From: "Ops <ops@example.com>"}).WithBaseURL(srv.URL)

	id, err := m.Send(context.Background(), Message{
		To:      []string{"admin@example.com"},
		Subject: "Low stock alert: V-belt A42",
		HTML:    "<p>stock low</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-123", id)
	assert.Equal(t, "Ops <ops@example.com>", got.From)
	assert.Equal(t, []string{"admin@example.com"}, got.To)
}

func TestSend_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid recipient"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	m := New(&config.MailConfig{APIKey: "test-key", From: "Ops <ops@example.com>"}).WithBaseURL(srv.URL)

	_, err := m.Send(context.Background(), Message{To: []string{"bad"}, Subject: "x", HTML: "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestSend_MissingAPIKey(t *testing.T) {
	m := New(&config.MailConfig{From: "Ops <ops@example.com>"})

	_, err := m.Send(context.Background(), Message{To: []string{"a@b.c"}, Subject: "x", HTML: "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing API key")
}
