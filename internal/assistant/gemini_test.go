package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fitmatch/coaching-api/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestGeminiGenerateReply(t *testing.T) {
	var gotPath, gotKey string
	var gotReq geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":" Great work! "}]}}]}`))
	}))
	defer srv.Close()

	g := NewGemini("secret", "test-model", srv.URL)
	history := []domain.Message{{SenderID: primitive.NewObjectID(), Body: "did 5km today"}}
	reply, err := g.GenerateReply(context.Background(), history, "Filipe", "how was it?")
	require.NoError(t, err)

	assert.Equal(t, "Great work!", reply)
	assert.Equal(t, "/models/test-model:generateContent", gotPath)
	assert.Equal(t, "secret", gotKey)
	require.Len(t, gotReq.Contents, 1)
	prompt := gotReq.Contents[0].Parts[0].Text
	assert.True(t, strings.Contains(prompt, "named Filipe"))
	assert.True(t, strings.Contains(prompt, "did 5km today"))
	assert.True(t, strings.HasSuffix(prompt, "Client says: how was it?"))
}

func TestReplyFallbacks(t *testing.T) {
	ctx := context.Background()

	text, err := Reply(ctx, Offline{}, nil, "x", "y")
	require.NoError(t, err)
	assert.Equal(t, OfflineReply, text)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer failing.Close()
	text, err = Reply(ctx, NewGemini("k", "", failing.URL), nil, "x", "y")
	assert.Error(t, err)
	assert.Equal(t, OfflineReply, text)

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer empty.Close()
	text, err = Reply(ctx, NewGemini("k", "", empty.URL), nil, "x", "y")
	require.NoError(t, err)
	assert.Equal(t, EmptyReply, text)

	text, err = Reply(ctx, NewGemini("", "", ""), nil, "x", "y")
	require.NoError(t, err)
	assert.Equal(t, OfflineReply, text)
}
