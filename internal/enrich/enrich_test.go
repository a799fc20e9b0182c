package enrich

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devhub-tools/devhub/internal/types"
)

// fakeMessagesAPI answers POST /v1/messages with a single text block.
func fakeMessagesAPI(t *testing.T, status int, reply string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
			return
		}
		body, _ := json.Marshal(map[string]any{
			"id":            "msg_test",
			"type":          "message",
			"role":          "assistant",
			"model":         DefaultModel,
			"content":       []map[string]any{{"type": "text", "text": reply}},
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"usage":         map[string]any{"input_tokens": 10, "output_tokens": 10},
		})
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(Config{
		APIKey:  "test-key",
		BaseURL: baseURL + "/",
		Timeout: 5 * time.Second,
		Logger:  log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{APIKey: "  "})
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestNew_DefaultModel(t *testing.T) {
	c, err := New(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, c.Model())
}

func TestKnownModel(t *testing.T) {
	assert.True(t, KnownModel(DefaultModel))
	assert.True(t, KnownModel("claude-opus-4-5-20251101"))
	assert.False(t, KnownModel("claude-opus-4-5-20251001"))
	assert.False(t, KnownModel(""))
}

func TestEnhance_ParsesJSONReply(t *testing.T) {
	var req map[string]any
	srv := fakeMessagesAPI(t, http.StatusOK, `{"description":"Fast frontend build tool","categoryId":"frontend"}`, &req)

	s, err := testClient(t, srv.URL).Enhance(context.Background(), "Vite", "https://vitejs.dev", types.DefaultCategories())

	require.NoError(t, err)
	assert.Equal(t, Suggestion{Description: "Fast frontend build tool", CategoryID: "frontend"}, s)
	assert.Equal(t, DefaultModel, req["model"])
}

func TestEnhance_FencedReply(t *testing.T) {
	srv := fakeMessagesAPI(t, http.StatusOK, "Here you go:\n```json\n{\"description\":\"Docs\",\"categoryId\":\"docs\"}\n```", nil)

	s, err := testClient(t, srv.URL).Enhance(context.Background(), "MDN", "https://developer.mozilla.org", nil)

	require.NoError(t, err)
	assert.Equal(t, "docs", s.CategoryID)
}

func TestEnhance_UnparseableReplyFallsBack(t *testing.T) {
	srv := fakeMessagesAPI(t, http.StatusOK, "I cannot help with that.", nil)

	s, err := testClient(t, srv.URL).Enhance(context.Background(), "Thing", "https://thing.io", nil)

	require.NoError(t, err)
	assert.Equal(t, Fallback("Thing"), s)
	assert.Equal(t, "Quick link to Thing", s.Description)
	assert.Equal(t, types.AllCategoryID, s.CategoryID)
}

func TestEnhance_APIErrorIsReturned(t *testing.T) {
	srv := fakeMessagesAPI(t, http.StatusUnauthorized, "", nil)

	_, err := testClient(t, srv.URL).Enhance(context.Background(), "Thing", "https://thing.io", nil)
	assert.Error(t, err)
}

func TestTestConnection(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := fakeMessagesAPI(t, http.StatusOK, "ok", nil)
		res := testClient(t, srv.URL).TestConnection(context.Background())
		assert.True(t, res.Success)
		assert.Equal(t, "Connected with "+DefaultModel, res.Message)
	})

	t.Run("failure", func(t *testing.T) {
		srv := fakeMessagesAPI(t, http.StatusUnauthorized, "", nil)
		res := testClient(t, srv.URL).TestConnection(context.Background())
		assert.False(t, res.Success)
		assert.Zero(t, res.Latency)
		assert.NotEmpty(t, res.Message)
	})
}

func TestParseSuggestion(t *testing.T) {
	tests := []struct {
		text string
		ok   bool
	}{
		{`{"description":"a","categoryId":"apis"}`, true},
		{`{"description":"a"}`, true},
		{`{}`, false},
		{`not json`, false},
		{`{"description": }`, false},
		{`} {`, false},
	}
	for _, tt := range tests {
		_, ok := parseSuggestion(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
	}
}

func TestBuildPrompt_ListsCategories(t *testing.T) {
	p := buildPrompt("Go", "https://go.dev", []types.Category{{ID: "all"}, {ID: "backend"}, {ID: "tools"}})
	assert.Contains(t, p, "backend, tools, or general")
	assert.NotContains(t, p, "all,")
}
