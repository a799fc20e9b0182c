package backup

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devhub-tools/devhub/internal/types"
)

func testClient() *Client {
	return NewWithConfig(&Config{
		Timeout: 2 * time.Second,
		Logger:  log.New(io.Discard, "", 0),
	})
}

func TestPush_SendsProtocolBody(t *testing.T) {
	var got PushRequest
	var contentType, method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, "Success")
	}))
	defer srv.Close()

	links := []types.LinkItem{{ID: "a", Name: "A", URL: "https://a.dev", CategoryID: "all", CreatedAt: 1}}
	cats := types.DefaultCategories()

	ok := testClient().Push(context.Background(), srv.URL, links, cats)

	assert.True(t, ok)
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "text/plain", contentType)
	assert.Equal(t, "push", got.Action)
	assert.Equal(t, links, got.Data)
	assert.Equal(t, cats, got.Categories)
}

func TestPush_NilSlicesEncodeAsEmptyArrays(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = io.WriteString(w, "Success")
	}))
	defer srv.Close()

	require.True(t, testClient().Push(context.Background(), srv.URL, nil, nil))
	assert.JSONEq(t, `[]`, string(raw["data"]))
	assert.JSONEq(t, `[]`, string(raw["categories"]))
}

func TestPush_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"error body", http.StatusOK, "Error: sheet locked"},
		{"success with trailing newline", http.StatusOK, "Success\n"},
		{"lowercase", http.StatusOK, "success"},
		{"server error", http.StatusInternalServerError, "Success"},
		{"empty body", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			assert.False(t, testClient().Push(context.Background(), srv.URL, nil, nil))
		})
	}
}

func TestPush_UnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	assert.False(t, testClient().Push(context.Background(), url, nil, nil))
}

func TestPushPull_EmptyEndpointDoesNoIO(t *testing.T) {
	c := testClient()
	assert.False(t, c.Push(context.Background(), "", nil, nil))
	assert.Nil(t, c.Pull(context.Background(), ""))
}

func TestPull_ParsesBackup(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = io.WriteString(w, `{"data":[{"id":"x","name":"X","url":"https://x.io","categoryId":"docs","createdAt":5}],"categories":[{"id":"docs","name":"Documentation","icon":"Globe","color":"rose"}]}`)
	}))
	defer srv.Close()

	data := testClient().Pull(context.Background(), srv.URL+"/exec?key=abc")

	require.NotNil(t, data)
	assert.Contains(t, query, "action=pull")
	assert.Contains(t, query, "key=abc")
	require.Len(t, data.Links, 1)
	assert.Equal(t, "docs", data.Links[0].CategoryID)
	assert.Equal(t, int64(5), data.Links[0].CreatedAt)
	require.Len(t, data.Categories, 1)
	assert.Equal(t, types.IconGlobe, data.Categories[0].Icon)
}

func TestPull_MissingFieldsBecomeEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	data := testClient().Pull(context.Background(), srv.URL)

	require.NotNil(t, data)
	assert.NotNil(t, data.Links)
	assert.Empty(t, data.Links)
	assert.NotNil(t, data.Categories)
	assert.Empty(t, data.Categories)
}

func TestPull_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"malformed json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"data": [`)
		}},
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}},
		{"html error page", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `<html>login required</html>`)
		}},
		{"null body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `null`)
		}},
		{"trailing bytes", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"data":[]} trailing`)
		}},
		{"second object", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"data":[]}{"data":[]}`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			assert.Nil(t, testClient().Pull(context.Background(), srv.URL))
		})
	}
}

func TestPush_NoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	assert.False(t, testClient().Push(context.Background(), srv.URL, nil, nil))
	assert.Equal(t, int32(1), calls.Load())
}

func TestPullURL(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
	}{
		{"https://script.example.com/macros/s/abc/exec", "https://script.example.com/macros/s/abc/exec?action=pull"},
		{"http://localhost:8787/?token=t", "http://localhost:8787/?action=pull&token=t"},
		{"http://localhost:8787/?action=push", "http://localhost:8787/?action=pull"},
	}
	for _, tt := range tests {
		got, err := PullURL(tt.endpoint)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
