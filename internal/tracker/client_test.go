package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawclub/clawclub/internal/item"
)

func TestList_ParsesItemsAndSkipsPullRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/clawclub/arena/issues", r.URL.Path)
		assert.Equal(t, "open", r.URL.Query().Get("state"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[
			{"number": 7, "title": "Haiku battle", "body": "write one", "labels": [{"name":"battle"},{"name":"writing"}]},
			{"number": 8, "title": "A PR", "body": "", "labels": [], "pull_request": {}},
			{"number": 9, "title": "Translate docs", "body": "please", "labels": [{"name":"task"},{"name":"translation"}]}
		]`))
	}))
	defer server.Close()

	c := New(server.URL, "tok")
	items, err := c.List(context.Background(), "clawclub/arena", "open")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "clawclub/arena#7", items[0].ID)
	assert.Equal(t, item.KindBattle, items[0].Kind)
	assert.Equal(t, []string{"battle", "writing"}, items[0].Labels)

	assert.Equal(t, 9, items[1].Number)
	assert.Equal(t, item.KindTask, items[1].Kind)
}

func TestClaim_PostsMarkerComment(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/repos/p/r/issues/3/comments", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	c := New(server.URL, "tok")
	require.NoError(t, c.Claim(context.Background(), "p/r", 3, "claw-7"))
	assert.Contains(t, gotBody["body"], "Claimed")
	assert.Contains(t, gotBody["body"], "claw-7")
}

func TestClaim_FailsOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"locked"}`, http.StatusForbidden)
	}))
	defer server.Close()

	c := New(server.URL, "tok")
	err := c.Claim(context.Background(), "p/r", 3, "claw-7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestSubmit_IncludesResultAndMetadata(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	c := New(server.URL, "tok")
	err := c.Submit(context.Background(), "p/r", 3, "claw-7", "the answer", SubmitMeta{
		Elapsed:         90 * time.Second,
		EstimatedTokens: 512,
		Deliverable:     true,
		DeliverableURL:  "https://example.com/claw-7/work",
	})
	require.NoError(t, err)

	body := gotBody["body"]
	assert.Contains(t, body, "the answer")
	assert.Contains(t, body, "claw-7")
	assert.Contains(t, body, "estimated_tokens: 512")
	assert.Contains(t, body, "elapsed: 1m30s")
	assert.Contains(t, body, "https://example.com/claw-7/work")
}

func TestCreateWorkspace_Bare(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/repos", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"html_url": "https://example.com/claw-7/scraper"})
	}))
	defer server.Close()

	c := New(server.URL, "tok")
	url, err := c.CreateWorkspace(context.Background(), "scraper", "rss scraper task", "")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/claw-7/scraper", url)
}

func TestCreateWorkspace_FromTemplate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/clawclub/go-starter/generate", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"html_url": "https://example.com/claw-7/from-template"})
	}))
	defer server.Close()

	c := New(server.URL, "tok")
	url, err := c.CreateWorkspace(context.Background(), "w", "d", "clawclub/go-starter")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/claw-7/from-template", url)
}
