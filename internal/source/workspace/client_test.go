package workspace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, baseURL string, maxAttempts int) *Client {
	t.Helper()
	return New(Config{
		BaseURL:        baseURL,
		Token:          "secret-token",
		PageSize:       2,
		Timeout:        5 * time.Second,
		MaxAttempts:    maxAttempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}, zap.NewNop())
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestQueryPublishedFollowsCursor(t *testing.T) {
	var requests []queryRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/databases/ds-1/query", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))

		var req queryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)

		if req.StartCursor == "" {
			writeJSON(t, w, queryResponse{
				Results:    []Page{{ID: "p1"}, {ID: "p2"}},
				HasMore:    true,
				NextCursor: "cur-2",
			})
			return
		}
		assert.Equal(t, "cur-2", req.StartCursor)
		writeJSON(t, w, queryResponse{
			Results: []Page{{ID: "p3"}},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)
	pages, err := c.QueryPublished(context.Background(), "ds-1")
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, "p1", pages[0].ID)
	assert.Equal(t, "p3", pages[2].ID)

	require.Len(t, requests, 2)
	require.NotNil(t, requests[0].Filter)
	assert.Equal(t, "Status", requests[0].Filter.Property)
	assert.Equal(t, "Published", requests[0].Filter.Select.Equals)
	require.Len(t, requests[0].Sorts, 1)
	assert.Equal(t, "Date", requests[0].Sorts[0].Property)
	assert.Equal(t, "descending", requests[0].Sorts[0].Direction)
}

func TestBlockChildrenFollowsCursor(t *testing.T) {
	var cursors []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/blocks/page-1/children", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page_size"))

		cursor := r.URL.Query().Get("start_cursor")
		cursors = append(cursors, cursor)
		if cursor == "" {
			writeJSON(t, w, childrenResponse{
				Results:    []Block{{ID: "b1", Type: BlockParagraph}},
				HasMore:    true,
				NextCursor: "next",
			})
			return
		}
		writeJSON(t, w, childrenResponse{
			Results: []Block{{ID: "b2", Type: BlockDivider}},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)
	blocks, err := c.BlockChildren(context.Background(), "page-1")
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, []string{"", "next"}, cursors)
	assert.Equal(t, BlockDivider, blocks[1].Type)
}

func TestRetriesServerErrors(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(t, w, queryResponse{Results: []Page{{ID: "p1"}}})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	pages, err := c.QueryPublished(context.Background(), "ds-1")
	require.NoError(t, err)
	assert.Equal(t, 3, hits)
	require.Len(t, pages, 1)
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	_, err := c.QueryPublished(context.Background(), "ds-1")
	require.Error(t, err)
	assert.Equal(t, 1, hits)
	assert.Contains(t, err.Error(), "401")
}

func TestRetriesExhausted(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 2)
	_, err := c.QueryPublished(context.Background(), "ds-1")
	require.Error(t, err)
	assert.Equal(t, 2, hits)
}
