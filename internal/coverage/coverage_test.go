package coverage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "featuremap/internal/errors"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(ClientConfig{
		BaseURL: srv.URL,
		Service: "github",
		Owner:   "acme",
		Repo:    "shop",
		Token:   "secret",
	}, srv.Client(), nil)
}

func TestFetchFileStats(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/api/v2/github/acme/repos/shop/report/", r.URL.Path)
		assert.Equal(t, "abc123", r.URL.Query().Get("sha"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"files":[
			{"name":"app/a.rb","totals":{"lines":10,"hits":8,"misses":2}},
			{"name":"app/b.rb","totals":{"lines":4,"hits":1,"misses":3}}
		]}`))
	}))
	defer srv.Close()

	stats, err := newTestClient(srv).FetchFileStats(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, FileStats{Lines: 10, Hits: 8, Misses: 2}, stats["app/a.rb"])
	assert.Equal(t, FileStats{Lines: 4, Hits: 1, Misses: 3}, stats["app/b.rb"])
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestFetchFileStats_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"non-200", http.StatusInternalServerError, `{"detail":"boom"}`},
		{"undecodable", http.StatusOK, `not json`},
		{"no files", http.StatusOK, `{"totals":{}}`},
		{"missing hits", http.StatusOK, `{"files":[{"name":"a.rb","totals":{"lines":1,"misses":1}}]}`},
		{"missing totals", http.StatusOK, `{"files":[{"name":"a.rb"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv).FetchFileStats(context.Background(), "abc123")
			require.Error(t, err)
			assert.True(t, ferrors.Is(err, ferrors.ExternalBadResponse))
			assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "no retries")
		})
	}
}

func TestFetchFileStats_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestClient(srv)
	srv.Close()

	_, err := client.FetchFileStats(context.Background(), "abc123")
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.ExternalUnavailable))

	var fe *ferrors.Error
	require.ErrorAs(t, err, &fe)
	assert.True(t, fe.IsTransient())
}

func TestFetchFileStats_RequiresRepo(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "http://localhost"}, nil, nil)
	_, err := client.FetchFileStats(context.Background(), "abc")
	assert.True(t, ferrors.Is(err, ferrors.ConfigInvalid))
}

func TestForFeatures(t *testing.T) {
	stats := map[string]FileStats{
		"app/a.rb": {Lines: 10, Hits: 8, Misses: 2},
		"app/b.rb": {Lines: 10, Hits: 2, Misses: 8},
	}
	got := ForFeatures(map[string][]string{
		"Foo":   {"app/a.rb", "app/b.rb"},
		"Bar":   {"app/unknown.rb"},
		"Empty": nil,
	}, stats)

	assert.Equal(t, 20, got["Foo"].Lines)
	assert.Equal(t, 10, got["Foo"].Hits)
	assert.Equal(t, 10, got["Foo"].Misses)
	assert.InDelta(t, 50.0, got["Foo"].Coverage, 1e-9)
	assert.Zero(t, got["Bar"].Coverage)
	assert.Contains(t, got, "Empty")
}
