package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const zhihuFixture = `{
  "data": [
    {
      "detail_text": "3214 万热度",
      "target": {
        "id": 601234567,
        "title": "a question title",
        "excerpt": "an excerpt",
        "answer_count": 42,
        "created": 1700000000,
        "author": {"name": "someone"}
      }
    },
    {"target": {"id": "", "title": "missing id"}},
    {
      "detail_text": "100 万热度",
      "target": {"id": "987", "title": "second question"}
    }
  ]
}`

func TestZhihuCrawl(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(zhihuFixture))
	}))
	defer srv.Close()

	adapter := NewZhihu(testDeps(t))
	adapter.apiURL = srv.URL

	items, err := adapter.Crawl(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.Equal(t, "a question title", items[0].Title)
	require.Equal(t, "https://www.zhihu.com/question/601234567", items[0].URL)
	require.Equal(t, "601234567", items[0].SourceKey)
	require.Equal(t, "someone", items[0].Author)
	require.Equal(t, 42, items[0].CommentCount)
	require.Equal(t, "an excerpt", items[0].Description)
	require.Equal(t, "3214", items[0].HeatValue)
	require.Equal(t, 1, items[0].Rank)

	require.Equal(t, "second question", items[1].Title)
	require.Equal(t, 2, items[1].Rank)
}

func TestZhihuCrawlAPIFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	adapter := NewZhihu(testDeps(t))
	adapter.apiURL = srv.URL

	_, err := adapter.Crawl(context.Background())
	require.Error(t, err)
}

func TestRegistryBuildsEveryAdapter(t *testing.T) {
	t.Parallel()

	deps := testDeps(t)
	built := Build(deps)
	require.Len(t, built, len(Keys()))

	seen := make(map[string]struct{})
	for key, adapter := range built {
		src := adapter.Source()
		require.NotEmpty(t, src.Name, "adapter %s", key)
		require.NotEmpty(t, src.Category, "adapter %s", key)
		require.NotEmpty(t, src.DisplayName, "adapter %s", key)
		partition := src.PartitionKey()
		_, dup := seen[partition]
		require.False(t, dup, "duplicate partition %s", partition)
		seen[partition] = struct{}{}
	}

	_, err := New("nonexistent", deps)
	require.Error(t, err)

	adapter, err := New("weibo_hot", deps)
	require.NoError(t, err)
	require.Equal(t, "weibo", adapter.Source().Name)
}
