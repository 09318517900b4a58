package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const ithomeFixture = `<html><body>
<div class="rank">
  <a href="/0/123/456.htm">一条足够长的新闻标题在这里</a>
  <a href="/0/123/456.htm">一条足够长的新闻标题在这里</a>
  <a href="https://www.ithome.com/news/789.html">另外一条足够长的新闻标题</a>
  <a href="/short.htm">短</a>
</div>
</body></html>`

func TestITHomeCrawlParsesAndDedupes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(ithomeFixture))
	}))
	defer srv.Close()

	adapter := NewITHome(testDeps(t))
	adapter.urls = []string{srv.URL}

	items, err := adapter.Crawl(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "https://www.ithome.com/0/123/456.htm", items[0].URL)
	require.Equal(t, 1, items[0].Rank)
	require.Equal(t, 2, items[1].Rank)
}

func TestITHomeFallsBackToNextURL(t *testing.T) {
	t.Parallel()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(ithomeFixture))
	}))
	defer good.Close()

	adapter := NewITHome(testDeps(t))
	adapter.urls = []string{bad.URL, good.URL}

	items, err := adapter.Crawl(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, items)
}
