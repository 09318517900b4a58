package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hotboard/internal/fetch"
)

func testDeps(t *testing.T) Deps {
	t.Helper()
	return Deps{
		Client: fetch.NewClient(fetch.Config{
			Timeout:     time.Second,
			MaxAttempts: 1,
			BackoffBase: time.Millisecond,
		}, zap.NewNop()),
		Logger: zap.NewNop(),
	}
}

const weiboAPIFixture = `{
  "data": {
    "realtime": [
      {"word": "topic one", "note": "detail", "num": 123456, "flag_desc": "热", "onboard_time": 1700000000},
      {"word": "", "note": ""},
      {"word": "topic two", "word_scheme": "#topic two#", "num": 0}
    ]
  }
}`

func TestWeiboCrawlAPI(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "https://weibo.com/", r.Header.Get("Referer"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(weiboAPIFixture))
	}))
	defer srv.Close()

	adapter := NewWeibo(testDeps(t))
	adapter.apiURL = srv.URL

	items, err := adapter.Crawl(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	// Ranks are assigned by position of appearance, skipping the
	// malformed entry.
	require.Equal(t, "topic one detail", items[0].Title)
	require.Equal(t, 1, items[0].Rank)
	require.Equal(t, "123456", items[0].HeatValue)
	require.Equal(t, []string{"热"}, items[0].Tags)
	require.NotNil(t, items[0].PublishedAt)

	require.Equal(t, "topic two", items[1].Title)
	require.Equal(t, 2, items[1].Rank)
	require.Contains(t, items[1].URL, "s.weibo.com")
}

const weiboWebFixture = `<html><body><table>
<tr class="list-item"><td><a href="/weibo?q=first">first topic</a><span class="hot">999</span><span class="icon">新</span></td></tr>
<tr class="list-item"><td><span>no link here</span></td></tr>
<tr class="list-item"><td><a href="https://s.weibo.com/weibo?q=second">second topic</a></td></tr>
</table></body></html>`

func TestWeiboCrawlFallsBackToWeb(t *testing.T) {
	t.Parallel()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer api.Close()
	web := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(weiboWebFixture))
	}))
	defer web.Close()

	adapter := NewWeibo(testDeps(t))
	adapter.apiURL = api.URL
	adapter.webURL = web.URL

	items, err := adapter.Crawl(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "first topic", items[0].Title)
	require.Equal(t, "https://s.weibo.com/weibo?q=first", items[0].URL)
	require.Equal(t, "999", items[0].HeatValue)
	require.Equal(t, 2, items[1].Rank)
}

func TestWeiboBothEndpointsFailing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	adapter := NewWeibo(testDeps(t))
	adapter.apiURL = srv.URL
	adapter.webURL = srv.URL

	_, err := adapter.Crawl(context.Background())
	require.Error(t, err)
}

func TestWeiboCapsOutput(t *testing.T) {
	t.Parallel()

	entries := `{"word": "w", "num": 1},`
	var payload string
	for i := 0; i < 45; i++ {
		payload += entries
	}
	payload = `{"data":{"realtime":[` + payload[:len(payload)-1] + `]}}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	adapter := NewWeibo(testDeps(t))
	adapter.apiURL = srv.URL

	items, err := adapter.Crawl(context.Background())
	require.NoError(t, err)
	require.Len(t, items, maxItems)
	require.Equal(t, maxItems, items[len(items)-1].Rank)
}
