package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"hotboard/internal/fetch"
	"hotboard/internal/hotlist"
)

// Weibo crawls the Weibo hot-search board. The JSON side API is the
// primary endpoint; the public summary page is the HTML fallback.
type Weibo struct {
	client *fetch.Client
	logger *zap.Logger
	apiURL string
	webURL string
}

// NewWeibo builds the weibo_hot adapter.
func NewWeibo(deps Deps) *Weibo {
	return &Weibo{
		client: deps.Client,
		logger: deps.Logger.Named("weibo"),
		apiURL: "https://weibo.com/ajax/side/hotSearch",
		webURL: "https://s.weibo.com/top/summary",
	}
}

// Source implements hotlist.Adapter.
func (w *Weibo) Source() hotlist.Source {
	return hotlist.Source{Name: "weibo", Category: "hot", DisplayName: "微博"}
}

type weiboResponse struct {
	Data struct {
		Realtime []weiboEntry `json:"realtime"`
	} `json:"data"`
}

type weiboEntry struct {
	Word        string `json:"word"`
	Note        string `json:"note"`
	WordScheme  string `json:"word_scheme"`
	Num         int64  `json:"num"`
	FlagDesc    string `json:"flag_desc"`
	OnboardTime int64  `json:"onboard_time"`
}

// Crawl tries the JSON API first and falls back to scraping the web
// summary page when the API yields nothing.
func (w *Weibo) Crawl(ctx context.Context) ([]hotlist.RawItem, error) {
	items, err := w.crawlAPI(ctx)
	if err != nil {
		w.logger.Warn("api crawl failed, trying web fallback", zap.Error(err))
		return w.crawlWeb(ctx)
	}
	if len(items) == 0 {
		return w.crawlWeb(ctx)
	}
	return items, nil
}

func (w *Weibo) crawlAPI(ctx context.Context) ([]hotlist.RawItem, error) {
	header := http.Header{}
	header.Set("Referer", "https://weibo.com/")
	header.Set("Accept", "application/json, text/plain, */*")

	var resp weiboResponse
	if err := w.client.GetJSON(ctx, w.apiURL, header, &resp); err != nil {
		return nil, err
	}

	items := make([]hotlist.RawItem, 0, maxItems)
	skipped := 0
	for _, entry := range resp.Data.Realtime {
		if len(items) >= maxItems {
			break
		}
		title := strings.TrimSpace(strings.TrimSpace(entry.Word) + " " + strings.TrimSpace(entry.Note))
		key := entry.WordScheme
		if key == "" && entry.Word != "" {
			key = "#" + entry.Word
		}
		if title == "" || key == "" {
			skipped++
			continue
		}
		link := fmt.Sprintf("https://s.weibo.com/weibo?q=%s&t=31&band_rank=1&Refer=top", url.QueryEscape(key))

		item := hotlist.RawItem{
			SourceKey: entry.Word,
			Title:     title,
			URL:       link,
			Rank:      len(items) + 1,
		}
		if entry.Num > 0 {
			item.HeatValue = fmt.Sprintf("%d", entry.Num)
		}
		if entry.FlagDesc != "" {
			item.Tags = []string{entry.FlagDesc}
		}
		if entry.OnboardTime > 0 {
			ts := time.Unix(entry.OnboardTime, 0)
			item.PublishedAt = &ts
		}
		items = append(items, item)
	}
	if skipped > 0 {
		w.logger.Warn("skipped malformed entries", zap.Int("skipped", skipped))
	}
	return items, nil
}

func (w *Weibo) crawlWeb(ctx context.Context) ([]hotlist.RawItem, error) {
	body, err := w.client.Get(ctx, w.webURL, nil)
	if err != nil {
		return nil, fmt.Errorf("weibo web fallback: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse weibo summary page: %w", err)
	}

	items := make([]hotlist.RawItem, 0, maxItems)
	skipped := 0
	doc.Find("tr.list-item").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		link := row.Find("a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		if title == "" || href == "" {
			skipped++
			return true
		}
		if strings.HasPrefix(href, "/") {
			href = "https://s.weibo.com" + href
		}
		item := hotlist.RawItem{
			SourceKey: title,
			Title:     title,
			URL:       href,
			Rank:      len(items) + 1,
			HeatValue: strings.TrimSpace(row.Find("span.hot").First().Text()),
		}
		if tag := strings.TrimSpace(row.Find("span.icon").First().Text()); tag != "" {
			item.Tags = []string{tag}
		}
		items = append(items, item)
		return len(items) < maxItems
	})
	if skipped > 0 {
		w.logger.Warn("skipped malformed rows", zap.Int("skipped", skipped))
	}
	return items, nil
}
