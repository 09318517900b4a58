package adapters

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"hotboard/internal/fetch"
	"hotboard/internal/hotlist"
)

// ITHome crawls the IT之家 mobile ranking page. The site is plain HTML;
// when the ranking page yields nothing the front page is tried next.
type ITHome struct {
	client *fetch.Client
	logger *zap.Logger
	urls   []string
}

// NewITHome builds the ithome_hot adapter.
func NewITHome(deps Deps) *ITHome {
	return &ITHome{
		client: deps.Client,
		logger: deps.Logger.Named("ithome"),
		urls: []string{
			"https://m.ithome.com/rankm/",
			"https://www.ithome.com/",
		},
	}
}

// Source implements hotlist.Adapter.
func (i *ITHome) Source() hotlist.Source {
	return hotlist.Source{Name: "ithome", Category: "hot", DisplayName: "IT之家"}
}

// Crawl tries each configured URL in order and returns the first
// non-empty parse.
func (i *ITHome) Crawl(ctx context.Context) ([]hotlist.RawItem, error) {
	var lastErr error
	for _, pageURL := range i.urls {
		body, err := i.client.Get(ctx, pageURL, nil)
		if err != nil {
			i.logger.Warn("page fetch failed", zap.String("url", pageURL), zap.Error(err))
			lastErr = err
			continue
		}
		items, err := i.parsePage(body)
		if err != nil {
			lastErr = err
			continue
		}
		if len(items) > 0 {
			return items, nil
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("ithome: all page variants failed: %w", lastErr)
	}
	return nil, nil
}

func (i *ITHome) parsePage(body []byte) ([]hotlist.RawItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse ithome page: %w", err)
	}

	items := make([]hotlist.RawItem, 0, maxItems)
	seen := make(map[string]struct{})
	doc.Find(`a[href$=".htm"], a[href*="/news/"]`).EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		if href == "" || len([]rune(title)) < 8 {
			return true
		}
		if strings.HasPrefix(href, "/") {
			href = "https://www.ithome.com" + href
		}
		if !strings.HasPrefix(href, "http") {
			return true
		}
		if _, dup := seen[href]; dup {
			return true
		}
		seen[href] = struct{}{}
		items = append(items, hotlist.RawItem{
			SourceKey: href,
			Title:     title,
			URL:       href,
			Rank:      len(items) + 1,
		})
		return len(items) < maxItems
	})
	return items, nil
}
