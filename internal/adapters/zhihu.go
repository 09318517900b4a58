package adapters

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"hotboard/internal/fetch"
	"hotboard/internal/hotlist"
)

// Zhihu crawls the Zhihu hot list through its public feed API.
type Zhihu struct {
	client *fetch.Client
	logger *zap.Logger
	apiURL string
}

// NewZhihu builds the zhihu_hot adapter.
func NewZhihu(deps Deps) *Zhihu {
	return &Zhihu{
		client: deps.Client,
		logger: deps.Logger.Named("zhihu"),
		apiURL: "https://www.zhihu.com/api/v3/feed/topstory/hot-lists/total?limit=50&desktop=true",
	}
}

// Source implements hotlist.Adapter.
func (z *Zhihu) Source() hotlist.Source {
	return hotlist.Source{Name: "zhihu", Category: "hot", DisplayName: "知乎"}
}

type zhihuResponse struct {
	Data []zhihuEntry `json:"data"`
}

// flexID tolerates question ids arriving as JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}
	*f = flexID(s)
	return nil
}

type zhihuEntry struct {
	DetailText string `json:"detail_text"`
	Target     struct {
		ID          flexID `json:"id"`
		Title       string `json:"title"`
		Excerpt     string `json:"excerpt"`
		AnswerCount int    `json:"answer_count"`
		CreatedTime int64  `json:"created"`
		Author      struct {
			Name string `json:"name"`
		} `json:"author"`
	} `json:"target"`
}

// Crawl fetches the hot list; malformed entries are skipped per record.
func (z *Zhihu) Crawl(ctx context.Context) ([]hotlist.RawItem, error) {
	header := http.Header{}
	header.Set("Referer", "https://www.zhihu.com/")
	header.Set("Accept", "application/json, text/plain, */*")

	var resp zhihuResponse
	if err := z.client.GetJSON(ctx, z.apiURL, header, &resp); err != nil {
		return nil, fmt.Errorf("zhihu hot list: %w", err)
	}

	items := make([]hotlist.RawItem, 0, maxItems)
	skipped := 0
	for _, entry := range resp.Data {
		if len(items) >= maxItems {
			break
		}
		title := strings.TrimSpace(entry.Target.Title)
		id := string(entry.Target.ID)
		if title == "" || id == "" {
			skipped++
			continue
		}
		item := hotlist.RawItem{
			SourceKey:    id,
			Title:        title,
			URL:          "https://www.zhihu.com/question/" + id,
			Rank:         len(items) + 1,
			Author:       entry.Target.Author.Name,
			CommentCount: entry.Target.AnswerCount,
		}
		if entry.DetailText != "" {
			item.HeatValue = strings.TrimSpace(strings.TrimSuffix(entry.DetailText, "万热度"))
		}
		if excerpt := strings.TrimSpace(entry.Target.Excerpt); excerpt != "" {
			if r := []rune(excerpt); len(r) > 200 {
				excerpt = string(r[:200])
			}
			item.Description = excerpt
		}
		if entry.Target.CreatedTime > 0 {
			ts := time.Unix(entry.Target.CreatedTime, 0)
			item.PublishedAt = &ts
		}
		items = append(items, item)
	}
	if skipped > 0 {
		z.logger.Warn("skipped malformed entries", zap.Int("skipped", skipped))
	}
	return items, nil
}
