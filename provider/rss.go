package provider

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// DefaultRSSURL searches Google News. %s is replaced by the escaped query.
const DefaultRSSURL = "https://news.google.com/rss/search?q=%s&hl=pt-BR&gl=BR&ceid=BR:pt-419"

type rssFeed struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []struct {
			Title string `xml:"title"`
		} `xml:"item"`
	} `xml:"channel"`
}

// RSSHeadlines reads item titles from an RSS search feed.
type RSSHeadlines struct {
	client   *resty.Client
	template string
}

// NewRSSHeadlines takes a URL template containing one %s for the ticker.
func NewRSSHeadlines(urlTemplate string) *RSSHeadlines {
	if urlTemplate == "" {
		urlTemplate = DefaultRSSURL
	}
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; trader/1.0)")

	return &RSSHeadlines{client: client, template: urlTemplate}
}

func (r *RSSHeadlines) Headlines(ctx context.Context, ticker string, limit int) ([]string, error) {
	u := r.template
	if strings.Contains(u, "%s") {
		u = fmt.Sprintf(u, url.QueryEscape(ticker))
	}

	resp, err := r.client.R().SetContext(ctx).Get(u)
	if err != nil {
		return nil, fmt.Errorf("rss %s: %w", ticker, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("rss %s: status %d", ticker, resp.StatusCode())
	}

	var feed rssFeed
	if err := xml.Unmarshal(resp.Body(), &feed); err != nil {
		return nil, fmt.Errorf("rss %s: %w", ticker, err)
	}

	out := make([]string, 0, limit)
	for _, it := range feed.Channel.Items {
		if len(out) == limit {
			break
		}
		if t := cleanText(it.Title); t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}

// cleanText strips markup and collapses whitespace.
func cleanText(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
