package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rustyeddy/trader/market"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// FinnhubHeadlines reads company news from the Finnhub REST API.
type FinnhubHeadlines struct {
	client   *resty.Client
	apiKey   string
	lookback time.Duration
	now      func() time.Time
}

type finnhubNews struct {
	DateTime int64  `json:"datetime"`
	Headline string `json:"headline"`
	Source   string `json:"source"`
}

// NewFinnhubHeadlines returns a client for baseURL; an empty baseURL uses
// the public endpoint.
func NewFinnhubHeadlines(baseURL, apiKey string) *FinnhubHeadlines {
	if baseURL == "" {
		baseURL = finnhubBaseURL
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(30 * time.Second)

	return &FinnhubHeadlines{
		client:   client,
		apiKey:   apiKey,
		lookback: 7 * 24 * time.Hour,
		now:      time.Now,
	}
}

func (f *FinnhubHeadlines) Headlines(ctx context.Context, ticker string, limit int) ([]string, error) {
	if f.apiKey == "" {
		return nil, fmt.Errorf("finnhub: API key not configured")
	}

	to := f.now().UTC()
	from := to.Add(-f.lookback)

	var news []finnhubNews
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": strings.ToUpper(ticker),
			"from":   from.Format(market.DateLayout),
			"to":     to.Format(market.DateLayout),
			"token":  f.apiKey,
		}).
		SetResult(&news).
		Get("/company-news")
	if err != nil {
		return nil, fmt.Errorf("finnhub news %s: %w", ticker, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("finnhub news %s: status %d: %s", ticker, resp.StatusCode(), resp.String())
	}

	out := make([]string, 0, limit)
	for _, n := range news {
		if len(out) == limit {
			break
		}
		if h := strings.TrimSpace(n.Headline); h != "" {
			out = append(out, h)
		}
	}
	return out, nil
}
