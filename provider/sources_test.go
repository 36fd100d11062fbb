package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rustyeddy/trader/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYahooSymbol(t *testing.T) {
	t.Parallel()

	y := NewYahooSource(".SA")
	assert.Equal(t, "PETR4.SA", y.Symbol("petr4"))
	assert.Equal(t, "PETR4.SA", y.Symbol("PETR4.SA"))
	assert.Equal(t, "^BVSP", y.Symbol("^BVSP"))
	assert.Equal(t, "AAPL", NewYahooSource("").Symbol("AAPL"))
}

func TestAwaitHonoursContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := await(ctx, func() (int, error) {
		time.Sleep(time.Second)
		return 1, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	v, err := await(context.Background(), func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestCSVSourceHistory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data := `date,open,high,low,close,volume
2024-01-03,10,11,9,10.5,1000
2024-01-02,9,10,8,9.5,900
2024-01-04,11,12,10,11.5,1100
2024-01-05,0,0,0,0,0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "PETR4.csv"), []byte(data), 0o644))

	src := NewCSVSource(dir)
	s, err := src.History(context.Background(), "petr4",
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, s, 2)
	assert.Equal(t, 9.5, s[0].Close)
	assert.Equal(t, 10.5, s[1].Close)

	all, err := src.History(context.Background(), "PETR4", time.Time{}, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = src.History(context.Background(), "VALE3", time.Time{}, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadBarsErrors(t *testing.T) {
	t.Parallel()

	_, err := ReadBars(strings.NewReader("2024-01-02,1,2,3\n"))
	assert.Error(t, err)

	_, err = ReadBars(strings.NewReader("2024-01-02,1,2,3,4,5\nnot-a-date,1,2,3,4,5\n"))
	assert.Error(t, err)

	_, err = ReadBars(strings.NewReader("2024-01-02,1,2,x,4,5\n"))
	assert.Error(t, err)
}

func TestWriteBarsRoundTrip(t *testing.T) {
	t.Parallel()

	in := ramp(3, 10, 0.5)
	var sb strings.Builder
	require.NoError(t, WriteBars(&sb, in))

	out, err := ReadBars(strings.NewReader(sb.String()))
	require.NoError(t, err)
	assert.Equal(t, []market.Bar(in), out)
}

func TestCSVSourceSave(t *testing.T) {
	t.Parallel()

	src := NewCSVSource(filepath.Join(t.TempDir(), "bars"))
	in := ramp(3, 10, 0.5)
	require.NoError(t, src.Save("vale3", in))

	out, err := src.History(context.Background(), "VALE3", time.Time{}, time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFinnhubHeadlines(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/company-news", r.URL.Path)
		assert.Equal(t, "PETR4", r.URL.Query().Get("symbol"))
		assert.Equal(t, "secret", r.URL.Query().Get("token"))
		assert.Equal(t, "2024-03-01", r.URL.Query().Get("from"))
		assert.Equal(t, "2024-03-08", r.URL.Query().Get("to"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"datetime": 1, "headline": " Petrobras raises dividend ", "source": "x"},
			{"datetime": 2, "headline": "", "source": "x"},
			{"datetime": 3, "headline": "Oil rallies", "source": "y"},
			{"datetime": 4, "headline": "Third", "source": "z"}
		]`))
	}))
	defer srv.Close()

	f := NewFinnhubHeadlines(srv.URL, "secret")
	f.now = func() time.Time { return time.Date(2024, 3, 8, 15, 0, 0, 0, time.UTC) }

	got, err := f.Headlines(context.Background(), "petr4", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Petrobras raises dividend", "Oil rallies"}, got)
}

func TestFinnhubHeadlinesErrors(t *testing.T) {
	t.Parallel()

	_, err := NewFinnhubHeadlines("http://127.0.0.1:1", "").Headlines(context.Background(), "PETR4", 5)
	assert.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "limit", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err = NewFinnhubHeadlines(srv.URL, "k").Headlines(context.Background(), "PETR4", 5)
	assert.ErrorContains(t, err, "429")
}

func TestRSSHeadlines(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "VALE3", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(`<?xml version="1.0"?>
<rss version="2.0"><channel><title>feed</title>
<item><title>Vale &amp; partners &lt;b&gt;sign&lt;/b&gt; deal</title></item>
<item><title>   </title></item>
<item><title>Iron ore
 slips</title></item>
<item><title>Ignored</title></item>
</channel></rss>`))
	}))
	defer srv.Close()

	r := NewRSSHeadlines(srv.URL + "/search?q=%s")
	got, err := r.Headlines(context.Background(), "VALE3", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Vale & partners sign deal", "Iron ore slips"}, got)
}

func TestRSSHeadlinesBadFeed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not a feed`))
	}))
	defer srv.Close()

	_, err := NewRSSHeadlines(srv.URL).Headlines(context.Background(), "VALE3", 5)
	assert.Error(t, err)
}
