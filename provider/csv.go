package provider

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/trader/market"
)

// CSVSource reads <Dir>/<TICKER>.csv files with the columns
// date,open,high,low,close,volume. A header row is optional.
type CSVSource struct {
	Dir string
}

func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{Dir: dir}
}

func (c *CSVSource) path(ticker string) string {
	return filepath.Join(c.Dir, strings.ToUpper(ticker)+".csv")
}

// Save writes bars to the ticker's file, creating Dir if needed.
func (c *CSVSource) Save(ticker string, bars market.Series) error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(c.path(ticker))
	if err != nil {
		return err
	}
	if err := WriteBars(f, bars); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", ticker, err)
	}
	return f.Close()
}

func (c *CSVSource) History(ctx context.Context, ticker string, start, end time.Time) (market.Series, error) {
	f, err := os.Open(c.path(ticker))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", ticker, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bars, err := ReadBars(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.path(ticker), err)
	}

	start, end = market.Day(start), market.Day(end)
	out := bars[:0]
	for _, b := range bars {
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		out = append(out, b)
	}
	return market.NewSeries(out), nil
}

// ReadBars parses daily bars in date,open,high,low,close,volume order.
func ReadBars(r io.Reader) ([]market.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var bars []market.Bar
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) < 5 {
			return nil, fmt.Errorf("line %d: want at least 5 fields, got %d", line, len(rec))
		}

		date, err := time.Parse(market.DateLayout, rec[0])
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		var vals [5]float64
		for i := 1; i < len(rec) && i <= 5; i++ {
			if rec[i] == "" {
				continue
			}
			v, err := strconv.ParseFloat(rec[i], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d field %d: %w", line, i+1, err)
			}
			vals[i-1] = v
		}
		bars = append(bars, market.Bar{
			Date:   date,
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
	}
	return bars, nil
}

// WriteBars writes bars with a header row.
func WriteBars(w io.Writer, bars market.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, b := range bars {
		err := cw.Write([]string{
			b.Date.Format(market.DateLayout),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
