package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/rustyeddy/trader/portfolio"
)

type CSVJournal struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

func NewCSV(tradesPath, equityPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	j := &CSVJournal{csv.NewWriter(tf), csv.NewWriter(ef), tf, ef}

	if err := j.write(j.trades, []string{"trade_id", "ticker", "side", "quantity", "price", "timestamp"}); err != nil {
		j.Close()
		return nil, err
	}
	if err := j.write(j.equity, []string{"time", "balance", "equity", "positions"}); err != nil {
		j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSVJournal) write(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSVJournal) RecordTrade(t portfolio.TradeRecord) error {
	return j.write(j.trades, []string{
		t.ID,
		t.Ticker,
		string(t.Side),
		strconv.FormatInt(t.Quantity, 10),
		t.Price.StringFixed(2),
		t.Timestamp.UTC().Format(time.RFC3339),
	})
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	return j.write(j.equity, []string{
		e.Time.UTC().Format(time.RFC3339),
		e.Balance.StringFixed(2),
		e.Equity.StringFixed(2),
		strconv.Itoa(e.Positions),
	})
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}
